package push

import (
	"net/http"
	"testing"
	"time"

	"thought-stream-go/internal/config"
	"thought-stream-go/internal/vapid"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromConfig(t *testing.T) {
	keys, err := vapid.Generate()
	require.NoError(t, err)

	cfg := config.Defaults()
	cfg.PushTimeout = 3 * time.Second
	cfg.PushTTL = 120

	s, err := FromConfig(keys, cfg)
	require.NoError(t, err)
	assert.Equal(t, "your-email@example.com", s.subscriber)
	assert.Equal(t, 120, s.opts.TTL)
	assert.Equal(t, webpush.UrgencyNormal, s.opts.Urgency)
	require.IsType(t, &http.Client{}, s.opts.HTTPClient)
	assert.Equal(t, 3*time.Second, s.opts.HTTPClient.(*http.Client).Timeout)

	cfg.VAPIDClaimsEmail = "  "
	_, err = FromConfig(keys, cfg)
	require.Error(t, err)
}
