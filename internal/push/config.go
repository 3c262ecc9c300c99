package push

import (
	"net/http"

	"thought-stream-go/internal/config"
	"thought-stream-go/internal/vapid"

	"github.com/SherClockHolmes/webpush-go"
)

// FromConfig builds the Sender used by the server and the reminder tool.
func FromConfig(keys *vapid.KeyPair, cfg *config.Config) (*Sender, error) {
	return NewSender(keys, Claims{Subscriber: cfg.VAPIDClaimsEmail}, Options{
		TTL:        cfg.PushTTL,
		Urgency:    webpush.UrgencyNormal,
		HTTPClient: &http.Client{Timeout: cfg.PushTimeout},
	})
}
