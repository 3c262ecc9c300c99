package models

import (
	"bytes"
	"image/png"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTOTP_GenerateAndVerify(t *testing.T) {
	key, err := GenerateTOTPSecret("admin")
	require.NoError(t, err)
	assert.Equal(t, TOTPIssuer, key.Issuer())
	assert.Equal(t, "admin", key.AccountName())

	code, err := totp.GenerateCode(key.Secret(), time.Now())
	require.NoError(t, err)

	assert.True(t, VerifyTOTPCode(key.Secret(), code))
	assert.False(t, VerifyTOTPCode(key.Secret(), "000000x"))
	assert.False(t, VerifyTOTPCode("", code))
	assert.False(t, VerifyTOTPCode(key.Secret(), ""))
}

func TestQRCodePNG(t *testing.T) {
	key, err := GenerateTOTPSecret("admin")
	require.NoError(t, err)

	data, err := QRCodePNG(key, 200)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 200, img.Bounds().Dx())
}
