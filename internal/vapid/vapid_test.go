package vapid

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func keyPaths(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	return filepath.Join(dir, "vapid_private.pem"), filepath.Join(dir, "vapid_public.txt")
}

func TestGenerate_PublicKeyIsUncompressedPoint(t *testing.T) {
	for range 20 {
		kp, err := Generate()
		require.NoError(t, err)

		pub := kp.PublicKeyBytes()
		require.Len(t, pub, 65)
		assert.Equal(t, byte(0x04), pub[0])

		decoded, err := base64.RawURLEncoding.DecodeString(kp.PublicKeyBase64())
		require.NoError(t, err)
		assert.Equal(t, pub, decoded)
		assert.NotContains(t, kp.PublicKeyBase64(), "=")
	}
}

func TestGenerate_EachCallProducesNewPair(t *testing.T) {
	a, err := Generate()
	require.NoError(t, err)
	b, err := Generate()
	require.NoError(t, err)
	assert.NotEqual(t, a.PublicKeyBase64(), b.PublicKeyBase64())
}

func TestPrivateKeyBase64_IsRawScalar(t *testing.T) {
	kp, err := Generate()
	require.NoError(t, err)

	raw, err := base64.RawURLEncoding.DecodeString(kp.PrivateKeyBase64())
	require.NoError(t, err)
	assert.Len(t, raw, 32)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	privPath, pubPath := keyPaths(t)
	kp, err := Generate()
	require.NoError(t, err)
	require.NoError(t, Save(kp, privPath, pubPath))

	loaded, err := Load(privPath, pubPath)
	require.NoError(t, err)

	assert.Equal(t, kp.PublicKeyBytes(), loaded.PublicKeyBytes())
	assert.Equal(t, kp.PrivateKeyBase64(), loaded.PrivateKeyBase64())

	derived, err := loaded.PublicKey().ECDH()
	require.NoError(t, err)
	assert.Equal(t, kp.PublicKeyBytes(), derived.Bytes())

	privPEM, err := os.ReadFile(privPath)
	require.NoError(t, err)
	block, _ := pem.Decode(privPEM)
	require.NotNil(t, block)
	assert.Equal(t, "PRIVATE KEY", block.Type)
}

func TestSave_OverwritesExistingPair(t *testing.T) {
	privPath, pubPath := keyPaths(t)
	first, err := Generate()
	require.NoError(t, err)
	require.NoError(t, Save(first, privPath, pubPath))

	second, err := Generate()
	require.NoError(t, err)
	require.NoError(t, Save(second, privPath, pubPath))

	loaded, err := Load(privPath, pubPath)
	require.NoError(t, err)
	assert.Equal(t, second.PublicKeyBase64(), loaded.PublicKeyBase64())
}

func TestLoad_MissingFiles(t *testing.T) {
	privPath, pubPath := keyPaths(t)

	_, err := Load(privPath, pubPath)
	require.ErrorIs(t, err, ErrKeysNotFound)

	kp, err := Generate()
	require.NoError(t, err)
	require.NoError(t, Save(kp, privPath, pubPath))
	require.NoError(t, os.Remove(pubPath))

	_, err = Load(privPath, pubPath)
	require.ErrorIs(t, err, ErrKeysNotFound)
}

func TestLoad_MismatchedPublicKey(t *testing.T) {
	privPath, pubPath := keyPaths(t)
	kp, err := Generate()
	require.NoError(t, err)
	other, err := Generate()
	require.NoError(t, err)

	require.NoError(t, Save(kp, privPath, pubPath))
	require.NoError(t, os.WriteFile(pubPath, []byte(other.PublicKeyBase64()), 0o644))

	_, err = Load(privPath, pubPath)
	require.ErrorIs(t, err, ErrInvalidKeyMaterial)
}

func TestLoad_InvalidMaterial(t *testing.T) {
	kp, err := Generate()
	require.NoError(t, err)
	p384, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	require.NoError(t, err)
	p384DER, err := x509.MarshalPKCS8PrivateKey(p384)
	require.NoError(t, err)

	tests := []struct {
		name string
		priv []byte
		pub  string
	}{
		{"not pem", []byte("garbage"), kp.PublicKeyBase64()},
		{"wrong block type", pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: []byte{1, 2}}), kp.PublicKeyBase64()},
		{"broken der", pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: []byte{1, 2, 3}}), kp.PublicKeyBase64()},
		{"wrong curve", pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: p384DER}), kp.PublicKeyBase64()},
		{"public not base64", mustPEM(t, kp), "%%%"},
		{"public too short", mustPEM(t, kp), base64.RawURLEncoding.EncodeToString([]byte{4, 1, 2})},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			privPath, pubPath := keyPaths(t)
			require.NoError(t, os.WriteFile(privPath, tc.priv, 0o600))
			require.NoError(t, os.WriteFile(pubPath, []byte(tc.pub), 0o644))

			_, err := Load(privPath, pubPath)
			require.ErrorIs(t, err, ErrInvalidKeyMaterial)
		})
	}
}

func TestParsePublicKey_AcceptsPaddedAndWhitespace(t *testing.T) {
	kp, err := Generate()
	require.NoError(t, err)

	padded := base64.URLEncoding.EncodeToString(kp.PublicKeyBytes())
	raw, err := ParsePublicKey("  " + padded + "\n")
	require.NoError(t, err)
	assert.Equal(t, kp.PublicKeyBytes(), raw)
}

func TestParsePublicKey_RejectsPointOffCurve(t *testing.T) {
	bad := make([]byte, 65)
	bad[0] = 0x04
	bad[64] = 1
	_, err := ParsePublicKey(base64.RawURLEncoding.EncodeToString(bad))
	require.ErrorIs(t, err, ErrInvalidKeyMaterial)
}

func mustPEM(t *testing.T, kp *KeyPair) []byte {
	t.Helper()
	data, err := kp.PrivateKeyPEM()
	require.NoError(t, err)
	return data
}
