// Package vapid generates, persists and loads the server's VAPID key pair.
//
// On disk the private key is a PKCS#8 PEM file and the public key is the
// 65-byte uncompressed P-256 point, base64url encoded without padding, in a
// text file. Browsers pin the public key when they subscribe, so replacing
// the pair orphans every stored subscription.
package vapid

import (
	"bytes"
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"strings"

	"thought-stream-go/internal/filex"
)

const pemBlockType = "PRIVATE KEY"

var (
	// ErrKeysNotFound means no key pair has been generated yet.
	ErrKeysNotFound = errors.New("vapid keys not found")
	// ErrInvalidKeyMaterial means the key files exist but cannot be used.
	ErrInvalidKeyMaterial = errors.New("invalid vapid key material")
)

type KeyPair struct {
	private *ecdsa.PrivateKey
	public  []byte
}

// Generate creates a fresh P-256 key pair.
func Generate() (*KeyPair, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate P-256 key: %w", err)
	}
	return newKeyPair(key)
}

func newKeyPair(key *ecdsa.PrivateKey) (*KeyPair, error) {
	if key.Curve != elliptic.P256() {
		return nil, fmt.Errorf("%w: curve %s is not P-256", ErrInvalidKeyMaterial, key.Curve.Params().Name)
	}
	pub, err := key.PublicKey.ECDH()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKeyMaterial, err)
	}
	return &KeyPair{private: key, public: pub.Bytes()}, nil
}

// PublicKey returns the verification key for tokens signed by this pair.
func (kp *KeyPair) PublicKey() *ecdsa.PublicKey {
	return &kp.private.PublicKey
}

// PublicKeyBytes returns the uncompressed point 0x04 || X || Y.
func (kp *KeyPair) PublicKeyBytes() []byte {
	return bytes.Clone(kp.public)
}

// PublicKeyBase64 is the applicationServerKey handed to browsers.
func (kp *KeyPair) PublicKeyBase64() string {
	return base64.RawURLEncoding.EncodeToString(kp.public)
}

// PrivateKeyBase64 returns the raw 32-byte scalar, base64url encoded, which
// is the form webpush-go signs with.
func (kp *KeyPair) PrivateKeyBase64() string {
	priv, err := kp.private.ECDH()
	if err != nil {
		// newKeyPair only admits P-256 keys, which always convert.
		panic(fmt.Sprintf("vapid: convert private key: %v", err))
	}
	return base64.RawURLEncoding.EncodeToString(priv.Bytes())
}

// PrivateKeyPEM encodes the private key as PKCS#8 PEM.
func (kp *KeyPair) PrivateKeyPEM() ([]byte, error) {
	der, err := x509.MarshalPKCS8PrivateKey(kp.private)
	if err != nil {
		return nil, fmt.Errorf("marshal pkcs8: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: pemBlockType, Bytes: der}), nil
}

// Save writes both halves of kp, replacing whatever was there.
func Save(kp *KeyPair, privatePath, publicPath string) error {
	privPEM, err := kp.PrivateKeyPEM()
	if err != nil {
		return err
	}
	if err := filex.WriteAtomic(privatePath, privPEM, 0o600); err != nil {
		return fmt.Errorf("save private key: %w", err)
	}
	if err := filex.WriteAtomic(publicPath, []byte(kp.PublicKeyBase64()+"\n"), 0o644); err != nil {
		return fmt.Errorf("save public key: %w", err)
	}
	return nil
}

// Load reads a key pair written by Save. The stored public key must be the
// one derived from the private key.
func Load(privatePath, publicPath string) (*KeyPair, error) {
	privPEM, err := readKeyFile(privatePath)
	if err != nil {
		return nil, err
	}
	pubText, err := readKeyFile(publicPath)
	if err != nil {
		return nil, err
	}

	kp, err := ParsePrivateKeyPEM(privPEM)
	if err != nil {
		return nil, err
	}
	stored, err := ParsePublicKey(string(pubText))
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(stored, kp.public) {
		return nil, fmt.Errorf("%w: public key in %s does not belong to private key in %s", ErrInvalidKeyMaterial, publicPath, privatePath)
	}
	return kp, nil
}

func readKeyFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrKeysNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// ParsePrivateKeyPEM decodes a PKCS#8 PEM encoded P-256 private key.
func ParsePrivateKeyPEM(data []byte) (*KeyPair, error) {
	block, _ := pem.Decode(data)
	if block == nil || block.Type != pemBlockType {
		return nil, fmt.Errorf("%w: no %q PEM block", ErrInvalidKeyMaterial, pemBlockType)
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKeyMaterial, err)
	}
	key, ok := parsed.(*ecdsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: %T is not an ECDSA key", ErrInvalidKeyMaterial, parsed)
	}
	return newKeyPair(key)
}

// ParsePublicKey decodes a base64url public key and checks that it is an
// uncompressed point on P-256.
func ParsePublicKey(s string) ([]byte, error) {
	s = strings.TrimRight(strings.TrimSpace(s), "=")
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: public key is not base64url: %v", ErrInvalidKeyMaterial, err)
	}
	if len(raw) != 65 || raw[0] != 0x04 {
		return nil, fmt.Errorf("%w: public key is not an uncompressed point", ErrInvalidKeyMaterial)
	}
	if _, err := ecdh.P256().NewPublicKey(raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKeyMaterial, err)
	}
	return raw, nil
}
