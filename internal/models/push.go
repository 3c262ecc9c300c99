package models

import "time"

// PushSubscription is the object a browser hands out from
// PushManager.subscribe. It is stored and forwarded as-is; nothing is
// validated until a push is attempted.
type PushSubscription struct {
	ID             string    `json:"id,omitempty"`
	Endpoint       string    `json:"endpoint"`
	ExpirationTime *int64    `json:"expirationTime,omitempty"`
	Keys           PushKeys  `json:"keys"`
	CreatedAt      time.Time `json:"created_at"`
}

type PushKeys struct {
	P256dh string `json:"p256dh"` // client ECDH public key, base64url
	Auth   string `json:"auth"`   // client auth secret, base64url
}
