// Package push delivers Web Push messages signed with the server's VAPID key.
//
// Payload encryption (RFC 8291, aes128gcm) and the VAPID authorization header
// (RFC 8292) are produced by webpush-go. Each Send makes exactly one request;
// retrying is left to the caller.
package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"thought-stream-go/internal/models"
	"thought-stream-go/internal/vapid"

	"github.com/SherClockHolmes/webpush-go"
)

const maxErrorBody = 512

// Message is the JSON payload the service worker turns into a notification.
type Message struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Claims holds the VAPID JWT claims chosen by the application server.
// Subscriber is a mailto: URI or an https URL.
type Claims struct {
	Subscriber string
}

type Options struct {
	// TTL is how long, in seconds, the push service may hold the message.
	TTL     int
	Urgency webpush.Urgency
	// HTTPClient defaults to an *http.Client without a timeout.
	HTTPClient webpush.HTTPClient
}

// Error describes a failed delivery to one endpoint.
type Error struct {
	Endpoint   string
	StatusCode int // zero when no response was received
	Body       string
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("push to %s: %v", e.Endpoint, e.Err)
	}
	if e.Body != "" {
		return fmt.Sprintf("push to %s: status %d: %s", e.Endpoint, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("push to %s: status %d", e.Endpoint, e.StatusCode)
}

func (e *Error) Unwrap() error { return e.Err }

// Gone reports whether the push service says the subscription no longer
// exists and should be forgotten.
func (e *Error) Gone() bool {
	return e.StatusCode == http.StatusNotFound || e.StatusCode == http.StatusGone
}

// Result is the outcome of one Send.
type Result struct {
	SubscriptionID string
	Endpoint       string
	StatusCode     int
	Duration       time.Duration
	Err            error
}

func (r Result) OK() bool { return r.Err == nil }

func (r Result) Gone() bool {
	var pe *Error
	return errors.As(r.Err, &pe) && pe.Gone()
}

type Sender struct {
	privateKey string
	publicKey  string
	subscriber string
	opts       Options
}

func NewSender(keys *vapid.KeyPair, claims Claims, opts Options) (*Sender, error) {
	if keys == nil {
		return nil, errors.New("push: no VAPID key pair")
	}
	subscriber := strings.TrimSpace(claims.Subscriber)
	if subscriber == "" {
		return nil, errors.New("push: empty VAPID subscriber claim")
	}
	return &Sender{
		privateKey: keys.PrivateKeyBase64(),
		publicKey:  keys.PublicKeyBase64(),
		// webpush-go prefixes anything that is not an https URL with mailto:.
		subscriber: strings.TrimPrefix(subscriber, "mailto:"),
		opts:       opts,
	}, nil
}

// Send encrypts msg for sub and posts it to the subscription endpoint.
// Any response outside 2xx is reported as an *Error.
func (s *Sender) Send(ctx context.Context, sub models.PushSubscription, msg Message) (res Result) {
	res = Result{SubscriptionID: sub.ID, Endpoint: sub.Endpoint}
	start := time.Now()
	defer func() { res.Duration = time.Since(start) }()

	payload, err := json.Marshal(msg)
	if err != nil {
		res.Err = &Error{Endpoint: sub.Endpoint, Err: err}
		return res
	}

	resp, err := webpush.SendNotificationWithContext(ctx, payload, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.Keys.P256dh,
			Auth:   sub.Keys.Auth,
		},
	}, &webpush.Options{
		HTTPClient:      s.opts.HTTPClient,
		Subscriber:      s.subscriber,
		TTL:             s.opts.TTL,
		Urgency:         s.opts.Urgency,
		VAPIDPublicKey:  s.publicKey,
		VAPIDPrivateKey: s.privateKey,
	})
	if err != nil {
		res.Err = &Error{Endpoint: sub.Endpoint, Err: err}
		return res
	}
	defer resp.Body.Close()

	res.StatusCode = resp.StatusCode
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		res.Err = &Error{
			Endpoint:   sub.Endpoint,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
			Err:        errors.New(http.StatusText(resp.StatusCode)),
		}
		return res
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return res
}
