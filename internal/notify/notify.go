// Package notify decides who gets a push message and records how it went.
//
// Two triggers exist: NotifyThought runs inline after a thought is saved and
// SendReminder is run by an external scheduler. Neither lets a delivery
// failure escape; failures are logged, counted and, when the push service
// reports the subscription gone, the subscription is deleted.
package notify

import (
	"context"

	"thought-stream-go/internal/models"
	"thought-stream-go/internal/push"
	"thought-stream-go/internal/store"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const (
	ThoughtTitle  = "New Thought!"
	ReminderTitle = "Thought Stream"
	ReminderBody  = "What's on your mind?"
)

// Sender delivers one message to one subscription.
type Sender interface {
	Send(ctx context.Context, sub models.PushSubscription, msg push.Message) push.Result
}

type Notifier struct {
	subs    store.SubscriptionStore
	sender  Sender
	log     *zap.Logger
	metrics *metrics
}

// New returns a Notifier. A nil sender disables delivery, which is how the
// server runs before any VAPID keys exist. A nil reg skips metric
// registration.
func New(subs store.SubscriptionStore, sender Sender, log *zap.Logger, reg prometheus.Registerer) *Notifier {
	return &Notifier{
		subs:    subs,
		sender:  sender,
		log:     log.Named("notify"),
		metrics: registerMetrics(reg),
	}
}

func (n *Notifier) Enabled() bool { return n.sender != nil }

// NotifyThought pushes t to the subscription owned by owner, if there is one.
func (n *Notifier) NotifyThought(ctx context.Context, owner string, t models.Thought) []push.Result {
	if !n.Enabled() {
		n.log.Debug("push disabled, skipping thought notification")
		return nil
	}
	sub, found, err := n.subs.GetSubscription(ctx, owner)
	if err != nil {
		n.log.Error("failed to load subscription", zap.String("owner", owner), zap.Error(err))
		return nil
	}
	if !found {
		n.log.Debug("no subscription for owner", zap.String("owner", owner))
		return nil
	}
	msg := push.Message{Title: ThoughtTitle, Body: t.Text}
	return []push.Result{n.deliver(ctx, triggerThought, sub, msg)}
}

// SendReminder pushes the reminder prompt to every stored subscription.
// Only a failure to read the subscriptions is returned.
func (n *Notifier) SendReminder(ctx context.Context) ([]push.Result, error) {
	if !n.Enabled() {
		n.log.Info("push disabled, skipping reminder")
		return nil, nil
	}
	subs, err := n.subs.GetSubscriptions(ctx)
	if err != nil {
		return nil, err
	}
	if len(subs) == 0 {
		n.log.Info("no subscriptions, nothing to send")
		return nil, nil
	}

	msg := push.Message{Title: ReminderTitle, Body: ReminderBody}
	results := make([]push.Result, 0, len(subs))
	for _, sub := range subs {
		if ctx.Err() != nil {
			break
		}
		results = append(results, n.deliver(ctx, triggerReminder, sub, msg))
	}
	return results, nil
}

func (n *Notifier) deliver(ctx context.Context, trigger string, sub models.PushSubscription, msg push.Message) push.Result {
	res := n.sender.Send(ctx, sub, msg)
	n.metrics.duration.WithLabelValues(trigger).Observe(res.Duration.Seconds())

	fields := []zap.Field{
		zap.String("trigger", trigger),
		zap.String("subscription", res.SubscriptionID),
		zap.String("endpoint", res.Endpoint),
		zap.Int("status", res.StatusCode),
		zap.Duration("duration", res.Duration),
	}

	switch {
	case res.OK():
		n.metrics.deliveries.WithLabelValues(trigger, outcomeSent).Inc()
		n.log.Info("push delivered", fields...)
	case res.Gone():
		n.metrics.deliveries.WithLabelValues(trigger, outcomeGone).Inc()
		n.log.Warn("push subscription gone", append(fields, zap.Error(res.Err))...)
		n.prune(ctx, sub.ID)
	default:
		n.metrics.deliveries.WithLabelValues(trigger, outcomeFailed).Inc()
		n.log.Warn("push failed", append(fields, zap.Error(res.Err))...)
	}
	return res
}

func (n *Notifier) prune(ctx context.Context, id string) {
	if err := n.subs.DeleteSubscription(ctx, id); err != nil {
		n.log.Error("failed to delete gone subscription", zap.String("subscription", id), zap.Error(err))
		return
	}
	n.metrics.pruned.Inc()
}
