package notify

import "github.com/prometheus/client_golang/prometheus"

const (
	triggerThought  = "thought"
	triggerReminder = "reminder"

	outcomeSent   = "sent"
	outcomeGone   = "gone"
	outcomeFailed = "failed"
)

type metrics struct {
	deliveries *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	pruned     prometheus.Counter
}

func registerMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "thoughtstream",
			Subsystem: "push",
			Name:      "deliveries_total",
			Help:      "push deliveries by trigger and outcome",
		}, []string{"trigger", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "thoughtstream",
			Subsystem: "push",
			Name:      "delivery_duration_seconds",
			Help:      "time spent on one push request",
			Buckets:   prometheus.DefBuckets,
		}, []string{"trigger"}),
		pruned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "thoughtstream",
			Subsystem: "push",
			Name:      "pruned_subscriptions_total",
			Help:      "subscriptions deleted after the push service reported them gone",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.deliveries, m.duration, m.pruned)
	}
	return m
}
