package notify

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"thought-stream-go/internal/models"
	"thought-stream-go/internal/push"
	"thought-stream-go/internal/store"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type sent struct {
	sub models.PushSubscription
	msg push.Message
}

// fakeSender answers with a status per subscription ID, 201 by default.
type fakeSender struct {
	mu     sync.Mutex
	status map[string]int
	sent   []sent
}

func (f *fakeSender) Send(ctx context.Context, sub models.PushSubscription, msg push.Message) push.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sent{sub: sub, msg: msg})

	res := push.Result{SubscriptionID: sub.ID, Endpoint: sub.Endpoint, Duration: time.Millisecond}
	code, ok := f.status[sub.ID]
	switch {
	case !ok:
		res.StatusCode = http.StatusCreated
	case code == 0:
		res.Err = &push.Error{Endpoint: sub.Endpoint, Err: errors.New("dial tcp: connection refused")}
	default:
		res.StatusCode = code
		if code >= 300 {
			res.Err = &push.Error{Endpoint: sub.Endpoint, StatusCode: code}
		}
	}
	return res
}

type fixture struct {
	notifier *Notifier
	sender   *fakeSender
	subs     *store.FileStore
	logs     *observer.ObservedLogs
}

func newFixture(t *testing.T, ids ...string) *fixture {
	t.Helper()
	subs, err := store.NewFileStore(t.TempDir())
	require.NoError(t, err)
	for _, id := range ids {
		require.NoError(t, subs.SaveSubscription(context.Background(), models.PushSubscription{
			ID:       id,
			Endpoint: "https://push.example/" + id,
			Keys:     models.PushKeys{P256dh: "p-" + id, Auth: "a-" + id},
		}))
	}
	core, logs := observer.New(zapcore.DebugLevel)
	sender := &fakeSender{status: map[string]int{}}
	return &fixture{
		notifier: New(subs, sender, zap.New(core), prometheus.NewRegistry()),
		sender:   sender,
		subs:     subs,
		logs:     logs,
	}
}

func TestNotifyThought_SendsToOwner(t *testing.T) {
	f := newFixture(t, "alice", "bob")

	results := f.notifier.NotifyThought(context.Background(), "alice", models.Thought{Text: "lunch was good"})
	require.Len(t, results, 1)
	assert.True(t, results[0].OK())

	require.Len(t, f.sender.sent, 1)
	assert.Equal(t, "https://push.example/alice", f.sender.sent[0].sub.Endpoint)
	assert.Equal(t, push.Message{Title: "New Thought!", Body: "lunch was good"}, f.sender.sent[0].msg)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.notifier.metrics.deliveries.WithLabelValues(triggerThought, outcomeSent)))
	assert.Equal(t, 1, f.logs.FilterMessage("push delivered").Len())
}

func TestNotifyThought_NoSubscriptionIsNoop(t *testing.T) {
	f := newFixture(t)

	results := f.notifier.NotifyThought(context.Background(), "alice", models.Thought{Text: "x"})
	assert.Empty(t, results)
	assert.Empty(t, f.sender.sent)
}

func TestNotifyThought_DisabledSender(t *testing.T) {
	subs, err := store.NewFileStore(t.TempDir())
	require.NoError(t, err)
	n := New(subs, nil, zap.NewNop(), nil)

	assert.False(t, n.Enabled())
	assert.Empty(t, n.NotifyThought(context.Background(), "alice", models.Thought{Text: "x"}))

	results, err := n.SendReminder(context.Background())
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestNotifyThought_FailureIsLoggedNotReturned(t *testing.T) {
	f := newFixture(t, "alice")
	f.sender.status["alice"] = 0

	results := f.notifier.NotifyThought(context.Background(), "alice", models.Thought{Text: "x"})
	require.Len(t, results, 1)
	assert.False(t, results[0].OK())
	assert.False(t, results[0].Gone())

	_, found, err := f.subs.GetSubscription(context.Background(), "alice")
	require.NoError(t, err)
	assert.True(t, found, "transient failures keep the subscription")

	warn := f.logs.FilterMessage("push failed").All()
	require.Len(t, warn, 1)
	assert.Equal(t, zapcore.WarnLevel, warn[0].Level)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.notifier.metrics.deliveries.WithLabelValues(triggerThought, outcomeFailed)))
}

func TestSendReminder_FansOutAndPrunesGone(t *testing.T) {
	f := newFixture(t, "alice", "bob", "carol", "dave")
	f.sender.status["bob"] = http.StatusGone
	f.sender.status["carol"] = http.StatusNotFound
	f.sender.status["dave"] = http.StatusInternalServerError

	results, err := f.notifier.SendReminder(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 4)

	for _, s := range f.sender.sent {
		assert.Equal(t, push.Message{Title: "Thought Stream", Body: "What's on your mind?"}, s.msg)
	}

	remaining, err := f.subs.GetSubscriptions(context.Background())
	require.NoError(t, err)
	var ids []string
	for _, s := range remaining {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []string{"alice", "dave"}, ids)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.notifier.metrics.deliveries.WithLabelValues(triggerReminder, outcomeSent)))
	assert.Equal(t, 2.0, testutil.ToFloat64(f.notifier.metrics.deliveries.WithLabelValues(triggerReminder, outcomeGone)))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.notifier.metrics.deliveries.WithLabelValues(triggerReminder, outcomeFailed)))
	assert.Equal(t, 2.0, testutil.ToFloat64(f.notifier.metrics.pruned))
	assert.Equal(t, 1, testutil.CollectAndCount(f.notifier.metrics.duration), "one reminder series")
}

func TestSendReminder_NoSubscriptions(t *testing.T) {
	f := newFixture(t)

	results, err := f.notifier.SendReminder(context.Background())
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Equal(t, 1, f.logs.FilterMessage("no subscriptions, nothing to send").Len())
}

type brokenStore struct{ store.SubscriptionStore }

func (brokenStore) GetSubscriptions(context.Context) ([]models.PushSubscription, error) {
	return nil, errors.New("disk on fire")
}

func (brokenStore) GetSubscription(context.Context, string) (models.PushSubscription, bool, error) {
	return models.PushSubscription{}, false, errors.New("disk on fire")
}

func TestSendReminder_StorageErrorSurfaces(t *testing.T) {
	n := New(brokenStore{}, &fakeSender{}, zap.NewNop(), nil)

	_, err := n.SendReminder(context.Background())
	require.Error(t, err)

	assert.Empty(t, n.NotifyThought(context.Background(), "alice", models.Thought{Text: "x"}))
}
