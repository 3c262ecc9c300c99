package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"thought-stream-go/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRedisStore_PublishesNewThoughts(t *testing.T) {
	s, _ := newTestRedisStore(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ps, err := s.SubscribeThoughts(ctx)
	require.NoError(t, err)
	defer ps.Close()

	added, err := s.AddThought(ctx, "hello from redis")
	require.NoError(t, err)

	select {
	case msg := <-ps.Channel():
		assert.Equal(t, ThoughtEventsChannel, msg.Channel)
		var got models.Thought
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
		assert.Equal(t, added.Text, got.Text)
		assert.True(t, added.Timestamp.Equal(got.Timestamp))
	case <-ctx.Done():
		t.Fatal("no thought event received")
	}
}

func TestRedisStore_Layout(t *testing.T) {
	s, mr := newTestRedisStore(t)
	ctx := context.Background()

	_, err := s.AddThought(ctx, "one")
	require.NoError(t, err)
	_, err = s.AddThought(ctx, "two")
	require.NoError(t, err)
	require.NoError(t, s.SaveSubscription(ctx, sampleSubscription("alice")))

	id, err := mr.Get(thoughtIDKey)
	require.NoError(t, err)
	assert.Equal(t, "2", id)

	members, err := mr.ZMembers(thoughtTimeline)
	require.NoError(t, err)
	assert.Equal(t, []string{"thought:1", "thought:2"}, members)

	assert.True(t, mr.Exists("thought:2"))
	fields, err := mr.HKeys(subscriptionsKey)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, fields)
}

func TestRedisStore_SkipsMissingThoughtValues(t *testing.T) {
	s, mr := newTestRedisStore(t)
	ctx := context.Background()

	for _, text := range []string{"a", "b", "c"} {
		_, err := s.AddThought(ctx, text)
		require.NoError(t, err)
	}
	mr.Del("thought:2")

	got, total, err := s.GetThoughts(ctx, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, got, 2)
	assert.Equal(t, "c", got[0].Text)
	assert.Equal(t, "a", got[1].Text)
}

func TestRedisStore_UnreachableServer(t *testing.T) {
	s := NewRedisStore(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1}, zap.NewNop())
	defer s.Close()

	require.Error(t, s.Ping(context.Background()))
	_, err := s.AddThought(context.Background(), "lost")
	require.Error(t, err)
}
