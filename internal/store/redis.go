package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"thought-stream-go/internal/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	thoughtIDKey     = "thought:next_id"
	thoughtTimeline  = "thoughts:timeline"
	subscriptionsKey = "push:subscriptions"

	// ThoughtEventsChannel carries every new thought as JSON.
	ThoughtEventsChannel = "thought_events"
)

type RedisStore struct {
	client *redis.Client
	log    *zap.Logger
	now    func() time.Time
}

func NewRedisStore(opts *redis.Options, log *zap.Logger) *RedisStore {
	rdb := redis.NewClient(opts)
	return &RedisStore{client: rdb, log: log.Named("store.redis"), now: time.Now}
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) AddThought(ctx context.Context, text string) (models.Thought, error) {
	id, err := s.client.Incr(ctx, thoughtIDKey).Result()
	if err != nil {
		return models.Thought{}, err
	}

	t := models.Thought{Text: text, Timestamp: s.now().UTC()}
	data, err := json.Marshal(t)
	if err != nil {
		return models.Thought{}, err
	}

	key := fmt.Sprintf("thought:%d", id)

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, key, data, 0)
	// Score by id so insertion order wins over clock skew.
	pipe.ZAdd(ctx, thoughtTimeline, redis.Z{
		Score:  float64(id),
		Member: key,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return models.Thought{}, err
	}

	if err := s.client.Publish(ctx, ThoughtEventsChannel, data).Err(); err != nil {
		s.log.Warn("failed to publish thought event", zap.Error(err))
	}

	return t, nil
}

func (s *RedisStore) GetThoughts(ctx context.Context, offset, limit int) ([]models.Thought, int, error) {
	total, err := s.client.ZCard(ctx, thoughtTimeline).Result()
	if err != nil {
		return nil, 0, err
	}
	start, end := window(int(total), offset, limit)
	if start >= end {
		return []models.Thought{}, int(total), nil
	}

	keys, err := s.client.ZRevRange(ctx, thoughtTimeline, int64(start), int64(end-1)).Result()
	if err != nil {
		return nil, 0, err
	}
	if len(keys) == 0 {
		return []models.Thought{}, int(total), nil
	}

	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, 0, err
	}

	thoughts := make([]models.Thought, 0, len(vals))
	for i, val := range vals {
		str, ok := val.(string)
		if !ok {
			s.log.Warn("thought missing from timeline", zap.String("key", keys[i]))
			continue
		}
		var t models.Thought
		if err := json.Unmarshal([]byte(str), &t); err != nil {
			return nil, 0, fmt.Errorf("decode %s: %w", keys[i], err)
		}
		thoughts = append(thoughts, t)
	}
	return thoughts, int(total), nil
}

func (s *RedisStore) SaveSubscription(ctx context.Context, sub models.PushSubscription) error {
	data, err := json.Marshal(sub)
	if err != nil {
		return err
	}
	return s.client.HSet(ctx, subscriptionsKey, sub.ID, data).Err()
}

func (s *RedisStore) GetSubscription(ctx context.Context, id string) (models.PushSubscription, bool, error) {
	val, err := s.client.HGet(ctx, subscriptionsKey, id).Result()
	if errors.Is(err, redis.Nil) {
		return models.PushSubscription{}, false, nil
	}
	if err != nil {
		return models.PushSubscription{}, false, err
	}
	var sub models.PushSubscription
	if err := json.Unmarshal([]byte(val), &sub); err != nil {
		return models.PushSubscription{}, false, fmt.Errorf("decode subscription %s: %w", id, err)
	}
	return sub, true, nil
}

func (s *RedisStore) GetSubscriptions(ctx context.Context) ([]models.PushSubscription, error) {
	all, err := s.client.HGetAll(ctx, subscriptionsKey).Result()
	if err != nil {
		return nil, err
	}
	subs := make([]models.PushSubscription, 0, len(all))
	for id, val := range all {
		var sub models.PushSubscription
		if err := json.Unmarshal([]byte(val), &sub); err != nil {
			return nil, fmt.Errorf("decode subscription %s: %w", id, err)
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

func (s *RedisStore) DeleteSubscription(ctx context.Context, id string) error {
	return s.client.HDel(ctx, subscriptionsKey, id).Err()
}

// SubscribeThoughts listens for new thoughts. The subscription is confirmed
// before returning, so no event published afterwards is missed.
func (s *RedisStore) SubscribeThoughts(ctx context.Context) (*redis.PubSub, error) {
	ps := s.client.Subscribe(ctx, ThoughtEventsChannel)
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, err
	}
	return ps, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
