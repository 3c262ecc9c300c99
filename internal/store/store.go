// Package store persists the thought log and the push subscriptions.
//
// Three backends implement Store: a JSON file store (the default), Redis and
// PostgreSQL. Absent records are reported as (zero, false, nil); only I/O and
// decoding failures are returned as errors.
package store

import (
	"context"
	"fmt"

	"thought-stream-go/internal/config"
	"thought-stream-go/internal/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ThoughtStore handles the thought log, newest first.
type ThoughtStore interface {
	AddThought(ctx context.Context, text string) (models.Thought, error)
	GetThoughts(ctx context.Context, offset, limit int) ([]models.Thought, int, error)
}

// SubscriptionStore handles push subscriptions keyed by their ID.
type SubscriptionStore interface {
	SaveSubscription(ctx context.Context, sub models.PushSubscription) error
	GetSubscription(ctx context.Context, id string) (models.PushSubscription, bool, error)
	GetSubscriptions(ctx context.Context) ([]models.PushSubscription, error)
	DeleteSubscription(ctx context.Context, id string) error
}

type Store interface {
	ThoughtStore
	SubscriptionStore
	Close() error
}

// FromConfig opens the backend selected by cfg.StoreBackend.
func FromConfig(ctx context.Context, cfg *config.Config, log *zap.Logger) (Store, error) {
	switch cfg.StoreBackend {
	case config.BackendFile:
		return NewFileStore(cfg.DataDir)
	case config.BackendRedis:
		s := NewRedisStore(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, log)
		if err := s.Ping(ctx); err != nil {
			s.Close()
			return nil, fmt.Errorf("connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		return s, nil
	case config.BackendPostgres:
		s, err := NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := s.RunMigrations(ctx); err != nil {
			s.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}
