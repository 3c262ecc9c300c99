package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	"thought-stream-go/internal/models"

	_ "github.com/lib/pq"
)

//go:embed schema.sql
var schemaSQL string

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// RunMigrations creates tables if they don't exist and applies schema updates
func (s *PostgresStore) RunMigrations(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return err
	}

	migrations := []string{
		`CREATE INDEX IF NOT EXISTS thoughts_created_at_idx ON thoughts (created_at DESC);`,
	}
	for _, migration := range migrations {
		if _, err := s.db.ExecContext(ctx, migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// Thought methods

func (s *PostgresStore) AddThought(ctx context.Context, text string) (models.Thought, error) {
	t := models.Thought{Text: text}
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO thoughts (text, created_at) VALUES ($1, NOW()) RETURNING created_at`,
		text,
	).Scan(&t.Timestamp)
	if err != nil {
		return models.Thought{}, err
	}
	t.Timestamp = t.Timestamp.UTC()
	return t, nil
}

func (s *PostgresStore) GetThoughts(ctx context.Context, offset, limit int) ([]models.Thought, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM thoughts`).Scan(&total); err != nil {
		return nil, 0, err
	}
	start, end := window(total, offset, limit)
	if start >= end {
		return []models.Thought{}, total, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT text, created_at FROM thoughts ORDER BY id DESC LIMIT $1 OFFSET $2`,
		end-start, start,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	thoughts := make([]models.Thought, 0, end-start)
	for rows.Next() {
		var t models.Thought
		if err := rows.Scan(&t.Text, &t.Timestamp); err != nil {
			return nil, 0, err
		}
		t.Timestamp = t.Timestamp.UTC()
		thoughts = append(thoughts, t)
	}
	return thoughts, total, rows.Err()
}

// Subscription methods

func (s *PostgresStore) SaveSubscription(ctx context.Context, sub models.PushSubscription) error {
	var expiration sql.NullInt64
	if sub.ExpirationTime != nil {
		expiration = sql.NullInt64{Int64: *sub.ExpirationTime, Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO push_subscriptions (id, endpoint, p256dh, auth, expiration_time, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NOW())
		 ON CONFLICT (id) DO UPDATE SET
		   endpoint = EXCLUDED.endpoint,
		   p256dh = EXCLUDED.p256dh,
		   auth = EXCLUDED.auth,
		   expiration_time = EXCLUDED.expiration_time,
		   created_at = EXCLUDED.created_at,
		   updated_at = NOW()`,
		sub.ID, sub.Endpoint, sub.Keys.P256dh, sub.Keys.Auth, expiration, sub.CreatedAt,
	)
	return err
}

func (s *PostgresStore) GetSubscription(ctx context.Context, id string) (models.PushSubscription, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, endpoint, p256dh, auth, expiration_time, created_at FROM push_subscriptions WHERE id = $1`,
		id,
	)
	sub, err := scanSubscription(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.PushSubscription{}, false, nil
	}
	if err != nil {
		return models.PushSubscription{}, false, err
	}
	return sub, true, nil
}

func (s *PostgresStore) GetSubscriptions(ctx context.Context) ([]models.PushSubscription, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, endpoint, p256dh, auth, expiration_time, created_at FROM push_subscriptions ORDER BY id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	subs := []models.PushSubscription{}
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

func (s *PostgresStore) DeleteSubscription(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM push_subscriptions WHERE id = $1`, id)
	return err
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubscription(row rowScanner) (models.PushSubscription, error) {
	var sub models.PushSubscription
	var expiration sql.NullInt64
	err := row.Scan(&sub.ID, &sub.Endpoint, &sub.Keys.P256dh, &sub.Keys.Auth, &expiration, &sub.CreatedAt)
	if err != nil {
		return models.PushSubscription{}, err
	}
	if expiration.Valid {
		v := expiration.Int64
		sub.ExpirationTime = &v
	}
	sub.CreatedAt = sub.CreatedAt.UTC()
	return sub, nil
}
