package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"thought-stream-go/internal/filex"
	"thought-stream-go/internal/models"
)

const (
	thoughtsFile      = "thoughts.json"
	subscriptionsFile = "subscriptions.json"
)

// FileStore keeps thoughts and subscriptions as JSON documents in a
// directory. Every call reads the current file, so the server and the
// reminder tool can share one data directory.
type FileStore struct {
	mu  sync.Mutex
	dir string
	now func() time.Time
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &FileStore{dir: dir, now: time.Now}, nil
}

func (s *FileStore) AddThought(ctx context.Context, text string) (models.Thought, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var thoughts []models.Thought
	if err := s.readJSON(thoughtsFile, &thoughts); err != nil {
		return models.Thought{}, err
	}

	t := models.Thought{Text: text, Timestamp: s.now().UTC()}
	thoughts = append([]models.Thought{t}, thoughts...)

	if err := s.writeJSON(thoughtsFile, thoughts); err != nil {
		return models.Thought{}, err
	}
	return t, nil
}

func (s *FileStore) GetThoughts(ctx context.Context, offset, limit int) ([]models.Thought, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var thoughts []models.Thought
	if err := s.readJSON(thoughtsFile, &thoughts); err != nil {
		return nil, 0, err
	}
	start, end := window(len(thoughts), offset, limit)
	return append([]models.Thought{}, thoughts[start:end]...), len(thoughts), nil
}

func (s *FileStore) SaveSubscription(ctx context.Context, sub models.PushSubscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	subs, err := s.readSubscriptions()
	if err != nil {
		return err
	}
	subs[sub.ID] = sub
	return s.writeJSON(subscriptionsFile, subs)
}

func (s *FileStore) GetSubscription(ctx context.Context, id string) (models.PushSubscription, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	subs, err := s.readSubscriptions()
	if err != nil {
		return models.PushSubscription{}, false, err
	}
	sub, ok := subs[id]
	return sub, ok, nil
}

// GetSubscriptions returns every stored subscription ordered by ID.
func (s *FileStore) GetSubscriptions(ctx context.Context) ([]models.PushSubscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	subs, err := s.readSubscriptions()
	if err != nil {
		return nil, err
	}
	out := make([]models.PushSubscription, 0, len(subs))
	for _, sub := range subs {
		out = append(out, sub)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *FileStore) DeleteSubscription(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	subs, err := s.readSubscriptions()
	if err != nil {
		return err
	}
	if _, ok := subs[id]; !ok {
		return nil
	}
	delete(subs, id)
	return s.writeJSON(subscriptionsFile, subs)
}

func (s *FileStore) Close() error { return nil }

func (s *FileStore) readSubscriptions() (map[string]models.PushSubscription, error) {
	subs := map[string]models.PushSubscription{}
	if err := s.readJSON(subscriptionsFile, &subs); err != nil {
		return nil, err
	}
	if subs == nil {
		subs = map[string]models.PushSubscription{}
	}
	return subs, nil
}

// readJSON leaves v untouched when the file is missing or empty.
func (s *FileStore) readJSON(name string, v any) error {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", name, err)
	}
	return nil
}

func (s *FileStore) writeJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", name, err)
	}
	if err := filex.WriteAtomic(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}
