package localstore

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
)

// MemStore keeps values in process memory. Used by tests and as the
// null backend when no database path is configured.
type MemStore struct {
	mu   sync.Mutex
	data map[string]json.RawMessage
}

func NewMemStore() *MemStore {
	return &MemStore{data: map[string]json.RawMessage{}}
}

func (s *MemStore) Read(ctx context.Context, key string) (json.RawMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, ok := s.data[key]
	if !ok {
		return nil, false
	}
	if !json.Valid(raw) {
		slog.WarnContext(ctx, "Stored value is not valid JSON, treating as absent",
			slog.String("key", key),
			slog.String("module", "localstore"),
		)
		return nil, false
	}
	out := make(json.RawMessage, len(raw))
	copy(out, raw)
	return out, true
}

func (s *MemStore) Write(_ context.Context, key string, value any) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = encoded
	return nil
}

func (s *MemStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// Raw exposes the stored bytes for a key. Test helper.
func (s *MemStore) Raw(key string) (json.RawMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.data[key]
	return raw, ok
}

// Corrupt overwrites a key with non-JSON bytes. Test helper.
func (s *MemStore) Corrupt(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = json.RawMessage("{not json")
}
