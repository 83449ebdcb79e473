package history

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// inMemoryCap bounds how many records the in-process store keeps.
const inMemoryCap = 512

// InMemoryStore keeps the most recent translations in process memory. Used
// when no database is configured.
type InMemoryStore struct {
	mu      sync.RWMutex
	records []Record
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Save(_ context.Context, record Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	s.records = append(s.records, record)
	if len(s.records) > inMemoryCap {
		s.records = s.records[len(s.records)-inMemoryCap:]
	}
	return nil
}

func (s *InMemoryStore) Recent(_ context.Context, sessionID string, limit int) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]Record, 0, limit)
	for _, r := range s.records {
		if sessionID == "" || r.SessionID == sessionID {
			matched = append(matched, r)
		}
	}
	if limit <= 0 || limit > len(matched) {
		limit = len(matched)
	}
	return matched[len(matched)-limit:], nil
}

func (s *InMemoryStore) Close() error { return nil }
