package storage

import (
	"context"
	"errors"
	"sync"
	"time"
)

// MemoryStore keeps tokens in process memory. It serves deployments without
// a DATABASE_URL; tokens are lost on restart and users re-authenticate.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]TokenRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]TokenRecord)}
}

func (s *MemoryStore) Upsert(_ context.Context, record TokenRecord) error {
	if record.Identity == "" {
		return errors.New("identity is required")
	}
	now := time.Now().UTC()
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.records[record.Identity]; ok {
		record.CreatedAt = existing.CreatedAt
	} else if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	s.records[record.Identity] = record
	return nil
}

func (s *MemoryStore) Get(_ context.Context, identity string) (*TokenRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[identity]
	if !ok {
		return nil, nil
	}
	copied := record
	copied.Scopes = append([]string(nil), record.Scopes...)
	return &copied, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
