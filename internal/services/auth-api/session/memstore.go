package session

import (
	"context"
	"sync"
	"time"

	"github.com/NordCoder/fintrack/internal/domain/session"
)

type memEntry struct {
	value     string
	expiresAt time.Time
}

// MemStore is an in-process session.Store, used by tests and single-node dev runs.
type MemStore struct {
	mu   sync.Mutex
	data map[[2]string]memEntry
	now  func() time.Time
}

func NewMemStore() *MemStore {
	return &MemStore{data: map[[2]string]memEntry{}, now: time.Now}
}

func (s *MemStore) Set(_ context.Context, sid, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[[2]string{sid, key}] = memEntry{value: value, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *MemStore) Take(_ context.Context, sid, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := [2]string{sid, key}
	e, ok := s.data[k]
	delete(s.data, k)
	if !ok || !s.now().Before(e.expiresAt) {
		return "", session.ErrNotFound
	}
	return e.value, nil
}

func (s *MemStore) PurgeExpired(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	now := s.now()
	for k, e := range s.data {
		if !now.Before(e.expiresAt) {
			delete(s.data, k)
			n++
		}
	}
	return n, nil
}
