package challenge

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a process-scoped mirror: it survives nothing beyond the
// process, which is the desired lifetime for single-process hosts (the
// volatile, tab-scoped analogue). Safe for concurrent use.
type MemoryStore struct {
	mu sync.Mutex
	c  Challenge

	now func() time.Time
}

// NewMemoryStore returns an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now}
}

// Save replaces the stored challenge.
func (s *MemoryStore) Save(_ context.Context, c Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.c = c
	return nil
}

// Load returns the stored challenge unless it is empty or expired. An
// expired record is dropped on read.
func (s *MemoryStore) Load(_ context.Context) (Challenge, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c.Empty() {
		return Challenge{}, false, nil
	}
	if s.c.Expired(s.now()) {
		s.c = Challenge{}
		return Challenge{}, false, nil
	}
	return s.c, true, nil
}

// Clear removes the stored challenge.
func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.c = Challenge{}
	return nil
}
