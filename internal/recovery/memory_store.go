package recovery

import (
	"context"
	"sync"
)

// MemoryStore keeps codes in process memory; they are lost on restart
type MemoryStore struct {
	mu    sync.Mutex
	codes map[string]Code
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{codes: make(map[string]Code)}
}

func (s *MemoryStore) Put(_ context.Context, c Code) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[c.Email] = c
	return nil
}

func (s *MemoryStore) Get(_ context.Context, email string) (*Code, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.codes[email]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (s *MemoryStore) Consume(_ context.Context, email, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.codes[email]
	if !ok || c.Code != code {
		return false, nil
	}
	delete(s.codes, email)
	return true, nil
}
