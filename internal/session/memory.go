package session

import "sync"

// MemoryStore keeps the credential for the lifetime of the process.
type MemoryStore struct {
	mu         sync.RWMutex
	credential string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Get() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.credential, nil
}

func (s *MemoryStore) Set(credential string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.credential = credential
	return nil
}

func (s *MemoryStore) Clear() error {
	return s.Set("")
}
