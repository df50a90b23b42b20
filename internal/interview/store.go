package interview

import "sync"

// Store keeps live sessions keyed by call or stream id. Creation is explicit:
// looking up an unknown id fails instead of materializing default state.
type Store interface {
	Get(id string) (*Session, error)
	Create(id, role, jobDescription string) (*Session, error)
	Delete(id string)
}

// MemoryStore is a mutex-guarded in-process Store. Sessions for different
// calls are independent; turns within one call arrive sequentially, so no
// per-session locking is needed beyond the map guard.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*Session)}
}

func (s *MemoryStore) Get(id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

func (s *MemoryStore) Create(id, role, jobDescription string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; ok {
		return nil, ErrSessionExists
	}
	sess := &Session{ID: id, Role: role, JobDescription: jobDescription, Phase: PhaseIntroduction}
	s.sessions[id] = sess
	return sess, nil
}

func (s *MemoryStore) Delete(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}
