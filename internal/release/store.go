package release

import "sync"

// Store is the persistence collaborator for release workflows, keyed by
// release id.
type Store interface {
	Put(wf *Workflow) error
	Get(releaseID string) (*Workflow, bool)
	List() []*Workflow
}

// MemoryStore is the in-process workflow store. Tests instantiate one per
// case; production wiring may swap in the Supabase-backed store.
type MemoryStore struct {
	mu        sync.RWMutex
	workflows map[string]*Workflow
	order     []string
}

// NewMemoryStore creates an empty workflow store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{workflows: make(map[string]*Workflow)}
}

// Put inserts or replaces the workflow for wf.Request.ReleaseID.
func (s *MemoryStore) Put(wf *Workflow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := wf.Request.ReleaseID
	if _, exists := s.workflows[id]; !exists {
		s.order = append(s.order, id)
	}
	s.workflows[id] = wf.clone()
	return nil
}

// Get returns a copy of the workflow for releaseID.
func (s *MemoryStore) Get(releaseID string) (*Workflow, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	wf, ok := s.workflows[releaseID]
	if !ok {
		return nil, false
	}
	return wf.clone(), true
}

// List returns all workflows in creation order.
func (s *MemoryStore) List() []*Workflow {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Workflow, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.workflows[id].clone())
	}
	return out
}
