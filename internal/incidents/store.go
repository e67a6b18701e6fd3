package incidents

import (
	"sync"
)

// Store is the persistence collaborator for incidents. Implementations
// must preserve append order.
type Store interface {
	Append(inc *Incident) error
	Get(id string) (*Incident, bool)
	List() []*Incident
	Update(inc *Incident) error
}

// MemoryStore is the in-process store. Tests instantiate one per case;
// production wiring may swap in the Supabase-backed store.
type MemoryStore struct {
	mu    sync.RWMutex
	order []*Incident
	byID  map[string]*Incident
}

// NewMemoryStore creates an empty incident store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[string]*Incident)}
}

// Append adds an incident. Append order is the list order.
func (s *MemoryStore) Append(inc *Incident) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *inc
	s.order = append(s.order, &cp)
	s.byID[cp.ID] = &cp
	return nil
}

// Get looks up an incident by id.
func (s *MemoryStore) Get(id string) (*Incident, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inc, ok := s.byID[id]
	if !ok {
		return nil, false
	}
	cp := *inc
	return &cp, true
}

// List returns all incidents in append order.
func (s *MemoryStore) List() []*Incident {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Incident, 0, len(s.order))
	for _, inc := range s.order {
		cp := *inc
		out = append(out, &cp)
	}
	return out
}

// Update replaces the stored record for inc.ID. Used only to annotate
// resolution — incidents are never removed.
func (s *MemoryStore) Update(inc *Incident) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.byID[inc.ID]
	if !ok {
		return nil
	}
	*existing = *inc
	return nil
}
