package catalog

import "sync"

// Store keeps the current catalog and hands out private copies of it.
type Store struct {
	mu      sync.RWMutex
	current *Catalog
}

func NewStore(c *Catalog) *Store {
	if c == nil {
		c = &Catalog{}
	}

	return &Store{current: c.Clone()}
}

// Snapshot returns a deep copy that callers may use without locking.
func (s *Store) Snapshot() *Catalog {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.current.Clone()
}

// Replace swaps in a new catalog.
func (s *Store) Replace(c *Catalog) {
	c = c.Clone()

	s.mu.Lock()
	s.current = c
	s.mu.Unlock()
}
