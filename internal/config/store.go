package config

import "sync"

// Store holds the live configuration shared by the control surface and the
// run pipeline. The surface swaps validated updates in; the pipeline reads
// the current values at run time, so credentials set after boot reach
// subsequent runs.
type Store struct {
	mu  sync.Mutex
	cfg *Config
}

// NewStore creates a store seeded with the boot configuration.
func NewStore(cfg *Config) *Store { return &Store{cfg: cfg} }

// Get returns a clone of the current configuration.
func (s *Store) Get() *Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Clone()
}

// Set replaces the current configuration. Callers validate before swapping.
func (s *Store) Set(cfg *Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
}

// Update applies fn to a clone of the current configuration and swaps the
// result in when fn returns nil. The read-modify-write is atomic, so
// concurrent updates never lose fields.
func (s *Store) Update(fn func(*Config) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.cfg.Clone()
	if err := fn(next); err != nil {
		return err
	}
	s.cfg = next
	return nil
}
