package appointment

import (
	"context"
	"fmt"
	"sync"
)

// StatusRegistry caches the appointment status rows loaded at startup.
// Status reference data changes only via migrations, so a one-shot load
// keeps hot-path validation free of extra queries.
type StatusRegistry struct {
	mu     sync.RWMutex
	byName map[string]Status
	active []string
}

func NewStatusRegistry() *StatusRegistry {
	return &StatusRegistry{byName: make(map[string]Status)}
}

// Load pulls all statuses from the repository and indexes them by name.
func (r *StatusRegistry) Load(ctx context.Context, repo Repository) error {
	statuses, err := repo.ListStatuses(ctx)
	if err != nil {
		return fmt.Errorf("load appointment statuses: %w", err)
	}

	byName := make(map[string]Status, len(statuses))
	var active []string
	for _, s := range statuses {
		byName[s.Name] = s
		if s.IsActive() {
			active = append(active, s.Name)
		}
	}

	r.mu.Lock()
	r.byName = byName
	r.active = active
	r.mu.Unlock()
	return nil
}

// Put records a single status, used when one is lazily created mid-booking.
func (r *StatusRegistry) Put(s Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byName[s.Name] = s
	if s.IsActive() {
		for _, name := range r.active {
			if name == s.Name {
				return
			}
		}
		r.active = append(r.active, s.Name)
	}
}

// Get returns the status with the given name, if loaded.
func (r *StatusRegistry) Get(name string) (Status, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byName[name]
	return s, ok
}

// ActiveNames returns the names of statuses that hold a slot. When the
// registry has no active statuses on record it falls back to the two
// seeded names, so an unmigrated statuses table cannot disable conflict
// checks entirely.
func (r *StatusRegistry) ActiveNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.active) == 0 {
		return []string{StatusScheduled, StatusConfirmed}
	}
	out := make([]string, len(r.active))
	copy(out, r.active)
	return out
}
