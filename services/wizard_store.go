package services

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// WizardStore keeps in-progress booking wizards in memory, keyed by id.
type WizardStore struct {
	mu      sync.RWMutex
	wizards map[uuid.UUID]*Wizard

	resolver availabilityResolver
	creator  bookingCreator
	now      Clock
}

func NewWizardStore(resolver availabilityResolver, creator bookingCreator, now Clock) *WizardStore {
	if now == nil {
		now = time.Now
	}
	return &WizardStore{
		wizards:  make(map[uuid.UUID]*Wizard),
		resolver: resolver,
		creator:  creator,
		now:      now,
	}
}

func (s *WizardStore) Create() *Wizard {
	w := NewWizard(s.resolver, s.creator, s.now)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.wizards[w.ID()] = w
	return w
}

func (s *WizardStore) Get(id uuid.UUID) (*Wizard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.wizards[id]
	if !ok {
		return nil, notFoundErr("booking wizard not found or expired")
	}
	return w, nil
}

func (s *WizardStore) Delete(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.wizards, id)
}

func (s *WizardStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.wizards)
}

// Sweep drops wizards untouched for longer than maxIdle and returns how
// many were removed. Idle times are read without holding the store lock, so
// a wizard busy in Submit only delays the sweep.
func (s *WizardStore) Sweep(maxIdle time.Duration) int {
	cutoff := s.now().Add(-maxIdle)

	s.mu.RLock()
	all := make([]*Wizard, 0, len(s.wizards))
	for _, w := range s.wizards {
		all = append(all, w)
	}
	s.mu.RUnlock()

	var stale []*Wizard
	for _, w := range all {
		if w.lastTouched().Before(cutoff) {
			stale = append(stale, w)
		}
	}
	if len(stale) == 0 {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for _, w := range stale {
		if cur, ok := s.wizards[w.ID()]; ok && cur == w {
			delete(s.wizards, w.ID())
			removed++
		}
	}
	return removed
}
