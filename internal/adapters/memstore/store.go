package memstore

import (
	"context"
	"sync"
	"time"

	"hotel_bookings/internal/adapters/observability"
	"hotel_bookings/internal/domain"
)

type entry struct {
	view     domain.ViewState
	lastSeen time.Time
}

// Store keeps view states in process memory. Good for a single replica.
type Store struct {
	mu   sync.Mutex
	m    map[string]*entry
	now  func() time.Time
	idle time.Duration
}

func New(idle time.Duration) *Store {
	return &Store{m: make(map[string]*entry), now: time.Now, idle: idle}
}

func (s *Store) get(clientID string) *entry {
	e, ok := s.m[clientID]
	if !ok {
		e = &entry{view: domain.ViewState{ClientID: clientID}}
		s.m[clientID] = e
	}
	e.lastSeen = s.now()
	return e
}

func (s *Store) Begin(_ context.Context, clientID string, c domain.Constraints) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.get(clientID)
	e.view.Latest++
	e.view.Constraints = c
	observability.ObserveStore("memory", "begin")
	return e.view.Latest, nil
}

func (s *Store) Commit(_ context.Context, clientID string, gen int64, hotels []domain.Hotel) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.get(clientID)
	if gen != e.view.Latest {
		observability.ObserveStore("memory", "stale")
		return false, nil
	}
	e.view.Hotels = domain.CopyHotels(hotels)
	e.view.Settled = gen
	e.view.UpdatedAt = s.now()
	observability.ObserveStore("memory", "commit")
	return true, nil
}

func (s *Store) Abort(_ context.Context, clientID string, gen int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.get(clientID)
	if gen != e.view.Latest {
		return false, nil
	}
	e.view.Settled = gen
	observability.ObserveStore("memory", "abort")
	return true, nil
}

func (s *Store) Load(_ context.Context, clientID string) (domain.ViewState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.m[clientID]
	if !ok {
		return domain.ViewState{ClientID: clientID}, nil
	}
	e.lastSeen = s.now()
	v := e.view
	v.Hotels = domain.CopyHotels(e.view.Hotels)
	return v, nil
}

// Sweep drops clients that have not been seen for longer than the idle TTL
// and returns how many were dropped.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.now().Add(-s.idle)
	n := 0
	for id, e := range s.m {
		if e.lastSeen.Before(cutoff) {
			delete(s.m, id)
			n++
		}
	}
	return n
}

// Run sweeps every interval until ctx is done.
func (s *Store) Run(ctx context.Context, every time.Duration) error {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			if n := s.Sweep(); n > 0 {
				observability.ObserveStoreN("memory", "evict", n)
			}
		}
	}
}
