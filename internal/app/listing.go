package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"hotel_bookings/internal/adapters/observability"
	"hotel_bookings/internal/domain"
)

var errSuperseded = errors.New("search superseded by a newer one")

type inflight struct {
	gen     int64
	started time.Time
	cancel  context.CancelCauseFunc
}

// ListingService runs searches for browser clients: fetch from the listing
// endpoint, refine, and settle the client's view state.
type ListingService struct {
	api     domain.HotelAPI
	store   domain.ViewStore
	audit   domain.SearchLog // optional
	sem     *semaphore.Weighted
	timeout time.Duration

	base context.Context
	stop context.CancelFunc

	mu       sync.Mutex
	inflight map[string]inflight
}

func NewListingService(api domain.HotelAPI, store domain.ViewStore, audit domain.SearchLog, concurrency int, timeout time.Duration) *ListingService {
	if concurrency <= 0 {
		concurrency = 16
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	base, stop := context.WithCancel(context.Background())
	return &ListingService{
		api:      api,
		store:    store,
		audit:    audit,
		sem:      semaphore.NewWeighted(int64(concurrency)),
		timeout:  timeout,
		base:     base,
		stop:     stop,
		inflight: make(map[string]inflight),
	}
}

// Close cancels every background search.
func (s *ListingService) Close() { s.stop() }

// Search runs one search to completion and returns the client's view state
// afterwards. A fetch error is returned alongside the (unchanged) state.
func (s *ListingService) Search(ctx context.Context, clientID string, c domain.Constraints) (domain.ViewState, error) {
	gen, err := s.begin(ctx, clientID, c)
	if err != nil {
		return domain.ViewState{}, err
	}
	ferr := s.run(ctx, clientID, gen, c)
	v, err := s.store.Load(context.WithoutCancel(ctx), clientID)
	if err != nil {
		return domain.ViewState{}, fmt.Errorf("load view: %w", err)
	}
	return v, ferr
}

// Submit starts a search in the background. The generation is registered
// before Submit returns, so a render right after it already shows loading.
// The returned channel closes when the search has settled.
func (s *ListingService) Submit(ctx context.Context, clientID string, c domain.Constraints) (<-chan struct{}, error) {
	gen, err := s.begin(ctx, clientID, c)
	if err != nil {
		return nil, err
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		rctx, cancel := context.WithTimeout(s.base, s.timeout)
		defer cancel()
		if err := s.run(rctx, clientID, gen, c); err != nil {
			log.Debug().Err(err).Str("client", clientID).Int64("gen", gen).Msg("background search ended with error")
		}
	}()
	return done, nil
}

func (s *ListingService) View(ctx context.Context, clientID string) (domain.ViewState, error) {
	return s.store.Load(ctx, clientID)
}

// Hotel finds a record in the client's current result set.
func (s *ListingService) Hotel(ctx context.Context, clientID string, id int64) (domain.Hotel, error) {
	v, err := s.store.Load(ctx, clientID)
	if err != nil {
		return domain.Hotel{}, err
	}
	for _, h := range v.Hotels {
		if h.ID == id {
			return h, nil
		}
	}
	return domain.Hotel{}, domain.ErrNotFound
}

// Query is the stateless fetch + refine used by the JSON API.
func (s *ListingService) Query(ctx context.Context, c domain.Constraints) ([]domain.Hotel, error) {
	hotels, err := s.fetch(ctx, c)
	if err != nil {
		observability.ObserveFetch("error")
		return nil, err
	}
	observability.ObserveFetch("ok")
	return Refine(hotels, c), nil
}

func (s *ListingService) begin(ctx context.Context, clientID string, c domain.Constraints) (int64, error) {
	log.Debug().
		Str("client", clientID).
		Interface("constraints", c).
		Msg("search constraints changed")

	gen, err := s.store.Begin(ctx, clientID, c)
	if err != nil {
		return 0, fmt.Errorf("begin search: %w", err)
	}
	return gen, nil
}

func (s *ListingService) run(ctx context.Context, clientID string, gen int64, c domain.Constraints) error {
	// settle writes must happen even when ctx is already canceled
	sctx := context.WithoutCancel(ctx)

	tctx, tcancel := context.WithTimeout(ctx, s.timeout)
	defer tcancel()
	fctx, cancel := context.WithCancelCause(tctx)
	defer cancel(nil)
	s.track(clientID, gen, cancel)
	defer s.untrack(clientID, gen)

	committed := false
	defer func() {
		if committed {
			return
		}
		if _, err := s.store.Abort(sctx, clientID, gen); err != nil {
			log.Error().Err(err).Str("client", clientID).Int64("gen", gen).Msg("clear loading failed")
		}
	}()

	start := time.Now()
	hotels, err := s.fetch(fctx, c)
	if err != nil {
		if errors.Is(context.Cause(fctx), errSuperseded) {
			observability.ObserveFetch("superseded")
			return err
		}
		observability.ObserveFetch("error")
		log.Warn().Err(err).Str("client", clientID).Int64("gen", gen).Msg("fetch hotels failed; keeping previous results")
		if s.audit != nil {
			if aerr := s.audit.LogFetchFailure(sctx, clientID, err.Error()); aerr != nil {
				log.Error().Err(aerr).Msg("audit fetch failure")
			}
		}
		return err
	}

	refined := Refine(hotels, c)
	applied, err := s.store.Commit(sctx, clientID, gen, refined)
	if err != nil {
		return fmt.Errorf("commit search: %w", err)
	}
	committed = true
	if !applied {
		observability.ObserveFetch("stale")
		log.Debug().Str("client", clientID).Int64("gen", gen).Msg("stale response discarded")
		return nil
	}
	observability.ObserveFetch("ok")

	if s.audit != nil {
		ev := domain.SearchEvent{
			ClientID:    clientID,
			Constraints: c,
			Fetched:     len(hotels),
			Shown:       len(refined),
			Duration:    time.Since(start),
		}
		if err := s.audit.LogSearch(sctx, ev); err != nil {
			log.Error().Err(err).Msg("audit search")
		}
	}
	return nil
}

func (s *ListingService) fetch(ctx context.Context, c domain.Constraints) ([]domain.Hotel, error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer s.sem.Release(1)

	raw, err := s.api.ListHotels(ctx, c)
	if err != nil {
		return nil, err
	}
	return mapHotels(raw), nil
}

// track registers the in-flight search of a client and cancels whichever of
// the two searches is older. A registered search that began more than one
// fetch timeout ago is past its deadline and always loses: its generation may
// come from before the store dropped the client and restarted counting.
func (s *ListingService) track(clientID string, gen int64, cancel context.CancelCauseFunc) {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.inflight[clientID]; ok {
		if prev.gen > gen && now.Sub(prev.started) < s.timeout {
			cancel(errSuperseded)
			return
		}
		prev.cancel(errSuperseded)
	}
	s.inflight[clientID] = inflight{gen: gen, started: now, cancel: cancel}
}

func (s *ListingService) untrack(clientID string, gen int64) {
	s.mu.Lock()
	if cur, ok := s.inflight[clientID]; ok && cur.gen == gen {
		delete(s.inflight, clientID)
	}
	s.mu.Unlock()
}
