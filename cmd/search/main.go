package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"hotel_bookings/internal/adapters/hotelapi"
	"hotel_bookings/internal/adapters/memstore"
	"hotel_bookings/internal/adapters/observability"
	"hotel_bookings/internal/app"
	"hotel_bookings/internal/domain"
	"hotel_bookings/internal/shared"
)

// search runs the listing pipeline from the command line, one search per
// destination, and logs every hotel that survives the filters.
func main() {
	var (
		dests    = flag.String("destinations", "", "comma-separated destinations (empty: no destination filter)")
		adults   = flag.Int("adults", 1, "adults")
		children = flag.Int("children", 0, "children")
		occ      = flag.Int("occupancy", 0, "minimum occupancy (0: any)")
		minPrice = flag.Float64("min-price", -1, "minimum nightly rate (<0: unbounded)")
		maxPrice = flag.Float64("max-price", -1, "maximum nightly rate (<0: unbounded)")
		sortFlag = flag.String("sort", "asc", "asc|desc|none")
		workers  = flag.Int("workers", 4, "concurrent searches")
	)
	flag.Parse()

	cfg := shared.Load()
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	base := domain.Constraints{Adults: domain.Some(*adults), Children: domain.Some(*children)}
	if *occ > 0 {
		base.Occupancy = domain.Some(*occ)
	}
	if *minPrice >= 0 {
		base.MinPrice = domain.Some(*minPrice)
	}
	if *maxPrice >= 0 {
		base.MaxPrice = domain.Some(*maxPrice)
	}
	if *sortFlag != "none" {
		so, err := domain.ParseSortOrder(*sortFlag)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid -sort (use asc, desc or none)")
		}
		base.Sort = domain.Some(so)
	}

	client, err := hotelapi.New(cfg.HotelsAPIBase, cfg.HotelsAPIKey, cfg.HotelsAPIRPS, cfg.HotelsAPITimeout)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize hotels API client")
	}
	listing := app.NewListingService(client, memstore.New(0), nil, *workers, cfg.HotelsAPITimeout)
	defer listing.Close()

	destinations := []string{""}
	if strings.TrimSpace(*dests) != "" {
		destinations = strings.Split(*dests, ",")
	}

	log.Info().
		Str("base", cfg.HotelsAPIBase).
		Int("workers", *workers).
		Int("searches", len(destinations)).
		Msg("search starting")

	sem := semaphore.NewWeighted(int64(max(*workers, 1)))
	var wg sync.WaitGroup

	for _, d := range destinations {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			log.Warn().Err(err).Msg("search interrupted")
			break
		}

		c := base
		if d = strings.TrimSpace(d); d != "" {
			c.Destination = domain.Some(d)
		}

		wg.Add(1)
		go func(dest string, c domain.Constraints) {
			defer wg.Done()
			defer sem.Release(1)

			hotels, err := listing.Query(ctx, c)
			if err != nil {
				log.Warn().Str("destination", dest).Err(err).Msg("search failed")
				return
			}
			for _, h := range hotels {
				log.Info().
					Str("destination", dest).
					Int64("id", h.ID).
					Str("name", h.Attrs.Name).
					Float64("rate", h.Attrs.NightlyRate).
					Int("occupancy", h.Attrs.Occupancy).
					Msg("hotel")
			}
			log.Info().Str("destination", dest).Int("count", len(hotels)).Msg("search ok")
		}(d, c)
	}

	wg.Wait()
	log.Info().Msg("search completed")
}
