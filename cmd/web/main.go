package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"hotel_bookings/internal/adapters/hotelapi"
	server "hotel_bookings/internal/adapters/http_server"
	"hotel_bookings/internal/adapters/memstore"
	"hotel_bookings/internal/adapters/observability"
	redisad "hotel_bookings/internal/adapters/redis"
	"hotel_bookings/internal/app"
	"hotel_bookings/internal/domain"
	"hotel_bookings/internal/shared"
	mysqlrepo "hotel_bookings/internal/storage/mysql"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	client, err := hotelapi.New(cfg.HotelsAPIBase, cfg.HotelsAPIKey, cfg.HotelsAPIRPS, cfg.HotelsAPITimeout)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize hotels API client")
	}

	// view state
	var store domain.ViewStore
	switch cfg.StateBackend {
	case "redis":
		rs := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB, cfg.StateTTL)
		pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := rs.Ping(pctx)
		cancel()
		if err != nil {
			log.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("redis ping failed")
		}
		defer rs.Close()
		store = rs
	default:
		ms := memstore.New(cfg.StateTTL)
		g.Go(func() error { return ms.Run(ctx, time.Minute) })
		store = ms
	}
	log.Info().Str("backend", cfg.StateBackend).Msg("view state store ready")

	// optional search audit log
	var (
		audit   domain.SearchLog
		history domain.SearchHistory
	)
	if cfg.MySQLDSN != "" {
		db, err := mysqlrepo.Open(cfg.MySQLDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("mysql open failed")
		}
		if err := db.PingContext(ctx); err != nil {
			log.Fatal().Err(err).Msg("db.Ping failed")
		}
		defer db.Close()
		log.Info().Msg("database connection ok")
		repo := mysqlrepo.New(db)
		audit, history = repo, repo
	}

	listing := app.NewListingService(client, store, audit, cfg.UpstreamConcurrency, cfg.HotelsAPITimeout)
	defer listing.Close()

	renderer, err := server.NewRenderer()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to parse templates")
	}

	// http
	srv := server.New(server.WithRequestTimeout(cfg.HotelsAPITimeout + cfg.RenderGrace + 5*time.Second))
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{L: listing, R: renderer, History: history, Grace: cfg.RenderGrace})

	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux(), ReadHeaderTimeout: 10 * time.Second}

	g.Go(func() error { return observability.Serve(ctx, cfg.MetricsAddr, reg) })
	g.Go(func() error {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("web listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		listing.Close()
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(sctx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server stopped with error")
		return
	}
	log.Info().Msg("server stopped")
}
