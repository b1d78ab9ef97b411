package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Server is the chi router behind the web frontend. Pages, the JSON API and
// any extra handler (e.g. /metrics) hang off the same mux.
type Server struct{ mux *chi.Mux }

type options struct {
	timeout time.Duration
	access  zerolog.Logger
}

type Option func(*options)

// WithRequestTimeout bounds every request, page renders included. It has to
// stay above the render grace period.
func WithRequestTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithAccessLog sets the logger used for access lines. Defaults to the
// global zerolog logger.
func WithAccessLog(l zerolog.Logger) Option {
	return func(o *options) { o.access = l }
}

func New(opts ...Option) *Server {
	o := options{timeout: 15 * time.Second, access: log.Logger}
	for _, fn := range opts {
		fn(&o)
	}

	m := chi.NewRouter()

	// all middlewares go before any route
	m.Use(chimw.RealIP)
	m.Use(chimw.RequestID)
	m.Use(chimw.Recoverer)
	m.Use(Timeout(o.timeout))
	m.Use(Metrics)
	m.Use(Logger(o.access))

	return &Server{mux: m}
}

func (s *Server) Mux() http.Handler { return s.mux }

// Mount attaches any extra handler (e.g., /metrics) to the router.
func (s *Server) Mount(path string, h http.Handler) {
	s.mux.Handle(path, h)
}
