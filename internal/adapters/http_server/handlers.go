package httpserver

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"hotel_bookings/internal/app"
	"hotel_bookings/internal/domain"
)

type Handlers struct {
	L       *app.ListingService
	R       *Renderer
	History domain.SearchHistory // nil when the audit log is off
	// Grace is how long a page render waits for a just-submitted search
	// before showing the loading view.
	Grace time.Duration
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Handle("/static/*", staticHandler())
	s.mux.Get("/api/hotels", h.apiHotels)
	s.mux.Group(func(r chi.Router) {
		r.Use(ClientID)
		r.Get("/", h.listing)
		r.Get("/hotel/{id}", h.details)
		r.Get("/api/searches", h.apiSearches)
	})
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

func writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	etag, body := calcETagAndBody(v)
	if body == nil {
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "could not encode response")
		return
	}
	// If client already has this version, short-circuit.
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write JSON body")
	}
}

// listing renders the hotel listing page. A request carrying filter form
// fields (or the very first visit of a client) starts a new search.
func (h *Handlers) listing(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cid := ClientIDFrom(ctx)

	v, err := h.L.View(ctx, cid)
	if err != nil {
		log.Error().Err(err).Str("client", cid).Msg("load view failed")
		h.R.Error(w, http.StatusInternalServerError, "Something went wrong", "Please try again in a moment.")
		return
	}

	q := r.URL.Query()
	if submitted := hasConstraintParams(q); submitted || !v.Started() {
		c := domain.DefaultConstraints()
		if submitted {
			var errs []FieldError
			c, errs = ParseConstraints(q)
			for _, fe := range errs {
				log.Debug().Str("client", cid).Str("field", fe.Field).Str("value", fe.Value).Msg("ignoring malformed filter value")
			}
		}
		done, err := h.L.Submit(ctx, cid, c)
		if err != nil {
			log.Error().Err(err).Str("client", cid).Msg("submit search failed")
			h.R.Error(w, http.StatusInternalServerError, "Something went wrong", "Please try again in a moment.")
			return
		}
		h.await(ctx, done)
		if v, err = h.L.View(ctx, cid); err != nil {
			log.Error().Err(err).Str("client", cid).Msg("load view failed")
			h.R.Error(w, http.StatusInternalServerError, "Something went wrong", "Please try again in a moment.")
			return
		}
	}

	h.R.Listing(w, v)
}

func (h *Handlers) await(ctx context.Context, done <-chan struct{}) {
	if h.Grace <= 0 {
		return
	}
	t := time.NewTimer(h.Grace)
	defer t.Stop()
	select {
	case <-done:
	case <-t.C:
	case <-ctx.Done():
	}
}

func (h *Handlers) details(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.R.Error(w, http.StatusNotFound, "Hotel not found", "That hotel is not part of your current results.")
		return
	}
	hotel, err := h.L.Hotel(r.Context(), ClientIDFrom(r.Context()), id)
	if errors.Is(err, domain.ErrNotFound) {
		h.R.Error(w, http.StatusNotFound, "Hotel not found", "That hotel is not part of your current results.")
		return
	}
	if err != nil {
		log.Error().Err(err).Int64("id", id).Msg("load hotel failed")
		h.R.Error(w, http.StatusInternalServerError, "Something went wrong", "Please try again in a moment.")
		return
	}
	h.R.Details(w, hotel)
}

// apiHotels is the JSON mirror of the listing: fetch, refine, respond.
// Unlike the HTML form it rejects malformed filter values.
func (h *Handlers) apiHotels(w http.ResponseWriter, r *http.Request) {
	c, errs := ParseConstraints(r.URL.Query())
	if len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, fe := range errs {
			msgs[i] = fe.Error()
		}
		writeProblem(w, http.StatusBadRequest, "Invalid filter", strings.Join(msgs, "; "))
		return
	}
	hotels, err := h.L.Query(r.Context(), c)
	if err != nil {
		log.Warn().Err(err).Msg("hotel listing fetch failed")
		writeProblem(w, http.StatusBadGateway, "Upstream Error", "hotel listing is unavailable")
		return
	}
	writeJSON(w, r, hotels)
}

func (h *Handlers) apiSearches(w http.ResponseWriter, r *http.Request) {
	if h.History == nil {
		writeProblem(w, http.StatusNotFound, "Not Found", "search history is disabled")
		return
	}
	limit := 20
	if ls := r.URL.Query().Get("limit"); ls != "" {
		l, err := strconv.Atoi(ls)
		if err != nil || l <= 0 || l > 100 {
			writeProblem(w, http.StatusBadRequest, "Invalid limit", "limit must be an integer between 1 and 100")
			return
		}
		limit = l
	}
	recs, err := h.History.RecentSearches(r.Context(), ClientIDFrom(r.Context()), limit)
	if err != nil {
		log.Error().Err(err).Msg("read search history failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "search history is unavailable")
		return
	}
	if recs == nil {
		recs = []domain.SearchRecord{}
	}
	writeJSON(w, r, recs)
}
