package httpserver

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"hotel_bookings/internal/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// DetailsPath is the navigation target of a listed hotel.
func DetailsPath(id int64) string { return "/hotel/" + strconv.FormatInt(id, 10) }

// Renderer turns view states into HTML pages.
type Renderer struct {
	pages map[string]*template.Template
}

func NewRenderer() (*Renderer, error) {
	r := &Renderer{pages: make(map[string]*template.Template)}
	for _, page := range []string{"listing", "details", "error"} {
		t, err := template.New(page).ParseFS(templateFS, "templates/layout.html", "templates/"+page+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", page, err)
		}
		r.pages[page] = t
	}
	return r, nil
}

func staticHandler() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err) // embedded at build time
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}

type hotelCard struct {
	ID         int64
	Href       string
	Name       string
	Address    string
	Rating     int
	Stars      string
	Rate       string
	Image      string
	MealPlan   string
	Highlights []string
	Occupancy  int
}

func newHotelCard(h domain.Hotel) hotelCard {
	a := h.Attrs
	c := hotelCard{
		ID:         h.ID,
		Href:       DetailsPath(h.ID),
		Name:       a.Name,
		Address:    a.Address,
		Rating:     a.Rating,
		Stars:      stars(a.Rating),
		Rate:       money(a.NightlyRate),
		MealPlan:   a.MealPlan,
		Highlights: append(append([]string(nil), a.Highlights1...), a.Highlights2...),
		Occupancy:  a.Occupancy,
	}
	if len(a.Gallery) > 0 {
		c.Image = a.Gallery[0]
	}
	if c.Name == "" {
		c.Name = "Hotel #" + strconv.FormatInt(h.ID, 10)
	}
	return c
}

func stars(rating int) string {
	if rating < 0 {
		rating = 0
	}
	if rating > 5 {
		rating = 5
	}
	return strings.Repeat("★", rating) + strings.Repeat("☆", 5-rating)
}

func money(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }

type listingPage struct {
	Title   string
	Refresh bool
	Form    formValues
	Kind    string
	Hotels  []hotelCard
}

type detailsPage struct {
	Title       string
	Refresh     bool
	Hotel       hotelCard
	Gallery     []string
	Description string
	Amenities   []string
}

type errorPage struct {
	Title   string
	Refresh bool
	Heading string
	Message string
}

func (r *Renderer) Listing(w http.ResponseWriter, v domain.ViewState) {
	kind := domain.ViewKind(v)
	p := listingPage{
		Title:   "Hotel Bookings",
		Refresh: kind == domain.KindLoading,
		Form:    newFormValues(v.Constraints),
		Kind:    kind.String(),
	}
	if kind == domain.KindList {
		p.Hotels = make([]hotelCard, 0, len(v.Hotels))
		for _, h := range v.Hotels {
			p.Hotels = append(p.Hotels, newHotelCard(h))
		}
	}
	r.render(w, http.StatusOK, "listing", p)
}

func (r *Renderer) Details(w http.ResponseWriter, h domain.Hotel) {
	card := newHotelCard(h)
	r.render(w, http.StatusOK, "details", detailsPage{
		Title:       card.Name + " | Hotel Bookings",
		Hotel:       card,
		Gallery:     h.Attrs.Gallery,
		Description: h.Attrs.Description,
		Amenities:   h.Attrs.Amenities,
	})
}

func (r *Renderer) Error(w http.ResponseWriter, status int, heading, msg string) {
	r.render(w, status, "error", errorPage{Title: heading, Heading: heading, Message: msg})
}

// render executes into a buffer first so a template error never leaves a
// half-written page behind.
func (r *Renderer) render(w http.ResponseWriter, status int, page string, data any) {
	var buf bytes.Buffer
	if err := r.pages[page].ExecuteTemplate(&buf, "layout", data); err != nil {
		log.Error().Err(err).Str("page", page).Msg("render failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		log.Error().Err(err).Str("page", page).Msg("failed to write page")
	}
}
