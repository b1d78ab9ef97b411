package hotelapi_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"hotel_bookings/internal/adapters/hotelapi"
	"hotel_bookings/internal/domain"
)

func TestClient_ListHotels_SendsConstraints(t *testing.T) {
	var gotPath, gotQuery string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		_ = json.NewEncoder(w).Encode([]map[string]any{
			{"id": 1, "acf": map[string]any{"hotel_name": "A"}},
		})
	}))
	defer ts.Close()

	cl, err := hotelapi.New(ts.URL, "", 100, time.Second)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	c := domain.Constraints{
		Destination: domain.Some("Goa"),
		Adults:      domain.Some(2),
		Children:    domain.Some(0),
		MaxPrice:    domain.Some(150.5),
		Sort:        domain.Some(domain.SortDesc),
	}
	got, err := cl.ListHotels(context.Background(), c)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("unexpected payload: %+v", got)
	}
	if gotPath != "/api/hotels" {
		t.Fatalf("path = %q", gotPath)
	}
	want := "adults=2&children=0&destination=Goa&maxPrice=150.5&sortOrder=desc"
	if gotQuery != want {
		t.Fatalf("query = %q, want %q", gotQuery, want)
	}
}

func TestClient_ListHotels_RetriesThenSuccess(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch atomic.AddInt32(&hits, 1) {
		case 1, 2:
			// two transient failures
			w.WriteHeader(503)
		default:
			w.WriteHeader(200)
			_, _ = w.Write([]byte(`[]`))
		}
	}))
	defer ts.Close()

	cl, err := hotelapi.New(ts.URL, "k", 100, time.Second)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if _, err := cl.ListHotels(ctx, domain.Constraints{}); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if atomic.LoadInt32(&hits) < 3 {
		t.Fatalf("expected at least 3 calls due to retries, got %d", hits)
	}
}

func TestClient_ListHotels_404(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	defer ts.Close()

	cl, _ := hotelapi.New(ts.URL, "", 100, time.Second)
	_, err := cl.ListHotels(context.Background(), domain.Constraints{})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestClient_ListHotels_BadJSON(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"not":"an array"`))
	}))
	defer ts.Close()

	cl, _ := hotelapi.New(ts.URL, "", 100, time.Second)
	if _, err := cl.ListHotels(context.Background(), domain.Constraints{}); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestNew_RejectsBadBase(t *testing.T) {
	if _, err := hotelapi.New("localhost:3001", "", 1, 0); err == nil {
		t.Fatalf("expected error for base without scheme")
	}
}
