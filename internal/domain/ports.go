package domain

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("not found")

// HotelAPI is the remote listing endpoint. Records come back as raw
// payload maps; mapping to Hotel happens in the app layer.
type HotelAPI interface {
	ListHotels(ctx context.Context, c Constraints) ([]map[string]any, error)
}

// ViewStore keeps one ViewState per browser client and enforces the
// generation guard: only the latest generation may settle.
type ViewStore interface {
	// Begin starts a new generation, records the constraints and returns
	// the generation number.
	Begin(ctx context.Context, clientID string, c Constraints) (int64, error)
	// Commit replaces the result set if gen is still the latest.
	Commit(ctx context.Context, clientID string, gen int64, hotels []Hotel) (bool, error)
	// Abort settles gen without touching the result set if gen is still the latest.
	Abort(ctx context.Context, clientID string, gen int64) (bool, error)
	Load(ctx context.Context, clientID string) (ViewState, error)
}

// SearchLog records settled searches and fetch failures.
type SearchLog interface {
	LogSearch(ctx context.Context, e SearchEvent) error
	LogFetchFailure(ctx context.Context, clientID string, reason string) error
}

// SearchHistory reads the audit log back.
type SearchHistory interface {
	RecentSearches(ctx context.Context, clientID string, limit int) ([]SearchRecord, error)
}

type SearchEvent struct {
	ClientID    string
	Constraints Constraints
	Fetched     int
	Shown       int
	Duration    time.Duration
}

// SearchRecord is one audit log row as read back.
type SearchRecord struct {
	ID          int64         `json:"id"`
	ClientID    string        `json:"client_id"`
	Destination *string       `json:"destination,omitempty"`
	Constraints Constraints   `json:"constraints"`
	Fetched     int           `json:"fetched"`
	Shown       int           `json:"shown"`
	Duration    time.Duration `json:"duration_ns"`
	CreatedAt   time.Time     `json:"created_at"`
}
