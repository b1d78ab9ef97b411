package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Opt is a value that is either set or unset.
type Opt[T any] struct {
	v  T
	ok bool
}

func Some[T any](v T) Opt[T] { return Opt[T]{v: v, ok: true} }
func None[T any]() Opt[T]     { return Opt[T]{} }

func (o Opt[T]) Get() (T, bool) { return o.v, o.ok }
func (o Opt[T]) IsSet() bool    { return o.ok }

// Or returns the value, or def when unset.
func (o Opt[T]) Or(def T) T {
	if o.ok {
		return o.v
	}
	return def
}

func (o Opt[T]) MarshalJSON() ([]byte, error) {
	if !o.ok {
		return []byte("null"), nil
	}
	return json.Marshal(o.v)
}

func (o *Opt[T]) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*o = Opt[T]{}
		return nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*o = Some(v)
	return nil
}

type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

func ParseSortOrder(s string) (SortOrder, error) {
	switch SortOrder(strings.ToLower(strings.TrimSpace(s))) {
	case SortAsc:
		return SortAsc, nil
	case SortDesc:
		return SortDesc, nil
	}
	return "", fmt.Errorf("sort order must be %q or %q, got %q", SortAsc, SortDesc, s)
}

// Constraints is the search constraint set selected by the user.
// Dates are carried as entered and never validated.
type Constraints struct {
	Destination Opt[string]    `json:"destination"`
	Adults      Opt[int]       `json:"adults"`
	Children    Opt[int]       `json:"children"`
	CheckIn     Opt[string]    `json:"checkInDate"`
	CheckOut    Opt[string]    `json:"checkOutDate"`
	Occupancy   Opt[int]       `json:"occupancy"`
	MinPrice    Opt[float64]   `json:"minPrice"`
	MaxPrice    Opt[float64]   `json:"maxPrice"`
	Sort        Opt[SortOrder] `json:"sortOrder"`
}

// DefaultConstraints is the constraint set a fresh listing page starts with.
func DefaultConstraints() Constraints {
	return Constraints{
		Adults:    Some(1),
		Children:  Some(0),
		Occupancy: Some(1),
		MinPrice:  Some(0.0),
		MaxPrice:  Some(10000.0),
		Sort:      Some(SortAsc),
	}
}
