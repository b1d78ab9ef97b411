package domain

import "time"

// ViewState is everything the listing page of one browser client shows.
// Latest is the newest search generation started; Settled the newest one
// that finished (successfully or not) while still being the latest.
type ViewState struct {
	ClientID    string      `json:"client_id"`
	Constraints Constraints `json:"constraints"`
	Hotels      []Hotel     `json:"hotels"`
	Latest      int64       `json:"latest"`
	Settled     int64       `json:"settled"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

func (v ViewState) Loading() bool { return v.Latest != v.Settled }

// Started reports whether any search was ever issued for this client.
func (v ViewState) Started() bool { return v.Latest > 0 }

type Kind int

const (
	KindLoading Kind = iota
	KindEmpty
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindLoading:
		return "loading"
	case KindEmpty:
		return "empty"
	default:
		return "list"
	}
}

// ViewKind picks exactly one of the three listing views.
func ViewKind(v ViewState) Kind {
	switch {
	case v.Loading():
		return KindLoading
	case len(v.Hotels) == 0:
		return KindEmpty
	default:
		return KindList
	}
}
