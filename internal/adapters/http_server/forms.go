package httpserver

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"hotel_bookings/internal/domain"
)

// constraintParams are the query parameter names of the filter form; they
// match the listing endpoint's names.
var constraintParams = []string{
	"destination", "adults", "children", "checkInDate", "checkOutDate",
	"occupancy", "minPrice", "maxPrice", "sortOrder",
}

type FieldError struct {
	Field string
	Value string
	Err   error
}

func (e FieldError) Error() string { return fmt.Sprintf("%s=%q: %v", e.Field, e.Value, e.Err) }

// hasConstraintParams reports whether the request carries a form submission.
func hasConstraintParams(q url.Values) bool {
	for _, k := range constraintParams {
		if _, ok := q[k]; ok {
			return true
		}
	}
	return false
}

// ParseConstraints reads the constraint set from query parameters. Absent or
// blank values are unset. Malformed values are also left unset and reported;
// callers decide whether that is an error.
func ParseConstraints(q url.Values) (domain.Constraints, []FieldError) {
	var (
		c    domain.Constraints
		errs []FieldError
	)
	val := func(k string) (string, bool) {
		s := strings.TrimSpace(q.Get(k))
		return s, s != ""
	}
	text := func(k string) domain.Opt[string] {
		if s, ok := val(k); ok {
			return domain.Some(s)
		}
		return domain.None[string]()
	}
	count := func(k string) domain.Opt[int] {
		s, ok := val(k)
		if !ok {
			return domain.None[int]()
		}
		n, err := strconv.Atoi(s)
		if err == nil && n < 0 {
			err = fmt.Errorf("must not be negative")
		}
		if err != nil {
			errs = append(errs, FieldError{Field: k, Value: s, Err: err})
			return domain.None[int]()
		}
		return domain.Some(n)
	}
	price := func(k string) domain.Opt[float64] {
		s, ok := val(k)
		if !ok {
			return domain.None[float64]()
		}
		f, err := strconv.ParseFloat(s, 64)
		switch {
		case err != nil:
		case math.IsNaN(f) || math.IsInf(f, 0):
			err = fmt.Errorf("must be a finite number")
		case f < 0:
			err = fmt.Errorf("must not be negative")
		}
		if err != nil {
			errs = append(errs, FieldError{Field: k, Value: s, Err: err})
			return domain.None[float64]()
		}
		return domain.Some(f)
	}

	c.Destination = text("destination")
	c.Adults = count("adults")
	c.Children = count("children")
	c.CheckIn = text("checkInDate")
	c.CheckOut = text("checkOutDate")
	c.Occupancy = count("occupancy")
	c.MinPrice = price("minPrice")
	c.MaxPrice = price("maxPrice")
	if s, ok := val("sortOrder"); ok {
		o, err := domain.ParseSortOrder(s)
		if err != nil {
			errs = append(errs, FieldError{Field: "sortOrder", Value: s, Err: err})
		} else {
			c.Sort = domain.Some(o)
		}
	}
	return c, errs
}

// formValues is the constraint set as the filter form displays it.
type formValues struct {
	Destination string
	Adults      string
	Children    string
	CheckIn     string
	CheckOut    string
	Occupancy   string
	MinPrice    string
	MaxPrice    string
	SortDesc    bool
}

func newFormValues(c domain.Constraints) formValues {
	num := func(o domain.Opt[int]) string {
		if n, ok := o.Get(); ok {
			return strconv.Itoa(n)
		}
		return ""
	}
	price := func(o domain.Opt[float64]) string {
		if f, ok := o.Get(); ok {
			return strconv.FormatFloat(f, 'f', -1, 64)
		}
		return ""
	}
	return formValues{
		Destination: c.Destination.Or(""),
		Adults:      num(c.Adults),
		Children:    num(c.Children),
		CheckIn:     c.CheckIn.Or(""),
		CheckOut:    c.CheckOut.Or(""),
		Occupancy:   num(c.Occupancy),
		MinPrice:    price(c.MinPrice),
		MaxPrice:    price(c.MaxPrice),
		SortDesc:    c.Sort.Or(domain.SortAsc) == domain.SortDesc,
	}
}
