package app

import (
	"slices"
	"strings"

	"hotel_bookings/internal/domain"
)

// Refine applies the constraint set to an already fetched result set and
// orders it by nightly rate. The input slice is never modified.
func Refine(in []domain.Hotel, c domain.Constraints) []domain.Hotel {
	dest, _ := c.Destination.Get()
	dest = strings.ToLower(strings.TrimSpace(dest))
	occ, hasOcc := c.Occupancy.Get()
	minP, hasMin := c.MinPrice.Get()
	maxP, hasMax := c.MaxPrice.Get()

	out := make([]domain.Hotel, 0, len(in))
	for _, h := range in {
		if dest != "" && !strings.Contains(strings.ToLower(h.Attrs.Name), dest) {
			continue
		}
		if hasOcc && h.Attrs.Occupancy < occ {
			continue
		}
		if hasMin && h.Attrs.NightlyRate < minP {
			continue
		}
		if hasMax && h.Attrs.NightlyRate > maxP {
			continue
		}
		out = append(out, h)
	}

	order, ok := c.Sort.Get()
	if !ok {
		return out
	}
	slices.SortStableFunc(out, func(a, b domain.Hotel) int {
		x, y := a.Attrs.NightlyRate, b.Attrs.NightlyRate
		if order == domain.SortDesc {
			x, y = y, x
		}
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	})
	return out
}
