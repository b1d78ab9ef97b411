package app

import (
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"hotel_bookings/internal/domain"
)

/********** alias registry (single source of truth) **********/

// The listing payload nests everything under "acf". The nightly rate shows
// up twice; "rate-per-night" is canonical and "nightly_rate" only fills in
// when the canonical field is missing or not numeric.
var hotelAliases = map[string][]string{
	"id":          {"id", "ID"},
	"name":        {"acf.hotel_name", "title.rendered", "name"},
	"address":     {"acf.hotel_address", "address"},
	"rating":      {"acf.hotel_rating", "rating"},
	"rate":        {"acf.rate-per-night", "acf.nightly_rate"},
	"gallery":     {"acf.hotel_gallery", "images"},
	"description": {"acf.hotel_description", "description"},
	"meal_plan":   {"acf.meal_plan", "acf.meal_paln"},
	"highlight_1": {"acf.highlight_1"},
	"highlight_2": {"acf.highlight_2"},
	"amenities":   {"acf.hotel_amenities", "amenities"},
	"occupancy":   {"acf.occupancy", "occupancy"},
}

/********** tiny helpers **********/

// lookupAny: safe nested lookup with dot paths on maps.
func lookupAny(m map[string]any, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := obj[part]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

// lookupStr returns string at path or "".
func lookupStr(m map[string]any, path string) string {
	if v := lookupAny(m, path); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// firstNonEmptyAlias: first non-empty string for a named alias set.
func firstNonEmptyAlias(m map[string]any, key string) string {
	for _, p := range hotelAliases[key] {
		if s := strings.TrimSpace(lookupStr(m, p)); s != "" {
			return s
		}
	}
	return ""
}

// getFloatFlexible: number from several paths (float64/int/string like "8,0").
func getFloatFlexible(m map[string]any, paths ...string) *float64 {
	for _, k := range paths {
		switch v := lookupAny(m, k).(type) {
		case float64:
			f := v
			return &f
		case int:
			f := float64(v)
			return &f
		case string:
			s := strings.TrimSpace(strings.ReplaceAll(v, ",", "."))
			if s == "" {
				continue
			}
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				return &f
			}
		}
	}
	return nil
}

// firstInt64Flexible: int64 from several paths (float64/int/string).
func firstInt64Flexible(m map[string]any, paths ...string) *int64 {
	for _, k := range paths {
		switch v := lookupAny(m, k).(type) {
		case float64:
			x := int64(v)
			return &x
		case int:
			x := int64(v)
			return &x
		case int64:
			x := v
			return &x
		case string:
			s := strings.TrimSpace(v)
			if s == "" {
				continue
			}
			if n, err := strconv.ParseInt(s, 10, 64); err == nil {
				return &n
			}
		}
	}
	return nil
}

// firstSliceStrings: accept []any with either strings or {url/src/name}.
func firstSliceStrings(m map[string]any, paths ...string) []string {
	for _, k := range paths {
		if raw, ok := lookupAny(m, k).([]any); ok {
			out := make([]string, 0, len(raw))
			for _, it := range raw {
				switch t := it.(type) {
				case string:
					if t != "" {
						out = append(out, t)
					}
				case map[string]any:
					if u, ok := t["url"].(string); ok && u != "" {
						out = append(out, u)
						continue
					}
					if u, ok := t["src"].(string); ok && u != "" {
						out = append(out, u)
						continue
					}
					if n, ok := t["name"].(string); ok && n != "" {
						out = append(out, n)
						continue
					}
				}
			}
			if len(out) > 0 {
				return out
			}
		}
	}
	return nil
}

/********** hotel mapper **********/

func mapHotel(p map[string]any) (domain.Hotel, bool) {
	id := firstInt64Flexible(p, hotelAliases["id"]...)
	if id == nil {
		return domain.Hotel{}, false
	}

	intOf := func(key string) int {
		if f := getFloatFlexible(p, hotelAliases[key]...); f != nil {
			return int(*f)
		}
		return 0
	}
	rate := 0.0
	if f := getFloatFlexible(p, hotelAliases["rate"]...); f != nil {
		rate = *f
	}

	return domain.Hotel{
		ID: *id,
		Attrs: domain.Attributes{
			Name:        firstNonEmptyAlias(p, "name"),
			Address:     firstNonEmptyAlias(p, "address"),
			Rating:      intOf("rating"),
			NightlyRate: rate,
			Gallery:     firstSliceStrings(p, hotelAliases["gallery"]...),
			Description: firstNonEmptyAlias(p, "description"),
			MealPlan:    firstNonEmptyAlias(p, "meal_plan"),
			Highlights1: firstSliceStrings(p, hotelAliases["highlight_1"]...),
			Highlights2: firstSliceStrings(p, hotelAliases["highlight_2"]...),
			Amenities:   firstSliceStrings(p, hotelAliases["amenities"]...),
			Occupancy:   intOf("occupancy"),
		},
	}, true
}

// mapHotels keeps payload order and drops records without an id.
func mapHotels(in []map[string]any) []domain.Hotel {
	out := make([]domain.Hotel, 0, len(in))
	for i, p := range in {
		h, ok := mapHotel(p)
		if !ok {
			log.Warn().Int("index", i).Str("context", "mapHotels").Msg("record without id dropped")
			continue
		}
		out = append(out, h)
	}
	return out
}
