package app

import (
	"encoding/json"
	"testing"
)

func decode(t *testing.T, s string) []map[string]any {
	t.Helper()
	var out []map[string]any
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		t.Fatalf("fixture: %v", err)
	}
	return out
}

func TestMapHotels_RateReconciliation(t *testing.T) {
	in := decode(t, `[
	  {"id": 1, "acf": {"hotel_name": "Both", "rate-per-night": 150, "nightly_rate": 999}},
	  {"id": 2, "acf": {"hotel_name": "Legacy only", "nightly_rate": 90}},
	  {"id": 3, "acf": {"hotel_name": "String rate", "rate-per-night": "220,5"}},
	  {"id": 4, "acf": {"hotel_name": "Bad canonical", "rate-per-night": "n/a", "nightly_rate": "75"}}
	]`)
	got := mapHotels(in)
	want := map[int64]float64{1: 150, 2: 90, 3: 220.5, 4: 75}
	if len(got) != len(want) {
		t.Fatalf("got %d hotels", len(got))
	}
	for _, h := range got {
		if h.Attrs.NightlyRate != want[h.ID] {
			t.Fatalf("hotel %d: rate %v want %v", h.ID, h.Attrs.NightlyRate, want[h.ID])
		}
	}
}

func TestMapHotels_FullRecord(t *testing.T) {
	in := decode(t, `[{
	  "id": "42",
	  "acf": {
	    "hotel_name": "Sea Pearl",
	    "hotel_address": "Beach Road 1",
	    "hotel_rating": "4",
	    "rate-per-night": 120,
	    "hotel_gallery": ["a.jpg", {"url": "b.jpg"}],
	    "hotel_description": "Nice",
	    "meal_paln": "Breakfast",
	    "highlight_1": ["Pool"],
	    "highlight_2": ["Spa"],
	    "hotel_amenities": ["Wifi", "Parking"],
	    "occupancy": 3
	  }
	}]`)
	got := mapHotels(in)
	if len(got) != 1 {
		t.Fatalf("got %d hotels", len(got))
	}
	a := got[0].Attrs
	if got[0].ID != 42 || a.Name != "Sea Pearl" || a.Address != "Beach Road 1" || a.Rating != 4 {
		t.Fatalf("unexpected header fields: %+v", got[0])
	}
	if a.MealPlan != "Breakfast" || a.Occupancy != 3 || a.Description != "Nice" {
		t.Fatalf("unexpected details: %+v", a)
	}
	if len(a.Gallery) != 2 || a.Gallery[1] != "b.jpg" {
		t.Fatalf("gallery: %v", a.Gallery)
	}
	if len(a.Amenities) != 2 || a.Highlights1[0] != "Pool" || a.Highlights2[0] != "Spa" {
		t.Fatalf("lists: %+v", a)
	}
}

func TestMapHotels_DropsRecordsWithoutID(t *testing.T) {
	in := decode(t, `[{"acf": {"hotel_name": "No id"}}, {"id": 7, "acf": {"hotel_name": "Seven"}}]`)
	got := mapHotels(in)
	if len(got) != 1 || got[0].ID != 7 {
		t.Fatalf("unexpected: %+v", got)
	}
}
