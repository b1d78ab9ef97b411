package domain

// Hotel is one record from the remote listing endpoint.
type Hotel struct {
	ID    int64      `json:"id"`
	Attrs Attributes `json:"acf"`
}

type Attributes struct {
	Name        string   `json:"hotel_name"`
	Address     string   `json:"hotel_address"`
	Rating      int      `json:"hotel_rating"` // 1..5
	NightlyRate float64  `json:"rate-per-night"`
	Gallery     []string `json:"hotel_gallery"`
	Description string   `json:"hotel_description"`
	MealPlan    string   `json:"meal_plan"`
	Highlights1 []string `json:"highlight_1"`
	Highlights2 []string `json:"highlight_2"`
	Amenities   []string `json:"hotel_amenities"`
	Occupancy   int      `json:"occupancy"`
}

// CopyHotels returns a copy that does not share the backing array with in.
func CopyHotels(in []Hotel) []Hotel {
	if in == nil {
		return nil
	}
	out := make([]Hotel, len(in))
	copy(out, in)
	return out
}
