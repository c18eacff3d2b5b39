package model

import "math"

// Category classifies what kind of place a mention refers to
type Category string

const (
	CategoryTemple    Category = "temple"
	CategoryMountain  Category = "mountain"
	CategoryMarket    Category = "market"
	CategoryBeach     Category = "beach"
	CategoryWaterfall Category = "waterfall"
	CategoryPark      Category = "park"
	CategoryMuseum    Category = "museum"
	CategoryIsland    Category = "island"
	CategoryCave      Category = "cave"
	CategoryPalace    Category = "palace"
	CategoryHotel     Category = "hotel"
	CategoryGeneral   Category = "general"
)

// Categories lists every category in default matching priority, general last
func Categories() []Category {
	return []Category{
		CategoryTemple,
		CategoryMarket,
		CategoryBeach,
		CategoryWaterfall,
		CategoryMuseum,
		CategoryIsland,
		CategoryCave,
		CategoryPalace,
		CategoryMountain,
		CategoryPark,
		CategoryHotel,
		CategoryGeneral,
	}
}

// LatLng is a WGS 84 coordinate pair
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether the pair is inside WGS 84 bounds and not the null island
// placeholder that lookups return for missing geometry.
func (p LatLng) Valid() bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) {
		return false
	}
	if p.Lat < -90 || p.Lat > 90 || p.Lng < -180 || p.Lng > 180 {
		return false
	}
	return p.Lat != 0 || p.Lng != 0
}

// CandidateLocation is an unresolved place mention extracted from itinerary text
type CandidateLocation struct {
	RawName    string   `json:"raw_name"`              // Name as it appeared in the text
	Query      string   `json:"query"`                 // Qualified lookup name ("{place}, {base}")
	Day        int      `json:"day"`                   // 1-based day index
	Category   Category `json:"category"`              // Matcher that produced the mention
	SourceLine string   `json:"source_line,omitempty"` // Activity line the mention came from
	IsBase     bool     `json:"is_base"`               // Destination itself
}

// Day is one day segment of an itinerary with its candidates in first-seen order
type Day struct {
	Index      int                 `json:"index"`
	Candidates []CandidateLocation `json:"candidates"`
}

// Place is the authoritative record for one place identifier
type Place struct {
	PlaceID  string `json:"place_id"`
	Name     string `json:"name"`
	Address  string `json:"address,omitempty"`
	Location LatLng `json:"location"`
	ImageURL string `json:"image_url,omitempty"`
}

// ResolvedLocation is a candidate enriched with its place record
type ResolvedLocation struct {
	Candidate CandidateLocation `json:"candidate"`
	Place     `json:"place"`
}

// Day returns the day the underlying candidate belongs to
func (r ResolvedLocation) Day() int {
	return r.Candidate.Day
}
