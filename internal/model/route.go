package model

import "net/url"

// DayStops is the resolved input for one day, in resolution order
type DayStops struct {
	Day       int                `json:"day"`
	Locations []ResolvedLocation `json:"locations"`
}

// DayRoute is the ordered, colored route for one day
type DayRoute struct {
	Day       int                `json:"day"`
	Stops     []ResolvedLocation `json:"stops"`
	Color     string             `json:"color"`
	Polyline  []LatLng           `json:"polyline,omitempty"` // Empty for single-stop days
	Optimized bool               `json:"optimized"`          // Order came from the optimizer
}

// BookingLink is a search link for a hotel named in the itinerary
type BookingLink struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// BookingURL returns a map search URL for a place name
func BookingURL(name string) string {
	return "https://www.google.com/maps/search/" + url.PathEscape(name)
}

// MapArtifact is the renderable result of a synthesis. It carries plain data only.
type MapArtifact struct {
	ID           string        `json:"id"`
	Center       LatLng        `json:"center"`
	Routes       []DayRoute    `json:"routes"`
	Markup       string        `json:"markup"`
	BookingLinks []BookingLink `json:"booking_links,omitempty"`
}

// Locations flattens every stop of every route in day order
func (a *MapArtifact) Locations() []ResolvedLocation {
	var out []ResolvedLocation
	for _, r := range a.Routes {
		out = append(out, r.Stops...)
	}
	return out
}
