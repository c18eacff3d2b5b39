package route

import (
	"context"
	"math"

	"github.com/ppiankov/itinmap/internal/model"
)

const earthRadiusMeters = 6371000

// Haversine returns the great-circle distance between a and b in meters
func Haversine(a, b model.LatLng) float64 {
	φ1 := a.Lat * math.Pi / 180
	φ2 := b.Lat * math.Pi / 180
	Δφ := (b.Lat - a.Lat) * math.Pi / 180
	Δλ := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(Δφ/2)*math.Sin(Δφ/2) +
		math.Cos(φ1)*math.Cos(φ2)*
			math.Sin(Δλ/2)*math.Sin(Δλ/2)
	return earthRadiusMeters * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// NearestNeighbor walks from the first stop to the closest unvisited stop each time.
// It needs no network and never fails.
type NearestNeighbor struct{}

// Optimize returns the greedy visiting order; ties keep input order
func (NearestNeighbor) Optimize(ctx context.Context, stops []model.LatLng) (*Plan, error) {
	n := len(stops)
	if n == 0 {
		return &Plan{}, nil
	}

	visited := make([]bool, n)
	order := make([]int, 0, n)
	current := 0
	visited[0] = true
	order = append(order, 0)

	for len(order) < n {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		next, best := -1, math.Inf(1)
		for i := range stops {
			if visited[i] {
				continue
			}
			if d := Haversine(stops[current], stops[i]); d < best {
				next, best = i, d
			}
		}
		if next < 0 {
			for i := range visited {
				if !visited[i] {
					next = i
					break
				}
			}
		}
		visited[next] = true
		order = append(order, next)
		current = next
	}

	return &Plan{Order: order}, nil
}
