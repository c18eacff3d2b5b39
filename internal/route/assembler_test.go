package route

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/ppiankov/itinmap/internal/model"
)

func stop(id string, day int, lat, lng float64) model.ResolvedLocation {
	return model.ResolvedLocation{
		Candidate: model.CandidateLocation{RawName: id, Query: id, Day: day},
		Place:     model.Place{PlaceID: id, Name: id, Location: model.LatLng{Lat: lat, Lng: lng}},
	}
}

func ids(stops []model.ResolvedLocation) []string {
	out := make([]string, len(stops))
	for i, s := range stops {
		out[i] = s.PlaceID
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// stubOptimizer returns a fixed plan or error and counts calls
type stubOptimizer struct {
	plan  *Plan
	err   error
	calls int32
}

func (s *stubOptimizer) Optimize(ctx context.Context, stops []model.LatLng) (*Plan, error) {
	atomic.AddInt32(&s.calls, 1)
	return s.plan, s.err
}

// Phuket area: base, a nearby stop and a far stop
var (
	base = stop("phuket", 1, 7.8804, 98.3923)
	far  = stop("promthep", 1, 7.7590, 98.3053)
	near = stop("wat", 1, 7.8467, 98.3369)
)

func TestColorFor_Cycles(t *testing.T) {
	palette := []string{"red", "green", "blue"}

	tests := []struct {
		day  int
		want string
	}{
		{1, "red"}, {2, "green"}, {3, "blue"}, {4, "red"}, {7, "red"}, {0, "red"},
	}
	for _, tt := range tests {
		if got := ColorFor(palette, tt.day); got != tt.want {
			t.Errorf("day %d: expected %s, got %s", tt.day, tt.want, got)
		}
	}

	if ColorFor(nil, 1+len(model.DefaultPalette)) != ColorFor(nil, 1) {
		t.Error("expected default palette to cycle")
	}
}

func TestAssemble_DefaultOrderAndPolylines(t *testing.T) {
	a := NewAssembler(nil, nil, nil)

	routes := a.Assemble(context.Background(), []model.DayStops{
		{Day: 2, Locations: []model.ResolvedLocation{stop("kata", 2, 7.82, 98.29)}},
		{Day: 1, Locations: []model.ResolvedLocation{base, far, near}},
		{Day: 3, Locations: nil},
	})

	if len(routes) != 2 {
		t.Fatalf("expected 2 routes (empty day dropped), got %d", len(routes))
	}
	if routes[0].Day != 1 || routes[1].Day != 2 {
		t.Errorf("expected routes sorted by day, got %d, %d", routes[0].Day, routes[1].Day)
	}
	if got := ids(routes[0].Stops); !equal(got, []string{"phuket", "promthep", "wat"}) {
		t.Errorf("expected resolution order, got %v", got)
	}
	if len(routes[0].Polyline) != 3 {
		t.Errorf("expected straight polyline through 3 stops, got %d points", len(routes[0].Polyline))
	}
	if len(routes[1].Polyline) != 0 {
		t.Errorf("expected no polyline for a single stop, got %v", routes[1].Polyline)
	}
	if routes[0].Color == routes[1].Color {
		t.Error("expected distinct colors for day 1 and 2")
	}
	if routes[0].Optimized {
		t.Error("route without optimizer must not be marked optimized")
	}
}

func TestAssemble_OptimizerFailureFallsBack(t *testing.T) {
	tests := []struct {
		name string
		opt  *stubOptimizer
	}{
		{"error", &stubOptimizer{err: errors.New("service unavailable")}},
		{"degraded", &stubOptimizer{err: ErrDegraded}},
		{"first stop moved", &stubOptimizer{plan: &Plan{Order: []int{1, 0, 2}}}},
		{"duplicate index", &stubOptimizer{plan: &Plan{Order: []int{0, 1, 1}}}},
		{"short order", &stubOptimizer{plan: &Plan{Order: []int{0, 2}}}},
		{"out of range", &stubOptimizer{plan: &Plan{Order: []int{0, 1, 5}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAssembler(tt.opt, nil, nil)
			routes := a.Assemble(context.Background(), []model.DayStops{
				{Day: 1, Locations: []model.ResolvedLocation{base, far, near}},
			})

			if got := ids(routes[0].Stops); !equal(got, []string{"phuket", "promthep", "wat"}) {
				t.Errorf("expected input order on fallback, got %v", got)
			}
			if routes[0].Optimized {
				t.Error("fallback route must not be marked optimized")
			}
			if len(routes[0].Polyline) != 3 {
				t.Errorf("expected polyline on fallback, got %d points", len(routes[0].Polyline))
			}
		})
	}
}

func TestAssemble_AppliesOptimizedOrder(t *testing.T) {
	path := []model.LatLng{{Lat: 7.88, Lng: 98.39}, {Lat: 7.85, Lng: 98.34}, {Lat: 7.80, Lng: 98.32}, {Lat: 7.76, Lng: 98.31}}
	opt := &stubOptimizer{plan: &Plan{Order: []int{0, 2, 1}, Path: path}}
	a := NewAssembler(opt, nil, nil)

	routes := a.Assemble(context.Background(), []model.DayStops{
		{Day: 1, Locations: []model.ResolvedLocation{base, far, near}},
	})

	if got := ids(routes[0].Stops); !equal(got, []string{"phuket", "wat", "promthep"}) {
		t.Errorf("expected optimized order, got %v", got)
	}
	if !routes[0].Optimized {
		t.Error("expected route marked optimized")
	}
	if len(routes[0].Polyline) != len(path) {
		t.Errorf("expected road geometry to be used, got %d points", len(routes[0].Polyline))
	}
}

func TestAssemble_OptimizerOnlyForMoreThanTwoStops(t *testing.T) {
	opt := &stubOptimizer{plan: &Plan{Order: []int{0, 1}}}
	a := NewAssembler(opt, nil, nil)

	routes := a.Assemble(context.Background(), []model.DayStops{
		{Day: 1, Locations: []model.ResolvedLocation{base, far}},
		{Day: 2, Locations: []model.ResolvedLocation{stop("kata", 2, 7.82, 98.29)}},
	})

	if atomic.LoadInt32(&opt.calls) != 0 {
		t.Errorf("optimizer should not be consulted for <= 2 stops, got %d calls", opt.calls)
	}
	if len(routes[0].Polyline) != 2 {
		t.Errorf("expected 2-point polyline, got %d", len(routes[0].Polyline))
	}
}

func TestAssemble_CollapsesConsecutiveRepeats(t *testing.T) {
	a := NewAssembler(nil, nil, nil)

	routes := a.Assemble(context.Background(), []model.DayStops{
		{Day: 1, Locations: []model.ResolvedLocation{base, near, near, far, near}},
	})

	if got := ids(routes[0].Stops); !equal(got, []string{"phuket", "wat", "promthep", "wat"}) {
		t.Errorf("expected consecutive duplicate collapsed, got %v", got)
	}
}

func TestAssemble_LocalOptimizerKeepsBaseFirst(t *testing.T) {
	a := NewAssembler(NearestNeighbor{}, nil, nil)

	routes := a.Assemble(context.Background(), []model.DayStops{
		{Day: 1, Locations: []model.ResolvedLocation{base, far, near}},
	})

	if got := ids(routes[0].Stops); !equal(got, []string{"phuket", "wat", "promthep"}) {
		t.Errorf("expected nearest-neighbour order from base, got %v", got)
	}
	if routes[0].Stops[0].PlaceID != "phuket" {
		t.Error("base must stay first")
	}
}

func TestAssemble_Empty(t *testing.T) {
	routes := NewAssembler(nil, nil, nil).Assemble(context.Background(), nil)
	if len(routes) != 0 {
		t.Errorf("expected no routes, got %d", len(routes))
	}
}
