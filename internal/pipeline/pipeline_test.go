package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/itinmap/internal/model"
	"github.com/ppiankov/itinmap/internal/places"
	"github.com/ppiankov/itinmap/internal/route"
)

type fakePlaces struct {
	places map[string]model.Place
	calls  int32
	delay  time.Duration
}

func (f *fakePlaces) FindPlace(ctx context.Context, query, region string) (*model.Place, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, ok := f.places[query]
	if !ok {
		return nil, places.ErrNotFound
	}
	return &p, nil
}

func phuketPlaces() map[string]model.Place {
	return map[string]model.Place{
		"Phuket": {PlaceID: "p-phuket", Name: "Phuket", Location: model.LatLng{Lat: 7.8804, Lng: 98.3923}},
		"Wat Chalong, Phuket": {
			PlaceID: "p-chalong", Name: "Wat Chalong", Location: model.LatLng{Lat: 7.8468, Lng: 98.3368},
		},
		"Kata Beach, Phuket": {
			PlaceID: "p-kata", Name: "Kata Beach", Location: model.LatLng{Lat: 7.8206, Lng: 98.2981},
		},
	}
}

func newTestPipeline(t *testing.T, fp *fakePlaces, optimizer route.Optimizer) *Pipeline {
	t.Helper()
	p, err := New(model.DefaultConfig(), Deps{Places: fp, Optimizer: optimizer}, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return p
}

func TestSynthesize_UnresolvedCandidateDropped(t *testing.T) {
	fp := &fakePlaces{places: phuketPlaces()}
	p := newTestPipeline(t, fp, nil)

	text := `Day 1: Visit Wat Chalong
Swim at Karon Beach
Day 2: Swim at Kata Beach`

	res, err := p.Synthesize(context.Background(), text, "Phuket")
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}

	if !res.BaseResolved {
		t.Error("expected base to be resolved")
	}
	if len(res.Locations) != 3 {
		t.Fatalf("expected 3 resolved locations, got %d: %+v", len(res.Locations), res.Locations)
	}
	for _, loc := range res.Locations {
		if strings.Contains(loc.Candidate.Query, "Karon") {
			t.Errorf("unresolved candidate should be absent: %+v", loc)
		}
	}

	routes := res.Artifact.Routes
	if len(routes) != 2 {
		t.Fatalf("expected 2 day routes, got %d", len(routes))
	}
	if len(routes[0].Stops) != 2 || routes[0].Stops[0].PlaceID != "p-phuket" || routes[0].Stops[1].PlaceID != "p-chalong" {
		t.Errorf("unexpected day 1 stops: %+v", routes[0].Stops)
	}
	if len(routes[1].Stops) != 1 || routes[1].Stops[0].PlaceID != "p-kata" {
		t.Errorf("unexpected day 2 stops: %+v", routes[1].Stops)
	}
	if !strings.Contains(res.Artifact.Markup, "Kata Beach") || !strings.Contains(res.Artifact.Markup, "Wat Chalong") {
		t.Error("expected remaining markers in markup")
	}
	if res.Artifact.ID == "" {
		t.Error("expected artifact id")
	}
}

func TestSynthesize_BaseUnresolved(t *testing.T) {
	fp := &fakePlaces{places: map[string]model.Place{
		"Wat Chalong, Phuket": {PlaceID: "p-chalong", Name: "Wat Chalong", Location: model.LatLng{Lat: 7.8468, Lng: 98.3368}},
	}}
	p := newTestPipeline(t, fp, nil)

	res, err := p.Synthesize(context.Background(), "Day 1: Visit Wat Chalong", "Phuket")
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if res.BaseResolved {
		t.Error("expected base to be unresolved")
	}
	if len(res.Locations) != 1 {
		t.Errorf("expected 1 location, got %d", len(res.Locations))
	}
}

func TestSynthesize_NothingResolved(t *testing.T) {
	p := newTestPipeline(t, &fakePlaces{}, nil)

	res, err := p.Synthesize(context.Background(), "Day 1: Visit Wat Chalong", "Phuket")
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if len(res.Artifact.Routes) != 0 {
		t.Errorf("expected no routes, got %+v", res.Artifact.Routes)
	}
	if res.Artifact.Center != model.DefaultConfig().Render.DefaultCenter {
		t.Errorf("expected default center, got %+v", res.Artifact.Center)
	}
	if res.Artifact.Markup == "" {
		t.Error("expected markup even without markers")
	}
}

func TestSynthesize_EmptyDestination(t *testing.T) {
	p := newTestPipeline(t, &fakePlaces{}, nil)

	_, err := p.Synthesize(context.Background(), "Day 1: Visit Wat Chalong", "  ")
	if !errors.Is(err, ErrNoDestination) {
		t.Errorf("expected ErrNoDestination, got %v", err)
	}
}

func TestSynthesize_Cancelled(t *testing.T) {
	fp := &fakePlaces{places: phuketPlaces()}
	p := newTestPipeline(t, fp, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Synthesize(ctx, "Day 1: Visit Wat Chalong", "Phuket")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestSynthesize_BookingLinks(t *testing.T) {
	p := newTestPipeline(t, &fakePlaces{places: phuketPlaces()}, nil)

	text := `Day 1: Visit Wat Chalong
Hotels: Kata Rocks, The Slate`

	res, err := p.Synthesize(context.Background(), text, "Phuket")
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Artifact.BookingLinks) != 2 {
		t.Fatalf("expected 2 booking links, got %+v", res.Artifact.BookingLinks)
	}
	if res.Artifact.BookingLinks[0].Name != "Kata Rocks" {
		t.Errorf("unexpected first link: %+v", res.Artifact.BookingLinks[0])
	}
}

func TestSynthesize_OptimizerApplied(t *testing.T) {
	fp := &fakePlaces{places: map[string]model.Place{
		"Phuket":              {PlaceID: "base", Name: "Phuket", Location: model.LatLng{Lat: 7.88, Lng: 98.39}},
		"Kata Beach, Phuket":  {PlaceID: "far", Name: "Kata Beach", Location: model.LatLng{Lat: 7.76, Lng: 98.30}},
		"Wat Chalong, Phuket": {PlaceID: "near", Name: "Wat Chalong", Location: model.LatLng{Lat: 7.85, Lng: 98.34}},
	}}
	p := newTestPipeline(t, fp, route.NearestNeighbor{})

	text := `Day 1:
Swim at Kata Beach
Visit Wat Chalong`

	res, err := p.Synthesize(context.Background(), text, "Phuket")
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Artifact.Routes) != 1 {
		t.Fatalf("expected 1 route, got %d", len(res.Artifact.Routes))
	}
	stops := res.Artifact.Routes[0].Stops
	if len(stops) != 3 {
		t.Fatalf("expected 3 stops, got %+v", stops)
	}
	got := []string{stops[0].PlaceID, stops[1].PlaceID, stops[2].PlaceID}
	want := []string{"base", "near", "far"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("expected order %v, got %v", want, got)
			break
		}
	}
	if !res.Artifact.Routes[0].Optimized {
		t.Error("expected route to be marked optimized")
	}
}

func TestNew_UnknownCacheScope(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.Cache.Scope = "global"
	if _, err := New(cfg, Deps{Places: &fakePlaces{}}, nil); err == nil {
		t.Error("expected error for unknown cache scope")
	}
}

func TestNew_RequiresPlaces(t *testing.T) {
	if _, err := New(model.DefaultConfig(), Deps{}, nil); err == nil {
		t.Error("expected error without place lookup")
	}
}

func TestNewPipeline_RequiresAPIKey(t *testing.T) {
	if _, err := NewPipeline(model.DefaultConfig(), nil); err == nil {
		t.Error("expected error without API key")
	}
}

func TestSynthesize_SharedCacheReused(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.Cache.Scope = "shared"
	fp := &fakePlaces{places: phuketPlaces()}
	p, err := New(cfg, Deps{Places: fp}, nil)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 2; i++ {
		if _, err := p.Synthesize(context.Background(), "Day 1: Visit Wat Chalong", "Phuket"); err != nil {
			t.Fatal(err)
		}
	}
	if got := atomic.LoadInt32(&fp.calls); got != 2 {
		t.Errorf("expected 2 lookups across both runs, got %d", got)
	}
}

func TestSynthesize_SharedScopeConcurrentRequests(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.Cache.Scope = "shared"
	fp := &fakePlaces{places: phuketPlaces(), delay: 50 * time.Millisecond}
	p, err := New(cfg, Deps{Places: fp}, nil)
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := p.Synthesize(context.Background(), "Day 1: Visit Wat Chalong", "Phuket")
			if err == nil && len(res.Locations) != 2 {
				err = fmt.Errorf("expected 2 locations, got %d", len(res.Locations))
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Error(err)
		}
	}
	if got := atomic.LoadInt32(&fp.calls); got != 2 {
		t.Errorf("expected 2 lookups for 2 unique queries across 4 concurrent requests, got %d", got)
	}
}

func TestSynthesize_RequestCacheNotShared(t *testing.T) {
	fp := &fakePlaces{places: phuketPlaces()}
	p := newTestPipeline(t, fp, nil)

	for i := 0; i < 2; i++ {
		if _, err := p.Synthesize(context.Background(), "Day 1: Visit Wat Chalong", "Phuket"); err != nil {
			t.Fatal(err)
		}
	}
	if got := atomic.LoadInt32(&fp.calls); got != 4 {
		t.Errorf("expected 4 lookups with request-scoped caching, got %d", got)
	}
}

func TestGroupByDay(t *testing.T) {
	loc := func(day int, id string) model.ResolvedLocation {
		return model.ResolvedLocation{
			Candidate: model.CandidateLocation{Day: day},
			Place:     model.Place{PlaceID: id},
		}
	}

	groups := GroupByDay([]model.ResolvedLocation{loc(3, "c"), loc(1, "a"), loc(3, "d"), loc(1, "b")})
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	if groups[0].Day != 1 || groups[1].Day != 3 {
		t.Errorf("expected days 1 and 3, got %d and %d", groups[0].Day, groups[1].Day)
	}
	if groups[0].Locations[0].PlaceID != "a" || groups[0].Locations[1].PlaceID != "b" {
		t.Errorf("expected resolution order within day 1, got %+v", groups[0].Locations)
	}
	if groups[1].Locations[0].PlaceID != "c" || groups[1].Locations[1].PlaceID != "d" {
		t.Errorf("expected resolution order within day 3, got %+v", groups[1].Locations)
	}
}
