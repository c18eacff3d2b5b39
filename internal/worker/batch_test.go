package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/itinmap/internal/model"
)

// mockResolver resolves every candidate except the ones listed in fail
type mockResolver struct {
	fail  map[string]bool
	calls int32
	delay time.Duration
}

func (m *mockResolver) Resolve(ctx context.Context, c model.CandidateLocation) (*model.ResolvedLocation, error) {
	atomic.AddInt32(&m.calls, 1)
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.fail[c.Query] {
		return nil, errors.New("not found")
	}
	return &model.ResolvedLocation{
		Candidate: c,
		Place:     model.Place{PlaceID: "id-" + c.Query, Name: c.Query, Location: model.LatLng{Lat: 7.9, Lng: 98.3}},
	}, nil
}

func candidates(queries ...string) []model.CandidateLocation {
	out := make([]model.CandidateLocation, len(queries))
	for i, q := range queries {
		out[i] = model.CandidateLocation{RawName: q, Query: q, Day: 1}
	}
	return out
}

func TestBatchResolver_ResolveAll(t *testing.T) {
	resolver := &mockResolver{}
	batch := NewBatchResolver(resolver, 2)

	results := batch.ResolveAll(context.Background(), candidates("a", "b", "c"))

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for i, q := range []string{"a", "b", "c"} {
		if results[i].Error != nil {
			t.Errorf("unexpected error for %s: %v", q, results[i].Error)
		}
		if results[i].Location == nil || results[i].Location.PlaceID != "id-"+q {
			t.Errorf("result %d out of order or missing: %+v", i, results[i])
		}
	}
}

func TestBatchResolver_PartialFailure(t *testing.T) {
	resolver := &mockResolver{fail: map[string]bool{"b": true}}
	batch := NewBatchResolver(resolver, 3)

	results := batch.ResolveAll(context.Background(), candidates("a", "b", "c"))

	if results[1].Error == nil || results[1].Location != nil {
		t.Errorf("expected failure for b, got %+v", results[1])
	}
	if results[0].Error != nil || results[2].Error != nil {
		t.Error("failures must not affect other candidates")
	}
}

func TestBatchResolver_Empty(t *testing.T) {
	batch := NewBatchResolver(&mockResolver{}, 2)
	results := batch.ResolveAll(context.Background(), nil)
	if results == nil || len(results) != 0 {
		t.Errorf("expected empty non-nil results, got %v", results)
	}
}

func TestBatchResolver_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	resolver := &mockResolver{delay: time.Second}
	batch := NewBatchResolver(resolver, 2)

	results := batch.ResolveAll(ctx, candidates("a", "b", "c", "d", "e", "f"))

	if len(results) != 6 {
		t.Fatalf("expected a result per candidate, got %d", len(results))
	}
	for i, r := range results {
		if r.Error == nil {
			t.Errorf("expected error for cancelled candidate %d", i)
		}
		if r.Candidate.Query != candidates("a", "b", "c", "d", "e", "f")[i].Query {
			t.Errorf("result %d has wrong candidate %q", i, r.Candidate.Query)
		}
	}
}
