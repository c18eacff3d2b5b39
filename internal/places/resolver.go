package places

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/ppiankov/itinmap/internal/cache"
	"github.com/ppiankov/itinmap/internal/model"
	"github.com/ppiankov/itinmap/internal/worker"
)

// Options tune a Resolver
type Options struct {
	Region  string        // ccTLD bias passed to the place lookup
	Workers int           // concurrent lookups in ResolveBatch
	TTL     time.Duration // cache entry lifetime (0 = cache default)
	Logger  *zap.Logger
}

// Resolver turns candidates into places. It owns two cache views: query -> place id
// and place id -> place record. Each query and each place id is looked up at most
// once while its entry is cached, including under concurrent callers.
type Resolver struct {
	places  PlaceLookup
	photos  PhotoLookup
	cache   cache.Cache
	region  string
	workers int
	ttl     time.Duration
	flight  singleflight.Group
	logger  *zap.Logger
}

// NewResolver creates a resolver. photos may be nil to skip image lookups; a nil
// cache gets a private memory cache.
func NewResolver(places PlaceLookup, photos PhotoLookup, c cache.Cache, opts Options) *Resolver {
	if c == nil {
		c = cache.NewMemoryCache(24*time.Hour, 10*time.Minute)
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		places:  places,
		photos:  photos,
		cache:   c,
		region:  opts.Region,
		workers: opts.Workers,
		ttl:     opts.TTL,
		logger:  logger,
	}
}

// normalizeQuery folds case and whitespace so equivalent queries share a cache slot
func normalizeQuery(q string) string {
	return strings.ToLower(strings.Join(strings.Fields(q), " "))
}

// Resolve looks up one candidate. Any failure is a *ResolutionError.
func (r *Resolver) Resolve(ctx context.Context, candidate model.CandidateLocation) (*model.ResolvedLocation, error) {
	place, err := r.lookup(ctx, candidate.Query)
	if err != nil {
		return nil, &ResolutionError{Query: candidate.Query, Err: err}
	}
	return &model.ResolvedLocation{Candidate: candidate, Place: *place}, nil
}

// ResolveBatch resolves candidates concurrently and returns the successes in input
// order. Failures are logged and dropped. Identical queries are dispatched once.
func (r *Resolver) ResolveBatch(ctx context.Context, candidates []model.CandidateLocation) []model.ResolvedLocation {
	unique := make([]model.CandidateLocation, 0, len(candidates))
	slot := make(map[string]int, len(candidates))
	for _, c := range candidates {
		key := normalizeQuery(c.Query)
		if _, ok := slot[key]; ok {
			continue
		}
		slot[key] = len(unique)
		unique = append(unique, c)
	}

	results := worker.NewBatchResolver(r, r.workers).ResolveAll(ctx, unique)

	for _, res := range results {
		if res.Error != nil {
			r.logger.Warn("place resolution failed",
				zap.String("query", res.Candidate.Query),
				zap.Int("day", res.Candidate.Day),
				zap.Error(res.Error))
		}
	}

	resolved := make([]model.ResolvedLocation, 0, len(candidates))
	for _, c := range candidates {
		res := results[slot[normalizeQuery(c.Query)]]
		if res.Error != nil || res.Location == nil {
			continue
		}
		resolved = append(resolved, model.ResolvedLocation{Candidate: c, Place: res.Location.Place})
	}
	return resolved
}

func (r *Resolver) lookup(ctx context.Context, query string) (*model.Place, error) {
	qkey := cache.Key("query", normalizeQuery(query))
	if p, ok := r.cachedQuery(qkey); ok {
		r.logger.Debug("place cache hit", zap.String("query", query))
		return p, nil
	}

	v, err, _ := r.flight.Do(qkey, func() (any, error) {
		if p, ok := r.cachedQuery(qkey); ok {
			return p, nil
		}

		found, err := r.places.FindPlace(ctx, query, r.region)
		if err != nil {
			return nil, err
		}
		if found == nil || found.PlaceID == "" || !found.Location.Valid() {
			return nil, fmt.Errorf("%w: lookup returned no usable place", ErrMalformed)
		}

		p, err := r.place(ctx, *found)
		if err != nil {
			return nil, err
		}
		if err := r.cache.Set(qkey, []byte(p.PlaceID), r.ttl); err != nil {
			r.logger.Debug("query cache write failed", zap.Error(err))
		}
		return p, nil
	})
	if err != nil {
		return nil, err
	}

	p := *v.(*model.Place)
	return &p, nil
}

func (r *Resolver) cachedQuery(qkey string) (*model.Place, bool) {
	id, ok := r.cache.Get(qkey)
	if !ok {
		return nil, false
	}
	var p model.Place
	if !cache.GetJSON(r.cache, cache.Key("place", string(id)), &p) {
		return nil, false
	}
	return &p, true
}

// place completes a lookup result with its photo, once per place id
func (r *Resolver) place(ctx context.Context, found model.Place) (*model.Place, error) {
	pkey := cache.Key("place", found.PlaceID)
	var cached model.Place
	if cache.GetJSON(r.cache, pkey, &cached) {
		return &cached, nil
	}

	v, err, _ := r.flight.Do(pkey, func() (any, error) {
		var cached model.Place
		if cache.GetJSON(r.cache, pkey, &cached) {
			return &cached, nil
		}

		p := found
		if r.photos != nil {
			imageURL, err := r.photos.PhotoURL(ctx, p.PlaceID)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				r.logger.Debug("photo lookup failed", zap.String("place_id", p.PlaceID), zap.Error(err))
			}
			p.ImageURL = imageURL
		}

		if err := cache.SetJSON(r.cache, pkey, p, r.ttl); err != nil {
			r.logger.Debug("place cache write failed", zap.Error(err))
		}
		return &p, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.Place), nil
}
