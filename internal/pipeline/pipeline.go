package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/ppiankov/itinmap/internal/cache"
	"github.com/ppiankov/itinmap/internal/extract"
	"github.com/ppiankov/itinmap/internal/model"
	"github.com/ppiankov/itinmap/internal/places"
	"github.com/ppiankov/itinmap/internal/render"
	"github.com/ppiankov/itinmap/internal/route"
	"github.com/ppiankov/itinmap/internal/util"
	"github.com/ppiankov/itinmap/internal/worker"
)

// ErrNoDestination is returned when no destination name is supplied
var ErrNoDestination = errors.New("destination is required")

// Deps are the external collaborators of a pipeline
type Deps struct {
	Places    places.PlaceLookup
	Photos    places.PhotoLookup // nil disables images
	Optimizer route.Optimizer    // nil keeps resolution order
}

// Pipeline turns itinerary text into a map artifact
type Pipeline struct {
	extractor   *extract.LocationExtractor
	deps        Deps
	shared      *places.Resolver // engine-lifetime resolver; nil for request scope
	cfg         *model.Config
	assembler   *route.Assembler
	synthesizer *render.Synthesizer
	logger      *zap.Logger
}

// Result is the outcome of one synthesis
type Result struct {
	Artifact     model.MapArtifact        `json:"artifact"`
	Locations    []model.ResolvedLocation `json:"locations"` // Route order, day by day
	Days         []model.Day              `json:"days"`      // Extracted candidates
	BaseResolved bool                     `json:"base_resolved"`
}

// NewPipeline wires the Google collaborators from configuration
func NewPipeline(cfg *model.Config, logger *zap.Logger) (*Pipeline, error) {
	if cfg.Places.APIKey == "" {
		return nil, errors.New("places API key is required (set GOOGLE_MAPS_API_KEY or places.api_key)")
	}
	limiter := worker.NewLimiter(cfg.Places.RequestsPerSecond, cfg.Places.Burst)

	client := places.NewGoogleClient(cfg.Places, util.NewHTTPClient(cfg.Places.Timeout, cfg.HTTP), limiter)
	deps := Deps{Places: client}
	if cfg.Places.Photos {
		deps.Photos = client
	}

	routeCfg := cfg.Route
	if routeCfg.APIKey == "" {
		routeCfg.APIKey = cfg.Places.APIKey
	}
	optimizer, err := route.NewOptimizer(routeCfg, util.NewHTTPClient(routeCfg.Timeout, cfg.HTTP), limiter)
	if err != nil {
		return nil, fmt.Errorf("route optimizer: %w", err)
	}
	deps.Optimizer = optimizer

	return New(cfg, deps, logger)
}

// New creates a pipeline over the given collaborators
func New(cfg *model.Config, deps Deps, logger *zap.Logger) (*Pipeline, error) {
	if deps.Places == nil {
		return nil, errors.New("place lookup is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	extractor, err := extract.NewLocationExtractor(cfg.Extract)
	if err != nil {
		return nil, fmt.Errorf("location extractor: %w", err)
	}

	p := &Pipeline{
		extractor:   extractor,
		deps:        deps,
		cfg:         cfg,
		assembler:   route.NewAssembler(deps.Optimizer, cfg.Route.Palette, logger),
		synthesizer: render.NewSynthesizer(cfg.Render),
		logger:      logger,
	}

	switch cfg.Cache.Scope {
	case "", cache.ScopeRequest:
	case cache.ScopeShared:
		// One resolver so concurrent syntheses share its in-flight lookups as well as the cache
		p.shared = p.newResolver(cache.New(cfg.Cache))
	default:
		return nil, fmt.Errorf("unknown cache scope: %s (valid: %s, %s)", cfg.Cache.Scope, cache.ScopeRequest, cache.ScopeShared)
	}

	return p, nil
}

// Synthesize runs extraction, resolution, routing and rendering. Candidate and day
// level failures are absorbed; an unresolvable destination is reported through
// Result.BaseResolved rather than as an error.
func (p *Pipeline) Synthesize(ctx context.Context, text, destination string) (*Result, error) {
	destination = strings.TrimSpace(destination)
	if destination == "" {
		return nil, ErrNoDestination
	}

	days := p.extractor.Extract(text, destination)
	candidates := extract.Candidates(days)
	p.logger.Debug("extracted candidates",
		zap.Int("days", len(days)),
		zap.Int("candidates", len(candidates)))

	resolved := p.resolver().ResolveBatch(ctx, candidates)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("synthesis cancelled: %w", err)
	}

	baseResolved := false
	for _, loc := range resolved {
		if loc.Candidate.IsBase {
			baseResolved = true
			break
		}
	}

	routes := p.assembler.Assemble(ctx, GroupByDay(resolved))
	artifact := p.synthesizer.Synthesize(routes)

	if hotels := extract.ParseSummary(text).Hotels; len(hotels) > 0 {
		artifact.BookingLinks = extract.BookingLinks(hotels)
	}

	return &Result{
		Artifact:     artifact,
		Locations:    artifact.Locations(),
		Days:         days,
		BaseResolved: baseResolved,
	}, nil
}

// resolver returns the shared resolver, or a fresh one with its own cache per request
func (p *Pipeline) resolver() *places.Resolver {
	if p.shared != nil {
		return p.shared
	}
	return p.newResolver(cache.New(model.CacheConfig{Scope: cache.ScopeRequest, TTL: p.cfg.Cache.TTL}))
}

func (p *Pipeline) newResolver(c cache.Cache) *places.Resolver {
	return places.NewResolver(p.deps.Places, p.deps.Photos, c, places.Options{
		Region:  p.cfg.Places.Region,
		Workers: p.cfg.Places.Workers,
		TTL:     p.cfg.Cache.TTL,
		Logger:  p.logger,
	})
}

// GroupByDay buckets resolved locations by day, keeping resolution order within a
// day. Days with no resolved location are omitted.
func GroupByDay(resolved []model.ResolvedLocation) []model.DayStops {
	byDay := make(map[int][]model.ResolvedLocation)
	for _, loc := range resolved {
		byDay[loc.Day()] = append(byDay[loc.Day()], loc)
	}

	out := make([]model.DayStops, 0, len(byDay))
	for day, locs := range byDay {
		out = append(out, model.DayStops{Day: day, Locations: locs})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day < out[j].Day })
	return out
}
