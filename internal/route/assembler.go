package route

import (
	"context"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/itinmap/internal/model"
)

// maxParallelDays bounds concurrent optimizer calls
const maxParallelDays = 4

// Assembler orders each day's stops, colors them and draws the day's line
type Assembler struct {
	optimizer Optimizer
	palette   []string
	logger    *zap.Logger
}

// NewAssembler creates an assembler. A nil optimizer keeps resolution order.
func NewAssembler(optimizer Optimizer, palette []string, logger *zap.Logger) *Assembler {
	if len(palette) == 0 {
		palette = model.DefaultPalette
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Assembler{optimizer: optimizer, palette: palette, logger: logger}
}

// ColorFor returns the palette token for a 1-based day; the palette repeats
func ColorFor(palette []string, day int) string {
	if len(palette) == 0 {
		palette = model.DefaultPalette
	}
	if day < 1 {
		day = 1
	}
	return palette[(day-1)%len(palette)]
}

// Assemble builds one route per non-empty day, sorted by day. Optimization failures
// are logged and the day keeps its input order.
func (a *Assembler) Assemble(ctx context.Context, days []model.DayStops) []model.DayRoute {
	input := make([]model.DayStops, 0, len(days))
	for _, d := range days {
		if len(d.Locations) > 0 {
			input = append(input, d)
		}
	}
	sort.SliceStable(input, func(i, j int) bool { return input[i].Day < input[j].Day })

	routes := make([]model.DayRoute, len(input))
	var g errgroup.Group
	g.SetLimit(maxParallelDays)
	for i, d := range input {
		g.Go(func() error {
			routes[i] = a.assembleDay(ctx, d)
			return nil
		})
	}
	_ = g.Wait()

	return routes
}

func (a *Assembler) assembleDay(ctx context.Context, day model.DayStops) model.DayRoute {
	stops := collapseRepeats(day.Locations)
	route := model.DayRoute{
		Day:   day.Day,
		Stops: stops,
		Color: ColorFor(a.palette, day.Day),
	}

	var path []model.LatLng
	if a.optimizer != nil && len(stops) > 2 {
		plan, err := a.optimizer.Optimize(ctx, coordinates(stops))
		if err == nil {
			err = validOrder(plan.Order, len(stops))
		}
		if err != nil {
			a.logger.Warn("route optimization skipped",
				zap.Int("day", day.Day),
				zap.Int("stops", len(stops)),
				zap.Error(err))
		} else {
			route.Stops = collapseRepeats(reorder(stops, plan.Order))
			route.Optimized = true
			path = plan.Path
		}
	}

	if len(route.Stops) >= 2 {
		route.Polyline = path
		if len(route.Polyline) < 2 {
			route.Polyline = coordinates(route.Stops)
		}
	}

	return route
}

// collapseRepeats drops a stop whose place id equals the previous stop's
func collapseRepeats(stops []model.ResolvedLocation) []model.ResolvedLocation {
	out := make([]model.ResolvedLocation, 0, len(stops))
	for _, s := range stops {
		if n := len(out); n > 0 && out[n-1].PlaceID == s.PlaceID {
			continue
		}
		out = append(out, s)
	}
	return out
}

func coordinates(stops []model.ResolvedLocation) []model.LatLng {
	out := make([]model.LatLng, len(stops))
	for i, s := range stops {
		out[i] = s.Location
	}
	return out
}

func reorder(stops []model.ResolvedLocation, order []int) []model.ResolvedLocation {
	out := make([]model.ResolvedLocation, len(order))
	for i, idx := range order {
		out[i] = stops[idx]
	}
	return out
}
