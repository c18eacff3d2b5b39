package route

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/ppiankov/itinmap/internal/model"
	"github.com/ppiankov/itinmap/internal/worker"
)

// ErrDegraded means the optimizer answered but could not produce a usable order
var ErrDegraded = errors.New("route optimizer degraded")

// Plan is an optimizer answer: a permutation of the input indices and, optionally,
// the road geometry for the new order.
type Plan struct {
	Order []int
	Path  []model.LatLng
}

// Optimizer reorders a day's stops to reduce travel. The first stop must stay first.
type Optimizer interface {
	Optimize(ctx context.Context, stops []model.LatLng) (*Plan, error)
}

// Optimizer names
const (
	OptimizerNone   = "none"
	OptimizerLocal  = "local"
	OptimizerGoogle = "google"
)

// NewOptimizer builds the optimizer named in cfg. "none" and "" return nil.
func NewOptimizer(cfg model.RouteConfig, httpClient *http.Client, limiter *worker.Limiter) (Optimizer, error) {
	switch cfg.Optimizer {
	case "", OptimizerNone:
		return nil, nil
	case OptimizerLocal:
		return NearestNeighbor{}, nil
	case OptimizerGoogle:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("google optimizer requires an API key (set ITINMAP_ROUTE_API_KEY or GOOGLE_MAPS_API_KEY)")
		}
		return NewDirectionsClient(cfg, httpClient, limiter), nil
	default:
		return nil, fmt.Errorf("unknown optimizer: %s (valid: %s, %s, %s)", cfg.Optimizer, OptimizerNone, OptimizerLocal, OptimizerGoogle)
	}
}

// validOrder checks that order is a permutation of 0..n-1 starting at 0
func validOrder(order []int, n int) error {
	if len(order) != n {
		return fmt.Errorf("%w: order has %d entries for %d stops", ErrDegraded, len(order), n)
	}
	if order[0] != 0 {
		return fmt.Errorf("%w: first stop moved", ErrDegraded)
	}
	seen := make([]bool, n)
	for _, idx := range order {
		if idx < 0 || idx >= n || seen[idx] {
			return fmt.Errorf("%w: invalid permutation %v", ErrDegraded, order)
		}
		seen[idx] = true
	}
	return nil
}
