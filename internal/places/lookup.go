package places

import (
	"context"

	"github.com/ppiankov/itinmap/internal/model"
)

// PlaceLookup finds the best-matching place for a free-text query
type PlaceLookup interface {
	// FindPlace returns ErrNotFound when nothing matches. region is a ccTLD bias
	// and may be empty.
	FindPlace(ctx context.Context, query, region string) (*model.Place, error)
}

// PhotoLookup returns an image URL for a place, or "" when it has none
type PhotoLookup interface {
	PhotoURL(ctx context.Context, placeID string) (string, error)
}
