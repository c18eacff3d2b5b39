package route

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/ppiankov/itinmap/internal/model"
	"github.com/ppiankov/itinmap/internal/worker"
)

// maxWaypoints is the Directions API limit on intermediate waypoints
const maxWaypoints = 25

// DirectionsClient optimizes waypoint order with the Google Directions API. The first
// and last stops are fixed; the stops between them are reordered.
type DirectionsClient struct {
	apiKey     string
	baseURL    string
	mode       string
	httpClient *http.Client
	limiter    *worker.Limiter
}

// NewDirectionsClient creates a Directions client. limiter may be nil.
func NewDirectionsClient(cfg model.RouteConfig, httpClient *http.Client, limiter *worker.Limiter) *DirectionsClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	mode := cfg.Mode
	if mode == "" {
		mode = "driving"
	}
	return &DirectionsClient{
		apiKey:     cfg.APIKey,
		baseURL:    cfg.BaseURL,
		mode:       mode,
		httpClient: httpClient,
		limiter:    limiter,
	}
}

type directionsResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Routes       []struct {
		WaypointOrder    []int `json:"waypoint_order"`
		OverviewPolyline struct {
			Points string `json:"points"`
		} `json:"overview_polyline"`
	} `json:"routes"`
}

// Optimize asks the API for the best order of the intermediate stops
func (c *DirectionsClient) Optimize(ctx context.Context, stops []model.LatLng) (*Plan, error) {
	n := len(stops)
	if n < 3 {
		order := make([]int, n)
		for i := range order {
			order[i] = i
		}
		return &Plan{Order: order}, nil
	}
	if n-2 > maxWaypoints {
		return nil, fmt.Errorf("%w: %d waypoints exceed the limit of %d", ErrDegraded, n-2, maxWaypoints)
	}

	middle := make([]string, 0, n-2)
	for _, s := range stops[1 : n-1] {
		middle = append(middle, formatLatLng(s))
	}

	params := url.Values{}
	params.Set("origin", formatLatLng(stops[0]))
	params.Set("destination", formatLatLng(stops[n-1]))
	params.Set("waypoints", "optimize:true|"+strings.Join(middle, "|"))
	params.Set("mode", c.mode)
	params.Set("key", c.apiKey)
	reqURL := c.baseURL + "?" + params.Encode()

	if err := c.limiter.Wait(ctx, reqURL); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return nil, fmt.Errorf("directions request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: http %d", ErrDegraded, resp.StatusCode)
	}

	var body directionsResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4<<20)).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode directions response: %w", err)
	}
	if body.Status != "OK" {
		return nil, fmt.Errorf("%w: status %s %s", ErrDegraded, body.Status, body.ErrorMessage)
	}
	if len(body.Routes) == 0 {
		return nil, fmt.Errorf("%w: no routes", ErrDegraded)
	}

	r := body.Routes[0]
	if len(r.WaypointOrder) != n-2 {
		return nil, fmt.Errorf("%w: waypoint order has %d entries, want %d", ErrDegraded, len(r.WaypointOrder), n-2)
	}

	order := make([]int, 0, n)
	order = append(order, 0)
	for _, w := range r.WaypointOrder {
		order = append(order, w+1)
	}
	order = append(order, n-1)

	path, err := DecodePolyline(r.OverviewPolyline.Points)
	if err != nil {
		path = nil
	}

	return &Plan{Order: order, Path: path}, nil
}

func formatLatLng(p model.LatLng) string {
	return strconv.FormatFloat(p.Lat, 'f', 6, 64) + "," + strconv.FormatFloat(p.Lng, 'f', 6, 64)
}

// DecodePolyline decodes the Google encoded polyline format
func DecodePolyline(encoded string) ([]model.LatLng, error) {
	var points []model.LatLng
	index, lat, lng := 0, 0, 0

	for index < len(encoded) {
		dlat, next, err := decodeValue(encoded, index)
		if err != nil {
			return nil, err
		}
		dlng, next, err := decodeValue(encoded, next)
		if err != nil {
			return nil, err
		}
		index = next
		lat += dlat
		lng += dlng
		points = append(points, model.LatLng{Lat: float64(lat) / 1e5, Lng: float64(lng) / 1e5})
	}

	return points, nil
}

func decodeValue(encoded string, index int) (int, int, error) {
	result, shift := 0, 0
	for {
		if index >= len(encoded) {
			return 0, index, fmt.Errorf("truncated polyline")
		}
		b := int(encoded[index]) - 63
		index++
		if b < 0 || b > 63 {
			return 0, index, fmt.Errorf("invalid polyline byte %q", encoded[index-1])
		}
		result |= (b & 0x1f) << shift
		shift += 5
		if b < 0x20 {
			break
		}
	}
	if result&1 != 0 {
		return ^(result >> 1), index, nil
	}
	return result >> 1, index, nil
}
