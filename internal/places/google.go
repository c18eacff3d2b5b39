package places

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ppiankov/itinmap/internal/model"
	"github.com/ppiankov/itinmap/internal/worker"
)

// Places API status values
const (
	statusOK             = "OK"
	statusZeroResults    = "ZERO_RESULTS"
	statusNotFound       = "NOT_FOUND"
	statusOverQueryLimit = "OVER_QUERY_LIMIT"
	statusUnknownError   = "UNKNOWN_ERROR"
)

const maxResponseBytes = 4 << 20

// retrySleep waits between attempts (injectable for tests)
var retrySleep = func(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// GoogleClient implements PlaceLookup and PhotoLookup over the Places web service
type GoogleClient struct {
	apiKey        string
	baseURL       string
	photoMaxWidth int
	maxRetries    int
	httpClient    *http.Client
	limiter       *worker.Limiter
}

// NewGoogleClient creates a Places client. limiter may be nil.
func NewGoogleClient(cfg model.PlacesConfig, httpClient *http.Client, limiter *worker.Limiter) *GoogleClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	maxWidth := cfg.PhotoMaxWidth
	if maxWidth <= 0 {
		maxWidth = 800
	}
	return &GoogleClient{
		apiKey:        cfg.APIKey,
		baseURL:       cfg.BaseURL,
		photoMaxWidth: maxWidth,
		maxRetries:    cfg.MaxRetries,
		httpClient:    httpClient,
		limiter:       limiter,
	}
}

type apiStatus struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
}

func (s apiStatus) status() apiStatus { return s }

func (s apiStatus) String() string {
	if s.ErrorMessage == "" {
		return s.Status
	}
	return s.Status + ": " + s.ErrorMessage
}

type statusCarrier interface {
	status() apiStatus
}

type searchResponse struct {
	apiStatus
	Results []struct {
		PlaceID          string `json:"place_id"`
		Name             string `json:"name"`
		FormattedAddress string `json:"formatted_address"`
		Geometry         struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

type detailsResponse struct {
	apiStatus
	Result struct {
		Photos []struct {
			PhotoReference string `json:"photo_reference"`
		} `json:"photos"`
	} `json:"result"`
}

// FindPlace runs a text search and returns the top result
func (c *GoogleClient) FindPlace(ctx context.Context, query, region string) (*model.Place, error) {
	params := url.Values{}
	params.Set("query", query)
	if region != "" {
		params.Set("region", region)
	}

	var resp searchResponse
	if err := c.call(ctx, "/textsearch/json", params, &resp); err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, ErrNotFound
	}

	top := resp.Results[0]
	place := &model.Place{
		PlaceID: top.PlaceID,
		Name:    top.Name,
		Address: top.FormattedAddress,
		Location: model.LatLng{
			Lat: top.Geometry.Location.Lat,
			Lng: top.Geometry.Location.Lng,
		},
	}
	if place.PlaceID == "" || !place.Location.Valid() {
		return nil, fmt.Errorf("%w: result without id or coordinates", ErrMalformed)
	}
	return place, nil
}

// PhotoURL looks up the first photo of a place and returns its fetch URL
func (c *GoogleClient) PhotoURL(ctx context.Context, placeID string) (string, error) {
	params := url.Values{}
	params.Set("place_id", placeID)
	params.Set("fields", "photos")

	var resp detailsResponse
	if err := c.call(ctx, "/details/json", params, &resp); err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", nil
		}
		return "", err
	}
	if len(resp.Result.Photos) == 0 || resp.Result.Photos[0].PhotoReference == "" {
		return "", nil
	}

	photo := url.Values{}
	photo.Set("maxwidth", strconv.Itoa(c.photoMaxWidth))
	photo.Set("photo_reference", resp.Result.Photos[0].PhotoReference)
	photo.Set("key", c.apiKey)
	return c.baseURL + "/photo?" + photo.Encode(), nil
}

// call issues a GET with bounded retry on 5xx, 429 and transient API statuses
func (c *GoogleClient) call(ctx context.Context, endpoint string, params url.Values, out statusCarrier) error {
	params.Set("key", c.apiKey)
	reqURL := c.baseURL + endpoint + "?" + params.Encode()

	var err error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * 500 * time.Millisecond
			if serr := retrySleep(ctx, backoff); serr != nil {
				return serr
			}
		}

		var retry bool
		retry, err = c.do(ctx, reqURL, out)
		if !retry {
			return err
		}
	}
	return err
}

func (c *GoogleClient) do(ctx context.Context, reqURL string, out statusCarrier) (bool, error) {
	if err := c.limiter.Wait(ctx, reqURL); err != nil {
		return false, fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return false, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// The request URL carries the API key; keep it out of the error
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return ctx.Err() == nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return true, fmt.Errorf("%w: http %d", ErrBadStatus, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("%w: http %d", ErrBadStatus, resp.StatusCode)
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out); err != nil {
		return false, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	status := out.status()
	switch status.Status {
	case statusOK:
		return false, nil
	case statusZeroResults, statusNotFound:
		return false, ErrNotFound
	case statusOverQueryLimit, statusUnknownError:
		return true, fmt.Errorf("%w: %s", ErrBadStatus, status)
	default:
		return false, fmt.Errorf("%w: %s", ErrBadStatus, status)
	}
}
