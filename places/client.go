package places

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/platemate/server/config"
)

// Details is the subset of place data the rest of the system consumes.
type Details struct {
	GoogleID    string  `json:"google_id"`
	DisplayName string  `json:"display_name"`
	Address     string  `json:"address"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
}

// Client resolves external place identifiers. Consumers depend on this
// interface only; the Google implementation lives behind it.
type Client interface {
	Details(ctx context.Context, googleID string) (*Details, error)
	Search(ctx context.Context, text string) ([]Details, error)
}

var (
	ErrBadStatus   = errors.New("places: response status not OK")
	ErrMissingData = errors.New("places: response missing data")
)

const statusZeroResults = "ZERO_RESULTS"

// GoogleClient talks to the Google Places web service.
type GoogleClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

func NewGoogleClient(cfg config.PlacesConfig) *GoogleClient {
	return &GoogleClient{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: cfg.Timeout},
	}
}

type placeResult struct {
	PlaceID          string `json:"place_id"`
	Name             string `json:"name"`
	FormattedAddress string `json:"formatted_address"`
	Geometry         struct {
		Location struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location"`
	} `json:"geometry"`
}

type detailsResponse struct {
	Status string      `json:"status"`
	Result placeResult `json:"result"`
}

type searchResponse struct {
	Status     string        `json:"status"`
	Candidates []placeResult `json:"candidates"`
}

func (c *GoogleClient) get(ctx context.Context, path string, query url.Values, out any) error {
	query.Set("key", c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("places request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: http %d", ErrBadStatus, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Details fetches a single place by its textual identifier.
func (c *GoogleClient) Details(ctx context.Context, googleID string) (*Details, error) {
	q := url.Values{}
	q.Set("place_id", googleID)
	q.Set("fields", "place_id,name,formatted_address,geometry")

	var body detailsResponse
	if err := c.get(ctx, "/details/json", q, &body); err != nil {
		return nil, err
	}
	if body.Status != "OK" {
		return nil, fmt.Errorf("%w: %s", ErrBadStatus, body.Status)
	}
	if body.Result.Name == "" || body.Result.FormattedAddress == "" {
		return nil, fmt.Errorf("%w: place %s", ErrMissingData, googleID)
	}
	return toDetails(googleID, body.Result), nil
}

// Search runs a find-place text query and resolves each candidate.
func (c *GoogleClient) Search(ctx context.Context, text string) ([]Details, error) {
	q := url.Values{}
	q.Set("input", text)
	q.Set("inputtype", "textquery")
	q.Set("fields", "place_id,name,formatted_address,geometry")

	var body searchResponse
	if err := c.get(ctx, "/findplacefromtext/json", q, &body); err != nil {
		return nil, err
	}
	if body.Status != "OK" && body.Status != statusZeroResults {
		return nil, fmt.Errorf("%w: %s", ErrBadStatus, body.Status)
	}
	results := make([]Details, 0, len(body.Candidates))
	for _, cand := range body.Candidates {
		results = append(results, *toDetails(cand.PlaceID, cand))
	}
	return results, nil
}

func toDetails(googleID string, r placeResult) *Details {
	return &Details{
		GoogleID:    googleID,
		DisplayName: r.Name,
		Address:     r.FormattedAddress,
		Latitude:    r.Geometry.Location.Lat,
		Longitude:   r.Geometry.Location.Lng,
	}
}
