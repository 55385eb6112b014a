package products

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// HTTPSearcher calls a product-search gateway that returns a JSON array of
// candidates. The gateway hides the upstream marketplace APIs.
type HTTPSearcher struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPSearcher builds a searcher for the configured gateway URL.
func NewHTTPSearcher(baseURL, apiKey string) *HTTPSearcher {
	if baseURL == "" {
		panic("products: search base URL cannot be empty")
	}
	return &HTTPSearcher{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 20 * time.Second},
	}
}

type searchResponse struct {
	Results []Candidate `json:"results"`
}

// Search queries the gateway. Non-200 responses and decode failures are
// returned as errors; the builder downgrades them to an empty candidate set.
func (s *HTTPSearcher) Search(ctx context.Context, query string, c Constraints) ([]Candidate, error) {
	q := url.Values{}
	q.Set("q", query)
	if c.PricePreference != "" {
		q.Set("price", c.PricePreference)
	}
	if c.TargetCount > 0 {
		q.Set("limit", strconv.Itoa(c.TargetCount))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("products: build search request: %w", err)
	}
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("products: search request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("products: search returned %d: %s", resp.StatusCode, string(body))
	}

	var decoded searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("products: decode search response: %w", err)
	}
	return decoded.Results, nil
}
