package holiday

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/warp/oncall-ledger/generic"
)

const (
	// DefaultFeiertageURL is the public German holiday API.
	DefaultFeiertageURL = "https://feiertage-api.de/api/"

	// DefaultTimeout bounds a single holiday request.
	DefaultTimeout = 5 * time.Second

	// maxResponseBytes caps how much of a response body is read.
	maxResponseBytes = 1 << 20
)

// FeiertageSource queries feiertage-api.de:
//
//	GET {BaseURL}?jahr=2025&nur_land=NW
//	{"Neujahrstag": {"datum": "2025-01-01", "hinweis": ""}, ...}
type FeiertageSource struct {
	BaseURL string
	Client  *http.Client
}

var _ Source = (*FeiertageSource)(nil)

// NewFeiertageSource creates a client with a fixed request timeout.
// An empty baseURL selects DefaultFeiertageURL; timeout <= 0 selects DefaultTimeout.
func NewFeiertageSource(baseURL string, timeout time.Duration) *FeiertageSource {
	if baseURL == "" {
		baseURL = DefaultFeiertageURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &FeiertageSource{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: timeout},
	}
}

type feiertagJSON struct {
	Datum   string `json:"datum"`
	Hinweis string `json:"hinweis"`
}

// Fetch performs one blocking request. It does not retry.
func (s *FeiertageSource) Fetch(ctx context.Context, year int, jurisdiction string) ([]Holiday, error) {
	u, err := url.Parse(s.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid holiday api url: %w", err)
	}
	q := u.Query()
	q.Set("jahr", strconv.Itoa(year))
	q.Set("nur_land", jurisdiction)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var payload map[string]feiertagJSON
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&payload); err != nil {
		return nil, fmt.Errorf("malformed response: %w", err)
	}
	if payload == nil {
		return nil, fmt.Errorf("malformed response: not an object")
	}

	holidays := make([]Holiday, 0, len(payload))
	for name, f := range payload {
		d, err := generic.ParseDate("datum", f.Datum)
		if err != nil {
			return nil, fmt.Errorf("malformed holiday %q: %w", name, err)
		}
		holidays = append(holidays, Holiday{Date: d, Name: name, Jurisdiction: jurisdiction})
	}
	return holidays, nil
}
