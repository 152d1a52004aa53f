package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPDoer defines http.Client interface subset.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// OwnerLookup is the parsed payload returned by the excise registry.
type OwnerLookup struct {
	OwnerName        string  `json:"owner_name"`
	VehicleModel     string  `json:"vehicle_model"`
	RegistrationDate *string `json:"registration_date"`
	RawData          string  `json:"-"`
}

// ExciseClient queries the provincial excise registry for plate ownership.
type ExciseClient struct {
	baseURL string
	client  HTTPDoer
}

// NewExciseClient builds client with base URL.
func NewExciseClient(baseURL string, client HTTPDoer) *ExciseClient {
	return &ExciseClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

// LookupPlate fetches ownership data for a plate. Any transport failure,
// non-200 status, or unparsable body is returned as an error; callers decide
// how to degrade.
func (c *ExciseClient) LookupPlate(ctx context.Context, plate string) (*OwnerLookup, error) {
	endpoint := fmt.Sprintf("%s/search?plate=%s", c.baseURL, url.QueryEscape(plate))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("excise lookup returned status %d", resp.StatusCode)
	}

	var lookup OwnerLookup
	if err := json.Unmarshal(body, &lookup); err != nil {
		return nil, fmt.Errorf("excise lookup parse: %w", err)
	}
	if strings.TrimSpace(lookup.OwnerName) == "" {
		return nil, fmt.Errorf("excise lookup returned no owner for %s", plate)
	}
	lookup.RawData = string(body)
	return &lookup, nil
}

// NewDefaultHTTPClient returns *http.Client with timeout.
func NewDefaultHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}
