package portpro

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrVendorUnavailable marks transport failures and 5xx responses from the
// PortPro API. Callers schedule these for retry with a longer backoff.
var ErrVendorUnavailable = errors.New("portpro api unavailable")

// Client is the PortPro pull API client used by poll sync and reconciliation.
type Client struct {
	BaseURL string
	APIKey  string
	http    *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// FetchLoads pulls one page of load records with skip/limit pagination.
func (c *Client) FetchLoads(ctx context.Context, skip, limit int) ([]VendorLoad, error) {
	url := fmt.Sprintf("%s/loads?skip=%d&limit=%d", c.BaseURL, skip, limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build loads request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrVendorUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrVendorUnavailable, err)
	}

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: HTTP %d", ErrVendorUnavailable, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("portpro loads request failed: HTTP %d: %s", resp.StatusCode, string(body))
	}

	var list LoadList
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("decode loads response: %w", err)
	}
	return list.Data, nil
}
