// Package accounting notifies the ARTCC website API when a controller opens a
// new session.
package accounting

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient returns a client for the API at baseURL. An empty baseURL gives
// a client that does nothing.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *Client) Enabled() bool {
	return c.baseURL != ""
}

// SessionOpened reports a new session for cid.
func (c *Client) SessionOpened(ctx context.Context, cid int) error {
	if !c.Enabled() {
		return nil
	}

	url := fmt.Sprintf("%s/stats/fifty/%d", c.baseURL, cid)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("posting session for %d: %w", cid, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status code %d from %s", resp.StatusCode, url)
	}
	return nil
}
