// Package vatsim fetches the network data feed and METAR text.
package vatsim

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultDataURL  = "https://data.vatsim.net/v3/vatsim-data.json"
	DefaultMetarURL = "https://metar.vatsim.net"

	maxBodyBytes = 32 << 20
)

type Client struct {
	dataURL    string
	metarURL   string
	httpClient *http.Client
}

// NewClient returns a client whose requests each give up after timeout.
// Empty URLs fall back to the public VATSIM endpoints.
func NewClient(dataURL, metarURL string, timeout time.Duration) *Client {
	if dataURL == "" {
		dataURL = DefaultDataURL
	}
	if metarURL == "" {
		metarURL = DefaultMetarURL
	}
	return &Client{
		dataURL:  dataURL,
		metarURL: strings.TrimRight(metarURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Data fetches and decodes the current network snapshot.
func (c *Client) Data(ctx context.Context) (*Data, error) {
	body, err := c.get(ctx, c.dataURL)
	if err != nil {
		return nil, err
	}

	data := &Data{}
	if err := json.Unmarshal(body, data); err != nil {
		return nil, fmt.Errorf("unmarshal data feed: %w", err)
	}
	return data, nil
}

// Metars fetches one METAR line per airport. Blank lines are dropped.
func (c *Client) Metars(ctx context.Context, airports []string) ([]string, error) {
	if len(airports) == 0 {
		return nil, nil
	}

	body, err := c.get(ctx, c.metarURL+"/"+strings.Join(airports, ","))
	if err != nil {
		return nil, err
	}

	var metars []string
	scanner := bufio.NewScanner(bytes.NewReader(body))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		metars = append(metars, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading metars: %w", err)
	}
	return metars, nil
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status code %d from %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading body from %s: %w", url, err)
	}
	return body, nil
}
