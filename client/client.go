package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"rummage/db/searchdb"
)

const searchEndpoint = "/api/search"

// Client is the transport half of the query dispatcher: one query string
// in, one POST out, the decoded pairs back. It keeps no state between
// searches and never retries.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string) *Client {
	return NewWithHTTPClient(baseURL, &http.Client{})
}

func NewWithHTTPClient(baseURL string, httpClient *http.Client) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// Search sends the verbatim query as a text/plain body and decodes the
// response as a bare JSON array of [path, rank] pairs. The status code is
// not inspected; a non-JSON error body surfaces as a decode failure.
func (c *Client) Search(ctx context.Context, query string) ([]searchdb.Pair, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+searchEndpoint, strings.NewReader(query))
	if err != nil {
		return nil, fmt.Errorf("could not build search request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	var pairs []searchdb.Pair
	if err := json.NewDecoder(resp.Body).Decode(&pairs); err != nil {
		return nil, fmt.Errorf("could not decode search response: %w", err)
	}

	return pairs, nil
}
