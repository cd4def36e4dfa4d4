package syncer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// APIClient resolves entities against the primary backend API. It is the
// first link of both the read and write chains.
type APIClient struct {
	base   string
	token  string
	client *http.Client
}

func NewAPIClient(base, token string) *APIClient {
	return &APIClient{
		base:   base,
		token:  token,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *APIClient) Provenance() Provenance {
	return ProvenanceServer
}

func (c *APIClient) Fetch(ctx context.Context, collection, id string) (map[string]any, error) {
	return c.do(ctx, http.MethodGet, collection, id, nil)
}

func (c *APIClient) Update(ctx context.Context, collection, id string, fields map[string]any) (map[string]any, error) {
	return c.do(ctx, http.MethodPatch, collection, id, fields)
}

func (c *APIClient) do(ctx context.Context, method, collection, id string, body map[string]any) (map[string]any, error) {
	if c.base == "" {
		return nil, ErrNotConfigured
	}

	var reader *bytes.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(buf)
	} else {
		reader = bytes.NewReader(nil)
	}

	url := fmt.Sprintf("%s/%s/%s", c.base, collection, id)
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: method + " " + url, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("primary api rejected %s: status %d", url, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, &NetworkError{Op: method + " " + url, Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	var fields map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&fields); err != nil {
		return nil, &NetworkError{Op: "decode " + url, Err: err}
	}
	return fields, nil
}
