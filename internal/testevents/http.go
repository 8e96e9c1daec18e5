package testevents

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPClient talks JSON to one service instance.
type HTTPClient struct {
	client  *http.Client
	baseURL string
}

// newHTTPClient creates a new HTTP client with timeout.
func newHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// apiError is the service's error body.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// response is a read and closed HTTP response.
type response struct {
	status int
	header http.Header
	body   []byte
}

func (r response) decode(out any) error {
	if err := json.Unmarshal(r.body, out); err != nil {
		return fmt.Errorf("%w: HTTP %d: decode body: %w", ErrUnexpected, r.status, err)
	}
	return nil
}

// expect returns an error unless the status is one of want.
func (r response) expect(want ...int) error {
	for _, w := range want {
		if r.status == w {
			return nil
		}
	}
	var e apiError
	if json.Unmarshal(r.body, &e) == nil && e.Code != "" {
		return fmt.Errorf("%w: HTTP %d %s: %s", ErrUnexpected, r.status, e.Code, e.Message)
	}
	return fmt.Errorf("%w: HTTP %d: %s", ErrUnexpected, r.status, strings.TrimSpace(string(r.body)))
}

// Get performs a GET request.
func (c *HTTPClient) Get(ctx context.Context, path string) (response, error) {
	return c.do(ctx, http.MethodGet, path, nil)
}

// Post performs a POST request with a JSON body. A nil body sends none.
func (c *HTTPClient) Post(ctx context.Context, path string, body any) (response, error) {
	return c.do(ctx, http.MethodPost, path, body)
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body any) (response, error) {
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return response{}, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return response{}, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return response{}, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return response{}, fmt.Errorf("%s %s: read body: %w", method, path, err)
	}
	return response{status: resp.StatusCode, header: resp.Header, body: data}, nil
}

// getJSON fetches path, requires 200 and decodes the body into out.
func (c *HTTPClient) getJSON(ctx context.Context, path string, out any) error {
	resp, err := c.Get(ctx, path)
	if err != nil {
		return err
	}
	if err := resp.expect(http.StatusOK); err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	return resp.decode(out)
}

// postJSON posts body, requires one of want and decodes the reply into out
// when out is not nil.
func (c *HTTPClient) postJSON(ctx context.Context, path string, body, out any, want ...int) error {
	resp, err := c.Post(ctx, path, body)
	if err != nil {
		return err
	}
	if err := resp.expect(want...); err != nil {
		return fmt.Errorf("POST %s: %w", path, err)
	}
	if out == nil {
		return nil
	}
	return resp.decode(out)
}
