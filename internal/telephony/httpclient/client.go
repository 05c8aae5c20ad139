package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/acme/agent-ivr/internal/domain"
)

// Client talks to the call service REST surface exposed by cmd/api.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for baseURL, e.g. "http://localhost:8080".
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/") + "/api/v1/calls",
		httpClient: &http.Client{Timeout: timeout},
	}
}

type startCallRequest struct {
	PhoneNumber string `json:"phone_number"`
	CountryCode string `json:"country_code"`
}

// StartCall issues POST /calls.
func (c *Client) StartCall(ctx context.Context, phoneNumber, countryCode string) (domain.CallResult, error) {
	body, err := json.Marshal(startCallRequest{PhoneNumber: phoneNumber, CountryCode: countryCode})
	if err != nil {
		return domain.CallResult{}, fmt.Errorf("call client: marshal start: %w", err)
	}
	return c.do(ctx, http.MethodPost, c.baseURL, body)
}

// EndCall issues POST /calls/{id}/end.
func (c *Client) EndCall(ctx context.Context, callID string) (domain.CallResult, error) {
	return c.do(ctx, http.MethodPost, c.baseURL+"/"+url.PathEscape(callID)+"/end", nil)
}

// GetStatus issues GET /calls/{id}.
func (c *Client) GetStatus(ctx context.Context, callID string) (domain.CallResult, error) {
	return c.do(ctx, http.MethodGet, c.baseURL+"/"+url.PathEscape(callID), nil)
}

// do sends the request and decodes a CallResult. Unsuccessful results are
// returned as results even when the status code is not 2xx.
func (c *Client) do(ctx context.Context, method, endpoint string, body []byte) (domain.CallResult, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return domain.CallResult{}, fmt.Errorf("call client: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.CallResult{}, fmt.Errorf("call client: %s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.CallResult{}, fmt.Errorf("call client: read body: %w", err)
	}

	var result domain.CallResult
	if err := json.Unmarshal(raw, &result); err != nil || result.Message == "" {
		return domain.CallResult{}, fmt.Errorf("call client: unexpected response %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return result, nil
}
