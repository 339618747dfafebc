// Package mcpadmin exposes FieldServe operator actions as MCP tools,
// so an LLM operator console can inspect tenants and manage billing
// through the admin API.
package mcpadmin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Config holds the connection settings for the FieldServe admin API.
type Config struct {
	APIURL      string // Base URL, e.g. "http://localhost:8080"
	AdminSecret string // Shared secret for /admin/v1 routes
}

// Client is a pure HTTP client for the FieldServe admin API.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

func NewClient(cfg Config) *Client {
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details string `json:"details"`
}

func (c *Client) doRequest(ctx context.Context, method, path string, body any) (json.RawMessage, error) {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.APIURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-Admin-Secret", c.cfg.AdminSecret)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr apiError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error != "" {
			detail := apiErr.Message
			if detail == "" {
				detail = apiErr.Details
			}
			if detail != "" {
				return nil, fmt.Errorf("API error (%d): %s: %s", resp.StatusCode, apiErr.Error, detail)
			}
			return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, apiErr.Error)
		}
		return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, string(respBody))
	}
	return json.RawMessage(respBody), nil
}

// ListPlans fetches the public plan catalogue.
func (c *Client) ListPlans(ctx context.Context) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodGet, "/v1/plans", nil)
}

// ListTenants fetches all tenants.
func (c *Client) ListTenants(ctx context.Context) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodGet, "/admin/v1/tenants", nil)
}

// BillingStatus fetches the billing snapshot for one tenant.
func (c *Client) BillingStatus(ctx context.Context, tenantID string) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodGet, "/admin/v1/tenants/"+tenantID+"/billing", nil)
}

// UpdateSubscription assigns a plan and billing frequency to a tenant.
func (c *Client) UpdateSubscription(ctx context.Context, tenantID, planID, frequency string) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodPost, "/admin/v1/tenants/"+tenantID+"/subscription", map[string]any{
		"planId":    planID,
		"frequency": frequency,
	})
}

// UpdateSeatCount sets a tenant's paid seat ceiling.
func (c *Client) UpdateSeatCount(ctx context.Context, tenantID string, paidSeats int, force bool) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodPut, "/admin/v1/tenants/"+tenantID+"/seats", map[string]any{
		"paidSeats": paidSeats,
		"force":     force,
	})
}
