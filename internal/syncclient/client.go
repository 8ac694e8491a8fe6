// Package syncclient is the HTTP client for the remote system-of-record.
// Pushes are fire-and-forget appends; every other endpoint is a
// side-effect-free read used to build local replicas.
package syncclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/tillworks/till/internal/models"
)

// Sentinel errors for common HTTP error classes.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
)

// Client talks to the remote sync server.
type Client struct {
	BaseURL  string
	APIKey   string
	DeviceID string
	HTTP     *http.Client
}

// New creates a sync client with a bounded request timeout so a hung remote
// never wedges the flush loop.
func New(baseURL, apiKey, deviceID string) *Client {
	return &Client{
		BaseURL:  baseURL,
		APIKey:   apiKey,
		DeviceID: deviceID,
		HTTP:     &http.Client{Timeout: 10 * time.Second},
	}
}

// pushRequest is the body for POST /sync/events.
type pushRequest struct {
	EventID   string          `json:"event_id"`
	EventType string          `json:"event_type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt string          `json:"created_at"`
	DeviceID  string          `json:"device_id,omitempty"`
}

// PushEvent sends one queued event to the remote system-of-record. Any 2xx
// response is success; network failures, non-2xx statuses, and serialization
// problems all come back as a plain error — the queue engine treats every
// push failure identically.
func (c *Client) PushEvent(ctx context.Context, ev models.SyncEvent) error {
	body := pushRequest{
		EventID:   ev.ID,
		EventType: string(ev.Type),
		Payload:   ev.Payload,
		CreatedAt: ev.CreatedAt.UTC().Format(time.RFC3339Nano),
		DeviceID:  c.DeviceID,
	}
	return c.do(ctx, "POST", "/sync/events", body, nil)
}

// inventoryViewResponse mirrors the remote inventory view body.
type inventoryViewResponse struct {
	TenantID string                 `json:"tenant_id"`
	Items    []models.InventoryItem `json:"items"`
}

// InventoryView fetches the remote read-only inventory for a tenant.
func (c *Client) InventoryView(ctx context.Context, tenantID string) (*models.InventoryView, error) {
	var resp inventoryViewResponse
	if err := c.do(ctx, "GET", "/inventory/view/tenant/"+url.PathEscape(tenantID), nil, &resp); err != nil {
		return nil, err
	}
	return &models.InventoryView{TenantID: resp.TenantID, Items: resp.Items}, nil
}

// ledgerViewResponse mirrors the remote ledger view body.
type ledgerViewResponse struct {
	TenantID string               `json:"tenant_id"`
	Entries  []models.LedgerEntry `json:"entries"`
}

// LedgerView fetches the most recent remote ledger entries for a tenant.
func (c *Client) LedgerView(ctx context.Context, tenantID string, limit int) (*models.LedgerView, error) {
	path := "/ledger/view/tenant/" + url.PathEscape(tenantID)
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var resp ledgerViewResponse
	if err := c.do(ctx, "GET", path, nil, &resp); err != nil {
		return nil, err
	}
	return &models.LedgerView{TenantID: resp.TenantID, Entries: resp.Entries}, nil
}

// syncStatusResponse mirrors the remote sync status body.
type syncStatusResponse struct {
	TenantID      string  `json:"tenant_id"`
	EventCount    int64   `json:"event_count"`
	LastEventTime *string `json:"last_event_time,omitempty"`
}

// SyncStatus fetches the remote side's view of received events.
func (c *Client) SyncStatus(ctx context.Context, tenantID string) (*models.RemoteSyncStatus, error) {
	var resp syncStatusResponse
	if err := c.do(ctx, "GET", "/sync/status/tenant/"+url.PathEscape(tenantID), nil, &resp); err != nil {
		return nil, err
	}
	status := &models.RemoteSyncStatus{TenantID: resp.TenantID, EventCount: resp.EventCount}
	if resp.LastEventTime != nil {
		if ts, err := time.Parse(time.RFC3339Nano, *resp.LastEventTime); err == nil {
			status.LastEventTime = &ts
		}
	}
	return status, nil
}

// HealthCheck hits /healthz; a nil error means the remote is reachable.
// Used by the connectivity monitor as its probe.
func (c *Client) HealthCheck(ctx context.Context) error {
	return c.do(ctx, "GET", "/healthz", nil, nil)
}

// apiError is the standard error body from the server.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *apiError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Code
}

func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	// Only 2xx is success. Redirects the transport did not follow are
	// failures too, not silent no-ops.
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr apiError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Code != "" {
			switch resp.StatusCode {
			case http.StatusUnauthorized:
				return fmt.Errorf("%w: %s", ErrUnauthorized, apiErr.Message)
			case http.StatusForbidden:
				return fmt.Errorf("%w: %s", ErrForbidden, apiErr.Message)
			case http.StatusNotFound:
				return fmt.Errorf("%w: %s", ErrNotFound, apiErr.Message)
			default:
				return &apiErr
			}
		}
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}
