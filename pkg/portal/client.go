package portal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rentfolio/rentfolio-backend/pkg/config"
	pkgerrors "github.com/rentfolio/rentfolio-backend/pkg/errors"
)

const responseBodyReadLimit int64 = 1024

var errBaseURLRequired = errors.New("portal base url is required")

// Notifier pushes tenancy records to the tenant-facing portal service. A
// non-2xx reply is a hard failure; the caller decides whether to retry or
// surface it, this client never retries on its own.
type Notifier interface {
	PushTenancy(ctx context.Context, rec TenancyRecord) error
}

// TenancyRecord is the cross-domain payload for one assignment.
type TenancyRecord struct {
	TenancyID   uuid.UUID `json:"tenancy_id"`
	PropertyID  uuid.UUID `json:"property_id"`
	UnitID      uuid.UUID `json:"unit_id"`
	TenantEmail string    `json:"tenant_email"`
	MoveInDate  string    `json:"move_in_date"`
	MoveOutDate string    `json:"move_out_date,omitempty"`
}

// Client talks to the portal's private API, authenticated with a shared key.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient builds the portal client from config.
func NewClient(cfg config.PortalConfig, opts ...Option) (*Client, error) {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		return nil, errBaseURLRequired
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	client := &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     strings.TrimSpace(cfg.APIKey),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	return client, nil
}

// PushTenancy posts one tenancy record to the portal.
func (c *Client) PushTenancy(ctx context.Context, rec TenancyRecord) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "portal client not configured")
	}
	if rec.TenancyID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "tenancy id is required")
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal tenancy record")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/internal/tenancies", bytes.NewReader(payload))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build portal request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute portal request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail))), "portal request failed")
	}
	return nil
}
