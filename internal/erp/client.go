// Package erp talks to the external procurement system's HTTP API. It owns
// authentication, a short-lived line cache, and the quirks of the API's
// response envelopes; the rest of the codebase only sees clean record slices.
package erp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"po-reconciliation-service/internal/models"
	"po-reconciliation-service/pkg/errors"
	"po-reconciliation-service/pkg/logger"
)

// Config holds the connection settings for the external procurement API
type Config struct {
	BaseURL      string        `json:"base_url"`
	ClientID     string        `json:"client_id"`
	ClientSecret string        `json:"-"`
	Timeout      time.Duration `json:"timeout"`
	CacheTTL     time.Duration `json:"cache_ttl"`
}

// DefaultConfig returns the production defaults. The cache TTL matches how
// long a fetched order is considered current during interactive use.
func DefaultConfig() *Config {
	return &Config{
		Timeout:  30 * time.Second,
		CacheTTL: 5 * time.Minute,
	}
}

// Validate checks the configuration
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return errors.ConfigurationError(errors.CodeMissingConfig, "erp.base_url", nil, nil)
	}
	if c.ClientID == "" || c.ClientSecret == "" {
		return errors.ConfigurationError(errors.CodeMissingConfig, "erp.credentials", nil, nil)
	}
	return nil
}

// Client is an authenticated client for the procurement API. Safe for
// concurrent use.
type Client struct {
	config     *Config
	httpClient *http.Client
	cache      *lineCache
	logger     logger.Logger

	tokenMu      sync.Mutex
	token        string
	tokenExpires time.Time
}

// NewClient creates a client. The configuration must validate.
func NewClient(config *Config, log logger.Logger) (*Client, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		cache:      newLineCache(config.CacheTTL),
		logger:     log.WithComponent("erp"),
	}, nil
}

// tokenResponse is the auth endpoint's payload
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// accessToken returns a valid bearer token, requesting a new one when the
// cached token is missing or within a minute of expiry.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()

	if c.token != "" && time.Until(c.tokenExpires) > time.Minute {
		return c.token, nil
	}

	body, err := json.Marshal(map[string]string{
		"client_id":     c.config.ClientID,
		"client_secret": c.config.ClientSecret,
		"grant_type":    "client_credentials",
	})
	if err != nil {
		return "", errors.InternalError(errors.CodeUnexpectedError, "encoding auth request", err)
	}

	endpoint := c.config.BaseURL + "/api/auth/token"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", errors.FetchError(errors.CodeRequestFailed, endpoint, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errors.FetchError(errors.CodeRequestFailed, endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errors.FetchError(errors.CodeAuthFailed, endpoint,
			fmt.Errorf("auth returned status %d", resp.StatusCode))
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", errors.FetchError(errors.CodeBadResponse, endpoint, err)
	}
	if tr.AccessToken == "" {
		return "", errors.FetchError(errors.CodeAuthFailed, endpoint,
			fmt.Errorf("auth response carried no token"))
	}

	c.token = tr.AccessToken
	c.tokenExpires = time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	c.logger.WithField("expires_in", tr.ExpiresIn).Debug("Refreshed access token")
	return c.token, nil
}

// OrderLines returns the purchase-order lines for an external order id.
// Fresh cached lines are reused unless ForceRefresh is set; CacheOnly never
// touches the network and accepts stale entries, failing when nothing is
// cached at all.
func (c *Client) OrderLines(ctx context.Context, externalOrderID string, opts models.FetchOptions) ([]models.RemoteLineRecord, error) {
	if cached, fresh, ok := c.cache.get(externalOrderID); ok {
		if opts.CacheOnly || (fresh && !opts.ForceRefresh) {
			return cached, nil
		}
	} else if opts.CacheOnly {
		return nil, errors.FetchError(errors.CodeRequestFailed, "cache",
			fmt.Errorf("no cached lines for order %s", externalOrderID))
	}

	path := fmt.Sprintf("/api/purchaseorders/%s/lines", externalOrderID)
	body, err := c.getJSON(ctx, path)
	if err != nil {
		return nil, err
	}

	lines, err := decodeLineEnvelope(body)
	if err != nil {
		return nil, errors.FetchError(errors.CodeBadResponse, path, err)
	}

	c.cache.put(externalOrderID, lines)
	c.logger.WithFields(logger.Fields{
		"external_order_id": externalOrderID,
		"lines":             len(lines),
	}).Debug("Fetched remote order lines")
	return lines, nil
}

// OrderHeader returns the remote order header, primarily to learn its current
// status and totals.
func (c *Client) OrderHeader(ctx context.Context, externalOrderID string) (*RemoteOrderHeader, error) {
	path := fmt.Sprintf("/api/purchaseorders/%s", externalOrderID)
	body, err := c.getJSON(ctx, path)
	if err != nil {
		return nil, err
	}

	var envelope struct {
		Data json.RawMessage `json:"Data"`
	}
	payload := body
	if err := json.Unmarshal(body, &envelope); err == nil && len(envelope.Data) > 0 {
		payload = envelope.Data
	}

	var header RemoteOrderHeader
	if err := json.Unmarshal(payload, &header); err != nil {
		return nil, errors.FetchError(errors.CodeBadResponse, path, err)
	}
	return &header, nil
}

// Invalidate drops any cached lines for an order, forcing the next read to
// hit the API.
func (c *Client) Invalidate(externalOrderID string) {
	c.cache.invalidate(externalOrderID)
}

// RemoteOrderHeader is the external system's order header shape
type RemoteOrderHeader struct {
	PurchaseOrderID string  `json:"PurchaseOrderId"`
	Number          string  `json:"Number"`
	Status          string  `json:"Status"`
	Total           float64 `json:"Total"`
	VendorName      string  `json:"VendorName"`
}

// getJSON performs an authenticated GET and returns the raw body
func (c *Client) getJSON(ctx context.Context, path string) ([]byte, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	endpoint := c.config.BaseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.FetchError(errors.CodeRequestFailed, endpoint, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.FetchError(errors.CodeRequestFailed, endpoint, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode >= 500:
		return nil, errors.FetchError(errors.CodeServiceUnavailable, endpoint,
			fmt.Errorf("status %d", resp.StatusCode))
	default:
		return nil, errors.FetchError(errors.CodeRequestFailed, endpoint,
			fmt.Errorf("status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.FetchError(errors.CodeBadResponse, endpoint, err)
	}
	return body, nil
}

// decodeLineEnvelope unwraps the API's line payload. Depending on endpoint
// version the lines arrive as {"Data": [ {...} ]} or doubly nested as
// {"Data": [[ {...} ]]}; both forms are accepted, as is a bare array.
func decodeLineEnvelope(body []byte) ([]models.RemoteLineRecord, error) {
	var envelope struct {
		Data json.RawMessage `json:"Data"`
	}
	payload := json.RawMessage(body)
	if err := json.Unmarshal(body, &envelope); err == nil && len(envelope.Data) > 0 {
		payload = envelope.Data
	}

	var lines []models.RemoteLineRecord
	if err := json.Unmarshal(payload, &lines); err == nil {
		return lines, nil
	}

	var nested [][]models.RemoteLineRecord
	if err := json.Unmarshal(payload, &nested); err != nil {
		return nil, fmt.Errorf("unrecognized line payload: %w", err)
	}

	lines = nil
	for _, batch := range nested {
		lines = append(lines, batch...)
	}
	return lines, nil
}
