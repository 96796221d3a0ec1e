// Package client is a small Spotify Web API client covering the player
// and catalog endpoints the mixer needs.
package client

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
	"sync"
	"time"

	"go.uber.org/zap"

	rerrors "github.com/tessro/riffdeck/internal/errors"
	"github.com/tessro/riffdeck/internal/logging"
	"github.com/tessro/riffdeck/internal/spotify/auth"
)

const (
	// BaseURL is the Spotify Web API base URL.
	BaseURL = "https://api.spotify.com/v1"

	// Retry configuration for transient errors
	maxRetries    = 3
	baseRetryWait = 500 * time.Millisecond
	maxRetryWait  = 10 * time.Second
)

// Client is a Spotify API client.
type Client struct {
	httpClient *http.Client
	baseURL    string
	clientID   string
	storage    *auth.TokenStorage
	refresh    auth.RefreshFunc
	logger     *zap.Logger

	mu    sync.RWMutex
	token *auth.Token
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger used for request tracing.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		c.logger = logging.OrNop(l).Named("spotify")
	}
}

// WithBaseURL points the client at another API root, e.g. a test server.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = u
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.httpClient = h
	}
}

// WithRefresher replaces the refresh-token grant.
func WithRefresher(fn auth.RefreshFunc) Option {
	return func(c *Client) {
		c.refresh = fn
	}
}

// New creates a new Spotify client.
func New(clientID string, storage *auth.TokenStorage, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    BaseURL,
		clientID:   clientID,
		storage:    storage,
		refresh:    auth.RefreshAccessToken,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// LoadToken loads the token from storage. A missing token file is
// ErrNotAuthenticated.
func (c *Client) LoadToken() error {
	token, err := c.storage.Load()
	if err != nil {
		return err
	}
	if token == nil {
		return fmt.Errorf("%w: no token at %s", rerrors.ErrNotAuthenticated, c.storage.Path())
	}
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
	return nil
}

// Token returns the current token, or nil.
func (c *Client) Token() *auth.Token {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// IsAuthenticated returns true if there's a valid (non-expired) token.
func (c *Client) IsAuthenticated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token != nil && !c.token.IsExpired()
}

// RefreshToken refreshes the access token if it has expired and saves the
// new one.
func (c *Client) RefreshToken(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token == nil {
		return rerrors.ErrNotAuthenticated
	}
	if !c.token.IsExpired() {
		return nil
	}

	newToken, err := c.refresh(ctx, c.clientID, c.token.RefreshToken)
	if err != nil {
		return fmt.Errorf("%w: failed to refresh token: %v", rerrors.ErrNotAuthenticated, err)
	}
	if newToken.RefreshToken == "" {
		newToken.RefreshToken = c.token.RefreshToken
	}

	c.token = newToken
	c.logger.Debug("access token refreshed", zap.Time("expires_at", newToken.ExpiresAt))
	return c.storage.Save(newToken)
}

// getToken returns the current access token, refreshing if needed.
func (c *Client) getToken(ctx context.Context) (string, error) {
	if err := c.RefreshToken(ctx); err != nil {
		return "", err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token.AccessToken, nil
}

// Get performs a GET request to the Spotify API.
func (c *Client) Get(ctx context.Context, path string, result any) error {
	return c.request(ctx, http.MethodGet, path, nil, result)
}

// Put performs a PUT request to the Spotify API.
func (c *Client) Put(ctx context.Context, path string, body any, result any) error {
	return c.request(ctx, http.MethodPut, path, body, result)
}

func (c *Client) request(ctx context.Context, method, path string, body any, result any) error {
	token, err := c.getToken(ctx)
	if err != nil {
		return err
	}

	var jsonBody []byte
	if body != nil {
		jsonBody, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	fullURL := c.baseURL + path
	log := c.logger.With(zap.String("method", method), zap.String("url", fullURL))
	log.Debug("request", zap.ByteString("body", jsonBody))

	var lastErr error
	var wait time.Duration
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			if wait == 0 {
				wait = baseRetryWait * time.Duration(1<<(attempt-1))
			}
			log.Debug("retrying", zap.Int("attempt", attempt), zap.Duration("wait", wait), zap.Error(lastErr))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
			wait = 0
		}

		var bodyReader io.Reader
		if jsonBody != nil {
			bodyReader = bytes.NewReader(jsonBody)
		}

		req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = fmt.Errorf("%w: %v", rerrors.ErrNetworkError, err)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("%w: failed to read response: %v", rerrors.ErrNetworkError, err)
			continue
		}

		log.Debug("response", zap.Int("status", resp.StatusCode))

		switch {
		case resp.StatusCode == http.StatusNoContent:
			return nil
		case resp.StatusCode == http.StatusTooManyRequests:
			lastErr = parseAPIError(resp.StatusCode, respBody)
			wait = retryAfter(resp.Header.Get("Retry-After"))
			continue
		case resp.StatusCode >= 500:
			lastErr = parseAPIError(resp.StatusCode, respBody)
			continue
		case resp.StatusCode >= 400:
			log.Debug("api error", zap.ByteString("body", respBody))
			return parseAPIError(resp.StatusCode, respBody)
		}

		if result != nil && len(respBody) > 0 {
			if err := json.Unmarshal(respBody, result); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}
		}
		return nil
	}

	return fmt.Errorf("request failed after %d retries: %w", maxRetries, lastErr)
}

// retryAfter parses a Retry-After header in seconds.
func retryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(v)
	if err != nil || secs <= 0 {
		return 0
	}
	d := time.Duration(secs) * time.Second
	if d > maxRetryWait {
		d = maxRetryWait
	}
	return d
}

// APIError represents a Spotify API error response.
type APIError struct {
	ErrorInfo struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
		Reason  string `json:"reason,omitempty"`
	} `json:"error"`
}

func parseAPIError(status int, body []byte) *APIError {
	var apiErr APIError
	if err := json.Unmarshal(body, &apiErr); err != nil || apiErr.ErrorInfo.Message == "" {
		apiErr.ErrorInfo.Message = http.StatusText(status)
	}
	apiErr.ErrorInfo.Status = status
	return &apiErr
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Spotify API error %d: %s", e.ErrorInfo.Status, e.ErrorInfo.Message)
}

// Unwrap maps the response onto the shared sentinel errors.
func (e *APIError) Unwrap() error {
	switch {
	case e.ErrorInfo.Status == http.StatusUnauthorized:
		return rerrors.ErrNotAuthenticated
	case e.ErrorInfo.Reason == "PREMIUM_REQUIRED":
		return rerrors.ErrPremiumRequired
	case e.ErrorInfo.Reason == "NO_ACTIVE_DEVICE", e.ErrorInfo.Status == http.StatusNotFound:
		return rerrors.ErrNoActiveDevice
	case e.ErrorInfo.Status == http.StatusTooManyRequests:
		return rerrors.ErrRateLimited
	default:
		return nil
	}
}

// IsAlreadyPlayingError checks if an error is a 403 "restriction violated" error,
// which occurs when trying to resume playback that is already active.
func IsAlreadyPlayingError(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorInfo.Status == http.StatusForbidden && apiErr.ErrorInfo.Reason != "PREMIUM_REQUIRED"
	}
	return false
}

// BuildURL builds a URL with query parameters.
func BuildURL(path string, params map[string]string) string {
	if len(params) == 0 {
		return path
	}

	u, _ := url.Parse(path)
	q := u.Query()
	for k, v := range params {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String()
}
