// Package gateway is the outbound REST layer of the agent. It attaches the
// current bearer token to every request and recovers from authorization
// failures with exactly one transparent refresh-and-retry per logical
// request.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/baccaristic/foodify-restaurant-agent/internal/logger"
	"github.com/baccaristic/foodify-restaurant-agent/internal/token"
)

// Doer abstracts the retrying transport (with or without the breaker).
type Doer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Authorizer is the refresh/logout capability pair the client uses to
// recover from a 401. Refresh returns the new access token; on any failure
// the client invokes Logout and propagates the original 401.
type Authorizer interface {
	Refresh(ctx context.Context) (string, error)
	Logout(ctx context.Context) error
}

// Client is the authenticated REST client.
type Client struct {
	baseURL string
	doer    Doer
	tokens  *token.Store
	auth    Authorizer
	log     *slog.Logger
}

// NewClient creates an authenticated REST client for the given base URL.
func NewClient(baseURL string, doer Doer, tokens *token.Store, auth Authorizer, log *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		doer:    doer,
		tokens:  tokens,
		auth:    auth,
		log:     log,
	}
}

// call performs one logical request: marshal in, send with the current
// bearer token, decode into out. On a 401 the registered refresh capability
// is invoked once; a fresh token resubmits the exact same request a single
// time, anything else logs the session out and surfaces the original 401.
func (c *Client) call(ctx context.Context, method, path string, in, out any) error {
	var payload []byte
	if in != nil {
		var err error
		payload, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
	}

	// One correlation id per logical request, shared by the retry and by
	// every log line emitted on this path.
	correlationID := uuid.NewString()
	ctx = logger.WithCorrelationID(ctx, correlationID)
	log := logger.WithContext(ctx, c.log)

	resp, err := c.send(ctx, method, path, payload, correlationID, c.tokens.AccessToken())
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		origErr := parseResponseError(resp)

		access, refreshErr := c.auth.Refresh(ctx)
		if refreshErr != nil || access == "" {
			// Refresh failures are swallowed in favor of the original 401;
			// the caller sees "unauthorized", not "refresh failed".
			log.Warn("refresh after 401 failed, logging out",
				slog.String("path", path),
			)
			_ = c.auth.Logout(ctx)
			return origErr
		}

		log.Debug("retrying request with refreshed token", slog.String("path", path))
		resp, err = c.send(ctx, method, path, payload, correlationID, access)
		if err != nil {
			return err
		}
		// A second 401 falls through to the generic error path below;
		// retry amplification is bounded to one extra attempt.
	}

	if resp.StatusCode >= 300 {
		return parseResponseError(resp)
	}

	if out == nil {
		_ = resp.Body.Close()
		return nil
	}

	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// send builds and executes a single request attempt.
func (c *Client) send(ctx context.Context, method, path string, payload []byte, correlationID, accessToken string) (*http.Response, error) {
	var body *bytes.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Correlation-ID", correlationID)
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	return c.doer.Do(ctx, req)
}
