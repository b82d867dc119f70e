package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/baccaristic/foodify-restaurant-agent/internal/domain"
	"github.com/baccaristic/foodify-restaurant-agent/internal/session"
	"github.com/baccaristic/foodify-restaurant-agent/internal/token"
)

// AuthClient talks to the auth endpoints. It deliberately bypasses the
// 401-retry layer: a refresh call that triggered another refresh would
// recurse forever.
type AuthClient struct {
	baseURL string
	doer    Doer
	tokens  *token.Store
}

// NewAuthClient creates the auth transport used by the session supervisor.
func NewAuthClient(baseURL string, doer Doer, tokens *token.Store) *AuthClient {
	return &AuthClient{baseURL: strings.TrimRight(baseURL, "/"), doer: doer, tokens: tokens}
}

type loginResponse struct {
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
	User         *domain.User `json:"user"`
}

// Login calls POST /auth/login and returns the issued session.
func (c *AuthClient) Login(ctx context.Context, req session.LoginRequest) (*session.LoginResult, error) {
	var resp loginResponse
	if err := c.post(ctx, "/auth/login", req, &resp); err != nil {
		return nil, err
	}
	return &session.LoginResult{
		Tokens: domain.TokenPair{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken},
		User:   resp.User,
	}, nil
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type refreshResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Refresh calls POST /auth/refresh with the held refresh token.
func (c *AuthClient) Refresh(ctx context.Context, refreshToken string) (domain.TokenPair, error) {
	var resp refreshResponse
	if err := c.post(ctx, "/auth/refresh", refreshRequest{RefreshToken: refreshToken}, &resp); err != nil {
		return domain.TokenPair{}, err
	}
	return domain.TokenPair{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken}, nil
}

// Heartbeat calls GET /auth/heart-beat with the current access token. It is
// a plain liveness probe for the session, so a 401 here is an error like any
// other and never triggers a refresh.
func (c *AuthClient) Heartbeat(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/heart-beat", http.NoBody)
	if err != nil {
		return fmt.Errorf("create heartbeat request: %w", err)
	}
	if access := c.tokens.AccessToken(); access != "" {
		req.Header.Set("Authorization", "Bearer "+access)
	}

	resp, err := c.doer.Do(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("heartbeat status %d", resp.StatusCode)
	}
	return nil
}

func (c *AuthClient) post(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.doer.Do(ctx, req)
	if err != nil {
		return err
	}

	if resp.StatusCode >= 300 {
		return parseResponseError(resp)
	}

	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
