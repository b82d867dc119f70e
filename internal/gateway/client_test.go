package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baccaristic/foodify-restaurant-agent/internal/apperrors"
	"github.com/baccaristic/foodify-restaurant-agent/internal/domain"
	"github.com/baccaristic/foodify-restaurant-agent/internal/token"
)

// --- Stub authorizer ---

type stubAuthorizer struct {
	refreshToken string
	refreshErr   error
	refreshCalls atomic.Int32
	logoutCalls  atomic.Int32
}

func (a *stubAuthorizer) Refresh(context.Context) (string, error) {
	a.refreshCalls.Add(1)
	return a.refreshToken, a.refreshErr
}

func (a *stubAuthorizer) Logout(context.Context) error {
	a.logoutCalls.Add(1)
	return nil
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestTransport() *Transport {
	return NewTransport(TransportConfig{
		Timeout:         5 * time.Second,
		MaxRetries:      0,
		MaxConnsPerHost: 10,
	})
}

func newTestClient(serverURL string, auth Authorizer, tokens *token.Store) *Client {
	return NewClient(serverURL, newTestTransport(), tokens, auth, newTestLogger())
}

// --- Tests ---

func TestClient_AttachesBearerToken(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	tokens := token.NewStore()
	tokens.Set(domain.TokenPair{AccessToken: "access-1", RefreshToken: "r"})
	client := newTestClient(server.URL, &stubAuthorizer{}, tokens)

	_, err := client.ListOrders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer access-1", gotAuth)
}

func TestClient_NoTokenNoHeader(t *testing.T) {
	var hasAuth bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hasAuth = r.Header.Get("Authorization") != ""
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, &stubAuthorizer{}, token.NewStore())

	_, err := client.ListOrders(context.Background())
	require.NoError(t, err)
	assert.False(t, hasAuth)
}

func TestClient_RefreshAndRetryOn401(t *testing.T) {
	var attempts atomic.Int32
	var correlationIDs []string
	var authHeaders []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		correlationIDs = append(correlationIDs, r.Header.Get("X-Correlation-ID"))
		authHeaders = append(authHeaders, r.Header.Get("Authorization"))
		if r.Header.Get("Authorization") != "Bearer fresh-token" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"code":"UNAUTHORIZED","message":"token expired"}}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	tokens := token.NewStore()
	tokens.Set(domain.TokenPair{AccessToken: "stale-token", RefreshToken: "r"})
	auth := &stubAuthorizer{refreshToken: "fresh-token"}
	client := newTestClient(server.URL, auth, tokens)

	_, err := client.ListOrders(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int32(2), attempts.Load())
	assert.Equal(t, int32(1), auth.refreshCalls.Load())
	assert.Zero(t, auth.logoutCalls.Load())

	// The retry is the same logical request: one correlation id, new token.
	require.Len(t, correlationIDs, 2)
	assert.Equal(t, correlationIDs[0], correlationIDs[1])
	assert.Equal(t, "Bearer stale-token", authHeaders[0])
	assert.Equal(t, "Bearer fresh-token", authHeaders[1])
}

func TestClient_SecondUnauthorizedIsNotRetried(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"code":"UNAUTHORIZED","message":"still expired"}}`))
	}))
	defer server.Close()

	tokens := token.NewStore()
	tokens.Set(domain.TokenPair{AccessToken: "stale-token", RefreshToken: "r"})
	auth := &stubAuthorizer{refreshToken: "fresh-token"}
	client := newTestClient(server.URL, auth, tokens)

	_, err := client.ListOrders(context.Background())

	// Exactly two attempts, one refresh, one error for the caller.
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	assert.Equal(t, int32(2), attempts.Load())
	assert.Equal(t, int32(1), auth.refreshCalls.Load())
}

func TestClient_RefreshFailurePropagatesOriginal401(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"code":"UNAUTHORIZED","message":"token expired"}}`))
	}))
	defer server.Close()

	tokens := token.NewStore()
	tokens.Set(domain.TokenPair{AccessToken: "stale-token", RefreshToken: "r"})
	auth := &stubAuthorizer{refreshErr: errors.New("refresh endpoint down")}
	client := newTestClient(server.URL, auth, tokens)

	_, err := client.ListOrders(context.Background())

	// The caller sees "unauthorized", not "refresh failed".
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	assert.NotContains(t, err.Error(), "refresh endpoint down")
	assert.Equal(t, int32(1), attempts.Load())
	assert.Equal(t, int32(1), auth.logoutCalls.Load())
}

func TestClient_LogLinesCarryCorrelationID(t *testing.T) {
	var gotCorrelationID string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCorrelationID = r.Header.Get("X-Correlation-ID")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"code":"UNAUTHORIZED","message":"token expired"}}`))
	}))
	defer server.Close()

	var logBuf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&logBuf, nil))

	tokens := token.NewStore()
	tokens.Set(domain.TokenPair{AccessToken: "stale", RefreshToken: "r"})
	auth := &stubAuthorizer{refreshErr: errors.New("refresh down")}
	client := NewClient(server.URL, newTestTransport(), tokens, auth, log)

	_, err := client.ListOrders(context.Background())
	require.Error(t, err)

	var entry struct {
		Msg           string `json:"msg"`
		CorrelationID string `json:"correlation_id"`
	}
	require.NoError(t, json.Unmarshal(logBuf.Bytes(), &entry))
	assert.Equal(t, "refresh after 401 failed, logging out", entry.Msg)
	require.NotEmpty(t, gotCorrelationID)
	assert.Equal(t, gotCorrelationID, entry.CorrelationID)
}

func TestClient_BusinessErrorSurfacesDirectly(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error":{"code":"ORDER_ALREADY_TAKEN","message":"order already accepted"}}`))
	}))
	defer server.Close()

	tokens := token.NewStore()
	tokens.Set(domain.TokenPair{AccessToken: "a", RefreshToken: "r"})
	auth := &stubAuthorizer{}
	client := newTestClient(server.URL, auth, tokens)

	err := client.AcceptOrder(context.Background(), 42)

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	assert.Contains(t, err.Error(), "order already accepted")
	assert.Zero(t, auth.refreshCalls.Load())
}

func TestClient_DeclineOrderSendsReason(t *testing.T) {
	var gotBody []byte
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	tokens := token.NewStore()
	tokens.Set(domain.TokenPair{AccessToken: "a", RefreshToken: "r"})
	client := newTestClient(server.URL, &stubAuthorizer{}, tokens)

	require.NoError(t, client.DeclineOrder(context.Background(), 42, "kitchen closed"))
	assert.Equal(t, "/orders/42/decline", gotPath)
	assert.JSONEq(t, `{"reason":"kitchen closed"}`, string(gotBody))
}

func TestClient_ListOrdersDecodes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/orders", r.URL.Path)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`[{"orderId":1,"status":"PENDING"},{"orderId":2,"status":"ACCEPTED"}]`))
	}))
	defer server.Close()

	tokens := token.NewStore()
	tokens.Set(domain.TokenPair{AccessToken: "a", RefreshToken: "r"})
	client := newTestClient(server.URL, &stubAuthorizer{}, tokens)

	orders, err := client.ListOrders(context.Background())
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, int64(1), orders[0].ID)
	assert.Equal(t, domain.OrderStatusAccepted, orders[1].Status)
}
