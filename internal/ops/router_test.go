package ops

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baccaristic/foodify-restaurant-agent/internal/alerts"
	"github.com/baccaristic/foodify-restaurant-agent/internal/board"
	"github.com/baccaristic/foodify-restaurant-agent/internal/domain"
)

func newTestRouter(h *Health) (http.Handler, *board.Board, *alerts.Queue) {
	b := board.New()
	q := alerts.NewQueue()
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewRouter(h, b, q, log), b, q
}

func TestRouter_Liveness(t *testing.T) {
	router, _, _ := newTestRouter(NewHealth())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, StatusUp, resp.Status)
}

func TestRouter_ReadinessReflectsChecks(t *testing.T) {
	health := NewHealth()
	health.Register("backend", func(ctx context.Context) error { return nil })
	health.Register("realtime", func(ctx context.Context) error { return errors.New("channel down") })
	router, _, _ := newTestRouter(health)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, StatusDown, resp.Status)
	assert.Equal(t, StatusUp, resp.Checks["backend"].Status)
	assert.Equal(t, "channel down", resp.Checks["realtime"].Error)
}

func TestRouter_OrdersView(t *testing.T) {
	router, b, _ := newTestRouter(NewHealth())
	b.ApplySnapshot([]domain.OrderNotification{
		{ID: 1, Status: domain.OrderStatusPending},
		{ID: 2, Status: domain.OrderStatusAccepted},
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var orders []domain.OrderNotification
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &orders))
	require.Len(t, orders, 2)
	assert.Equal(t, int64(1), orders[0].ID)
}

func TestRouter_AlertsView(t *testing.T) {
	router, _, q := newTestRouter(NewHealth())
	q.Push(domain.OrderNotification{ID: 10})
	q.Push(domain.OrderNotification{ID: 11})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/alerts", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var view struct {
		Active *domain.OrderNotification  `json:"active"`
		Queued []domain.OrderNotification `json:"queued"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	require.NotNil(t, view.Active)
	assert.Equal(t, int64(10), view.Active.ID)
	require.Len(t, view.Queued, 1)
	assert.Equal(t, int64(11), view.Queued[0].ID)
}

func TestRouter_MetricsExposed(t *testing.T) {
	router, _, _ := newTestRouter(NewHealth())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
