// Package app wires the agent together and binds the session's
// authentication state to the realtime channel lifecycle.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/baccaristic/foodify-restaurant-agent/internal/alerts"
	"github.com/baccaristic/foodify-restaurant-agent/internal/board"
	"github.com/baccaristic/foodify-restaurant-agent/internal/config"
	"github.com/baccaristic/foodify-restaurant-agent/internal/domain"
	"github.com/baccaristic/foodify-restaurant-agent/internal/gateway"
	"github.com/baccaristic/foodify-restaurant-agent/internal/ops"
	"github.com/baccaristic/foodify-restaurant-agent/internal/realtime"
	"github.com/baccaristic/foodify-restaurant-agent/internal/session"
	"github.com/baccaristic/foodify-restaurant-agent/internal/token"
	"github.com/baccaristic/foodify-restaurant-agent/internal/vault"
)

// refreshAhead is how long before access-token expiry a proactive refresh
// is attempted.
const refreshAhead = time.Minute

// App owns the agent's long-lived components.
type App struct {
	cfg *config.Config
	log *slog.Logger

	tokens     *token.Store
	supervisor *session.Supervisor
	api        *gateway.Client
	manager    *realtime.Manager
	alerts     *alerts.Queue
	board      *board.Board

	opsServer *http.Server
}

// NewApp creates the agent with all dependencies wired.
func NewApp(cfg *config.Config, log *slog.Logger) (*App, error) {
	tokens := token.NewStore()

	var credVault vault.Vault
	if cfg.VaultRedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.VaultRedisAddr})
		credVault = vault.NewRedisVault(client, cfg.VaultRedisKey)
		log.Info("using redis credential vault", slog.String("addr", cfg.VaultRedisAddr))
	} else {
		credVault = vault.NewFileVault(cfg.VaultPath)
	}

	transport := gateway.NewTransport(gateway.TransportConfig{
		Timeout:         cfg.HTTPTimeout,
		MaxRetries:      cfg.HTTPMaxRetries,
		RetryWaitMin:    time.Second,
		RetryWaitMax:    5 * time.Second,
		MaxConnsPerHost: 10,
	})

	authClient := gateway.NewAuthClient(cfg.APIBaseURL, transport, tokens)
	supervisor := session.NewSupervisor(authClient, credVault, tokens, log)

	breaker := gateway.NewBreaker(transport, gateway.DefaultBreakerConfig("foodify-api"), log)
	api := gateway.NewClient(cfg.APIBaseURL, breaker, tokens, supervisor, log)

	var queueOpts []alerts.Option
	if cfg.AlertDedup {
		queueOpts = append(queueOpts, alerts.WithDeduplication())
	}
	alertQueue := alerts.NewQueue(queueOpts...)
	orderBoard := board.New()

	manager := realtime.NewManager(log)

	a := &App{
		cfg:        cfg,
		log:        log,
		tokens:     tokens,
		supervisor: supervisor,
		api:        api,
		manager:    manager,
		alerts:     alertQueue,
		board:      orderBoard,
	}

	// The supervisor drives the channel: connect when authenticated flips
	// true, disconnect (and drop client-side order state) when it flips
	// false. The channel itself has no opinion about when it should exist.
	supervisor.OnStateChange(func(authenticated bool) {
		if authenticated {
			a.connect()
			return
		}
		manager.Disconnect()
		alertQueue.Reset()
		orderBoard.Reset()
	})

	health := ops.NewHealth()
	health.Register("backend", func(ctx context.Context) error {
		if !supervisor.Heartbeat(ctx) {
			return fmt.Errorf("heartbeat failed")
		}
		return nil
	})
	health.Register("realtime", func(ctx context.Context) error {
		if supervisor.Authenticated() && !manager.Active() {
			return fmt.Errorf("channel down while authenticated")
		}
		return nil
	})

	a.opsServer = &http.Server{
		Addr:         cfg.OpsAddr,
		Handler:      ops.NewRouter(health, orderBoard, alertQueue, log),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return a, nil
}

// Supervisor exposes the session supervisor (login/logout entry points).
func (a *App) Supervisor() *session.Supervisor { return a.supervisor }

// API exposes the authenticated REST client (order actions).
func (a *App) API() *gateway.Client { return a.api }

// Alerts exposes the pending new-order alert queue.
func (a *App) Alerts() *alerts.Queue { return a.alerts }

// Board exposes the client-side orders view.
func (a *App) Board() *board.Board { return a.board }

// Manager exposes the realtime channel lifecycle manager.
func (a *App) Manager() *realtime.Manager { return a.manager }

// connect opens the realtime channel for the authenticated user.
func (a *App) connect() {
	user := a.supervisor.User()
	if user == nil {
		return
	}

	a.manager.Connect(realtime.Config{
		URL:               a.cfg.RealtimeURL,
		UserID:            user.ID,
		TokenSource:       a.tokens.AccessToken,
		MinReconnectDelay: a.cfg.ReconnectMinDelay,
		MaxReconnectDelay: a.cfg.ReconnectMaxDelay,
		Logger:            a.log,
		Callbacks: realtime.Callbacks{
			OnSnapshot: a.board.ApplySnapshot,
			OnUpdate:   a.board.ApplyUpdate,
			OnNew: func(order domain.OrderNotification) {
				a.board.ApplyUpdate(order)
				a.alerts.Push(order)
				a.log.Info("new order", slog.Int64("order_id", order.ID))
			},
			OnError: func(err error) {
				a.log.Warn("realtime error", slog.String("error", err.Error()))
			},
			OnDisconnect: func() {
				a.log.Info("realtime disconnected")
			},
		},
	})
}

// Run hydrates the session, starts the ops server and the proactive refresh
// loop, then blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	if err := a.supervisor.Hydrate(ctx); err != nil {
		return fmt.Errorf("hydrate session: %w", err)
	}
	a.log.Info("session state after hydrate", slog.String("state", a.supervisor.State().String()))

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.log.Info("starting ops server", slog.String("addr", a.opsServer.Addr))
		if err := a.opsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("ops server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		a.refreshLoop(ctx)
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		return a.Shutdown()
	})

	return g.Wait()
}

// refreshLoop refreshes the access token shortly before it expires, so the
// 401-retry path stays the exception rather than the steady state.
func (a *App) refreshLoop(ctx context.Context) {
	const idleCheck = 30 * time.Second

	for {
		wait := idleCheck
		if a.supervisor.Authenticated() {
			if ttl, ok := a.supervisor.AccessTokenExpiresIn(); ok {
				wait = ttl - refreshAhead
				if wait < time.Second {
					wait = time.Second
				}
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}

		if !a.supervisor.Authenticated() {
			continue
		}
		ttl, ok := a.supervisor.AccessTokenExpiresIn()
		if !ok || ttl > refreshAhead {
			continue
		}
		if _, err := a.supervisor.Refresh(ctx); err != nil {
			a.log.Warn("proactive refresh failed", slog.String("error", err.Error()))
		}
	}
}

// Shutdown tears the agent down: realtime first, then the ops server.
func (a *App) Shutdown() error {
	a.log.Info("shutting down agent...")

	a.manager.Disconnect()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.opsServer.Shutdown(shutdownCtx); err != nil {
		a.log.Error("ops server shutdown error", slog.String("error", err.Error()))
	}

	a.log.Info("agent shutdown complete")
	return nil
}
