package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/baccaristic/foodify-restaurant-agent/internal/domain"
)

const (
	defaultMinReconnectDelay = time.Second
	defaultMaxReconnectDelay = 30 * time.Second
)

var (
	reconnectsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "foodify_agent_realtime_reconnects_total",
		Help: "Total number of realtime reconnect attempts",
	})
	framesDroppedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "foodify_agent_realtime_frames_dropped_total",
		Help: "Total number of realtime frames dropped due to parse failures",
	})
	connectedGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "foodify_agent_realtime_connected",
		Help: "Whether the realtime channel currently holds a live connection (0/1)",
	})
)

func init() {
	prometheus.MustRegister(reconnectsTotal, framesDroppedTotal, connectedGauge)
}

// Callbacks receive channel events. They are invoked sequentially from the
// channel's reader goroutine; a slow callback delays subsequent events but
// never reorders them. Errors never propagate out of the channel any other
// way.
type Callbacks struct {
	// OnSnapshot delivers the bulk "current orders" view (replace semantics).
	OnSnapshot func(orders []domain.OrderNotification)
	// OnUpdate delivers a single changed order (merge-by-id semantics).
	OnUpdate func(order domain.OrderNotification)
	// OnNew delivers a freshly created order (alert semantics).
	OnNew func(order domain.OrderNotification)
	// OnConnect fires after every successful handshake and resubscription.
	OnConnect func()
	// OnDisconnect fires exactly once per established connection that closes.
	OnDisconnect func()
	// OnError receives parse failures and protocol error frames.
	OnError func(err error)
}

// Config describes a channel to construct.
type Config struct {
	// URL of the realtime websocket endpoint.
	URL string
	// UserID scopes the three order topics.
	UserID int64
	// TokenSource is invoked immediately before every handshake so each
	// (re)connect attempt uses a fresh token snapshot.
	TokenSource func() string
	Callbacks   Callbacks

	MinReconnectDelay time.Duration
	MaxReconnectDelay time.Duration

	Logger *slog.Logger
}

// Channel is one persistent subscription connection. It owns its reconnect
// policy; whether it should exist at all is its owner's decision.
type Channel struct {
	cfg Config
	log *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	active atomic.Bool

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewChannel constructs a channel. Start must be called to open it.
func NewChannel(cfg Config) *Channel {
	if cfg.MinReconnectDelay <= 0 {
		cfg.MinReconnectDelay = defaultMinReconnectDelay
	}
	if cfg.MaxReconnectDelay <= 0 {
		cfg.MaxReconnectDelay = defaultMaxReconnectDelay
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Channel{
		cfg:    cfg,
		log:    cfg.Logger,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Start opens the channel and begins the connect/read/reconnect loop.
func (c *Channel) Start() {
	if !c.active.CompareAndSwap(false, true) {
		return
	}
	go c.run()
}

// Active reports whether the channel is open (including while between
// reconnect attempts).
func (c *Channel) Active() bool {
	return c.active.Load()
}

// Close tears the channel down and waits for the loop to stop. Closing an
// already closed channel is a no-op.
func (c *Channel) Close() error {
	if !c.active.CompareAndSwap(true, false) {
		return nil
	}
	c.cancel()

	c.mu.Lock()
	if c.conn != nil {
		_ = c.conn.Close(websocket.StatusNormalClosure, "bye")
	}
	c.mu.Unlock()

	<-c.done
	return nil
}

// run is the connect/read/reconnect loop. Delay between attempts grows
// exponentially with jitter up to the configured cap and resets after a
// successful handshake.
func (c *Channel) run() {
	defer close(c.done)

	delay := c.cfg.MinReconnectDelay
	for {
		conn, err := c.dial()
		if err != nil {
			if c.ctx.Err() != nil {
				return
			}
			c.emitError(fmt.Errorf("realtime dial: %w", err))
			if !c.sleep(jitter(delay)) {
				return
			}
			delay = nextDelay(delay, c.cfg.MaxReconnectDelay)
			continue
		}

		delay = c.cfg.MinReconnectDelay
		connectedGauge.Set(1)

		if err := c.subscribe(conn); err != nil {
			c.emitError(fmt.Errorf("realtime subscribe: %w", err))
			_ = conn.Close(websocket.StatusInternalError, "subscribe failed")
		} else {
			if c.cfg.Callbacks.OnConnect != nil {
				c.cfg.Callbacks.OnConnect()
			}
			c.readLoop(conn)
			// OnDisconnect pairs with OnConnect; a connection that never
			// completed its subscriptions was never announced as connected.
			if c.cfg.Callbacks.OnDisconnect != nil {
				c.cfg.Callbacks.OnDisconnect()
			}
		}

		connectedGauge.Set(0)

		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()

		if c.ctx.Err() != nil {
			return
		}
		reconnectsTotal.Inc()
		if !c.sleep(jitter(delay)) {
			return
		}
	}
}

// dial performs one handshake attempt. The bearer token is read from the
// token source here, immediately before the handshake, so a pair rotated
// between attempts is picked up without reconstructing the channel.
func (c *Channel) dial() (*websocket.Conn, error) {
	header := http.Header{}
	if c.cfg.TokenSource != nil {
		if tok := c.cfg.TokenSource(); tok != "" {
			header.Set("Authorization", "Bearer "+tok)
		}
	}

	dialCtx, cancel := context.WithTimeout(c.ctx, 10*time.Second)
	defer cancel()

	conn, resp, err := websocket.Dial(dialCtx, c.cfg.URL, &websocket.DialOptions{
		HTTPHeader: header,
	})
	if err != nil {
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
		return nil, err
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	return conn, nil
}

// subscribe (re)issues the three per-user topic subscriptions. Runs after
// every handshake, so subscriptions are recreated on every reconnect.
func (c *Channel) subscribe(conn *websocket.Conn) error {
	topics := []string{
		TopicOrdersSnapshot(c.cfg.UserID),
		TopicOrdersUpdated(c.cfg.UserID),
		TopicOrdersCreated(c.cfg.UserID),
	}

	for _, topic := range topics {
		frame, err := subscribeFrame(topic)
		if err != nil {
			return err
		}
		writeCtx, cancel := context.WithTimeout(c.ctx, 5*time.Second)
		err = conn.Write(writeCtx, websocket.MessageText, frame)
		cancel()
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", topic, err)
		}
	}

	c.log.Info("realtime subscriptions established", slog.Int64("user_id", c.cfg.UserID))
	return nil
}

// readLoop consumes frames until the connection closes. A malformed frame is
// reported through OnError and skipped; it never tears the connection down.
func (c *Channel) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.Read(c.ctx)
		if err != nil {
			if c.ctx.Err() == nil {
				c.log.Debug("realtime read ended", slog.String("error", err.Error()))
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			framesDroppedTotal.Inc()
			c.emitError(fmt.Errorf("parse envelope: %w", err))
			continue
		}
		if err := env.Validate(); err != nil {
			framesDroppedTotal.Inc()
			c.emitError(fmt.Errorf("invalid envelope: %w", err))
			continue
		}

		switch env.Type {
		case TypeEvent:
			c.dispatch(env)
		case TypeError:
			var p ErrorPayload
			_ = json.Unmarshal(env.Payload, &p)
			c.emitError(errors.New(p.Text()))
		}
	}
}

// dispatch routes an event frame to the topic's callback. Each topic is
// independent; a parse failure on one never affects the others.
func (c *Channel) dispatch(env Envelope) {
	switch env.Topic {
	case TopicOrdersSnapshot(c.cfg.UserID):
		var orders []domain.OrderNotification
		if err := json.Unmarshal(env.Payload, &orders); err != nil {
			framesDroppedTotal.Inc()
			c.emitError(fmt.Errorf("parse snapshot payload: %w", err))
			return
		}
		if c.cfg.Callbacks.OnSnapshot != nil {
			c.cfg.Callbacks.OnSnapshot(orders)
		}
	case TopicOrdersUpdated(c.cfg.UserID):
		var order domain.OrderNotification
		if err := json.Unmarshal(env.Payload, &order); err != nil {
			framesDroppedTotal.Inc()
			c.emitError(fmt.Errorf("parse update payload: %w", err))
			return
		}
		if c.cfg.Callbacks.OnUpdate != nil {
			c.cfg.Callbacks.OnUpdate(order)
		}
	case TopicOrdersCreated(c.cfg.UserID):
		var order domain.OrderNotification
		if err := json.Unmarshal(env.Payload, &order); err != nil {
			framesDroppedTotal.Inc()
			c.emitError(fmt.Errorf("parse new order payload: %w", err))
			return
		}
		if c.cfg.Callbacks.OnNew != nil {
			c.cfg.Callbacks.OnNew(order)
		}
	default:
		c.log.Debug("event for unknown topic", slog.String("topic", env.Topic))
	}
}

func (c *Channel) emitError(err error) {
	if c.cfg.Callbacks.OnError != nil {
		c.cfg.Callbacks.OnError(err)
	}
}

// sleep waits for d or channel shutdown; returns false on shutdown.
func (c *Channel) sleep(d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-c.ctx.Done():
		return false
	}
}

// nextDelay doubles the delay up to the cap.
func nextDelay(d, max time.Duration) time.Duration {
	d *= 2
	if d > max {
		return max
	}
	return d
}

// jitter spreads a delay over [d/2, d) so a fleet of terminals does not
// reconnect in lockstep.
func jitter(d time.Duration) time.Duration {
	if d <= 1 {
		return d
	}
	half := d / 2
	return half + rand.N(half)
}
