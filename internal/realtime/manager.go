package realtime

import (
	"log/slog"
	"sync"
)

// Manager guarantees at most one live channel exists at a time. It owns the
// single nullable handle behind an idempotent connect/disconnect interface.
type Manager struct {
	log *slog.Logger

	mu      sync.Mutex
	channel *Channel
}

// NewManager creates an empty lifecycle manager.
func NewManager(log *slog.Logger) *Manager {
	return &Manager{log: log}
}

// Connect returns the existing channel when one is already active, otherwise
// constructs and starts a new one from cfg. Repeated calls without an
// intervening Disconnect are idempotent.
func (m *Manager) Connect(cfg Config) *Channel {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.channel != nil && m.channel.Active() {
		return m.channel
	}

	ch := NewChannel(cfg)
	ch.Start()
	m.channel = ch
	m.log.Info("realtime channel opened", slog.Int64("user_id", cfg.UserID))
	return ch
}

// Disconnect clears the handle immediately, so concurrent callers observe
// "no channel" right away, and tears the connection down asynchronously.
// Teardown errors never reach the caller. Disconnecting with no channel is
// a no-op.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	ch := m.channel
	m.channel = nil
	m.mu.Unlock()

	if ch == nil {
		return
	}

	go func() {
		_ = ch.Close()
		m.log.Info("realtime channel closed")
	}()
}

// Active reports whether a live channel is held.
func (m *Manager) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.channel != nil && m.channel.Active()
}
