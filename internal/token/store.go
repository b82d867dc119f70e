// Package token holds the in-memory access/refresh token pair shared by the
// HTTP gateway and the realtime channel. The store is an explicitly owned
// cell injected into its consumers; writes always replace the whole pair so
// a reader can never observe a torn token pair.
package token

import (
	"sync"

	"github.com/baccaristic/foodify-restaurant-agent/internal/domain"
)

// Store is a concurrency-safe holder of the current token pair.
type Store struct {
	mu   sync.RWMutex
	pair domain.TokenPair
}

// NewStore returns an empty token store.
func NewStore() *Store {
	return &Store{}
}

// Pair returns a snapshot of the current token pair.
func (s *Store) Pair() domain.TokenPair {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pair
}

// AccessToken returns the current access token, empty when logged out.
func (s *Store) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pair.AccessToken
}

// RefreshToken returns the current refresh token, empty when logged out.
func (s *Store) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pair.RefreshToken
}

// Set replaces the held pair.
func (s *Store) Set(pair domain.TokenPair) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pair = pair
}

// Clear drops both tokens.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pair = domain.TokenPair{}
}
