// Package vault persists the session credentials (token pair plus user
// profile) as a single durable record. Reading and writing the record as one
// unit guarantees a restart never hydrates a partially written session.
package vault

import (
	"context"
	"errors"

	"github.com/baccaristic/foodify-restaurant-agent/internal/domain"
)

// ErrNoCredentials is returned by Load when no session record is stored.
var ErrNoCredentials = errors.New("no stored credentials")

// Vault is the durable key-value contract for session credentials.
type Vault interface {
	// Load returns the stored credentials, or ErrNoCredentials.
	Load(ctx context.Context) (*domain.Credentials, error)
	// Store persists the credentials, replacing any previous record.
	Store(ctx context.Context, creds *domain.Credentials) error
	// Clear removes the stored record. Clearing an empty vault is a no-op.
	Clear(ctx context.Context) error
}
