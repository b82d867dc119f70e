package vault

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/baccaristic/foodify-restaurant-agent/internal/domain"
)

// FileVault stores the credentials record as a JSON file. Writes go through
// a temp file plus rename so a crash mid-write leaves the previous record
// intact.
type FileVault struct {
	path string
}

// NewFileVault creates a vault backed by the given file path.
func NewFileVault(path string) *FileVault {
	return &FileVault{path: path}
}

// Load reads the credentials record from disk.
func (v *FileVault) Load(_ context.Context) (*domain.Credentials, error) {
	data, err := os.ReadFile(v.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoCredentials
		}
		return nil, fmt.Errorf("read vault file: %w", err)
	}

	var creds domain.Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("unmarshal credentials: %w", err)
	}

	return &creds, nil
}

// Store writes the credentials record atomically.
func (v *FileVault) Store(_ context.Context, creds *domain.Credentials) error {
	data, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("marshal credentials: %w", err)
	}

	dir := filepath.Dir(v.path)
	tmp, err := os.CreateTemp(dir, ".foodify-session-*")
	if err != nil {
		return fmt.Errorf("create temp vault file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write vault file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close vault file: %w", err)
	}

	if err := os.Rename(tmpName, v.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace vault file: %w", err)
	}

	return nil
}

// Clear removes the vault file if it exists.
func (v *FileVault) Clear(_ context.Context) error {
	if err := os.Remove(v.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove vault file: %w", err)
	}
	return nil
}
