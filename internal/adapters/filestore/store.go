package filestore

// Package filestore provides a file-backed credential store for local
// installations. The pair lives in a single JSON file written via
// temp-file-and-rename, so a crash mid-write never leaves a half pair.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	domainauth "github.com/proserve/proserve-client/internal/domain/auth"
)

// Store persists the token pair to a local JSON file.
type Store struct {
	path string
	mu   sync.Mutex
}

// New creates a file-backed credential store. An empty path resolves to
// "<user config dir>/proserve/credentials.json".
func New(path string) (*Store, error) {
	if path == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("resolve config dir: %w", err)
		}
		path = filepath.Join(dir, "proserve", "credentials.json")
	}
	return &Store{path: path}, nil
}

// Path returns the credentials file location.
func (s *Store) Path() string { return s.path }

func (s *Store) Get(_ context.Context) (domainauth.TokenPair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domainauth.TokenPair{}, domainauth.ErrNoCredentials
		}
		return domainauth.TokenPair{}, fmt.Errorf("read credentials file: %w", err)
	}

	var pair domainauth.TokenPair
	if unmarshalErr := json.Unmarshal(data, &pair); unmarshalErr != nil {
		return domainauth.TokenPair{}, fmt.Errorf("unmarshal credentials: %w", unmarshalErr)
	}

	// Never surface a half-present pair.
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		return domainauth.TokenPair{}, domainauth.ErrNoCredentials
	}

	return pair, nil
}

func (s *Store) Set(_ context.Context, pair domainauth.TokenPair) error {
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		return errors.New("both tokens are required")
	}

	data, err := json.Marshal(pair)
	if err != nil {
		return fmt.Errorf("marshal credentials: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if mkErr := os.MkdirAll(dir, 0o700); mkErr != nil {
		return fmt.Errorf("create credentials dir: %w", mkErr)
	}

	// Write to a temp file in the same directory and rename over the
	// target so readers see the old pair or the new one, never a torn write.
	tmp, err := os.CreateTemp(dir, "credentials-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp credentials file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if chmodErr := tmp.Chmod(0o600); chmodErr != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod temp credentials file: %w", chmodErr)
	}
	if _, writeErr := tmp.Write(data); writeErr != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp credentials file: %w", writeErr)
	}
	if closeErr := tmp.Close(); closeErr != nil {
		return fmt.Errorf("close temp credentials file: %w", closeErr)
	}

	if renameErr := os.Rename(tmpName, s.path); renameErr != nil {
		return fmt.Errorf("replace credentials file: %w", renameErr)
	}
	return nil
}

func (s *Store) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove credentials file: %w", err)
	}
	return nil
}
