// Package auth holds the client-side credential lifecycle: the in-memory
// session, durable storage for the refresh credential, and the
// single-flight refresh coordinator.
package auth

import (
	"fmt"
	"sync"
)

// CredentialStore persists the refresh credential between runs. The access
// credential never goes through a store.
type CredentialStore interface {
	Load() (string, error)
	Save(refreshToken string) error
	Clear() error
}

// Session holds the current credentials. The access token lives only in
// memory; the refresh token is mirrored to the store on every change.
type Session struct {
	mu      sync.RWMutex
	access  string
	refresh string
	store   CredentialStore
}

// NewSession creates a session, loading any persisted refresh credential.
// store may be nil for a purely in-memory session.
func NewSession(store CredentialStore) (*Session, error) {
	s := &Session{store: store}
	if store != nil {
		refresh, err := store.Load()
		if err != nil {
			return nil, fmt.Errorf("failed to load refresh credential: %w", err)
		}
		s.refresh = refresh
	}
	return s, nil
}

// AccessToken returns the current access credential, or "" if absent.
func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.access
}

// RefreshToken returns the current refresh credential, or "" if absent.
func (s *Session) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refresh
}

// SetTokens stores a new credential pair and persists the refresh token.
func (s *Session) SetTokens(access, refresh string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access = access
	s.refresh = refresh
	if s.store != nil {
		if err := s.store.Save(refresh); err != nil {
			return fmt.Errorf("failed to persist refresh credential: %w", err)
		}
	}
	return nil
}

// Clear drops both credentials and wipes the store. Used on logout and on
// refresh failure.
func (s *Session) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access = ""
	s.refresh = ""
	if s.store != nil {
		if err := s.store.Clear(); err != nil {
			return fmt.Errorf("failed to clear credential store: %w", err)
		}
	}
	return nil
}
