// Package session abstracts the identity/credential source used by the sync
// client. A credential refresh mid-session is picked up on the next request.
package session

import (
	"context"
	"sync"
)

// Provider supplies the current bearer credential for outbound API calls.
//
// Token is consulted on every request; implementations must be safe for
// concurrent use. An absent credential is not an error at this layer.
// The remote side rejects unauthenticated calls.
type Provider interface {
	Token(ctx context.Context) (token string, ok bool)
	SignOut(ctx context.Context) error
}

// TokenStore is a Provider holding a single mutable token. It backs the CLI
// (token loaded from disk or obtained via login) and the test fakes.
type TokenStore struct {
	mu    sync.RWMutex
	token string
}

func NewTokenStore(token string) *TokenStore {
	return &TokenStore{token: token}
}

func (s *TokenStore) Token(_ context.Context) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.token != ""
}

// Set replaces the stored credential. An empty string signs the store out.
func (s *TokenStore) Set(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

func (s *TokenStore) SignOut(_ context.Context) error {
	s.Set("")
	return nil
}
