// Package memory keeps stored results in process memory. Results are lost on
// restart; it backs tests and single-shot CLI runs.
package memory

import (
	"context"
	"errors"
	"slices"
	"sync"

	"pathwaycore/internal/result"
)

var _ result.Repository = (*Store)(nil)

// Store is a map of payloads guarded by a RWMutex.
type Store struct {
	mu       sync.RWMutex
	payloads map[string][]byte
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{payloads: make(map[string][]byte)}
}

// Save stores a copy of payload under token, replacing any previous value.
func (s *Store) Save(_ context.Context, token string, payload []byte) error {
	if token == "" {
		return errors.New("memory store: token required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payloads[token] = slices.Clone(payload)
	return nil
}

// Load returns a copy of the payload stored under token.
func (s *Store) Load(_ context.Context, token string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.payloads[token]
	if !ok {
		return nil, result.NotFoundError{Kind: "token", ID: token}
	}
	return slices.Clone(p), nil
}

// Delete removes token and reports whether it existed.
func (s *Store) Delete(_ context.Context, token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.payloads[token]
	delete(s.payloads, token)
	return ok, nil
}

// Tokens lists the stored tokens in ascending order.
func (s *Store) Tokens(context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.payloads))
	for tok := range s.payloads {
		out = append(out, tok)
	}
	slices.Sort(out)
	return out, nil
}

// Close is a no-op.
func (s *Store) Close() error { return nil }
