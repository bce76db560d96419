// Package blobstore archives stored results in a blob store, one JSON
// object per token under "results/".
package blobstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"pathwaycore/internal/blob"
	"pathwaycore/internal/result"
)

var _ result.Repository = (*Store)(nil)

const (
	prefix      = "results/"
	suffix      = ".json"
	contentType = "application/json"
)

// Store adapts a blob.Store to result.Repository.
type Store struct {
	blobs blob.Store
	owned bool
}

// New wraps blobs. The caller keeps ownership of the blob store.
func New(blobs blob.Store) *Store { return &Store{blobs: blobs} }

// NewOwned wraps blobs and closes them, when they are closable, on Close.
func NewOwned(blobs blob.Store) *Store { return &Store{blobs: blobs, owned: true} }

// Key is the blob key a token is archived under.
func Key(token string) string { return prefix + token + suffix }

func validToken(token string) error {
	if token == "" || token == "." || token == ".." || strings.ContainsAny(token, `/\`) {
		return fmt.Errorf("blob result store: invalid token %q", token)
	}
	return nil
}

// Save writes payload under token, replacing any previous archive.
func (s *Store) Save(ctx context.Context, token string, payload []byte) error {
	if err := validToken(token); err != nil {
		return err
	}
	if _, err := s.blobs.Put(ctx, Key(token), bytes.NewReader(payload), blob.PutOptions{
		ContentType: contentType,
		Metadata:    map[string]string{"token": token},
		Overwrite:   true,
	}); err != nil {
		return fmt.Errorf("archive result %s: %w", token, err)
	}
	return nil
}

// Load reads the archive of token.
func (s *Store) Load(ctx context.Context, token string) ([]byte, error) {
	if validToken(token) != nil {
		return nil, result.NotFoundError{Kind: "token", ID: token}
	}
	_, rc, err := s.blobs.Get(ctx, Key(token))
	if errors.Is(err, blob.ErrNotFound) {
		return nil, result.NotFoundError{Kind: "token", ID: token}
	}
	if err != nil {
		return nil, fmt.Errorf("read result %s: %w", token, err)
	}
	defer func() { _ = rc.Close() }()
	payload, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read result %s: %w", token, err)
	}
	return payload, nil
}

// Delete removes the archive of token.
func (s *Store) Delete(ctx context.Context, token string) (bool, error) {
	if validToken(token) != nil {
		return false, nil
	}
	return s.blobs.Delete(ctx, Key(token))
}

// Tokens lists archived tokens in ascending order.
func (s *Store) Tokens(ctx context.Context) ([]string, error) {
	infos, err := s.blobs.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	out := make([]string, 0, len(infos))
	for _, info := range infos {
		name, ok := strings.CutPrefix(info.Key, prefix)
		if !ok || !strings.HasSuffix(name, suffix) || strings.Contains(name, "/") {
			continue
		}
		out = append(out, strings.TrimSuffix(name, suffix))
	}
	slices.Sort(out)
	return out, nil
}

// Close releases the blob store when it is owned.
func (s *Store) Close() error {
	if c, ok := s.blobs.(io.Closer); ok && s.owned {
		return c.Close()
	}
	return nil
}
