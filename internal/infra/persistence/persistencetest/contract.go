// Package persistencetest holds the behaviour every result repository must share.
package persistencetest

import (
	"bytes"
	"context"
	"errors"
	"slices"
	"testing"

	"pathwaycore/internal/result"
)

// Run exercises a repository produced by open. Every call must return an
// empty repository.
func Run(t *testing.T, open func(t *testing.T) result.Repository) {
	t.Helper()
	ctx := context.Background()

	t.Run("save and load", func(t *testing.T) {
		repo := open(t)
		payload := []byte(`{"version":1}`)
		if err := repo.Save(ctx, "tok-a", payload); err != nil {
			t.Fatalf("save: %v", err)
		}
		got, err := repo.Load(ctx, "tok-a")
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if !bytes.Equal(got, payload) {
			t.Fatalf("payload = %s", got)
		}
	})

	t.Run("save replaces", func(t *testing.T) {
		repo := open(t)
		if err := repo.Save(ctx, "tok-a", []byte(`{"n":1}`)); err != nil {
			t.Fatalf("save: %v", err)
		}
		if err := repo.Save(ctx, "tok-a", []byte(`{"n":2}`)); err != nil {
			t.Fatalf("save again: %v", err)
		}
		got, err := repo.Load(ctx, "tok-a")
		if err != nil || string(got) != `{"n":2}` {
			t.Fatalf("load = %s, %v", got, err)
		}
	})

	t.Run("missing token", func(t *testing.T) {
		repo := open(t)
		if _, err := repo.Load(ctx, "nope"); !errors.Is(err, result.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("delete", func(t *testing.T) {
		repo := open(t)
		if err := repo.Save(ctx, "tok-a", []byte(`{}`)); err != nil {
			t.Fatalf("save: %v", err)
		}
		removed, err := repo.Delete(ctx, "tok-a")
		if err != nil || !removed {
			t.Fatalf("delete = %v, %v", removed, err)
		}
		removed, err = repo.Delete(ctx, "tok-a")
		if err != nil || removed {
			t.Fatalf("second delete = %v, %v", removed, err)
		}
		if _, err := repo.Load(ctx, "tok-a"); !errors.Is(err, result.ErrNotFound) {
			t.Fatalf("expected ErrNotFound after delete, got %v", err)
		}
	})

	t.Run("tokens", func(t *testing.T) {
		repo := open(t)
		for _, tok := range []string{"tok-c", "tok-a", "tok-b"} {
			if err := repo.Save(ctx, tok, []byte(`{}`)); err != nil {
				t.Fatalf("save %s: %v", tok, err)
			}
		}
		tokens, err := repo.Tokens(ctx)
		if err != nil {
			t.Fatalf("tokens: %v", err)
		}
		if !slices.Equal(tokens, []string{"tok-a", "tok-b", "tok-c"}) {
			t.Fatalf("tokens = %v", tokens)
		}
	})

	t.Run("empty token rejected", func(t *testing.T) {
		repo := open(t)
		if err := repo.Save(ctx, "", []byte(`{}`)); err == nil {
			t.Fatalf("expected error for empty token")
		}
	})
}
