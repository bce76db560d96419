package blobstore

import (
	"bytes"
	"context"
	"testing"

	"pathwaycore/internal/blob"
	"pathwaycore/internal/infra/persistence/persistencetest"
	"pathwaycore/internal/result"
)

func TestStoreContract(t *testing.T) {
	persistencetest.Run(t, func(*testing.T) result.Repository { return New(blob.NewMemory()) })
}

func TestSaveWritesJSONArchive(t *testing.T) {
	blobs := blob.NewMemory()
	s := New(blobs)
	if err := s.Save(context.Background(), "tok", []byte(`{"version":1}`)); err != nil {
		t.Fatalf("save: %v", err)
	}
	info, err := blobs.Head(context.Background(), "results/tok.json")
	if err != nil {
		t.Fatalf("head: %v", err)
	}
	if info.ContentType != "application/json" || info.Metadata["token"] != "tok" {
		t.Fatalf("info = %+v", info)
	}
}

func TestTokensSkipForeignBlobs(t *testing.T) {
	ctx := context.Background()
	blobs := blob.NewMemory()
	for _, key := range []string{"results/readme.txt", "results/nested/x.json", "snapshots/a.json"} {
		if _, err := blobs.Put(ctx, key, bytes.NewReader([]byte("x")), blob.PutOptions{}); err != nil {
			t.Fatalf("put %s: %v", key, err)
		}
	}
	s := New(blobs)
	if err := s.Save(ctx, "tok", []byte(`{}`)); err != nil {
		t.Fatalf("save: %v", err)
	}
	tokens, err := s.Tokens(ctx)
	if err != nil || len(tokens) != 1 || tokens[0] != "tok" {
		t.Fatalf("tokens = %v, %v", tokens, err)
	}
}

func TestRejectsPathTokens(t *testing.T) {
	s := New(blob.NewMemory())
	for _, tok := range []string{"../escape", "a/b", "."} {
		if err := s.Save(context.Background(), tok, []byte(`{}`)); err == nil {
			t.Fatalf("expected %q to be rejected", tok)
		}
	}
}

type closingStore struct {
	blob.Store
	closed int
}

func (c *closingStore) Close() error {
	c.closed++
	return nil
}

func TestCloseReleasesOwnedBlobs(t *testing.T) {
	shared := &closingStore{Store: blob.NewMemory()}
	if err := New(shared).Close(); err != nil || shared.closed != 0 {
		t.Fatalf("borrowed store closed: %d %v", shared.closed, err)
	}
	owned := &closingStore{Store: blob.NewMemory()}
	if err := NewOwned(owned).Close(); err != nil || owned.closed != 1 {
		t.Fatalf("owned store not closed: %d %v", owned.closed, err)
	}
}
