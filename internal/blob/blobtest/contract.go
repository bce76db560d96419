// Package blobtest holds the behaviour every blob driver must share.
package blobtest

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"pathwaycore/internal/blob/core"
)

// RunContract exercises store against the create-only, overwrite, not-found
// and listing semantics the snapshot loader and result archive rely on.
func RunContract(t *testing.T, store core.Store) {
	t.Helper()
	ctx := context.Background()

	info, err := store.Put(ctx, "snapshots/analysis.bin", bytes.NewReader([]byte("v1")), core.PutOptions{ContentType: "application/octet-stream", Metadata: map[string]string{"version": "1"}})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Key != "snapshots/analysis.bin" || info.Size != 2 {
		t.Fatalf("unexpected info %+v", info)
	}
	if _, err := store.Put(ctx, "snapshots/analysis.bin", bytes.NewReader([]byte("v2")), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
	if _, err := store.Put(ctx, "snapshots/analysis.bin", bytes.NewReader([]byte("v2!")), core.PutOptions{Overwrite: true}); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	_, rc, err := store.Get(ctx, "snapshots/analysis.bin")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(body) != "v2!" {
		t.Fatalf("expected overwritten content, got %q", body)
	}
	head, err := store.Head(ctx, "snapshots/analysis.bin")
	if err != nil || head.Size != 3 {
		t.Fatalf("head: %+v %v", head, err)
	}

	if _, _, err := store.Get(ctx, "snapshots/missing.bin"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound from Get, got %v", err)
	}
	if _, err := store.Head(ctx, "snapshots/missing.bin"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound from Head, got %v", err)
	}

	if _, err := store.Put(ctx, "results/b.json", bytes.NewReader([]byte("{}")), core.PutOptions{}); err != nil {
		t.Fatalf("put b: %v", err)
	}
	if _, err := store.Put(ctx, "results/a.json", bytes.NewReader([]byte("{}")), core.PutOptions{}); err != nil {
		t.Fatalf("put a: %v", err)
	}
	list, err := store.List(ctx, "results/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].Key != "results/a.json" || list[1].Key != "results/b.json" {
		t.Fatalf("unexpected list %+v", list)
	}

	ok, err := store.Delete(ctx, "results/a.json")
	if err != nil || !ok {
		t.Fatalf("delete: %v %v", ok, err)
	}
	ok, err = store.Delete(ctx, "results/a.json")
	if err != nil || ok {
		t.Fatalf("second delete should report false, got %v %v", ok, err)
	}
}
