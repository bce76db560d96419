package memory

import (
	"bytes"
	"context"
	"io"
	"testing"

	"pathwaycore/internal/blob/blobtest"
	"pathwaycore/internal/blob/core"
)

func TestStoreContract(t *testing.T) {
	blobtest.RunContract(t, New())
}

func TestStoreReturnsPrivateCopies(t *testing.T) {
	ctx := context.Background()
	s := New()
	md := map[string]string{"k": "v"}
	if _, err := s.Put(ctx, "a", bytes.NewReader([]byte("abc")), core.PutOptions{Metadata: md}); err != nil {
		t.Fatalf("put: %v", err)
	}
	md["k"] = "changed"
	info, rc, err := s.Get(ctx, "a")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(rc)
	if info.Metadata["k"] != "v" || string(body) != "abc" {
		t.Fatalf("stored state leaked: %+v %q", info, body)
	}
	info.Metadata["k"] = "mutated"
	again, _ := s.Head(ctx, "a")
	if again.Metadata["k"] != "v" {
		t.Fatalf("head must return a copy")
	}
	if s.Driver() != core.DriverMemory {
		t.Fatalf("unexpected driver")
	}
}

func TestStoreChecksumsAndCounts(t *testing.T) {
	ctx := context.Background()
	s := New()
	info, err := s.Put(ctx, "x", bytes.NewReader([]byte("abc")), core.PutOptions{})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.ETag != "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad" {
		t.Fatalf("etag = %s", info.ETag)
	}
	if s.Len() != 1 {
		t.Fatalf("len = %d", s.Len())
	}
	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := s.Head(cancelled, "x"); err == nil {
		t.Fatalf("expected cancelled head to fail")
	}
}
