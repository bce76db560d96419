package memory

import (
	"context"
	"testing"

	"pathwaycore/internal/infra/persistence/persistencetest"
	"pathwaycore/internal/result"
)

func TestStoreContract(t *testing.T) {
	persistencetest.Run(t, func(*testing.T) result.Repository { return NewStore() })
}

func TestLoadReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	in := []byte("abc")
	if err := s.Save(ctx, "t", in); err != nil {
		t.Fatalf("save: %v", err)
	}
	in[0] = 'x'
	out, _ := s.Load(ctx, "t")
	out[1] = 'y'
	again, _ := s.Load(ctx, "t")
	if string(again) != "abc" {
		t.Fatalf("stored payload was aliased: %s", again)
	}
}
