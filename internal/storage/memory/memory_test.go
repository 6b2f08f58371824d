package memory

import (
	"context"
	"errors"
	"testing"

	"lifeledger/internal/core"
	"lifeledger/internal/storage"
)

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	if _, _, err := s.Load(ctx); !errors.Is(err, storage.ErrNoSnapshot) {
		t.Fatalf("expected ErrNoSnapshot, got %v", err)
	}

	snap := core.NewSnapshot()
	snap.Accounts = append(snap.Accounts, core.Account{ID: "a", Name: "Main", Balance: core.MoneyFromInt(10)})

	v, err := s.Save(ctx, snap, 0)
	if err != nil || v != 1 {
		t.Fatalf("save: v=%d err=%v", v, err)
	}

	got, ver, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if ver != 1 || len(got.Accounts) != 1 || !got.Accounts[0].Balance.Equal(core.MoneyFromInt(10)) {
		t.Fatalf("unexpected load: ver=%d %+v", ver, got.Accounts)
	}

	// mutation of the loaded copy must not reach the store
	got.Accounts[0].Name = "changed"
	again, _, _ := s.Load(ctx)
	if again.Accounts[0].Name != "Main" {
		t.Fatalf("store shares memory with caller")
	}
}

func TestStoreVersionConflict(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	if _, err := s.Save(ctx, core.NewSnapshot(), 0); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := s.Save(ctx, core.NewSnapshot(), 0); !errors.Is(err, storage.ErrVersionConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	s.Bump()
	if _, err := s.Save(ctx, core.NewSnapshot(), 1); !errors.Is(err, storage.ErrVersionConflict) {
		t.Fatalf("expected conflict after bump, got %v", err)
	}
	if s.Saves() != 1 {
		t.Fatalf("saves = %d", s.Saves())
	}
}
