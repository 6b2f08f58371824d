package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"lifeledger/internal/core"
)

func tx(id, note string) core.Transaction {
	return core.Transaction{
		ID:         id,
		Date:       time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC),
		Amount:     core.MustParseAmount("10"),
		Type:       core.Expense,
		AccountID:  "a1",
		CategoryID: "other",
		Note:       note,
	}
}

func TestMirrorUpsertAndRemove(t *testing.T) {
	ctx := context.Background()
	m := New()

	for _, v := range []core.Transaction{tx("t1", "first"), tx("t2", "second"), tx("t1", "edited")} {
		if err := m.Upsert(ctx, v); err != nil {
			t.Fatalf("Upsert(%s) error = %v", v.ID, err)
		}
	}

	rows := m.List()
	if len(rows) != 2 || rows[0].ID != "t1" || rows[1].ID != "t2" {
		t.Fatalf("List() = %+v, want t1,t2 in insertion order", rows)
	}
	if got, _ := m.Get("t1"); got.Note != "edited" {
		t.Errorf("t1 note = %q, want edited", got.Note)
	}

	if err := m.Remove(ctx, "t1"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if err := m.Remove(ctx, "t1"); err != nil {
		t.Fatalf("second Remove() error = %v", err)
	}
	if _, ok := m.Get("t1"); ok {
		t.Error("t1 should be gone")
	}
	if rows := m.List(); len(rows) != 1 || rows[0].ID != "t2" {
		t.Errorf("List() after remove = %+v", rows)
	}
	if ids, err := m.IDs(ctx); err != nil || len(ids) != 1 || ids[0] != "t2" {
		t.Errorf("IDs() = %v, %v", ids, err)
	}
}

func TestMirrorRejectsEmptyID(t *testing.T) {
	if err := New().Upsert(context.Background(), tx("", "")); !errors.Is(err, core.ErrEmptyID) {
		t.Errorf("Upsert() error = %v, want ErrEmptyID", err)
	}
}
