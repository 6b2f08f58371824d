package ledger

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"lifeledger/internal/core"
	"lifeledger/internal/storage/memory"
)

var testNow = time.Date(2024, 4, 20, 10, 0, 0, 0, time.UTC)

var moneyEqual = cmp.Comparer(func(a, b core.Money) bool { return a.Equal(b) })

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

func money(units int64) core.Money { return core.MoneyFromInt(units) }

// seed returns a snapshot with two accounts and default categories.
func seed() core.Snapshot {
	s := core.NewSnapshot()
	s.Accounts = []core.Account{
		{ID: "A", Name: "Checking", Balance: money(500)},
		{ID: "B", Name: "Savings account", Balance: money(200)},
	}
	return s
}

func newTestEngine(t *testing.T, snap core.Snapshot, opts ...Option) (*Engine, *memory.Store) {
	t.Helper()
	store, err := memory.NewStoreWith(snap)
	if err != nil {
		t.Fatalf("NewStoreWith: %v", err)
	}
	base := []Option{
		WithClock(func() time.Time { return testNow }),
		WithIDGenerator(sequentialIDs()),
	}
	e := New(store, append(base, opts...)...)
	if err := e.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return e, store
}

func balance(t *testing.T, s core.Snapshot, id string) core.Money {
	t.Helper()
	i := core.IndexOf(s.Accounts, id)
	if i < 0 {
		t.Fatalf("account %q missing", id)
	}
	return s.Accounts[i].Balance
}
