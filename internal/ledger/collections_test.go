package ledger

import (
	"context"
	"errors"
	"testing"

	"lifeledger/internal/core"
)

func TestAccountLifecycle(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t, seed())

	acc, err := e.AddAccount(ctx, core.Account{Name: "Cash", Kind: "cash", Balance: money(30)})
	if err != nil {
		t.Fatalf("AddAccount: %v", err)
	}
	if acc.ID == "" {
		t.Fatalf("no id assigned")
	}

	acc.Name = "Wallet"
	acc.Balance = money(1_000_000)
	if _, err := e.UpdateAccount(ctx, acc); err != nil {
		t.Fatalf("UpdateAccount: %v", err)
	}
	got := e.Snapshot()
	i := core.IndexOf(got.Accounts, acc.ID)
	if got.Accounts[i].Name != "Wallet" || !got.Accounts[i].Balance.Equal(money(30)) {
		t.Fatalf("unexpected account %+v", got.Accounts[i])
	}

	if _, err := e.AddTransaction(ctx, expense(acc.ID, 5, 1)); err != nil {
		t.Fatalf("AddTransaction: %v", err)
	}
	if err := e.DeleteAccount(ctx, acc.ID); !errors.Is(err, ErrInUse) {
		t.Fatalf("expected ErrInUse, got %v", err)
	}
	if err := e.DeleteAccount(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := e.DeleteAccount(ctx, "B"); err != nil {
		t.Fatalf("DeleteAccount: %v", err)
	}
}

func TestCategories(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t, seed())

	netflix, err := e.AddCategory(ctx, core.Category{Name: "Netflix", Type: core.Expense, ParentID: core.CategorySubscriptions})
	if err != nil {
		t.Fatalf("AddCategory: %v", err)
	}
	if _, err := e.AddCategory(ctx, core.Category{Name: "X", Type: core.Expense, ParentID: "nope"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for parent, got %v", err)
	}

	// subscriptions -> netflix would close a cycle
	subs := core.Category{ID: core.CategorySubscriptions, Name: "Subscriptions", Type: core.Expense, ParentID: netflix.ID}
	if _, err := e.UpdateCategory(ctx, subs); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid for cycle, got %v", err)
	}

	netflix.Name = "Streaming"
	if _, err := e.UpdateCategory(ctx, netflix); err != nil {
		t.Fatalf("UpdateCategory: %v", err)
	}
	if _, err := e.UpdateCategory(ctx, core.Category{ID: "nope", Name: "n", Type: core.Expense}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFixedCategoriesKeepShape(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		update  core.Category
		wantErr error
	}{
		{
			name:    "savings to income",
			update:  core.Category{ID: core.CategorySavings, Name: "Savings", Type: core.Income},
			wantErr: core.ErrFixedCategory,
		},
		{
			name:    "subscriptions under groceries",
			update:  core.Category{ID: core.CategorySubscriptions, Name: "Subscriptions", Type: core.Expense, ParentID: "groceries"},
			wantErr: core.ErrFixedCategory,
		},
		{
			name:   "rename savings",
			update: core.Category{ID: core.CategorySavings, Name: "Rainy day", Type: core.Expense},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := newTestEngine(t, seed())
			_, err := e.UpdateCategory(ctx, tt.update)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("UpdateCategory: %v", err)
				}
				return
			}
			if !errors.Is(err, ErrInvalid) || !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			snap := e.Snapshot()
			got := snap.Categories[core.IndexOf(snap.Categories, tt.update.ID)]
			if got.Type != core.Expense || got.ParentID != "" {
				t.Fatalf("fixed category changed: %+v", got)
			}
		})
	}
}

func TestBudgets(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t, seed())

	b, err := e.AddBudget(ctx, core.Budget{CategoryID: "groceries", Period: core.MonthlyBudget, Limit: money(400)})
	if err != nil {
		t.Fatalf("AddBudget: %v", err)
	}
	if _, err := e.AddBudget(ctx, core.Budget{CategoryID: "nope", Period: core.MonthlyBudget, Limit: money(1)}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := e.AddBudget(ctx, core.Budget{CategoryID: "groceries", Period: "daily", Limit: money(1)}); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}

	b.Limit = money(450)
	if _, err := e.UpdateBudget(ctx, b); err != nil {
		t.Fatalf("UpdateBudget: %v", err)
	}
	if got := e.Snapshot().Budgets[0].Limit; !got.Equal(money(450)) {
		t.Fatalf("limit = %s", got)
	}
	if err := e.DeleteBudget(ctx, b.ID); err != nil {
		t.Fatalf("DeleteBudget: %v", err)
	}
	if err := e.DeleteBudget(ctx, b.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestBulkAddSubscriptions(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t, seed())

	a := gym(day(2024, 5, 1))
	b := gym(day(2024, 5, 2))
	b.Name = "Music"
	added, err := e.BulkAddSubscriptions(ctx, []core.Subscription{a, b})
	if err != nil {
		t.Fatalf("BulkAddSubscriptions: %v", err)
	}
	if len(added) != 2 || added[0].ID == added[1].ID || added[0].ID == a.ID {
		t.Fatalf("ids not freshly assigned: %+v", added)
	}

	bad := gym(day(2024, 5, 3))
	bad.BillingPeriod = "Weekly"
	if _, err := e.BulkAddSubscriptions(ctx, []core.Subscription{gym(day(2024, 5, 3)), bad}); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
	if n := len(e.Snapshot().Subscriptions); n != 2 {
		t.Fatalf("partial bulk add stored: %d subscriptions", n)
	}
}

func TestDeleteSubscriptionUnlinksPostings(t *testing.T) {
	ctx := context.Background()
	snap := seed()
	snap.Subscriptions = []core.Subscription{gym(day(2024, 3, 15))}
	e, _ := newTestEngine(t, snap)

	if n := len(e.Snapshot().Transactions); n != 2 {
		t.Fatalf("expected 2 postings on load, got %d", n)
	}
	if err := e.DeleteSubscription(ctx, "sub-gym"); err != nil {
		t.Fatalf("DeleteSubscription: %v", err)
	}
	got := e.Snapshot()
	for _, tx := range got.Transactions {
		if tx.SubscriptionID != "" {
			t.Fatalf("posting still linked: %+v", tx)
		}
	}
	if err := got.Validate(); err != nil {
		t.Fatalf("snapshot invalid after delete: %v", err)
	}
}

func TestCreditCardsAndContacts(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t, seed())

	card, err := e.AddCreditCard(ctx, core.CreditCard{Name: "Visa", Limit: money(3000), DueDay: 10, Benefits: []string{"lounge"}})
	if err != nil {
		t.Fatalf("AddCreditCard: %v", err)
	}
	card.Benefits[0] = "mutated by caller"
	if got := e.Snapshot().CreditCards[0].Benefits[0]; got != "lounge" {
		t.Fatalf("engine shares memory with caller: %q", got)
	}
	card.DueDay = 40
	if _, err := e.UpdateCreditCard(ctx, card); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
	if err := e.DeleteCreditCard(ctx, card.ID); err != nil {
		t.Fatalf("DeleteCreditCard: %v", err)
	}

	c, err := e.AddContact(ctx, core.Contact{Name: "Grace", Relationship: "sister"})
	if err != nil {
		t.Fatalf("AddContact: %v", err)
	}
	c.Email = "grace@example.com"
	if _, err := e.UpdateContact(ctx, c); err != nil {
		t.Fatalf("UpdateContact: %v", err)
	}
	if err := e.DeleteContact(ctx, c.ID); err != nil {
		t.Fatalf("DeleteContact: %v", err)
	}
	if err := e.DeleteContact(ctx, c.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestProfileRecords(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t, seed())

	p, err := e.UpdateProfile(ctx, core.Profile{Name: "Ada", Currency: " usd "})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if p.Currency != "USD" {
		t.Fatalf("currency = %q", p.Currency)
	}

	if _, err := e.UpdateRiskProfile(ctx, core.RiskProfile{Score: 101}); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
	rp, err := e.UpdateRiskProfile(ctx, core.RiskProfile{Score: 60, Tolerance: "moderate", HorizonYears: 10})
	if err != nil {
		t.Fatalf("UpdateRiskProfile: %v", err)
	}
	if rp.AnsweredAt == nil || !rp.AnsweredAt.Equal(testNow) {
		t.Fatalf("answeredAt not stamped")
	}

	w, err := e.UpdateLastWill(ctx, core.LastWill{
		Executor:      "Grace",
		Beneficiaries: []core.Beneficiary{{Name: "Grace", SharePercent: money(100)}},
	})
	if err != nil {
		t.Fatalf("UpdateLastWill: %v", err)
	}
	if w.UpdatedAt == nil || e.Snapshot().LastWill.Executor != "Grace" {
		t.Fatalf("last will not stored")
	}
}
