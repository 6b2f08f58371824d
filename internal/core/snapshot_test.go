package core

import (
	"errors"
	"testing"
	"time"
)

func TestNewSnapshotDefaults(t *testing.T) {
	s := NewSnapshot()
	if s.Accounts == nil || s.Transactions == nil || s.Contacts == nil {
		t.Fatalf("collections should be non-nil")
	}
	for _, id := range []string{CategorySavings, CategorySubscriptions} {
		if IndexOf(s.Categories, id) < 0 {
			t.Errorf("missing fixed category %q", id)
		}
	}
	if s.Profile.Currency != DefaultCurrency {
		t.Errorf("currency = %q", s.Profile.Currency)
	}
	if err := s.Validate(); err != nil {
		t.Fatalf("default snapshot should validate: %v", err)
	}
}

func TestNormalizeAddsMissingFixedCategories(t *testing.T) {
	s := Snapshot{Categories: []Category{{ID: "food", Name: "Food", Type: Expense}}}
	s.Normalize()
	if len(s.Categories) != 3 {
		t.Fatalf("expected food + 2 fixed categories, got %d", len(s.Categories))
	}
	s.Normalize()
	if len(s.Categories) != 3 {
		t.Fatalf("normalize must be idempotent, got %d", len(s.Categories))
	}
}

func TestCloneIsIndependent(t *testing.T) {
	end := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewSnapshot()
	s.Accounts = append(s.Accounts, Account{ID: "a", Name: "Main", Balance: MoneyFromInt(10)})
	s.Subscriptions = append(s.Subscriptions, Subscription{ID: "s", Name: "Gym", EndDate: &end})
	s.CreditCards = append(s.CreditCards, CreditCard{ID: "c", Name: "Visa", Benefits: []string{"lounge"}})
	s.LastWill = &LastWill{Executor: "X", Beneficiaries: []Beneficiary{{Name: "Y"}}}

	c := s.Clone()
	c.Accounts[0].Balance = MoneyFromInt(99)
	*c.Subscriptions[0].EndDate = end.AddDate(1, 0, 0)
	c.CreditCards[0].Benefits[0] = "cashback"
	c.LastWill.Beneficiaries[0].Name = "Z"

	if !s.Accounts[0].Balance.Equal(MoneyFromInt(10)) {
		t.Errorf("account balance leaked into original")
	}
	if !s.Subscriptions[0].EndDate.Equal(end) {
		t.Errorf("end date leaked into original")
	}
	if s.CreditCards[0].Benefits[0] != "lounge" {
		t.Errorf("benefits leaked into original")
	}
	if s.LastWill.Beneficiaries[0].Name != "Y" {
		t.Errorf("beneficiaries leaked into original")
	}
}

func TestSnapshotValidateReferences(t *testing.T) {
	s := NewSnapshot()
	s.Accounts = []Account{{ID: "a", Name: "Main"}, {ID: "a", Name: "Dup"}}
	s.Transactions = []Transaction{{
		ID:         "t1",
		Date:       time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Amount:     MoneyFromInt(5),
		Type:       Expense,
		AccountID:  "missing",
		CategoryID: "groceries",
	}}

	err := s.Validate()
	if !errors.Is(err, ErrDuplicateID) {
		t.Errorf("expected duplicate id error, got %v", err)
	}
	if !errors.Is(err, ErrDanglingReference) {
		t.Errorf("expected dangling reference error, got %v", err)
	}
}
