package core

import (
	"errors"
	"fmt"
	"time"
)

// DefaultCurrency is used when a profile carries no currency.
const DefaultCurrency = "EUR"

// Snapshot is the complete aggregate persisted as one unit.
type Snapshot struct {
	Accounts      []Account      `json:"accounts"`
	Transactions  []Transaction  `json:"transactions"`
	Categories    []Category     `json:"categories"`
	Budgets       []Budget       `json:"budgets"`
	Goals         []Goal         `json:"goals"`
	Subscriptions []Subscription `json:"subscriptions"`
	CreditCards   []CreditCard   `json:"creditCards"`
	Contacts      []Contact      `json:"contacts"`
	Profile       Profile        `json:"profile"`
	RiskProfile   *RiskProfile   `json:"riskProfile,omitempty"`
	LastWill      *LastWill      `json:"lastWill,omitempty"`
}

// Keyed is implemented by every collection element.
type Keyed interface {
	Key() string
}

// IndexOf returns the position of the element with the given id, or -1.
func IndexOf[T Keyed](items []T, id string) int {
	for i, it := range items {
		if it.Key() == id {
			return i
		}
	}
	return -1
}

// DefaultCategories are seeded into every new snapshot. The savings and
// subscriptions entries are required by goal contributions and the poster.
func DefaultCategories() []Category {
	return []Category{
		{ID: "salary", Name: "Salary", Type: Income},
		{ID: "other-income", Name: "Other income", Type: Income},
		{ID: CategorySavings, Name: "Savings", Type: Expense},
		{ID: CategorySubscriptions, Name: "Subscriptions", Type: Expense},
		{ID: "housing", Name: "Housing", Type: Expense},
		{ID: "groceries", Name: "Groceries", Type: Expense},
		{ID: "transport", Name: "Transport", Type: Expense},
		{ID: "utilities", Name: "Utilities", Type: Expense},
		{ID: "health", Name: "Health", Type: Expense},
		{ID: "entertainment", Name: "Entertainment", Type: Expense},
		{ID: "other", Name: "Other", Type: Expense},
	}
}

// NewSnapshot returns an empty snapshot with all defaults filled in.
func NewSnapshot() Snapshot {
	s := Snapshot{Categories: DefaultCategories()}
	s.Normalize()
	return s
}

// Normalize fills defaults on a loaded or imported snapshot: nil collections
// become empty, the fixed categories exist and the profile has a currency.
// It is the only place defaults are applied.
func (s *Snapshot) Normalize() {
	if s.Accounts == nil {
		s.Accounts = []Account{}
	}
	if s.Transactions == nil {
		s.Transactions = []Transaction{}
	}
	if s.Categories == nil {
		s.Categories = []Category{}
	}
	if s.Budgets == nil {
		s.Budgets = []Budget{}
	}
	if s.Goals == nil {
		s.Goals = []Goal{}
	}
	if s.Subscriptions == nil {
		s.Subscriptions = []Subscription{}
	}
	if s.CreditCards == nil {
		s.CreditCards = []CreditCard{}
	}
	if s.Contacts == nil {
		s.Contacts = []Contact{}
	}
	for _, fixed := range DefaultCategories() {
		if !IsFixedCategory(fixed.ID) {
			continue
		}
		if IndexOf(s.Categories, fixed.ID) < 0 {
			s.Categories = append(s.Categories, fixed)
		}
	}
	if s.Profile.Currency == "" {
		s.Profile.Currency = DefaultCurrency
	}
}

// Clone returns a deep copy. Optional pointer fields are copied too so the
// result shares no memory with s.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{
		Accounts:      cloneSlice(s.Accounts),
		Transactions:  cloneSlice(s.Transactions),
		Categories:    cloneSlice(s.Categories),
		Budgets:       cloneSlice(s.Budgets),
		Goals:         cloneSlice(s.Goals),
		Subscriptions: cloneSlice(s.Subscriptions),
		CreditCards:   cloneSlice(s.CreditCards),
		Contacts:      cloneSlice(s.Contacts),
		Profile:       s.Profile,
	}
	for i := range out.Goals {
		out.Goals[i].Deadline = cloneTime(out.Goals[i].Deadline)
	}
	for i := range out.Subscriptions {
		out.Subscriptions[i].EndDate = cloneTime(out.Subscriptions[i].EndDate)
	}
	for i := range out.CreditCards {
		out.CreditCards[i].Benefits = cloneSlice(out.CreditCards[i].Benefits)
	}
	for i := range out.Contacts {
		out.Contacts[i].Birthday = cloneTime(out.Contacts[i].Birthday)
		out.Contacts[i].Socials = cloneSocials(out.Contacts[i].Socials)
	}
	out.Profile.BirthDate = cloneTime(s.Profile.BirthDate)
	out.Profile.Socials = cloneSocials(s.Profile.Socials)
	if s.RiskProfile != nil {
		rp := *s.RiskProfile
		rp.AnsweredAt = cloneTime(rp.AnsweredAt)
		out.RiskProfile = &rp
	}
	if s.LastWill != nil {
		lw := *s.LastWill
		lw.Beneficiaries = cloneSlice(lw.Beneficiaries)
		lw.UpdatedAt = cloneTime(lw.UpdatedAt)
		out.LastWill = &lw
	}
	return out
}

// Validate checks the structural invariants of an imported snapshot: unique
// identifiers and resolvable references. It does not check that balances
// match transaction history since accounts may carry opening balances.
func (s Snapshot) Validate() error {
	var errs []error

	errs = append(errs, checkUnique("account", s.Accounts)...)
	errs = append(errs, checkUnique("transaction", s.Transactions)...)
	errs = append(errs, checkUnique("category", s.Categories)...)
	errs = append(errs, checkUnique("budget", s.Budgets)...)
	errs = append(errs, checkUnique("goal", s.Goals)...)
	errs = append(errs, checkUnique("subscription", s.Subscriptions)...)
	errs = append(errs, checkUnique("credit card", s.CreditCards)...)
	errs = append(errs, checkUnique("contact", s.Contacts)...)

	for _, a := range s.Accounts {
		if err := a.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("account %q: %w", a.ID, err))
		}
	}
	for _, c := range s.Categories {
		if err := c.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("category %q: %w", c.ID, err))
		}
		if c.ParentID != "" && IndexOf(s.Categories, c.ParentID) < 0 {
			errs = append(errs, fmt.Errorf("category %q parent %q: %w", c.ID, c.ParentID, ErrDanglingReference))
		}
	}
	for _, t := range s.Transactions {
		if err := t.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("transaction %q: %w", t.ID, err))
			continue
		}
		if IndexOf(s.Accounts, t.AccountID) < 0 {
			errs = append(errs, fmt.Errorf("transaction %q account %q: %w", t.ID, t.AccountID, ErrDanglingReference))
		}
		if IndexOf(s.Categories, t.CategoryID) < 0 {
			errs = append(errs, fmt.Errorf("transaction %q category %q: %w", t.ID, t.CategoryID, ErrDanglingReference))
		}
		if t.SubscriptionID != "" && IndexOf(s.Subscriptions, t.SubscriptionID) < 0 {
			errs = append(errs, fmt.Errorf("transaction %q subscription %q: %w", t.ID, t.SubscriptionID, ErrDanglingReference))
		}
	}
	for _, b := range s.Budgets {
		if err := b.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("budget %q: %w", b.ID, err))
			continue
		}
		if IndexOf(s.Categories, b.CategoryID) < 0 {
			errs = append(errs, fmt.Errorf("budget %q category %q: %w", b.ID, b.CategoryID, ErrDanglingReference))
		}
	}
	for _, g := range s.Goals {
		if err := g.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("goal %q: %w", g.ID, err))
		}
	}
	for _, sub := range s.Subscriptions {
		if err := sub.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("subscription %q: %w", sub.ID, err))
		}
	}
	for _, c := range s.CreditCards {
		if err := c.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("credit card %q: %w", c.ID, err))
		}
	}
	for _, c := range s.Contacts {
		if err := c.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("contact %q: %w", c.ID, err))
		}
	}
	if s.RiskProfile != nil {
		if err := s.RiskProfile.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("risk profile: %w", err))
		}
	}
	if s.LastWill != nil {
		if err := s.LastWill.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("last will: %w", err))
		}
	}

	return errors.Join(errs...)
}

func checkUnique[T Keyed](kind string, items []T) []error {
	var errs []error
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		id := it.Key()
		if id == "" {
			errs = append(errs, fmt.Errorf("%s: %w", kind, ErrEmptyID))
			continue
		}
		if _, ok := seen[id]; ok {
			errs = append(errs, fmt.Errorf("%s %q: %w", kind, id, ErrDuplicateID))
			continue
		}
		seen[id] = struct{}{}
	}
	return errs
}

func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	return append(make([]T, 0, len(in)), in...)
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneSocials(s *Socials) *Socials {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
