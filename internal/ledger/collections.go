package ledger

import (
	"context"
	"slices"
	"strings"

	"lifeledger/internal/core"
)

// Accounts

// AddAccount stores a new account. A non-zero balance is taken as the
// opening balance.
func (e *Engine) AddAccount(ctx context.Context, a core.Account) (core.Account, error) {
	err := e.mutate(ctx, func(s *core.Snapshot) ([]core.Change, error) {
		if err := a.Validate(); err != nil {
			return nil, invalid(core.EntityAccount, err)
		}
		a.ID = e.newID()
		s.Accounts = append(s.Accounts, a)
		return []core.Change{entityChange(core.EntityCreated, core.EntityAccount, a.ID)}, nil
	})
	if err != nil {
		return core.Account{}, err
	}
	return a, nil
}

// UpdateAccount renames an account or changes its kind. The balance is owned
// by the ledger and never taken from the caller.
func (e *Engine) UpdateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	err := e.mutate(ctx, func(s *core.Snapshot) ([]core.Change, error) {
		ai := core.IndexOf(s.Accounts, a.ID)
		if ai < 0 {
			return nil, notFound(core.EntityAccount, a.ID)
		}
		if err := a.Validate(); err != nil {
			return nil, invalid(core.EntityAccount, err)
		}
		a.Balance = s.Accounts[ai].Balance
		s.Accounts[ai] = a
		return []core.Change{entityChange(core.EntityUpdated, core.EntityAccount, a.ID)}, nil
	})
	if err != nil {
		return core.Account{}, err
	}
	return a, nil
}

// DeleteAccount removes an account that no transaction references.
func (e *Engine) DeleteAccount(ctx context.Context, id string) error {
	return e.mutate(ctx, func(s *core.Snapshot) ([]core.Change, error) {
		if core.IndexOf(s.Accounts, id) < 0 {
			return nil, notFound(core.EntityAccount, id)
		}
		for _, tx := range s.Transactions {
			if tx.AccountID == id {
				return nil, inUse(core.EntityAccount, id, core.EntityTransaction, tx.ID)
			}
		}
		s.Accounts, _ = removeByID(s.Accounts, id)
		return []core.Change{entityChange(core.EntityDeleted, core.EntityAccount, id)}, nil
	})
}

// Categories

func (e *Engine) AddCategory(ctx context.Context, c core.Category) (core.Category, error) {
	err := e.mutate(ctx, func(s *core.Snapshot) ([]core.Change, error) {
		if err := checkCategory(s, c); err != nil {
			return nil, err
		}
		c.ID = e.newID()
		s.Categories = append(s.Categories, c)
		return []core.Change{entityChange(core.EntityCreated, core.EntityCategory, c.ID)}, nil
	})
	if err != nil {
		return core.Category{}, err
	}
	return c, nil
}

func (e *Engine) UpdateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	err := e.mutate(ctx, func(s *core.Snapshot) ([]core.Change, error) {
		ci := core.IndexOf(s.Categories, c.ID)
		if ci < 0 {
			return nil, notFound(core.EntityCategory, c.ID)
		}
		if err := checkCategory(s, c); err != nil {
			return nil, err
		}
		if c.ParentID == c.ID || isAncestor(s.Categories, c.ID, c.ParentID) {
			return nil, invalid(core.EntityCategory, core.ErrDanglingReference)
		}
		if core.IsFixedCategory(c.ID) && (c.Type != core.Expense || c.ParentID != "") {
			return nil, invalid(core.EntityCategory, core.ErrFixedCategory)
		}
		s.Categories[ci] = c
		return []core.Change{entityChange(core.EntityUpdated, core.EntityCategory, c.ID)}, nil
	})
	if err != nil {
		return core.Category{}, err
	}
	return c, nil
}

func checkCategory(s *core.Snapshot, c core.Category) error {
	if err := c.Validate(); err != nil {
		return invalid(core.EntityCategory, err)
	}
	if c.ParentID != "" && core.IndexOf(s.Categories, c.ParentID) < 0 {
		return notFound(core.EntityCategory, c.ParentID)
	}
	return nil
}

// isAncestor reports whether id appears on the parent chain starting at from.
func isAncestor(cats []core.Category, id, from string) bool {
	seen := map[string]bool{}
	for from != "" && !seen[from] {
		if from == id {
			return true
		}
		seen[from] = true
		i := core.IndexOf(cats, from)
		if i < 0 {
			return false
		}
		from = cats[i].ParentID
	}
	return false
}

// Budgets

func (e *Engine) AddBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	err := e.mutate(ctx, func(s *core.Snapshot) ([]core.Change, error) {
		if err := checkBudget(s, b); err != nil {
			return nil, err
		}
		b.ID = e.newID()
		s.Budgets = append(s.Budgets, b)
		return []core.Change{entityChange(core.EntityCreated, core.EntityBudget, b.ID)}, nil
	})
	if err != nil {
		return core.Budget{}, err
	}
	return b, nil
}

func (e *Engine) UpdateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	err := e.mutate(ctx, func(s *core.Snapshot) ([]core.Change, error) {
		bi := core.IndexOf(s.Budgets, b.ID)
		if bi < 0 {
			return nil, notFound(core.EntityBudget, b.ID)
		}
		if err := checkBudget(s, b); err != nil {
			return nil, err
		}
		s.Budgets[bi] = b
		return []core.Change{entityChange(core.EntityUpdated, core.EntityBudget, b.ID)}, nil
	})
	if err != nil {
		return core.Budget{}, err
	}
	return b, nil
}

func (e *Engine) DeleteBudget(ctx context.Context, id string) error {
	return e.mutate(ctx, func(s *core.Snapshot) ([]core.Change, error) {
		var ok bool
		if s.Budgets, ok = removeByID(s.Budgets, id); !ok {
			return nil, notFound(core.EntityBudget, id)
		}
		return []core.Change{entityChange(core.EntityDeleted, core.EntityBudget, id)}, nil
	})
}

func checkBudget(s *core.Snapshot, b core.Budget) error {
	if err := b.Validate(); err != nil {
		return invalid(core.EntityBudget, err)
	}
	if core.IndexOf(s.Categories, b.CategoryID) < 0 {
		return notFound(core.EntityCategory, b.CategoryID)
	}
	return nil
}

// Subscriptions

func (e *Engine) AddSubscription(ctx context.Context, sub core.Subscription) (core.Subscription, error) {
	added, err := e.BulkAddSubscriptions(ctx, []core.Subscription{sub})
	if err != nil {
		return core.Subscription{}, err
	}
	return added[0], nil
}

// BulkAddSubscriptions stores all subs in one commit, each under a fresh
// identifier. Nothing is stored if any of them is invalid.
func (e *Engine) BulkAddSubscriptions(ctx context.Context, subs []core.Subscription) ([]core.Subscription, error) {
	if len(subs) == 0 {
		return nil, invalid(core.EntitySubscription, core.ErrEmptyName)
	}
	added := make([]core.Subscription, len(subs))
	err := e.mutate(ctx, func(s *core.Snapshot) ([]core.Change, error) {
		changes := make([]core.Change, 0, len(subs))
		for i, sub := range subs {
			if err := sub.Validate(); err != nil {
				return nil, invalid(core.EntitySubscription, err)
			}
			sub.ID = e.newID()
			added[i] = sub
			changes = append(changes, entityChange(core.EntityCreated, core.EntitySubscription, sub.ID))
		}
		s.Subscriptions = append(s.Subscriptions, added...)
		return changes, nil
	})
	if err != nil {
		return nil, err
	}
	return added, nil
}

func (e *Engine) UpdateSubscription(ctx context.Context, sub core.Subscription) (core.Subscription, error) {
	err := e.mutate(ctx, func(s *core.Snapshot) ([]core.Change, error) {
		si := core.IndexOf(s.Subscriptions, sub.ID)
		if si < 0 {
			return nil, notFound(core.EntitySubscription, sub.ID)
		}
		if err := sub.Validate(); err != nil {
			return nil, invalid(core.EntitySubscription, err)
		}
		s.Subscriptions[si] = sub
		return []core.Change{entityChange(core.EntityUpdated, core.EntitySubscription, sub.ID)}, nil
	})
	if err != nil {
		return core.Subscription{}, err
	}
	return sub, nil
}

// DeleteSubscription removes a subscription. Transactions it posted stay in
// the ledger but lose their link to it.
func (e *Engine) DeleteSubscription(ctx context.Context, id string) error {
	return e.mutate(ctx, func(s *core.Snapshot) ([]core.Change, error) {
		var ok bool
		if s.Subscriptions, ok = removeByID(s.Subscriptions, id); !ok {
			return nil, notFound(core.EntitySubscription, id)
		}
		changes := []core.Change{entityChange(core.EntityDeleted, core.EntitySubscription, id)}
		for i := range s.Transactions {
			if s.Transactions[i].SubscriptionID == id {
				s.Transactions[i].SubscriptionID = ""
				changes = append(changes, txChange(core.TransactionUpdated, s.Transactions[i]))
			}
		}
		return changes, nil
	})
}

// Credit cards

func (e *Engine) AddCreditCard(ctx context.Context, c core.CreditCard) (core.CreditCard, error) {
	err := e.mutate(ctx, func(s *core.Snapshot) ([]core.Change, error) {
		if err := c.Validate(); err != nil {
			return nil, invalid(core.EntityCreditCard, err)
		}
		c.ID = e.newID()
		s.CreditCards = append(s.CreditCards, c)
		return []core.Change{entityChange(core.EntityCreated, core.EntityCreditCard, c.ID)}, nil
	})
	if err != nil {
		return core.CreditCard{}, err
	}
	return c, nil
}

func (e *Engine) UpdateCreditCard(ctx context.Context, c core.CreditCard) (core.CreditCard, error) {
	err := e.mutate(ctx, func(s *core.Snapshot) ([]core.Change, error) {
		ci := core.IndexOf(s.CreditCards, c.ID)
		if ci < 0 {
			return nil, notFound(core.EntityCreditCard, c.ID)
		}
		if err := c.Validate(); err != nil {
			return nil, invalid(core.EntityCreditCard, err)
		}
		s.CreditCards[ci] = c
		return []core.Change{entityChange(core.EntityUpdated, core.EntityCreditCard, c.ID)}, nil
	})
	if err != nil {
		return core.CreditCard{}, err
	}
	return c, nil
}

func (e *Engine) DeleteCreditCard(ctx context.Context, id string) error {
	return e.mutate(ctx, func(s *core.Snapshot) ([]core.Change, error) {
		var ok bool
		if s.CreditCards, ok = removeByID(s.CreditCards, id); !ok {
			return nil, notFound(core.EntityCreditCard, id)
		}
		return []core.Change{entityChange(core.EntityDeleted, core.EntityCreditCard, id)}, nil
	})
}

// Contacts

func (e *Engine) AddContact(ctx context.Context, c core.Contact) (core.Contact, error) {
	err := e.mutate(ctx, func(s *core.Snapshot) ([]core.Change, error) {
		if err := c.Validate(); err != nil {
			return nil, invalid(core.EntityContact, err)
		}
		c.ID = e.newID()
		s.Contacts = append(s.Contacts, c)
		return []core.Change{entityChange(core.EntityCreated, core.EntityContact, c.ID)}, nil
	})
	if err != nil {
		return core.Contact{}, err
	}
	return c, nil
}

func (e *Engine) UpdateContact(ctx context.Context, c core.Contact) (core.Contact, error) {
	err := e.mutate(ctx, func(s *core.Snapshot) ([]core.Change, error) {
		ci := core.IndexOf(s.Contacts, c.ID)
		if ci < 0 {
			return nil, notFound(core.EntityContact, c.ID)
		}
		if err := c.Validate(); err != nil {
			return nil, invalid(core.EntityContact, err)
		}
		s.Contacts[ci] = c
		return []core.Change{entityChange(core.EntityUpdated, core.EntityContact, c.ID)}, nil
	})
	if err != nil {
		return core.Contact{}, err
	}
	return c, nil
}

func (e *Engine) DeleteContact(ctx context.Context, id string) error {
	return e.mutate(ctx, func(s *core.Snapshot) ([]core.Change, error) {
		var ok bool
		if s.Contacts, ok = removeByID(s.Contacts, id); !ok {
			return nil, notFound(core.EntityContact, id)
		}
		return []core.Change{entityChange(core.EntityDeleted, core.EntityContact, id)}, nil
	})
}

// Profile records

func (e *Engine) UpdateProfile(ctx context.Context, p core.Profile) (core.Profile, error) {
	err := e.mutate(ctx, func(s *core.Snapshot) ([]core.Change, error) {
		p.Currency = strings.ToUpper(strings.TrimSpace(p.Currency))
		if p.Currency == "" {
			p.Currency = core.DefaultCurrency
		}
		s.Profile = p
		return []core.Change{entityChange(core.EntityUpdated, core.EntityProfile, "")}, nil
	})
	if err != nil {
		return core.Profile{}, err
	}
	return p, nil
}

func (e *Engine) UpdateRiskProfile(ctx context.Context, r core.RiskProfile) (core.RiskProfile, error) {
	err := e.mutate(ctx, func(s *core.Snapshot) ([]core.Change, error) {
		if err := r.Validate(); err != nil {
			return nil, invalid(core.EntityRiskProfile, err)
		}
		if r.AnsweredAt == nil {
			now := e.now()
			r.AnsweredAt = &now
		}
		s.RiskProfile = &r
		return []core.Change{entityChange(core.EntityUpdated, core.EntityRiskProfile, "")}, nil
	})
	if err != nil {
		return core.RiskProfile{}, err
	}
	return r, nil
}

func (e *Engine) UpdateLastWill(ctx context.Context, w core.LastWill) (core.LastWill, error) {
	err := e.mutate(ctx, func(s *core.Snapshot) ([]core.Change, error) {
		if err := w.Validate(); err != nil {
			return nil, invalid(core.EntityLastWill, err)
		}
		now := e.now()
		w.UpdatedAt = &now
		s.LastWill = &w
		return []core.Change{entityChange(core.EntityUpdated, core.EntityLastWill, "")}, nil
	})
	if err != nil {
		return core.LastWill{}, err
	}
	return w, nil
}

func entityChange(kind core.ChangeKind, entity, id string) core.Change {
	return core.Change{Kind: kind, Entity: entity, EntityID: id}
}

func removeByID[T core.Keyed](items []T, id string) ([]T, bool) {
	i := core.IndexOf(items, id)
	if i < 0 {
		return items, false
	}
	return slices.Delete(items, i, i+1), true
}
