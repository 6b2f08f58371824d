package ledger

import (
	"context"
	"fmt"
	"strings"

	"lifeledger/internal/core"
)

// ContributeToGoal moves amount from an account into a goal. The goal's
// current amount grows by amount, the account is debited by the same amount
// and one expense transaction in the savings category records the transfer.
func (e *Engine) ContributeToGoal(ctx context.Context, goalID string, amount core.Money, accountID string) (core.Transaction, error) {
	var tx core.Transaction
	err := e.mutate(ctx, func(s *core.Snapshot) ([]core.Change, error) {
		if !amount.IsPositive() {
			return nil, invalid(core.EntityGoal, core.ErrInvalidAmount)
		}
		gi := core.IndexOf(s.Goals, goalID)
		if gi < 0 {
			return nil, notFound(core.EntityGoal, goalID)
		}
		ai := core.IndexOf(s.Accounts, accountID)
		if ai < 0 {
			return nil, notFound(core.EntityAccount, accountID)
		}
		acc := &s.Accounts[ai]
		if acc.Balance.LessThan(amount) {
			return nil, fmt.Errorf("account %q balance %s below %s: %w", acc.ID, acc.Balance, amount, ErrInsufficientFunds)
		}

		goal := &s.Goals[gi]
		goal.CurrentAmount = goal.CurrentAmount.Add(amount)
		acc.Balance = acc.Balance.Sub(amount)

		tx = core.Transaction{
			ID:         e.newID(),
			Date:       e.now(),
			Amount:     amount,
			Type:       core.Expense,
			CategoryID: core.CategorySavings,
			AccountID:  acc.ID,
			Note:       "Goal contribution: " + goal.Name,
		}
		s.Transactions = append(s.Transactions, tx)
		sortTransactions(s.Transactions)

		return []core.Change{
			{Kind: core.GoalContributed, Entity: core.EntityGoal, EntityID: goal.ID},
			txChange(core.TransactionCreated, tx),
		}, nil
	})
	if err != nil {
		return core.Transaction{}, err
	}
	return tx, nil
}

// AddGoal stores a new goal. An opening current amount is accepted as-is.
func (e *Engine) AddGoal(ctx context.Context, g core.Goal) (core.Goal, error) {
	err := e.mutate(ctx, func(s *core.Snapshot) ([]core.Change, error) {
		if err := g.Validate(); err != nil {
			return nil, invalid(core.EntityGoal, err)
		}
		g.ID = e.newID()
		g.Category = strings.TrimSpace(g.Category)
		s.Goals = append(s.Goals, g)
		return []core.Change{entityChange(core.EntityCreated, core.EntityGoal, g.ID)}, nil
	})
	if err != nil {
		return core.Goal{}, err
	}
	return g, nil
}

// UpdateGoal replaces a goal's descriptive fields. The current amount only
// changes through contributions and is kept from the stored goal.
func (e *Engine) UpdateGoal(ctx context.Context, g core.Goal) (core.Goal, error) {
	err := e.mutate(ctx, func(s *core.Snapshot) ([]core.Change, error) {
		gi := core.IndexOf(s.Goals, g.ID)
		if gi < 0 {
			return nil, notFound(core.EntityGoal, g.ID)
		}
		g.CurrentAmount = s.Goals[gi].CurrentAmount
		if err := g.Validate(); err != nil {
			return nil, invalid(core.EntityGoal, err)
		}
		s.Goals[gi] = g
		return []core.Change{entityChange(core.EntityUpdated, core.EntityGoal, g.ID)}, nil
	})
	if err != nil {
		return core.Goal{}, err
	}
	return g, nil
}

func (e *Engine) DeleteGoal(ctx context.Context, id string) error {
	return e.mutate(ctx, func(s *core.Snapshot) ([]core.Change, error) {
		var ok bool
		if s.Goals, ok = removeByID(s.Goals, id); !ok {
			return nil, notFound(core.EntityGoal, id)
		}
		return []core.Change{entityChange(core.EntityDeleted, core.EntityGoal, id)}, nil
	})
}
