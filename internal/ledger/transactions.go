package ledger

import (
	"context"
	"fmt"
	"slices"

	"lifeledger/internal/core"
)

// AddTransaction records tx under a new identifier and applies its signed
// effect to the referenced account.
func (e *Engine) AddTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	err := e.mutate(ctx, func(s *core.Snapshot) ([]core.Change, error) {
		ai, err := checkTransactionRefs(s, tx)
		if err != nil {
			return nil, err
		}
		acc := &s.Accounts[ai]
		if e.strictFunds && tx.Type == core.Expense && acc.Balance.LessThan(tx.Amount) {
			return nil, fmt.Errorf("account %q balance %s below %s: %w", acc.ID, acc.Balance, tx.Amount, ErrInsufficientFunds)
		}

		tx.ID = e.newID()
		s.Transactions = append(s.Transactions, tx)
		sortTransactions(s.Transactions)
		acc.Balance = acc.Balance.Add(tx.Signed())

		return []core.Change{txChange(core.TransactionCreated, tx)}, nil
	})
	if err != nil {
		return core.Transaction{}, err
	}
	return tx, nil
}

// UpdateTransaction replaces the stored transaction with the same id and
// rebalances the affected accounts. When the account is unchanged the
// difference of the signed effects is applied; when it moves, the old effect
// is reversed on the old account and the new effect applied to the new one.
func (e *Engine) UpdateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	err := e.mutate(ctx, func(s *core.Snapshot) ([]core.Change, error) {
		ti := core.IndexOf(s.Transactions, tx.ID)
		if ti < 0 {
			return nil, notFound(core.EntityTransaction, tx.ID)
		}
		ai, err := checkTransactionRefs(s, tx)
		if err != nil {
			return nil, err
		}
		old := s.Transactions[ti]
		before := s.Accounts[ai].Balance

		if old.AccountID == tx.AccountID {
			delta := tx.Signed().Sub(old.Signed())
			s.Accounts[ai].Balance = s.Accounts[ai].Balance.Add(delta)
		} else {
			if oi := core.IndexOf(s.Accounts, old.AccountID); oi >= 0 {
				s.Accounts[oi].Balance = s.Accounts[oi].Balance.Sub(old.Signed())
			}
			s.Accounts[ai].Balance = s.Accounts[ai].Balance.Add(tx.Signed())
		}

		// Edits that leave the account no worse off are always allowed.
		after := s.Accounts[ai].Balance
		if e.strictFunds && tx.Type == core.Expense && after.IsNegative() && after.LessThan(before) {
			return nil, fmt.Errorf("account %q balance %s would drop to %s: %w", tx.AccountID, before, after, ErrInsufficientFunds)
		}

		s.Transactions[ti] = tx
		sortTransactions(s.Transactions)

		return []core.Change{txChange(core.TransactionUpdated, tx)}, nil
	})
	if err != nil {
		return core.Transaction{}, err
	}
	return tx, nil
}

// DeleteTransaction removes a transaction and reverses its effect on its account.
func (e *Engine) DeleteTransaction(ctx context.Context, id string) error {
	return e.mutate(ctx, func(s *core.Snapshot) ([]core.Change, error) {
		ti := core.IndexOf(s.Transactions, id)
		if ti < 0 {
			return nil, notFound(core.EntityTransaction, id)
		}
		old := s.Transactions[ti]
		s.Transactions = slices.Delete(s.Transactions, ti, ti+1)

		if ai := core.IndexOf(s.Accounts, old.AccountID); ai >= 0 {
			s.Accounts[ai].Balance = s.Accounts[ai].Balance.Sub(old.Signed())
		}

		return []core.Change{txChange(core.TransactionDeleted, old)}, nil
	})
}

// checkTransactionRefs validates tx and returns the index of its account.
func checkTransactionRefs(s *core.Snapshot, tx core.Transaction) (int, error) {
	if err := tx.Validate(); err != nil {
		return -1, invalid(core.EntityTransaction, err)
	}
	ai := core.IndexOf(s.Accounts, tx.AccountID)
	if ai < 0 {
		return -1, notFound(core.EntityAccount, tx.AccountID)
	}
	if core.IndexOf(s.Categories, tx.CategoryID) < 0 {
		return -1, notFound(core.EntityCategory, tx.CategoryID)
	}
	if tx.SubscriptionID != "" && core.IndexOf(s.Subscriptions, tx.SubscriptionID) < 0 {
		return -1, notFound(core.EntitySubscription, tx.SubscriptionID)
	}
	return ai, nil
}

// sortTransactions orders by date, newest first. Equal dates keep their
// relative order.
func sortTransactions(txs []core.Transaction) {
	slices.SortStableFunc(txs, func(a, b core.Transaction) int {
		return b.Date.Compare(a.Date)
	})
}

func txChange(kind core.ChangeKind, tx core.Transaction) core.Change {
	return core.Change{
		Kind:        kind,
		Entity:      core.EntityTransaction,
		EntityID:    tx.ID,
		Transaction: &tx,
	}
}
