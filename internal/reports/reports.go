// Package reports derives read models from a ledger snapshot. The functions
// here are pure; Service adds caching keyed by snapshot version.
package reports

import (
	"cmp"
	"slices"
	"time"

	"lifeledger/internal/core"
)

// MonthOverview sums income and expense for one calendar month and breaks
// expenses down by category, largest first.
func MonthOverview(snap core.Snapshot, year int, month time.Month) core.MonthOverview {
	out := core.MonthOverview{Year: year, Month: int(month)}
	byCat := map[string]core.Money{}

	for _, tx := range snap.Transactions {
		y, m, _ := tx.Date.Date()
		if y != year || m != month {
			continue
		}
		switch tx.Type {
		case core.Income:
			out.Income = out.Income.Add(tx.Amount)
		case core.Expense:
			out.Expense = out.Expense.Add(tx.Amount)
			byCat[tx.CategoryID] = byCat[tx.CategoryID].Add(tx.Amount)
		}
	}
	out.Net = out.Income.Sub(out.Expense)

	out.ByCategory = make([]core.CategoryAmount, 0, len(byCat))
	for id, amount := range byCat {
		out.ByCategory = append(out.ByCategory, core.CategoryAmount{
			CategoryID: id,
			Name:       categoryName(snap.Categories, id),
			Amount:     amount,
		})
	}
	slices.SortFunc(out.ByCategory, func(a, b core.CategoryAmount) int {
		if c := b.Amount.Cmp(a.Amount); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return out
}

// BudgetUsage reports spending against every budget for the period that
// contains at. Expenses in child categories count toward the parent budget.
func BudgetUsage(snap core.Snapshot, at time.Time) []core.BudgetUsage {
	out := make([]core.BudgetUsage, 0, len(snap.Budgets))
	for _, b := range snap.Budgets {
		from, to := periodBounds(b.Period, at)
		spent := core.Zero
		for _, tx := range snap.Transactions {
			if tx.Type != core.Expense || tx.Date.Before(from) || !tx.Date.Before(to) {
				continue
			}
			if inCategory(snap.Categories, tx.CategoryID, b.CategoryID) {
				spent = spent.Add(tx.Amount)
			}
		}
		out = append(out, core.BudgetUsage{
			BudgetID:   b.ID,
			CategoryID: b.CategoryID,
			Period:     b.Period,
			From:       from,
			To:         to,
			Limit:      b.Limit,
			Spent:      spent,
			Remaining:  b.Limit.Sub(spent),
			Over:       spent.GreaterThan(b.Limit),
		})
	}
	return out
}

// NetWorth is the sum of account balances less credit card balances.
func NetWorth(snap core.Snapshot) core.NetWorth {
	var nw core.NetWorth
	for _, a := range snap.Accounts {
		nw.Assets = nw.Assets.Add(a.Balance)
	}
	for _, c := range snap.CreditCards {
		nw.Liabilities = nw.Liabilities.Add(c.Balance)
	}
	nw.Net = nw.Assets.Sub(nw.Liabilities)
	return nw
}

// periodBounds returns the half-open range [from, to) of the budget period
// containing at. Weeks start on Monday.
func periodBounds(p core.BudgetPeriod, at time.Time) (time.Time, time.Time) {
	y, m, d := at.Date()
	loc := at.Location()
	switch p {
	case core.Weekly:
		offset := (int(at.Weekday()) + 6) % 7
		from := time.Date(y, m, d-offset, 0, 0, 0, 0, loc)
		return from, from.AddDate(0, 0, 7)
	case core.YearlyBudget:
		from := time.Date(y, 1, 1, 0, 0, 0, 0, loc)
		return from, from.AddDate(1, 0, 0)
	default:
		from := time.Date(y, m, 1, 0, 0, 0, 0, loc)
		return from, from.AddDate(0, 1, 0)
	}
}

// inCategory reports whether id is root or one of its descendants.
func inCategory(cats []core.Category, id, root string) bool {
	seen := map[string]bool{}
	for id != "" && !seen[id] {
		if id == root {
			return true
		}
		seen[id] = true
		i := core.IndexOf(cats, id)
		if i < 0 {
			return false
		}
		id = cats[i].ParentID
	}
	return false
}

func categoryName(cats []core.Category, id string) string {
	if i := core.IndexOf(cats, id); i >= 0 {
		return cats[i].Name
	}
	return id
}
