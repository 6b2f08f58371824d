package ledger

import (
	"fmt"
	"strings"
	"time"

	"lifeledger/internal/core"
)

// Advancer is the strategy that moves a due date forward by one billing
// period. anchor is the first-payment date; its day of month is preserved
// and clamped to the last day of shorter months.
type Advancer interface {
	Next(due, anchor time.Time) time.Time
}

// MonthlyAdvancer advances by one calendar month.
type MonthlyAdvancer struct{}

func (MonthlyAdvancer) Next(due, anchor time.Time) time.Time {
	return clampedDate(due.Year(), due.Month()+1, anchor.Day(), due)
}

// YearlyAdvancer advances by one calendar year.
type YearlyAdvancer struct{}

func (YearlyAdvancer) Next(due, anchor time.Time) time.Time {
	return clampedDate(due.Year()+1, due.Month(), anchor.Day(), due)
}

// advancers maps billing periods to their strategies.
var advancers = map[core.BillingPeriod]Advancer{
	core.Monthly: MonthlyAdvancer{},
	core.Yearly:  YearlyAdvancer{},
}

// AdvancerFor returns the strategy for a billing period.
func AdvancerFor(period core.BillingPeriod) (Advancer, error) {
	a, ok := advancers[period]
	if !ok {
		return nil, fmt.Errorf("unknown billing period: %s", period)
	}
	return a, nil
}

// clampedDate builds year/month/day at ref's time of day and location,
// clamping day to the month length. month may overflow into the next year.
func clampedDate(year int, month time.Month, day int, ref time.Time) time.Time {
	first := time.Date(year, month, 1, 0, 0, 0, 0, ref.Location())
	last := time.Date(first.Year(), first.Month()+1, 0, 0, 0, 0, 0, ref.Location()).Day()
	if day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, ref.Hour(), ref.Minute(), ref.Second(), 0, ref.Location())
}

// midday returns t's calendar date at 12:00 in loc. The calendar date is
// read in t's own location.
func midday(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 12, 0, 0, 0, loc)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// PostDueSubscriptions materializes every charge of an active recurring
// subscription that fell due on or before now's calendar day and has not
// been posted yet. It returns the updated snapshot and the new transactions.
// snap is not modified. Running it again on its own output posts nothing.
func PostDueSubscriptions(snap core.Snapshot, now time.Time, newID func() string) (core.Snapshot, []core.Transaction) {
	loc := now.Location()
	y, m, d := now.Date()
	endOfToday := time.Date(y, m, d, 23, 59, 59, int(time.Second-time.Nanosecond), loc)

	var staged []core.Transaction
	for _, sub := range snap.Subscriptions {
		if sub.Status != core.Active || sub.ExpenseType != core.Recurring {
			continue
		}
		adv, err := AdvancerFor(sub.BillingPeriod)
		if err != nil {
			continue
		}

		anchor := midday(sub.FirstPayment, loc)
		due := anchor
		if latest, ok := latestPosting(snap.Transactions, sub.ID); ok {
			due = adv.Next(midday(latest, loc), anchor)
		}

		for !due.After(endOfToday) {
			if sub.EndDate != nil && midday(*sub.EndDate, loc).Before(due) {
				break
			}
			if !postedOn(snap.Transactions, sub.ID, due) {
				if accountID := matchAccount(snap.Accounts, sub.PaymentMethod); accountID != "" {
					staged = append(staged, core.Transaction{
						Date:           due,
						Amount:         sub.Price,
						Type:           core.Expense,
						CategoryID:     matchCategory(snap.Categories, sub.Name),
						AccountID:      accountID,
						Note:           "Subscription: " + sub.Name,
						SubscriptionID: sub.ID,
					})
				}
			}
			due = adv.Next(due, anchor)
		}
	}

	if len(staged) == 0 {
		return snap, nil
	}

	out := snap.Clone()
	for i := range staged {
		staged[i].ID = newID()
	}
	out.Transactions = append(out.Transactions, staged...)
	sortTransactions(out.Transactions)

	deltas := make(map[string]core.Money)
	for _, tx := range staged {
		deltas[tx.AccountID] = deltas[tx.AccountID].Add(tx.Signed())
	}
	for i := range out.Accounts {
		if delta, ok := deltas[out.Accounts[i].ID]; ok {
			out.Accounts[i].Balance = out.Accounts[i].Balance.Add(delta)
		}
	}
	return out, staged
}

// latestPosting returns the date of the newest transaction for subscription id.
func latestPosting(txs []core.Transaction, id string) (time.Time, bool) {
	var (
		latest time.Time
		found  bool
	)
	for _, tx := range txs {
		if tx.SubscriptionID != id {
			continue
		}
		if !found || tx.Date.After(latest) {
			latest, found = tx.Date, true
		}
	}
	return latest, found
}

func postedOn(txs []core.Transaction, id string, day time.Time) bool {
	for _, tx := range txs {
		if tx.SubscriptionID == id && sameDay(tx.Date, day) {
			return true
		}
	}
	return false
}

// matchAccount picks the funding account: one whose name contains the
// payment method, then one named like a credit card, then the first account.
func matchAccount(accounts []core.Account, paymentMethod string) string {
	if hint := strings.ToLower(strings.TrimSpace(paymentMethod)); hint != "" {
		for _, a := range accounts {
			if strings.Contains(strings.ToLower(a.Name), hint) {
				return a.ID
			}
		}
	}
	for _, a := range accounts {
		if strings.Contains(strings.ToLower(a.Name), "credit card") {
			return a.ID
		}
	}
	if len(accounts) > 0 {
		return accounts[0].ID
	}
	return ""
}

// matchCategory returns the expense subcategory of subscriptions named after
// the subscription, or the subscriptions category itself.
func matchCategory(cats []core.Category, name string) string {
	for _, c := range cats {
		if c.Type == core.Expense && c.ParentID == core.CategorySubscriptions && strings.EqualFold(c.Name, name) {
			return c.ID
		}
	}
	return core.CategorySubscriptions
}
