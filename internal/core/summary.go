package core

import "time"

// CategoryAmount represents an amount aggregated by category.
type CategoryAmount struct {
	CategoryID string `json:"categoryId"`
	Name       string `json:"name"`
	Amount     Money  `json:"amount"`
}

// MonthOverview is a compact summary for a specific year+month.
type MonthOverview struct {
	Year       int              `json:"year"`
	Month      int              `json:"month"` // 1-12
	Income     Money            `json:"income"`
	Expense    Money            `json:"expense"`
	Net        Money            `json:"net"`
	ByCategory []CategoryAmount `json:"byCategory"`
}

// BudgetUsage reports spending against one budget for the period containing a date.
type BudgetUsage struct {
	BudgetID   string       `json:"budgetId"`
	CategoryID string       `json:"categoryId"`
	Period     BudgetPeriod `json:"period"`
	From       time.Time    `json:"from"`
	To         time.Time    `json:"to"`
	Limit      Money        `json:"limit"`
	Spent      Money        `json:"spent"`
	Remaining  Money        `json:"remaining"`
	Over       bool         `json:"over"`
}

// NetWorth sums account balances and subtracts credit card debt.
type NetWorth struct {
	Assets      Money `json:"assets"`
	Liabilities Money `json:"liabilities"`
	Net         Money `json:"net"`
}
