package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

const (
	Monthly BillingPeriod = "Monthly"
	Yearly  BillingPeriod = "Yearly"
)

const (
	Active    SubscriptionStatus = "Active"
	Paused    SubscriptionStatus = "Paused"
	Cancelled SubscriptionStatus = "Cancelled"
)

const (
	Recurring ExpenseType = "Recurring"
	OneTime   ExpenseType = "OneTime"
)

const (
	Weekly        BudgetPeriod = "weekly"
	MonthlyBudget BudgetPeriod = "monthly"
	YearlyBudget  BudgetPeriod = "yearly"
)

// Fixed category identifiers referenced by the ledger itself.
const (
	CategorySavings       = "savings"
	CategorySubscriptions = "subscriptions"
)

// IsFixedCategory reports whether id names a category the ledger posts into.
func IsFixedCategory(id string) bool {
	return id == CategorySavings || id == CategorySubscriptions
}

type (
	TransactionType    string
	BillingPeriod      string
	SubscriptionStatus string
	ExpenseType        string
	BudgetPeriod       string

	Account struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		Kind    string `json:"kind,omitempty"` // checking, savings, cash, credit card...
		Balance Money  `json:"balance"`
	}

	Transaction struct {
		ID             string          `json:"id"`
		Date           time.Time       `json:"date"`
		Amount         Money           `json:"amount"` // magnitude, never negative
		Type           TransactionType `json:"type"`
		CategoryID     string          `json:"categoryId"`
		AccountID      string          `json:"accountId"`
		Note           string          `json:"note,omitempty"`
		SubscriptionID string          `json:"subscriptionId,omitempty"`
	}

	Category struct {
		ID       string          `json:"id"`
		Name     string          `json:"name"`
		Type     TransactionType `json:"type"`
		ParentID string          `json:"parentId,omitempty"`
	}

	Budget struct {
		ID         string       `json:"id"`
		CategoryID string       `json:"categoryId"`
		Period     BudgetPeriod `json:"period"`
		Limit      Money        `json:"limit"`
	}

	Goal struct {
		ID            string     `json:"id"`
		Name          string     `json:"name"`
		TargetAmount  Money      `json:"targetAmount"`
		CurrentAmount Money      `json:"currentAmount"`
		Deadline      *time.Time `json:"deadline,omitempty"`
		Category      string     `json:"category,omitempty"`
	}

	Subscription struct {
		ID            string             `json:"id"`
		Name          string             `json:"name"`
		Price         Money              `json:"price"`
		BillingPeriod BillingPeriod      `json:"billingPeriod"`
		Status        SubscriptionStatus `json:"status"`
		ExpenseType   ExpenseType        `json:"expenseType"`
		FirstPayment  time.Time          `json:"firstPayment"`
		EndDate       *time.Time         `json:"endDate,omitempty"`
		PaymentMethod string             `json:"paymentMethod,omitempty"`
	}

	CreditCard struct {
		ID       string   `json:"id"`
		Name     string   `json:"name"`
		Issuer   string   `json:"issuer,omitempty"`
		Limit    Money    `json:"limit"`
		Balance  Money    `json:"balance"`
		APR      Money    `json:"apr"`
		DueDay   int      `json:"dueDay,omitempty"`
		Benefits []string `json:"benefits,omitempty"`
	}

	Socials struct {
		LinkedIn  string `json:"linkedin,omitempty"`
		Instagram string `json:"instagram,omitempty"`
		X         string `json:"x,omitempty"`
		Facebook  string `json:"facebook,omitempty"`
	}

	Contact struct {
		ID           string     `json:"id"`
		Name         string     `json:"name"`
		Relationship string     `json:"relationship,omitempty"`
		Email        string     `json:"email,omitempty"`
		Phone        string     `json:"phone,omitempty"`
		Birthday     *time.Time `json:"birthday,omitempty"`
		Socials      *Socials   `json:"socials,omitempty"`
	}

	Profile struct {
		Name      string     `json:"name"`
		Email     string     `json:"email,omitempty"`
		Currency  string     `json:"currency"`
		BirthDate *time.Time `json:"birthDate,omitempty"`
		Socials   *Socials   `json:"socials,omitempty"`
	}

	RiskProfile struct {
		Score        int        `json:"score"`
		Tolerance    string     `json:"tolerance"`
		HorizonYears int        `json:"horizonYears"`
		AnsweredAt   *time.Time `json:"answeredAt,omitempty"`
	}

	Beneficiary struct {
		Name         string `json:"name"`
		Relationship string `json:"relationship,omitempty"`
		SharePercent Money  `json:"sharePercent"`
	}

	LastWill struct {
		Executor      string        `json:"executor"`
		Beneficiaries []Beneficiary `json:"beneficiaries"`
		Notes         string        `json:"notes,omitempty"`
		UpdatedAt     *time.Time    `json:"updatedAt,omitempty"`
	}
)

var (
	ErrEmptyID           = errors.New("empty id")
	ErrEmptyName         = errors.New("empty name")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidType       = errors.New("invalid transaction type")
	ErrInvalidDate       = errors.New("invalid date")
	ErrInvalidPeriod     = errors.New("invalid period")
	ErrInvalidStatus     = errors.New("invalid status")
	ErrEmptyAccount      = errors.New("empty account reference")
	ErrEmptyCategory     = errors.New("empty category reference")
	ErrInvalidShare      = errors.New("beneficiary shares exceed 100%")
	ErrInvalidScore      = errors.New("risk score out of range")
	ErrDuplicateID       = errors.New("duplicate id")
	ErrDanglingReference = errors.New("dangling reference")
	ErrFixedCategory     = errors.New("fixed category must stay a top-level expense")
)

func (t TransactionType) Valid() bool { return t == Income || t == Expense }

func (p BillingPeriod) Valid() bool { return p == Monthly || p == Yearly }

func (s SubscriptionStatus) Valid() bool {
	switch s {
	case Active, Paused, Cancelled:
		return true
	}
	return false
}

func (e ExpenseType) Valid() bool { return e == Recurring || e == OneTime }

func (p BudgetPeriod) Valid() bool {
	switch p {
	case Weekly, MonthlyBudget, YearlyBudget:
		return true
	}
	return false
}

// Signed returns the effect of t on its account balance: +amount for income,
// -amount for expense.
func (t Transaction) Signed() Money {
	if t.Type == Income {
		return t.Amount
	}
	return t.Amount.Neg()
}

func (a Account) Key() string      { return a.ID }
func (t Transaction) Key() string  { return t.ID }
func (c Category) Key() string     { return c.ID }
func (b Budget) Key() string       { return b.ID }
func (g Goal) Key() string         { return g.ID }
func (s Subscription) Key() string { return s.ID }
func (c CreditCard) Key() string   { return c.ID }
func (c Contact) Key() string      { return c.ID }

func (a Account) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

func (t Transaction) Validate() error {
	if t.Date.IsZero() {
		return ErrInvalidDate
	}
	if t.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	if strings.TrimSpace(t.AccountID) == "" {
		return ErrEmptyAccount
	}
	if strings.TrimSpace(t.CategoryID) == "" {
		return ErrEmptyCategory
	}
	return nil
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if !c.Type.Valid() {
		return ErrInvalidType
	}
	return nil
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.CategoryID) == "" {
		return ErrEmptyCategory
	}
	if !b.Period.Valid() {
		return ErrInvalidPeriod
	}
	if !b.Limit.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

func (g Goal) Validate() error {
	if strings.TrimSpace(g.Name) == "" {
		return ErrEmptyName
	}
	if !g.TargetAmount.IsPositive() || g.CurrentAmount.IsNegative() {
		return ErrInvalidAmount
	}
	return nil
}

func (s Subscription) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return ErrEmptyName
	}
	if s.Price.IsNegative() {
		return ErrInvalidAmount
	}
	if !s.BillingPeriod.Valid() {
		return ErrInvalidPeriod
	}
	if !s.Status.Valid() {
		return ErrInvalidStatus
	}
	if !s.ExpenseType.Valid() {
		return ErrInvalidType
	}
	if s.FirstPayment.IsZero() {
		return ErrInvalidDate
	}
	if s.EndDate != nil && s.EndDate.Before(s.FirstPayment) {
		return errors.New("end date must be after first payment")
	}
	return nil
}

func (c CreditCard) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if c.Limit.IsNegative() || c.APR.IsNegative() {
		return ErrInvalidAmount
	}
	if c.DueDay < 0 || c.DueDay > 31 {
		return errors.New("due day must be between 1 and 31")
	}
	return nil
}

func (c Contact) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

func (r RiskProfile) Validate() error {
	if r.Score < 0 || r.Score > 100 {
		return ErrInvalidScore
	}
	if r.HorizonYears < 0 {
		return errors.New("horizon cannot be negative")
	}
	return nil
}

func (w LastWill) Validate() error {
	total := Zero
	for _, b := range w.Beneficiaries {
		if strings.TrimSpace(b.Name) == "" {
			return ErrEmptyName
		}
		if b.SharePercent.IsNegative() {
			return ErrInvalidAmount
		}
		total = total.Add(b.SharePercent)
	}
	if total.GreaterThan(MoneyFromInt(100)) {
		return ErrInvalidShare
	}
	return nil
}
