// Package http exposes the ledger engine and its reports as a JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"lifeledger/internal/core"
	"lifeledger/internal/middleware/ratelimit"
	"lifeledger/internal/middleware/security"
	"lifeledger/internal/middleware/trace"
)

// Ledger is the set of engine operations served over HTTP.
type Ledger interface {
	Version() int64
	Snapshot() core.Snapshot
	ExportData() core.Snapshot
	ImportData(ctx context.Context, snap core.Snapshot) error
	PostDueSubscriptions(ctx context.Context) ([]core.Transaction, error)

	AddTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error)
	UpdateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error)
	DeleteTransaction(ctx context.Context, id string) error

	ContributeToGoal(ctx context.Context, goalID string, amount core.Money, accountID string) (core.Transaction, error)
	AddGoal(ctx context.Context, g core.Goal) (core.Goal, error)
	UpdateGoal(ctx context.Context, g core.Goal) (core.Goal, error)
	DeleteGoal(ctx context.Context, id string) error

	AddAccount(ctx context.Context, a core.Account) (core.Account, error)
	UpdateAccount(ctx context.Context, a core.Account) (core.Account, error)
	DeleteAccount(ctx context.Context, id string) error

	AddCategory(ctx context.Context, c core.Category) (core.Category, error)
	UpdateCategory(ctx context.Context, c core.Category) (core.Category, error)

	AddBudget(ctx context.Context, b core.Budget) (core.Budget, error)
	UpdateBudget(ctx context.Context, b core.Budget) (core.Budget, error)
	DeleteBudget(ctx context.Context, id string) error

	AddSubscription(ctx context.Context, sub core.Subscription) (core.Subscription, error)
	BulkAddSubscriptions(ctx context.Context, subs []core.Subscription) ([]core.Subscription, error)
	UpdateSubscription(ctx context.Context, sub core.Subscription) (core.Subscription, error)
	DeleteSubscription(ctx context.Context, id string) error

	AddCreditCard(ctx context.Context, c core.CreditCard) (core.CreditCard, error)
	UpdateCreditCard(ctx context.Context, c core.CreditCard) (core.CreditCard, error)
	DeleteCreditCard(ctx context.Context, id string) error

	AddContact(ctx context.Context, c core.Contact) (core.Contact, error)
	UpdateContact(ctx context.Context, c core.Contact) (core.Contact, error)
	DeleteContact(ctx context.Context, id string) error

	UpdateProfile(ctx context.Context, p core.Profile) (core.Profile, error)
	UpdateRiskProfile(ctx context.Context, r core.RiskProfile) (core.RiskProfile, error)
	UpdateLastWill(ctx context.Context, w core.LastWill) (core.LastWill, error)
}

// Reports serves read models.
type Reports interface {
	MonthOverview(year int, month time.Month) core.MonthOverview
	BudgetUsage(at time.Time) []core.BudgetUsage
	NetWorth() core.NetWorth
}

type Server struct {
	http.Server
	ledger   Ledger
	reports  Reports
	limiter  *ratelimit.Limiter
	tracer   *trace.Middleware
	detector *security.Detector
	now      func() time.Time

	shutdownOnce sync.Once
}

// Option configures a Server.
type Option func(*Server)

// WithClock sets the clock used for report defaults.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// WithRateLimit overrides the mutation rate limit.
func WithRateLimit(cfg ratelimit.Config) Option {
	return func(s *Server) {
		s.limiter.Stop()
		s.limiter = ratelimit.NewLimiter(cfg)
	}
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, l Ledger, r Reports, opts ...Option) *Server {
	s := &Server{
		ledger:   l,
		reports:  r,
		limiter:  ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		detector: security.NewDetector(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP, nil)

	mux := http.NewServeMux()
	s.routes(mux)

	var h http.Handler = mux
	h = s.limiter.Middleware(s.detector.ExtractClientIP, nil, http.MethodPost, http.MethodPut, http.MethodDelete)(h)
	h = security.NewHeadersMiddleware(security.APIHeadersConfig()).Middleware(h)
	h = s.detector.Middleware(h)
	h = s.tracer.Middleware(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/snapshot", s.handleExport)
	mux.HandleFunc("PUT /api/snapshot", s.handleImport)

	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("POST /api/transactions", create(s, s.ledger.AddTransaction))
	mux.HandleFunc("PUT /api/transactions/{id}", update(s, func(t *core.Transaction, id string) { t.ID = id }, s.ledger.UpdateTransaction))
	mux.HandleFunc("DELETE /api/transactions/{id}", remove(s, s.ledger.DeleteTransaction))

	mux.HandleFunc("GET /api/goals", list(s, func(snap core.Snapshot) []core.Goal { return snap.Goals }))
	mux.HandleFunc("POST /api/goals", create(s, s.ledger.AddGoal))
	mux.HandleFunc("PUT /api/goals/{id}", update(s, func(g *core.Goal, id string) { g.ID = id }, s.ledger.UpdateGoal))
	mux.HandleFunc("DELETE /api/goals/{id}", remove(s, s.ledger.DeleteGoal))
	mux.HandleFunc("POST /api/goals/{id}/contributions", s.handleContribute)

	mux.HandleFunc("GET /api/accounts", list(s, func(snap core.Snapshot) []core.Account { return snap.Accounts }))
	mux.HandleFunc("POST /api/accounts", create(s, s.ledger.AddAccount))
	mux.HandleFunc("PUT /api/accounts/{id}", update(s, func(a *core.Account, id string) { a.ID = id }, s.ledger.UpdateAccount))
	mux.HandleFunc("DELETE /api/accounts/{id}", remove(s, s.ledger.DeleteAccount))

	mux.HandleFunc("GET /api/categories", list(s, func(snap core.Snapshot) []core.Category { return snap.Categories }))
	mux.HandleFunc("POST /api/categories", create(s, s.ledger.AddCategory))
	mux.HandleFunc("PUT /api/categories/{id}", update(s, func(c *core.Category, id string) { c.ID = id }, s.ledger.UpdateCategory))

	mux.HandleFunc("GET /api/budgets", list(s, func(snap core.Snapshot) []core.Budget { return snap.Budgets }))
	mux.HandleFunc("POST /api/budgets", create(s, s.ledger.AddBudget))
	mux.HandleFunc("PUT /api/budgets/{id}", update(s, func(b *core.Budget, id string) { b.ID = id }, s.ledger.UpdateBudget))
	mux.HandleFunc("DELETE /api/budgets/{id}", remove(s, s.ledger.DeleteBudget))

	mux.HandleFunc("GET /api/subscriptions", list(s, func(snap core.Snapshot) []core.Subscription { return snap.Subscriptions }))
	mux.HandleFunc("POST /api/subscriptions", create(s, s.ledger.AddSubscription))
	mux.HandleFunc("POST /api/subscriptions/bulk", create(s, s.ledger.BulkAddSubscriptions))
	mux.HandleFunc("POST /api/subscriptions/post-due", s.handlePostDue)
	mux.HandleFunc("PUT /api/subscriptions/{id}", update(s, func(sub *core.Subscription, id string) { sub.ID = id }, s.ledger.UpdateSubscription))
	mux.HandleFunc("DELETE /api/subscriptions/{id}", remove(s, s.ledger.DeleteSubscription))

	mux.HandleFunc("GET /api/credit-cards", list(s, func(snap core.Snapshot) []core.CreditCard { return snap.CreditCards }))
	mux.HandleFunc("POST /api/credit-cards", create(s, s.ledger.AddCreditCard))
	mux.HandleFunc("PUT /api/credit-cards/{id}", update(s, func(c *core.CreditCard, id string) { c.ID = id }, s.ledger.UpdateCreditCard))
	mux.HandleFunc("DELETE /api/credit-cards/{id}", remove(s, s.ledger.DeleteCreditCard))

	mux.HandleFunc("GET /api/contacts", list(s, func(snap core.Snapshot) []core.Contact { return snap.Contacts }))
	mux.HandleFunc("POST /api/contacts", create(s, s.ledger.AddContact))
	mux.HandleFunc("PUT /api/contacts/{id}", update(s, func(c *core.Contact, id string) { c.ID = id }, s.ledger.UpdateContact))
	mux.HandleFunc("DELETE /api/contacts/{id}", remove(s, s.ledger.DeleteContact))

	mux.HandleFunc("GET /api/profile", s.handleGetProfile)
	mux.HandleFunc("PUT /api/profile", replace(s, s.ledger.UpdateProfile))
	mux.HandleFunc("PUT /api/risk-profile", replace(s, s.ledger.UpdateRiskProfile))
	mux.HandleFunc("PUT /api/last-will", replace(s, s.ledger.UpdateLastWill))

	mux.HandleFunc("GET /api/reports/month", s.handleMonthReport)
	mux.HandleFunc("GET /api/reports/budgets", s.handleBudgetReport)
	mux.HandleFunc("GET /api/reports/net-worth", s.handleNetWorth)
}

// Shutdown stops the rate limiter and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady reports ready once the ledger has loaded a snapshot.
func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	if s.ledger.Version() == 0 {
		http.Error(w, "ledger not loaded", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
