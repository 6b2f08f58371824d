package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"lifeledger/internal/core"
	"lifeledger/internal/ledger"
	"lifeledger/internal/middleware/ratelimit"
	"lifeledger/internal/reports"
	"lifeledger/internal/storage/memory"
)

var testNow = time.Date(2024, 4, 20, 10, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, opts ...Option) (*Server, *ledger.Engine) {
	t.Helper()

	snap := core.NewSnapshot()
	snap.Accounts = []core.Account{{ID: "A", Name: "Checking", Balance: core.MoneyFromInt(500)}}
	store, err := memory.NewStoreWith(snap)
	if err != nil {
		t.Fatalf("NewStoreWith: %v", err)
	}

	n := 0
	engine := ledger.New(store,
		ledger.WithClock(func() time.Time { return testNow }),
		ledger.WithIDGenerator(func() string { n++; return fmt.Sprintf("id-%d", n) }),
	)
	if err := engine.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}

	svc := reports.NewService(engine, 16, time.Minute)
	engine.Subscribe(svc.Invalidate)

	opts = append([]Option{WithClock(func() time.Time { return testNow })}, opts...)
	s := NewServer(":0", engine, svc, opts...)
	t.Cleanup(func() { s.limiter.Stop() })
	return s, engine
}

func do(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestHealthAndReady(t *testing.T) {
	s, _ := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		if rec := do(t, s, http.MethodGet, path, nil); rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, rec.Code)
		}
	}
}

func TestReadyBeforeLoad(t *testing.T) {
	engine := ledger.New(memory.NewStore())
	s := NewServer(":0", engine, reports.NewService(engine, 4, time.Minute))
	defer s.limiter.Stop()

	if rec := do(t, s, http.MethodGet, "/readyz", nil); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("GET /readyz = %d, want 503", rec.Code)
	}
}

func TestTransactionLifecycle(t *testing.T) {
	s, engine := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/transactions", map[string]any{
		"date":       "2024-04-10T12:00:00Z",
		"amount":     "40.50",
		"type":       "expense",
		"categoryId": "groceries",
		"accountId":  "A",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /api/transactions = %d: %s", rec.Code, rec.Body)
	}
	created := decode[core.Transaction](t, rec)
	if created.ID != "id-1" {
		t.Errorf("created ID = %q, want id-1", created.ID)
	}
	if got := engine.Snapshot().Accounts[0].Balance.String(); got != "459.50" {
		t.Errorf("balance after create = %s, want 459.50", got)
	}

	rec = do(t, s, http.MethodPut, "/api/transactions/id-1", map[string]any{
		"date":       "2024-04-10T12:00:00Z",
		"amount":     100,
		"type":       "income",
		"categoryId": "salary",
		"accountId":  "A",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT /api/transactions/id-1 = %d: %s", rec.Code, rec.Body)
	}
	if got := engine.Snapshot().Accounts[0].Balance.String(); got != "600.00" {
		t.Errorf("balance after update = %s, want 600.00", got)
	}

	rec = do(t, s, http.MethodGet, "/api/transactions?accountId=A", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/transactions = %d", rec.Code)
	}
	if got := decode[[]core.Transaction](t, rec); len(got) != 1 || got[0].Type != core.Income {
		t.Errorf("listed transactions = %+v", got)
	}

	rec = do(t, s, http.MethodGet, "/api/transactions?accountId=other", nil)
	if got := decode[[]core.Transaction](t, rec); len(got) != 0 {
		t.Errorf("filtered list = %+v, want empty", got)
	}

	if rec = do(t, s, http.MethodDelete, "/api/transactions/id-1", nil); rec.Code != http.StatusNoContent {
		t.Fatalf("DELETE /api/transactions/id-1 = %d", rec.Code)
	}
	if got := engine.Snapshot().Accounts[0].Balance.String(); got != "500.00" {
		t.Errorf("balance after delete = %s, want 500.00", got)
	}
}

func TestErrorStatuses(t *testing.T) {
	s, _ := newTestServer(t)

	if rec := do(t, s, http.MethodPost, "/api/goals", map[string]any{"name": "Trip", "targetAmount": 1000}); rec.Code != http.StatusCreated {
		t.Fatalf("POST /api/goals = %d: %s", rec.Code, rec.Body)
	}
	if rec := do(t, s, http.MethodPost, "/api/transactions", map[string]any{
		"date": "2024-04-10T12:00:00Z", "amount": 5, "type": "expense", "categoryId": "other", "accountId": "A",
	}); rec.Code != http.StatusCreated {
		t.Fatalf("seed transaction = %d: %s", rec.Code, rec.Body)
	}

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"malformed json", http.MethodPost, "/api/transactions", "{", http.StatusBadRequest},
		{"unknown field", http.MethodPost, "/api/accounts", `{"name":"x","colour":"red"}`, http.StatusBadRequest},
		{"trailing data", http.MethodPost, "/api/accounts", `{"name":"x"} {}`, http.StatusBadRequest},
		{"missing account", http.MethodPost, "/api/transactions", map[string]any{
			"date": "2024-04-10T12:00:00Z", "amount": 5, "type": "expense", "categoryId": "other", "accountId": "nope",
		}, http.StatusNotFound},
		{"invalid type", http.MethodPost, "/api/transactions", map[string]any{
			"date": "2024-04-10T12:00:00Z", "amount": 5, "type": "gift", "categoryId": "other", "accountId": "A",
		}, http.StatusUnprocessableEntity},
		{"unknown transaction", http.MethodDelete, "/api/transactions/missing", nil, http.StatusNotFound},
		{"account in use", http.MethodDelete, "/api/accounts/A", nil, http.StatusConflict},
		{"overdrawn contribution", http.MethodPost, "/api/goals/id-1/contributions", map[string]any{
			"amount": 10000, "accountId": "A",
		}, http.StatusUnprocessableEntity},
		{"bad month", http.MethodGet, "/api/reports/month?month=13", nil, http.StatusBadRequest},
		{"bad date", http.MethodGet, "/api/reports/budgets?date=yesterday", nil, http.StatusBadRequest},
		{"suspicious path", http.MethodGet, "/api/../.env", nil, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, tt.method, tt.path, tt.body)
			if rec.Code != tt.want {
				t.Errorf("%s %s = %d, want %d: %s", tt.method, tt.path, rec.Code, tt.want, rec.Body)
			}
		})
	}
}

func TestErrorBodyCarriesRequestID(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodDelete, "/api/goals/missing", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("DELETE /api/goals/missing = %d", rec.Code)
	}
	body := decode[errorResponse](t, rec)
	if !strings.Contains(body.Error, "not found") {
		t.Errorf("error = %q, want not found", body.Error)
	}
	if body.RequestID == "" || body.RequestID != rec.Header().Get("X-Request-ID") {
		t.Errorf("request id = %q, header %q", body.RequestID, rec.Header().Get("X-Request-ID"))
	}
}

func TestGoalContribution(t *testing.T) {
	s, engine := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/goals", map[string]any{"name": "Trip", "targetAmount": 1000})
	goal := decode[core.Goal](t, rec)

	rec = do(t, s, http.MethodPost, "/api/goals/"+goal.ID+"/contributions", map[string]any{
		"amount": 120, "accountId": "A",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("contribute = %d: %s", rec.Code, rec.Body)
	}
	tx := decode[core.Transaction](t, rec)
	if tx.CategoryID != core.CategorySavings || tx.Type != core.Expense {
		t.Errorf("contribution tx = %+v", tx)
	}

	snap := engine.Snapshot()
	if got := snap.Goals[0].CurrentAmount.String(); got != "120.00" {
		t.Errorf("goal current = %s, want 120.00", got)
	}
	if got := snap.Accounts[0].Balance.String(); got != "380.00" {
		t.Errorf("balance = %s, want 380.00", got)
	}
}

func TestSubscriptionsAndPostDue(t *testing.T) {
	s, engine := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/subscriptions/bulk", []map[string]any{
		{"name": "Music", "price": 10, "billingPeriod": "Monthly", "status": "Active", "expenseType": "Recurring", "firstPayment": "2024-05-01T12:00:00Z"},
		{"name": "Cloud", "price": 20, "billingPeriod": "Yearly", "status": "Paused", "expenseType": "Recurring", "firstPayment": "2024-05-01T12:00:00Z"},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("bulk = %d: %s", rec.Code, rec.Body)
	}
	if got := decode[[]core.Subscription](t, rec); len(got) != 2 {
		t.Fatalf("bulk returned %d subscriptions", len(got))
	}

	rec = do(t, s, http.MethodPost, "/api/subscriptions/post-due", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("post-due = %d: %s", rec.Code, rec.Body)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != "[]" {
		t.Errorf("post-due body = %s, want []", got)
	}
	if n := len(engine.Snapshot().Subscriptions); n != 2 {
		t.Errorf("subscriptions = %d, want 2", n)
	}
}

func TestProfileEndpoints(t *testing.T) {
	s, _ := newTestServer(t)

	if rec := do(t, s, http.MethodPut, "/api/profile", map[string]any{"name": "Sam", "currency": "USD"}); rec.Code != http.StatusOK {
		t.Fatalf("PUT /api/profile = %d: %s", rec.Code, rec.Body)
	}
	if rec := do(t, s, http.MethodPut, "/api/risk-profile", map[string]any{"score": 60, "tolerance": "moderate", "horizonYears": 10}); rec.Code != http.StatusOK {
		t.Fatalf("PUT /api/risk-profile = %d: %s", rec.Code, rec.Body)
	}
	if rec := do(t, s, http.MethodPut, "/api/risk-profile", map[string]any{"score": 300}); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("invalid risk profile = %d, want 422", rec.Code)
	}

	rec := do(t, s, http.MethodGet, "/api/profile", nil)
	got := decode[struct {
		Profile     core.Profile      `json:"profile"`
		RiskProfile *core.RiskProfile `json:"riskProfile"`
	}](t, rec)
	if got.Profile.Name != "Sam" || got.Profile.Currency != "USD" {
		t.Errorf("profile = %+v", got.Profile)
	}
	if got.RiskProfile == nil || got.RiskProfile.Score != 60 {
		t.Errorf("risk profile = %+v", got.RiskProfile)
	}
}

func TestSnapshotExportImport(t *testing.T) {
	s, engine := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/snapshot", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("export = %d", rec.Code)
	}
	exported := decode[core.Snapshot](t, rec)
	exported.Accounts = append(exported.Accounts, core.Account{ID: "B", Name: "Cash", Balance: core.MoneyFromInt(50)})

	if rec = do(t, s, http.MethodPut, "/api/snapshot", exported); rec.Code != http.StatusNoContent {
		t.Fatalf("import = %d: %s", rec.Code, rec.Body)
	}
	var ids []string
	for _, a := range engine.Snapshot().Accounts {
		ids = append(ids, a.ID)
	}
	if diff := cmp.Diff([]string{"A", "B"}, ids); diff != "" {
		t.Errorf("accounts after import (-want +got):\n%s", diff)
	}

	exported.Transactions = append(exported.Transactions, core.Transaction{
		ID: "t1", Date: testNow, Amount: core.MoneyFromInt(1), Type: core.Expense, CategoryID: "other", AccountID: "missing",
	})
	if rec = do(t, s, http.MethodPut, "/api/snapshot", exported); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("dangling import = %d, want 422: %s", rec.Code, rec.Body)
	}
}

func TestReports(t *testing.T) {
	s, _ := newTestServer(t)

	do(t, s, http.MethodPost, "/api/transactions", map[string]any{
		"date": "2024-04-02T12:00:00Z", "amount": 1000, "type": "income", "categoryId": "salary", "accountId": "A",
	})
	do(t, s, http.MethodPost, "/api/transactions", map[string]any{
		"date": "2024-04-05T12:00:00Z", "amount": 250, "type": "expense", "categoryId": "housing", "accountId": "A",
	})

	rec := do(t, s, http.MethodGet, "/api/reports/month", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("month report = %d", rec.Code)
	}
	overview := decode[core.MonthOverview](t, rec)
	if overview.Year != 2024 || overview.Month != 4 {
		t.Errorf("defaulted to %d-%d, want 2024-4", overview.Year, overview.Month)
	}
	if overview.Income.String() != "1000.00" || overview.Expense.String() != "250.00" || overview.Net.String() != "750.00" {
		t.Errorf("overview = %+v", overview)
	}

	rec = do(t, s, http.MethodGet, "/api/reports/month?year=2024&month=3", nil)
	if got := decode[core.MonthOverview](t, rec); !got.Income.IsZero() {
		t.Errorf("march income = %s, want 0", got.Income)
	}

	rec = do(t, s, http.MethodGet, "/api/reports/net-worth", nil)
	if got := decode[core.NetWorth](t, rec); got.Net.String() != "1250.00" {
		t.Errorf("net worth = %s, want 1250.00", got.Net)
	}
}

func TestMutationsAreRateLimited(t *testing.T) {
	s, _ := newTestServer(t, WithRateLimit(ratelimit.Config{
		RequestsPerWindow: 2,
		Window:            time.Minute,
		CleanupInterval:   time.Minute,
	}))

	body := map[string]any{"name": "Cash"}
	for i := 0; i < 2; i++ {
		if rec := do(t, s, http.MethodPost, "/api/accounts", body); rec.Code != http.StatusCreated {
			t.Fatalf("request %d = %d: %s", i, rec.Code, rec.Body)
		}
	}
	if rec := do(t, s, http.MethodPost, "/api/accounts", body); rec.Code != http.StatusTooManyRequests {
		t.Errorf("third mutation = %d, want 429", rec.Code)
	}
	if rec := do(t, s, http.MethodGet, "/api/accounts", nil); rec.Code != http.StatusOK {
		t.Errorf("read after limit = %d, want 200", rec.Code)
	}
}
