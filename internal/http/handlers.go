package http

import (
	"context"
	"net/http"
	"strings"

	"lifeledger/internal/core"
	"lifeledger/internal/log"
)

func create[T any](s *Server, add func(context.Context, T) (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in T
		if err := decodeJSON(w, r, maxBodyBytes, &in); err != nil {
			fail(w, r, err)
			return
		}
		out, err := add(r.Context(), in)
		if err != nil {
			fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, out)
	}
}

// update decodes a record and takes its identifier from the path.
func update[T any](s *Server, setID func(*T, string), upd func(context.Context, T) (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in T
		if err := decodeJSON(w, r, maxBodyBytes, &in); err != nil {
			fail(w, r, err)
			return
		}
		setID(&in, r.PathValue("id"))
		out, err := upd(r.Context(), in)
		if err != nil {
			fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// replace serves single records that have no identifier.
func replace[T any](s *Server, upd func(context.Context, T) (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in T
		if err := decodeJSON(w, r, maxBodyBytes, &in); err != nil {
			fail(w, r, err)
			return
		}
		out, err := upd(r.Context(), in)
		if err != nil {
			fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func remove(s *Server, del func(context.Context, string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := del(r.Context(), r.PathValue("id")); err != nil {
			fail(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func list[T any](s *Server, pick func(core.Snapshot) []T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, pick(s.ledger.Snapshot()))
	}
}

// handleListTransactions lists transactions newest first, optionally
// filtered by accountId, categoryId and subscriptionId.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	accountID := strings.TrimSpace(q.Get("accountId"))
	categoryID := strings.TrimSpace(q.Get("categoryId"))
	subscriptionID := strings.TrimSpace(q.Get("subscriptionId"))

	txs := s.ledger.Snapshot().Transactions
	out := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		if accountID != "" && tx.AccountID != accountID {
			continue
		}
		if categoryID != "" && tx.CategoryID != categoryID {
			continue
		}
		if subscriptionID != "" && tx.SubscriptionID != subscriptionID {
			continue
		}
		out = append(out, tx)
	}
	writeJSON(w, http.StatusOK, out)
}

type contributionRequest struct {
	Amount    core.Money `json:"amount"`
	AccountID string     `json:"accountId"`
}

func (s *Server) handleContribute(w http.ResponseWriter, r *http.Request) {
	var req contributionRequest
	if err := decodeJSON(w, r, maxBodyBytes, &req); err != nil {
		fail(w, r, err)
		return
	}
	tx, err := s.ledger.ContributeToGoal(r.Context(), r.PathValue("id"), req.Amount, req.AccountID)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

func (s *Server) handlePostDue(w http.ResponseWriter, r *http.Request) {
	posted, err := s.ledger.PostDueSubscriptions(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	if posted == nil {
		posted = []core.Transaction{}
	}
	writeJSON(w, http.StatusOK, posted)
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	snap := s.ledger.Snapshot()
	writeJSON(w, http.StatusOK, struct {
		Profile     core.Profile      `json:"profile"`
		RiskProfile *core.RiskProfile `json:"riskProfile,omitempty"`
		LastWill    *core.LastWill    `json:"lastWill,omitempty"`
	}{snap.Profile, snap.RiskProfile, snap.LastWill})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Disposition", `attachment; filename="lifeledger-export.json"`)
	writeJSON(w, http.StatusOK, s.ledger.ExportData())
}

// handleImport replaces the whole snapshot.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	var snap core.Snapshot
	if err := decodeJSON(w, r, maxImportBytes, &snap); err != nil {
		fail(w, r, err)
		return
	}
	if err := s.ledger.ImportData(r.Context(), snap); err != nil {
		fail(w, r, err)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Snapshot imported",
		log.FieldOperation, log.OpImport,
		log.FieldVersion, s.ledger.Version(),
		"transactions", len(snap.Transactions))
	w.WriteHeader(http.StatusNoContent)
}
