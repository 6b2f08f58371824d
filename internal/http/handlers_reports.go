package http

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// handleMonthReport serves ?year=&month=, defaulting to the current month.
func (s *Server) handleMonthReport(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	year, month := now.Year(), int(now.Month())

	q := r.URL.Query()
	if v := strings.TrimSpace(q.Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil {
			fail(w, r, fmt.Errorf("%w: year %q", errBadRequest, v))
			return
		}
		year = y
	}
	if v := strings.TrimSpace(q.Get("month")); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 1 || m > 12 {
			fail(w, r, fmt.Errorf("%w: month %q", errBadRequest, v))
			return
		}
		month = m
	}

	writeJSON(w, http.StatusOK, s.reports.MonthOverview(year, time.Month(month)))
}

// handleBudgetReport serves ?date=YYYY-MM-DD, defaulting to today.
func (s *Server) handleBudgetReport(w http.ResponseWriter, r *http.Request) {
	at := s.now()
	if v := strings.TrimSpace(r.URL.Query().Get("date")); v != "" {
		d, err := time.ParseInLocation(dateLayout, v, at.Location())
		if err != nil {
			fail(w, r, fmt.Errorf("%w: date %q", errBadRequest, v))
			return
		}
		at = d
	}
	writeJSON(w, http.StatusOK, s.reports.BudgetUsage(at))
}

func (s *Server) handleNetWorth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.reports.NetWorth())
}
