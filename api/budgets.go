package api

import (
	"net/http"

	"github.com/etnz/finance"
	"github.com/etnz/finance/date"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// BudgetRequest is the body of POST /budgets. Period is a range identifier
// like "2026-10", "2026-Q4" or "2026-W42".
type BudgetRequest struct {
	CategoryID string          `json:"categoryId"`
	Amount     decimal.Decimal `json:"amount"`
	Period     string          `json:"period"`
}

// BudgetResponse is a budget with its progress.
type BudgetResponse struct {
	finance.Budget
	Progress finance.BudgetProgress `json:"progress"`
}

func (s *Server) listBudgets(w http.ResponseWriter, r *http.Request) {
	budgets := s.book.ListBudgets()
	out := make([]BudgetResponse, 0, len(budgets))
	for _, b := range budgets {
		out = append(out, BudgetResponse{Budget: b, Progress: s.book.Progress(b.CategoryID, b.Amount, b.Period)})
	}
	writeJSON(w, http.StatusOK, map[string]any{"budgets": out})
}

func (s *Server) createBudget(w http.ResponseWriter, r *http.Request) {
	var req BudgetRequest
	if !decode(w, r, &req) {
		return
	}
	var period date.Range
	if req.Period != "" {
		var err error
		if period, err = date.ParseRange(req.Period); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid_parameter", err.Error())
			return
		}
	}
	b, err := s.book.CreateBudget(r.Context(), req.CategoryID, req.Amount, period)
	writeMutation(w, http.StatusCreated, b, err)
}

func (s *Server) budgetProgress(w http.ResponseWriter, r *http.Request) {
	p, err := s.book.BudgetProgress(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) deleteBudget(w http.ResponseWriter, r *http.Request) {
	err := s.book.DeleteBudget(r.Context(), chi.URLParam(r, "id"))
	writeMutation(w, http.StatusOK, nil, err)
}
