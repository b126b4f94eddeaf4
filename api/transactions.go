package api

import (
	"net/http"

	"github.com/etnz/finance"
	"github.com/etnz/finance/date"
	"github.com/go-chi/chi/v5"
)

// listTransactions handles GET /transactions. The optional account,
// category, type and period query parameters filter the result.
func (s *Server) listTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var filters []func(finance.Transaction) bool
	if v := q.Get("account"); v != "" {
		filters = append(filters, finance.ByAccount(v))
	}
	if v := q.Get("category"); v != "" {
		filters = append(filters, finance.ByCategory(v))
	}
	if v := q.Get("type"); v != "" {
		t, err := finance.ParseTxType(v)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid_parameter", err.Error())
			return
		}
		filters = append(filters, finance.ByType(t))
	}
	if v := q.Get("period"); v != "" {
		p, err := date.ParseRange(v)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid_parameter", err.Error())
			return
		}
		filters = append(filters, finance.InRange(p))
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": s.book.ListTransactions(filters...)})
}

func (s *Server) getTransaction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	tx, ok := s.book.Transaction(id)
	if !ok {
		writeError(w, &finance.NotFoundError{Kind: "transaction", ID: id})
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (s *Server) addTransaction(w http.ResponseWriter, r *http.Request) {
	var draft finance.Draft
	if !decode(w, r, &draft) {
		return
	}
	tx, err := s.book.AddTransaction(r.Context(), draft)
	writeMutation(w, http.StatusCreated, tx, err)
}

func (s *Server) updateTransaction(w http.ResponseWriter, r *http.Request) {
	var patch finance.Patch
	if !decode(w, r, &patch) {
		return
	}
	tx, err := s.book.UpdateTransaction(r.Context(), chi.URLParam(r, "id"), patch)
	writeMutation(w, http.StatusOK, tx, err)
}

func (s *Server) deleteTransaction(w http.ResponseWriter, r *http.Request) {
	err := s.book.DeleteTransaction(r.Context(), chi.URLParam(r, "id"))
	writeMutation(w, http.StatusOK, nil, err)
}
