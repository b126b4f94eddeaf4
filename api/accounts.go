package api

import (
	"net/http"

	"github.com/etnz/finance"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// AccountRequest is the body of POST /accounts.
type AccountRequest struct {
	Name           string              `json:"name"`
	Kind           finance.AccountKind `json:"kind"`
	InitialBalance decimal.Decimal     `json:"initialBalance"`
}

func (s *Server) listAccounts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"accounts": s.book.ListAccounts()})
}

func (s *Server) getAccount(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	a, ok := s.book.Account(id)
	if !ok {
		writeError(w, &finance.NotFoundError{Kind: "account", ID: id})
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) createAccount(w http.ResponseWriter, r *http.Request) {
	var req AccountRequest
	if !decode(w, r, &req) {
		return
	}
	a, err := s.book.CreateAccount(r.Context(), req.Name, req.Kind, req.InitialBalance)
	writeMutation(w, http.StatusCreated, a, err)
}

func (s *Server) deleteAccount(w http.ResponseWriter, r *http.Request) {
	err := s.book.DeleteAccount(r.Context(), chi.URLParam(r, "id"))
	writeMutation(w, http.StatusOK, nil, err)
}
