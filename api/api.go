// Package api serves a book over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/etnz/finance"
	"github.com/etnz/finance/outbox"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// SyncStatus reports the state of the outbox.
type SyncStatus interface {
	Status(ctx context.Context) (outbox.Stats, error)
	Failed(ctx context.Context) ([]outbox.Entry, error)
}

// Server holds the state served by the handlers.
type Server struct {
	book *finance.Book
	tags *finance.TagIndex
	sync SyncStatus
}

// NewServer creates a server. sync can be nil.
func NewServer(book *finance.Book, tags *finance.TagIndex, sync SyncStatus) *Server {
	return &Server{book: book, tags: tags, sync: sync}
}

// Router returns the HTTP handler of the API.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	// Middleware.
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/accounts", func(r chi.Router) {
			r.Get("/", s.listAccounts)
			r.Post("/", s.createAccount)
			r.Get("/{id}", s.getAccount)
			r.Delete("/{id}", s.deleteAccount)
		})
		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", s.listTransactions)
			r.Post("/", s.addTransaction)
			r.Get("/{id}", s.getTransaction)
			r.Patch("/{id}", s.updateTransaction)
			r.Delete("/{id}", s.deleteTransaction)
		})
		r.Route("/budgets", func(r chi.Router) {
			r.Get("/", s.listBudgets)
			r.Post("/", s.createBudget)
			r.Get("/{id}/progress", s.budgetProgress)
			r.Delete("/{id}", s.deleteBudget)
		})
		r.Route("/tags", func(r chi.Router) {
			r.Get("/", s.listTags)
			r.Post("/", s.createTag)
			r.Patch("/{id}", s.updateTag)
			r.Delete("/{id}", s.deleteTag)
		})
		r.Get("/sync", s.syncStatus)
	})
	return r
}

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// MutationResponse is the response of every mutation. Saved is false when
// the change is applied but not yet persisted.
type MutationResponse struct {
	Data  any    `json:"data,omitempty"`
	Saved bool   `json:"saved"`
	Error string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, error, description string) {
	writeJSON(w, status, ErrorResponse{Error: error, ErrorDescription: description})
}

// writeError maps a finance error to its status.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, finance.ErrValidation):
		writeJSONError(w, http.StatusBadRequest, "invalid_parameter", err.Error())
	case errors.Is(err, finance.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, finance.ErrConflict):
		writeJSONError(w, http.StatusConflict, "conflict", err.Error())
	default:
		writeJSONError(w, http.StatusInternalServerError, "server_error", err.Error())
	}
}

// writeMutation writes the outcome of a mutation. A persistence failure is
// not an error for the client: the change is applied and will be saved later.
func writeMutation(w http.ResponseWriter, status int, data any, err error) {
	switch {
	case err == nil:
		writeJSON(w, status, MutationResponse{Data: data, Saved: true})
	case errors.Is(err, finance.ErrPersistence):
		writeJSON(w, http.StatusAccepted, MutationResponse{Data: data, Saved: false, Error: err.Error()})
	default:
		writeError(w, err)
	}
}

// decode reads the JSON body of r into v, and reports a 400 on failure.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Failed to parse request body: "+err.Error())
		return false
	}
	return true
}
