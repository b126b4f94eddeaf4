package api

import (
	"net/http"

	"github.com/etnz/finance"
	"github.com/go-chi/chi/v5"
)

func (s *Server) listTags(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"tags": s.tags.List()})
}

func (s *Server) createTag(w http.ResponseWriter, r *http.Request) {
	var draft finance.TagDraft
	if !decode(w, r, &draft) {
		return
	}
	t, err := s.tags.Create(r.Context(), draft)
	writeMutation(w, http.StatusCreated, t, err)
}

func (s *Server) updateTag(w http.ResponseWriter, r *http.Request) {
	var patch finance.TagPatch
	if !decode(w, r, &patch) {
		return
	}
	t, err := s.tags.Update(r.Context(), chi.URLParam(r, "id"), patch)
	writeMutation(w, http.StatusOK, t, err)
}

func (s *Server) deleteTag(w http.ResponseWriter, r *http.Request) {
	err := s.tags.Delete(r.Context(), chi.URLParam(r, "id"))
	writeMutation(w, http.StatusOK, nil, err)
}
