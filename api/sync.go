package api

import (
	"net/http"

	"github.com/etnz/finance/outbox"
)

// SyncResponse is the response of GET /sync.
type SyncResponse struct {
	Outbox       outbox.Stats `json:"outbox"`
	Failed       []string     `json:"failed,omitempty"`
	Unsaved      []string     `json:"unsaved,omitempty"`
	UnsyncedTags []string     `json:"unsyncedTags,omitempty"`
}

func (s *Server) syncStatus(w http.ResponseWriter, r *http.Request) {
	var resp SyncResponse
	if s.sync != nil {
		stats, err := s.sync.Status(r.Context())
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, "server_error", err.Error())
			return
		}
		failed, err := s.sync.Failed(r.Context())
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, "server_error", err.Error())
			return
		}
		resp.Outbox = stats
		for _, e := range failed {
			resp.Failed = append(resp.Failed, e.Label)
		}
	}
	resp.Unsaved = s.book.Unsaved()
	resp.UnsyncedTags = s.tags.Unsynced()
	writeJSON(w, http.StatusOK, resp)
}
