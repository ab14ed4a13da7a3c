package http

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/cauth/cauth/internal/domain"
	"github.com/cauth/cauth/internal/storage"
)

func sessionToken(r *http.Request) string {
	return r.URL.Query().Get("session_token")
}

// autoCommit defaults true per spec.md §6.2.
func autoCommit(v *bool) bool {
	if v == nil {
		return true
	}
	return *v
}

func pageFrom(r *http.Request) storage.ListPage {
	query := r.URL.Query()
	page := storage.ListPage{Order: "asc", Offset: 0, Limit: 10}

	if order := query.Get("order"); order == "desc" {
		page.Order = "desc"
	}
	if offset, err := strconv.Atoi(query.Get("offset")); err == nil && offset >= 0 {
		page.Offset = offset
	}
	if limit, err := strconv.Atoi(query.Get("limit")); err == nil && limit > 0 {
		page.Limit = limit
	}
	return page
}

func parseEventID(r *http.Request, name string) (int64, bool) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// eventResponse is the body returned when a mutation is staged without
// being auto-committed (§6.2: `{ "event_id": <int> }`).
type eventResponse struct {
	EventID int64 `json:"event_id"`
}

// stageOnly writes the Pending event's ID without attempting a commit.
func (s *Server) stageOnly(w http.ResponseWriter, pe *domain.PendingEvent) {
	s.writeJSON(w, http.StatusOK, eventResponse{EventID: pe.ID})
}

// actingLogin resolves the session_token's user login for audit purposes.
// A token that does not resolve to a session yields a blank login.
func (s *Server) actingLogin(r *http.Request, token string) string {
	session, err := s.sessions.Retrieve(r.Context(), token)
	if err != nil {
		return ""
	}
	return session.UserLogin
}
