package http

import (
	"encoding/json"
	"net/http"

	"github.com/cauth/cauth/internal/domain"
)

type eventDetailResponse struct {
	ID             int64           `json:"id"`
	Type           string          `json:"type"`
	Payload        json.RawMessage `json:"payload"`
	Status         string          `json:"status"`
	CreatedAt      string          `json:"created_at"`
	CreatedByLogin string          `json:"created_by_login,omitempty"`
}

func toEventDetailResponse(e *domain.PendingEvent) eventDetailResponse {
	return eventDetailResponse{
		ID:             e.ID,
		Type:           string(e.Type),
		Payload:        e.Payload,
		Status:         string(e.Status),
		CreatedAt:      e.CreatedAt.Format(timeLayout),
		CreatedByLogin: e.CreatedByLogin,
	}
}

const timeLayout = "2006-01-02T15:04:05Z07:00"

// handleListEvents lists the events still Pending and handleGetEvent
// retrieves one event of any status; both are open to
// holders of events:commit, the same permission needed to act on it.
func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	token := sessionToken(r)
	if !s.requirePermission(w, r, token, "events:commit") {
		return
	}

	events, err := s.events.ListPending(r.Context(), pageFrom(r))
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp := make([]eventDetailResponse, len(events))
	for i := range events {
		resp[i] = toEventDetailResponse(&events[i])
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	token := sessionToken(r)
	if !s.requirePermission(w, r, token, "events:commit") {
		return
	}

	id, ok := parseEventID(r, "id")
	if !ok {
		s.writeError(w, domain.ValidationError{Field: "id", Message: "must be an integer"})
		return
	}

	event, err := s.events.Retrieve(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toEventDetailResponse(event))
}

func (s *Server) handleCommitEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := parseEventID(r, "id")
	if !ok {
		s.writeError(w, domain.ValidationError{Field: "id", Message: "must be an integer"})
		return
	}

	if err := s.events.Commit(r.Context(), sessionToken(r), id); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, eventResponse{EventID: id})
}

func (s *Server) handleCancelEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := parseEventID(r, "id")
	if !ok {
		s.writeError(w, domain.ValidationError{Field: "id", Message: "must be an integer"})
		return
	}

	if err := s.events.Cancel(r.Context(), sessionToken(r), id); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, eventResponse{EventID: id})
}
