package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cauth/cauth/internal/domain"
)

type userResponse struct {
	Login   string          `json:"login"`
	Details json.RawMessage `json:"details,omitempty"`
	Groups  []string        `json:"groups,omitempty"`
}

func toUserResponse(u *domain.User) userResponse {
	return userResponse{Login: u.Login, Details: u.Details, Groups: u.GroupNames()}
}

// handleGetUser serves the retrieval half of scenario 1 ("GET users/alice").
// Reading a login's existence is not itself a privileged mutation, so no
// session_token is required; see DESIGN.md.
func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.users.Retrieve(r.Context(), chi.URLParam(r, "login"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toUserResponse(user))
}

type registerUserRequest struct {
	Login      string          `json:"login"`
	Password   string          `json:"password"`
	Details    json.RawMessage `json:"details"`
	AutoCommit *bool           `json:"auto_commit"`
}

// handleRegisterUser is open (no permission is required to create a user,
// per spec.md §6.2): it stages a UserRegister event when auto_commit is
// false, otherwise it calls C5 directly.
func (s *Server) handleRegisterUser(w http.ResponseWriter, r *http.Request) {
	var req registerUserRequest
	if err := s.readJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	if !autoCommit(req.AutoCommit) {
		pe, err := s.events.CreateUserRegister(r.Context(), req.Login, req.Password, req.Details)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.stageOnly(w, pe)
		return
	}

	user, err := s.users.Insert(r.Context(), "", req.Login, req.Password, req.Details)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toUserResponse(user))
}

// handleDeleteUser requires the instance-scoped users:delete:{login}
// permission regardless of auto_commit (scenario 4).
func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	var req deleteRequest
	_ = s.readJSON(r, &req)

	token := sessionToken(r)
	login := chi.URLParam(r, "login")

	if !autoCommit(req.AutoCommit) {
		pe, err := s.events.CreateUserDelete(r.Context(), token, login)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.stageOnly(w, pe)
		return
	}

	required, _ := domain.ActionPermission(domain.EventUserDelete, &domain.UserDeletePayload{Login: login})
	if !s.requirePermission(w, r, token, required) {
		return
	}
	if err := s.users.Delete(r.Context(), s.actingLogin(r, token), login); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"login": login})
}

type loginRequest struct {
	Login      string `json:"login"`
	Password   string `json:"password"`
	AutoCommit *bool  `json:"auto_commit"`
}

type loginResponse struct {
	EventID      int64  `json:"event_id,omitempty"`
	SessionToken string `json:"session_token"`
}

// handleLoginUser is open (§6.2). With auto_commit=false it stages a
// UserLogin event and returns the OnHold session's token, per scenario 2:
// the client needs it to later observe the session becoming usable once the
// event commits. With auto_commit=true (the default) it authenticates and
// activates the session in the same request, with no Pending event at all.
func (s *Server) handleLoginUser(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := s.readJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	if !autoCommit(req.AutoCommit) {
		pe, session, err := s.events.CreateUserLogin(r.Context(), req.Login, req.Password)
		if err != nil {
			s.writeError(w, loginError(err))
			return
		}
		s.writeJSON(w, http.StatusOK, loginResponse{EventID: pe.ID, SessionToken: session.Token})
		return
	}

	if _, err := s.users.Authenticate(r.Context(), req.Login, req.Password); err != nil {
		s.writeError(w, loginError(err))
		return
	}
	session, err := s.sessions.Create(r.Context(), req.Login, req.Login, domain.SessionActive)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, loginResponse{SessionToken: session.Token})
}

// loginError folds ErrNotFound into ErrInvalidCredentials so login never
// lets a caller distinguish an unknown login from a wrong password (§7,
// scenario 3). This is the only place that translation happens; writeError
// itself gives ErrNotFound its own 404 for every other endpoint.
func loginError(err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return domain.ErrInvalidCredentials
	}
	return err
}
