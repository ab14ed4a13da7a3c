package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cauth/cauth/internal/domain"
)

type permissionResponse struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func toPermissionResponse(p *domain.Permission) permissionResponse {
	return permissionResponse{Name: p.Name, Description: p.Description}
}

// handleListPermissions serves GET /permissions (permissions:get).
func (s *Server) handleListPermissions(w http.ResponseWriter, r *http.Request) {
	token := sessionToken(r)
	if !s.requirePermission(w, r, token, "permissions:get") {
		return
	}

	perms, err := s.permissions.List(r.Context(), pageFrom(r))
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp := make([]permissionResponse, len(perms))
	for i := range perms {
		resp[i] = toPermissionResponse(&perms[i])
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetPermission(w http.ResponseWriter, r *http.Request) {
	token := sessionToken(r)
	if !s.requirePermission(w, r, token, "permissions:get") {
		return
	}

	perm, err := s.permissions.Retrieve(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toPermissionResponse(perm))
}

type createPermissionRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	AutoCommit  *bool  `json:"auto_commit"`
}

// handleCreatePermission stages a PermissionInsert event when auto_commit is
// false; otherwise it calls C3 directly, per spec.md §2's data flow (the
// Event Engine's events:commit gate is reserved for explicit commits, not
// for auto_commit=true).
func (s *Server) handleCreatePermission(w http.ResponseWriter, r *http.Request) {
	var req createPermissionRequest
	if err := s.readJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	token := sessionToken(r)

	if !autoCommit(req.AutoCommit) {
		pe, err := s.events.CreatePermissionInsert(r.Context(), token, req.Name, req.Description)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.stageOnly(w, pe)
		return
	}

	if !s.requirePermission(w, r, token, "permissions:post") {
		return
	}
	perm, err := s.permissions.Insert(r.Context(), s.actingLogin(r, token), req.Name, req.Description)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toPermissionResponse(perm))
}

type deleteRequest struct {
	AutoCommit *bool `json:"auto_commit"`
}

func (s *Server) handleDeletePermission(w http.ResponseWriter, r *http.Request) {
	var req deleteRequest
	_ = s.readJSON(r, &req) // DELETE bodies are optional; ignore decode failures

	token := sessionToken(r)
	name := chi.URLParam(r, "name")

	if !autoCommit(req.AutoCommit) {
		pe, err := s.events.CreatePermissionDelete(r.Context(), token, name)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.stageOnly(w, pe)
		return
	}

	if !s.requirePermission(w, r, token, "permissions:delete") {
		return
	}
	if err := s.permissions.Delete(r.Context(), s.actingLogin(r, token), name); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"name": name})
}

// requirePermission writes 401 and returns false unless token carries
// required.
func (s *Server) requirePermission(w http.ResponseWriter, r *http.Request, token, required string) bool {
	ok, err := s.sessions.HasPermission(r.Context(), token, required)
	if err != nil {
		s.writeError(w, err)
		return false
	}
	if !ok {
		s.writeError(w, domain.ErrUnauthorized)
		return false
	}
	return true
}
