package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cauth/cauth/internal/domain"
)

type groupResponse struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Permissions []string `json:"permissions"`
}

func toGroupResponse(g *domain.Group) groupResponse {
	return groupResponse{Name: g.Name, Description: g.Description, Permissions: g.Permissions}
}

func (s *Server) handleListGroups(w http.ResponseWriter, r *http.Request) {
	token := sessionToken(r)
	if !s.requirePermission(w, r, token, "groups:get") {
		return
	}

	groups, err := s.groups.List(r.Context(), pageFrom(r))
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp := make([]groupResponse, len(groups))
	for i := range groups {
		resp[i] = toGroupResponse(&groups[i])
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	token := sessionToken(r)
	if !s.requirePermission(w, r, token, "groups:get") {
		return
	}

	group, err := s.groups.Retrieve(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toGroupResponse(group))
}

type createGroupRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Permissions []string `json:"permissions"`
	AutoCommit  *bool    `json:"auto_commit"`
}

func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var req createGroupRequest
	if err := s.readJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	token := sessionToken(r)

	if !autoCommit(req.AutoCommit) {
		pe, err := s.events.CreateGroupInsert(r.Context(), token, req.Name, req.Description, req.Permissions)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.stageOnly(w, pe)
		return
	}

	if !s.requirePermission(w, r, token, "groups:post") {
		return
	}
	group, err := s.groups.Insert(r.Context(), s.actingLogin(r, token), req.Name, req.Description, req.Permissions)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toGroupResponse(group))
}

func (s *Server) handleDeleteGroup(w http.ResponseWriter, r *http.Request) {
	var req deleteRequest
	_ = s.readJSON(r, &req)

	token := sessionToken(r)
	name := chi.URLParam(r, "name")

	if !autoCommit(req.AutoCommit) {
		pe, err := s.events.CreateGroupDelete(r.Context(), token, name)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.stageOnly(w, pe)
		return
	}

	if !s.requirePermission(w, r, token, "groups:delete") {
		return
	}
	if err := s.groups.Delete(r.Context(), s.actingLogin(r, token), name); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"name": name})
}

type groupPermissionsRequest struct {
	Permission string `json:"permission"`
	Grant      bool   `json:"grant"`
	AutoCommit *bool  `json:"auto_commit"`
}

// handleGroupPermissions serves PATCH /groups/{name}/permissions: Grant
// true grants the permission, false revokes it (groups:update either way,
// per spec.md §6.2). With auto_commit=false the change is staged as a
// GroupGrantPermission or GroupRevokePermission event instead.
func (s *Server) handleGroupPermissions(w http.ResponseWriter, r *http.Request) {
	var req groupPermissionsRequest
	if err := s.readJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	token := sessionToken(r)
	name := chi.URLParam(r, "name")

	if !autoCommit(req.AutoCommit) {
		var pe *domain.PendingEvent
		var err error
		if req.Grant {
			pe, err = s.events.CreateGroupGrantPermission(r.Context(), token, name, req.Permission)
		} else {
			pe, err = s.events.CreateGroupRevokePermission(r.Context(), token, name, req.Permission)
		}
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.stageOnly(w, pe)
		return
	}

	if !s.requirePermission(w, r, token, "groups:update") {
		return
	}
	actor := s.actingLogin(r, token)
	var err error
	if req.Grant {
		err = s.groups.GrantPermission(r.Context(), actor, name, req.Permission)
	} else {
		err = s.groups.RevokePermission(r.Context(), actor, name, req.Permission)
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"name": name, "permission": req.Permission})
}
