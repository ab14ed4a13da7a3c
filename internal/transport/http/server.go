// Package http is the HTTP adapter (C9): a thin chi router translating
// spec.md §6.2's route table onto the service layer and the Event Engine.
// Each handler names the permission its route requires and checks it via
// requirePermission (SessionService.HasPermission), or leaves the check to
// the Event Engine, keyed off the session_token query parameter.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/cauth/cauth/internal/domain"
	"github.com/cauth/cauth/internal/service"
)

// Server is the HTTP server for cauth.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux

	permissions *service.PermissionService
	groups      *service.GroupService
	users       *service.UserService
	sessions    *service.SessionService
	events      *service.EventEngine

	requestTimeout time.Duration
	logger         *slog.Logger
}

// NewServer wires a router over the service layer and the Event Engine.
func NewServer(
	permissions *service.PermissionService,
	groups *service.GroupService,
	users *service.UserService,
	sessions *service.SessionService,
	events *service.EventEngine,
	requestTimeout time.Duration,
	logger *slog.Logger,
) *Server {
	s := &Server{
		router:         chi.NewRouter(),
		permissions:    permissions,
		groups:         groups,
		users:          users,
		sessions:       sessions,
		events:         events,
		requestTimeout: requestTimeout,
		logger:         logger,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(s.requestTimeout))
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/permissions", func(r chi.Router) {
		r.Get("/", s.handleListPermissions)
		r.Get("/{name}", s.handleGetPermission)
		r.Post("/", s.handleCreatePermission)
		r.Delete("/{name}", s.handleDeletePermission)
	})

	s.router.Route("/groups", func(r chi.Router) {
		r.Get("/", s.handleListGroups)
		r.Get("/{name}", s.handleGetGroup)
		r.Post("/", s.handleCreateGroup)
		r.Delete("/{name}", s.handleDeleteGroup)
		r.Patch("/{name}/permissions", s.handleGroupPermissions)
	})

	s.router.Route("/users", func(r chi.Router) {
		r.Post("/", s.handleRegisterUser)
		r.Post("/login", s.handleLoginUser)
		r.Get("/{login}", s.handleGetUser)
		r.Delete("/{login}", s.handleDeleteUser)
	})

	s.router.Route("/events", func(r chi.Router) {
		r.Get("/", s.handleListEvents)
		r.Get("/{id}", s.handleGetEvent)
		r.Post("/{id}/commit", s.handleCommitEvent)
		r.Post("/{id}/cancel", s.handleCancelEvent)
	})
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Response helpers

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// writeError maps a domain error kind to an HTTP status, per spec.md §7.
// ErrNotFound gets its own 404; the login handler is responsible for
// translating its own ErrNotFound into ErrInvalidCredentials before the
// error reaches here, which is what actually scopes the anti-enumeration
// identical-response requirement to the login path alone.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var status int
	var resp errorResponse

	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		status = http.StatusBadRequest
		resp = errorResponse{Error: "invalid login or password", Code: "INVALID_CREDENTIALS"}

	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
		resp = errorResponse{Error: "not found", Code: "NOT_FOUND"}

	case errors.Is(err, domain.ErrNameConflict):
		status = http.StatusBadRequest
		resp = errorResponse{Error: err.Error(), Code: "NAME_CONFLICT"}

	case errors.Is(err, domain.ErrNameError):
		status = http.StatusBadRequest
		resp = errorResponse{Error: err.Error(), Code: "NAME_ERROR"}

	case errors.Is(err, domain.ErrUnauthorized):
		status = http.StatusUnauthorized
		resp = errorResponse{Error: "unauthorized", Code: "UNAUTHORIZED"}

	case errors.Is(err, domain.ErrInvalidState):
		status = http.StatusBadRequest
		resp = errorResponse{Error: "event is not pending", Code: "INVALID_STATE"}

	case errors.Is(err, domain.ErrHash):
		status = http.StatusBadRequest
		resp = errorResponse{Error: "could not process password", Code: "HASH_ERROR"}

	default:
		var ve domain.ValidationError
		if errors.As(err, &ve) {
			status = http.StatusBadRequest
			resp = errorResponse{Error: ve.Error(), Code: "INVALID_INPUT"}
			break
		}
		s.logger.Error("unhandled error", slog.String("error", err.Error()))
		status = http.StatusInternalServerError
		resp = errorResponse{Error: "internal server error", Code: "INTERNAL_ERROR"}
	}

	s.writeJSON(w, status, resp)
}

func (s *Server) readJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return domain.ValidationError{Field: "body", Message: "required"}
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return domain.ValidationError{Field: "body", Message: "invalid JSON"}
	}
	return nil
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)

		s.logger.Info("http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.status),
			slog.Duration("duration", time.Since(start)),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
