package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"openlib/internal/app"
	"openlib/internal/ratelimit"
	"openlib/internal/util"
	"openlib/pkg/domain"
	"openlib/pkg/store"
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	App          *app.App
	LoginLimiter *ratelimit.FixedWindowLimiter
}

// Server exposes the HTTP endpoints of the library backend.
type Server struct {
	app          *app.App
	mux          *http.ServeMux
	loginLimiter *ratelimit.FixedWindowLimiter
}

// New constructs the server with routes configured.
func New(cfg Config) *Server {
	s := &Server{
		app:          cfg.App,
		mux:          http.NewServeMux(),
		loginLimiter: cfg.LoginLimiter,
	}
	s.routes()
	return s
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)

	// auth + account
	s.mux.HandleFunc("/users/register", s.handleRegister)
	s.mux.HandleFunc("/users/login", s.handleLogin)
	s.mux.HandleFunc("/users/refresh", s.handleRefresh)
	s.mux.Handle("/users/logout", s.authenticatedToken(s.handleLogout))
	s.mux.Handle("/users/current", s.authenticated(s.handleCurrentUser))

	// owner-scoped contacts with nested addresses
	s.mux.Handle("/contacts", s.authenticated(s.handleContacts))
	s.mux.Handle("/contacts/search", s.authenticated(s.handleContactSearch))
	s.mux.Handle("/contacts/", s.authenticated(s.handleContactSubtree))

	// global catalog resources
	s.mux.Handle("/authors", s.authenticated(s.handleAuthors))
	s.mux.Handle("/authors/search", s.authenticated(s.handleAuthorSearch))
	s.mux.Handle("/authors/", s.authenticated(s.handleAuthorByID))

	s.mux.Handle("/user_categories", s.authenticated(s.handleUserCategories))
	s.mux.Handle("/user_categories/search", s.authenticated(s.handleUserCategorySearch))
	s.mux.Handle("/user_categories/", s.authenticated(s.handleUserCategoryByID))

	s.mux.Handle("/loans", s.authenticated(s.handleLoans))
	s.mux.Handle("/loans/search", s.authenticated(s.handleLoanSearch))
	s.mux.Handle("/loans/", s.authenticated(s.handleLoanByID))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// auth wrappers
type authHandler func(http.ResponseWriter, *http.Request, domain.User)

// tokenHandler gets the raw bearer token too; refresh and logout act on
// the token itself, not just the resolved identity.
type tokenHandler func(http.ResponseWriter, *http.Request, string)

func (s *Server) authenticated(next authHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			unauthenticated(w)
			return
		}
		user, err := s.app.UserFromToken(token)
		if err != nil {
			if errors.Is(err, store.ErrTokenExpired) {
				writeErrors(w, http.StatusUnauthorized, fieldMessages("message", "Token has expired"))
				return
			}
			unauthenticated(w)
			return
		}
		next(w, r, user)
	})
}

func (s *Server) authenticatedToken(next tokenHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			unauthenticated(w)
			return
		}
		next(w, r, token)
	})
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		slog.Warn("missing bearer prefix", "path", r.URL.Path, "request_id", util.RequestIDFromRequest(r))
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		slog.Warn("empty bearer token", "path", r.URL.Path, "request_id", util.RequestIDFromRequest(r))
		return "", false
	}
	return token, true
}

func parseID(raw string) (uint, bool) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func queryInt(r *http.Request, name string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func queryUint(r *http.Request, name string) uint {
	n, ok := parseID(r.URL.Query().Get(name))
	if !ok {
		return 0
	}
	return n
}

// envelope writers

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeData(w http.ResponseWriter, status int, payload any) {
	writeJSON(w, status, map[string]any{"data": payload})
}

func writePage(w http.ResponseWriter, payload any, meta store.PageMeta) {
	writeJSON(w, http.StatusOK, map[string]any{"data": payload, "meta": meta})
}

func writeErrors(w http.ResponseWriter, status int, fields map[string][]string) {
	writeJSON(w, status, map[string]any{"errors": fields})
}

func fieldMessages(field string, msgs ...string) map[string][]string {
	return map[string][]string{field: msgs}
}

func unauthenticated(w http.ResponseWriter) {
	writeErrors(w, http.StatusUnauthorized, fieldMessages("message", "Unauthenticated."))
}

func notFound(w http.ResponseWriter) {
	writeErrors(w, http.StatusNotFound, fieldMessages("message", "not found."))
}

func methodNotAllowed(w http.ResponseWriter) {
	writeErrors(w, http.StatusMethodNotAllowed, fieldMessages("message", "method not allowed"))
}

func badJSON(w http.ResponseWriter) {
	writeErrors(w, http.StatusBadRequest, fieldMessages("message", "invalid JSON body"))
}

// writeAppError maps app layer errors onto status codes and the error
// envelope. Anything unrecognized is a 500 with a generic message.
func writeAppError(w http.ResponseWriter, err error) {
	var verr *app.ValidationError
	switch {
	case errors.As(err, &verr):
		writeErrors(w, http.StatusBadRequest, verr.Fields)
	case errors.Is(err, app.ErrNotFound):
		notFound(w)
	case errors.Is(err, app.ErrUsernameTaken):
		writeErrors(w, http.StatusBadRequest, fieldMessages("username", err.Error()))
	case errors.Is(err, app.ErrEmailTaken):
		writeErrors(w, http.StatusBadRequest, fieldMessages("email", err.Error()))
	case errors.Is(err, app.ErrTooManyContacts):
		writeErrors(w, http.StatusBadRequest, fieldMessages("contact", err.Error()))
	case errors.Is(err, app.ErrInvalidCredentials):
		writeErrors(w, http.StatusUnauthorized, fieldMessages("message", err.Error()))
	case errors.Is(err, app.ErrTokenNotProvided):
		writeErrors(w, http.StatusBadRequest, fieldMessages("message", err.Error()))
	case errors.Is(err, store.ErrTokenExpired):
		writeErrors(w, http.StatusUnauthorized, fieldMessages("message", "Token has expired"))
	case errors.Is(err, store.ErrTokenInvalid):
		unauthenticated(w)
	case errors.Is(err, app.ErrTokenIssuance):
		writeErrors(w, http.StatusInternalServerError, fieldMessages("message", err.Error()))
	default:
		slog.Error("request failed", "error", err)
		writeErrors(w, http.StatusInternalServerError, fieldMessages("message", "Server Error"))
	}
}
