package server

import (
	"encoding/json"
	"io"
	"net/http"

	"openlib/internal/app"
	"openlib/internal/util"
	"openlib/pkg/domain"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	User         domain.User `json:"user"`
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	TokenType    string      `json:"token_type"`
}

type refreshResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

type currentUserResponse struct {
	domain.User
	Contacts []contactResponse `json:"contacts"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.loginLimiter.Allow("register:" + util.ClientIP(r)) {
		writeErrors(w, http.StatusTooManyRequests, fieldMessages("message", "Too many attempts, retry later"))
		return
	}
	var req app.RegisterInput
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		badJSON(w)
		return
	}
	user, err := s.app.Register(req)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeData(w, http.StatusCreated, user)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.loginLimiter.Allow("login:" + util.ClientIP(r)) {
		writeErrors(w, http.StatusTooManyRequests, fieldMessages("message", "Too many attempts, retry later"))
		return
	}
	var req loginRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		badJSON(w)
		return
	}
	res, err := s.app.Login(req.Username, req.Password)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeData(w, http.StatusOK, loginResponse{
		User:         res.User,
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		TokenType:    "bearer",
	})
}

// handleRefresh reads the bearer token itself: a missing token is a 400
// "Token not provided", not the generic 401.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	token, _ := bearerToken(r)
	res, err := s.app.Refresh(token)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, refreshResponse{
		AccessToken: res.AccessToken,
		TokenType:   "bearer",
		ExpiresIn:   res.ExpiresIn,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request, token string) {
	if r.Method != http.MethodDelete {
		methodNotAllowed(w)
		return
	}
	revoked, err := s.app.Logout(token)
	if err != nil {
		writeAppError(w, err)
		return
	}
	if !revoked {
		unauthenticated(w)
		return
	}
	writeData(w, http.StatusOK, map[string]string{"message": "Successfully logged out"})
}

func (s *Server) handleCurrentUser(w http.ResponseWriter, r *http.Request, user domain.User) {
	switch r.Method {
	case http.MethodGet:
		details, err := s.app.ContactsOfUser(user.ID)
		if err != nil {
			writeAppError(w, err)
			return
		}
		contacts := make([]contactResponse, 0, len(details))
		for _, d := range details {
			resp := s.contactResponse(r, d.Contact)
			resp.Addresses = d.Addresses
			contacts = append(contacts, resp)
		}
		writeData(w, http.StatusOK, currentUserResponse{User: user, Contacts: contacts})
	case http.MethodPatch:
		var req app.UserUpdateInput
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
			badJSON(w)
			return
		}
		updated, err := s.app.UpdateCurrentUser(user, req)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeData(w, http.StatusOK, updated)
	default:
		methodNotAllowed(w)
	}
}
