package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"openlib/internal/app"
	"openlib/pkg/domain"
)

func (s *Server) handleUserCategories(w http.ResponseWriter, r *http.Request, _ domain.User) {
	switch r.Method {
	case http.MethodPost:
		var in app.UserCategoryInput
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&in); err != nil {
			badJSON(w)
			return
		}
		category, err := s.app.CreateUserCategory(in)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeData(w, http.StatusCreated, category)
	case http.MethodGet:
		categories, err := s.app.ListUserCategories()
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeData(w, http.StatusOK, categories)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleUserCategorySearch(w http.ResponseWriter, r *http.Request, _ domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	q := r.URL.Query()
	categories, meta, err := s.app.SearchUserCategories(app.UserCategoryQuery{
		Name:        q.Get("name"),
		Description: q.Get("description"),
		Page:        queryInt(r, "page"),
		Size:        queryInt(r, "size"),
	})
	if err != nil {
		writeAppError(w, err)
		return
	}
	writePage(w, categories, meta)
}

func (s *Server) handleUserCategoryByID(w http.ResponseWriter, r *http.Request, _ domain.User) {
	raw := strings.TrimPrefix(r.URL.Path, "/user_categories/")
	id, ok := parseID(raw)
	if !ok {
		notFound(w)
		return
	}
	switch r.Method {
	case http.MethodGet:
		category, err := s.app.GetUserCategory(id)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeData(w, http.StatusOK, category)
	case http.MethodPut:
		var in app.UserCategoryInput
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&in); err != nil {
			badJSON(w)
			return
		}
		category, err := s.app.UpdateUserCategory(id, in)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeData(w, http.StatusOK, category)
	case http.MethodDelete:
		if err := s.app.DeleteUserCategory(id); err != nil {
			writeAppError(w, err)
			return
		}
		writeData(w, http.StatusOK, true)
	default:
		methodNotAllowed(w)
	}
}
