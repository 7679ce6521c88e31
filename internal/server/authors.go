package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"openlib/internal/app"
	"openlib/pkg/domain"
)

type authorResponse struct {
	domain.Author
	BirthDate       string `json:"birth_date,omitempty"`
	ProfileImageURL string `json:"profile_image_url,omitempty"`
}

func (s *Server) authorResponse(r *http.Request, a domain.Author) authorResponse {
	resp := authorResponse{
		Author:          a,
		ProfileImageURL: s.app.ImageURL(r.Context(), a.ProfileImage),
	}
	if a.BirthDate != nil {
		resp.BirthDate = a.BirthDate.Format("2006-01-02")
	}
	return resp
}

func (s *Server) authorResponses(r *http.Request, authors []domain.Author) []authorResponse {
	out := make([]authorResponse, 0, len(authors))
	for _, a := range authors {
		out = append(out, s.authorResponse(r, a))
	}
	return out
}

// authorInput decodes an author payload from JSON or multipart form. In
// multipart requests social_media arrives as a JSON object string and
// categories as repeated categories[] fields.
func (s *Server) authorInput(r *http.Request) (app.AuthorInput, *app.Upload, error) {
	if !isMultipart(r) {
		var in app.AuthorInput
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&in); err != nil {
			return app.AuthorInput{}, nil, err
		}
		return in, nil, nil
	}

	values, upload, err := formValues(r)
	if err != nil {
		return app.AuthorInput{}, nil, err
	}
	in := app.AuthorInput{
		Name:        values["name"],
		Address:     values["address"],
		Phone:       values["phone"],
		Email:       values["email"],
		Website:     values["website"],
		Bio:         values["bio"],
		Nationality: values["nationality"],
		BirthDate:   values["birth_date"],
	}
	if raw := values["social_media"]; raw != nil && *raw != "" {
		social := map[string]string{}
		if err := json.Unmarshal([]byte(*raw), &social); err == nil {
			in.SocialMedia = social
		}
	}
	if form := r.MultipartForm; form != nil {
		if vs, ok := form.Value["categories[]"]; ok {
			in.Categories = vs
		} else if vs, ok := form.Value["categories"]; ok {
			in.Categories = vs
		}
	}
	return in, upload, nil
}

func (s *Server) handleAuthors(w http.ResponseWriter, r *http.Request, _ domain.User) {
	switch r.Method {
	case http.MethodPost:
		in, upload, err := s.authorInput(r)
		if err != nil {
			badJSON(w)
			return
		}
		author, err := s.app.CreateAuthor(r.Context(), in, upload)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeData(w, http.StatusCreated, s.authorResponse(r, author))
	case http.MethodGet:
		authors, err := s.app.ListAuthors()
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeData(w, http.StatusOK, s.authorResponses(r, authors))
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleAuthorSearch(w http.ResponseWriter, r *http.Request, _ domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	q := r.URL.Query()
	authors, meta, err := s.app.SearchAuthors(app.AuthorQuery{
		Name:    q.Get("name"),
		Address: q.Get("address"),
		Phone:   q.Get("phone"),
		Email:   q.Get("email"),
		Page:    queryInt(r, "page"),
		Size:    queryInt(r, "size"),
	})
	if err != nil {
		writeAppError(w, err)
		return
	}
	writePage(w, s.authorResponses(r, authors), meta)
}

func (s *Server) handleAuthorByID(w http.ResponseWriter, r *http.Request, _ domain.User) {
	raw := strings.TrimPrefix(r.URL.Path, "/authors/")
	id, ok := parseID(raw)
	if !ok {
		notFound(w)
		return
	}
	switch r.Method {
	case http.MethodGet:
		author, err := s.app.GetAuthor(id)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeData(w, http.StatusOK, s.authorResponse(r, author))
	case http.MethodPut, http.MethodPost:
		in, upload, err := s.authorInput(r)
		if err != nil {
			badJSON(w)
			return
		}
		author, err := s.app.UpdateAuthor(r.Context(), id, in, upload)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeData(w, http.StatusOK, s.authorResponse(r, author))
	case http.MethodDelete:
		if err := s.app.DeleteAuthor(r.Context(), id); err != nil {
			writeAppError(w, err)
			return
		}
		writeData(w, http.StatusOK, true)
	default:
		methodNotAllowed(w)
	}
}
