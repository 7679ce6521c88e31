package server

import (
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"strings"

	"openlib/internal/app"
	"openlib/pkg/domain"
)

const maxUploadBytes = 10 << 20

type contactResponse struct {
	domain.Contact
	ProfileImageURL string           `json:"profile_image_url,omitempty"`
	Addresses       []domain.Address `json:"addresses,omitempty"`
}

func (s *Server) contactResponse(r *http.Request, c domain.Contact) contactResponse {
	return contactResponse{
		Contact:         c,
		ProfileImageURL: s.app.ImageURL(r.Context(), c.ProfileImage),
	}
}

func (s *Server) contactResponses(r *http.Request, contacts []domain.Contact) []contactResponse {
	out := make([]contactResponse, 0, len(contacts))
	for _, c := range contacts {
		out = append(out, s.contactResponse(r, c))
	}
	return out
}

func isMultipart(r *http.Request) bool {
	ct, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && ct == "multipart/form-data"
}

// formValues exposes body fields uniformly for JSON and multipart
// requests while preserving which fields were actually supplied.
func formValues(r *http.Request) (map[string]*string, *app.Upload, error) {
	if !isMultipart(r) {
		raw := map[string]json.RawMessage{}
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&raw); err != nil {
			return nil, nil, err
		}
		values := make(map[string]*string, len(raw))
		for name, msg := range raw {
			var v string
			if err := json.Unmarshal(msg, &v); err != nil {
				// non-string fields are handled by their own decoders
				continue
			}
			values[name] = &v
		}
		return values, nil, nil
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, nil, err
	}
	values := map[string]*string{}
	for name, vs := range r.MultipartForm.Value {
		if len(vs) > 0 {
			v := vs[0]
			values[name] = &v
		}
	}
	var upload *app.Upload
	if files := r.MultipartForm.File["profile_image"]; len(files) > 0 {
		f, err := files[0].Open()
		if err != nil {
			return nil, nil, err
		}
		upload = &app.Upload{
			Filename:    files[0].Filename,
			ContentType: files[0].Header.Get("Content-Type"),
			Size:        files[0].Size,
			Reader:      f,
		}
	}
	return values, upload, nil
}

func contactInputFrom(values map[string]*string) app.ContactInput {
	return app.ContactInput{
		FirstName: values["first_name"],
		LastName:  values["last_name"],
		Phone:     values["phone"],
		Email:     values["email"],
		Gender:    values["gender"],
	}
}

func (s *Server) handleContacts(w http.ResponseWriter, r *http.Request, user domain.User) {
	switch r.Method {
	case http.MethodPost:
		values, upload, err := formValues(r)
		if err != nil {
			badJSON(w)
			return
		}
		contact, err := s.app.CreateContact(r.Context(), user, contactInputFrom(values), upload)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeData(w, http.StatusCreated, s.contactResponse(r, contact))
	case http.MethodGet:
		s.handleContactSearch(w, r, user)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleContactSearch(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	q := r.URL.Query()
	contacts, meta, err := s.app.SearchContacts(user, app.ContactQuery{
		Name:  q.Get("name"),
		Phone: q.Get("phone"),
		Email: q.Get("email"),
		Page:  queryInt(r, "page"),
		Size:  queryInt(r, "size"),
	})
	if err != nil {
		writeAppError(w, err)
		return
	}
	writePage(w, s.contactResponses(r, contacts), meta)
}

// handleContactSubtree routes /contacts/{id} and the nested
// /contacts/{id}/addresses[/{addressId}] paths.
func (s *Server) handleContactSubtree(w http.ResponseWriter, r *http.Request, user domain.User) {
	rest := strings.TrimPrefix(r.URL.Path, "/contacts/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")

	contactID, ok := parseID(parts[0])
	if !ok {
		notFound(w)
		return
	}
	switch {
	case len(parts) == 1:
		s.handleContactByID(w, r, user, contactID)
	case len(parts) == 2 && parts[1] == "addresses":
		s.handleAddresses(w, r, user, contactID)
	case len(parts) == 3 && parts[1] == "addresses":
		addressID, ok := parseID(parts[2])
		if !ok {
			notFound(w)
			return
		}
		s.handleAddressByID(w, r, user, contactID, addressID)
	default:
		notFound(w)
	}
}

func (s *Server) handleContactByID(w http.ResponseWriter, r *http.Request, user domain.User, id uint) {
	switch r.Method {
	case http.MethodGet:
		contact, err := s.app.GetContact(user, id)
		if err != nil {
			writeAppError(w, err)
			return
		}
		resp := s.contactResponse(r, contact)
		addresses, err := s.app.ListAddresses(user, id)
		if err != nil {
			writeAppError(w, err)
			return
		}
		resp.Addresses = addresses
		writeData(w, http.StatusOK, resp)
	case http.MethodPut, http.MethodPost:
		// POST with multipart is accepted for clients that cannot PUT files
		values, upload, err := formValues(r)
		if err != nil {
			badJSON(w)
			return
		}
		contact, err := s.app.UpdateContact(r.Context(), user, id, contactInputFrom(values), upload)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeData(w, http.StatusOK, s.contactResponse(r, contact))
	case http.MethodDelete:
		if err := s.app.DeleteContact(r.Context(), user, id); err != nil {
			writeAppError(w, err)
			return
		}
		writeData(w, http.StatusOK, true)
	default:
		methodNotAllowed(w)
	}
}

func addressInputFrom(values map[string]*string) app.AddressInput {
	return app.AddressInput{
		Street:     values["street"],
		City:       values["city"],
		Province:   values["province"],
		Country:    values["country"],
		PostalCode: values["postal_code"],
	}
}

func (s *Server) handleAddresses(w http.ResponseWriter, r *http.Request, user domain.User, contactID uint) {
	switch r.Method {
	case http.MethodPost:
		values, _, err := formValues(r)
		if err != nil {
			badJSON(w)
			return
		}
		addr, err := s.app.CreateAddress(user, contactID, addressInputFrom(values))
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeData(w, http.StatusCreated, addr)
	case http.MethodGet:
		addresses, err := s.app.ListAddresses(user, contactID)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeData(w, http.StatusOK, addresses)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleAddressByID(w http.ResponseWriter, r *http.Request, user domain.User, contactID, id uint) {
	switch r.Method {
	case http.MethodGet:
		addr, err := s.app.GetAddress(user, contactID, id)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeData(w, http.StatusOK, addr)
	case http.MethodPut:
		values, _, err := formValues(r)
		if err != nil {
			badJSON(w)
			return
		}
		addr, err := s.app.UpdateAddress(user, contactID, id, addressInputFrom(values))
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeData(w, http.StatusOK, addr)
	case http.MethodDelete:
		if err := s.app.DeleteAddress(user, contactID, id); err != nil {
			writeAppError(w, err)
			return
		}
		writeData(w, http.StatusOK, true)
	default:
		methodNotAllowed(w)
	}
}
