package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"openlib/internal/app"
	"openlib/pkg/storage"
	"openlib/pkg/store"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	tokens, err := store.NewTokenStore("test-secret", 15*time.Minute, 7*24*time.Hour, store.NewMemoryTokenRevoker())
	if err != nil {
		t.Fatalf("NewTokenStore: %v", err)
	}
	a, err := app.New(app.Config{
		Store:   store.NewMemoryStore(),
		Tokens:  tokens,
		Objects: storage.NewMemoryObjectStore(),
	})
	if err != nil {
		t.Fatalf("app.New: %v", err)
	}
	return New(Config{App: a})
}

func doJSON(t *testing.T, s *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	out := map[string]any{}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func register(t *testing.T, s *Server, username string) {
	t.Helper()
	rec := doJSON(t, s, http.MethodPost, "/users/register", "", map[string]string{
		"name":     "Test " + username,
		"email":    username + "@example.com",
		"username": username,
		"password": "secret123",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register %s: status %d body %s", username, rec.Code, rec.Body.String())
	}
}

func login(t *testing.T, s *Server, username string) (access, refresh string) {
	t.Helper()
	rec := doJSON(t, s, http.MethodPost, "/users/login", "", map[string]string{
		"username": username,
		"password": "secret123",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s: status %d body %s", username, rec.Code, rec.Body.String())
	}
	data := decodeBody(t, rec)["data"].(map[string]any)
	return data["access_token"].(string), data["refresh_token"].(string)
}

func signUp(t *testing.T, s *Server, username string) (access, refresh string) {
	t.Helper()
	register(t, s, username)
	return login(t, s, username)
}

func TestRegisterLoginRoundtrip(t *testing.T) {
	s := newTestServer(t)
	access, refresh := signUp(t, s, "alice")
	if access == "" || refresh == "" {
		t.Fatal("missing tokens in login response")
	}

	rec := doJSON(t, s, http.MethodGet, "/users/current", access, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("current user: status %d body %s", rec.Code, rec.Body.String())
	}
	data := decodeBody(t, rec)["data"].(map[string]any)
	if data["username"] != "alice" {
		t.Fatalf("username = %v", data["username"])
	}
	if _, ok := data["password"]; ok {
		t.Fatal("password leaked in response")
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	s := newTestServer(t)
	register(t, s, "alice")

	rec := doJSON(t, s, http.MethodPost, "/users/register", "", map[string]string{
		"name":     "Other",
		"email":    "other@example.com",
		"username": "alice",
		"password": "secret123",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	body := decodeBody(t, rec)
	errs := body["errors"].(map[string]any)
	if _, ok := errs["username"]; !ok {
		t.Fatalf("expected username error, got %v", errs)
	}
}

func TestUnauthenticatedEnvelope(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/users/current", "/contacts", "/authors", "/loans"} {
		rec := doJSON(t, s, http.MethodGet, path, "", nil)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: status = %d, want 401", path, rec.Code)
		}
		if got := rec.Body.String(); !bytes.Contains([]byte(got), []byte(`"Unauthenticated."`)) {
			t.Fatalf("%s: body = %s", path, got)
		}
	}
}

func TestLoginWrongPassword(t *testing.T) {
	s := newTestServer(t)
	register(t, s, "alice")

	rec := doJSON(t, s, http.MethodPost, "/users/login", "", map[string]string{
		"username": "alice",
		"password": "wrong",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestRefreshFlow(t *testing.T) {
	s := newTestServer(t)
	access, refresh := signUp(t, s, "alice")

	rec := doJSON(t, s, http.MethodPost, "/users/refresh", refresh, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh: status %d body %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["token_type"] != "bearer" || body["access_token"] == "" {
		t.Fatalf("unexpected refresh response: %v", body)
	}
	if int(body["expires_in"].(float64)) != int((15 * time.Minute).Seconds()) {
		t.Fatalf("expires_in = %v", body["expires_in"])
	}

	// an access token is not exchangeable
	rec = doJSON(t, s, http.MethodPost, "/users/refresh", access, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("refresh with access token: status = %d, want 401", rec.Code)
	}
}

func TestLogoutRevokesAccess(t *testing.T) {
	s := newTestServer(t)
	access, _ := signUp(t, s, "alice")

	rec := doJSON(t, s, http.MethodDelete, "/users/logout", access, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("logout: status %d body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, s, http.MethodGet, "/users/current", access, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("post-logout request: status = %d, want 401", rec.Code)
	}

	// logging out again with the dead token is a 401, not a second success
	rec = doJSON(t, s, http.MethodDelete, "/users/logout", access, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("double logout: status = %d, want 401", rec.Code)
	}
}

func TestUpdateCurrentUserPartial(t *testing.T) {
	s := newTestServer(t)
	access, _ := signUp(t, s, "alice")

	rec := doJSON(t, s, http.MethodPatch, "/users/current", access, map[string]string{
		"name": "Alice Prime",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("patch: status %d body %s", rec.Code, rec.Body.String())
	}
	data := decodeBody(t, rec)["data"].(map[string]any)
	if data["name"] != "Alice Prime" || data["username"] != "alice" {
		t.Fatalf("partial update wrong: %v", data)
	}
}

func createContactReq(t *testing.T, s *Server, token, first string) uint {
	t.Helper()
	rec := doJSON(t, s, http.MethodPost, "/contacts", token, map[string]string{
		"first_name": first,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create contact: status %d body %s", rec.Code, rec.Body.String())
	}
	data := decodeBody(t, rec)["data"].(map[string]any)
	return uint(data["id"].(float64))
}

func TestCrossUserContactIsNotFound(t *testing.T) {
	s := newTestServer(t)
	aliceTok, _ := signUp(t, s, "alice")
	bobTok, _ := signUp(t, s, "bob")

	id := createContactReq(t, s, aliceTok, "John")

	rec := doJSON(t, s, http.MethodGet, fmt.Sprintf("/contacts/%d", id), bobTok, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("cross-user get: status = %d, want 404", rec.Code)
	}
	rec = doJSON(t, s, http.MethodDelete, fmt.Sprintf("/contacts/%d", id), bobTok, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("cross-user delete: status = %d, want 404", rec.Code)
	}
	rec = doJSON(t, s, http.MethodGet, fmt.Sprintf("/contacts/%d", id), aliceTok, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("owner get: status = %d, want 200", rec.Code)
	}
}

func TestContactDeleteCascadesAddresses(t *testing.T) {
	s := newTestServer(t)
	access, _ := signUp(t, s, "alice")

	id := createContactReq(t, s, access, "John")
	rec := doJSON(t, s, http.MethodPost, fmt.Sprintf("/contacts/%d/addresses", id), access, map[string]string{
		"street": "1 Main St",
		"city":   "Springfield",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create address: status %d body %s", rec.Code, rec.Body.String())
	}
	addrID := uint(decodeBody(t, rec)["data"].(map[string]any)["id"].(float64))

	rec = doJSON(t, s, http.MethodDelete, fmt.Sprintf("/contacts/%d", id), access, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete contact: status %d", rec.Code)
	}

	rec = doJSON(t, s, http.MethodGet, fmt.Sprintf("/contacts/%d/addresses/%d", id, addrID), access, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("orphan address: status = %d, want 404", rec.Code)
	}
}

func TestContactSearchPagination(t *testing.T) {
	s := newTestServer(t)
	access, _ := signUp(t, s, "alice")

	for i := 0; i < 20; i++ {
		createContactReq(t, s, access, fmt.Sprintf("Superadmin%d", i))
	}

	rec := doJSON(t, s, http.MethodGet, "/contacts/search?name=superadmin&size=5&page=2", access, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("search: status %d body %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	data := body["data"].([]any)
	meta := body["meta"].(map[string]any)
	if len(data) != 5 {
		t.Fatalf("got %d rows, want 5", len(data))
	}
	if meta["total"].(float64) != 20 || meta["current_page"].(float64) != 2 || meta["last_page"].(float64) != 4 {
		t.Fatalf("meta = %v", meta)
	}
	if first := data[0].(map[string]any)["first_name"]; first != "Superadmin5" {
		t.Fatalf("first row = %v, want Superadmin5", first)
	}
}

func TestUserCategorySearchPagination(t *testing.T) {
	s := newTestServer(t)
	access, _ := signUp(t, s, "alice")

	for i := 0; i < 20; i++ {
		rec := doJSON(t, s, http.MethodPost, "/user_categories", access, map[string]string{
			"name": fmt.Sprintf("Superadmin%d", i),
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("create category %d: status %d body %s", i, rec.Code, rec.Body.String())
		}
	}

	rec := doJSON(t, s, http.MethodGet, "/user_categories/search?size=5&page=2", access, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("search: status %d body %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	data := body["data"].([]any)
	meta := body["meta"].(map[string]any)
	if len(data) != 5 {
		t.Fatalf("got %d rows, want 5", len(data))
	}
	if meta["total"].(float64) != 20 || meta["current_page"].(float64) != 2 {
		t.Fatalf("meta = %v", meta)
	}
}

func TestSearchZeroMatches(t *testing.T) {
	s := newTestServer(t)
	access, _ := signUp(t, s, "alice")
	createContactReq(t, s, access, "John")

	rec := doJSON(t, s, http.MethodGet, "/contacts/search?name=nobody", access, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := decodeBody(t, rec)
	if len(body["data"].([]any)) != 0 {
		t.Fatalf("data = %v, want empty", body["data"])
	}
	if body["meta"].(map[string]any)["total"].(float64) != 0 {
		t.Fatalf("meta = %v", body["meta"])
	}
}

func TestLoanNullReturnDate(t *testing.T) {
	s := newTestServer(t)
	access, _ := signUp(t, s, "member")
	signUp(t, s, "librarian")

	rec := doJSON(t, s, http.MethodPost, "/loans", access, map[string]any{
		"member_id":    1,
		"librarian_id": 2,
		"loan_date":    "2026-01-15 10:00:00",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create loan: status %d body %s", rec.Code, rec.Body.String())
	}
	data := decodeBody(t, rec)["data"].(map[string]any)
	if data["loan_date"] != "2026-01-15 10:00:00" {
		t.Fatalf("loan_date = %v", data["loan_date"])
	}
	if v, ok := data["return_date"]; !ok || v != nil {
		t.Fatalf("return_date = %v, want explicit null", v)
	}

	loanID := uint(data["id"].(float64))
	rec = doJSON(t, s, http.MethodPut, fmt.Sprintf("/loans/%d", loanID), access, map[string]any{
		"return_date": "2026-02-01 12:30:00",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("close loan: status %d body %s", rec.Code, rec.Body.String())
	}
	data = decodeBody(t, rec)["data"].(map[string]any)
	if data["return_date"] != "2026-02-01 12:30:00" {
		t.Fatalf("return_date = %v", data["return_date"])
	}
}

func TestLoanSearchUsesPageSizeParam(t *testing.T) {
	s := newTestServer(t)
	access, _ := signUp(t, s, "member")
	signUp(t, s, "librarian")

	for i := 0; i < 7; i++ {
		rec := doJSON(t, s, http.MethodPost, "/loans", access, map[string]any{
			"member_id":    1,
			"librarian_id": 2,
			"loan_date":    fmt.Sprintf("2026-01-%02d 10:00:00", i+1),
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("create loan %d: status %d body %s", i, rec.Code, rec.Body.String())
		}
	}

	rec := doJSON(t, s, http.MethodGet, "/loans/search?member_id=1&page_size=3&page=2", access, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("search: status %d body %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	meta := body["meta"].(map[string]any)
	if meta["total"].(float64) != 7 || meta["per_page"].(float64) != 3 || meta["last_page"].(float64) != 3 {
		t.Fatalf("meta = %v", meta)
	}
	if len(body["data"].([]any)) != 3 {
		t.Fatalf("got %d rows, want 3", len(body["data"].([]any)))
	}
}

func TestLoanSearchLoneRangeStartIs400(t *testing.T) {
	s := newTestServer(t)
	access, _ := signUp(t, s, "member")

	rec := doJSON(t, s, http.MethodGet, "/loans/search?loan_date_start=2026-01-01%2000:00:00", access, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400, body %s", rec.Code, rec.Body.String())
	}
	errs := decodeBody(t, rec)["errors"].(map[string]any)
	if _, ok := errs["loan_date_end"]; !ok {
		t.Fatalf("expected loan_date_end error, got %v", errs)
	}
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}
