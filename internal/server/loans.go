package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"openlib/internal/app"
	"openlib/pkg/domain"
)

const loanDateLayout = "2006-01-02 15:04:05"

type loanResponse struct {
	domain.Loan
	LoanDate   string  `json:"loan_date"`
	ReturnDate *string `json:"return_date"`
}

func newLoanResponse(l domain.Loan) loanResponse {
	resp := loanResponse{
		Loan:     l,
		LoanDate: l.LoanDate.Format(loanDateLayout),
	}
	if l.ReturnDate != nil {
		formatted := l.ReturnDate.Format(loanDateLayout)
		resp.ReturnDate = &formatted
	}
	return resp
}

func newLoanResponses(loans []domain.Loan) []loanResponse {
	out := make([]loanResponse, 0, len(loans))
	for _, l := range loans {
		out = append(out, newLoanResponse(l))
	}
	return out
}

func (s *Server) handleLoans(w http.ResponseWriter, r *http.Request, _ domain.User) {
	switch r.Method {
	case http.MethodPost:
		var in app.LoanInput
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&in); err != nil {
			badJSON(w)
			return
		}
		loan, err := s.app.CreateLoan(in)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeData(w, http.StatusCreated, newLoanResponse(loan))
	case http.MethodGet:
		loans, err := s.app.ListLoans()
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeData(w, http.StatusOK, newLoanResponses(loans))
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleLoanSearch(w http.ResponseWriter, r *http.Request, _ domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	q := r.URL.Query()
	loans, meta, err := s.app.SearchLoans(app.LoanQuery{
		MemberID:        queryUint(r, "member_id"),
		LibrarianID:     queryUint(r, "librarian_id"),
		LoanDateStart:   q.Get("loan_date_start"),
		LoanDateEnd:     q.Get("loan_date_end"),
		ReturnDateStart: q.Get("return_date_start"),
		ReturnDateEnd:   q.Get("return_date_end"),
		Page:            queryInt(r, "page"),
		Size:            queryInt(r, "page_size"),
	})
	if err != nil {
		writeAppError(w, err)
		return
	}
	writePage(w, newLoanResponses(loans), meta)
}

func (s *Server) handleLoanByID(w http.ResponseWriter, r *http.Request, _ domain.User) {
	raw := strings.TrimPrefix(r.URL.Path, "/loans/")
	id, ok := parseID(raw)
	if !ok {
		notFound(w)
		return
	}
	switch r.Method {
	case http.MethodGet:
		loan, err := s.app.GetLoan(id)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeData(w, http.StatusOK, newLoanResponse(loan))
	case http.MethodPut:
		var in app.LoanInput
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&in); err != nil {
			badJSON(w)
			return
		}
		loan, err := s.app.UpdateLoan(id, in)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeData(w, http.StatusOK, newLoanResponse(loan))
	case http.MethodDelete:
		if err := s.app.DeleteLoan(id); err != nil {
			writeAppError(w, err)
			return
		}
		writeData(w, http.StatusOK, true)
	default:
		methodNotAllowed(w)
	}
}
