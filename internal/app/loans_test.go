package app

import (
	"errors"
	"testing"

	"openlib/pkg/domain"
)

func idptr(v uint) *uint { return &v }

func createLoan(t *testing.T, a *App, member, librarian domain.User, loanDate string) domain.Loan {
	t.Helper()
	loan, err := a.CreateLoan(LoanInput{
		MemberID:    idptr(member.ID),
		LibrarianID: idptr(librarian.ID),
		LoanDate:    strptr(loanDate),
	})
	if err != nil {
		t.Fatalf("CreateLoan: %v", err)
	}
	return loan
}

func TestCreateLoanValidation(t *testing.T) {
	a, _ := newTestApp(t)
	member := registerUser(t, a, "member")
	librarian := registerUser(t, a, "librarian")

	_, err := a.CreateLoan(LoanInput{})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	for _, f := range []string{"member_id", "librarian_id", "loan_date"} {
		if _, ok := verr.Fields[f]; !ok {
			t.Fatalf("expected %s error, got %v", f, verr.Fields)
		}
	}

	_, err = a.CreateLoan(LoanInput{
		MemberID:    idptr(member.User.ID),
		LibrarianID: idptr(librarian.User.ID),
		LoanDate:    strptr("2026-01-15"),
	})
	if !errors.As(err, &verr) {
		t.Fatalf("expected format error, got %v", err)
	}
	if _, ok := verr.Fields["loan_date"]; !ok {
		t.Fatalf("expected loan_date format error, got %v", verr.Fields)
	}

	_, err = a.CreateLoan(LoanInput{
		MemberID:    idptr(9999),
		LibrarianID: idptr(librarian.User.ID),
		LoanDate:    strptr("2026-01-15 10:00:00"),
	})
	if !errors.As(err, &verr) {
		t.Fatalf("expected unknown member error, got %v", err)
	}
	if _, ok := verr.Fields["member_id"]; !ok {
		t.Fatalf("expected member_id error, got %v", verr.Fields)
	}
}

func TestLoanOpenThenClosed(t *testing.T) {
	a, _ := newTestApp(t)
	member := registerUser(t, a, "member")
	librarian := registerUser(t, a, "librarian")

	loan := createLoan(t, a, member.User, librarian.User, "2026-01-15 10:00:00")
	if loan.ReturnDate != nil {
		t.Fatalf("new loan should be open, got return date %v", loan.ReturnDate)
	}

	closed, err := a.UpdateLoan(loan.ID, LoanInput{ReturnDate: strptr("2026-02-01 12:30:00")})
	if err != nil {
		t.Fatalf("UpdateLoan: %v", err)
	}
	if closed.ReturnDate == nil {
		t.Fatal("loan should be closed")
	}
	if closed.MemberID != member.User.ID || closed.LibrarianID != librarian.User.ID {
		t.Fatalf("id fields changed: %+v", closed)
	}
}

func TestSearchLoansRangeValidation(t *testing.T) {
	a, _ := newTestApp(t)
	member := registerUser(t, a, "member")
	librarian := registerUser(t, a, "librarian")
	createLoan(t, a, member.User, librarian.User, "2026-01-15 10:00:00")

	_, _, err := a.SearchLoans(LoanQuery{LoanDateStart: "2026-01-01 00:00:00"})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("lone range start should be a validation error, got %v", err)
	}
	if _, ok := verr.Fields["loan_date_end"]; !ok {
		t.Fatalf("expected loan_date_end error, got %v", verr.Fields)
	}

	_, _, err = a.SearchLoans(LoanQuery{
		LoanDateStart: "2026-02-01 00:00:00",
		LoanDateEnd:   "2026-01-01 00:00:00",
	})
	if !errors.As(err, &verr) {
		t.Fatalf("inverted range should be a validation error, got %v", err)
	}

	_, _, err = a.SearchLoans(LoanQuery{MemberID: 9999})
	if !errors.As(err, &verr) {
		t.Fatalf("unknown member filter should be a validation error, got %v", err)
	}
}

func TestSearchLoansByRangeAndParty(t *testing.T) {
	a, _ := newTestApp(t)
	member := registerUser(t, a, "member")
	other := registerUser(t, a, "othermember")
	librarian := registerUser(t, a, "librarian")

	inRange := createLoan(t, a, member.User, librarian.User, "2026-01-15 10:00:00")
	createLoan(t, a, member.User, librarian.User, "2026-03-15 10:00:00")
	createLoan(t, a, other.User, librarian.User, "2026-01-20 10:00:00")

	got, meta, err := a.SearchLoans(LoanQuery{
		MemberID:      member.User.ID,
		LoanDateStart: "2026-01-01 00:00:00",
		LoanDateEnd:   "2026-01-31 23:59:59",
	})
	if err != nil {
		t.Fatalf("SearchLoans: %v", err)
	}
	if len(got) != 1 || meta.Total != 1 {
		t.Fatalf("got %d loans, total %d", len(got), meta.Total)
	}
	if got[0].ID != inRange.ID {
		t.Fatalf("wrong loan matched: %+v", got[0])
	}
}
