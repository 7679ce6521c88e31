package app

import (
	"fmt"
	"time"

	"openlib/pkg/domain"
	"openlib/pkg/store"
)

// LoanInput carries loan fields for create and update. Nil fields are left
// untouched on update; create requires member, librarian, and loan date.
type LoanInput struct {
	MemberID    *uint   `json:"member_id"`
	LibrarianID *uint   `json:"librarian_id"`
	LoanDate    *string `json:"loan_date"`
	ReturnDate  *string `json:"return_date"`
}

func (a *App) validateLoanInput(in LoanInput, create bool) (loanDate, returnDate *time.Time, err error) {
	fields := fieldErrors{}
	if create && in.MemberID == nil {
		fields.add("member_id", "The member id field is required.")
	}
	if create && in.LibrarianID == nil {
		fields.add("librarian_id", "The librarian id field is required.")
	}
	if create && in.LoanDate == nil {
		fields.add("loan_date", "The loan date field is required.")
	}
	if in.LoanDate != nil {
		loanDate = parseDateTime(fields, "loan_date", *in.LoanDate)
	}
	if in.ReturnDate != nil && *in.ReturnDate != "" {
		returnDate = parseDateTime(fields, "return_date", *in.ReturnDate)
	}
	if in.MemberID != nil {
		if ok, lerr := a.userExists(*in.MemberID); lerr != nil {
			return nil, nil, lerr
		} else if !ok {
			fields.add("member_id", "The selected member id is invalid.")
		}
	}
	if in.LibrarianID != nil {
		if ok, lerr := a.userExists(*in.LibrarianID); lerr != nil {
			return nil, nil, lerr
		} else if !ok {
			fields.add("librarian_id", "The selected librarian id is invalid.")
		}
	}
	return loanDate, returnDate, fields.err()
}

func (a *App) userExists(id uint) (bool, error) {
	_, ok, err := a.store.GetUserByID(id)
	if err != nil {
		return false, fmt.Errorf("fetch user: %w", err)
	}
	return ok, nil
}

// CreateLoan records a checkout. An open loan has no return date.
func (a *App) CreateLoan(in LoanInput) (domain.Loan, error) {
	loanDate, returnDate, err := a.validateLoanInput(in, true)
	if err != nil {
		return domain.Loan{}, err
	}
	loan := domain.Loan{
		MemberID:    *in.MemberID,
		LibrarianID: *in.LibrarianID,
		LoanDate:    *loanDate,
		ReturnDate:  returnDate,
	}
	if err := a.store.CreateLoan(&loan); err != nil {
		return domain.Loan{}, fmt.Errorf("create loan: %w", err)
	}
	return loan, nil
}

// GetLoan fetches a single loan record.
func (a *App) GetLoan(id uint) (domain.Loan, error) {
	loan, ok, err := a.store.GetLoan(id)
	if err != nil {
		return domain.Loan{}, fmt.Errorf("fetch loan: %w", err)
	}
	if !ok {
		return domain.Loan{}, ErrNotFound
	}
	return loan, nil
}

// ListLoans returns every loan record, unpaginated.
func (a *App) ListLoans() ([]domain.Loan, error) {
	return a.store.ListLoans()
}

// UpdateLoan applies the supplied fields to a loan. Setting a return date
// closes the loan.
func (a *App) UpdateLoan(id uint, in LoanInput) (domain.Loan, error) {
	loanDate, returnDate, err := a.validateLoanInput(in, false)
	if err != nil {
		return domain.Loan{}, err
	}
	loan, err := a.GetLoan(id)
	if err != nil {
		return domain.Loan{}, err
	}
	if in.MemberID != nil {
		loan.MemberID = *in.MemberID
	}
	if in.LibrarianID != nil {
		loan.LibrarianID = *in.LibrarianID
	}
	if loanDate != nil {
		loan.LoanDate = *loanDate
	}
	if returnDate != nil {
		loan.ReturnDate = returnDate
	}
	if err := a.store.UpdateLoan(loan); err != nil {
		return domain.Loan{}, fmt.Errorf("update loan: %w", err)
	}
	return loan, nil
}

// DeleteLoan removes a loan record.
func (a *App) DeleteLoan(id uint) error {
	loan, err := a.GetLoan(id)
	if err != nil {
		return err
	}
	if err := a.store.DeleteLoan(loan.ID); err != nil {
		return fmt.Errorf("delete loan: %w", err)
	}
	return nil
}

// LoanQuery narrows a loan search. ID filters match exactly; each date
// range needs both bounds, and a start without its end is a validation
// error rather than a silently ignored filter.
type LoanQuery struct {
	MemberID        uint
	LibrarianID     uint
	LoanDateStart   string
	LoanDateEnd     string
	ReturnDateStart string
	ReturnDateEnd   string
	Page            int
	Size            int
}

func parseLoanRange(fields fieldErrors, startName, endName, start, end string) (*time.Time, *time.Time) {
	var startT, endT *time.Time
	if start != "" {
		startT = parseDateTime(fields, startName, start)
	}
	if end != "" {
		endT = parseDateTime(fields, endName, end)
	}
	if start != "" && end == "" {
		fields.add(endName, fmt.Sprintf("The %s field is required when %s is present.", endName, startName))
		return nil, nil
	}
	if startT != nil && endT != nil && endT.Before(*startT) {
		fields.add(endName, fmt.Sprintf("The %s must be a date after or equal to %s.", endName, startName))
		return nil, nil
	}
	return startT, endT
}

// SearchLoans runs a paginated, filtered search over loan records.
func (a *App) SearchLoans(q LoanQuery) ([]domain.Loan, store.PageMeta, error) {
	fields := fieldErrors{}
	loanStart, loanEnd := parseLoanRange(fields, "loan_date_start", "loan_date_end", q.LoanDateStart, q.LoanDateEnd)
	returnStart, returnEnd := parseLoanRange(fields, "return_date_start", "return_date_end", q.ReturnDateStart, q.ReturnDateEnd)
	if q.MemberID != 0 {
		if ok, err := a.userExists(q.MemberID); err != nil {
			return nil, store.PageMeta{}, err
		} else if !ok {
			fields.add("member_id", "The selected member id is invalid.")
		}
	}
	if q.LibrarianID != 0 {
		if ok, err := a.userExists(q.LibrarianID); err != nil {
			return nil, store.PageMeta{}, err
		} else if !ok {
			fields.add("librarian_id", "The selected librarian id is invalid.")
		}
	}
	if err := fields.err(); err != nil {
		return nil, store.PageMeta{}, err
	}

	filter := store.LoanFilter{
		MemberID:        q.MemberID,
		LibrarianID:     q.LibrarianID,
		LoanDateStart:   loanStart,
		LoanDateEnd:     loanEnd,
		ReturnDateStart: returnStart,
		ReturnDateEnd:   returnEnd,
		PageRequest: store.PageRequest{
			Page: q.Page,
			Size: q.Size,
		},
	}
	return a.store.SearchLoans(filter)
}
