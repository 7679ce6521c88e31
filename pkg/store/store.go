package store

import (
	"time"

	"openlib/pkg/domain"
)

const (
	defaultPage = 1
	defaultSize = 10
)

// PageRequest carries 1-based pagination parameters. Zero values fall back
// to page 1 / size 10.
type PageRequest struct {
	Page int
	Size int
}

func (p PageRequest) normalize() PageRequest {
	if p.Page < 1 {
		p.Page = defaultPage
	}
	if p.Size < 1 {
		p.Size = defaultSize
	}
	return p
}

// PageMeta describes the filtered result set a page was cut from.
// Total always counts the whole filtered set, not the returned slice.
type PageMeta struct {
	Total       int64 `json:"total"`
	CurrentPage int   `json:"current_page"`
	PerPage     int   `json:"per_page"`
	LastPage    int   `json:"last_page"`
}

func metaFor(total int64, p PageRequest) PageMeta {
	last := int((total + int64(p.Size) - 1) / int64(p.Size))
	if last < 1 {
		last = 1
	}
	return PageMeta{
		Total:       total,
		CurrentPage: p.Page,
		PerPage:     p.Size,
		LastPage:    last,
	}
}

// ContactFilter narrows a user's contacts. Name matches first or last name.
// String fields use case-insensitive substring matching; empty means
// "no constraint". UserID is mandatory: contacts are always owner-scoped.
type ContactFilter struct {
	UserID uint
	Name   string
	Phone  string
	Email  string
	PageRequest
}

// AuthorFilter narrows the global author catalog.
type AuthorFilter struct {
	Name    string
	Address string
	Phone   string
	Email   string
	PageRequest
}

// UserCategoryFilter narrows the global category taxonomy.
type UserCategoryFilter struct {
	Name        string
	Description string
	PageRequest
}

// LoanFilter narrows loans. ID fields match exactly; a date range only
// applies when both of its bounds are set.
type LoanFilter struct {
	MemberID        uint
	LibrarianID     uint
	LoanDateStart   *time.Time
	LoanDateEnd     *time.Time
	ReturnDateStart *time.Time
	ReturnDateEnd   *time.Time
	PageRequest
}

// Store defines persistence for all library resources.
//
// Lookups return (zero, false, nil) when no row matches; the ownership
// guard is built into the contact and address getters, which match id and
// owner key in the same query. Search methods page through the filtered
// set in primary-key order and report the filtered total.
type Store interface {
	// users
	CreateUser(u *domain.User) error
	GetUserByID(id uint) (domain.User, bool, error)
	GetUserByUsername(username string) (domain.User, bool, error)
	HasUsername(username string) (bool, error)
	HasEmail(email string) (bool, error)
	UpdateUser(u domain.User) error

	// contacts (owner-scoped)
	CreateContact(c *domain.Contact) error
	GetContact(id, userID uint) (domain.Contact, bool, error)
	CountContactsByUser(userID uint) (int64, error)
	ListContactsByUser(userID uint) ([]domain.Contact, error)
	UpdateContact(c domain.Contact) error
	DeleteContact(id uint) error
	SearchContacts(f ContactFilter) ([]domain.Contact, PageMeta, error)

	// addresses (scoped through contact)
	CreateAddress(a *domain.Address) error
	GetAddress(id, contactID uint) (domain.Address, bool, error)
	ListAddressesByContact(contactID uint) ([]domain.Address, error)
	UpdateAddress(a domain.Address) error
	DeleteAddress(id uint) error

	// authors (global)
	CreateAuthor(a *domain.Author) error
	GetAuthor(id uint) (domain.Author, bool, error)
	ListAuthors() ([]domain.Author, error)
	UpdateAuthor(a domain.Author) error
	DeleteAuthor(id uint) error
	SearchAuthors(f AuthorFilter) ([]domain.Author, PageMeta, error)

	// user categories (global)
	CreateUserCategory(c *domain.UserCategory) error
	GetUserCategory(id uint) (domain.UserCategory, bool, error)
	ListUserCategories() ([]domain.UserCategory, error)
	UpdateUserCategory(c domain.UserCategory) error
	DeleteUserCategory(id uint) error
	SearchUserCategories(f UserCategoryFilter) ([]domain.UserCategory, PageMeta, error)

	// loans (global)
	CreateLoan(l *domain.Loan) error
	GetLoan(id uint) (domain.Loan, bool, error)
	ListLoans() ([]domain.Loan, error)
	UpdateLoan(l domain.Loan) error
	DeleteLoan(id uint) error
	SearchLoans(f LoanFilter) ([]domain.Loan, PageMeta, error)
}
