package domain

import "time"

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// User is an account holder. PasswordHash never leaves the process.
type User struct {
	ID             uint      `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Username       string    `json:"username"`
	PasswordHash   string    `json:"-"`
	UserCategoryID *uint     `json:"user_category_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Contact belongs to exactly one user and is invisible to everyone else.
type Contact struct {
	ID           uint      `json:"id"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	Gender       Gender    `json:"gender,omitempty"`
	ProfileImage string    `json:"-"`
	UserID       uint      `json:"user_id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Address hangs off a contact; reachable only through that contact's owner.
type Address struct {
	ID         uint      `json:"id"`
	Street     string    `json:"street"`
	City       string    `json:"city"`
	Province   string    `json:"province"`
	Country    string    `json:"country"`
	PostalCode string    `json:"postal_code"`
	ContactID  uint      `json:"contact_id"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Author is a global catalog entry; any authenticated user may manage it.
type Author struct {
	ID           uint              `json:"id"`
	Name         string            `json:"name"`
	Address      string            `json:"address,omitempty"`
	Phone        string            `json:"phone,omitempty"`
	Email        string            `json:"email,omitempty"`
	Website      string            `json:"website,omitempty"`
	Bio          string            `json:"bio,omitempty"`
	ProfileImage string            `json:"-"`
	SocialMedia  map[string]string `json:"social_media,omitempty"`
	Nationality  string            `json:"nationality,omitempty"`
	BirthDate    *time.Time        `json:"-"`
	Categories   []string          `json:"categories,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// UserCategory is a global role/privilege taxonomy entry.
type UserCategory struct {
	ID          uint      `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Loan links a member and a librarian to a loan/return date pair.
// Both sides are plain user references; no role constraint is enforced.
type Loan struct {
	ID          uint       `json:"id"`
	MemberID    uint       `json:"member_id"`
	LibrarianID uint       `json:"librarian_id"`
	LoanDate    time.Time  `json:"-"`
	ReturnDate  *time.Time `json:"-"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
