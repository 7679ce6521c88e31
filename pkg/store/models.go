package store

import (
	"time"

	"gorm.io/datatypes"
)

// GORM models used for persistence.
type UserModel struct {
	ID             uint   `gorm:"primaryKey"`
	Name           string `gorm:"size:100;not null"`
	Email          string `gorm:"size:100;uniqueIndex;not null"`
	Username       string `gorm:"size:100;uniqueIndex;not null"`
	PasswordHash   string `gorm:"not null"`
	UserCategoryID *uint  `gorm:"index"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type ContactModel struct {
	ID           uint   `gorm:"primaryKey"`
	FirstName    string `gorm:"size:100;not null"`
	LastName     string `gorm:"size:100"`
	Email        string `gorm:"size:200"`
	Phone        string `gorm:"size:20"`
	Gender       string `gorm:"size:10"`
	ProfileImage string
	UserID       uint           `gorm:"not null;index"`
	User         UserModel      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Addresses    []AddressModel `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type AddressModel struct {
	ID         uint   `gorm:"primaryKey"`
	Street     string `gorm:"size:200"`
	City       string `gorm:"size:100"`
	Province   string `gorm:"size:100"`
	Country    string `gorm:"size:100"`
	PostalCode string `gorm:"size:10"`
	ContactID  uint   `gorm:"not null;index"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type AuthorModel struct {
	ID           uint   `gorm:"primaryKey"`
	Name         string `gorm:"size:100;not null"`
	Address      string
	Phone        string `gorm:"size:20"`
	Email        string `gorm:"size:100"`
	Website      string
	Bio          string
	ProfileImage string
	SocialMedia  datatypes.JSON
	Nationality  string
	BirthDate    *time.Time `gorm:"type:date"`
	Categories   datatypes.JSON
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type UserCategoryModel struct {
	ID          uint   `gorm:"primaryKey"`
	Name        string `gorm:"size:100;not null"`
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type LoanModel struct {
	ID          uint      `gorm:"primaryKey"`
	MemberID    uint      `gorm:"not null;index"`
	Member      UserModel `gorm:"foreignKey:MemberID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	LibrarianID uint      `gorm:"not null;index"`
	Librarian   UserModel `gorm:"foreignKey:LibrarianID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	LoanDate    time.Time `gorm:"not null"`
	ReturnDate  *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (UserModel) TableName() string         { return "users" }
func (ContactModel) TableName() string      { return "contacts" }
func (AddressModel) TableName() string      { return "addresses" }
func (AuthorModel) TableName() string       { return "authors" }
func (UserCategoryModel) TableName() string { return "user_categories" }
func (LoanModel) TableName() string         { return "loans" }
