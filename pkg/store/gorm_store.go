package store

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"openlib/pkg/domain"
)

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations. The contact->address
// and user->contact foreign keys are declared ON DELETE CASCADE so child
// rows disappear with their parent at the database level.
func NewGormStore(dsn string) (*GormStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.AutoMigrate(
		&UserCategoryModel{},
		&UserModel{},
		&ContactModel{},
		&AddressModel{},
		&AuthorModel{},
		&LoanModel{},
	); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

// users

func (s *GormStore) CreateUser(u *domain.User) error {
	model := userToModel(*u)
	if err := s.db.Create(&model).Error; err != nil {
		return err
	}
	*u = userFromModel(model)
	return nil
}

func (s *GormStore) GetUserByID(id uint) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

func (s *GormStore) GetUserByUsername(username string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.First(&model, "username = ?", username).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

func (s *GormStore) HasUsername(username string) (bool, error) {
	var count int64
	if err := s.db.Model(&UserModel{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *GormStore) HasEmail(email string) (bool, error) {
	var count int64
	if err := s.db.Model(&UserModel{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *GormStore) UpdateUser(u domain.User) error {
	model := userToModel(u)
	return s.db.Save(&model).Error
}

// contacts

func (s *GormStore) CreateContact(c *domain.Contact) error {
	model := contactToModel(*c)
	if err := s.db.Create(&model).Error; err != nil {
		return err
	}
	*c = contactFromModel(model)
	return nil
}

// GetContact matches id and owner in one query so a foreign contact is
// indistinguishable from a missing one.
func (s *GormStore) GetContact(id, userID uint) (domain.Contact, bool, error) {
	var model ContactModel
	if err := s.db.First(&model, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Contact{}, false, nil
		}
		return domain.Contact{}, false, err
	}
	return contactFromModel(model), true, nil
}

func (s *GormStore) CountContactsByUser(userID uint) (int64, error) {
	var count int64
	if err := s.db.Model(&ContactModel{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (s *GormStore) ListContactsByUser(userID uint) ([]domain.Contact, error) {
	var models []ContactModel
	if err := s.db.Where("user_id = ?", userID).Order("id ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Contact, 0, len(models))
	for _, m := range models {
		res = append(res, contactFromModel(m))
	}
	return res, nil
}

func (s *GormStore) UpdateContact(c domain.Contact) error {
	model := contactToModel(c)
	return s.db.Save(&model).Error
}

// DeleteContact removes the contact; its addresses go with it via the
// ON DELETE CASCADE foreign key.
func (s *GormStore) DeleteContact(id uint) error {
	return s.db.Delete(&ContactModel{}, "id = ?", id).Error
}

func (s *GormStore) SearchContacts(f ContactFilter) ([]domain.Contact, PageMeta, error) {
	tx := s.db.Model(&ContactModel{}).Where("user_id = ?", f.UserID)
	if f.Name != "" {
		pattern := "%" + f.Name + "%"
		tx = tx.Where("first_name ILIKE ? OR last_name ILIKE ?", pattern, pattern)
	}
	if f.Phone != "" {
		tx = tx.Where("phone ILIKE ?", "%"+f.Phone+"%")
	}
	if f.Email != "" {
		tx = tx.Where("email ILIKE ?", "%"+f.Email+"%")
	}
	var models []ContactModel
	meta, err := s.paginate(tx, f.PageRequest, &models)
	if err != nil {
		return nil, PageMeta{}, err
	}
	res := make([]domain.Contact, 0, len(models))
	for _, m := range models {
		res = append(res, contactFromModel(m))
	}
	return res, meta, nil
}

// addresses

func (s *GormStore) CreateAddress(a *domain.Address) error {
	model := addressToModel(*a)
	if err := s.db.Create(&model).Error; err != nil {
		return err
	}
	*a = addressFromModel(model)
	return nil
}

func (s *GormStore) GetAddress(id, contactID uint) (domain.Address, bool, error) {
	var model AddressModel
	if err := s.db.First(&model, "id = ? AND contact_id = ?", id, contactID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Address{}, false, nil
		}
		return domain.Address{}, false, err
	}
	return addressFromModel(model), true, nil
}

func (s *GormStore) ListAddressesByContact(contactID uint) ([]domain.Address, error) {
	var models []AddressModel
	if err := s.db.Where("contact_id = ?", contactID).Order("id ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Address, 0, len(models))
	for _, m := range models {
		res = append(res, addressFromModel(m))
	}
	return res, nil
}

func (s *GormStore) UpdateAddress(a domain.Address) error {
	model := addressToModel(a)
	return s.db.Save(&model).Error
}

func (s *GormStore) DeleteAddress(id uint) error {
	return s.db.Delete(&AddressModel{}, "id = ?", id).Error
}

// authors

func (s *GormStore) CreateAuthor(a *domain.Author) error {
	model := authorToModel(*a)
	if err := s.db.Create(&model).Error; err != nil {
		return err
	}
	*a = authorFromModel(model)
	return nil
}

func (s *GormStore) GetAuthor(id uint) (domain.Author, bool, error) {
	var model AuthorModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Author{}, false, nil
		}
		return domain.Author{}, false, err
	}
	return authorFromModel(model), true, nil
}

func (s *GormStore) ListAuthors() ([]domain.Author, error) {
	var models []AuthorModel
	if err := s.db.Order("id ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Author, 0, len(models))
	for _, m := range models {
		res = append(res, authorFromModel(m))
	}
	return res, nil
}

func (s *GormStore) UpdateAuthor(a domain.Author) error {
	model := authorToModel(a)
	return s.db.Save(&model).Error
}

func (s *GormStore) DeleteAuthor(id uint) error {
	return s.db.Delete(&AuthorModel{}, "id = ?", id).Error
}

func (s *GormStore) SearchAuthors(f AuthorFilter) ([]domain.Author, PageMeta, error) {
	tx := s.db.Model(&AuthorModel{})
	if f.Name != "" {
		tx = tx.Where("name ILIKE ?", "%"+f.Name+"%")
	}
	if f.Address != "" {
		tx = tx.Where("address ILIKE ?", "%"+f.Address+"%")
	}
	if f.Phone != "" {
		tx = tx.Where("phone ILIKE ?", "%"+f.Phone+"%")
	}
	if f.Email != "" {
		tx = tx.Where("email ILIKE ?", "%"+f.Email+"%")
	}
	var models []AuthorModel
	meta, err := s.paginate(tx, f.PageRequest, &models)
	if err != nil {
		return nil, PageMeta{}, err
	}
	res := make([]domain.Author, 0, len(models))
	for _, m := range models {
		res = append(res, authorFromModel(m))
	}
	return res, meta, nil
}

// user categories

func (s *GormStore) CreateUserCategory(c *domain.UserCategory) error {
	model := userCategoryToModel(*c)
	if err := s.db.Create(&model).Error; err != nil {
		return err
	}
	*c = userCategoryFromModel(model)
	return nil
}

func (s *GormStore) GetUserCategory(id uint) (domain.UserCategory, bool, error) {
	var model UserCategoryModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.UserCategory{}, false, nil
		}
		return domain.UserCategory{}, false, err
	}
	return userCategoryFromModel(model), true, nil
}

func (s *GormStore) ListUserCategories() ([]domain.UserCategory, error) {
	var models []UserCategoryModel
	if err := s.db.Order("id ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.UserCategory, 0, len(models))
	for _, m := range models {
		res = append(res, userCategoryFromModel(m))
	}
	return res, nil
}

func (s *GormStore) UpdateUserCategory(c domain.UserCategory) error {
	model := userCategoryToModel(c)
	return s.db.Save(&model).Error
}

func (s *GormStore) DeleteUserCategory(id uint) error {
	return s.db.Delete(&UserCategoryModel{}, "id = ?", id).Error
}

func (s *GormStore) SearchUserCategories(f UserCategoryFilter) ([]domain.UserCategory, PageMeta, error) {
	tx := s.db.Model(&UserCategoryModel{})
	if f.Name != "" {
		tx = tx.Where("name ILIKE ?", "%"+f.Name+"%")
	}
	if f.Description != "" {
		tx = tx.Where("description ILIKE ?", "%"+f.Description+"%")
	}
	var models []UserCategoryModel
	meta, err := s.paginate(tx, f.PageRequest, &models)
	if err != nil {
		return nil, PageMeta{}, err
	}
	res := make([]domain.UserCategory, 0, len(models))
	for _, m := range models {
		res = append(res, userCategoryFromModel(m))
	}
	return res, meta, nil
}

// loans

func (s *GormStore) CreateLoan(l *domain.Loan) error {
	model := loanToModel(*l)
	if err := s.db.Create(&model).Error; err != nil {
		return err
	}
	*l = loanFromModel(model)
	return nil
}

func (s *GormStore) GetLoan(id uint) (domain.Loan, bool, error) {
	var model LoanModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Loan{}, false, nil
		}
		return domain.Loan{}, false, err
	}
	return loanFromModel(model), true, nil
}

func (s *GormStore) ListLoans() ([]domain.Loan, error) {
	var models []LoanModel
	if err := s.db.Order("id ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Loan, 0, len(models))
	for _, m := range models {
		res = append(res, loanFromModel(m))
	}
	return res, nil
}

func (s *GormStore) UpdateLoan(l domain.Loan) error {
	model := loanToModel(l)
	return s.db.Save(&model).Error
}

func (s *GormStore) DeleteLoan(id uint) error {
	return s.db.Delete(&LoanModel{}, "id = ?", id).Error
}

func (s *GormStore) SearchLoans(f LoanFilter) ([]domain.Loan, PageMeta, error) {
	tx := s.db.Model(&LoanModel{})
	if f.MemberID != 0 {
		tx = tx.Where("member_id = ?", f.MemberID)
	}
	if f.LibrarianID != 0 {
		tx = tx.Where("librarian_id = ?", f.LibrarianID)
	}
	if f.LoanDateStart != nil && f.LoanDateEnd != nil {
		tx = tx.Where("loan_date BETWEEN ? AND ?", f.LoanDateStart, f.LoanDateEnd)
	}
	if f.ReturnDateStart != nil && f.ReturnDateEnd != nil {
		tx = tx.Where("return_date BETWEEN ? AND ?", f.ReturnDateStart, f.ReturnDateEnd)
	}
	var models []LoanModel
	meta, err := s.paginate(tx, f.PageRequest, &models)
	if err != nil {
		return nil, PageMeta{}, err
	}
	res := make([]domain.Loan, 0, len(models))
	for _, m := range models {
		res = append(res, loanFromModel(m))
	}
	return res, meta, nil
}

// paginate counts the filtered set, then fetches one page in primary-key
// order. A page past the end yields an empty slice with the real total.
func (s *GormStore) paginate(tx *gorm.DB, p PageRequest, dest any) (PageMeta, error) {
	p = p.normalize()
	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return PageMeta{}, err
	}
	offset := (p.Page - 1) * p.Size
	if err := tx.Order("id ASC").Offset(offset).Limit(p.Size).Find(dest).Error; err != nil {
		return PageMeta{}, err
	}
	return metaFor(total, p), nil
}

// model converters

func userToModel(u domain.User) UserModel {
	return UserModel{
		ID:             u.ID,
		Name:           u.Name,
		Email:          u.Email,
		Username:       u.Username,
		PasswordHash:   u.PasswordHash,
		UserCategoryID: u.UserCategoryID,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
}

func userFromModel(m UserModel) domain.User {
	return domain.User{
		ID:             m.ID,
		Name:           m.Name,
		Email:          m.Email,
		Username:       m.Username,
		PasswordHash:   m.PasswordHash,
		UserCategoryID: m.UserCategoryID,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

func contactToModel(c domain.Contact) ContactModel {
	return ContactModel{
		ID:           c.ID,
		FirstName:    c.FirstName,
		LastName:     c.LastName,
		Email:        c.Email,
		Phone:        c.Phone,
		Gender:       string(c.Gender),
		ProfileImage: c.ProfileImage,
		UserID:       c.UserID,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

func contactFromModel(m ContactModel) domain.Contact {
	return domain.Contact{
		ID:           m.ID,
		FirstName:    m.FirstName,
		LastName:     m.LastName,
		Email:        m.Email,
		Phone:        m.Phone,
		Gender:       domain.Gender(m.Gender),
		ProfileImage: m.ProfileImage,
		UserID:       m.UserID,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func addressToModel(a domain.Address) AddressModel {
	return AddressModel{
		ID:         a.ID,
		Street:     a.Street,
		City:       a.City,
		Province:   a.Province,
		Country:    a.Country,
		PostalCode: a.PostalCode,
		ContactID:  a.ContactID,
		CreatedAt:  a.CreatedAt,
		UpdatedAt:  a.UpdatedAt,
	}
}

func addressFromModel(m AddressModel) domain.Address {
	return domain.Address{
		ID:         m.ID,
		Street:     m.Street,
		City:       m.City,
		Province:   m.Province,
		Country:    m.Country,
		PostalCode: m.PostalCode,
		ContactID:  m.ContactID,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}

func authorToModel(a domain.Author) AuthorModel {
	var social, categories []byte
	if len(a.SocialMedia) > 0 {
		social, _ = json.Marshal(a.SocialMedia)
	}
	if len(a.Categories) > 0 {
		categories, _ = json.Marshal(a.Categories)
	}
	return AuthorModel{
		ID:           a.ID,
		Name:         a.Name,
		Address:      a.Address,
		Phone:        a.Phone,
		Email:        a.Email,
		Website:      a.Website,
		Bio:          a.Bio,
		ProfileImage: a.ProfileImage,
		SocialMedia:  social,
		Nationality:  a.Nationality,
		BirthDate:    a.BirthDate,
		Categories:   categories,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}

func authorFromModel(m AuthorModel) domain.Author {
	var social map[string]string
	if len(m.SocialMedia) > 0 {
		_ = json.Unmarshal(m.SocialMedia, &social)
	}
	var categories []string
	if len(m.Categories) > 0 {
		_ = json.Unmarshal(m.Categories, &categories)
	}
	return domain.Author{
		ID:           m.ID,
		Name:         m.Name,
		Address:      m.Address,
		Phone:        m.Phone,
		Email:        m.Email,
		Website:      m.Website,
		Bio:          m.Bio,
		ProfileImage: m.ProfileImage,
		SocialMedia:  social,
		Nationality:  m.Nationality,
		BirthDate:    m.BirthDate,
		Categories:   categories,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func userCategoryToModel(c domain.UserCategory) UserCategoryModel {
	return UserCategoryModel{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func userCategoryFromModel(m UserCategoryModel) domain.UserCategory {
	return domain.UserCategory{
		ID:          m.ID,
		Name:        m.Name,
		Description: m.Description,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func loanToModel(l domain.Loan) LoanModel {
	return LoanModel{
		ID:          l.ID,
		MemberID:    l.MemberID,
		LibrarianID: l.LibrarianID,
		LoanDate:    l.LoanDate,
		ReturnDate:  l.ReturnDate,
		CreatedAt:   l.CreatedAt,
		UpdatedAt:   l.UpdatedAt,
	}
}

func loanFromModel(m LoanModel) domain.Loan {
	return domain.Loan{
		ID:          m.ID,
		MemberID:    m.MemberID,
		LibrarianID: m.LibrarianID,
		LoanDate:    m.LoanDate,
		ReturnDate:  m.ReturnDate,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}
