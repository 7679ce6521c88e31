package store

import (
	"sort"
	"strings"
	"sync"
	"time"

	"openlib/pkg/domain"
)

// MemoryStore is an in-memory Store used by tests and local development.
// It mirrors GormStore semantics: owner-scoped lookups, case-insensitive
// substring filters, primary-key ordering, cascade deletes.
type MemoryStore struct {
	mu         sync.Mutex
	users      map[uint]domain.User
	contacts   map[uint]domain.Contact
	addresses  map[uint]domain.Address
	authors    map[uint]domain.Author
	categories map[uint]domain.UserCategory
	loans      map[uint]domain.Loan
	nextID     uint
}

// NewMemoryStore builds an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:      make(map[uint]domain.User),
		contacts:   make(map[uint]domain.Contact),
		addresses:  make(map[uint]domain.Address),
		authors:    make(map[uint]domain.Author),
		categories: make(map[uint]domain.UserCategory),
		loans:      make(map[uint]domain.Loan),
	}
}

func (s *MemoryStore) allocID() uint {
	s.nextID++
	return s.nextID
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func sortedIDs[M any](m map[uint]M) []uint {
	ids := make([]uint, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func cutPage[T any](items []T, p PageRequest) ([]T, PageMeta) {
	p = p.normalize()
	total := int64(len(items))
	start := (p.Page - 1) * p.Size
	if start >= len(items) {
		return []T{}, metaFor(total, p)
	}
	end := start + p.Size
	if end > len(items) {
		end = len(items)
	}
	return items[start:end], metaFor(total, p)
}

// users

func (s *MemoryStore) CreateUser(u *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	u.ID = s.allocID()
	u.CreatedAt = now
	u.UpdatedAt = now
	s.users[u.ID] = *u
	return nil
}

func (s *MemoryStore) GetUserByID(id uint) (domain.User, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	return u, ok, nil
}

func (s *MemoryStore) GetUserByUsername(username string) (domain.User, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range sortedIDs(s.users) {
		if s.users[id].Username == username {
			return s.users[id], true, nil
		}
	}
	return domain.User{}, false, nil
}

func (s *MemoryStore) HasUsername(username string) (bool, error) {
	_, ok, err := s.GetUserByUsername(username)
	return ok, err
}

func (s *MemoryStore) HasEmail(email string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) UpdateUser(u domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.UpdatedAt = time.Now().UTC()
	s.users[u.ID] = u
	return nil
}

// contacts

func (s *MemoryStore) CreateContact(c *domain.Contact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	c.ID = s.allocID()
	c.CreatedAt = now
	c.UpdatedAt = now
	s.contacts[c.ID] = *c
	return nil
}

func (s *MemoryStore) GetContact(id, userID uint) (domain.Contact, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contacts[id]
	if !ok || c.UserID != userID {
		return domain.Contact{}, false, nil
	}
	return c, true, nil
}

func (s *MemoryStore) CountContactsByUser(userID uint) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for _, c := range s.contacts {
		if c.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) ListContactsByUser(userID uint) ([]domain.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := []domain.Contact{}
	for _, id := range sortedIDs(s.contacts) {
		if s.contacts[id].UserID == userID {
			res = append(res, s.contacts[id])
		}
	}
	return res, nil
}

func (s *MemoryStore) UpdateContact(c domain.Contact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.UpdatedAt = time.Now().UTC()
	s.contacts[c.ID] = c
	return nil
}

func (s *MemoryStore) DeleteContact(id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.contacts, id)
	for aid, a := range s.addresses {
		if a.ContactID == id {
			delete(s.addresses, aid)
		}
	}
	return nil
}

func (s *MemoryStore) SearchContacts(f ContactFilter) ([]domain.Contact, PageMeta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	matched := []domain.Contact{}
	for _, id := range sortedIDs(s.contacts) {
		c := s.contacts[id]
		if c.UserID != f.UserID {
			continue
		}
		if f.Name != "" && !containsFold(c.FirstName, f.Name) && !containsFold(c.LastName, f.Name) {
			continue
		}
		if f.Phone != "" && !containsFold(c.Phone, f.Phone) {
			continue
		}
		if f.Email != "" && !containsFold(c.Email, f.Email) {
			continue
		}
		matched = append(matched, c)
	}
	page, meta := cutPage(matched, f.PageRequest)
	return page, meta, nil
}

// addresses

func (s *MemoryStore) CreateAddress(a *domain.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	a.ID = s.allocID()
	a.CreatedAt = now
	a.UpdatedAt = now
	s.addresses[a.ID] = *a
	return nil
}

func (s *MemoryStore) GetAddress(id, contactID uint) (domain.Address, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.addresses[id]
	if !ok || a.ContactID != contactID {
		return domain.Address{}, false, nil
	}
	return a, true, nil
}

func (s *MemoryStore) ListAddressesByContact(contactID uint) ([]domain.Address, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := []domain.Address{}
	for _, id := range sortedIDs(s.addresses) {
		if s.addresses[id].ContactID == contactID {
			res = append(res, s.addresses[id])
		}
	}
	return res, nil
}

func (s *MemoryStore) UpdateAddress(a domain.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.UpdatedAt = time.Now().UTC()
	s.addresses[a.ID] = a
	return nil
}

func (s *MemoryStore) DeleteAddress(id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.addresses, id)
	return nil
}

// authors

func (s *MemoryStore) CreateAuthor(a *domain.Author) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	a.ID = s.allocID()
	a.CreatedAt = now
	a.UpdatedAt = now
	s.authors[a.ID] = *a
	return nil
}

func (s *MemoryStore) GetAuthor(id uint) (domain.Author, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.authors[id]
	return a, ok, nil
}

func (s *MemoryStore) ListAuthors() ([]domain.Author, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := []domain.Author{}
	for _, id := range sortedIDs(s.authors) {
		res = append(res, s.authors[id])
	}
	return res, nil
}

func (s *MemoryStore) UpdateAuthor(a domain.Author) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.UpdatedAt = time.Now().UTC()
	s.authors[a.ID] = a
	return nil
}

func (s *MemoryStore) DeleteAuthor(id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.authors, id)
	return nil
}

func (s *MemoryStore) SearchAuthors(f AuthorFilter) ([]domain.Author, PageMeta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	matched := []domain.Author{}
	for _, id := range sortedIDs(s.authors) {
		a := s.authors[id]
		if f.Name != "" && !containsFold(a.Name, f.Name) {
			continue
		}
		if f.Address != "" && !containsFold(a.Address, f.Address) {
			continue
		}
		if f.Phone != "" && !containsFold(a.Phone, f.Phone) {
			continue
		}
		if f.Email != "" && !containsFold(a.Email, f.Email) {
			continue
		}
		matched = append(matched, a)
	}
	page, meta := cutPage(matched, f.PageRequest)
	return page, meta, nil
}

// user categories

func (s *MemoryStore) CreateUserCategory(c *domain.UserCategory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	c.ID = s.allocID()
	c.CreatedAt = now
	c.UpdatedAt = now
	s.categories[c.ID] = *c
	return nil
}

func (s *MemoryStore) GetUserCategory(id uint) (domain.UserCategory, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.categories[id]
	return c, ok, nil
}

func (s *MemoryStore) ListUserCategories() ([]domain.UserCategory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := []domain.UserCategory{}
	for _, id := range sortedIDs(s.categories) {
		res = append(res, s.categories[id])
	}
	return res, nil
}

func (s *MemoryStore) UpdateUserCategory(c domain.UserCategory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.UpdatedAt = time.Now().UTC()
	s.categories[c.ID] = c
	return nil
}

func (s *MemoryStore) DeleteUserCategory(id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.categories, id)
	return nil
}

func (s *MemoryStore) SearchUserCategories(f UserCategoryFilter) ([]domain.UserCategory, PageMeta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	matched := []domain.UserCategory{}
	for _, id := range sortedIDs(s.categories) {
		c := s.categories[id]
		if f.Name != "" && !containsFold(c.Name, f.Name) {
			continue
		}
		if f.Description != "" && !containsFold(c.Description, f.Description) {
			continue
		}
		matched = append(matched, c)
	}
	page, meta := cutPage(matched, f.PageRequest)
	return page, meta, nil
}

// loans

func (s *MemoryStore) CreateLoan(l *domain.Loan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	l.ID = s.allocID()
	l.CreatedAt = now
	l.UpdatedAt = now
	s.loans[l.ID] = *l
	return nil
}

func (s *MemoryStore) GetLoan(id uint) (domain.Loan, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.loans[id]
	return l, ok, nil
}

func (s *MemoryStore) ListLoans() ([]domain.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := []domain.Loan{}
	for _, id := range sortedIDs(s.loans) {
		res = append(res, s.loans[id])
	}
	return res, nil
}

func (s *MemoryStore) UpdateLoan(l domain.Loan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l.UpdatedAt = time.Now().UTC()
	s.loans[l.ID] = l
	return nil
}

func (s *MemoryStore) DeleteLoan(id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.loans, id)
	return nil
}

func (s *MemoryStore) SearchLoans(f LoanFilter) ([]domain.Loan, PageMeta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	matched := []domain.Loan{}
	for _, id := range sortedIDs(s.loans) {
		l := s.loans[id]
		if f.MemberID != 0 && l.MemberID != f.MemberID {
			continue
		}
		if f.LibrarianID != 0 && l.LibrarianID != f.LibrarianID {
			continue
		}
		if f.LoanDateStart != nil && f.LoanDateEnd != nil {
			if l.LoanDate.Before(*f.LoanDateStart) || l.LoanDate.After(*f.LoanDateEnd) {
				continue
			}
		}
		if f.ReturnDateStart != nil && f.ReturnDateEnd != nil {
			if l.ReturnDate == nil || l.ReturnDate.Before(*f.ReturnDateStart) || l.ReturnDate.After(*f.ReturnDateEnd) {
				continue
			}
		}
		matched = append(matched, l)
	}
	page, meta := cutPage(matched, f.PageRequest)
	return page, meta, nil
}
