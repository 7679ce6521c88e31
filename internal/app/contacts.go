package app

import (
	"context"
	"fmt"

	"openlib/pkg/domain"
	"openlib/pkg/store"
)

// ContactInput carries contact fields for create and update. Nil fields
// are left untouched on update; create requires first_name.
type ContactInput struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Phone     *string `json:"phone"`
	Email     *string `json:"email"`
	Gender    *string `json:"gender"`
}

func validateContactInput(in ContactInput, create bool) error {
	fields := fieldErrors{}
	if create && in.FirstName == nil {
		fields.add("first_name", "The first name field is required.")
	}
	if in.FirstName != nil {
		requireString(fields, "first_name", *in.FirstName, 100)
	}
	if in.LastName != nil {
		optionalString(fields, "last_name", *in.LastName, 100)
	}
	if in.Phone != nil {
		optionalString(fields, "phone", *in.Phone, 20)
	}
	if in.Email != nil {
		optionalEmail(fields, "email", *in.Email, 200)
	}
	if in.Gender != nil && *in.Gender != "" {
		if g := domain.Gender(*in.Gender); g != domain.GenderMale && g != domain.GenderFemale {
			fields.add("gender", "The selected gender is invalid.")
		}
	}
	return fields.err()
}

func applyContactInput(c *domain.Contact, in ContactInput) {
	if in.FirstName != nil {
		c.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		c.LastName = *in.LastName
	}
	if in.Phone != nil {
		c.Phone = *in.Phone
	}
	if in.Email != nil {
		c.Email = *in.Email
	}
	if in.Gender != nil {
		c.Gender = domain.Gender(*in.Gender)
	}
}

// CreateContact creates a contact owned by the user, optionally storing a
// profile image blob. A configured per-user cap is enforced first.
func (a *App) CreateContact(ctx context.Context, user domain.User, in ContactInput, image *Upload) (domain.Contact, error) {
	if err := validateContactInput(in, true); err != nil {
		return domain.Contact{}, err
	}
	if a.maxContacts > 0 {
		count, err := a.store.CountContactsByUser(user.ID)
		if err != nil {
			return domain.Contact{}, fmt.Errorf("count contacts: %w", err)
		}
		if count >= int64(a.maxContacts) {
			return domain.Contact{}, ErrTooManyContacts
		}
	}
	key, err := a.storeImage(ctx, "contact_images", image)
	if err != nil {
		return domain.Contact{}, err
	}
	contact := domain.Contact{UserID: user.ID, ProfileImage: key}
	applyContactInput(&contact, in)
	if err := a.store.CreateContact(&contact); err != nil {
		a.deleteImage(ctx, key)
		return domain.Contact{}, fmt.Errorf("create contact: %w", err)
	}
	return contact, nil
}

// GetContact fetches a contact only if the user owns it. A contact that
// exists under another account reads as not found.
func (a *App) GetContact(user domain.User, id uint) (domain.Contact, error) {
	contact, ok, err := a.store.GetContact(id, user.ID)
	if err != nil {
		return domain.Contact{}, fmt.Errorf("fetch contact: %w", err)
	}
	if !ok {
		return domain.Contact{}, ErrNotFound
	}
	return contact, nil
}

// ListContacts returns all contacts owned by the user, unpaginated.
func (a *App) ListContacts(user domain.User) ([]domain.Contact, error) {
	return a.store.ListContactsByUser(user.ID)
}

// UpdateContact applies the supplied fields to an owned contact. A new
// image replaces the previous blob.
func (a *App) UpdateContact(ctx context.Context, user domain.User, id uint, in ContactInput, image *Upload) (domain.Contact, error) {
	if err := validateContactInput(in, false); err != nil {
		return domain.Contact{}, err
	}
	contact, err := a.GetContact(user, id)
	if err != nil {
		return domain.Contact{}, err
	}
	applyContactInput(&contact, in)
	if image != nil {
		key, err := a.storeImage(ctx, "contact_images", image)
		if err != nil {
			return domain.Contact{}, err
		}
		a.deleteImage(ctx, contact.ProfileImage)
		contact.ProfileImage = key
	}
	if err := a.store.UpdateContact(contact); err != nil {
		return domain.Contact{}, fmt.Errorf("update contact: %w", err)
	}
	return contact, nil
}

// DeleteContact removes an owned contact along with its addresses and any
// stored profile image.
func (a *App) DeleteContact(ctx context.Context, user domain.User, id uint) error {
	contact, err := a.GetContact(user, id)
	if err != nil {
		return err
	}
	if err := a.store.DeleteContact(contact.ID); err != nil {
		return fmt.Errorf("delete contact: %w", err)
	}
	a.deleteImage(ctx, contact.ProfileImage)
	return nil
}

// ContactQuery narrows a contact search; all filters are optional and
// combine with AND. Name matches either name part, case-insensitively.
type ContactQuery struct {
	Name  string
	Phone string
	Email string
	Page  int
	Size  int
}

// SearchContacts runs a paginated, filtered search over the user's own
// contacts.
func (a *App) SearchContacts(user domain.User, q ContactQuery) ([]domain.Contact, store.PageMeta, error) {
	filter := store.ContactFilter{
		UserID: user.ID,
		Name:   q.Name,
		Phone:  q.Phone,
		Email:  q.Email,
		PageRequest: store.PageRequest{
			Page: q.Page,
			Size: q.Size,
		},
	}
	return a.store.SearchContacts(filter)
}
