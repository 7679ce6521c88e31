package app

import (
	"fmt"

	"openlib/pkg/domain"
)

// AddressInput carries address fields for create and update. Nil fields
// are left untouched on update; create requires street and city.
type AddressInput struct {
	Street     *string `json:"street"`
	City       *string `json:"city"`
	Province   *string `json:"province"`
	Country    *string `json:"country"`
	PostalCode *string `json:"postal_code"`
}

func validateAddressInput(in AddressInput, create bool) error {
	fields := fieldErrors{}
	if create && in.Street == nil {
		fields.add("street", "The street field is required.")
	}
	if create && in.City == nil {
		fields.add("city", "The city field is required.")
	}
	if in.Street != nil {
		requireString(fields, "street", *in.Street, 200)
	}
	if in.City != nil {
		requireString(fields, "city", *in.City, 100)
	}
	if in.Province != nil {
		optionalString(fields, "province", *in.Province, 100)
	}
	if in.Country != nil {
		optionalString(fields, "country", *in.Country, 100)
	}
	if in.PostalCode != nil {
		optionalString(fields, "postal_code", *in.PostalCode, 20)
	}
	return fields.err()
}

func applyAddressInput(addr *domain.Address, in AddressInput) {
	if in.Street != nil {
		addr.Street = *in.Street
	}
	if in.City != nil {
		addr.City = *in.City
	}
	if in.Province != nil {
		addr.Province = *in.Province
	}
	if in.Country != nil {
		addr.Country = *in.Country
	}
	if in.PostalCode != nil {
		addr.PostalCode = *in.PostalCode
	}
}

// CreateAddress attaches an address to one of the user's contacts. The
// contact lookup doubles as the ownership check.
func (a *App) CreateAddress(user domain.User, contactID uint, in AddressInput) (domain.Address, error) {
	if err := validateAddressInput(in, true); err != nil {
		return domain.Address{}, err
	}
	contact, err := a.GetContact(user, contactID)
	if err != nil {
		return domain.Address{}, err
	}
	addr := domain.Address{ContactID: contact.ID}
	applyAddressInput(&addr, in)
	if err := a.store.CreateAddress(&addr); err != nil {
		return domain.Address{}, fmt.Errorf("create address: %w", err)
	}
	return addr, nil
}

// ListAddresses returns all addresses of one of the user's contacts.
func (a *App) ListAddresses(user domain.User, contactID uint) ([]domain.Address, error) {
	contact, err := a.GetContact(user, contactID)
	if err != nil {
		return nil, err
	}
	return a.store.ListAddressesByContact(contact.ID)
}

// GetAddress fetches an address scoped to both the contact and the
// contact's owner. Any mismatch reads as not found.
func (a *App) GetAddress(user domain.User, contactID, id uint) (domain.Address, error) {
	contact, err := a.GetContact(user, contactID)
	if err != nil {
		return domain.Address{}, err
	}
	addr, ok, err := a.store.GetAddress(id, contact.ID)
	if err != nil {
		return domain.Address{}, fmt.Errorf("fetch address: %w", err)
	}
	if !ok {
		return domain.Address{}, ErrNotFound
	}
	return addr, nil
}

// UpdateAddress applies the supplied fields to an address of an owned
// contact.
func (a *App) UpdateAddress(user domain.User, contactID, id uint, in AddressInput) (domain.Address, error) {
	if err := validateAddressInput(in, false); err != nil {
		return domain.Address{}, err
	}
	addr, err := a.GetAddress(user, contactID, id)
	if err != nil {
		return domain.Address{}, err
	}
	applyAddressInput(&addr, in)
	if err := a.store.UpdateAddress(addr); err != nil {
		return domain.Address{}, fmt.Errorf("update address: %w", err)
	}
	return addr, nil
}

// DeleteAddress removes an address of an owned contact.
func (a *App) DeleteAddress(user domain.User, contactID, id uint) error {
	addr, err := a.GetAddress(user, contactID, id)
	if err != nil {
		return err
	}
	if err := a.store.DeleteAddress(addr.ID); err != nil {
		return fmt.Errorf("delete address: %w", err)
	}
	return nil
}
