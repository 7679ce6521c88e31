package app

import (
	"fmt"

	"openlib/pkg/domain"
	"openlib/pkg/store"
)

// UserCategoryInput carries category fields for create and update. Nil
// fields are left untouched on update; create requires name.
type UserCategoryInput struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

func validateUserCategoryInput(in UserCategoryInput, create bool) error {
	fields := fieldErrors{}
	if create && in.Name == nil {
		fields.add("name", "The name field is required.")
	}
	if in.Name != nil {
		requireString(fields, "name", *in.Name, 100)
	}
	if in.Description != nil {
		optionalString(fields, "description", *in.Description, 500)
	}
	return fields.err()
}

// CreateUserCategory adds a membership category to the shared taxonomy.
func (a *App) CreateUserCategory(in UserCategoryInput) (domain.UserCategory, error) {
	if err := validateUserCategoryInput(in, true); err != nil {
		return domain.UserCategory{}, err
	}
	category := domain.UserCategory{Name: *in.Name}
	if in.Description != nil {
		category.Description = *in.Description
	}
	if err := a.store.CreateUserCategory(&category); err != nil {
		return domain.UserCategory{}, fmt.Errorf("create user category: %w", err)
	}
	return category, nil
}

// GetUserCategory fetches a single category.
func (a *App) GetUserCategory(id uint) (domain.UserCategory, error) {
	category, ok, err := a.store.GetUserCategory(id)
	if err != nil {
		return domain.UserCategory{}, fmt.Errorf("fetch user category: %w", err)
	}
	if !ok {
		return domain.UserCategory{}, ErrNotFound
	}
	return category, nil
}

// ListUserCategories returns the whole taxonomy, unpaginated.
func (a *App) ListUserCategories() ([]domain.UserCategory, error) {
	return a.store.ListUserCategories()
}

// UpdateUserCategory applies the supplied fields to a category.
func (a *App) UpdateUserCategory(id uint, in UserCategoryInput) (domain.UserCategory, error) {
	if err := validateUserCategoryInput(in, false); err != nil {
		return domain.UserCategory{}, err
	}
	category, err := a.GetUserCategory(id)
	if err != nil {
		return domain.UserCategory{}, err
	}
	if in.Name != nil {
		category.Name = *in.Name
	}
	if in.Description != nil {
		category.Description = *in.Description
	}
	if err := a.store.UpdateUserCategory(category); err != nil {
		return domain.UserCategory{}, fmt.Errorf("update user category: %w", err)
	}
	return category, nil
}

// DeleteUserCategory removes a category.
func (a *App) DeleteUserCategory(id uint) error {
	category, err := a.GetUserCategory(id)
	if err != nil {
		return err
	}
	if err := a.store.DeleteUserCategory(category.ID); err != nil {
		return fmt.Errorf("delete user category: %w", err)
	}
	return nil
}

// UserCategoryQuery narrows a category search; both filters are optional
// and combine with AND.
type UserCategoryQuery struct {
	Name        string
	Description string
	Page        int
	Size        int
}

// SearchUserCategories runs a paginated, filtered search over the taxonomy.
func (a *App) SearchUserCategories(q UserCategoryQuery) ([]domain.UserCategory, store.PageMeta, error) {
	filter := store.UserCategoryFilter{
		Name:        q.Name,
		Description: q.Description,
		PageRequest: store.PageRequest{
			Page: q.Page,
			Size: q.Size,
		},
	}
	return a.store.SearchUserCategories(filter)
}
