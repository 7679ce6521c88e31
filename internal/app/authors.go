package app

import (
	"context"
	"fmt"
	"time"

	"openlib/pkg/domain"
	"openlib/pkg/store"
)

// AuthorInput carries author fields for create and update. Nil fields are
// left untouched on update; create requires name.
type AuthorInput struct {
	Name        *string           `json:"name"`
	Address     *string           `json:"address"`
	Phone       *string           `json:"phone"`
	Email       *string           `json:"email"`
	Website     *string           `json:"website"`
	Bio         *string           `json:"bio"`
	SocialMedia map[string]string `json:"social_media"`
	Nationality *string           `json:"nationality"`
	BirthDate   *string           `json:"birth_date"`
	Categories  []string          `json:"categories"`
}

func validateAuthorInput(in AuthorInput, create bool) (birthDate *time.Time, err error) {
	fields := fieldErrors{}
	if create && in.Name == nil {
		fields.add("name", "The name field is required.")
	}
	if in.Name != nil {
		requireString(fields, "name", *in.Name, 200)
	}
	if in.Address != nil {
		optionalString(fields, "address", *in.Address, 500)
	}
	if in.Phone != nil {
		optionalString(fields, "phone", *in.Phone, 20)
	}
	if in.Email != nil {
		optionalEmail(fields, "email", *in.Email, 200)
	}
	if in.Website != nil {
		optionalString(fields, "website", *in.Website, 200)
	}
	if in.Nationality != nil {
		optionalString(fields, "nationality", *in.Nationality, 100)
	}
	if in.BirthDate != nil && *in.BirthDate != "" {
		t, perr := time.Parse(dateLayout, *in.BirthDate)
		if perr != nil {
			fields.add("birth_date", fmt.Sprintf("The birth date does not match the format %s.", dateLayout))
		} else {
			birthDate = &t
		}
	}
	return birthDate, fields.err()
}

func applyAuthorInput(author *domain.Author, in AuthorInput, birthDate *time.Time) {
	if in.Name != nil {
		author.Name = *in.Name
	}
	if in.Address != nil {
		author.Address = *in.Address
	}
	if in.Phone != nil {
		author.Phone = *in.Phone
	}
	if in.Email != nil {
		author.Email = *in.Email
	}
	if in.Website != nil {
		author.Website = *in.Website
	}
	if in.Bio != nil {
		author.Bio = *in.Bio
	}
	if in.SocialMedia != nil {
		author.SocialMedia = in.SocialMedia
	}
	if in.Nationality != nil {
		author.Nationality = *in.Nationality
	}
	if birthDate != nil {
		author.BirthDate = birthDate
	}
	if in.Categories != nil {
		author.Categories = in.Categories
	}
}

// CreateAuthor adds an author to the shared catalog, optionally storing a
// profile image blob.
func (a *App) CreateAuthor(ctx context.Context, in AuthorInput, image *Upload) (domain.Author, error) {
	birthDate, err := validateAuthorInput(in, true)
	if err != nil {
		return domain.Author{}, err
	}
	key, err := a.storeImage(ctx, "author_images", image)
	if err != nil {
		return domain.Author{}, err
	}
	author := domain.Author{ProfileImage: key}
	applyAuthorInput(&author, in, birthDate)
	if err := a.store.CreateAuthor(&author); err != nil {
		a.deleteImage(ctx, key)
		return domain.Author{}, fmt.Errorf("create author: %w", err)
	}
	return author, nil
}

// GetAuthor fetches a single catalog author.
func (a *App) GetAuthor(id uint) (domain.Author, error) {
	author, ok, err := a.store.GetAuthor(id)
	if err != nil {
		return domain.Author{}, fmt.Errorf("fetch author: %w", err)
	}
	if !ok {
		return domain.Author{}, ErrNotFound
	}
	return author, nil
}

// ListAuthors returns the whole catalog, unpaginated.
func (a *App) ListAuthors() ([]domain.Author, error) {
	return a.store.ListAuthors()
}

// UpdateAuthor applies the supplied fields to an author. A new image
// replaces the previous blob.
func (a *App) UpdateAuthor(ctx context.Context, id uint, in AuthorInput, image *Upload) (domain.Author, error) {
	birthDate, err := validateAuthorInput(in, false)
	if err != nil {
		return domain.Author{}, err
	}
	author, err := a.GetAuthor(id)
	if err != nil {
		return domain.Author{}, err
	}
	applyAuthorInput(&author, in, birthDate)
	if image != nil {
		key, err := a.storeImage(ctx, "author_images", image)
		if err != nil {
			return domain.Author{}, err
		}
		a.deleteImage(ctx, author.ProfileImage)
		author.ProfileImage = key
	}
	if err := a.store.UpdateAuthor(author); err != nil {
		return domain.Author{}, fmt.Errorf("update author: %w", err)
	}
	return author, nil
}

// DeleteAuthor removes an author and any stored profile image.
func (a *App) DeleteAuthor(ctx context.Context, id uint) error {
	author, err := a.GetAuthor(id)
	if err != nil {
		return err
	}
	if err := a.store.DeleteAuthor(author.ID); err != nil {
		return fmt.Errorf("delete author: %w", err)
	}
	a.deleteImage(ctx, author.ProfileImage)
	return nil
}

// AuthorQuery narrows an author search; all filters are optional and
// combine with AND.
type AuthorQuery struct {
	Name    string
	Address string
	Phone   string
	Email   string
	Page    int
	Size    int
}

// SearchAuthors runs a paginated, filtered search over the author catalog.
func (a *App) SearchAuthors(q AuthorQuery) ([]domain.Author, store.PageMeta, error) {
	filter := store.AuthorFilter{
		Name:    q.Name,
		Address: q.Address,
		Phone:   q.Phone,
		Email:   q.Email,
		PageRequest: store.PageRequest{
			Page: q.Page,
			Size: q.Size,
		},
	}
	return a.store.SearchAuthors(filter)
}
