package app

import (
	"context"
	"errors"
	"testing"
)

func TestAuthorLifecycle(t *testing.T) {
	a, _ := newTestApp(t)
	registerUser(t, a, "alice")
	ctx := context.Background()

	author, err := a.CreateAuthor(ctx, AuthorInput{
		Name:        strptr("Ursula K. Le Guin"),
		Nationality: strptr("American"),
		BirthDate:   strptr("1929-10-21"),
		SocialMedia: map[string]string{"website": "ursulakleguin.com"},
		Categories:  []string{"fiction", "essays"},
	}, nil)
	if err != nil {
		t.Fatalf("CreateAuthor: %v", err)
	}
	if author.BirthDate == nil || author.BirthDate.Year() != 1929 {
		t.Fatalf("birth date not parsed: %v", author.BirthDate)
	}

	bio := "Wrote the Earthsea cycle."
	updated, err := a.UpdateAuthor(ctx, author.ID, AuthorInput{Bio: &bio}, nil)
	if err != nil {
		t.Fatalf("UpdateAuthor: %v", err)
	}
	if updated.Bio != bio || updated.Name != "Ursula K. Le Guin" {
		t.Fatalf("partial update wrong: %+v", updated)
	}

	if err := a.DeleteAuthor(ctx, author.ID); err != nil {
		t.Fatalf("DeleteAuthor: %v", err)
	}
	if _, err := a.GetAuthor(author.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("author should be gone, got %v", err)
	}
}

func TestCreateAuthorValidation(t *testing.T) {
	a, _ := newTestApp(t)
	ctx := context.Background()

	_, err := a.CreateAuthor(ctx, AuthorInput{}, nil)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if _, ok := verr.Fields["name"]; !ok {
		t.Fatalf("expected name error, got %v", verr.Fields)
	}

	_, err = a.CreateAuthor(ctx, AuthorInput{
		Name:      strptr("X"),
		BirthDate: strptr("21-10-1929"),
	}, nil)
	if !errors.As(err, &verr) {
		t.Fatalf("expected birth date format error, got %v", err)
	}
	if _, ok := verr.Fields["birth_date"]; !ok {
		t.Fatalf("expected birth_date error, got %v", verr.Fields)
	}
}

func TestSearchAuthorsCombinesFilters(t *testing.T) {
	a, _ := newTestApp(t)
	ctx := context.Background()

	mk := func(name, email string) {
		if _, err := a.CreateAuthor(ctx, AuthorInput{Name: strptr(name), Email: strptr(email)}, nil); err != nil {
			t.Fatalf("CreateAuthor(%s): %v", name, err)
		}
	}
	mk("Ann Leckie", "ann@example.com")
	mk("Ann Patchett", "patchett@books.example.com")
	mk("Ted Chiang", "ted@example.com")

	got, meta, err := a.SearchAuthors(AuthorQuery{Name: "ann", Email: "example.com"})
	if err != nil {
		t.Fatalf("SearchAuthors: %v", err)
	}
	if len(got) != 2 || meta.Total != 2 {
		t.Fatalf("got %d authors, total %d", len(got), meta.Total)
	}

	got, _, err = a.SearchAuthors(AuthorQuery{Name: "ann", Email: "books"})
	if err != nil {
		t.Fatalf("SearchAuthors: %v", err)
	}
	if len(got) != 1 || got[0].Name != "Ann Patchett" {
		t.Fatalf("AND filter wrong: %+v", got)
	}
}

func TestUserCategoryLifecycle(t *testing.T) {
	a, _ := newTestApp(t)

	cat, err := a.CreateUserCategory(UserCategoryInput{
		Name:        strptr("Librarian"),
		Description: strptr("Staff with checkout privileges."),
	})
	if err != nil {
		t.Fatalf("CreateUserCategory: %v", err)
	}

	desc := "Full staff privileges."
	updated, err := a.UpdateUserCategory(cat.ID, UserCategoryInput{Description: &desc})
	if err != nil {
		t.Fatalf("UpdateUserCategory: %v", err)
	}
	if updated.Name != "Librarian" || updated.Description != desc {
		t.Fatalf("partial update wrong: %+v", updated)
	}

	got, meta, err := a.SearchUserCategories(UserCategoryQuery{Description: "privileges"})
	if err != nil {
		t.Fatalf("SearchUserCategories: %v", err)
	}
	if len(got) != 1 || meta.Total != 1 {
		t.Fatalf("got %d categories, total %d", len(got), meta.Total)
	}

	if err := a.DeleteUserCategory(cat.ID); err != nil {
		t.Fatalf("DeleteUserCategory: %v", err)
	}
	if _, err := a.GetUserCategory(cat.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("category should be gone, got %v", err)
	}
}
