package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"openlib/pkg/auth"
	"openlib/pkg/domain"
	"openlib/pkg/storage"
	"openlib/pkg/store"
)

const (
	dateTimeLayout = "2006-01-02 15:04:05"
	dateLayout     = "2006-01-02"
)

// Config wires the application's collaborators.
type Config struct {
	Store   store.Store
	Tokens  *store.TokenStore
	Objects storage.ObjectStore

	// MaxContactsPerUser caps contacts per account; 0 means unlimited.
	MaxContactsPerUser int
}

// App holds the business logic behind the HTTP handlers: authentication,
// ownership-scoped resource access, search, and pagination.
type App struct {
	store       store.Store
	tokens      *store.TokenStore
	objects     storage.ObjectStore
	maxContacts int
}

// New constructs the application core.
func New(cfg Config) (*App, error) {
	if cfg.Store == nil {
		return nil, errors.New("store is required")
	}
	if cfg.Tokens == nil {
		return nil, errors.New("token store is required")
	}
	objects := cfg.Objects
	if objects == nil {
		objects = storage.NewMemoryObjectStore()
	}
	return &App{
		store:       cfg.Store,
		tokens:      cfg.Tokens,
		objects:     objects,
		maxContacts: cfg.MaxContactsPerUser,
	}, nil
}

// Upload carries an incoming file for the blob store.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Reader      io.Reader
}

// RegisterInput carries a registration payload.
type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register creates a new account with a hashed password. The username
// uniqueness check is a pre-check, not a race-proof constraint.
func (a *App) Register(in RegisterInput) (domain.User, error) {
	fields := fieldErrors{}
	requireString(fields, "name", in.Name, 100)
	requireString(fields, "username", in.Username, 100)
	requireEmail(fields, "email", in.Email, 100)
	if in.Password == "" {
		fields.add("password", "The password field is required.")
	} else if err := auth.ValidatePassword(in.Password); err != nil {
		fields.add("password", "The password must be at least 5 characters.")
	} else if len(in.Password) > 72 {
		// bcrypt rejects longer inputs
		fields.add("password", "The password must not be greater than 72 characters.")
	}
	if err := fields.err(); err != nil {
		return domain.User{}, err
	}

	taken, err := a.store.HasUsername(in.Username)
	if err != nil {
		return domain.User{}, fmt.Errorf("check username: %w", err)
	}
	if taken {
		return domain.User{}, ErrUsernameTaken
	}
	emailTaken, err := a.store.HasEmail(in.Email)
	if err != nil {
		return domain.User{}, fmt.Errorf("check email: %w", err)
	}
	if emailTaken {
		return domain.User{}, ErrEmailTaken
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}
	user := domain.User{
		Name:         in.Name,
		Email:        in.Email,
		Username:     in.Username,
		PasswordHash: hash,
	}
	if err := a.store.CreateUser(&user); err != nil {
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// LoginResult is a verified user plus a fresh token pair.
type LoginResult struct {
	User         domain.User
	AccessToken  string
	RefreshToken string
}

// Login verifies credentials and issues an access/refresh token pair.
func (a *App) Login(username, password string) (LoginResult, error) {
	fields := fieldErrors{}
	if username == "" {
		fields.add("username", "The username field is required.")
	}
	if password == "" {
		fields.add("password", "The password field is required.")
	}
	if err := fields.err(); err != nil {
		return LoginResult{}, err
	}

	user, ok, err := a.store.GetUserByUsername(username)
	if err != nil {
		return LoginResult{}, fmt.Errorf("fetch user: %w", err)
	}
	if !ok || !auth.CheckPassword(password, user.PasswordHash) {
		return LoginResult{}, ErrInvalidCredentials
	}

	accessToken, err := a.tokens.IssueAccess(user.ID)
	if err != nil {
		return LoginResult{}, ErrTokenIssuance
	}
	refreshToken, err := a.tokens.IssueRefresh(user.ID)
	if err != nil {
		return LoginResult{}, ErrTokenIssuance
	}
	return LoginResult{User: user, AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// UserFromToken resolves a bearer token to a user. Only access tokens
// authenticate requests; refresh tokens are rejected here.
func (a *App) UserFromToken(token string) (domain.User, error) {
	claims, err := a.tokens.Verify(token)
	if err != nil {
		return domain.User{}, err
	}
	if claims.Type != store.TypeAccess {
		return domain.User{}, store.ErrTokenInvalid
	}
	user, ok, err := a.store.GetUserByID(claims.UserID)
	if err != nil {
		return domain.User{}, fmt.Errorf("fetch user: %w", err)
	}
	if !ok {
		return domain.User{}, store.ErrTokenInvalid
	}
	return user, nil
}

// RefreshResult is a re-issued access token with its lifetime in seconds.
type RefreshResult struct {
	AccessToken string
	ExpiresIn   int
}

// Refresh exchanges a live refresh token for a new access token. The
// presented token must carry the refresh type claim; access tokens are
// not accepted. Expired tokens get a distinct error so clients re-login.
func (a *App) Refresh(token string) (RefreshResult, error) {
	if strings.TrimSpace(token) == "" {
		return RefreshResult{}, ErrTokenNotProvided
	}
	claims, err := a.tokens.Verify(token)
	if err != nil {
		return RefreshResult{}, err
	}
	if claims.Type != store.TypeRefresh {
		return RefreshResult{}, store.ErrTokenInvalid
	}
	accessToken, err := a.tokens.IssueAccess(claims.UserID)
	if err != nil {
		return RefreshResult{}, ErrTokenIssuance
	}
	return RefreshResult{
		AccessToken: accessToken,
		ExpiresIn:   int(a.tokens.AccessTTL().Seconds()),
	}, nil
}

// Logout invalidates the presented token for all future use. The returned
// flag reports whether anything was actually revoked.
func (a *App) Logout(token string) (bool, error) {
	return a.tokens.Invalidate(token)
}

// UserUpdateInput carries a partial user update; nil fields stay untouched.
type UserUpdateInput struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Username *string `json:"username"`
	Password *string `json:"password"`
}

// UpdateCurrentUser applies only the supplied fields to the caller's
// account. A supplied password is re-hashed before storage.
func (a *App) UpdateCurrentUser(user domain.User, in UserUpdateInput) (domain.User, error) {
	fields := fieldErrors{}
	if in.Name != nil {
		requireString(fields, "name", *in.Name, 100)
	}
	if in.Username != nil {
		requireString(fields, "username", *in.Username, 100)
	}
	if in.Email != nil {
		requireEmail(fields, "email", *in.Email, 100)
	}
	if in.Password != nil {
		if err := auth.ValidatePassword(*in.Password); err != nil {
			fields.add("password", "The password must be at least 5 characters.")
		} else if len(*in.Password) > 72 {
			fields.add("password", "The password must not be greater than 72 characters.")
		}
	}
	if err := fields.err(); err != nil {
		return domain.User{}, err
	}

	if in.Username != nil && *in.Username != user.Username {
		taken, err := a.store.HasUsername(*in.Username)
		if err != nil {
			return domain.User{}, fmt.Errorf("check username: %w", err)
		}
		if taken {
			return domain.User{}, ErrUsernameTaken
		}
		user.Username = *in.Username
	}
	if in.Email != nil && *in.Email != user.Email {
		taken, err := a.store.HasEmail(*in.Email)
		if err != nil {
			return domain.User{}, fmt.Errorf("check email: %w", err)
		}
		if taken {
			return domain.User{}, ErrEmailTaken
		}
		user.Email = *in.Email
	}
	if in.Name != nil {
		user.Name = *in.Name
	}
	if in.Password != nil {
		hash, err := auth.HashPassword(*in.Password)
		if err != nil {
			return domain.User{}, fmt.Errorf("hash password: %w", err)
		}
		user.PasswordHash = hash
	}
	user.UpdatedAt = time.Now().UTC()
	if err := a.store.UpdateUser(user); err != nil {
		return domain.User{}, fmt.Errorf("update user: %w", err)
	}
	return user, nil
}

// ContactDetail pairs a contact with its addresses for the current-user view.
type ContactDetail struct {
	Contact   domain.Contact
	Addresses []domain.Address
}

// ContactsOfUser loads the user's contacts with their addresses.
func (a *App) ContactsOfUser(userID uint) ([]ContactDetail, error) {
	contacts, err := a.store.ListContactsByUser(userID)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	details := make([]ContactDetail, 0, len(contacts))
	for _, c := range contacts {
		addresses, err := a.store.ListAddressesByContact(c.ID)
		if err != nil {
			return nil, fmt.Errorf("list addresses: %w", err)
		}
		details = append(details, ContactDetail{Contact: c, Addresses: addresses})
	}
	return details, nil
}

// ImageURL resolves a stored blob key to a retrievable URL. Empty keys
// yield an empty URL.
func (a *App) ImageURL(ctx context.Context, key string) string {
	if key == "" {
		return ""
	}
	url, err := a.objects.URLFor(ctx, key)
	if err != nil {
		return ""
	}
	return url
}

func (a *App) storeImage(ctx context.Context, dir string, upload *Upload) (string, error) {
	if upload == nil {
		return "", nil
	}
	key := storage.NewKey(dir, upload.Filename)
	if err := a.objects.Put(ctx, key, upload.Reader, upload.Size, upload.ContentType); err != nil {
		return "", fmt.Errorf("store image: %w", err)
	}
	return key, nil
}

func (a *App) deleteImage(ctx context.Context, key string) {
	if key == "" {
		return
	}
	_ = a.objects.Delete(ctx, key)
}

// shared validation helpers

func requireString(fields fieldErrors, name, value string, max int) {
	if strings.TrimSpace(value) == "" {
		fields.add(name, fmt.Sprintf("The %s field is required.", name))
		return
	}
	if len(value) > max {
		fields.add(name, fmt.Sprintf("The %s must not be greater than %d characters.", name, max))
	}
}

func optionalString(fields fieldErrors, name, value string, max int) {
	if value != "" && len(value) > max {
		fields.add(name, fmt.Sprintf("The %s must not be greater than %d characters.", name, max))
	}
}

func requireEmail(fields fieldErrors, name, value string, max int) {
	if strings.TrimSpace(value) == "" {
		fields.add(name, fmt.Sprintf("The %s field is required.", name))
		return
	}
	optionalEmail(fields, name, value, max)
}

func optionalEmail(fields fieldErrors, name, value string, max int) {
	if value == "" {
		return
	}
	if len(value) > max {
		fields.add(name, fmt.Sprintf("The %s must not be greater than %d characters.", name, max))
	}
	at := strings.Index(value, "@")
	if at < 1 || at == len(value)-1 || strings.ContainsAny(value, " \t") {
		fields.add(name, fmt.Sprintf("The %s must be a valid email address.", name))
	}
}

func parseDateTime(fields fieldErrors, name, value string) *time.Time {
	t, err := time.Parse(dateTimeLayout, value)
	if err != nil {
		fields.add(name, fmt.Sprintf("The %s does not match the format %s.", name, dateTimeLayout))
		return nil
	}
	return &t
}
