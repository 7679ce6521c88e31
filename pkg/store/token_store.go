package store

import (
	"errors"
	"strconv"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	defaultTokenIssuer = "openlib-api"

	// TypeAccess tokens authenticate requests; TypeRefresh tokens may only
	// be exchanged for new access tokens.
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

var defaultTokenLeeway = 30 * time.Second

var (
	// ErrTokenExpired means the token was well-formed but past its expiry.
	// Callers should re-login rather than retry.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid covers malformed tokens, bad signatures, and tokens
	// revoked before their natural expiry.
	ErrTokenInvalid = errors.New("token invalid")
)

// TokenClaims is what Verify resolves a bearer token to.
type TokenClaims struct {
	UserID uint
	Type   string
}

// TokenStore issues and validates HS256-signed JWTs carrying a user id and
// a type claim. Revocation is a jti denylist consulted on every Verify.
type TokenStore struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	issuer     string
	leeway     time.Duration
	revoker    TokenRevoker
}

type tokenClaims struct {
	jwt.RegisteredClaims
	Type string `json:"typ"`
}

// NewTokenStore builds a token store. accessTTL/refreshTTL of zero fall
// back to 15 minutes / 7 days.
func NewTokenStore(secret string, accessTTL, refreshTTL time.Duration, revoker TokenRevoker) (*TokenStore, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("token secret required")
	}
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	return &TokenStore{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		issuer:     defaultTokenIssuer,
		leeway:     defaultTokenLeeway,
		revoker:    revoker,
	}, nil
}

// AccessTTL reports the configured access token lifetime.
func (s *TokenStore) AccessTTL() time.Duration {
	return s.accessTTL
}

// IssueAccess signs a short-lived access token for the user.
func (s *TokenStore) IssueAccess(userID uint) (string, error) {
	return s.issue(userID, TypeAccess, s.accessTTL)
}

// IssueRefresh signs a refresh token for the user.
func (s *TokenStore) IssueRefresh(userID uint) (string, error) {
	return s.issue(userID, TypeRefresh, s.refreshTTL)
}

func (s *TokenStore) issue(userID uint, typ string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			Issuer:    s.issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
		Type: typ,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify parses and validates a token, checks the denylist, and returns
// the identity and token type.
func (s *TokenStore) Verify(token string) (TokenClaims, error) {
	claims, err := s.parse(token)
	if err != nil {
		return TokenClaims{}, err
	}
	if s.revoker != nil {
		revoked, err := s.revoker.IsRevoked(claims.ID)
		if err != nil {
			return TokenClaims{}, err
		}
		if revoked {
			return TokenClaims{}, ErrTokenInvalid
		}
	}
	userID, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || userID == 0 {
		return TokenClaims{}, ErrTokenInvalid
	}
	if claims.Type != TypeAccess && claims.Type != TypeRefresh {
		return TokenClaims{}, ErrTokenInvalid
	}
	return TokenClaims{UserID: uint(userID), Type: claims.Type}, nil
}

// Invalidate denylists the token's jti until its natural expiry. Returns
// true when the token was live and is now revoked; invalidating an
// already-unusable token reports false without being an error.
func (s *TokenStore) Invalidate(token string) (bool, error) {
	claims, err := s.parse(token)
	if err != nil {
		return false, nil
	}
	if s.revoker == nil || claims.ExpiresAt == nil {
		return false, nil
	}
	revoked, err := s.revoker.IsRevoked(claims.ID)
	if err != nil {
		return false, err
	}
	if revoked {
		return false, nil
	}
	if err := s.revoker.Revoke(claims.ID, time.Until(claims.ExpiresAt.Time)); err != nil {
		return false, err
	}
	return true, nil
}

func (s *TokenStore) parse(token string) (tokenClaims, error) {
	claims := tokenClaims{}
	token = strings.TrimSpace(token)
	if token == "" {
		return claims, ErrTokenInvalid
	}
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(s.leeway),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return claims, ErrTokenExpired
		}
		return claims, ErrTokenInvalid
	}
	if !parsed.Valid || strings.TrimSpace(claims.ID) == "" {
		return claims, ErrTokenInvalid
	}
	return claims, nil
}
