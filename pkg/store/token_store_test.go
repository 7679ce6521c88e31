package store

import (
	"errors"
	"testing"
	"time"
)

func newTestTokenStore(t *testing.T, accessTTL time.Duration) *TokenStore {
	t.Helper()
	s, err := NewTokenStore("test-secret", accessTTL, time.Hour, NewMemoryTokenRevoker())
	if err != nil {
		t.Fatalf("new token store: %v", err)
	}
	return s
}

func TestTokenStoreIssueAndVerifyAccess(t *testing.T) {
	s := newTestTokenStore(t, time.Minute)

	token, err := s.IssueAccess(42)
	if err != nil {
		t.Fatalf("issue access: %v", err)
	}
	claims, err := s.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.UserID != 42 || claims.Type != TypeAccess {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestTokenStoreRefreshCarriesRefreshType(t *testing.T) {
	s := newTestTokenStore(t, time.Minute)

	token, err := s.IssueRefresh(7)
	if err != nil {
		t.Fatalf("issue refresh: %v", err)
	}
	claims, err := s.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Type != TypeRefresh {
		t.Fatalf("expected refresh type, got %q", claims.Type)
	}
}

func TestTokenStoreRejectsExpired(t *testing.T) {
	s := newTestTokenStore(t, time.Minute)
	s.leeway = 0
	s.accessTTL = -time.Minute

	token, err := s.IssueAccess(1)
	if err != nil {
		t.Fatalf("issue access: %v", err)
	}
	if _, err := s.Verify(token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestTokenStoreRejectsWrongSecret(t *testing.T) {
	s := newTestTokenStore(t, time.Minute)
	other, err := NewTokenStore("other-secret", time.Minute, time.Hour, nil)
	if err != nil {
		t.Fatalf("new token store: %v", err)
	}

	token, err := s.IssueAccess(1)
	if err != nil {
		t.Fatalf("issue access: %v", err)
	}
	if _, err := other.Verify(token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestTokenStoreInvalidateIsIdempotent(t *testing.T) {
	s := newTestTokenStore(t, time.Minute)

	token, err := s.IssueAccess(9)
	if err != nil {
		t.Fatalf("issue access: %v", err)
	}
	ok, err := s.Invalidate(token)
	if err != nil || !ok {
		t.Fatalf("first invalidate: ok=%v err=%v", ok, err)
	}
	if _, err := s.Verify(token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected revoked token to fail verify, got %v", err)
	}
	ok, err = s.Invalidate(token)
	if err != nil {
		t.Fatalf("second invalidate: %v", err)
	}
	if ok {
		t.Fatalf("expected second invalidate to report false")
	}
}

func TestTokenStoreInvalidateGarbageToken(t *testing.T) {
	s := newTestTokenStore(t, time.Minute)
	ok, err := s.Invalidate("not-a-jwt")
	if err != nil {
		t.Fatalf("invalidate garbage: %v", err)
	}
	if ok {
		t.Fatalf("expected false for garbage token")
	}
}
