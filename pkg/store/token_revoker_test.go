package store

import (
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func TestMemoryTokenRevokerExpiresEntries(t *testing.T) {
	r := NewMemoryTokenRevoker()
	if err := r.Revoke("jti-1", 10*time.Millisecond); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	revoked, err := r.IsRevoked("jti-1")
	if err != nil || !revoked {
		t.Fatalf("expected revoked, got revoked=%v err=%v", revoked, err)
	}
	time.Sleep(20 * time.Millisecond)
	revoked, err = r.IsRevoked("jti-1")
	if err != nil || revoked {
		t.Fatalf("expected entry to expire, got revoked=%v err=%v", revoked, err)
	}
}

func TestMemoryTokenRevokerConcurrentAccess(t *testing.T) {
	r := NewMemoryTokenRevoker()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = r.Revoke("shared", time.Minute)
				_, _ = r.IsRevoked("shared")
			}
		}()
	}
	wg.Wait()
	revoked, err := r.IsRevoked("shared")
	if err != nil || !revoked {
		t.Fatalf("expected shared jti revoked, got revoked=%v err=%v", revoked, err)
	}
}

func TestRedisTokenRevoker(t *testing.T) {
	redis := miniredis.RunT(t)
	r := NewRedisTokenRevoker(redis.Addr(), "")

	if err := r.Revoke("jti-redis", time.Minute); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	revoked, err := r.IsRevoked("jti-redis")
	if err != nil || !revoked {
		t.Fatalf("expected revoked, got revoked=%v err=%v", revoked, err)
	}
	revoked, err = r.IsRevoked("jti-unknown")
	if err != nil || revoked {
		t.Fatalf("expected unknown jti not revoked, got revoked=%v err=%v", revoked, err)
	}

	redis.FastForward(2 * time.Minute)
	revoked, err = r.IsRevoked("jti-redis")
	if err != nil || revoked {
		t.Fatalf("expected ttl expiry, got revoked=%v err=%v", revoked, err)
	}
}
