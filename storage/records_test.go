package storage

import (
	"testing"
	"time"
)

func TestExpiryFromTtl(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	if got := expiryFromTtl(now, 0); got.Valid {
		t.Errorf("Expected zero ttl to mean no expiry, got %v", got)
	}
	got := expiryFromTtl(now, 90*time.Second)
	if !got.Valid || got.Int64 != now.Unix()+90 {
		t.Errorf("Expected expiry 90s from now, got %v", got)
	}
}

func TestBlobRowExpired(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	row := blobRow{}
	if row.expired(now) {
		t.Error("Expected row without expiry to never expire")
	}

	row = blobRow{ExpireTimestamp: expiryFromTtl(now, time.Minute)}
	if row.expired(now) {
		t.Error("Expected row to still be live before its expiry")
	}
	if !row.expired(now.Add(2 * time.Minute)) {
		t.Error("Expected row to be expired past its timestamp")
	}
}

func TestCacheKeysDoNotCollide(t *testing.T) {
	keys := []string{
		storeCacheKey("a"),
		bucketCacheKey("a", ""),
		bucketCacheKey("", "a"),
		objectCacheKey("a", "b", "c"),
		objectCacheKey("a", "b\x00c", ""),
	}
	seen := map[string]bool{}
	for _, k := range keys {
		if seen[k] {
			t.Errorf("Cache key collision on %q", k)
		}
		seen[k] = true
	}
}
