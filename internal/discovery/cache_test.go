package discovery

import (
	"testing"
	"time"
)

func TestDirCacheStoreThenLookupHits(t *testing.T) {
	c := NewDirCache(time.Minute, 5*time.Second)
	c.Store("/tmp/repo", []string{"a", "b"})

	names, ok := c.Lookup("/tmp/repo")
	if !ok {
		t.Fatal("expected a cache hit immediately after Store")
	}
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Errorf("unexpected names: %v", names)
	}
}

func TestDirCacheMissOnUnknownPath(t *testing.T) {
	c := NewDirCache(time.Minute, 5*time.Second)
	if _, ok := c.Lookup("/never/stored"); ok {
		t.Error("expected a miss for a path never stored")
	}
}

func TestDirCacheExpiresByTTL(t *testing.T) {
	c := NewDirCache(time.Millisecond, 5*time.Second)
	c.Store("/tmp/repo", []string{"a"})
	time.Sleep(5 * time.Millisecond)

	if _, ok := c.Lookup("/tmp/repo"); ok {
		t.Error("expected the entry to have expired")
	}
}

func TestDirCacheDisabledAlwaysMisses(t *testing.T) {
	c := NewDirCache(time.Minute, 5*time.Second)
	c.Store("/tmp/repo", []string{"a"})
	c.Disable()

	if _, ok := c.Lookup("/tmp/repo"); ok {
		t.Error("expected a disabled cache to always miss")
	}
}
