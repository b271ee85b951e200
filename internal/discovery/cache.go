package discovery

import (
	"math"
	"math/rand"
	"os"
	"sort"
	"sync"
	"time"
)

// entry is a cached directory listing: empty Names with Listed=false
// means "never populated"; Listed=true with a nil/empty Names means a
// confirmed-empty directory.
type entry struct {
	names      []string
	listed     bool
	expiresAt  time.Time
	bucket     int
}

// node is a single level of the raw-path-bytes prefix trie.
type node struct {
	children map[byte]*node
	entry    *entry
}

// DirCache is the process-wide jittered directory-listing cache described
// in spec §4.4: a prefix trie keyed by raw path bytes, with TTL plus
// rotating-bucket invalidation so that repeated polls don't pay for a
// fresh read_dir on every unchanged directory, while still bounding
// staleness to roughly maxLifetime.
type DirCache struct {
	mu   sync.Mutex
	root *node

	maxLifetime time.Duration
	buckets     int
	cycle       int
	current     int
	rng         *rand.Rand

	disabled bool
}

// NewDirCache sizes the bucket count so that maxLifetime /
// expectedPollInterval ≈ 4*buckets, per spec §4.3's cache-entry lifecycle
// note. A non-positive expectedPollInterval yields a single bucket; rotation
// still runs over it, so once Advance has been called every entry sits in
// the current bucket and every Lookup misses. Pure TTL expiry applies only
// before the first Advance.
func NewDirCache(maxLifetime, expectedPollInterval time.Duration) *DirCache {
	buckets := 1
	if expectedPollInterval > 0 {
		buckets = int(math.Round(float64(maxLifetime) / float64(expectedPollInterval) / 4))
		if buckets < 1 {
			buckets = 1
		}
	}
	return &DirCache{
		root:        &node{},
		maxLifetime: maxLifetime,
		buckets:     buckets,
		current:     -1, // no bucket is invalidated until the first Advance
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Disable turns the cache into a pass-through: every lookup is reported
// stale. Tests and the "no caching" configuration use this.
func (c *DirCache) Disable() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disabled = true
}

// Advance rotates the current invalidation bucket, called once per poll
// tick. The draw is biased toward the earlier part of the cycle so that
// misses from different directories don't all land on the same tick.
func (c *DirCache) Advance() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cycle = (c.cycle + 1) % (4 * c.buckets)
	spread := 2*c.buckets - c.cycle
	if spread < 0 {
		spread = -spread
	}
	width := c.buckets
	if spread > width {
		width = spread
	}
	c.current = c.rng.Intn(width) % c.buckets
}

// Lookup returns the cached listing for path if it is fresh, or ok=false
// if the caller must perform a real read_dir and call Store.
func (c *DirCache) Lookup(path string) (names []string, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disabled {
		return nil, false
	}
	e := c.find(path)
	if e == nil || !e.listed {
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		return nil, false
	}
	if e.bucket == c.current {
		return nil, false
	}
	return e.names, true
}

// Store records a fresh listing for path.
func (c *DirCache) Store(path string, names []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.ensure(path)
	e.names = names
	e.listed = true
	e.expiresAt = time.Now().Add(c.maxLifetime)
	e.bucket = c.rng.Intn(c.buckets)
}

func (c *DirCache) find(path string) *entry {
	n := c.root
	for i := 0; i < len(path); i++ {
		child, ok := n.children[path[i]]
		if !ok {
			return nil
		}
		n = child
	}
	return n.entry
}

func (c *DirCache) ensure(path string) *entry {
	n := c.root
	for i := 0; i < len(path); i++ {
		if n.children == nil {
			n.children = make(map[byte]*node)
		}
		b := path[i]
		child, ok := n.children[b]
		if !ok {
			child = &node{}
			n.children[b] = child
		}
		n = child
	}
	if n.entry == nil {
		n.entry = &entry{}
	}
	return n.entry
}

// readDirCached returns the (possibly cached) sorted child names of dir.
// A real read_dir failure is reported at WARN and treated as an empty
// listing so traversal continues (spec §4.4 Failure clause).
func readDirCached(cache *DirCache, dir string, warn func(dir string, err error)) []string {
	if cache != nil {
		if names, ok := cache.Lookup(dir); ok {
			return names
		}
	}

	f, err := os.Open(dir)
	if err != nil {
		if warn != nil {
			warn(dir, err)
		}
		if cache != nil {
			cache.Store(dir, nil)
		}
		return nil
	}
	defer f.Close()

	names, err := f.Readdirnames(-1)
	if err != nil {
		if warn != nil {
			warn(dir, err)
		}
		names = nil
	}
	// Deterministic order: directory entry order is platform-defined:
	// sort so repeated polls visit children the same way.
	sort.Strings(names)

	if cache != nil {
		cache.Store(dir, names)
	}
	return names
}
