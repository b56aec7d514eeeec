package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"bhsi/pkg/models"
)

// l1Entry pairs a cached SourceResult with the time it was cached, so TTL
// can be checked on read without a second data structure.
type l1Entry struct {
	result   models.SourceResult
	cachedAt time.Time
}

// L2 is the optional distributed KV layer (go-redis/v9-backed in
// production). Narrowed to the two operations CacheTier needs, so the L1
// layer can be tested without a live Redis.
type L2 interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
}

// L3 is the warehouse-backed lookup layer: recent events for the same
// company, reconstituted into a SourceResult shape.
type L3 interface {
	RecentEvents(ctx context.Context, company string, maxAge time.Duration) (models.SourceResult, bool, error)
}

// Tier composes the three cache layers of SPEC_FULL.md §4.7. L2 and L3 are
// optional: a nil L2/L3 simply skips that layer on read and write.
type Tier struct {
	mu       sync.Mutex
	l1       *lru.Cache[string, l1Entry]
	l1TTL    time.Duration
	l2       L2
	l2TTL    time.Duration
	l3       L3
	cacheAge time.Duration
}

// Config controls CacheTier's sizing and TTLs; zero values fall back to the
// defaults named in SPEC_FULL.md §4.7.
type Config struct {
	L1Size   int
	L1TTL    time.Duration
	L2TTL    time.Duration
	CacheAge time.Duration
}

func (c Config) withDefaults() Config {
	if c.L1Size <= 0 {
		c.L1Size = 1000
	}
	if c.L1TTL <= 0 {
		c.L1TTL = 5 * time.Minute
	}
	if c.L2TTL <= 0 {
		c.L2TTL = time.Hour
	}
	if c.CacheAge <= 0 {
		c.CacheAge = 24 * time.Hour
	}
	return c
}

// NewTier constructs a CacheTier. l2 and l3 may be nil to disable those
// layers.
func NewTier(cfg Config, l2 L2, l3 L3) (*Tier, error) {
	cfg = cfg.withDefaults()
	l1, err := lru.New[string, l1Entry](cfg.L1Size)
	if err != nil {
		return nil, fmt.Errorf("cache: constructing L1: %w", err)
	}
	return &Tier{l1: l1, l1TTL: cfg.L1TTL, l2: l2, l2TTL: cfg.L2TTL, l3: l3, cacheAge: cfg.CacheAge}, nil
}

// Get consults L1, then L2, then L3 in order, per SPEC_FULL.md §4.7. A hit
// at L2 or L3 is written back up into the layers above it. Any layer
// exception is logged and treated as a miss at that layer — cache failures
// MUST NOT fail the request.
func (t *Tier) Get(ctx context.Context, key, company string) (models.SourceResult, bool) {
	if res, ok := t.getL1(key); ok {
		return res, true
	}

	if t.l2 != nil {
		if res, ok := t.getL2(ctx, key); ok {
			t.setL1(key, res)
			return res, true
		}
	}

	if t.l3 != nil {
		res, ok, err := t.l3.RecentEvents(ctx, company, t.cacheAge)
		if err != nil {
			fmt.Printf("[CACHE] L3 lookup failed, proceeding as miss: %v\n", err)
		} else if ok {
			t.setL1(key, res)
			if t.l2 != nil {
				t.setL2(ctx, key, res)
			}
			return res, true
		}
	}

	return models.SourceResult{}, false
}

// Set populates every configured layer with result under key.
func (t *Tier) Set(ctx context.Context, key string, result models.SourceResult) {
	t.setL1(key, result)
	if t.l2 != nil {
		t.setL2(ctx, key, result)
	}
}

func (t *Tier) getL1(key string) (models.SourceResult, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.l1.Get(key)
	if !ok {
		return models.SourceResult{}, false
	}
	if time.Since(entry.cachedAt) > t.l1TTL {
		t.l1.Remove(key)
		return models.SourceResult{}, false
	}
	return entry.result, true
}

func (t *Tier) setL1(key string, result models.SourceResult) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.l1.Add(key, l1Entry{result: result, cachedAt: time.Now()})
}

func (t *Tier) getL2(ctx context.Context, key string) (models.SourceResult, bool) {
	raw, ok, err := t.l2.Get(ctx, key)
	if err != nil {
		fmt.Printf("[CACHE] L2 lookup failed, proceeding as miss: %v\n", err)
		return models.SourceResult{}, false
	}
	if !ok {
		return models.SourceResult{}, false
	}
	var res models.SourceResult
	if err := json.Unmarshal([]byte(raw), &res); err != nil {
		fmt.Printf("[CACHE] L2 entry corrupt, proceeding as miss: %v\n", err)
		return models.SourceResult{}, false
	}
	return res, true
}

func (t *Tier) setL2(ctx context.Context, key string, result models.SourceResult) {
	raw, err := json.Marshal(result)
	if err != nil {
		fmt.Printf("[CACHE] L2 encode failed, skipping write: %v\n", err)
		return
	}
	if err := t.l2.Set(ctx, key, string(raw), t.l2TTL); err != nil {
		fmt.Printf("[CACHE] L2 write failed: %v\n", err)
	}
}
