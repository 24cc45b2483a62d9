package record

import (
	"context"
	"sync"
	"time"

	"mentorlog/internal/domain/identity"
	domain "mentorlog/internal/domain/record"
)

// DefaultCacheTTL bounds how long a cached row set may serve reads. The
// cache only reduces store round-trips; it is never authoritative, and every
// append must invalidate before the next read.
const DefaultCacheTTL = 30 * time.Second

// CachedStore wraps a Store with a short-TTL read cache keyed by the
// normalized (mentor, student) pair. Only ListByKeys is cached: it is the
// query on the hot sequencing/hole path. Roster and the mentor-wide lists go
// straight through.
type CachedStore struct {
	inner Store
	ttl   time.Duration

	mu      sync.RWMutex
	entries map[cacheKey]cacheEntry
}

type cacheKey struct {
	mentor  identity.Key
	student identity.Key
}

type cacheEntry struct {
	records []domain.SessionRecord
	fetched time.Time
}

// NewCachedStore wraps inner with a read cache. A non-positive ttl falls
// back to DefaultCacheTTL.
func NewCachedStore(inner Store, ttl time.Duration) *CachedStore {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedStore{
		inner:   inner,
		ttl:     ttl,
		entries: map[cacheKey]cacheEntry{},
	}
}

// Append writes through and drops the cached rows for the pair so the next
// read re-derives from fresh data.
// POST: On success the pair's cache entry is gone; on failure the cache is
// untouched (a failed store call must not partially update any cached view)
func (c *CachedStore) Append(ctx context.Context, rec domain.SessionRecord) error {
	if err := c.inner.Append(ctx, rec); err != nil {
		return err
	}
	c.Invalidate(rec.MentorKey, rec.StudentKey)
	return nil
}

// ListByKeys serves from cache when fresh, otherwise reads through.
func (c *CachedStore) ListByKeys(ctx context.Context, mentorKey, studentKey identity.Key) ([]domain.SessionRecord, error) {
	k := cacheKey{mentorKey, studentKey}

	c.mu.RLock()
	e, ok := c.entries[k]
	c.mu.RUnlock()
	if ok && time.Since(e.fetched) < c.ttl {
		return cloneRecords(e.records), nil
	}

	records, err := c.inner.ListByKeys(ctx, mentorKey, studentKey)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[k] = cacheEntry{records: cloneRecords(records), fetched: time.Now()}
	c.mu.Unlock()
	return records, nil
}

// ListByMentorKey is uncached.
func (c *CachedStore) ListByMentorKey(ctx context.Context, mentorKey identity.Key) ([]domain.SessionRecord, error) {
	return c.inner.ListByMentorKey(ctx, mentorKey)
}

// ListAll is uncached.
func (c *CachedStore) ListAll(ctx context.Context) ([]domain.SessionRecord, error) {
	return c.inner.ListAll(ctx)
}

// Roster is uncached.
func (c *CachedStore) Roster(ctx context.Context, programLength int) ([]RosterEntry, error) {
	return c.inner.Roster(ctx, programLength)
}

// Invalidate drops the cached rows for one (mentor, student) pair.
func (c *CachedStore) Invalidate(mentorKey, studentKey identity.Key) {
	c.mu.Lock()
	delete(c.entries, cacheKey{mentorKey, studentKey})
	c.mu.Unlock()
}

// InvalidateAll clears the whole cache.
func (c *CachedStore) InvalidateAll() {
	c.mu.Lock()
	c.entries = map[cacheKey]cacheEntry{}
	c.mu.Unlock()
}

// cloneRecords copies the slice so callers cannot mutate cached state.
func cloneRecords(in []domain.SessionRecord) []domain.SessionRecord {
	if in == nil {
		return nil
	}
	out := make([]domain.SessionRecord, len(in))
	copy(out, in)
	return out
}

// Compile-time checks.
var (
	_ Store       = (*CachedStore)(nil)
	_ Invalidator = (*CachedStore)(nil)
)
