// page.go provides a Valkey-backed full-page HTML cache. When a public
// novel page is rendered, the resulting HTML is stored in Valkey so
// subsequent requests skip the DB query and template execution entirely.
// Dashboard writes invalidate the affected entries.
package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// pageKeyPrefix is the Valkey key prefix for cached pages.
	pageKeyPrefix = "page:"

	// DefaultPageTTL is how long a rendered page stays cached.
	DefaultPageTTL = 5 * time.Minute

	// homepageKey is the cache key for the novel listing homepage.
	homepageKey = "_homepage"
)

// PageCache manages full-page HTML caching in Valkey.
type PageCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewPageCache creates a new page cache backed by the given Valkey client.
func NewPageCache(client *redis.Client, ttl time.Duration) *PageCache {
	if ttl == 0 {
		ttl = DefaultPageTTL
	}
	return &PageCache{client: client, ttl: ttl}
}

// Get retrieves cached HTML for a page key. Returns false on miss.
func (pc *PageCache) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := pc.client.Get(ctx, pageKeyPrefix+key).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		slog.Warn("page cache get error", "key", key, "error", err)
		return nil, false
	}
	slog.Debug("page cache hit", "key", key)
	return val, true
}

// Set stores rendered HTML for a page key with the configured TTL.
func (pc *PageCache) Set(ctx context.Context, key string, html []byte) {
	if err := pc.client.Set(ctx, pageKeyPrefix+key, html, pc.ttl).Err(); err != nil {
		slog.Warn("page cache set error", "key", key, "error", err)
	}
}

// InvalidateNovel removes a cached novel page and the homepage, which lists
// it. Called after every dashboard write (create, update, delete).
func (pc *PageCache) InvalidateNovel(ctx context.Context, slug string) {
	if err := pc.client.Del(ctx, pageKeyPrefix+slug, pageKeyPrefix+homepageKey).Err(); err != nil {
		slog.Warn("page cache invalidate error", "slug", slug, "error", err)
	}
	slog.Debug("page cache invalidated", "slug", slug)
}

// HomepageKey returns the cache key for the homepage.
func HomepageKey() string {
	return homepageKey
}

// SlugKey returns the cache key for a novel slug.
func SlugKey(slug string) string {
	return slug
}
