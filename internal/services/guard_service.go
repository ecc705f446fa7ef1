package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/llamino/UrlShortener/internal/cache"
	customerrors "github.com/llamino/UrlShortener/internal/errors"
	"github.com/llamino/UrlShortener/internal/repository"
)

// AbuseGuard decides on every redirect whether the client IP may be sent to a
// destination. It checks two cache keys first (global block, then per-URL
// block) and only falls back to the durable block list when both miss.
//
// Only positive ("is blocked") verdicts are cached: unblock decisions are
// cheap to re-check and block lists are small relative to traffic, so caching
// misses would grow the cache without bound and mask freshly added blocks.
type AbuseGuard struct {
	cache      cache.Cache
	blockRepo  repository.BlockRepository
	verdictTTL time.Duration
}

// NewAbuseGuard creates an AbuseGuard caching positive verdicts for verdictTTL.
func NewAbuseGuard(c cache.Cache, blockRepo repository.BlockRepository, verdictTTL time.Duration) *AbuseGuard {
	return &AbuseGuard{
		cache:      c,
		blockRepo:  blockRepo,
		verdictTTL: verdictTTL,
	}
}

// IsBlocked reports whether ip is blocked from being redirected to
// originalURL, either globally or for that specific destination.
//
// Cache failures are treated as misses: a flaky cache degrades to a database
// lookup, never to letting the check be skipped or to failing the redirect.
func (g *AbuseGuard) IsBlocked(ctx context.Context, ip, originalURL string) (bool, error) {
	globalKey := cache.BlockedIPAllKeyPrefix + ip
	if g.cachedVerdict(ctx, globalKey) {
		return true, nil
	}

	linkKey := fmt.Sprintf("%s%s_%s", cache.BlockedIPLinkKeyPrefix, ip, originalURL)
	if g.cachedVerdict(ctx, linkKey) {
		return true, nil
	}

	// Both caches missed: consult the durable block list. An IP with an
	// active entry triggers a fetch-and-inspect of the entry's fields.
	entry, found, err := g.blockRepo.GetActiveBlock(ip)
	if err != nil {
		return false, fmt.Errorf("abuse guard lookup failed for %s: %w", ip, err)
	}
	if !found {
		return false, nil
	}

	if entry.IsBlockedForAllURLs {
		g.cacheVerdict(ctx, globalKey)
		return true, nil
	}

	if entry.BlocksURL(originalURL) {
		g.cacheVerdict(ctx, linkKey)
		return true, nil
	}

	return false, nil
}

// cachedVerdict reports whether a positive block verdict is cached at key.
func (g *AbuseGuard) cachedVerdict(ctx context.Context, key string) bool {
	val, err := g.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, customerrors.ErrCacheMiss) {
			log.Printf("WARNING: abuse guard cache read failed for %s: %v", key, err)
		}
		return false
	}
	return val != ""
}

// cacheVerdict stores a positive block verdict. Failure to cache only costs a
// repeated database lookup next time, so it is logged and ignored.
func (g *AbuseGuard) cacheVerdict(ctx context.Context, key string) {
	if err := g.cache.Set(ctx, key, "1", g.verdictTTL); err != nil {
		log.Printf("WARNING: abuse guard cache write failed for %s: %v", key, err)
	}
}
