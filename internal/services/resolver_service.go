package services

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/llamino/UrlShortener/internal/cache"
	customerrors "github.com/llamino/UrlShortener/internal/errors"
	"github.com/llamino/UrlShortener/internal/shortcode"
)

// ResolverService orchestrates the redirect path as a tiered lookup:
//
//	tier 1: the fast cache (possibly stale, bounded by TTL)
//	tier 2: local decode-and-verify of the signed code (always consistent
//	        for signature-valid codes, needs no storage at all)
//
// A cache hit skips signature verification: presence in the cache already
// implies prior verification or explicit construction by the warmer. The
// durable store is never touched on the happy path; only the abuse guard may
// reach it on a cache miss.
type ResolverService struct {
	cache         cache.Cache
	codec         *shortcode.Codec
	guard         *AbuseGuard
	resolutionTTL time.Duration
}

// NewResolverService creates a ResolverService caching resolutions for
// resolutionTTL (the on-demand lifetime; warmed entries live longer).
func NewResolverService(c cache.Cache, codec *shortcode.Codec, guard *AbuseGuard, resolutionTTL time.Duration) *ResolverService {
	return &ResolverService{
		cache:         c,
		codec:         codec,
		guard:         guard,
		resolutionTTL: resolutionTTL,
	}
}

// Resolve turns a short code into its destination URL for the client at ip.
//
// Error semantics:
//   - ErrInvalidFormat / ErrSignatureMismatch / ErrDecodeFailed: malforged or
//     forged code, surfaced as a client error; nothing is cached, no click is
//     recorded.
//   - ErrBlocked: the abuse guard rejected the (ip, destination) pair;
//     nothing is cached, no click is recorded.
//
// Any other error is an infrastructure failure on the block-list lookup.
func (r *ResolverService) Resolve(ctx context.Context, shortCode, ip string) (string, error) {
	cacheKey := cache.ResolutionKeyPrefix + shortCode

	destination, err := r.cache.Get(ctx, cacheKey)
	if err == nil {
		// Cache hit. The verdict check still runs on every redirect: block
		// entries must take effect even for warmed/popular codes.
		blocked, err := r.guard.IsBlocked(ctx, ip, destination)
		if err != nil {
			return "", err
		}
		if blocked {
			return "", customerrors.ErrBlocked
		}
		return destination, nil
	}
	if !errors.Is(err, customerrors.ErrCacheMiss) {
		// Cache infrastructure failure: fall through to decode-based
		// resolution. The redirect must survive a dead cache.
		log.Printf("WARNING: resolution cache read failed for %s: %v", shortCode, err)
	}

	// Tier 2: decode and verify locally. Client errors propagate as-is.
	destination, err = r.codec.Decode(shortCode)
	if err != nil {
		return "", err
	}

	blocked, err := r.guard.IsBlocked(ctx, ip, destination)
	if err != nil {
		return "", err
	}
	if blocked {
		return "", customerrors.ErrBlocked
	}

	// Populate the cache for subsequent hits. A write failure only costs
	// another decode next time.
	if err := r.cache.Set(ctx, cacheKey, destination, r.resolutionTTL); err != nil {
		log.Printf("WARNING: resolution cache write failed for %s: %v", shortCode, err)
	}

	return destination, nil
}
