package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llamino/UrlShortener/internal/cache"
	customerrors "github.com/llamino/UrlShortener/internal/errors"
	"github.com/llamino/UrlShortener/internal/models"
	"github.com/llamino/UrlShortener/internal/shortcode"
)

func newResolver(t *testing.T, env *testEnv, fastCache cache.Cache) (*ResolverService, *shortcode.Codec) {
	t.Helper()

	codec := shortcode.NewCodec("resolver-test-secret")
	guard := NewAbuseGuard(fastCache, env.blockRepo, 15*time.Minute)
	return NewResolverService(fastCache, codec, guard, 20*time.Minute), codec
}

func TestResolveDecodesOnCacheMiss(t *testing.T) {
	env := newTestEnv(t)
	fastCache := cache.NewMemoryCache()
	resolver, codec := newResolver(t, env, fastCache)
	ctx := context.Background()

	code := codec.Encode("https://example.com/a")

	destination, err := resolver.Resolve(ctx, code, "1.2.3.4")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/a", destination)

	// The resolution must now be cached for subsequent hits.
	cached, err := fastCache.Get(ctx, cache.ResolutionKeyPrefix+code)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/a", cached)
}

func TestResolveUsesCacheWithoutDecoding(t *testing.T) {
	env := newTestEnv(t)
	fastCache := cache.NewMemoryCache()
	resolver, _ := newResolver(t, env, fastCache)
	ctx := context.Background()

	// A cached entry is trusted even though "not-a-real-code" would never
	// pass signature verification: cache presence implies prior verification
	// or explicit construction by the warmer.
	key := cache.ResolutionKeyPrefix + "not-a-real-code"
	require.NoError(t, fastCache.Set(ctx, key, "https://example.com/warmed", time.Hour))

	destination, err := resolver.Resolve(ctx, "not-a-real-code", "1.2.3.4")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/warmed", destination)
}

func TestResolveRejectsForgedCode(t *testing.T) {
	env := newTestEnv(t)
	fastCache := cache.NewMemoryCache()
	resolver, codec := newResolver(t, env, fastCache)
	ctx := context.Background()

	// Well-formed base64url payload, wrong signature.
	forged := codec.Encode("https://example.com/a")
	forged = forged[:len(forged)-4] + "0000"

	_, err := resolver.Resolve(ctx, forged, "1.2.3.4")
	assert.ErrorIs(t, err, customerrors.ErrSignatureMismatch)

	// No cache write may happen for rejected codes.
	_, err = fastCache.Get(ctx, cache.ResolutionKeyPrefix+forged)
	assert.ErrorIs(t, err, customerrors.ErrCacheMiss)
}

func TestResolveRejectsTooShortCode(t *testing.T) {
	env := newTestEnv(t)
	fastCache := cache.NewMemoryCache()
	resolver, _ := newResolver(t, env, fastCache)

	_, err := resolver.Resolve(context.Background(), "ab", "1.2.3.4")
	assert.ErrorIs(t, err, customerrors.ErrInvalidFormat)
}

func TestResolveBlockedIP(t *testing.T) {
	env := newTestEnv(t)
	fastCache := cache.NewMemoryCache()
	resolver, codec := newResolver(t, env, fastCache)
	ctx := context.Background()

	env.seedBlock(t, models.BlockedIP{
		IPAddress:           "6.6.6.6",
		IsBlockedForAllURLs: true,
	})

	code := codec.Encode("https://example.com/a")

	_, err := resolver.Resolve(ctx, code, "6.6.6.6")
	assert.ErrorIs(t, err, customerrors.ErrBlocked)

	// Blocked resolutions are not cached.
	_, err = fastCache.Get(ctx, cache.ResolutionKeyPrefix+code)
	assert.ErrorIs(t, err, customerrors.ErrCacheMiss)

	// Another client resolves the same code normally.
	destination, err := resolver.Resolve(ctx, code, "1.2.3.4")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/a", destination)
}

func TestResolveBlockCheckedOnCacheHitToo(t *testing.T) {
	env := newTestEnv(t)
	fastCache := cache.NewMemoryCache()
	resolver, codec := newResolver(t, env, fastCache)
	ctx := context.Background()

	code := codec.Encode("https://example.com/a")

	// First resolve populates the cache.
	_, err := resolver.Resolve(ctx, code, "1.2.3.4")
	require.NoError(t, err)

	// Block the IP afterwards: the cached resolution must not bypass the guard.
	env.seedBlock(t, models.BlockedIP{
		IPAddress:           "1.2.3.4",
		IsBlockedForAllURLs: true,
	})

	_, err = resolver.Resolve(ctx, code, "1.2.3.4")
	assert.ErrorIs(t, err, customerrors.ErrBlocked)
}

func TestResolveExpiredCacheMatchesDecode(t *testing.T) {
	env := newTestEnv(t)
	fastCache := cache.NewMemoryCache()
	resolver, codec := newResolver(t, env, fastCache)
	ctx := context.Background()

	code := codec.Encode("https://example.com/consistent")

	first, err := resolver.Resolve(ctx, code, "1.2.3.4")
	require.NoError(t, err)

	// Drop the cache entry to simulate TTL expiry; an independent decode
	// must yield the same destination the expired entry held.
	require.NoError(t, fastCache.Del(ctx, cache.ResolutionKeyPrefix+code))

	second, err := resolver.Resolve(ctx, code, "1.2.3.4")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
