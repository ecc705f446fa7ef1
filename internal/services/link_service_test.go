package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	customerrors "github.com/llamino/UrlShortener/internal/errors"
	"github.com/llamino/UrlShortener/internal/shortcode"
)

func newLinkService(env *testEnv) (*LinkService, *shortcode.Codec) {
	codec := shortcode.NewCodec("link-test-secret")
	return NewLinkService(env.linkRepo, env.clickRepo, codec), codec
}

func TestShortenURLCanonicalizesBeforePersisting(t *testing.T) {
	env := newTestEnv(t)
	service, codec := newLinkService(env)
	campaign := env.seedCampaign(t, "c1")

	link, created, err := service.ShortenURL("https://example.com/a?x=1#frag", campaign.ID)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "https://example.com/a", link.OriginalURL)

	// Decoding the issued code yields the canonical URL.
	decoded, err := codec.Decode(link.ShortCode)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/a", decoded)
}

func TestShortenURLDeduplicatesOnCanonicalIdentity(t *testing.T) {
	env := newTestEnv(t)
	service, _ := newLinkService(env)
	campaign := env.seedCampaign(t, "c1")

	first, created, err := service.ShortenURL("https://example.com/a?x=1", campaign.ID)
	require.NoError(t, err)
	require.True(t, created)

	// Different query string, same canonical identity: the existing link
	// comes back and nothing new is created.
	second, created, err := service.ShortenURL("https://example.com/a?utm=promo", campaign.ID)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.ShortCode, second.ShortCode)
}

func TestShortenURLRejectsInvalidInput(t *testing.T) {
	env := newTestEnv(t)
	service, _ := newLinkService(env)
	campaign := env.seedCampaign(t, "c1")

	_, _, err := service.ShortenURL("not a url", campaign.ID)
	assert.ErrorIs(t, err, customerrors.ErrInvalidURL)

	_, _, err = service.ShortenURL("", campaign.ID)
	assert.ErrorIs(t, err, customerrors.ErrInvalidURL)

	_, _, err = service.ShortenURL("https://example.com/a", campaign.ID+999)
	assert.ErrorIs(t, err, customerrors.ErrCampaignNotFound)
}

func TestShortenURLSameURLOtherCampaignConflicts(t *testing.T) {
	env := newTestEnv(t)
	service, _ := newLinkService(env)
	campaignA := env.seedCampaign(t, "a")
	campaignB := env.seedCampaign(t, "b")

	_, _, err := service.ShortenURL("https://example.com/a", campaignA.ID)
	require.NoError(t, err)

	// The codec is deterministic over the canonical URL, so the same URL in
	// a second campaign would need the already-assigned code. The uniqueness
	// invariant wins.
	_, _, err = service.ShortenURL("https://example.com/a", campaignB.ID)
	assert.ErrorIs(t, err, customerrors.ErrShortCodeGenerationFailed)
}

func TestGetLinkStats(t *testing.T) {
	env := newTestEnv(t)
	service, _ := newLinkService(env)
	campaign := env.seedCampaign(t, "c1")

	link, _, err := service.ShortenURL("https://example.com/a", campaign.ID)
	require.NoError(t, err)

	got, clicks, err := service.GetLinkStats(link.ShortCode)
	require.NoError(t, err)
	assert.Equal(t, link.ID, got.ID)
	assert.Empty(t, clicks)

	_, _, err = service.GetLinkStats("nonexistent-code")
	assert.ErrorIs(t, err, customerrors.ErrLinkNotFound)
}
