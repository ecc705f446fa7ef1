package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/llamino/UrlShortener/internal/cache"
	"github.com/llamino/UrlShortener/internal/models"
	"github.com/llamino/UrlShortener/internal/repository"
	"github.com/llamino/UrlShortener/internal/services"
	"github.com/llamino/UrlShortener/internal/shortcode"
)

const testSecret = "api-test-secret"

type apiEnv struct {
	db           *gorm.DB
	router       *gin.Engine
	fastCache    *cache.MemoryCache
	codec        *shortcode.Codec
	linkRepo     repository.LinkRepository
	clickService *services.ClickService
}

// newAPIEnv wires the full HTTP surface against an in-memory database and
// cache, mirroring the run-server command. No click workers are started, so
// tests can observe whether an event was enqueued.
func newAPIEnv(t *testing.T, redirectsPerMinute int) *apiEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	// Every connection to :memory: is its own database; pin the pool to one
	// connection so all queries see the migrated schema.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.Campaign{}, &models.Link{}, &models.ClickLog{}, &models.BlockedIP{}))

	fastCache := cache.NewMemoryCache()
	linkRepo := repository.NewLinkRepository(db)
	clickRepo := repository.NewClickRepository(db)
	blockRepo := repository.NewBlockRepository(db)

	codec := shortcode.NewCodec(testSecret)
	linkService := services.NewLinkService(linkRepo, clickRepo, codec)
	guard := services.NewAbuseGuard(fastCache, blockRepo, 15*time.Minute)
	resolver := services.NewResolverService(fastCache, codec, guard, 20*time.Minute)
	clickService := services.NewClickService(clickRepo, fastCache, 100)

	router := gin.New()
	handlers := NewHandlers(linkService, resolver, clickService, "http://localhost:8080")
	SetupRoutes(router, handlers, RateLimitByIP(fastCache, redirectsPerMinute))

	return &apiEnv{
		db:           db,
		router:       router,
		fastCache:    fastCache,
		codec:        codec,
		linkRepo:     linkRepo,
		clickService: clickService,
	}
}

func (e *apiEnv) seedCampaign(t *testing.T, name string) *models.Campaign {
	t.Helper()

	campaign, err := e.linkRepo.GetOrCreateCampaign(name)
	require.NoError(t, err)
	return campaign
}

func (e *apiEnv) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func TestShortenStoresCanonicalURL(t *testing.T) {
	env := newAPIEnv(t, 1000)
	campaign := env.seedCampaign(t, "c1")

	body := fmt.Sprintf(`{"url":"https://example.com/a?x=1#frag","campaign_id":%d}`, campaign.ID)
	w := env.do(http.MethodPost, "/shorten", body)
	require.Equal(t, http.StatusCreated, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	code := resp["short_url"]
	require.NotEmpty(t, code)

	// Decoding the returned code yields the canonical URL, and the stored
	// link row holds the canonical form too.
	decoded, err := env.codec.Decode(code)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/a", decoded)

	link, err := env.linkRepo.GetLinkByShortCode(code)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/a", link.OriginalURL)
}

func TestShortenExistingPairReturnsFullURL(t *testing.T) {
	env := newAPIEnv(t, 1000)
	campaign := env.seedCampaign(t, "c1")

	body := fmt.Sprintf(`{"url":"https://example.com/a","campaign_id":%d}`, campaign.ID)
	first := env.do(http.MethodPost, "/shorten", body)
	require.Equal(t, http.StatusCreated, first.Code)

	var created map[string]string
	require.NoError(t, json.Unmarshal(first.Body.Bytes(), &created))

	second := env.do(http.MethodPost, "/shorten", body)
	require.Equal(t, http.StatusOK, second.Code)

	var existing map[string]string
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &existing))
	assert.Equal(t, "http://localhost:8080/"+created["short_url"], existing["short_url"])
}

func TestShortenValidation(t *testing.T) {
	env := newAPIEnv(t, 1000)
	campaign := env.seedCampaign(t, "c1")

	w := env.do(http.MethodPost, "/shorten", fmt.Sprintf(`{"campaign_id":%d}`, campaign.ID))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodPost, "/shorten", `{"url":"https://example.com/a"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodPost, "/shorten", fmt.Sprintf(`{"url":"not a url","campaign_id":%d}`, campaign.ID))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodPost, "/shorten", `{"url":"https://example.com/a","campaign_id":424242}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRedirectResolvesAndEnqueuesClick(t *testing.T) {
	env := newAPIEnv(t, 1000)

	code := env.codec.Encode("https://example.com/a")
	w := env.do(http.MethodGet, "/"+code, "")

	require.Equal(t, http.StatusMovedPermanently, w.Code)
	assert.Equal(t, "https://example.com/a", w.Header().Get("Location"))

	// One click event is waiting for the (not started) workers.
	assert.Equal(t, 1, len(env.clickService.Events()))
}

func TestRedirectForgedCodeIsRejected(t *testing.T) {
	env := newAPIEnv(t, 1000)

	// Valid base64url payload, wrong signature.
	forged := env.codec.Encode("https://example.com/a")
	forged = forged[:len(forged)-4] + "0000"

	w := env.do(http.MethodGet, "/"+forged, "")
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["error"])

	// No cache write and no click event for rejected codes.
	_, err := env.fastCache.Get(context.Background(), cache.ResolutionKeyPrefix+forged)
	assert.Error(t, err)
	assert.Equal(t, 0, len(env.clickService.Events()))
}

func TestRedirectPerURLBlock(t *testing.T) {
	env := newAPIEnv(t, 1000)

	require.NoError(t, env.db.Create(&models.BlockedIP{
		UUID:         uuid.New(),
		IPAddress:    "192.0.2.1",
		BlockedLinks: `["https://example.com/x"]`,
		IsActive:     true,
	}).Error)

	codeX := env.codec.Encode("https://example.com/x")
	codeY := env.codec.Encode("https://example.com/y")

	reqX := httptest.NewRequest(http.MethodGet, "/"+codeX, nil)
	reqX.Header.Set("X-Forwarded-For", "192.0.2.1")
	wX := httptest.NewRecorder()
	env.router.ServeHTTP(wX, reqX)
	assert.Equal(t, http.StatusForbidden, wX.Code)
	assert.JSONEq(t, `{"status":"blocked"}`, wX.Body.String())

	// The same IP is free to reach any other destination.
	reqY := httptest.NewRequest(http.MethodGet, "/"+codeY, nil)
	reqY.Header.Set("X-Forwarded-For", "192.0.2.1")
	wY := httptest.NewRecorder()
	env.router.ServeHTTP(wY, reqY)
	assert.Equal(t, http.StatusMovedPermanently, wY.Code)
}

func TestRedirectRateLimit(t *testing.T) {
	env := newAPIEnv(t, 2)

	code := env.codec.Encode("https://example.com/a")

	for i := 0; i < 2; i++ {
		w := env.do(http.MethodGet, "/"+code, "")
		require.Equal(t, http.StatusMovedPermanently, w.Code, "request %d", i+1)
	}

	w := env.do(http.MethodGet, "/"+code, "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestClickReport(t *testing.T) {
	env := newAPIEnv(t, 1000)
	campaign := env.seedCampaign(t, "c1")

	body := fmt.Sprintf(`{"url":"https://example.com/a","campaign_id":%d}`, campaign.ID)
	created := env.do(http.MethodPost, "/shorten", body)
	require.Equal(t, http.StatusCreated, created.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(created.Body.Bytes(), &resp))
	code := resp["short_url"]

	// Record one click through the pipeline's write path.
	clickRepo := repository.NewClickRepository(env.db)
	clickService := services.NewClickService(clickRepo, env.fastCache, 10)
	clickService.Record(context.Background(), models.ClickEvent{
		OriginalURL: "https://example.com/a",
		IPAddress:   "1.2.3.4",
		Referrer:    "https://referrer.example.com",
		UserAgent:   "test-agent",
		RequestData: `{"method":"GET"}`,
		Timestamp:   time.Now(),
	})

	w := env.do(http.MethodGet, "/report/"+code, "")
	require.Equal(t, http.StatusOK, w.Code)

	var report struct {
		TotalClicks uint `json:"total_clicks"`
		Clicks      []struct {
			IPAddress string `json:"ip_address"`
			Referrer  string `json:"referrer"`
			UserAgent string `json:"user_agent"`
		} `json:"clicks"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))

	// total_clicks is the reconciled aggregate (still zero here); the click
	// log itself is listed immediately.
	assert.Equal(t, uint(0), report.TotalClicks)
	require.Len(t, report.Clicks, 1)
	assert.Equal(t, "1.2.3.4", report.Clicks[0].IPAddress)
	assert.Equal(t, "test-agent", report.Clicks[0].UserAgent)
}

func TestClickReportUnknownCode(t *testing.T) {
	env := newAPIEnv(t, 1000)

	w := env.do(http.MethodGet, "/report/doesnotexist", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealthCheck(t *testing.T) {
	env := newAPIEnv(t, 1000)

	w := env.do(http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}
