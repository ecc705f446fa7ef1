package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	customerrors "github.com/llamino/UrlShortener/internal/errors"
	"github.com/llamino/UrlShortener/internal/models"
	"github.com/llamino/UrlShortener/internal/services"
)

// Handlers bundles the services the HTTP layer depends on along with the
// base URL used when rendering full short URLs.
type Handlers struct {
	linkService  *services.LinkService
	resolver     *services.ResolverService
	clickService *services.ClickService
	baseURL      string
}

// NewHandlers creates the handler set for the HTTP surface.
func NewHandlers(linkService *services.LinkService, resolver *services.ResolverService, clickService *services.ClickService, baseURL string) *Handlers {
	return &Handlers{
		linkService:  linkService,
		resolver:     resolver,
		clickService: clickService,
		baseURL:      baseURL,
	}
}

// SetupRoutes configures all Gin API routes and injects necessary dependencies.
// The redirect route carries the per-IP rate limiter; the shorten and report
// routes are left unthrottled (they are low-volume administrative surfaces).
func SetupRoutes(router *gin.Engine, h *Handlers, redirectLimiter gin.HandlerFunc) {
	// Health Check Route - used for monitoring service availability
	router.GET("/health", HealthCheckHandler)

	// Shorten and report endpoints
	router.POST("/shorten", h.ShortenURLHandler())
	router.GET("/report/:shortCode", h.ClickReportHandler())

	// Redirection Route - handles the actual URL redirection at root level.
	// This is the hot path; everything else exists to keep it fast.
	router.GET("/:shortCode", redirectLimiter, h.RedirectHandler())
}

// HealthCheckHandler handles the /health route to verify service status.
func HealthCheckHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ShortenRequest represents the JSON request body for shortening a URL.
type ShortenRequest struct {
	URL        string `json:"url"`         // The original URL to shorten
	CampaignID uint   `json:"campaign_id"` // The campaign this link belongs to
}

// ShortenURLHandler handles the creation of a shortened URL within a campaign.
//
// Responses:
//   - 201 {"short_url": <code>} when a new link was created
//   - 200 {"short_url": <base_url>/<code>} when the canonical (url, campaign)
//     pair already had a code
//   - 400 for a missing/invalid URL or unknown campaign
func (h *Handlers) ShortenURLHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ShortenRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
			return
		}
		if req.URL == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "URL is required"})
			return
		}
		if req.CampaignID == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Campaign ID is required"})
			return
		}

		link, created, err := h.linkService.ShortenURL(req.URL, req.CampaignID)
		if err != nil {
			switch {
			case errors.Is(err, customerrors.ErrInvalidURL):
				c.JSON(http.StatusBadRequest, gin.H{"is_valid_url": false})
			case errors.Is(err, customerrors.ErrCampaignNotFound):
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid campaign ID"})
			case errors.Is(err, customerrors.ErrShortCodeGenerationFailed):
				c.JSON(http.StatusBadRequest, gin.H{"error": "Unable to assign a unique short code for this URL"})
			default:
				log.Printf("Error creating link: %v", err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create short link"})
			}
			return
		}

		if !created {
			// Existing link: return the full short URL, matching what the
			// caller was handed when the link was first created.
			c.JSON(http.StatusOK, gin.H{"short_url": fmt.Sprintf("%s/%s", h.baseURL, link.ShortCode)})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"short_url": link.ShortCode})
	}
}

// RedirectHandler resolves a short code and issues a permanent redirect.
//
// The resolution pipeline (cache -> decode-and-verify -> abuse guard) runs
// synchronously; click recording is enqueued fire-and-forget so the response
// never waits on the durable store.
//
// Responses:
//   - 301 Location: <destination> on success
//   - 400 {"error": <message>} for malformed or forged codes
//   - 403 {"status": "blocked"} for abuse-guard rejections
func (h *Handlers) RedirectHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		shortCode := c.Param("shortCode")
		ip := c.ClientIP()

		destination, err := h.resolver.Resolve(c.Request.Context(), shortCode, ip)
		if err != nil {
			switch {
			case errors.Is(err, customerrors.ErrBlocked):
				c.JSON(http.StatusForbidden, gin.H{"status": "blocked"})
			case errors.Is(err, customerrors.ErrInvalidFormat),
				errors.Is(err, customerrors.ErrSignatureMismatch),
				errors.Is(err, customerrors.ErrDecodeFailed):
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			default:
				log.Printf("Error resolving %s: %v", shortCode, err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			}
			return
		}

		// Queue the click event without blocking the redirect. A full buffer
		// drops the event; analytics never delays the user.
		h.clickService.Enqueue(models.ClickEvent{
			OriginalURL: destination,
			IPAddress:   ip,
			Referrer:    c.GetHeader("Referer"),
			UserAgent:   c.GetHeader("User-Agent"),
			RequestData: requestSnapshot(c),
			Timestamp:   time.Now(),
		})

		c.Redirect(http.StatusMovedPermanently, destination)
	}
}

// ClickReportHandler returns click statistics for a short code: the durable
// aggregate count plus the individual click logs.
//
// Authentication and link-ownership checks are handled by the surrounding
// deployment (gateway), not by this service.
func (h *Handlers) ClickReportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		shortCode := c.Param("shortCode")

		link, clicks, err := h.linkService.GetLinkStats(shortCode)
		if err != nil {
			if errors.Is(err, customerrors.ErrLinkNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Short URL not found"})
				return
			}
			log.Printf("Error retrieving report for %s: %v", shortCode, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}

		clickData := make([]gin.H, 0, len(clicks))
		for _, click := range clicks {
			clickData = append(clickData, gin.H{
				"ip_address":   click.IPAddress,
				"referrer":     click.Referrer,
				"created_at":   click.CreatedAt,
				"user_agent":   click.UserAgent,
				"request_data": click.RequestData,
			})
		}

		c.JSON(http.StatusOK, gin.H{
			"total_clicks": link.ClickCount,
			"clicks":       clickData,
		})
	}
}

// requestSnapshot builds the filtered JSON snapshot of the inbound request
// stored with each click log: method, path, query parameters, and the headers
// useful for analytics. Cookies and auth material are never included.
func requestSnapshot(c *gin.Context) string {
	snapshot := map[string]any{
		"method":       c.Request.Method,
		"path":         c.Request.URL.Path,
		"query_params": c.Request.URL.Query(),
		"remote_addr":  c.ClientIP(),
		"host":         c.Request.Host,
		"headers": map[string]string{
			"referer":         c.GetHeader("Referer"),
			"user_agent":      c.GetHeader("User-Agent"),
			"accept_language": c.GetHeader("Accept-Language"),
		},
	}

	data, err := json.Marshal(snapshot)
	if err != nil {
		return "{}"
	}
	return string(data)
}
