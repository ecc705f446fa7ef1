package services

import (
	"context"
	"log"
	"time"

	"github.com/llamino/UrlShortener/internal/cache"
	customerrors "github.com/llamino/UrlShortener/internal/errors"
	"github.com/llamino/UrlShortener/internal/models"
	"github.com/llamino/UrlShortener/internal/repository"
	"github.com/llamino/UrlShortener/internal/shortcode"
)

// maxUserAgentLength bounds the stored user agent to the click log column size.
const maxUserAgentLength = 255

// ClickService implements the two write paths of the click pipeline:
//
//   - Event log: every resolved, non-blocked redirect produces a ClickLog row
//     with a filtered snapshot of the request.
//   - Counter accumulation: the same click increments a field of the cache's
//     accumulator hash, keyed by the compressed canonical URL. The periodic
//     reconciliation job later folds those increments into the links table.
//
// Both paths are best-effort: failures are logged and dropped, never
// propagated to the redirect.
type ClickService struct {
	clickRepo repository.ClickRepository
	cache     cache.Cache
	events    chan models.ClickEvent
}

// NewClickService creates a ClickService with an event buffer of the given
// size. The buffer absorbs click bursts; when it is full, events are dropped
// rather than delaying redirects.
func NewClickService(clickRepo repository.ClickRepository, c cache.Cache, bufferSize int) *ClickService {
	return &ClickService{
		clickRepo: clickRepo,
		cache:     c,
		events:    make(chan models.ClickEvent, bufferSize),
	}
}

// Enqueue hands a click event to the pipeline without blocking. The redirect
// path calls this fire-and-forget; a full buffer drops the event and logs a
// warning, prioritizing redirect latency over perfect analytics.
func (s *ClickService) Enqueue(event models.ClickEvent) {
	select {
	case s.events <- event:
	default:
		log.Printf("WARNING: click event buffer is full, dropping click for %s", event.OriginalURL)
	}
}

// Events exposes the receive side of the event buffer to the worker pool.
func (s *ClickService) Events() <-chan models.ClickEvent {
	return s.events
}

// Close stops accepting new events and lets the workers drain the buffer.
// Called once during graceful shutdown; events enqueued after Close would
// panic, so the HTTP server must be stopped first.
func (s *ClickService) Close() {
	close(s.events)
}

// Record performs the durable and accumulator writes for one click event.
// The two writes are independent: a failed ClickLog insert does not stop the
// counter increment, and vice versa.
func (s *ClickService) Record(ctx context.Context, event models.ClickEvent) {
	userAgent := event.UserAgent
	if len(userAgent) > maxUserAgentLength {
		userAgent = userAgent[:maxUserAgentLength]
	}

	click := &models.ClickLog{
		OriginalURL: event.OriginalURL,
		IPAddress:   event.IPAddress,
		Referrer:    event.Referrer,
		UserAgent:   userAgent,
		RequestData: event.RequestData,
		CreatedAt:   event.Timestamp,
	}
	if click.CreatedAt.IsZero() {
		click.CreatedAt = time.Now()
	}

	if err := s.clickRepo.CreateClick(click); err != nil {
		// Click logging is best-effort: log and move on.
		log.Printf("ERROR: %v", customerrors.ErrClickRecordingFailed{
			OriginalURL: event.OriginalURL,
			Reason:      err.Error(),
		})
	}

	// HINCRBY is atomic on the cache side, so concurrent workers can't lose
	// increments. The field is the compressed canonical URL to bound key size.
	field := shortcode.CompressURL(event.OriginalURL)
	if _, err := s.cache.HIncrBy(ctx, cache.ClickCountKey, field, 1); err != nil {
		log.Printf("ERROR: failed to increment click counter for %s: %v", event.OriginalURL, err)
	}
}
