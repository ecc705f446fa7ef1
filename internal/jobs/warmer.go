package jobs

import (
	"context"
	"log"
	"time"

	"github.com/llamino/UrlShortener/internal/cache"
	"github.com/llamino/UrlShortener/internal/repository"
)

// Warmer periodically pre-populates the resolution cache with the
// destinations of popular links (durable click count at or above a
// threshold), giving them a long lifetime so hot codes rarely fall back to
// the decode path. Re-running is idempotent; it simply refreshes TTLs.
type Warmer struct {
	cache     cache.Cache
	linkRepo  repository.LinkRepository
	interval  time.Duration
	threshold uint
	warmTTL   time.Duration
}

// NewWarmer creates a Warmer that every interval caches links with at least
// threshold clicks for warmTTL.
func NewWarmer(c cache.Cache, linkRepo repository.LinkRepository, interval time.Duration, threshold uint, warmTTL time.Duration) *Warmer {
	return &Warmer{
		cache:     c,
		linkRepo:  linkRepo,
		interval:  interval,
		threshold: threshold,
		warmTTL:   warmTTL,
	}
}

// Start launches the periodic warming loop. It blocks until ctx is cancelled.
func (w *Warmer) Start(ctx context.Context) {
	log.Printf("[WARMER] Starting popularity cache warmer with interval of %v (threshold %d clicks)...", w.interval, w.threshold)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	// Execute an immediate pass on startup before waiting for the first tick.
	w.RunOnce(ctx)

	for {
		select {
		case <-ticker.C:
			w.RunOnce(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// RunOnce executes a single warming pass over all popular links.
func (w *Warmer) RunOnce(ctx context.Context) {
	links, err := w.linkRepo.GetPopularLinks(w.threshold)
	if err != nil {
		log.Printf("[WARMER] ERROR retrieving popular links: %v", err)
		return
	}

	warmed := 0
	for _, link := range links {
		if link.ShortCode == "" {
			continue
		}
		key := cache.ResolutionKeyPrefix + link.ShortCode
		if err := w.cache.Set(ctx, key, link.OriginalURL, w.warmTTL); err != nil {
			log.Printf("[WARMER] ERROR warming cache for %s: %v", link.ShortCode, err)
			continue
		}
		warmed++
	}

	if warmed > 0 {
		log.Printf("[WARMER] Warmed resolution cache for %d popular link(s).", warmed)
	}
}
