// Package jobs contains the singleton periodic background jobs: click-count
// reconciliation and popularity-based cache warming. Each job is one goroutine
// driven by a time.Ticker, so two runs of the same job never overlap.
package jobs

import (
	"context"
	"errors"
	"log"
	"strconv"
	"time"

	"github.com/llamino/UrlShortener/internal/cache"
	customerrors "github.com/llamino/UrlShortener/internal/errors"
	"github.com/llamino/UrlShortener/internal/repository"
	"github.com/llamino/UrlShortener/internal/shortcode"
)

// Reconciler periodically folds the click-count accumulator into the durable
// links table. This is the write-behind half of the click pipeline: the fast
// cache absorbs bursts of atomic increments, and the reconciler turns them
// into one transactional batch of `click_count += n` updates.
type Reconciler struct {
	cache    cache.Cache
	linkRepo repository.LinkRepository
	interval time.Duration
}

// NewReconciler creates a Reconciler running every interval.
func NewReconciler(c cache.Cache, linkRepo repository.LinkRepository, interval time.Duration) *Reconciler {
	return &Reconciler{
		cache:    c,
		linkRepo: linkRepo,
		interval: interval,
	}
}

// Start launches the periodic reconciliation loop. It blocks until ctx is
// cancelled, running one final cycle on the way out so shutdown does not
// strand accumulated counts.
func (r *Reconciler) Start(ctx context.Context) {
	log.Printf("[RECONCILER] Starting click-count reconciler with interval of %v...", r.interval)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	// Execute an immediate cycle on startup before waiting for the first tick.
	r.RunOnce(ctx)

	for {
		select {
		case <-ticker.C:
			r.RunOnce(ctx)
		case <-ctx.Done():
			log.Println("[RECONCILER] Shutting down, running final reconciliation cycle...")
			r.RunOnce(context.Background())
			return
		}
	}
}

// RunOnce executes a single reconciliation cycle:
//
//  1. Atomically rename the accumulator hash to a draining key. Increments
//     arriving from this instant land in a fresh accumulator; none are lost
//     and none are counted twice.
//  2. Read the drained snapshot, decompress each URL key.
//  3. Apply every pending count in one durable-store transaction.
//  4. Delete the draining key.
//
// An absent accumulator means no clicks since the last cycle: a no-op.
// If the transaction fails, the drained increments for this cycle are dropped
// (logged) rather than retried indefinitely: click counts are a popularity
// signal, not a billing-grade ledger, and undercounting beats double-counting
// or an ever-growing retry backlog.
func (r *Reconciler) RunOnce(ctx context.Context) {
	// A leftover draining key means a previous cycle crashed between rename
	// and delete. Fold it into this cycle's snapshot instead of losing it.
	snapshot, err := r.cache.HGetAll(ctx, cache.ClickCountDrainKey)
	if err != nil {
		log.Printf("[RECONCILER] ERROR reading leftover drain snapshot: %v", err)
		return
	}

	if err := r.cache.Rename(ctx, cache.ClickCountKey, cache.ClickCountDrainKey); err != nil {
		if errors.Is(err, customerrors.ErrCacheMiss) {
			// No accumulator hash: nothing clicked since the last cycle,
			// unless a leftover snapshot still needs applying.
			if len(snapshot) == 0 {
				return
			}
		} else {
			log.Printf("[RECONCILER] ERROR draining accumulator: %v", err)
			return
		}
	} else if len(snapshot) > 0 {
		// The rename replaced the leftover snapshot; merge it back in so the
		// crashed cycle's counts ride along with the fresh ones.
		for field, count := range snapshot {
			delta, err := strconv.ParseInt(count, 10, 64)
			if err != nil || delta <= 0 {
				continue
			}
			if _, err := r.cache.HIncrBy(ctx, cache.ClickCountDrainKey, field, delta); err != nil {
				log.Printf("[RECONCILER] ERROR merging leftover count: %v", err)
			}
		}
	}

	drained, err := r.cache.HGetAll(ctx, cache.ClickCountDrainKey)
	if err != nil {
		log.Printf("[RECONCILER] ERROR reading drained snapshot: %v", err)
		return
	}
	if len(drained) == 0 {
		_ = r.cache.Del(ctx, cache.ClickCountDrainKey)
		return
	}

	counts := make(map[string]int64, len(drained))
	for compressedURL, raw := range drained {
		pending, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || pending <= 0 {
			continue
		}
		originalURL, err := shortcode.DecompressURL(compressedURL)
		if err != nil {
			// An undecodable field can never be applied; carrying it forward
			// would just fail every future cycle too.
			log.Printf("[RECONCILER] ERROR decompressing accumulator key %q: %v", compressedURL, err)
			continue
		}
		counts[originalURL] += pending
	}

	if err := r.linkRepo.ApplyClickCounts(counts); err != nil {
		// Explicit at-least-once-but-not-guaranteed policy: the cycle's
		// increments are lost, future clicks keep accumulating normally.
		log.Printf("[RECONCILER] ERROR: %v", customerrors.ErrReconcileFailed{Pairs: len(counts), Reason: err.Error()})
	} else if len(counts) > 0 {
		log.Printf("[RECONCILER] Reconciled pending clicks for %d link(s).", len(counts))
	}

	if err := r.cache.Del(ctx, cache.ClickCountDrainKey); err != nil {
		log.Printf("[RECONCILER] ERROR deleting drain snapshot: %v", err)
	}
}
