package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/llamino/UrlShortener/cmd"
	"github.com/llamino/UrlShortener/internal/api"
	"github.com/llamino/UrlShortener/internal/cache"
	"github.com/llamino/UrlShortener/internal/config"
	"github.com/llamino/UrlShortener/internal/jobs"
	"github.com/llamino/UrlShortener/internal/models"
	"github.com/llamino/UrlShortener/internal/repository"
	"github.com/llamino/UrlShortener/internal/services"
	"github.com/llamino/UrlShortener/internal/shortcode"
	"github.com/llamino/UrlShortener/internal/workers"
)

// RunServerCmd is the 'run-server' Cobra command: the entry point that wires
// the whole service together and runs it until interrupted.
var RunServerCmd = &cobra.Command{
	Use:   "run-server",
	Short: "Starts the redirect API server and its background jobs.",
	Long: `This command initializes the database and the Redis cache, configures the
API routes, starts the asynchronous click workers, the click-count reconciler
and the popularity cache warmer, then launches the HTTP server.`,
	Run: func(cobraCmd *cobra.Command, args []string) {
		cfg, err := config.LoadConfig()
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}

		// Durable store: source of truth for links, campaigns, click logs
		// and block entries.
		db, err := gorm.Open(sqlite.Open(cfg.Database.Name), &gorm.Config{})
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		if err := db.AutoMigrate(&models.Campaign{}, &models.Link{}, &models.ClickLog{}, &models.BlockedIP{}); err != nil {
			log.Fatalf("Failed to migrate database: %v", err)
		}

		// Fast cache: resolution entries, abuse verdicts, the click-count
		// accumulator and the redirect rate limiter all live here.
		fastCache := cache.NewRedisCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
		if err := fastCache.Ping(pingCtx); err != nil {
			// The service can start without Redis (resolution falls back to
			// decode-and-verify), but say so loudly.
			log.Printf("WARNING: Redis unreachable at startup: %v", err)
		}
		cancelPing()

		linkRepo := repository.NewLinkRepository(db)
		clickRepo := repository.NewClickRepository(db)
		blockRepo := repository.NewBlockRepository(db)
		log.Println("Repositories initialized.")

		codec := shortcode.NewCodec(cfg.Server.Secret)
		linkService := services.NewLinkService(linkRepo, clickRepo, codec)
		guard := services.NewAbuseGuard(fastCache, blockRepo,
			time.Duration(cfg.Cache.VerdictTTLMinutes)*time.Minute)
		resolver := services.NewResolverService(fastCache, codec, guard,
			time.Duration(cfg.Cache.ResolutionTTLMinutes)*time.Minute)
		clickService := services.NewClickService(clickRepo, fastCache, cfg.Analytics.BufferSize)
		log.Println("Services initialized.")

		// Click pipeline workers drain the event buffer into the click log
		// and the accumulator.
		workersDone := workers.StartClickWorkers(cfg.Analytics.WorkerCount, clickService)
		log.Printf("Click event channel initialized with a buffer of %d. %d click worker(s) started.",
			cfg.Analytics.BufferSize, cfg.Analytics.WorkerCount)

		// Singleton periodic jobs. Each runs in its own goroutine off one
		// ticker, so two runs of the same job can never overlap.
		jobsCtx, stopJobs := context.WithCancel(context.Background())
		reconciler := jobs.NewReconciler(fastCache, linkRepo,
			time.Duration(cfg.Analytics.ReconcileIntervalMinutes)*time.Minute)
		go reconciler.Start(jobsCtx)
		warmer := jobs.NewWarmer(fastCache, linkRepo,
			time.Duration(cfg.Cache.WarmIntervalMinutes)*time.Minute,
			cfg.Cache.PopularThreshold,
			time.Duration(cfg.Cache.WarmTTLHours)*time.Hour)
		go warmer.Start(jobsCtx)
		log.Println("Reconciler and cache warmer started.")

		// HTTP surface.
		router := gin.Default()
		handlers := api.NewHandlers(linkService, resolver, clickService, cfg.Server.BaseURL)
		redirectLimiter := api.RateLimitByIP(fastCache, cfg.RateLimit.RedirectPerMinute)
		api.SetupRoutes(router, handlers, redirectLimiter)
		log.Println("API routes configured.")

		serverAddr := fmt.Sprintf(":%d", cfg.Server.Port)
		srv := &http.Server{
			Addr:    serverAddr,
			Handler: router,
		}

		go func() {
			log.Printf("Starting server on %s", serverAddr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("Failed to start server: %v", err)
			}
		}()

		// Graceful shutdown: wait for SIGINT/SIGTERM.
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Println("Shutdown signal received. Stopping server...")

		// Stop accepting requests first, so no new click events can be
		// enqueued after the pipeline closes.
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}
		cancelShutdown()

		// Let the workers drain the remaining click events.
		clickService.Close()
		workersDone.Wait()

		// Stop the periodic jobs; the reconciler runs one last cycle so
		// accumulated counts are not stranded in the cache.
		stopJobs()
		time.Sleep(2 * time.Second)

		log.Println("Server stopped cleanly.")
	},
}

func init() {
	cmd.RootCmd.AddCommand(RunServerCmd)
}
