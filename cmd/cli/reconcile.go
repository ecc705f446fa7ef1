package cli

import (
	"context"
	"fmt"
	"log"

	"github.com/glebarez/sqlite"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/llamino/UrlShortener/cmd"
	"github.com/llamino/UrlShortener/internal/cache"
	"github.com/llamino/UrlShortener/internal/config"
	"github.com/llamino/UrlShortener/internal/jobs"
	"github.com/llamino/UrlShortener/internal/repository"
)

// ReconcileCmd is the 'reconcile' command: runs one click-count
// reconciliation cycle by hand. Useful after stopping the server with pending
// increments in the cache, or for inspecting the pipeline during development.
var ReconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Runs a single click-count reconciliation cycle.",
	Long: `Drains the click-count accumulator from the Redis cache and folds the
pending increments into the links table in one transaction. A no-op when
nothing has been clicked since the last cycle.`,
	Run: func(cobraCmd *cobra.Command, args []string) {
		cfg, err := config.LoadConfig()
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}

		db, err := gorm.Open(sqlite.Open(cfg.Database.Name), &gorm.Config{})
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			log.Fatalf("FATAL: Failed to get underlying SQL database: %v", err)
		}
		defer sqlDB.Close()

		fastCache := cache.NewRedisCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err := fastCache.Ping(context.Background()); err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}

		linkRepo := repository.NewLinkRepository(db)

		// Interval is irrelevant for a one-shot run.
		reconciler := jobs.NewReconciler(fastCache, linkRepo, 0)
		reconciler.RunOnce(context.Background())

		fmt.Println("Reconciliation cycle completed.")
	},
}

func init() {
	cmd.RootCmd.AddCommand(ReconcileCmd)
}
