package cli

import (
	"fmt"
	"log"

	"github.com/glebarez/sqlite"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/llamino/UrlShortener/cmd"
	"github.com/llamino/UrlShortener/internal/config"
	"github.com/llamino/UrlShortener/internal/models"
)

// MigrateCmd is the 'migrate' command: creates or updates the database schema.
var MigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Executes database migrations to create or update tables.",
	Long: `This command connects to the configured database (SQLite) and executes GORM
automatic migrations for the 'campaigns', 'links', 'click_logs' and
'blocked_ips' tables based on the Go models.`,
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

		// AutoMigrate creates tables from the struct definitions and adds
		// new columns when the models change.
		if err := db.AutoMigrate(&models.Campaign{}, &models.Link{}, &models.ClickLog{}, &models.BlockedIP{}); err != nil {
			log.Fatalf("Failed to migrate database: %v", err)
		}

		fmt.Println("Database migrations executed successfully.")
	},
}

func init() {
	cmd.RootCmd.AddCommand(MigrateCmd)
}
