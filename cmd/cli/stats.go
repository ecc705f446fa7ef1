package cli

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/glebarez/sqlite"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/llamino/UrlShortener/cmd"
	"github.com/llamino/UrlShortener/internal/config"
	customerrors "github.com/llamino/UrlShortener/internal/errors"
	"github.com/llamino/UrlShortener/internal/repository"
	"github.com/llamino/UrlShortener/internal/services"
	"github.com/llamino/UrlShortener/internal/shortcode"
)

// StatsCmd is the 'stats' command: prints click statistics for a short code.
var StatsCmd = &cobra.Command{
	Use:   "stats [short-code]",
	Short: "Get click statistics for a short code",
	Long:  `Prints the durable click count and the recorded click logs for the given short code.`,
	Args:  cobra.ExactArgs(1),
	Run:   runStats,
}

func init() {
	cmd.RootCmd.AddCommand(StatsCmd)
}

// runStats executes the logic for the stats command.
func runStats(cobraCmd *cobra.Command, args []string) {
	shortCode := args[0]

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

	linkRepo := repository.NewLinkRepository(db)
	clickRepo := repository.NewClickRepository(db)
	codec := shortcode.NewCodec(cfg.Server.Secret)
	linkService := services.NewLinkService(linkRepo, clickRepo, codec)

	link, clicks, err := linkService.GetLinkStats(shortCode)
	if err != nil {
		if errors.Is(err, customerrors.ErrLinkNotFound) {
			fmt.Printf("Error: Short code '%s' not found\n", shortCode)
		} else {
			fmt.Printf("Error retrieving statistics: %v\n", err)
		}
		os.Exit(1)
	}

	fmt.Printf("Statistics for short code: %s\n", shortCode)
	fmt.Printf("Original URL: %s\n", link.OriginalURL)
	fmt.Printf("Status: %s\n", link.Status)
	fmt.Printf("Total clicks (reconciled): %d\n", link.ClickCount)
	fmt.Printf("Click logs recorded: %d\n", len(clicks))
	fmt.Printf("Created at: %s\n", link.CreatedAt.Format("2006-01-02 15:04:05"))

	for _, click := range clicks {
		fmt.Printf("  %s  ip=%s  referrer=%q  ua=%q\n",
			click.CreatedAt.Format("2006-01-02 15:04:05"),
			click.IPAddress, click.Referrer, click.UserAgent)
	}
}
