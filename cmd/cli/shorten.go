package cli

import (
	"fmt"
	"log"
	"os"

	"github.com/glebarez/sqlite"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/llamino/UrlShortener/cmd"
	"github.com/llamino/UrlShortener/internal/config"
	"github.com/llamino/UrlShortener/internal/repository"
	"github.com/llamino/UrlShortener/internal/services"
	"github.com/llamino/UrlShortener/internal/shortcode"
)

var (
	shortenURLFlag      string
	shortenCampaignFlag string
)

// ShortenCmd is the 'shorten' command: creates (or finds) the short link for
// a URL within a campaign, creating the campaign on first reference.
var ShortenCmd = &cobra.Command{
	Use:   "shorten",
	Short: "Creates a signed short code for a URL within a campaign.",
	Long: `Canonicalizes the given URL (query string and fragment are dropped),
associates it with the named campaign (created on demand), and prints the
signed short code.

Example:
  urlshortener shorten --url="https://example.com/a?x=1#frag" --campaign="spring-sale"`,
	Run: func(cobraCmd *cobra.Command, args []string) {
		if shortenURLFlag == "" {
			fmt.Println("Error: --url flag is required")
			os.Exit(1)
		}

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

		campaign, err := linkRepo.GetOrCreateCampaign(shortenCampaignFlag)
		if err != nil {
			log.Fatalf("Failed to resolve campaign %q: %v", shortenCampaignFlag, err)
		}

		link, created, err := linkService.ShortenURL(shortenURLFlag, campaign.ID)
		if err != nil {
			log.Fatalf("Failed to create short link: %v", err)
		}

		fullShortURL := fmt.Sprintf("%s/%s", cfg.Server.BaseURL, link.ShortCode)
		if created {
			fmt.Println("Short link created:")
		} else {
			fmt.Println("Short link already existed:")
		}
		fmt.Printf("Campaign: %s\n", campaign.Name)
		fmt.Printf("Canonical URL: %s\n", link.OriginalURL)
		fmt.Printf("Code: %s\n", link.ShortCode)
		fmt.Printf("Full URL: %s\n", fullShortURL)
	},
}

func init() {
	ShortenCmd.Flags().StringVar(&shortenURLFlag, "url", "", "The URL to shorten")
	ShortenCmd.Flags().StringVar(&shortenCampaignFlag, "campaign", "default", "Campaign name (created if missing)")
	ShortenCmd.MarkFlagRequired("url")

	cmd.RootCmd.AddCommand(ShortenCmd)
}
