package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/llamino/UrlShortener/internal/config"
)

// Cfg is the global variable that will contain the loaded configuration
// It will be accessible to all Cobra commands throughout the application
var Cfg *config.Config

// RootCmd is the base command for the CLI application
// All other commands (run-server, shorten, stats, migrate, reconcile) are
// added as subcommands
var RootCmd = &cobra.Command{
	Use:   "urlshortener",
	Short: "A campaign URL shortener with signed short codes",
	Long: `A URL shortener that issues signed, self-certifying short codes,
resolves redirects through a Redis cache with decode-and-verify fallback,
and records click telemetry off the redirect path.`,
}

// Execute is the main entry point for the Cobra application
// It is called from 'main.go' and handles command execution and error handling
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}

// init sets up command initialization hooks before main() runs.
func init() {
	// Set up configuration initialization to run before any command executes
	// This ensures configuration is loaded before any command needs it
	cobra.OnInitialize(initConfig)

	// Subcommands are NOT added here: each registers itself with RootCmd via
	// its own init() function. This keeps the command modules independent and
	// prevents import cycles.
}

// initConfig loads the application configuration
// This function is called at the beginning of every Cobra command execution
// thanks to `cobra.OnInitialize(initConfig)` set up above
func initConfig() {
	var err error

	Cfg, err = config.LoadConfig()
	if err != nil {
		log.Printf("Warning: Problem loading configuration: %v", err)
	}
}
