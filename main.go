package main

import (
	"github.com/llamino/UrlShortener/cmd"

	// Subcommands register themselves with the root command via their init()
	// functions, so they only need to be imported for their side effects.
	_ "github.com/llamino/UrlShortener/cmd/cli"
	_ "github.com/llamino/UrlShortener/cmd/server"
)

func main() {
	cmd.Execute()
}
