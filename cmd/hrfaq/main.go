// Command hrfaq is the entry point for the HR FAQ assistant.
// It provides a CLI interface (via Cobra) and an optional HTTP server
// exposing synchronous and streaming question answering over an indexed
// HR policy corpus.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/Farx1/hrfaq-go/cmd/hrfaq/commands"
)

func main() {
	// Optional .env in the working directory; real env always wins.
	_ = godotenv.Load()

	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
