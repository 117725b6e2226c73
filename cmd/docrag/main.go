// Package main provides the entry point for the docrag CLI.
package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/docrag/docrag/cmd/docrag/cmd"
)

func main() {
	// API keys may live in a local .env; absence is fine.
	_ = godotenv.Load()

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
