package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/launchkit/launchkit/cmd"
)

func main() {
	// Optional .env with provider credentials.
	_ = godotenv.Load()

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
