// Package main provides the entry point for the structure harvester CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "harvester",
	Short: "Resolve biological targets to their best available 3-D structures",
	Long:  "Harvester resolves a list of biological target identifiers to exactly one best-quality structure file per target, chaining a target list, an identifier-mapping service, a cross-reference table and a structure-metadata service into one deterministic selection pipeline.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
