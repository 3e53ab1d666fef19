package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dmeier/structure-harvester/internal/config"
	"github.com/dmeier/structure-harvester/internal/pipeline"
)

var runCommand = &cobra.Command{
	Use:   "run",
	Short: "Run the full resolution pipeline end-to-end",
	Long: `Orchestrates the entire harvest: target normalization -> identifier resolution -> cross-reference mapping -> quality filtering -> selection -> download -> conversion.

Configuration can be loaded from a JSON file using --config. Command-line arguments override config file values.`,
	RunE: runPipelineCmd,
}

var (
	runConfigPath    string
	runTargetsURL    string
	runSearchURL     string
	runCrossRefURL   string
	runMetadataURL   string
	runDownloadURL   string
	runMaxResolution float64
	runMethod        string
	runOutputDir     string
	runDatabaseURL   string
	runDryRun        bool
	runSkipConvert   bool
	runVerbose       bool
)

func init() {
	// Config file flag (processed first)
	runCommand.Flags().StringVar(&runConfigPath, "config", "", "Path to config.json file (values can be overridden by other flags)")

	runCommand.Flags().StringVar(&runTargetsURL, "targets-url", "", "URL of the raw target list")
	runCommand.Flags().StringVar(&runSearchURL, "search-url", "", "URL of the identifier resolution service")
	runCommand.Flags().StringVar(&runCrossRefURL, "crossref-url", "", "URL of the gzipped cross-reference table")
	runCommand.Flags().StringVar(&runMetadataURL, "metadata-url", "", "URL of the structure metadata service")
	runCommand.Flags().StringVar(&runDownloadURL, "download-url", "", "Base URL for structure file downloads")
	runCommand.Flags().Float64Var(&runMaxResolution, "max-resolution", 0, "Maximum accepted resolution")
	runCommand.Flags().StringVar(&runMethod, "method", "", "Accepted experimental method")
	runCommand.Flags().StringVarP(&runOutputDir, "output-dir", "o", "", "Directory for downloaded structure files")
	runCommand.Flags().BoolVar(&runDryRun, "dry-run", false, "Stop after selection; skip download and conversion")
	runCommand.Flags().BoolVar(&runSkipConvert, "skip-convert", false, "Download structures but skip format conversion")
	runCommand.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "Print detailed stage summaries")

	// Database URL for artifact persistence
	runCommand.Flags().StringVar(&runDatabaseURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")

	rootCmd.AddCommand(runCommand)
}

func runPipelineCmd(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	// Step 1: Load config file if provided
	var cfg config.Config
	if runConfigPath != "" {
		loadedCfg, err := config.Load(runConfigPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg = *loadedCfg
		if runVerbose {
			_, _ = fmt.Fprintf(os.Stdout, "Loaded config from: %s\n", runConfigPath)
		}
	}

	// Step 2: Apply CLI overrides (command-line args take priority)
	// Only override if the flag was explicitly set
	if cmd.Flags().Changed("targets-url") {
		cfg.TargetListURL = runTargetsURL
	}
	if cmd.Flags().Changed("search-url") {
		cfg.SearchURL = runSearchURL
	}
	if cmd.Flags().Changed("crossref-url") {
		cfg.CrossRefURL = runCrossRefURL
	}
	if cmd.Flags().Changed("metadata-url") {
		cfg.MetadataURL = runMetadataURL
	}
	if cmd.Flags().Changed("download-url") {
		cfg.DownloadURL = runDownloadURL
	}
	if cmd.Flags().Changed("max-resolution") {
		cfg.MaxResolution = runMaxResolution
	}
	if cmd.Flags().Changed("method") {
		cfg.Method = runMethod
	}
	if cmd.Flags().Changed("output-dir") {
		cfg.RawDir = runOutputDir
	}
	if cmd.Flags().Changed("db-url") {
		cfg.DatabaseURL = runDatabaseURL
	}
	if cmd.Flags().Changed("dry-run") {
		cfg.DryRun = runDryRun
	}
	if cmd.Flags().Changed("skip-convert") {
		cfg.SkipConvert = runSkipConvert
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = runVerbose
	}

	// Step 3: Apply defaults for unset values, then env fallbacks
	cfg = cfg.MergeWithDefaults(config.Defaults())
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}

	// Step 4: Validate the merged configuration
	if err := cfg.Validate(); err != nil {
		return err
	}

	return pipeline.Run(ctx, pipeline.Options{
		Config: cfg,
		Out:    os.Stdout,
	})
}
