// Package main provides the career_navigator CLI and HTTP API server.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jonathan/career-navigator/internal/config"
	"github.com/jonathan/career-navigator/internal/logging"
)

var (
	configPath   string
	verbose      bool
	outputFormat string

	// cfg is loaded once per invocation before any subcommand runs.
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "career_navigator",
	Short: "Career profile ingestion and artifact generation",
	Long: "Career Navigator turns a CV or network profile into a reviewed career profile " +
		"and generates CVs, career paths, plans and network exports from it.",
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a config file (default ./career_navigator.{yaml,json} if present)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", outputJSON, "Output format: json, yaml or text")
}

func loadConfig(_ *cobra.Command, _ []string) error {
	loaded, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := loaded.Validate(); err != nil {
		return err
	}
	switch outputFormat {
	case outputJSON, outputYAML, outputText:
	default:
		return fmt.Errorf("unknown output format %q (want json, yaml or text)", outputFormat)
	}

	logging.Configure(os.Stderr, loaded.Log.Format)
	logging.SetLevel(loaded.Log.Level)
	if verbose {
		logging.SetVerbose(true)
	}
	cfg = loaded
	return nil
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
