// Package main provides the jobaru command line.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/jonathan/jobaru/internal/config"
	"github.com/jonathan/jobaru/internal/observability"
)

// appFs is the filesystem every command reads and writes through.
var appFs afero.Fs = afero.NewOsFs()

var (
	configPath string
	logLevel   string
	logFile    string
	logJSON    bool
)

var rootCmd = &cobra.Command{
	Use:   "jobaru",
	Short: "Guarded Easy Apply assistant",
	Long: `jobaru searches job listings, walks each Easy Apply form step by step and
fills what it safely can. It pauses for you before anything it cannot decide
alone, and never submits the same posting twice.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: initLogging,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Path to the JSON config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Also write JSON logs to this file (rotated)")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Write console logs as JSON")
}

func main() {
	// Load .env if present; real environment variables win.
	_ = godotenv.Load()

	err := rootCmd.Execute()
	observability.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// initLogging sets up the global logger from the config file's logging
// section and the logging flags.
func initLogging(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadOrEmpty(appFs, configPath)
	if err != nil {
		return err
	}
	logging := cfg.Logging
	if cmd.Flags().Changed("log-level") {
		logging.Level = logLevel
	}
	if cmd.Flags().Changed("log-file") {
		logging.File = logFile
	}
	if cmd.Flags().Changed("log-json") {
		logging.JSON = logJSON
	}
	observability.InitializeStderr(logging)
	return nil
}
