package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/jobaru/internal/config"
	"github.com/jonathan/jobaru/internal/db"
	"github.com/jonathan/jobaru/internal/ledger"
	"github.com/jonathan/jobaru/internal/llm"
	"github.com/jonathan/jobaru/internal/session"
)

// getenv is swapped in tests.
var getenv = os.Getenv

// loadSettings reads the config file and returns it unchanged alongside the
// effective settings: environment secrets, explicitly set flags and defaults
// applied. Only the file copy is ever saved back.
func loadSettings(cmd *cobra.Command) (*config.Config, config.Config, error) {
	file, err := config.LoadOrEmpty(appFs, configPath)
	if err != nil {
		return nil, config.Config{}, err
	}
	eff := *file
	eff.ApplyEnv(getenv)
	applyFlagOverrides(cmd, &eff)
	eff = eff.MergeWithDefaults(config.Config{})
	if err := eff.Validate(); err != nil {
		return nil, config.Config{}, err
	}
	return file, eff, nil
}

// applyFlagOverrides copies every flag the user set on cmd into cfg.
func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	str := func(name string, dst *string) {
		if flags.Lookup(name) != nil && flags.Changed(name) {
			*dst, _ = flags.GetString(name)
		}
	}
	str("resume", &cfg.ResumePath)
	str("role", &cfg.JobRole)
	str("location", &cfg.Location)
	str("model", &cfg.Model)
	str("ledger", &cfg.LedgerPath)
	str("debug-dir", &cfg.DebugDir)
	str("out", &cfg.OutputDir)
	str("db-url", &cfg.DatabaseURL)
	str("control-addr", &cfg.ControlAddr)

	if flags.Lookup("headless") != nil && flags.Changed("headless") {
		cfg.Headless, _ = flags.GetBool("headless")
	}
	if flags.Lookup("pause-between-jobs") != nil && flags.Changed("pause-between-jobs") {
		cfg.PauseBetweenJobs, _ = flags.GetBool("pause-between-jobs")
	}
	if flags.Lookup("max-steps") != nil && flags.Changed("max-steps") {
		cfg.MaxSteps, _ = flags.GetInt("max-steps")
	}
	if flags.Lookup("max-new-jobs") != nil && flags.Changed("max-new-jobs") {
		cfg.MaxNewJobs, _ = flags.GetInt("max-new-jobs")
	}
}

// newLLMClient returns a generation client, or nil when no API key is
// configured. Callers that can work without one treat nil as "skip".
var newLLMClient = func(ctx context.Context, cfg config.Config, logger *zap.Logger) llm.Client {
	client, err := llm.NewClient(ctx, llm.ConfigForModel(cfg.Model), cfg.APIKey)
	if err != nil {
		if !errors.Is(err, llm.ErrNoAPIKey) {
			logger.Warn("Generation client unavailable", zap.Error(err))
		}
		return nil
	}
	return client
}

// stores is the ledger backing chosen by the config plus the optional
// attempt history.
type stores struct {
	ledger   ledger.Store
	recorder session.Recorder
	history  *db.AttemptStore
	close    func()
}

// openStores uses Postgres when a database URL is configured and the JSON
// ledger file otherwise.
func openStores(ctx context.Context, cfg config.Config, logger *zap.Logger) (*stores, error) {
	if cfg.DatabaseURL == "" {
		return &stores{
			ledger: ledger.NewFileStore(appFs, cfg.LedgerPath),
			close:  func() {},
		}, nil
	}

	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := database.EnsureSchema(ctx); err != nil {
		database.Close()
		return nil, err
	}
	history := db.NewAttemptStore(database)
	return &stores{
		ledger:   db.NewLedgerStore(database, logger),
		recorder: history,
		history:  history,
		close:    database.Close,
	}, nil
}
