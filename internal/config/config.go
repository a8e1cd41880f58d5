// Package config loads, validates and saves the jobaru JSON configuration.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/afero"

	"github.com/jonathan/jobaru/internal/ledger"
	"github.com/jonathan/jobaru/internal/schemas"
	"github.com/jonathan/jobaru/internal/types"
)

// DefaultPath is the config file read when no --config flag is given.
const DefaultPath = "config.json"

// Environment variables consulted by ApplyEnv.
const (
	EnvAPIKey      = "GEMINI_API_KEY"
	EnvDatabaseURL = "DATABASE_URL"
)

// Default values used by MergeWithDefaults.
const (
	DefaultLedgerPath  = "applied_jobs.json"
	DefaultDebugDir    = "applications/debug_html"
	DefaultOutputDir   = "applications"
	DefaultMaxSteps    = 15
	DefaultMaxNewJobs  = 50
	DefaultControlAddr = "127.0.0.1:8765"
	DefaultLogLevel    = "info"
)

// ErrNotFound is returned by LoadConfig when the file does not exist.
var ErrNotFound = errors.New("config file not found")

// Logging configures the zap logger.
type Logging struct {
	Level string `json:"level,omitempty" validate:"omitempty,oneof=debug info warn error"`
	File  string `json:"file,omitempty"` // rotated log file; empty logs to stderr only
	JSON  bool   `json:"json,omitempty"`
}

// Config is the persisted jobaru configuration. Fields left empty fall
// back to defaults or CLI flags.
type Config struct {
	// Applicant
	ResumePath  string `json:"resume_path,omitempty"`
	ResumeText  string `json:"resume_text,omitempty"`
	JobRole     string `json:"job_role,omitempty"`
	Location    string `json:"location,omitempty"`
	Model       string `json:"model,omitempty"`
	CoverLetter string `json:"cover_letter,omitempty"`

	// Browser session
	Headless         bool `json:"headless,omitempty"`
	MaxSteps         int  `json:"max_steps,omitempty" validate:"gte=0,lte=100"`
	MaxNewJobs       int  `json:"max_new_jobs,omitempty" validate:"gte=0"`
	PauseBetweenJobs bool `json:"pause_between_jobs,omitempty"`

	// Storage
	LedgerPath  string `json:"ledger_path,omitempty"`
	DebugDir    string `json:"debug_dir,omitempty"`
	OutputDir   string `json:"output_dir,omitempty"`
	DatabaseURL string `json:"database_url,omitempty" validate:"omitempty,url"`

	// Services
	APIKey      string `json:"api_key,omitempty"`
	ControlAddr string `json:"control_addr,omitempty" validate:"omitempty,hostname_port"`

	Logging Logging `json:"logging,omitempty"`
}

// LoadConfig reads and parses the config file at path. The document is
// checked against the config JSON Schema before decoding.
func LoadConfig(fs afero.Fs, path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := schemas.Validate(schemas.Config, data); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	return &cfg, nil
}

// LoadOrEmpty is LoadConfig that treats a missing file as an empty config.
func LoadOrEmpty(fs afero.Fs, path string) (*Config, error) {
	cfg, err := LoadConfig(fs, path)
	if errors.Is(err, ErrNotFound) {
		return &Config{}, nil
	}
	return cfg, err
}

// Save writes the config to path atomically.
func (c *Config) Save(fs afero.Fs, path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := ledger.WriteFileAtomic(fs, path, append(data, '\n')); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

// Validate checks field ranges and formats. Required applicant fields are
// checked separately by Missing since the setup wizard can fill them.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if c.ResumePath == "" && c.ResumeText != "" {
		return fmt.Errorf("config error: 'resume_text' is set without 'resume_path'")
	}
	return nil
}

// Missing lists the applicant settings still needed for an apply run,
// by their JSON names.
func (c *Config) Missing() []string {
	var missing []string
	if strings.TrimSpace(c.ResumePath) == "" {
		missing = append(missing, "resume_path")
	}
	if strings.TrimSpace(c.JobRole) == "" {
		missing = append(missing, "job_role")
	}
	if strings.TrimSpace(c.Location) == "" {
		missing = append(missing, "location")
	}
	return missing
}

// ApplyEnv fills secrets that are unset in the file from the environment.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if getenv == nil {
		getenv = os.Getenv
	}
	if c.APIKey == "" {
		c.APIKey = getenv(EnvAPIKey)
	}
	if c.DatabaseURL == "" {
		c.DatabaseURL = getenv(EnvDatabaseURL)
	}
}

// MergeWithDefaults returns a copy with empty fields filled from defaults,
// then from the package defaults.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	firstNonEmpty := func(dst *string, candidates ...string) {
		for _, v := range candidates {
			if *dst != "" {
				return
			}
			*dst = v
		}
	}
	firstNonEmpty(&result.ResumePath, defaults.ResumePath)
	firstNonEmpty(&result.ResumeText, defaults.ResumeText)
	firstNonEmpty(&result.JobRole, defaults.JobRole)
	firstNonEmpty(&result.Location, defaults.Location)
	firstNonEmpty(&result.Model, defaults.Model)
	firstNonEmpty(&result.CoverLetter, defaults.CoverLetter)
	firstNonEmpty(&result.LedgerPath, defaults.LedgerPath, DefaultLedgerPath)
	firstNonEmpty(&result.DebugDir, defaults.DebugDir, DefaultDebugDir)
	firstNonEmpty(&result.OutputDir, defaults.OutputDir, DefaultOutputDir)
	firstNonEmpty(&result.DatabaseURL, defaults.DatabaseURL)
	firstNonEmpty(&result.APIKey, defaults.APIKey)
	firstNonEmpty(&result.ControlAddr, defaults.ControlAddr, DefaultControlAddr)
	firstNonEmpty(&result.Logging.Level, defaults.Logging.Level, DefaultLogLevel)
	firstNonEmpty(&result.Logging.File, defaults.Logging.File)

	if result.MaxSteps == 0 {
		result.MaxSteps = defaults.MaxSteps
	}
	if result.MaxSteps == 0 {
		result.MaxSteps = DefaultMaxSteps
	}
	if result.MaxNewJobs == 0 {
		result.MaxNewJobs = defaults.MaxNewJobs
	}
	if result.MaxNewJobs == 0 {
		result.MaxNewJobs = DefaultMaxNewJobs
	}

	// Bools cannot distinguish unset from false; CLI flags win for those.
	return result
}

// Profile returns the applicant profile carried by the config.
func (c *Config) Profile() types.ApplicationProfile {
	return types.ApplicationProfile{
		ResumePath:  c.ResumePath,
		ResumeText:  c.ResumeText,
		JobRole:     c.JobRole,
		Location:    c.Location,
		Model:       c.Model,
		CoverLetter: c.CoverLetter,
	}
}
