package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/jobaru/internal/ingestion"
	"github.com/jonathan/jobaru/internal/materials"
	"github.com/jonathan/jobaru/internal/observability"
)

var suggestRolesCmd = &cobra.Command{
	Use:   "suggest-roles",
	Short: "Suggest job titles that fit a resume",
	Long:  "Ask the generation service for three job titles matching the resume. Without an API key the fallback list is printed.",
	RunE:  runSuggestRoles,
}

func init() {
	suggestRolesCmd.Flags().StringP("resume", "r", "", "Resume file (defaults to resume_path from the config)")
	rootCmd.AddCommand(suggestRolesCmd)
}

func runSuggestRoles(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	logger := observability.GetLogger()

	_, cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	if cfg.ResumePath == "" {
		return fmt.Errorf("no resume given: pass --resume or run 'jobaru setup'")
	}
	resume, _, err := ingestion.LoadResume(appFs, cfg.ResumePath)
	if err != nil {
		return err
	}

	client := newLLMClient(ctx, cfg, logger)
	if client != nil {
		defer client.Close() //nolint:errcheck
	} else {
		logger.Warn("No API key configured; showing the fallback roles")
	}

	roles := materials.SuggestRoles(ctx, client, resume)
	observability.NewPrinter(cmd.OutOrStdout()).PrintRoles(roles)
	return nil
}
