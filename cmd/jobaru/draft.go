package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/jobaru/internal/config"
	"github.com/jonathan/jobaru/internal/fetch"
	"github.com/jonathan/jobaru/internal/ingestion"
	"github.com/jonathan/jobaru/internal/llm"
	"github.com/jonathan/jobaru/internal/materials"
	"github.com/jonathan/jobaru/internal/observability"
)

var draftCmd = &cobra.Command{
	Use:   "draft",
	Short: "Draft a cover letter and intro email for one job",
	Long: `Analyze how the resume fits a job description, then write a cover letter,
an intro email and the raw analysis to a timestamped directory.

The job may be a URL, a text file or the description itself.`,
	RunE: runDraft,
}

var draftJob string

func init() {
	draftCmd.Flags().StringP("resume", "r", "", "Resume file (defaults to resume_path from the config)")
	draftCmd.Flags().StringVarP(&draftJob, "job", "j", "", "Job description: URL, file path or text (required)")
	draftCmd.Flags().StringP("out", "o", "", "Output directory for drafts")
	draftCmd.Flags().String("model", "", "Generation model override")

	_ = draftCmd.MarkFlagRequired("job")

	rootCmd.AddCommand(draftCmd)
}

func runDraft(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	logger := observability.GetLogger()
	printer := observability.NewPrinter(cmd.OutOrStdout())

	_, cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	if cfg.ResumePath == "" {
		return fmt.Errorf("no resume given: pass --resume or run 'jobaru setup'")
	}

	client := newLLMClient(ctx, cfg, logger)
	if client == nil {
		return fmt.Errorf("drafting needs a generation client: %w (set %s)", llm.ErrNoAPIKey, config.EnvAPIKey)
	}
	defer client.Close() //nolint:errcheck

	resume, resumeMeta, err := ingestion.LoadResume(appFs, cfg.ResumePath)
	if err != nil {
		return err
	}
	jd, jdMeta, err := ingestion.LoadJobDescription(ctx, appFs, draftJob, fetch.DefaultOptions())
	if err != nil {
		return err
	}
	logger.Info("Drafting materials",
		zap.String("resume", resumeMeta.Source),
		zap.String("job", jdMeta.Source),
		zap.Int("job_chars", jdMeta.Chars))

	analysis, err := materials.Analyze(ctx, client, resume, jd)
	if err != nil {
		return err
	}
	printer.PrintAnalysis(analysis)

	generated, err := materials.Generate(ctx, client, resume, jd, analysis)
	if err != nil {
		return err
	}

	dir, err := ingestion.WriteDraft(appFs, cfg.OutputDir, time.Now(), ingestion.DraftRecord{
		Result:         materials.Result{Analysis: analysis, Materials: generated},
		Resume:         resumeMeta,
		JobDescription: jdMeta,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Drafts written to %s\n", dir) //nolint:errcheck
	return nil
}
