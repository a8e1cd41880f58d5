package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jonathan/jobaru/internal/config"
	"github.com/jonathan/jobaru/internal/llm"
	"github.com/jonathan/jobaru/internal/materials"
	"github.com/jonathan/jobaru/internal/observability"
	"github.com/jonathan/jobaru/internal/ui"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactively fill in the applicant settings",
	Long:  "Ask for the resume, target role and location that are not yet configured and save them to the config file.",
	RunE:  runSetup,
}

func init() {
	setupCmd.Flags().String("resume", "", "Resume file (.pdf, .txt or .md)")
	setupCmd.Flags().String("role", "", "Target job role")
	setupCmd.Flags().String("location", "", "Target location")
	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	logger := observability.GetLogger()

	file, eff, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	// A resume path given on the command line is read again by the wizard.
	if cmd.Flags().Changed("resume") {
		eff.ResumeText = ""
	}

	client := newLLMClient(ctx, eff, logger)
	if client != nil {
		defer client.Close() //nolint:errcheck
	}

	in := ui.NewLineReader(cmd.InOrStdin())
	defer in.Close()

	if _, err := completeSetup(ctx, in, cmd.OutOrStdout(), file, &eff, client); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved settings to %s\n", configPath) //nolint:errcheck
	return nil
}

// completeSetup runs the wizard over eff and saves the applicant fields it
// gathered into the file config. The file copy never receives environment
// secrets or defaults.
func completeSetup(ctx context.Context, in *ui.LineReader, out io.Writer, file *config.Config, eff *config.Config, client llm.Client) (bool, error) {
	var suggest ui.RoleSuggester
	if client != nil {
		suggest = func(ctx context.Context, resume string) []string {
			return materials.SuggestRoles(ctx, client, resume)
		}
	}

	changed, err := ui.NewWizard(in, out, appFs).Run(ctx, eff, suggest)
	if err != nil {
		return false, fmt.Errorf("setup did not finish: %w", err)
	}

	file.ResumePath = eff.ResumePath
	file.ResumeText = eff.ResumeText
	file.JobRole = eff.JobRole
	file.Location = eff.Location
	if err := file.Save(appFs, configPath); err != nil {
		return changed, err
	}
	return changed, nil
}
