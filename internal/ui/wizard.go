package ui

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/afero"

	"github.com/jonathan/jobaru/internal/config"
	"github.com/jonathan/jobaru/internal/ingestion"
)

// maxAttempts bounds how often a rejected answer is asked again.
const maxAttempts = 3

// RoleSuggester proposes job titles for a resume.
type RoleSuggester func(ctx context.Context, resume string) []string

// Wizard asks for the applicant settings a config is missing.
type Wizard struct {
	in  *LineReader
	out io.Writer
	fs  afero.Fs
}

// NewWizard creates a Wizard. Resume files are read from fs.
func NewWizard(in *LineReader, out io.Writer, fs afero.Fs) *Wizard {
	return &Wizard{in: in, out: out, fs: fs}
}

// Ask prints question and returns the trimmed answer, or def when the
// answer is empty.
func (w *Wizard) Ask(ctx context.Context, question, def string) (string, error) {
	if def != "" {
		fmt.Fprintf(w.out, "%s [%s]: ", question, def) //nolint:errcheck
	} else {
		fmt.Fprintf(w.out, "%s: ", question) //nolint:errcheck
	}
	line, err := w.in.ReadLine(ctx)
	if err != nil {
		return "", err
	}
	if answer := strings.TrimSpace(line); answer != "" {
		return answer, nil
	}
	return def, nil
}

// Run fills every missing applicant field of cfg and reports whether
// anything changed. suggest may be nil.
func (w *Wizard) Run(ctx context.Context, cfg *config.Config, suggest RoleSuggester) (bool, error) {
	changed := false
	fmt.Fprintln(w.out, "\n--- Jobaru Setup ---") //nolint:errcheck

	if cfg.ResumePath == "" || cfg.ResumeText == "" {
		if err := w.askResume(ctx, cfg); err != nil {
			return changed, err
		}
		changed = true
	}

	if cfg.JobRole == "" {
		def := ""
		if suggest != nil {
			roles := suggest(ctx, cfg.ResumeText)
			if len(roles) > 0 {
				fmt.Fprintf(w.out, "Suggested roles: %s\n", strings.Join(roles, ", ")) //nolint:errcheck
				def = roles[0]
			}
		}
		role, err := w.askRequired(ctx, "Target job role (e.g. Go Developer)", def)
		if err != nil {
			return changed, err
		}
		cfg.JobRole = role
		changed = true
	}

	if cfg.Location == "" {
		loc, err := w.askRequired(ctx, "Target location (e.g. Remote)", "")
		if err != nil {
			return changed, err
		}
		cfg.Location = loc
		changed = true
	}

	return changed, nil
}

func (w *Wizard) askResume(ctx context.Context, cfg *config.Config) error {
	path := cfg.ResumePath
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if path == "" {
			answer, err := w.Ask(ctx, "Path to your resume (.pdf, .txt or .md)", "")
			if err != nil {
				return err
			}
			path = answer
			if path == "" {
				continue
			}
		}
		text, _, err := ingestion.LoadResume(w.fs, path)
		if err != nil {
			fmt.Fprintf(w.out, "Could not use %s: %v\n", path, err) //nolint:errcheck
			path = ""
			continue
		}
		cfg.ResumePath, cfg.ResumeText = path, text
		return nil
	}
	return fmt.Errorf("no usable resume after %d attempts", maxAttempts)
}

func (w *Wizard) askRequired(ctx context.Context, question, def string) (string, error) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		answer, err := w.Ask(ctx, question, def)
		if err != nil {
			return "", err
		}
		if answer != "" {
			return answer, nil
		}
	}
	return "", fmt.Errorf("%s: no answer after %d attempts", strings.ToLower(question), maxAttempts)
}
