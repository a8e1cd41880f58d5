package materials

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/jonathan/jobaru/internal/fetch"
	"github.com/jonathan/jobaru/internal/llm"
	"github.com/jonathan/jobaru/internal/types"
)

// ErrNoResumeText is returned when the profile carries no resume text to write from.
var ErrNoResumeText = errors.New("profile has no resume text")

// CoverLetterWriter produces a per-job cover letter from the job page markup.
// It satisfies apply.CoverLetterSource.
type CoverLetterWriter struct {
	client llm.Client
	logger *zap.Logger
}

// NewCoverLetterWriter creates a writer backed by client.
func NewCoverLetterWriter(client llm.Client, logger *zap.Logger) *CoverLetterWriter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CoverLetterWriter{client: client, logger: logger}
}

// CoverLetter analyzes fit and generates materials for posting, returning the cover letter.
func (w *CoverLetterWriter) CoverLetter(ctx context.Context, posting types.JobPosting, profile types.ApplicationProfile, pageMarkup string) (string, error) {
	if profile.ResumeText == "" {
		return "", ErrNoResumeText
	}
	jd, err := fetch.JobDescription(pageMarkup, posting.URL)
	if err != nil {
		return "", fmt.Errorf("failed to extract job description: %w", err)
	}

	analysis, err := Analyze(ctx, w.client, profile.ResumeText, jd)
	if err != nil {
		return "", err
	}
	w.logger.Info("fit analysis",
		zap.String("job_id", posting.ID),
		zap.Float64("match_score", analysis.MatchScore),
		zap.Strings("missing_skills", analysis.MissingSkills))

	mats, err := Generate(ctx, w.client, profile.ResumeText, jd, analysis)
	if err != nil {
		return "", err
	}
	if mats.CoverLetter == "" {
		return "", &GenerationError{Op: "generate", Cause: errors.New("empty cover letter")}
	}
	return mats.CoverLetter, nil
}
