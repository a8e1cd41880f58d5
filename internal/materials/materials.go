// Package materials asks the generation service for a fit analysis and
// application materials (cover letter, intro email) for one job.
package materials

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jonathan/jobaru/internal/llm"
	"github.com/jonathan/jobaru/internal/prompts"
	"github.com/jonathan/jobaru/internal/schemas"
)

const (
	promptFile = "application.json"

	// maxPromptChars bounds the resume and job description sent to the model.
	maxPromptChars = 4000
)

// FallbackRoles is returned by SuggestRoles when the model gives nothing usable.
var FallbackRoles = []string{"Python Developer"}

// FitAnalysis is the model's assessment of a resume against a job description.
type FitAnalysis struct {
	MatchScore    float64  `json:"match_score"`
	MatchedSkills []string `json:"matched_skills"`
	MissingSkills []string `json:"missing_skills"`
	Analysis      string   `json:"analysis"`
}

// Materials holds the generated application texts.
type Materials struct {
	CoverLetter string `json:"cover_letter"`
	IntroEmail  string `json:"intro_email"`
}

// Result bundles a full draft run.
type Result struct {
	Analysis  *FitAnalysis `json:"analysis"`
	Materials *Materials   `json:"materials"`
}

// GenerationError is a structured failure from the generation service.
type GenerationError struct {
	Op    string // analyze, generate, suggest-roles
	Cause error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Cause)
}

func (e *GenerationError) Unwrap() error {
	return e.Cause
}

// Analyze scores resume against jd.
func Analyze(ctx context.Context, client llm.Client, resume, jd string) (*FitAnalysis, error) {
	prompt := prompts.Format(prompts.MustGet(promptFile, "analyze-fit"), map[string]string{
		"Resume":         prompts.Truncate(resume, maxPromptChars),
		"JobDescription": prompts.Truncate(jd, maxPromptChars),
	})

	raw, err := requestJSON(ctx, client, prompt, schemas.FitAnalysis)
	if err != nil {
		return nil, &GenerationError{Op: "analyze", Cause: err}
	}

	var analysis FitAnalysis
	if err := json.Unmarshal(raw, &analysis); err != nil {
		return nil, &GenerationError{Op: "analyze", Cause: fmt.Errorf("failed to parse response: %w", err)}
	}
	return &analysis, nil
}

// Generate writes a cover letter and intro email. analysis may be nil.
func Generate(ctx context.Context, client llm.Client, resume, jd string, analysis *FitAnalysis) (*Materials, error) {
	var matched, missing []string
	if analysis != nil {
		matched, missing = analysis.MatchedSkills, analysis.MissingSkills
	}
	prompt := prompts.Format(prompts.MustGet(promptFile, "generate-materials"), map[string]string{
		"Resume":         prompts.Truncate(resume, maxPromptChars),
		"JobDescription": prompts.Truncate(jd, maxPromptChars),
		"MatchedSkills":  joinOr(matched, "none identified"),
		"MissingSkills":  joinOr(missing, "none identified"),
	})

	raw, err := requestJSON(ctx, client, prompt, schemas.Materials)
	if err != nil {
		return nil, &GenerationError{Op: "generate", Cause: err}
	}

	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, &GenerationError{Op: "generate", Cause: fmt.Errorf("failed to parse response: %w", err)}
	}
	return &Materials{
		CoverLetter: textValue(fields["cover_letter"]),
		IntroEmail:  textValue(fields["intro_email"]),
	}, nil
}

// SuggestRoles proposes job titles for resume. It never fails; on any
// problem it returns FallbackRoles.
func SuggestRoles(ctx context.Context, client llm.Client, resume string) []string {
	prompt := prompts.Format(prompts.MustGet(promptFile, "suggest-roles"), map[string]string{
		"Resume": prompts.Truncate(resume, maxPromptChars),
	})

	raw, err := requestJSON(ctx, client, prompt, schemas.Roles)
	if err != nil {
		return fallbackRoles()
	}
	var resp struct {
		Roles []string `json:"roles"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return fallbackRoles()
	}

	roles := make([]string, 0, len(resp.Roles))
	for _, r := range resp.Roles {
		if r = strings.TrimSpace(r); r != "" {
			roles = append(roles, r)
		}
	}
	if len(roles) == 0 {
		return fallbackRoles()
	}
	return roles
}

func requestJSON(ctx context.Context, client llm.Client, prompt, schema string) ([]byte, error) {
	if client == nil {
		return nil, llm.ErrNoAPIKey
	}
	resp, err := client.GenerateJSON(ctx, prompt, llm.TierStandard)
	if err != nil {
		return nil, fmt.Errorf("LLM generation failed: %w", err)
	}
	raw := []byte(llm.CleanJSONBlock(resp))
	if err := schemas.Validate(schema, raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// textValue flattens a model-supplied field into plain text. Objects are
// searched for a text or body member.
func textValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case map[string]any:
		for _, key := range []string{"text", "body"} {
			if s, ok := t[key].(string); ok && s != "" {
				return s
			}
		}
		b, _ := json.Marshal(t)
		return string(b)
	default:
		return fmt.Sprint(t)
	}
}

func joinOr(items []string, empty string) string {
	if len(items) == 0 {
		return empty
	}
	return strings.Join(items, ", ")
}

func fallbackRoles() []string {
	return append([]string(nil), FallbackRoles...)
}
