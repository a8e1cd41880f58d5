package observability

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jonathan/jobaru/internal/apply"
	"github.com/jonathan/jobaru/internal/materials"
	"github.com/jonathan/jobaru/internal/session"
	"github.com/jonathan/jobaru/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer writes boxed, human-readable output for the operator.
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

//nolint:errcheck // terminal output; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	inner := boxWidth - 4
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %s │\n", pad(title, inner))
	fmt.Fprintf(p.out, "├%s┤\n", border)
	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %s │\n", pad(line, inner))
	}
	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// pad fits s into exactly width runes, truncating with "...".
func pad(s string, width int) string {
	r := []rune(s)
	if len(r) > width {
		return string(r[:width-3]) + "..."
	}
	return s + strings.Repeat(" ", width-len(r))
}

// PrintPause shows why the run stopped and what the operator should do.
func (p *Printer) PrintPause(pause apply.Pause) {
	var sb strings.Builder
	if pause.Title != "" || pause.Company != "" {
		fmt.Fprintf(&sb, "Job:     %s @ %s\n", pause.Title, pause.Company)
	}
	if pause.Step > 0 {
		fmt.Fprintf(&sb, "Step:    %d\n", pause.Step)
	}
	if pause.Action != "" {
		fmt.Fprintf(&sb, "Action:  %s\n", pause.Action)
	}
	for i, d := range pause.Detail {
		if i == maxItemsToShow {
			fmt.Fprintf(&sb, "  ... and %d more\n", len(pause.Detail)-maxItemsToShow)
			break
		}
		fmt.Fprintf(&sb, "  • %s\n", d)
	}
	sb.WriteString(strings.Join(wrap(pause.Reason.Prompt(), boxWidth-4), "\n"))

	p.printBox(fmt.Sprintf("PAUSED #%d: %s", pause.Seq, strings.ToUpper(string(pause.Reason))), sb.String())
}

// PrintAnalysis outputs the fit analysis for one job.
func (p *Printer) PrintAnalysis(analysis *materials.FitAnalysis) {
	if analysis == nil {
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Match score: %.0f/100\n", analysis.MatchScore)
	writeList(&sb, "Matched", analysis.MatchedSkills)
	writeList(&sb, "Missing", analysis.MissingSkills)
	if analysis.Analysis != "" {
		sb.WriteString("\n")
		for _, line := range wrap(analysis.Analysis, boxWidth-4) {
			sb.WriteString(line + "\n")
		}
	}
	p.printBox("FIT ANALYSIS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintRoles lists suggested job titles.
func (p *Printer) PrintRoles(roles []string) {
	var sb strings.Builder
	for i, r := range roles {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, r)
	}
	p.printBox("SUGGESTED ROLES", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintPostings lists discovered postings, marking the ones already processed.
func (p *Printer) PrintPostings(postings []types.JobPosting, processed func(id string) bool) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d postings\n", len(postings))
	for _, jp := range postings {
		mark := " "
		if processed != nil && processed(jp.ID) {
			mark = "✓"
		}
		fmt.Fprintf(&sb, "%s %s @ %s\n", mark, jp.Title, jp.Company)
	}
	p.printBox("SEARCH RESULTS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintSummary outputs the end-of-run counts.
func (p *Printer) PrintSummary(summary session.Summary) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Discovered: %d\n", summary.Discovered)
	fmt.Fprintf(&sb, "Skipped:    %d (already processed)\n", summary.Skipped)
	fmt.Fprintf(&sb, "Attempted:  %d\n", summary.Attempted)
	if summary.Failed > 0 {
		fmt.Fprintf(&sb, "Failed:     %d (will be retried next run)\n", summary.Failed)
	}

	outcomes := make([]string, 0, len(summary.Outcomes))
	for o := range summary.Outcomes {
		outcomes = append(outcomes, string(o))
	}
	sort.Strings(outcomes)
	if len(outcomes) > 0 {
		sb.WriteString("\n")
	}
	for _, o := range outcomes {
		fmt.Fprintf(&sb, "  %-22s %d\n", o, summary.Outcomes[types.AttemptOutcome(o)])
	}
	if summary.CapReached {
		sb.WriteString("\nNew-job cap reached; remaining postings left for the next run.")
	}
	p.printBox("RUN SUMMARY", strings.TrimSuffix(sb.String(), "\n"))
}

func writeList(sb *strings.Builder, label string, items []string) {
	if len(items) == 0 {
		fmt.Fprintf(sb, "%s: none\n", label)
		return
	}
	shown := items[:min(len(items), maxItemsToShow)]
	fmt.Fprintf(sb, "%s: %s", label, strings.Join(shown, ", "))
	if len(items) > maxItemsToShow {
		fmt.Fprintf(sb, " (+%d more)", len(items)-maxItemsToShow)
	}
	sb.WriteString("\n")
}

// wrap breaks text into lines of at most width runes on word boundaries.
func wrap(text string, width int) []string {
	var lines []string
	var line []rune
	for _, word := range strings.Fields(text) {
		w := []rune(word)
		if len(line) > 0 && len(line)+1+len(w) > width {
			lines = append(lines, string(line))
			line = nil
		}
		if len(line) > 0 {
			line = append(line, ' ')
		}
		line = append(line, w...)
	}
	if len(line) > 0 {
		lines = append(lines, string(line))
	}
	return lines
}
