package ingestion

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	"github.com/jonathan/jobaru/internal/ledger"
	"github.com/jonathan/jobaru/internal/materials"
)

// DefaultDraftDir is where draft runs are written, one timestamped directory each.
const DefaultDraftDir = "applications"

// Draft file names inside a run directory.
const (
	CoverLetterFile = "cover_letter.md"
	EmailDraftFile  = "email_draft.txt"
	DataFile        = "data.json"
)

// DraftRecord is the content of data.json.
type DraftRecord struct {
	materials.Result
	Resume         *Metadata `json:"resume,omitempty"`
	JobDescription *Metadata `json:"job_description,omitempty"`
	CreatedAt      string    `json:"created_at"`
}

// WriteDraft writes a draft run under baseDir/<YYYYMMDD_HHMMSS>/ and returns
// the run directory.
func WriteDraft(fs afero.Fs, baseDir string, now time.Time, record DraftRecord) (string, error) {
	if baseDir == "" {
		baseDir = DefaultDraftDir
	}
	dir := filepath.Join(baseDir, now.Format("20060102_150405"))
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	var coverLetter, email string
	if record.Materials != nil {
		coverLetter, email = record.Materials.CoverLetter, record.Materials.IntroEmail
	}
	if record.CreatedAt == "" {
		record.CreatedAt = now.UTC().Format(time.RFC3339)
	}
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal draft data: %w", err)
	}

	files := []struct {
		name string
		data []byte
	}{
		{CoverLetterFile, []byte(coverLetter)},
		{EmailDraftFile, []byte(email)},
		{DataFile, data},
	}
	for _, f := range files {
		if err := ledger.WriteFileAtomic(fs, filepath.Join(dir, f.name), f.data); err != nil {
			return "", fmt.Errorf("failed to write %s: %w", f.name, err)
		}
	}
	return dir, nil
}
