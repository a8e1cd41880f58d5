// Package ingestion loads resume and job description text and writes
// draft-mode application materials.
package ingestion

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/spf13/afero"
)

var (
	// ErrUnsupportedFormat is returned for resume files that are neither PDF nor plain text.
	ErrUnsupportedFormat = errors.New("unsupported resume format")
	// ErrUnreadablePDF is returned when a PDF cannot be parsed.
	ErrUnreadablePDF = errors.New("unreadable PDF")
	// ErrEmptyResume is returned when a resume file has no text after cleaning.
	ErrEmptyResume = errors.New("resume is empty")
)

// textExtensions are the resume formats read as-is.
var textExtensions = map[string]bool{
	".txt":      true,
	".text":     true,
	".md":       true,
	".markdown": true,
}

var (
	spaceRunRe     = regexp.MustCompile(`[ \t\f\v]+`)
	blankLineRunRe = regexp.MustCompile(`\n{3,}`)
	// Bullet glyphs that appear when a resume is copied out of a PDF or word processor.
	glyphBulletRe = regexp.MustCompile(`^[•·▪◦‣●]\s*`)
)

// CleanText normalizes line endings, collapses runs of spaces, rewrites
// bullet glyphs to "- " and limits blank lines to one in a row.
// Leading indentation is kept so nested lists survive.
func CleanText(content string) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = cleanLine(line)
	}
	out := blankLineRunRe.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(out)
}

func cleanLine(line string) string {
	body := strings.TrimLeft(line, " \t")
	if strings.TrimSpace(body) == "" {
		return ""
	}
	indent := line[:len(line)-len(body)]
	indent = strings.ReplaceAll(indent, "\t", "    ")

	body = glyphBulletRe.ReplaceAllString(body, "- ")
	body = spaceRunRe.ReplaceAllString(strings.TrimRight(body, " \t"), " ")
	return indent + body
}

// LoadResume reads and cleans a PDF, plain-text or Markdown resume. The file
// itself is left untouched so a PDF can still be uploaded as is.
func LoadResume(fs afero.Fs, path string) (string, *Metadata, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".pdf" && !textExtensions[ext] {
		return "", nil, fmt.Errorf("%w: %q (use .pdf, .txt or .md)", ErrUnsupportedFormat, ext)
	}

	content, err := afero.ReadFile(fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil, fmt.Errorf("resume not found: %w", err)
		}
		return "", nil, fmt.Errorf("failed to read resume: %w", err)
	}

	raw := string(content)
	if ext == ".pdf" {
		if raw, err = pdfText(content); err != nil {
			return "", nil, fmt.Errorf("%w: %s: %v", ErrUnreadablePDF, path, err)
		}
	}

	text := CleanText(raw)
	if text == "" {
		return "", nil, fmt.Errorf("%w: %s", ErrEmptyResume, path)
	}
	return text, NewMetadata(text, path), nil
}

// pdfText returns the text layer of a PDF. Scanned pages have none and
// yield an empty string.
func pdfText(content []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed document: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", err
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", err
	}
	data, err := io.ReadAll(plain)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
