package ingestion

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/afero"

	"github.com/jonathan/jobaru/internal/fetch"
)

// SourceInline marks job description text given directly on the command line.
const SourceInline = "inline"

// LoadJobDescription resolves source to job description text. source may be
// an http(s) URL, a path to a text file, or the description itself.
func LoadJobDescription(ctx context.Context, fs afero.Fs, source string, opts *fetch.Options) (string, *Metadata, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return "", nil, fmt.Errorf("job description is empty")
	}

	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		result, err := fetch.JobPage(ctx, source, opts)
		if err != nil {
			return "", nil, err
		}
		text := CleanText(result.Text)
		meta := NewMetadata(text, source)
		meta.Platform = string(fetch.DetectPlatform(source))
		return text, meta, nil
	}

	if ok, _ := afero.Exists(fs, source); ok {
		content, err := afero.ReadFile(fs, source)
		if err != nil {
			return "", nil, fmt.Errorf("failed to read job description: %w", err)
		}
		text := CleanText(string(content))
		return text, NewMetadata(text, source), nil
	}

	text := CleanText(source)
	return text, NewMetadata(text, SourceInline), nil
}
