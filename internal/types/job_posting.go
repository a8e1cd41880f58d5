// Package types provides type definitions for structured data used throughout the jobaru system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import "regexp"

// jobIDPatterns are tried in order; the first capture wins.
var jobIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`view/(\d+)`),
	regexp.MustCompile(`currentJobId=(\d+)`),
}

// JobPosting represents a single job listing discovered by a search
type JobPosting struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Company string `json:"company"`
	URL     string `json:"url"`
}

// NewJobPosting builds a JobPosting whose ID is derived from url.
func NewJobPosting(title, company, url string) JobPosting {
	return JobPosting{
		ID:      ExtractJobID(url),
		Title:   title,
		Company: company,
		URL:     url,
	}
}

// ExtractJobID returns the stable numeric job token embedded in a posting URL.
// Query parameters other than currentJobId do not affect the result.
// If no known URL shape matches, the full URL is returned unchanged.
func ExtractJobID(url string) string {
	for _, re := range jobIDPatterns {
		if m := re.FindStringSubmatch(url); m != nil {
			return m[1]
		}
	}
	return url
}
