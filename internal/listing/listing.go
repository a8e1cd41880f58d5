// Package listing finds candidate postings on the job search page.
package listing

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonathan/jobaru/internal/types"
)

const (
	siteBase   = "https://www.linkedin.com"
	searchPath = "/jobs/search/"
	// FeedURL is opened to check whether the session is logged in.
	FeedURL = siteBase + "/feed/"
)

// Selectors for the search results page.
const (
	ResultsListSelector = ".jobs-search-results-list"
	cardSelector        = ".job-card-container, li.jobs-search-results__list-item"
	companySelector     = ".job-card-container__company-name"
)

// titleSelectors are tried in order for the card's title link.
var titleSelectors = []string{
	"a.job-card-list__title",
	"a.base-card__full-link",
	"a.job-card-container__link",
	".job-card-list__title",
}

// SearchURL builds the search for role in location, newest first, posted in the last day.
func SearchURL(role, location string) string {
	return fmt.Sprintf("%s%s?keywords=%s&location=%s&sortBy=DD&f_TPR=r86400",
		siteBase, searchPath, url.QueryEscape(role), url.QueryEscape(location))
}

// ParseCards extracts postings from search results markup in page order.
// Cards without a title link are skipped and repeated ids are kept once.
func ParseCards(markup string) ([]types.JobPosting, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, &ParseError{Message: "failed to parse results page", Cause: err}
	}

	var postings []types.JobPosting
	seen := make(map[string]bool)
	doc.Find(cardSelector).Each(func(_ int, card *goquery.Selection) {
		anchor, href := titleLink(card)
		if href == "" {
			return
		}
		p := types.NewJobPosting(cardTitle(anchor), cardCompany(card), resolve(href))
		if seen[p.ID] {
			return
		}
		seen[p.ID] = true
		postings = append(postings, p)
	})
	return postings, nil
}

// Fresh keeps postings not yet processed, up to limit (0 means no limit).
func Fresh(postings []types.JobPosting, processed func(id string) bool, limit int) []types.JobPosting {
	var out []types.JobPosting
	for _, p := range postings {
		if limit > 0 && len(out) >= limit {
			break
		}
		if processed != nil && processed(p.ID) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func titleLink(card *goquery.Selection) (*goquery.Selection, string) {
	for _, sel := range titleSelectors {
		a := card.Find(sel).First()
		if href, ok := a.Attr("href"); ok && strings.TrimSpace(href) != "" {
			return a, strings.TrimSpace(href)
		}
	}
	return nil, ""
}

func cardTitle(anchor *goquery.Selection) string {
	if title := strings.Join(strings.Fields(anchor.Text()), " "); title != "" {
		return title
	}
	if label, ok := anchor.Attr("aria-label"); ok && strings.TrimSpace(label) != "" {
		return strings.TrimSpace(label)
	}
	return "Unknown Role"
}

func cardCompany(card *goquery.Selection) string {
	if company := strings.TrimSpace(card.Find(companySelector).First().Text()); company != "" {
		return company
	}
	return "Unknown"
}

// resolve makes site-relative links absolute.
func resolve(href string) string {
	u, err := url.Parse(href)
	if err != nil || u.IsAbs() {
		return href
	}
	base, _ := url.Parse(siteBase)
	return base.ResolveReference(u).String()
}
