package listing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/jobaru/internal/apply"
	"github.com/jonathan/jobaru/internal/types"
)

// Browser is the part of the browser session the search needs.
type Browser interface {
	Navigate(ctx context.Context, url string) error
	URL(ctx context.Context) (string, error)
	HTML(ctx context.Context) (string, error)
	ScrollElement(ctx context.Context, selector string, times int, pause time.Duration) error
}

// SearchOptions tunes the results scroll.
type SearchOptions struct {
	Scrolls     int
	ScrollPause time.Duration
}

// DefaultSearchOptions scrolls the results list 15 times, a second apart.
func DefaultSearchOptions() SearchOptions {
	return SearchOptions{Scrolls: 15, ScrollPause: time.Second}
}

// Searcher runs the search flow in the browser.
type Searcher struct {
	browser   Browser
	confirmer apply.Confirmer
	opts      SearchOptions
	logger    *zap.Logger
}

// NewSearcher creates a Searcher. confirmer is asked to wait while the human logs in.
func NewSearcher(browser Browser, confirmer apply.Confirmer, opts SearchOptions, logger *zap.Logger) *Searcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Searcher{browser: browser, confirmer: confirmer, opts: opts, logger: logger.Named("listing")}
}

// EnsureLoggedIn opens the feed and, when the site redirects to its login
// page, waits for the human to log in.
func (s *Searcher) EnsureLoggedIn(ctx context.Context) error {
	if err := s.browser.Navigate(ctx, FeedURL); err != nil {
		return err
	}
	loc, err := s.browser.URL(ctx)
	if err != nil {
		return err
	}
	if !strings.Contains(loc, "login") {
		s.logger.Info("Session is logged in")
		return nil
	}

	s.logger.Info("Login required")
	return s.confirmer.Confirm(ctx, apply.Pause{Reason: apply.PauseLogin})
}

// Search opens the results for role and location, scrolls to load more
// cards, and returns every posting found in page order.
func (s *Searcher) Search(ctx context.Context, role, location string) ([]types.JobPosting, error) {
	searchURL := SearchURL(role, location)
	s.logger.Info("Searching", zap.String("role", role), zap.String("location", location))

	if err := s.browser.Navigate(ctx, searchURL); err != nil {
		return nil, err
	}
	if err := s.browser.ScrollElement(ctx, ResultsListSelector, s.opts.Scrolls, s.opts.ScrollPause); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.logger.Warn("Scrolling results failed", zap.Error(err))
	}

	markup, err := s.browser.HTML(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read results: %w", err)
	}
	postings, err := ParseCards(markup)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Job cards found", zap.Int("cards", len(postings)))
	return postings, nil
}
