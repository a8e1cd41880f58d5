// Package browser drives a single Chrome session through the DevTools protocol.
package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/jobaru/internal/form"
)

// DefaultUserAgent is sent by the automated browser.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Options configures the browser session.
type Options struct {
	Headless      bool
	UserAgent     string
	ActionTimeout time.Duration // bound for a single click / type / lookup
	SettleDelay   time.Duration // pause after navigation
	UserDataDir   string        // keeps the login between runs when set
}

// DefaultOptions returns sensible defaults for an interactive session.
func DefaultOptions() Options {
	return Options{
		Headless:      false,
		UserAgent:     DefaultUserAgent,
		ActionTimeout: 10 * time.Second,
		SettleDelay:   2 * time.Second,
	}
}

// Session is one browser window (plus any tabs it spawns).
// It is operated from a single goroutine.
type Session struct {
	ctx     context.Context
	cancel  context.CancelFunc
	opts    Options
	logger  *zap.Logger
	cancels []context.CancelFunc
}

// NewSession launches Chrome and opens the first tab.
// Requires Chrome/Chromium to be installed on the system.
func NewSession(parent context.Context, opts Options, logger *zap.Logger) (*Session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.ActionTimeout == 0 {
		opts.ActionTimeout = DefaultOptions().ActionTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("start-maximized", true),
		chromedp.UserAgent(opts.UserAgent),
	)
	if opts.UserDataDir != "" {
		allocOpts = append(allocOpts, chromedp.UserDataDir(opts.UserDataDir))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(parent, allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	id := uuid.New().String()
	s := &Session{
		ctx:     browserCtx,
		cancel:  browserCancel,
		opts:    opts,
		logger:  logger.Named("browser").With(zap.String("session_id", id)),
		cancels: []context.CancelFunc{allocCancel},
	}

	// Starts the browser and attaches to the first tab.
	if err := chromedp.Run(browserCtx); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	s.logger.Info("Browser session started", zap.Bool("headless", opts.Headless))
	return s, nil
}

// Close shuts down the browser.
func (s *Session) Close() {
	s.cancel()
	for i := len(s.cancels) - 1; i >= 0; i-- {
		s.cancels[i]()
	}
	s.logger.Info("Browser session closed")
}

// bounded derives the context for one exchange with the browser: it carries the
// session tab, expires after timeout and ends early when the caller's ctx does.
func (s *Session) bounded(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	opCtx, cancel := context.WithTimeout(s.ctx, timeout)
	stop := context.AfterFunc(ctx, cancel)
	return opCtx, func() {
		stop()
		cancel()
	}
}

// run executes actions against the session tab, bounded by the action timeout.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := s.bounded(ctx, s.opts.ActionTimeout)
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}

// Navigate loads url and waits for the body plus the settle delay.
func (s *Session) Navigate(ctx context.Context, url string) error {
	s.logger.Debug("Navigating", zap.String("url", url))

	navCtx, cancel := s.bounded(ctx, 30*time.Second+s.opts.SettleDelay)
	defer cancel()

	err := chromedp.Run(navCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(s.opts.SettleDelay),
	)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

// URL returns the location of the session tab.
func (s *Session) URL(ctx context.Context) (string, error) {
	var loc string
	if err := s.run(ctx, chromedp.Location(&loc)); err != nil {
		return "", fmt.Errorf("failed to read location: %w", err)
	}
	return loc, nil
}

// HTML returns the raw markup of the current document.
func (s *Session) HTML(ctx context.Context) (string, error) {
	var html string
	if err := s.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("failed to read page markup: %w", err)
	}
	return html, nil
}

// Snapshot annotates the live DOM with element references, visibility and
// current values, then returns the annotated markup. References are only
// valid until the next Snapshot.
func (s *Session) Snapshot(ctx context.Context) (string, error) {
	var count int
	var html string
	err := s.run(ctx,
		chromedp.Evaluate(form.AnnotateScript, &count),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("failed to snapshot page: %w", err)
	}
	s.logger.Debug("Snapshot taken", zap.Int("elements", count), zap.Int("bytes", len(html)))
	return html, nil
}

// Click clicks the element matching selector.
func (s *Session) Click(ctx context.Context, selector string) error {
	err := s.run(ctx,
		chromedp.ScrollIntoView(selector, chromedp.ByQuery),
		chromedp.Click(selector, chromedp.ByQuery, chromedp.NodeVisible),
	)
	return wrapLookup(ctx, "click", selector, err)
}

// ScriptClick clicks through element.click(), for controls covered by overlays.
func (s *Session) ScriptClick(ctx context.Context, selector string) error {
	var ok bool
	script := fmt.Sprintf(`(() => { const el = document.querySelector(%q); if (!el) return false; el.click(); return true; })()`, selector)
	if err := s.run(ctx, chromedp.Evaluate(script, &ok)); err != nil {
		return wrapLookup(ctx, "script-click", selector, err)
	}
	if !ok {
		return &LookupError{Selector: selector, Action: "script-click"}
	}
	return nil
}

// SetValue replaces the text of an input or textarea.
func (s *Session) SetValue(ctx context.Context, selector, text string) error {
	err := s.run(ctx,
		chromedp.ScrollIntoView(selector, chromedp.ByQuery),
		chromedp.SetValue(selector, "", chromedp.ByQuery),
		chromedp.SendKeys(selector, text, chromedp.ByQuery),
	)
	return wrapLookup(ctx, "type", selector, err)
}

// Upload attaches the file at path to a file input. Hidden inputs are accepted.
func (s *Session) Upload(ctx context.Context, selector, path string) error {
	err := s.run(ctx, chromedp.SetUploadFiles(selector, []string{path}, chromedp.ByQuery))
	return wrapLookup(ctx, "upload", selector, err)
}

// Screenshot captures the full page as PNG.
func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := s.run(ctx, chromedp.FullScreenshot(&buf, 100)); err != nil {
		return nil, fmt.Errorf("failed to capture screenshot: %w", err)
	}
	return buf, nil
}

// ScrollElement scrolls a scrollable container, falling back to the window
// when selector matches nothing.
func (s *Session) ScrollElement(ctx context.Context, selector string, times int, pause time.Duration) error {
	script := fmt.Sprintf(`(() => {
		const el = document.querySelector(%q);
		if (el) { el.scrollTop = el.scrollTop + 1000; return true; }
		window.scrollTo(0, document.body.scrollHeight);
		return false;
	})()`, selector)

	for i := 0; i < times; i++ {
		var found bool
		if err := s.run(ctx, chromedp.Evaluate(script, &found)); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("failed to scroll: %w", err)
		}
		if err := sleep(ctx, pause); err != nil {
			return err
		}
	}
	return nil
}

// pageTargets lists the open tabs of this browser.
func (s *Session) pageTargets(ctx context.Context) ([]*target.Info, error) {
	opCtx, cancel := s.bounded(ctx, s.opts.ActionTimeout)
	defer cancel()

	infos, err := chromedp.Targets(opCtx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("failed to list browser targets: %w", err)
	}
	var pages []*target.Info
	for _, info := range infos {
		if info.Type == "page" {
			pages = append(pages, info)
		}
	}
	return pages, nil
}

// BrowsingContexts returns the number of open tabs.
func (s *Session) BrowsingContexts(ctx context.Context) (int, error) {
	pages, err := s.pageTargets(ctx)
	if err != nil {
		return 0, err
	}
	return len(pages), nil
}

// CloseSecondaryContexts closes every tab except the session tab and focuses it again.
func (s *Session) CloseSecondaryContexts(ctx context.Context) error {
	pages, err := s.pageTargets(ctx)
	if err != nil {
		return err
	}

	c := chromedp.FromContext(s.ctx)
	if c == nil || c.Target == nil || c.Browser == nil {
		return fmt.Errorf("browser session is not attached")
	}
	own := c.Target.TargetID
	opCtx, cancel := s.bounded(ctx, s.opts.ActionTimeout)
	defer cancel()
	exec := cdp.WithExecutor(opCtx, c.Browser)

	for _, p := range pages {
		if p.TargetID == own {
			continue
		}
		s.logger.Info("Closing secondary browsing context", zap.String("url", p.URL))
		if err := target.CloseTarget(p.TargetID).Do(exec); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("failed to close target %s: %w", p.TargetID, err)
		}
	}

	if err := target.ActivateTarget(own).Do(exec); err != nil {
		return fmt.Errorf("failed to refocus session tab: %w", err)
	}
	return nil
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
