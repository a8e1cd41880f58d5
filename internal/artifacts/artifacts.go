// Package artifacts saves a screenshot and the page markup when an attempt fails.
package artifacts

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// DefaultDir is where captures are written unless configured otherwise.
const DefaultDir = "applications/debug_html"

// Page is what a capture reads from the browser.
type Page interface {
	Screenshot(ctx context.Context) ([]byte, error)
	HTML(ctx context.Context) (string, error)
}

// Paths lists the files one capture wrote. A field is empty when that half failed.
type Paths struct {
	Screenshot string
	Markup     string
}

// Empty reports whether nothing was written.
func (p Paths) Empty() bool {
	return p.Screenshot == "" && p.Markup == ""
}

// Capturer writes capture pairs under a directory.
type Capturer struct {
	fs     afero.Fs
	page   Page
	dir    string
	now    func() time.Time
	logger *zap.Logger
}

// New creates a Capturer writing to dir on fs.
func New(fs afero.Fs, page Page, dir string, logger *zap.Logger) *Capturer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dir == "" {
		dir = DefaultDir
	}
	return &Capturer{
		fs:     fs,
		page:   page,
		dir:    dir,
		now:    time.Now,
		logger: logger.Named("artifacts"),
	}
}

// Capture writes <label>_<YYYYMMDD_HHMMSS>.png and .html, with a _2, _3...
// suffix when that name is already taken. Failures are logged and swallowed
// so the failure being diagnosed stays the one reported.
func (c *Capturer) Capture(ctx context.Context, label string) Paths {
	var paths Paths

	if err := c.fs.MkdirAll(c.dir, 0o755); err != nil {
		c.logger.Warn("Failed to create debug directory", zap.String("dir", c.dir), zap.Error(err))
		return paths
	}

	base := c.base(label)

	if shot, err := c.page.Screenshot(ctx); err != nil {
		c.logger.Warn("Screenshot failed", zap.String("label", label), zap.Error(err))
	} else if err := afero.WriteFile(c.fs, base+".png", shot, 0o644); err != nil {
		c.logger.Warn("Failed to write screenshot", zap.Error(err))
	} else {
		paths.Screenshot = base + ".png"
	}

	if markup, err := c.page.HTML(ctx); err != nil {
		c.logger.Warn("Markup capture failed", zap.String("label", label), zap.Error(err))
	} else if err := afero.WriteFile(c.fs, base+".html", []byte(markup), 0o644); err != nil {
		c.logger.Warn("Failed to write markup", zap.Error(err))
	} else {
		paths.Markup = base + ".html"
	}

	if !paths.Empty() {
		c.logger.Info("Debug artifacts saved",
			zap.String("label", label),
			zap.String("screenshot", paths.Screenshot),
			zap.String("markup", paths.Markup))
	}
	return paths
}

func (c *Capturer) base(label string) string {
	stem := filepath.Join(c.dir, fmt.Sprintf("%s_%s", label, c.now().Format("20060102_150405")))
	base := stem
	for n := 2; c.taken(base); n++ {
		base = fmt.Sprintf("%s_%d", stem, n)
	}
	return base
}

func (c *Capturer) taken(base string) bool {
	for _, ext := range []string{".png", ".html"} {
		if ok, _ := afero.Exists(c.fs, base+ext); ok {
			return true
		}
	}
	return false
}
