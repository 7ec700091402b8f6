// Package artifacts writes screenshots and HTML snapshots of a page.
package artifacts

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/adyen/marketprobe/internal/browser"
)

// Capture lists the files written for one page. Empty paths were not written.
type Capture struct {
	Screenshot string
	HTML       string
}

// Writer saves artifacts into a directory
type Writer struct {
	dir    string
	logger *zap.Logger
	now    func() time.Time
}

// NewWriter creates a writer for dir; the directory is created on first use
func NewWriter(dir string, logger *zap.Logger) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{dir: dir, logger: logger, now: time.Now}
}

// Stem returns "<name>-<timestamp>" with the ISO8601 timestamp made file-safe
func Stem(name string, at time.Time) string {
	ts := at.UTC().Format("2006-01-02T15:04:05.000Z")
	ts = strings.NewReplacer(":", "-", ".", "-").Replace(ts)
	return name + "-" + ts
}

// Capture takes a full-page screenshot and saves the page HTML. Engines that
// cannot screenshot still get the HTML.
func (w *Writer) Capture(page browser.Page, name string) (Capture, error) {
	var c Capture
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return c, fmt.Errorf("failed to create artifacts dir: %w", err)
	}
	stem := filepath.Join(w.dir, Stem(name, w.now()))

	var errs []error
	shot := stem + ".png"
	switch err := page.Screenshot(shot); {
	case err == nil:
		c.Screenshot = shot
	case errors.Is(err, browser.ErrUnsupported):
	default:
		errs = append(errs, fmt.Errorf("failed to take screenshot: %w", err))
	}

	html, err := page.Content()
	if err != nil {
		errs = append(errs, fmt.Errorf("failed to read page content: %w", err))
	} else if err := os.WriteFile(stem+".html", []byte(html), 0644); err != nil {
		errs = append(errs, fmt.Errorf("failed to write HTML snapshot: %w", err))
	} else {
		c.HTML = stem + ".html"
	}

	w.logger.Info("Captured artifacts",
		zap.String("screenshot", c.Screenshot), zap.String("html", c.HTML), zap.String("url", page.URL()))
	return c, errors.Join(errs...)
}
