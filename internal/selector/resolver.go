// Package selector resolves one logical UI element from an ordered list of
// alternative descriptors.
package selector

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/adyen/marketprobe/internal/browser"
)

// Candidates is an ordered list of ways to find the same element; first match wins
type Candidates []string

// Match is the element a resolution settled on
type Match struct {
	Element    browser.Element
	Descriptor string
	Index      int
}

// Resolver probes candidates for visibility. It never clicks.
type Resolver struct {
	logger *zap.Logger
}

// NewResolver creates a resolver; a nil logger discards output
func NewResolver(logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{logger: logger}
}

// Resolve returns the first candidate that becomes visible within perCandidate.
// It reports false once every candidate is exhausted or ctx is done, so the
// total wait is bounded by len(candidates) * perCandidate.
func (r *Resolver) Resolve(ctx context.Context, page browser.Page, candidates Candidates, perCandidate time.Duration) (Match, bool) {
	for i, descriptor := range candidates {
		if ctx.Err() != nil {
			r.logger.Warn("Resolution cancelled", zap.Int("tried", i), zap.Error(ctx.Err()))
			return Match{}, false
		}
		if el, ok := r.Probe(page, descriptor, perCandidate); ok {
			if i > 0 {
				r.logger.Info("Resolved with fallback descriptor",
					zap.String("descriptor", descriptor), zap.Int("index", i))
			}
			return Match{Element: el, Descriptor: descriptor, Index: i}, true
		}
	}
	r.logger.Info("No candidate matched", zap.Strings("candidates", candidates))
	return Match{}, false
}

// Probe checks a single descriptor. Probe errors count as not visible.
func (r *Resolver) Probe(page browser.Page, descriptor string, timeout time.Duration) (browser.Element, bool) {
	el := page.Locate(descriptor).First()
	if err := el.WaitVisible(timeout); err != nil {
		return nil, false
	}
	return el, true
}

// Settle sleeps for d or until ctx is done; false means interrupted
func Settle(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
