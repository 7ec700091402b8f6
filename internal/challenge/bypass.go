// Package challenge gets a page past the site's anti-automation interstitial.
package challenge

import (
	"context"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/adyen/marketprobe/internal/browser"
	"github.com/adyen/marketprobe/internal/config"
	"github.com/adyen/marketprobe/internal/selector"
)

// State is a step of the bypass state machine
type State string

// Bypass states
const (
	StateNormal            State = "normal"
	StateDetected          State = "detected"
	StateRedirectAttempted State = "redirect_attempted"
	StateButtonProbe       State = "button_probe"
	StateAutoWait          State = "auto_wait"
	StateResolved          State = "resolved"
	StatePersisted         State = "persisted"
)

// Outcome is the terminal result of a bypass
type Outcome string

// Bypass outcomes. Persisted is a valid, non-fatal result.
const (
	Resolved  Outcome = "resolved"
	Persisted Outcome = "persisted"
)

// Result describes how a bypass went
type Result struct {
	Outcome     Outcome
	Trail       []State
	RedirectURL string
	Clicked     []string
}

// Options tunes the bypass. Zero values fall back to DefaultOptions.
type Options struct {
	Marker             string
	RedirectParam      string
	ContinueControls   selector.Candidates
	RedirectTimeout    time.Duration
	RedirectSettle     time.Duration
	ProbeTimeout       time.Duration
	ClickSettle        time.Duration
	AutoWait           time.Duration
	AutoWaitNoRedirect time.Duration
}

// DefaultOptions mirrors the interstitial's observed behaviour
func DefaultOptions() Options {
	return Options{
		Marker:        "challenge",
		RedirectParam: "ru",
		ContinueControls: selector.Candidates{
			`button:has-text("Continue")`,
			`button:has-text("Proceed")`,
			`button[type="submit"]`,
			`input[type="submit"]`,
			`a:has-text("Continue")`,
			`[data-testid="continue"]`,
			`button:visible`,
		},
		RedirectTimeout:    15 * time.Second,
		RedirectSettle:     2 * time.Second,
		ProbeTimeout:       1 * time.Second,
		ClickSettle:        3 * time.Second,
		AutoWait:           8 * time.Second,
		AutoWaitNoRedirect: 10 * time.Second,
	}
}

// Bypasser runs the bypass state machine
type Bypasser struct {
	opts     Options
	resolver *selector.Resolver
	logger   *zap.Logger
	sleep    func(ctx context.Context, d time.Duration) bool
}

// NewBypasser creates a bypasser; a nil logger discards output
func NewBypasser(opts Options, resolver *selector.Resolver, logger *zap.Logger) *Bypasser {
	if logger == nil {
		logger = zap.NewNop()
	}
	if resolver == nil {
		resolver = selector.NewResolver(logger)
	}
	return &Bypasser{
		opts:     withDefaults(opts),
		resolver: resolver,
		logger:   logger,
		sleep:    selector.Settle,
	}
}

func withDefaults(o Options) Options {
	d := DefaultOptions()
	if o.Marker == "" {
		o.Marker = d.Marker
	}
	if o.RedirectParam == "" {
		o.RedirectParam = d.RedirectParam
	}
	if o.ContinueControls == nil {
		o.ContinueControls = d.ContinueControls
	}
	durations := []struct {
		v   *time.Duration
		def time.Duration
	}{
		{&o.RedirectTimeout, d.RedirectTimeout},
		{&o.RedirectSettle, d.RedirectSettle},
		{&o.ProbeTimeout, d.ProbeTimeout},
		{&o.ClickSettle, d.ClickSettle},
		{&o.AutoWait, d.AutoWait},
		{&o.AutoWaitNoRedirect, d.AutoWaitNoRedirect},
	}
	for _, f := range durations {
		if *f.v <= 0 {
			*f.v = f.def
		}
	}
	return o
}

// IsInterstitial reports whether url is the challenge page
func (b *Bypasser) IsInterstitial(url string) bool {
	return strings.Contains(url, b.opts.Marker)
}

// Bypass walks Normal → Detected → RedirectAttempted → ButtonProbe → AutoWait
// and stops at the first state where the page is no longer an interstitial.
// It never fails; callers check Outcome.
func (b *Bypasser) Bypass(ctx context.Context, page browser.Page) Result {
	res := Result{Trail: []State{StateNormal}}

	if !b.IsInterstitial(page.URL()) {
		return b.finish(&res, Resolved)
	}

	res.Trail = append(res.Trail, StateDetected)
	b.logger.Info("Challenge page detected", zap.String("url", page.URL()))

	redirect, ok := RedirectTarget(page.URL(), b.opts.RedirectParam)
	if ok {
		res.RedirectURL = redirect
		res.Trail = append(res.Trail, StateRedirectAttempted)
		b.logger.Info("Navigating to embedded redirect", zap.String("redirect", redirect))

		if err := page.Navigate(redirect, b.opts.RedirectTimeout); err != nil {
			b.logger.Warn("Redirect navigation failed", zap.Error(err))
		}
		if !b.IsInterstitial(page.URL()) {
			return b.finish(&res, Resolved)
		}
		b.logger.Info("Still on challenge page after redirect")
		if !b.sleep(ctx, b.opts.RedirectSettle) {
			return b.finish(&res, Persisted)
		}
	} else {
		b.logger.Info("No usable redirect parameter on challenge page")
	}

	res.Trail = append(res.Trail, StateButtonProbe)
	if b.probeButtons(ctx, page, &res) {
		return b.finish(&res, Resolved)
	}
	if ctx.Err() != nil {
		return b.finish(&res, Persisted)
	}

	res.Trail = append(res.Trail, StateAutoWait)
	wait := b.opts.AutoWait
	if !ok {
		wait = b.opts.AutoWaitNoRedirect
	}
	b.logger.Info("Waiting for automatic challenge resolution", zap.Duration("timeout", wait))
	if err := page.WaitForURL(func(u string) bool { return !b.IsInterstitial(u) }, wait); err == nil {
		return b.finish(&res, Resolved)
	}

	return b.finish(&res, Persisted)
}

// probeButtons clicks each visible continue control in order and reports
// whether the page left the interstitial.
func (b *Bypasser) probeButtons(ctx context.Context, page browser.Page, res *Result) bool {
	for _, descriptor := range b.opts.ContinueControls {
		if ctx.Err() != nil {
			return false
		}
		el, ok := b.resolver.Probe(page, descriptor, b.opts.ProbeTimeout)
		if !ok {
			continue
		}

		b.logger.Info("Clicking challenge control", zap.String("descriptor", descriptor))
		if err := el.Click(browser.ClickOptions{Timeout: b.opts.ProbeTimeout}); err != nil {
			b.logger.Warn("Challenge control click failed", zap.String("descriptor", descriptor), zap.Error(err))
			continue
		}
		res.Clicked = append(res.Clicked, descriptor)

		if !b.sleep(ctx, b.opts.ClickSettle) {
			return false
		}
		if !b.IsInterstitial(page.URL()) {
			return true
		}
	}
	return false
}

func (b *Bypasser) finish(res *Result, outcome Outcome) Result {
	res.Outcome = outcome
	if outcome == Resolved {
		res.Trail = append(res.Trail, StateResolved)
		if len(res.Trail) > 2 {
			b.logger.Info("Challenge resolved", zap.Any("trail", res.Trail))
		}
	} else {
		res.Trail = append(res.Trail, StatePersisted)
		b.logger.Warn("Challenge page persists, continuing", zap.Any("trail", res.Trail))
	}
	return *res
}

// RedirectTarget extracts and decodes the return-URL parameter. Only absolute
// http(s) URLs are accepted; anything malformed reports false.
func RedirectTarget(rawURL, param string) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}
	// Query() drops pairs with bad escapes, which is what makes them "absent"
	target := u.Query().Get(param)
	if target == "" {
		return "", false
	}
	t, err := url.Parse(target)
	if err != nil || (t.Scheme != "http" && t.Scheme != "https") || t.Host == "" {
		return "", false
	}
	return target, true
}

// OptionsFromProfile builds bypass options from a site profile
func OptionsFromProfile(p *config.SiteProfile) Options {
	return Options{
		Marker:             p.ChallengeMarker,
		RedirectParam:      p.RedirectParam,
		ContinueControls:   p.Selectors.ChallengeContinue,
		RedirectTimeout:    p.Timeouts.Redirect.D(),
		RedirectSettle:     p.Timeouts.RedirectSettle.D(),
		ProbeTimeout:       p.Timeouts.ChallengeProbe.D(),
		ClickSettle:        p.Timeouts.ChallengeSettle.D(),
		AutoWait:           p.Timeouts.AutoWait.D(),
		AutoWaitNoRedirect: p.Timeouts.AutoWaitNoRedirect.D(),
	}
}
