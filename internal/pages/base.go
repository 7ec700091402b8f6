// Package pages wraps the site's home, search results and product pages.
package pages

import (
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/adyen/marketprobe/internal/browser"
	"github.com/adyen/marketprobe/internal/config"
)

var (
	// ErrNavigation is returned when the browser could not reach the expected page
	ErrNavigation = errors.New("navigation failed")
	// ErrUnexpectedDomain is returned when a click lands outside the target site
	ErrUnexpectedDomain = errors.New("landed outside the target site")
	// ErrChallengePersisted is returned when the product page is still an interstitial
	ErrChallengePersisted = errors.New("still on challenge page")
)

type base struct {
	page    browser.Page
	profile *config.SiteProfile
	logger  *zap.Logger
}

func newBase(page browser.Page, profile *config.SiteProfile, logger *zap.Logger) base {
	if logger == nil {
		logger = zap.NewNop()
	}
	return base{page: page, profile: profile, logger: logger}
}

// Page returns the underlying browsing context
func (b base) Page() browser.Page {
	return b.page
}

func (b base) onInterstitial(url string) bool {
	return strings.Contains(url, b.profile.ChallengeMarker)
}

func (b base) onProduct(url string) bool {
	return strings.Contains(url, b.profile.ProductURLMarker)
}

func (b base) onTargetDomain(url string) bool {
	return strings.Contains(url, b.profile.TargetDomain)
}
