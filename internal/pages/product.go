package pages

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/adyen/marketprobe/internal/browser"
	"github.com/adyen/marketprobe/internal/config"
)

// ProductPage is a single listing
type ProductPage struct {
	base
}

// NewProductPage creates a product page object
func NewProductPage(page browser.Page, profile *config.SiteProfile, logger *zap.Logger) *ProductPage {
	return &ProductPage{base: newBase(page, profile, logger)}
}

// WaitForProduct waits for the listing URL. A page still on the interstitial
// returns ErrChallengePersisted so callers can skip. A page elsewhere on the
// site is accepted with a warning; WaitForTitle settles whether it is usable.
func (p *ProductPage) WaitForProduct(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := p.page.WaitForURL(p.onProduct, p.profile.Timeouts.ProductWait.D())
	if err != nil {
		url := p.page.URL()
		switch {
		case p.onInterstitial(url):
			p.logger.Info("Still on challenge page", zap.String("url", url))
			return ErrChallengePersisted
		case !p.onTargetDomain(url):
			return fmt.Errorf("%w: %s", ErrUnexpectedDomain, url)
		default:
			p.logger.Warn("Not on a listing URL, continuing", zap.String("url", url))
		}
	}

	if err := p.page.WaitForLoad(p.profile.Timeouts.Navigation.D()); err != nil {
		p.logger.Warn("Product page did not finish loading", zap.Error(err))
	}
	return nil
}

// WaitForTitle waits for the listing heading and returns it
func (p *ProductPage) WaitForTitle() (string, error) {
	heading := p.page.Locate(p.profile.Selectors.ProductTitle).First()
	if err := heading.WaitVisible(p.profile.Timeouts.SearchReady.D()); err != nil {
		return "", fmt.Errorf("%w: product title not found: %w", ErrNavigation, err)
	}
	title, err := heading.Text()
	if err != nil {
		return "", fmt.Errorf("failed to read product title: %w", err)
	}
	return strings.TrimSpace(title), nil
}

// DismissCookieBanner closes the cookie banner when one is showing
func (p *ProductPage) DismissCookieBanner() bool {
	banner := p.page.Locate(p.profile.Selectors.CookieBanner).First()
	if !banner.IsVisible() {
		return false
	}
	if err := banner.Click(browser.ClickOptions{Timeout: p.profile.Timeouts.Action.D()}); err != nil {
		p.logger.Info("Cookie banner click failed", zap.Error(err))
		return false
	}
	return true
}

// Price returns the listing's primary price text
func (p *ProductPage) Price() (string, error) {
	price := p.page.Locate(p.profile.Selectors.ProductPrice).First()
	if !price.IsVisible() {
		return "", fmt.Errorf("%w: product price not shown", ErrNavigation)
	}
	text, err := price.Text()
	if err != nil {
		return "", fmt.Errorf("failed to read product price: %w", err)
	}
	return strings.TrimSpace(text), nil
}
