// Package purchase drives the buy-now and add-to-cart flows on a product page.
package purchase

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/adyen/marketprobe/internal/browser"
	"github.com/adyen/marketprobe/internal/config"
	"github.com/adyen/marketprobe/internal/selector"
)

// Outcome is the result of a purchase flow
type Outcome string

// Purchase flow outcomes. Only Completed means the flow went all the way.
const (
	Completed                   Outcome = "completed"
	SkippedNoButton             Outcome = "skipped_no_button"
	SkippedVerificationRequired Outcome = "skipped_verification_required"
)

// Skipped reports whether the flow ended early for a site-variability reason
func (o Outcome) Skipped() bool {
	return o == SkippedNoButton || o == SkippedVerificationRequired
}

// Reason is a human readable explanation for skipped outcomes
func (o Outcome) Reason() string {
	switch o {
	case SkippedNoButton:
		return "required purchase control not present for this listing"
	case SkippedVerificationRequired:
		return "site asked for identity verification"
	default:
		return ""
	}
}

// Driver sequences the purchase flows
type Driver struct {
	selectors config.Selectors
	timeouts  config.Timeouts
	resolver  *selector.Resolver
	logger    *zap.Logger
}

// NewDriver creates a driver for the given site profile
func NewDriver(profile *config.SiteProfile, resolver *selector.Resolver, logger *zap.Logger) *Driver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if resolver == nil {
		resolver = selector.NewResolver(logger)
	}
	return &Driver{
		selectors: profile.Selectors,
		timeouts:  profile.Timeouts,
		resolver:  resolver,
		logger:    logger,
	}
}

// RunBuyNowFlow clicks Buy It Now, then the optional guest checkout link, then
// looks for a verification prompt.
func (d *Driver) RunBuyNowFlow(ctx context.Context, page browser.Page) Outcome {
	if !d.required(ctx, page, "Buy It Now", d.selectors.BuyItNow) {
		return SkippedNoButton
	}
	d.optional(ctx, page, "Check out as guest", d.selectors.GuestCheckout)

	return d.verify(ctx, page, d.timeouts.VerificationBuyNow.D())
}

// RunAddToCartFlow clicks Add to cart, then the optional See in cart link, then
// looks for a verification prompt.
func (d *Driver) RunAddToCartFlow(ctx context.Context, page browser.Page) Outcome {
	if !d.required(ctx, page, "Add to cart", d.selectors.AddToCart) {
		return SkippedNoButton
	}
	d.optional(ctx, page, "See in cart", d.selectors.SeeInCart)

	return d.verify(ctx, page, d.timeouts.VerificationCart.D())
}

// ItemAvailable reports false when any sold-out indicator is visible
func (d *Driver) ItemAvailable(ctx context.Context, page browser.Page) bool {
	for _, descriptor := range d.selectors.SoldOut {
		if ctx.Err() != nil {
			break
		}
		if page.Locate(descriptor).First().IsVisible() {
			d.logger.Info("Item appears to be sold out or unavailable", zap.String("indicator", descriptor))
			return false
		}
	}
	return true
}

func (d *Driver) required(ctx context.Context, page browser.Page, control string, candidates selector.Candidates) bool {
	match, ok := d.resolver.Resolve(ctx, page, candidates, d.timeouts.Action.D())
	if !ok {
		d.logger.Info("Control not available, skipping", zap.String("control", control))
		return false
	}
	if err := match.Element.Click(browser.ClickOptions{Timeout: d.timeouts.Action.D()}); err != nil {
		d.logger.Warn("Control click failed, skipping",
			zap.String("control", control), zap.String("descriptor", match.Descriptor), zap.Error(err))
		return false
	}
	d.logger.Info("Clicked control", zap.String("control", control), zap.String("descriptor", match.Descriptor))
	return true
}

func (d *Driver) optional(ctx context.Context, page browser.Page, control string, candidates selector.Candidates) {
	match, ok := d.resolver.Resolve(ctx, page, candidates, d.timeouts.OptionalStep.D())
	if !ok {
		d.logger.Info("Optional control not found, continuing", zap.String("control", control))
		return
	}
	if err := match.Element.Click(browser.ClickOptions{Timeout: d.timeouts.OptionalStep.D()}); err != nil {
		d.logger.Info("Optional control click failed, continuing", zap.String("control", control), zap.Error(err))
		return
	}
	d.logger.Info("Clicked control", zap.String("control", control))
}

func (d *Driver) verify(ctx context.Context, page browser.Page, timeout time.Duration) Outcome {
	if _, found := d.resolver.Resolve(ctx, page, d.selectors.Verification, timeout); found {
		d.logger.Info("Verification prompt detected, skipping")
		return SkippedVerificationRequired
	}
	return Completed
}
