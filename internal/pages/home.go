package pages

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/adyen/marketprobe/internal/browser"
	"github.com/adyen/marketprobe/internal/config"
)

// HomePage is the site landing page with the search box
type HomePage struct {
	base
}

// NewHomePage creates a home page object
func NewHomePage(page browser.Page, profile *config.SiteProfile, logger *zap.Logger) *HomePage {
	return &HomePage{base: newBase(page, profile, logger)}
}

// Goto opens the base URL and waits for the search input
func (h *HomePage) Goto() error {
	if err := h.page.Navigate(h.profile.BaseURL, h.profile.Timeouts.Navigation.D()); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrNavigation, h.profile.BaseURL, err)
	}
	input := h.page.Locate(h.profile.Selectors.SearchInput).First()
	if err := input.WaitVisible(h.profile.Timeouts.SearchReady.D()); err != nil {
		return fmt.Errorf("%w: search input not ready: %w", ErrNavigation, err)
	}
	return nil
}

// SearchFor types term into the search box and submits it
func (h *HomePage) SearchFor(term string) error {
	if err := h.page.Locate(h.profile.Selectors.SearchInput).First().Fill(term); err != nil {
		return fmt.Errorf("failed to fill search input: %w", err)
	}
	if err := h.page.Locate(h.profile.Selectors.SearchButton).First().Click(browser.ClickOptions{
		Timeout: h.profile.Timeouts.Action.D(),
	}); err != nil {
		return fmt.Errorf("failed to submit search: %w", err)
	}
	h.logger.Info("Searched", zap.String("term", term))
	return nil
}
