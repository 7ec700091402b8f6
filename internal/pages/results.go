package pages

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/adyen/marketprobe/internal/browser"
	"github.com/adyen/marketprobe/internal/config"
)

// SearchResultsPage is the listing grid returned by a search
type SearchResultsPage struct {
	base
}

// NewSearchResultsPage creates a search results page object
func NewSearchResultsPage(page browser.Page, profile *config.SiteProfile, logger *zap.Logger) *SearchResultsPage {
	return &SearchResultsPage{base: newBase(page, profile, logger)}
}

// ResultTitles returns the title of every rendered result
func (s *SearchResultsPage) ResultTitles() ([]string, error) {
	titles := s.page.Locate(s.profile.Selectors.ResultTitles)
	if err := titles.First().WaitVisible(s.profile.Timeouts.SearchReady.D()); err != nil {
		return nil, fmt.Errorf("%w: no search results: %w", ErrNavigation, err)
	}
	return titles.AllTexts()
}

// FirstProductTitle returns the text of the first organic product link
func (s *SearchResultsPage) FirstProductTitle() (string, error) {
	link, err := s.firstLink()
	if err != nil {
		return "", err
	}
	title, err := link.Text()
	if err != nil {
		return "", fmt.Errorf("failed to read first result title: %w", err)
	}
	return strings.TrimSpace(title), nil
}

func (s *SearchResultsPage) firstLink() (browser.Element, error) {
	link := s.page.Locate(s.profile.Selectors.FirstResultLink).First()
	if err := link.WaitVisible(s.profile.Timeouts.SearchReady.D()); err != nil {
		return nil, fmt.Errorf("%w: no product link in results: %w", ErrNavigation, err)
	}
	return link, nil
}

// OpenFirstResult opens the first product. Listings usually open in a new tab,
// so it tries a normal click, then a middle click, each waiting for a new tab,
// and finally a click that navigates the current tab. It returns the page that
// now shows the product; the results page is abandoned, not closed.
func (s *SearchResultsPage) OpenFirstResult(ctx context.Context) (browser.Page, string, error) {
	link, err := s.firstLink()
	if err != nil {
		return nil, "", err
	}
	if err := link.ScrollIntoView(); err != nil {
		s.logger.Info("Could not scroll first result into view", zap.Error(err))
	}

	title, _ := link.Text()
	title = strings.TrimSpace(title)
	href, _ := link.Attribute("href")
	s.logger.Info("Opening first result", zap.String("title", title), zap.String("href", href))

	newTab := s.profile.Timeouts.NewPage.D()
	strategies := []browser.ClickOptions{
		{Force: true, Timeout: newTab},
		{Force: true, Button: browser.MouseMiddle, Timeout: newTab},
	}
	for _, opts := range strategies {
		if err := ctx.Err(); err != nil {
			return nil, title, err
		}
		next, err := s.page.WaitForNewPage(func() error { return link.Click(opts) }, newTab)
		if err != nil {
			s.logger.Info("No new tab opened", zap.String("button", string(opts.Button)), zap.Error(err))
			continue
		}
		if err := s.checkLanding(next); err != nil {
			return nil, title, err
		}
		return next, title, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, title, err
	}
	before := s.page.URL()
	if err := link.Click(browser.ClickOptions{Force: true, Timeout: s.profile.Timeouts.Action.D()}); err != nil {
		return nil, title, fmt.Errorf("%w: every click strategy failed: %w", ErrNavigation, err)
	}
	if err := s.page.WaitForURL(func(u string) bool { return u != before }, s.profile.Timeouts.Navigation.D()); err != nil {
		return nil, title, fmt.Errorf("%w: every click strategy failed: %w", ErrNavigation, err)
	}
	if err := s.page.WaitForLoad(s.profile.Timeouts.Navigation.D()); err != nil {
		s.logger.Warn("Product page did not finish loading", zap.Error(err))
	}
	s.logger.Info("Opened first result in the same tab", zap.String("url", s.page.URL()))
	return s.page, title, nil
}

// checkLanding accepts a new tab on the target site or on the interstitial.
// Load errors are tolerated as long as the tab stayed on the site.
func (s *SearchResultsPage) checkLanding(next browser.Page) error {
	if err := next.WaitForLoad(s.profile.Timeouts.Navigation.D()); err != nil {
		s.logger.Warn("New tab did not finish loading", zap.Error(err))
	}
	url := next.URL()
	s.logger.Info("New tab opened", zap.String("url", url))

	if s.onProduct(url) || s.onInterstitial(url) {
		return nil
	}
	if !s.onTargetDomain(url) {
		return fmt.Errorf("%w: %s", ErrUnexpectedDomain, url)
	}

	// still on the site, possibly mid-redirect
	err := next.WaitForURL(s.onProduct, s.profile.Timeouts.SearchReady.D())
	if err != nil && !s.onTargetDomain(next.URL()) {
		return fmt.Errorf("%w: %s", ErrUnexpectedDomain, next.URL())
	}
	return nil
}
