// Package related reads and exercises the "Similar items" panel of a product page.
package related

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/adyen/marketprobe/internal/browser"
	"github.com/adyen/marketprobe/internal/config"
	"github.com/adyen/marketprobe/internal/selector"
)

var (
	// ErrSectionNotVisible is returned when the panel never rendered
	ErrSectionNotVisible = errors.New("related items section not visible")
	// ErrUnexpectedCount is returned when the panel holds the wrong number of items
	ErrUnexpectedCount = errors.New("unexpected related item count")
	// ErrInvalidItem is returned for an item without title or currency-formatted price
	ErrInvalidItem = errors.New("invalid related item")
	// ErrNotProductPage is returned when a related item led somewhere other than a listing
	ErrNotProductPage = errors.New("related item did not open a product page")
)

// Item is one entry of the panel
type Item struct {
	Title    string
	Price    string
	Category string
}

// Report is what Inspect read from the panel. The slices are parallel and
// reflect only the first rendered batch.
type Report struct {
	Visible      bool
	SectionTitle string
	ItemCount    int
	Titles       []string
	Prices       []string
	Categories   []string
	ImageCount   int
}

// Items zips the parallel slices. Missing fields are left empty.
func (r Report) Items() []Item {
	n := max(len(r.Titles), len(r.Prices))
	items := make([]Item, n)
	for i := range items {
		if i < len(r.Titles) {
			items[i].Title = r.Titles[i]
		}
		if i < len(r.Prices) {
			items[i].Price = r.Prices[i]
		}
		if i < len(r.Categories) {
			items[i].Category = r.Categories[i]
		}
	}
	return items
}

// Expectation is what a healthy panel looks like on this site
type Expectation struct {
	Count           int
	SectionTitle    string
	CurrencyMarkers []string
}

// ExpectationFromProfile reads the panel expectations of a site profile
func ExpectationFromProfile(p *config.SiteProfile) Expectation {
	return Expectation{
		Count:           p.Expectations.RelatedCount,
		SectionTitle:    p.Expectations.SectionTitle,
		CurrencyMarkers: p.Expectations.CurrencyMarkers,
	}
}

// Check validates the report against exp. A zero Count skips the cardinality
// check. All problems are joined into one error.
func (r Report) Check(exp Expectation) error {
	if !r.Visible {
		return ErrSectionNotVisible
	}

	var errs []error
	if exp.SectionTitle != "" && !strings.Contains(strings.ToLower(r.SectionTitle), strings.ToLower(exp.SectionTitle)) {
		errs = append(errs, fmt.Errorf("section title %q does not mention %q", r.SectionTitle, exp.SectionTitle))
	}
	if exp.Count > 0 {
		if r.ItemCount != exp.Count {
			errs = append(errs, fmt.Errorf("%w: %d items, want %d", ErrUnexpectedCount, r.ItemCount, exp.Count))
		}
		if len(r.Titles) != exp.Count {
			errs = append(errs, fmt.Errorf("%w: %d titles, want %d", ErrUnexpectedCount, len(r.Titles), exp.Count))
		}
		if len(r.Prices) != exp.Count {
			errs = append(errs, fmt.Errorf("%w: %d prices, want %d", ErrUnexpectedCount, len(r.Prices), exp.Count))
		}
	}
	for i, item := range r.Items() {
		if item.Title == "" {
			errs = append(errs, fmt.Errorf("%w: item %d has no title", ErrInvalidItem, i))
		}
		if len(exp.CurrencyMarkers) > 0 && !HasCurrency(item.Price, exp.CurrencyMarkers) {
			errs = append(errs, fmt.Errorf("%w: item %d price %q has no currency marker", ErrInvalidItem, i, item.Price))
		}
	}
	return errors.Join(errs...)
}

// Inspector reads the related-items panel
type Inspector struct {
	sel     config.Related
	marker  string
	settle  time.Duration
	newPage time.Duration
	action  time.Duration
	logger  *zap.Logger
	sleep   func(ctx context.Context, d time.Duration) bool
}

// NewInspector creates an inspector for the given site profile
func NewInspector(profile *config.SiteProfile, logger *zap.Logger) *Inspector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Inspector{
		sel:     profile.Selectors.Related,
		marker:  profile.ProductURLMarker,
		settle:  profile.Timeouts.RelatedSettle.D(),
		newPage: profile.Timeouts.NewPage.D(),
		action:  profile.Timeouts.Action.D(),
		logger:  logger,
		sleep:   selector.Settle,
	}
}

// Inspect scrolls the panel into view, lets lazy content settle and extracts
// it. A panel that is not there is reported as Visible=false, not an error.
func (in *Inspector) Inspect(ctx context.Context, page browser.Page) (Report, error) {
	var report Report

	section := page.Locate(in.sel.Section).First()
	if err := section.ScrollIntoView(); err != nil {
		in.logger.Info("Could not scroll to related section", zap.Error(err))
	}
	if !in.sleep(ctx, in.settle) {
		return report, ctx.Err()
	}

	report.Visible = section.IsVisible()
	if !report.Visible {
		in.logger.Info("Related section not visible")
		return report, nil
	}

	title, err := section.Text()
	if err != nil {
		return report, fmt.Errorf("failed to read section title: %w", err)
	}
	report.SectionTitle = strings.TrimSpace(title)

	items := page.Locate(in.sel.Items)
	if report.ItemCount, err = items.Count(); err != nil {
		return report, fmt.Errorf("failed to count related items: %w", err)
	}
	if report.Titles, err = texts(items.Locate(in.sel.Title)); err != nil {
		return report, fmt.Errorf("failed to read related titles: %w", err)
	}
	if report.Prices, err = texts(items.Locate(in.sel.Price)); err != nil {
		return report, fmt.Errorf("failed to read related prices: %w", err)
	}
	if report.Categories, err = texts(items.Locate(in.sel.Category)); err != nil {
		return report, fmt.Errorf("failed to read related categories: %w", err)
	}
	if report.ImageCount, err = items.Locate(in.sel.Image).Count(); err != nil {
		return report, fmt.Errorf("failed to count related images: %w", err)
	}

	in.logger.Info("Inspected related section",
		zap.Int("items", report.ItemCount),
		zap.Int("images", report.ImageCount),
		zap.String("title", report.SectionTitle))

	return report, nil
}

// OpenFirstItem clicks the first item's link, which opens a new tab, and
// returns that tab once it has loaded a listing.
func (in *Inspector) OpenFirstItem(page browser.Page) (browser.Page, error) {
	link := page.Locate(in.sel.Items).First().Locate(in.sel.Link).First()

	next, err := page.WaitForNewPage(func() error {
		return link.Click(browser.ClickOptions{Force: true, Timeout: in.action})
	}, in.newPage)
	if err != nil {
		return nil, fmt.Errorf("failed to open related item: %w", err)
	}
	if err := next.WaitForLoad(in.newPage); err != nil {
		in.logger.Warn("Related item page did not finish loading", zap.Error(err))
	}
	if !strings.Contains(next.URL(), in.marker) {
		return next, fmt.Errorf("%w: %s", ErrNotProductPage, next.URL())
	}

	in.logger.Info("Opened related item", zap.String("url", next.URL()))
	return next, nil
}

// ToggleFirstWishlist clicks the wishlist control of the first item
func (in *Inspector) ToggleFirstWishlist(page browser.Page) error {
	button := page.Locate(in.sel.Items).First().Locate(in.sel.Wishlist).First()
	if err := button.Click(browser.ClickOptions{Timeout: in.action}); err != nil {
		return fmt.Errorf("failed to click wishlist: %w", err)
	}
	return nil
}

// ClickSeeAll follows the panel's "See all" link
func (in *Inspector) ClickSeeAll(page browser.Page) error {
	if err := page.Locate(in.sel.SeeAll).First().Click(browser.ClickOptions{Timeout: in.action}); err != nil {
		return fmt.Errorf("failed to click see all: %w", err)
	}
	return nil
}

func texts(el browser.Element) ([]string, error) {
	raw, err := el.AllTexts()
	if err != nil {
		return nil, err
	}
	out := make([]string, len(raw))
	for i, t := range raw {
		out[i] = strings.TrimSpace(t)
	}
	return out, nil
}

var priceRe = regexp.MustCompile(`[\d,]+\.?\d*`)

// ParsePrice pulls the first number out of a price such as "US $1,299.00".
// Ranges report their lower bound.
func ParsePrice(text string) (float64, bool) {
	m := priceRe.FindString(text)
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m, ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// PriceInBand reports whether price is within ±band of main (0.10 = 10%)
func PriceInBand(price, main, band float64) bool {
	return price >= main*(1-band) && price <= main*(1+band)
}

// MatchesCategory reports whether text mentions any of terms, ignoring case
func MatchesCategory(text string, terms []string) bool {
	lower := strings.ToLower(text)
	for _, term := range terms {
		if strings.Contains(lower, strings.ToLower(term)) {
			return true
		}
	}
	return false
}

// HasCurrency reports whether price contains one of markers
func HasCurrency(price string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(price, m) {
			return true
		}
	}
	return false
}
