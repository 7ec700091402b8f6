// Package scenario holds the catalog of live checks and the runner that takes
// each one from the home page to a recorded outcome.
package scenario

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/adyen/marketprobe/internal/browser"
	"github.com/adyen/marketprobe/internal/config"
	"github.com/adyen/marketprobe/internal/pages"
	"github.com/adyen/marketprobe/internal/purchase"
	"github.com/adyen/marketprobe/internal/related"
)

// ErrUnknownScenario is returned for a name that is not in the catalog
var ErrUnknownScenario = errors.New("unknown scenario")

// SkipError ends a scenario early because the live site did not offer what it
// needs. Skips are recorded, never counted as failures.
type SkipError struct {
	Reason string
}

func (e *SkipError) Error() string {
	return "skipped: " + e.Reason
}

// Skip returns a SkipError
func Skip(reason string) error {
	return &SkipError{Reason: reason}
}

// Env is what a scenario body works with once the product page is open.
// Bodies that move to another tab update Page.
type Env struct {
	Page      browser.Page
	Product   *pages.ProductPage
	Title     string
	Profile   *config.SiteProfile
	Purchase  *purchase.Driver
	Inspector *related.Inspector
	Logger    *zap.Logger
}

// Scenario is one named check
type Scenario struct {
	Name        string
	Description string
	Run         func(ctx context.Context, env *Env) error
}

var catalog = map[string]Scenario{
	"buy-now": {
		Name:        "buy-now",
		Description: "Buy It Now through guest checkout up to the verification wall",
		Run:         buyNow,
	},
	"add-to-cart": {
		Name:        "add-to-cart",
		Description: "Add to cart and open the cart",
		Run:         addToCart,
	},
	"related-panel": {
		Name:        "related-panel",
		Description: "Similar items panel is visible with the expected items, titles and prices",
		Run:         relatedPanel,
	},
	"related-category": {
		Name:        "related-category",
		Description: "Every similar item belongs to the searched category",
		Run:         relatedCategory,
	},
	"related-prices": {
		Name:        "related-prices",
		Description: "Every similar item shows a currency-formatted price",
		Run:         relatedPrices,
	},
	"related-images": {
		Name:        "related-images",
		Description: "Every similar item has an image",
		Run:         relatedImages,
	},
	"related-navigation": {
		Name:        "related-navigation",
		Description: "Clicking a similar item opens its listing",
		Run:         relatedNavigation,
	},
	"related-wishlist": {
		Name:        "related-wishlist",
		Description: "The wishlist control of a similar item can be clicked",
		Run:         relatedWishlist,
	},
}

// Lookup returns the scenario called name
func Lookup(name string) (Scenario, error) {
	sc, ok := catalog[name]
	if !ok {
		return Scenario{}, fmt.Errorf("%w: %q", ErrUnknownScenario, name)
	}
	return sc, nil
}

// Catalog returns every scenario sorted by name
func Catalog() []Scenario {
	out := make([]Scenario, 0, len(catalog))
	for _, sc := range catalog {
		out = append(out, sc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Names returns every scenario name sorted
func Names() []string {
	all := Catalog()
	names := make([]string, len(all))
	for i, sc := range all {
		names[i] = sc.Name
	}
	return names
}

func buyNow(ctx context.Context, env *Env) error {
	if !env.Purchase.ItemAvailable(ctx, env.Page) {
		return Skip("listing is no longer available")
	}
	if out := env.Purchase.RunBuyNowFlow(ctx, env.Page); out.Skipped() {
		return Skip(out.Reason())
	}
	return nil
}

func addToCart(ctx context.Context, env *Env) error {
	if !env.Purchase.ItemAvailable(ctx, env.Page) {
		return Skip("listing is no longer available")
	}
	if out := env.Purchase.RunAddToCartFlow(ctx, env.Page); out.Skipped() {
		return Skip(out.Reason())
	}
	return nil
}

// inspectVisible inspects the panel and fails when it is missing
func inspectVisible(ctx context.Context, env *Env) (related.Report, error) {
	report, err := env.Inspector.Inspect(ctx, env.Page)
	if err != nil {
		return report, err
	}
	if !report.Visible {
		return report, related.ErrSectionNotVisible
	}
	return report, nil
}

func relatedPanel(ctx context.Context, env *Env) error {
	report, err := inspectVisible(ctx, env)
	if err != nil {
		return err
	}
	return report.Check(related.ExpectationFromProfile(env.Profile))
}

func relatedCategory(ctx context.Context, env *Env) error {
	report, err := inspectVisible(ctx, env)
	if err != nil {
		return err
	}
	exp := env.Profile.Expectations
	if err := report.Check(related.Expectation{Count: exp.RelatedCount}); err != nil {
		return err
	}

	var errs []error
	for i, item := range report.Items() {
		if related.MatchesCategory(item.Title, exp.TitleTerms) || related.MatchesCategory(item.Category, exp.CategoryTerms) {
			continue
		}
		errs = append(errs, fmt.Errorf("item %d %q (%q) is outside the searched category", i, item.Title, item.Category))
	}
	return errors.Join(errs...)
}

func relatedPrices(ctx context.Context, env *Env) error {
	report, err := inspectVisible(ctx, env)
	if err != nil {
		return err
	}
	exp := env.Profile.Expectations
	if err := report.Check(related.Expectation{Count: exp.RelatedCount, CurrencyMarkers: exp.CurrencyMarkers}); err != nil {
		return err
	}

	if exp.PriceBand <= 0 {
		return nil
	}
	mainText, err := env.Product.Price()
	if err != nil {
		env.Logger.Info("Listing price not readable, band not checked", zap.Error(err))
		return nil
	}
	main, ok := related.ParsePrice(mainText)
	if !ok {
		return nil
	}
	outside := 0
	for _, p := range report.Prices {
		if v, ok := related.ParsePrice(p); ok && !related.PriceInBand(v, main, exp.PriceBand) {
			outside++
		}
	}
	if outside > 0 {
		env.Logger.Warn("Similar items priced outside the band",
			zap.Int("outside", outside),
			zap.Float64("main_price", main),
			zap.Float64("band", exp.PriceBand))
	}
	return nil
}

func relatedImages(ctx context.Context, env *Env) error {
	report, err := inspectVisible(ctx, env)
	if err != nil {
		return err
	}
	want := env.Profile.Expectations.RelatedCount
	if want == 0 {
		want = report.ItemCount
	}
	if report.ImageCount != want {
		return fmt.Errorf("%w: %d images, want %d", related.ErrUnexpectedCount, report.ImageCount, want)
	}
	return nil
}

func relatedNavigation(ctx context.Context, env *Env) error {
	if _, err := inspectVisible(ctx, env); err != nil {
		return err
	}
	next, err := env.Inspector.OpenFirstItem(env.Page)
	if next != nil {
		env.Page = next
	}
	return err
}

func relatedWishlist(ctx context.Context, env *Env) error {
	if _, err := inspectVisible(ctx, env); err != nil {
		return err
	}
	return env.Inspector.ToggleFirstWishlist(env.Page)
}
