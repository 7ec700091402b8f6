package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/adyen/marketprobe/internal/browser"
)

// Duration is a time.Duration that reads and writes as "15s" in YAML
type Duration time.Duration

// D returns the wrapped time.Duration
func (d Duration) D() time.Duration {
	return time.Duration(d)
}

// MarshalYAML writes the duration in time.Duration string form
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML accepts "1500ms" style strings
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// SiteProfile describes the target site: where it lives, how to find its
// controls and how long to wait for them. The markup is A/B tested, so every
// control is a list of alternatives.
type SiteProfile struct {
	BaseURL          string `yaml:"base_url"`
	SearchTerm       string `yaml:"search_term"`
	TargetDomain     string `yaml:"target_domain"`
	ProductURLMarker string `yaml:"product_url_marker"`
	ChallengeMarker  string `yaml:"challenge_marker"`
	RedirectParam    string `yaml:"redirect_param"`

	Selectors    Selectors    `yaml:"selectors"`
	Timeouts     Timeouts     `yaml:"timeouts"`
	Expectations Expectations `yaml:"expectations"`
}

// Selectors holds candidate descriptor lists for every control the suite touches
type Selectors struct {
	SearchInput       string   `yaml:"search_input"`
	SearchButton      string   `yaml:"search_button"`
	ResultTitles      string   `yaml:"result_titles"`
	FirstResultLink   string   `yaml:"first_result_link"`
	ProductTitle      string   `yaml:"product_title"`
	ProductPrice      string   `yaml:"product_price"`
	CookieBanner      string   `yaml:"cookie_banner"`
	ChallengeContinue []string `yaml:"challenge_continue"`
	BuyItNow          []string `yaml:"buy_it_now"`
	GuestCheckout     []string `yaml:"guest_checkout"`
	AddToCart         []string `yaml:"add_to_cart"`
	SeeInCart         []string `yaml:"see_in_cart"`
	Checkout          []string `yaml:"checkout"`
	Verification      []string `yaml:"verification"`
	SoldOut           []string `yaml:"sold_out"`
	Related           Related  `yaml:"related"`
}

// Related holds the descriptors of the related-items panel
type Related struct {
	Section  string `yaml:"section"`
	Items    string `yaml:"items"`
	Title    string `yaml:"title"`
	Price    string `yaml:"price"`
	Category string `yaml:"category"`
	Image    string `yaml:"image"`
	Link     string `yaml:"link"`
	Wishlist string `yaml:"wishlist"`
	SeeAll   string `yaml:"see_all"`
}

// Timeouts bounds every wait the suite performs
type Timeouts struct {
	Navigation         Duration `yaml:"navigation"`
	SearchReady        Duration `yaml:"search_ready"`
	Redirect           Duration `yaml:"redirect"`
	RedirectSettle     Duration `yaml:"redirect_settle"`
	ChallengeProbe     Duration `yaml:"challenge_probe"`
	ChallengeSettle    Duration `yaml:"challenge_settle"`
	AutoWait           Duration `yaml:"auto_wait"`
	AutoWaitNoRedirect Duration `yaml:"auto_wait_no_redirect"`
	NewPage            Duration `yaml:"new_page"`
	ProductWait        Duration `yaml:"product_wait"`
	Action             Duration `yaml:"action"`
	OptionalStep       Duration `yaml:"optional_step"`
	VerificationBuyNow Duration `yaml:"verification_buy_now"`
	VerificationCart   Duration `yaml:"verification_cart"`
	RelatedSettle      Duration `yaml:"related_settle"`
}

// Expectations are fixture values tied to the live listing, not invariants
type Expectations struct {
	RelatedCount    int      `yaml:"related_count"`
	SectionTitle    string   `yaml:"section_title"`
	CurrencyMarkers []string `yaml:"currency_markers"`
	PriceBand       float64  `yaml:"price_band"`
	TitleTerms      []string `yaml:"title_terms"`
	CategoryTerms   []string `yaml:"category_terms"`
}

// DefaultSiteProfile returns the profile for www.ebay.com
func DefaultSiteProfile() *SiteProfile {
	return &SiteProfile{
		BaseURL:          "https://www.ebay.com/",
		SearchTerm:       "wallet",
		TargetDomain:     "ebay.com",
		ProductURLMarker: "/itm/",
		ChallengeMarker:  "challenge",
		RedirectParam:    "ru",
		Selectors: Selectors{
			SearchInput:     `input[type="text"][placeholder*="Search"], input[aria-label*="Search"], #gh-ac`,
			SearchButton:    `button[type="submit"], input[type="submit"], #gh-btn`,
			ResultTitles:    `.s-item__title, [data-testid="item-title"], .srp-results .s-item__title`,
			FirstResultLink: `.s-item a[href*="/itm/"]:not([aria-hidden="true"]):not(:has-text("Shop on eBay"))`,
			ProductTitle:    `h1, [data-testid="x-item-title-label"], .notranslate`,
			ProductPrice:    `.x-price-primary span[role="text"], [itemprop="price"]`,
			CookieBanner:    `.cookie-banner button, #gdpr-banner-accept`,
			ChallengeContinue: []string{
				`button:has-text("Continue")`,
				`button:has-text("Proceed")`,
				`button[type="submit"]`,
				`input[type="submit"]`,
				`a:has-text("Continue")`,
				`[data-testid="continue"]`,
				`button:visible`,
			},
			BuyItNow: []string{
				`role=link[name="Buy It Now"]`,
				`a:has-text("Buy It Now")`,
				`button:has-text("Buy It Now")`,
			},
			GuestCheckout: []string{
				`role=link[name="Check out as guest"]`,
				`button:has-text("Check out as guest")`,
			},
			AddToCart: []string{
				`[data-testid="x-atc-action"] [data-testid="ux-call-to-action"]`,
				`[data-testid="atc-btn"]`,
				`a:has-text("Add to cart")`,
				`button:has-text("Add to cart")`,
			},
			SeeInCart: []string{
				`role=link[name="See in cart"]`,
				`a[role="link"]:has-text("See in cart")`,
			},
			Checkout: []string{
				`button:has-text("Go to checkout")`,
				`a:has-text("Go to checkout")`,
				`button:has-text("Checkout")`,
			},
			Verification: []string{
				`role=heading[name="Please verify yourself to"]`,
			},
			SoldOut: []string{
				`[data-testid="d-statusmessage"]:has-text("This listing was ended")`,
				`[data-testid="d-statusmessage"]:has-text("no longer available")`,
				`.d-statusmessage:has-text("ended")`,
				`.sold-out`,
			},
			Related: Related{
				Section:  `h2:has-text("Similar items")`,
				Items:    `div.hVQz.Cssx div.Mgpb.rgAU`,
				Title:    `h3._6rYN.kES0`,
				Price:    `div.lOg1 span[role="text"]`,
				Category: `.s-item__subtitle, .s-item__category`,
				Image:    `img.pGa-`,
				Link:     `a`,
				Wishlist: `button[aria-label*="Add"]`,
				SeeAll:   `a:has-text("See all")`,
			},
		},
		Timeouts: Timeouts{
			Navigation:         Duration(30 * time.Second),
			SearchReady:        Duration(10 * time.Second),
			Redirect:           Duration(15 * time.Second),
			RedirectSettle:     Duration(2 * time.Second),
			ChallengeProbe:     Duration(1 * time.Second),
			ChallengeSettle:    Duration(3 * time.Second),
			AutoWait:           Duration(8 * time.Second),
			AutoWaitNoRedirect: Duration(10 * time.Second),
			NewPage:            Duration(5 * time.Second),
			ProductWait:        Duration(15 * time.Second),
			Action:             Duration(5 * time.Second),
			OptionalStep:       Duration(5 * time.Second),
			VerificationBuyNow: Duration(3 * time.Second),
			VerificationCart:   Duration(5 * time.Second),
			RelatedSettle:      Duration(2 * time.Second),
		},
		Expectations: Expectations{
			RelatedCount:    4,
			SectionTitle:    "Similar items",
			CurrencyMarkers: []string{"$"},
			PriceBand:       0.10,
			TitleTerms:      []string{"wallet", "card", "leather"},
			CategoryTerms:   []string{"wallet", "leather", "accessory", "bag", "purse", "card holder", "bifold", "trifold"},
		},
	}
}

// LoadSiteProfile reads a profile from path on top of the defaults.
// An empty path returns the defaults.
func LoadSiteProfile(path string) (*SiteProfile, error) {
	profile := DefaultSiteProfile()
	if path == "" {
		return profile, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read site profile: %w", err)
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse site profile: %w", err)
	}
	if len(doc.Content) > 0 {
		if doc.Content[0].Kind != yaml.MappingNode {
			return nil, fmt.Errorf("failed to parse site profile: document is not a mapping")
		}
		if err := doc.Decode(profile); err != nil {
			return nil, fmt.Errorf("failed to parse site profile: %w", err)
		}
	}
	if err := profile.Validate(); err != nil {
		return nil, err
	}
	return profile, nil
}

// Validate rejects profiles the suite cannot run with
func (p *SiteProfile) Validate() error {
	if p.BaseURL == "" {
		return fmt.Errorf("site profile: base_url is required")
	}
	if p.ChallengeMarker == "" {
		return fmt.Errorf("site profile: challenge_marker is required")
	}
	if len(p.Selectors.AddToCart) == 0 || len(p.Selectors.BuyItNow) == 0 {
		return fmt.Errorf("site profile: add_to_cart and buy_it_now need at least one descriptor")
	}
	for _, descriptor := range p.Selectors.SoldOut {
		for _, d := range browser.ParseDescriptor(descriptor) {
			if d.CSS == "*" {
				// an unscoped text filter also matches <html> and <body>
				return fmt.Errorf("site profile: sold_out descriptor %q needs a CSS scope", descriptor)
			}
		}
	}
	if p.Expectations.RelatedCount < 0 {
		return fmt.Errorf("site profile: related_count cannot be negative")
	}
	if p.Expectations.PriceBand < 0 || p.Expectations.PriceBand >= 1 {
		return fmt.Errorf("site profile: price_band must be in [0, 1)")
	}
	return nil
}

// Save writes the profile as YAML
func (p *SiteProfile) Save(path string) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
