package pages

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/adyen/marketprobe/internal/browser"
	"github.com/adyen/marketprobe/internal/browser/testutil"
	"github.com/adyen/marketprobe/internal/config"
)

func TestHomePage_GotoAndSearch(t *testing.T) {
	profile := config.DefaultSiteProfile()
	page := testutil.NewFakePage("about:blank")
	page.Set(profile.Selectors.SearchInput, &testutil.FakeElement{Visible: true})
	page.Set(profile.Selectors.SearchButton, &testutil.FakeElement{Visible: true})

	home := NewHomePage(page, profile, zaptest.NewLogger(t))
	require.NoError(t, home.Goto())
	require.NoError(t, home.SearchFor("wallet"))

	assert.Equal(t, []string{
		"navigate:https://www.ebay.com/",
		"probe:" + profile.Selectors.SearchInput,
		"fill:" + profile.Selectors.SearchInput + "=wallet",
		"click:" + profile.Selectors.SearchButton,
	}, page.CallLog())
}

func TestHomePage_GotoErrors(t *testing.T) {
	profile := config.DefaultSiteProfile()

	page := testutil.NewFakePage("about:blank")
	page.NavigateFunc = func(string) error { return browser.ErrTimeout }
	err := NewHomePage(page, profile, nil).Goto()
	assert.ErrorIs(t, err, ErrNavigation)
	assert.ErrorIs(t, err, browser.ErrTimeout)

	page = testutil.NewFakePage("about:blank")
	assert.ErrorIs(t, NewHomePage(page, profile, nil).Goto(), ErrNavigation, "search input never shows")
}

func TestSearchResultsPage_ResultTitles(t *testing.T) {
	profile := config.DefaultSiteProfile()
	page := testutil.NewFakePage("https://www.ebay.com/sch/i.html?_nkw=wallet")
	page.Set(profile.Selectors.ResultTitles, &testutil.FakeElement{
		Visible: true,
		Texts:   []string{"Leather Wallet", "Slim Wallet"},
	})

	titles, err := NewSearchResultsPage(page, profile, nil).ResultTitles()
	require.NoError(t, err)
	assert.Equal(t, []string{"Leather Wallet", "Slim Wallet"}, titles)
}

func TestSearchResultsPage_OpenFirstResult(t *testing.T) {
	profile := config.DefaultSiteProfile()
	const results = "https://www.ebay.com/sch/i.html?_nkw=wallet"

	tests := []struct {
		name string
		// newTab decides, per click, whether a tab opens and where it lands
		newTab      func(button browser.MouseButton, clicks int) (string, bool)
		sameTabURL  string
		wantURL     string
		wantButtons []browser.MouseButton
		wantErr     error
	}{
		{
			name:        "normal click opens a tab",
			newTab:      func(browser.MouseButton, int) (string, bool) { return "https://www.ebay.com/itm/1", true },
			wantURL:     "https://www.ebay.com/itm/1",
			wantButtons: []browser.MouseButton{""},
		},
		{
			name: "middle click opens a tab",
			newTab: func(b browser.MouseButton, _ int) (string, bool) {
				return "https://www.ebay.com/itm/2", b == browser.MouseMiddle
			},
			wantURL:     "https://www.ebay.com/itm/2",
			wantButtons: []browser.MouseButton{"", browser.MouseMiddle},
		},
		{
			name:        "same tab fallback",
			newTab:      func(browser.MouseButton, int) (string, bool) { return "", false },
			sameTabURL:  "https://www.ebay.com/itm/3",
			wantURL:     "https://www.ebay.com/itm/3",
			wantButtons: []browser.MouseButton{"", browser.MouseMiddle, ""},
		},
		{
			name:        "interstitial tab is accepted",
			newTab:      func(browser.MouseButton, int) (string, bool) { return "https://www.ebay.com/splashui/challenge?ru=x", true },
			wantURL:     "https://www.ebay.com/splashui/challenge?ru=x",
			wantButtons: []browser.MouseButton{""},
		},
		{
			name:        "tab off the site",
			newTab:      func(browser.MouseButton, int) (string, bool) { return "https://ads.example.net/landing", true },
			wantErr:     ErrUnexpectedDomain,
			wantButtons: []browser.MouseButton{""},
		},
		{
			name:        "every strategy fails",
			newTab:      func(browser.MouseButton, int) (string, bool) { return "", false },
			wantErr:     ErrNavigation,
			wantButtons: []browser.MouseButton{"", browser.MouseMiddle, ""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := testutil.NewFakePage(results)
			var buttons []browser.MouseButton
			var opened string
			var ok bool

			page.Set(profile.Selectors.FirstResultLink, &testutil.FakeElement{
				Visible: true,
				Texts:   []string{" Genuine Leather Wallet "},
				Attrs:   map[string]string{"href": "https://www.ebay.com/itm/1"},
				ClickFunc: func(opts browser.ClickOptions) error {
					assert.True(t, opts.Force)
					buttons = append(buttons, opts.Button)
					opened, ok = tt.newTab(opts.Button, len(buttons))
					if len(buttons) == 3 && tt.sameTabURL != "" {
						page.SetURL(tt.sameTabURL)
					}
					return nil
				},
			})
			page.NewPageFunc = func() (browser.Page, error) {
				if !ok {
					return nil, browser.ErrTimeout
				}
				return testutil.NewFakePage(opened), nil
			}

			got, title, err := NewSearchResultsPage(page, profile, zaptest.NewLogger(t)).OpenFirstResult(context.Background())

			assert.Equal(t, tt.wantButtons, buttons)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "Genuine Leather Wallet", title)
			assert.Equal(t, tt.wantURL, got.URL())
		})
	}
}

func TestSearchResultsPage_NoResults(t *testing.T) {
	page := testutil.NewFakePage("https://www.ebay.com/sch/i.html?_nkw=zzzz")
	results := NewSearchResultsPage(page, config.DefaultSiteProfile(), nil)

	_, _, err := results.OpenFirstResult(context.Background())
	assert.ErrorIs(t, err, ErrNavigation)

	_, err = results.FirstProductTitle()
	assert.ErrorIs(t, err, ErrNavigation)
}

func TestProductPage_WaitForProduct(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr error
	}{
		{name: "listing", url: "https://www.ebay.com/itm/123"},
		{name: "challenge", url: "https://www.ebay.com/splashui/challenge", wantErr: ErrChallengePersisted},
		{name: "elsewhere on site", url: "https://www.ebay.com/p/555"},
		{name: "off site", url: "https://example.org/", wantErr: ErrUnexpectedDomain},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := testutil.NewFakePage(tt.url)
			err := NewProductPage(page, config.DefaultSiteProfile(), zaptest.NewLogger(t)).WaitForProduct(context.Background())
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestProductPage_TitleAndCookieBanner(t *testing.T) {
	profile := config.DefaultSiteProfile()
	page := testutil.NewFakePage("https://www.ebay.com/itm/123")
	product := NewProductPage(page, profile, nil)

	_, err := product.WaitForTitle()
	assert.ErrorIs(t, err, ErrNavigation)
	assert.False(t, product.DismissCookieBanner())

	page.Set(profile.Selectors.ProductTitle, &testutil.FakeElement{Visible: true, Texts: []string{" Bifold Wallet\n"}})
	page.Set(profile.Selectors.CookieBanner, &testutil.FakeElement{Visible: true})

	title, err := product.WaitForTitle()
	require.NoError(t, err)
	assert.Equal(t, "Bifold Wallet", title)
	assert.True(t, product.DismissCookieBanner())
	assert.Same(t, page, product.Page())
}

func TestProductPage_Price(t *testing.T) {
	profile := config.DefaultSiteProfile()
	page := testutil.NewFakePage("https://www.ebay.com/itm/123")
	product := NewProductPage(page, profile, nil)

	_, err := product.Price()
	assert.ErrorIs(t, err, ErrNavigation)

	page.Set(profile.Selectors.ProductPrice, &testutil.FakeElement{Visible: true, Texts: []string{" US $24.99 "}})
	price, err := product.Price()
	require.NoError(t, err)
	assert.Equal(t, "US $24.99", price)
}
