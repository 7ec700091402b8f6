package purchase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"

	"github.com/adyen/marketprobe/internal/browser"
	"github.com/adyen/marketprobe/internal/browser/htmldoc"
	"github.com/adyen/marketprobe/internal/browser/testutil"
	"github.com/adyen/marketprobe/internal/config"
)

const (
	primaryATC   = `[data-testid="x-atc-action"] [data-testid="ux-call-to-action"]`
	buyItNow     = `role=link[name="Buy It Now"]`
	guest        = `role=link[name="Check out as guest"]`
	seeInCart    = `role=link[name="See in cart"]`
	verification = `role=heading[name="Please verify yourself to"]`
)

func testProfile() *config.SiteProfile {
	p := config.DefaultSiteProfile()
	p.Timeouts.Action = config.Duration(10 * time.Millisecond)
	return p
}

func clicks(calls []string) []string {
	var out []string
	for _, c := range calls {
		if desc, ok := strings.CutPrefix(c, "click:"); ok {
			out = append(out, desc)
		}
	}
	return out
}

func TestRunAddToCartFlow(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(p *testutil.FakePage)
		want       Outcome
		wantClicks []string
	}{
		{
			name: "primary control and see in cart",
			setup: func(p *testutil.FakePage) {
				p.Set(primaryATC, &testutil.FakeElement{Visible: true})
				p.Set(seeInCart, &testutil.FakeElement{Visible: true})
			},
			want:       Completed,
			wantClicks: []string{primaryATC, seeInCart},
		},
		{
			name: "last fallback without see in cart",
			setup: func(p *testutil.FakePage) {
				p.Set(`button:has-text("Add to cart")`, &testutil.FakeElement{Visible: true})
			},
			want:       Completed,
			wantClicks: []string{`button:has-text("Add to cart")`},
		},
		{
			name: "verification prompt",
			setup: func(p *testutil.FakePage) {
				p.Set(`[data-testid="atc-btn"]`, &testutil.FakeElement{Visible: true})
				p.Set(verification, &testutil.FakeElement{Visible: true})
			},
			want:       SkippedVerificationRequired,
			wantClicks: []string{`[data-testid="atc-btn"]`},
		},
		{
			name:  "no add to cart control",
			setup: func(p *testutil.FakePage) {},
			want:  SkippedNoButton,
		},
		{
			name: "click on required control fails",
			setup: func(p *testutil.FakePage) {
				p.Set(primaryATC, &testutil.FakeElement{
					Visible:   true,
					ClickFunc: func(browser.ClickOptions) error { return errors.New("intercepted") },
				})
				p.Set(seeInCart, &testutil.FakeElement{Visible: true})
			},
			want:       SkippedNoButton,
			wantClicks: []string{primaryATC},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := testutil.NewFakePage("https://www.ebay.com/itm/1")
			tt.setup(page)
			d := NewDriver(testProfile(), nil, zaptest.NewLogger(t))

			got := d.RunAddToCartFlow(context.Background(), page)

			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantClicks, clicks(page.CallLog()))
		})
	}
}

func TestRunBuyNowFlow(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(p *testutil.FakePage)
		want       Outcome
		wantClicks []string
	}{
		{
			name: "buy now and guest checkout",
			setup: func(p *testutil.FakePage) {
				p.Set(buyItNow, &testutil.FakeElement{Visible: true})
				p.Set(guest, &testutil.FakeElement{Visible: true})
			},
			want:       Completed,
			wantClicks: []string{buyItNow, guest},
		},
		{
			name: "guest checkout missing is not fatal",
			setup: func(p *testutil.FakePage) {
				p.Set(`button:has-text("Buy It Now")`, &testutil.FakeElement{Visible: true})
			},
			want:       Completed,
			wantClicks: []string{`button:has-text("Buy It Now")`},
		},
		{
			name: "verification after guest checkout",
			setup: func(p *testutil.FakePage) {
				p.Set(buyItNow, &testutil.FakeElement{Visible: true})
				p.Set(verification, &testutil.FakeElement{Visible: true})
			},
			want:       SkippedVerificationRequired,
			wantClicks: []string{buyItNow},
		},
		{
			name:  "auction listing without buy now",
			setup: func(p *testutil.FakePage) {},
			want:  SkippedNoButton,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := testutil.NewFakePage("https://www.ebay.com/itm/1")
			tt.setup(page)
			d := NewDriver(testProfile(), nil, zaptest.NewLogger(t))

			got := d.RunBuyNowFlow(context.Background(), page)

			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantClicks, clicks(page.CallLog()))
		})
	}
}

func TestRunBuyNowFlow_VerificationNotProbedWhenSkipped(t *testing.T) {
	page := testutil.NewFakePage("https://www.ebay.com/itm/1")
	d := NewDriver(testProfile(), nil, zaptest.NewLogger(t))

	d.RunBuyNowFlow(context.Background(), page)

	assert.NotContains(t, page.CallLog(), "probe:"+verification)
}

func TestItemAvailable(t *testing.T) {
	d := NewDriver(testProfile(), nil, zaptest.NewLogger(t))

	page := testutil.NewFakePage("https://www.ebay.com/itm/1")
	assert.True(t, d.ItemAvailable(context.Background(), page))

	page.Set(".sold-out", &testutil.FakeElement{Visible: true})
	assert.False(t, d.ItemAvailable(context.Background(), page))
}

func TestItemAvailable_Snapshot(t *testing.T) {
	d := NewDriver(testProfile(), nil, zaptest.NewLogger(t))

	tests := []struct {
		name      string
		body      string
		available bool
	}{
		{
			name:      "unrelated text mentions not available",
			body:      `<div><a data-testid="ux-call-to-action">Add to cart</a></div><div>Local pickup: Not available</div><p>This listing was ended in a similar item</p>`,
			available: true,
		},
		{
			name:      "status message says ended",
			body:      `<div data-testid="d-statusmessage">This listing was ended by the seller.</div>`,
			available: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := htmldoc.Parse(strings.NewReader("<html><body>"+tt.body+"</body></html>"), "https://www.ebay.com/itm/1")
			assert.NoError(t, err)
			assert.Equal(t, tt.available, d.ItemAvailable(context.Background(), page))
		})
	}
}

func TestOutcome(t *testing.T) {
	assert.False(t, Completed.Skipped())
	assert.True(t, SkippedNoButton.Skipped())
	assert.True(t, SkippedVerificationRequired.Skipped())
	assert.Empty(t, Completed.Reason())
	assert.NotEmpty(t, SkippedVerificationRequired.Reason())
}
