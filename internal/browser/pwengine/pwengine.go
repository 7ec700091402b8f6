// Package pwengine implements the browser primitives on top of playwright-go.
package pwengine

import (
	"errors"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/adyen/marketprobe/internal/browser"
)

// Options configures the launched Chromium
type Options struct {
	Headless  bool
	UserAgent string
	Width     int
	Height    int
}

// Session is a running playwright driver plus one Chromium instance
type Session struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	opts    Options
}

// Launch starts playwright and Chromium. Browsers must already be installed
// (go run github.com/playwright-community/playwright-go/cmd/playwright@latest install chromium).
func Launch(opts Options) (*Session, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	b, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
	})
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("failed to launch chromium: %w", err)
	}

	return &Session{pw: pw, browser: b, opts: opts}, nil
}

// Wrap adapts an already running browser, as the e2e TestMain owns its own.
func Wrap(b playwright.Browser, opts Options) *Session {
	return &Session{browser: b, opts: opts}
}

// Engine names the engine for run records
func (s *Session) Engine() string {
	return "playwright"
}

// NewPage opens a page in a fresh, isolated context
func (s *Session) NewPage() (browser.Page, error) {
	ctxOpts := playwright.BrowserNewContextOptions{}
	if s.opts.UserAgent != "" {
		ctxOpts.UserAgent = playwright.String(s.opts.UserAgent)
	}
	if s.opts.Width > 0 && s.opts.Height > 0 {
		ctxOpts.Viewport = &playwright.Size{Width: s.opts.Width, Height: s.opts.Height}
	}

	bctx, err := s.browser.NewContext(ctxOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}
	page, err := bctx.NewPage()
	if err != nil {
		bctx.Close()
		return nil, fmt.Errorf("failed to open page: %w", err)
	}
	return &Page{page: page}, nil
}

// Close shuts down the browser and, when owned, the playwright driver
func (s *Session) Close() error {
	var errs []error
	if s.browser != nil {
		errs = append(errs, s.browser.Close())
	}
	if s.pw != nil {
		errs = append(errs, s.pw.Stop())
	}
	return errors.Join(errs...)
}

// Page adapts playwright.Page
type Page struct {
	page playwright.Page
}

// NewPage wraps an existing playwright page
func NewPage(p playwright.Page) *Page {
	return &Page{page: p}
}

func ms(d time.Duration) *float64 {
	return playwright.Float(float64(d.Milliseconds()))
}

// translate maps playwright's timeout error onto browser.ErrTimeout
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, playwright.ErrTimeout) {
		return fmt.Errorf("%w: %v", browser.ErrTimeout, err)
	}
	return err
}

// Navigate loads url and waits for the document within timeout
func (p *Page) Navigate(url string, timeout time.Duration) error {
	_, err := p.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   ms(timeout),
	})
	return translate(err)
}

// URL returns the address the tab is showing
func (p *Page) URL() string {
	return p.page.URL()
}

// Locate returns a lazy element for descriptor
func (p *Page) Locate(descriptor string) browser.Element {
	return &Element{loc: p.page.Locator(descriptor)}
}

// WaitForURL blocks until match accepts the current address or timeout passes
func (p *Page) WaitForURL(match func(url string) bool, timeout time.Duration) error {
	return translate(p.page.WaitForURL(match, playwright.PageWaitForURLOptions{
		Timeout:   ms(timeout),
		WaitUntil: playwright.WaitUntilStateCommit,
	}))
}

// WaitForNewPage runs action and returns the tab it opened
func (p *Page) WaitForNewPage(action func() error, timeout time.Duration) (browser.Page, error) {
	opened, err := p.page.Context().ExpectPage(action, playwright.BrowserContextExpectPageOptions{
		Timeout: ms(timeout),
	})
	if err != nil {
		return nil, translate(err)
	}
	return &Page{page: opened}, nil
}

// WaitForLoad waits for the current document to finish loading
func (p *Page) WaitForLoad(timeout time.Duration) error {
	return translate(p.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   playwright.LoadStateDomcontentloaded,
		Timeout: ms(timeout),
	}))
}

// Screenshot writes a full-page PNG to path
func (p *Page) Screenshot(path string) error {
	_, err := p.page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(path),
		FullPage: playwright.Bool(true),
	})
	return err
}

// Content returns the serialized DOM
func (p *Page) Content() (string, error) {
	return p.page.Content()
}

// ClearCookies empties the cookie jar of the page's context
func (p *Page) ClearCookies() error {
	return p.page.Context().ClearCookies()
}

// Close closes the page's context and every tab in it
func (p *Page) Close() error {
	return p.page.Context().Close()
}

// Element adapts playwright.Locator
type Element struct {
	loc playwright.Locator
}

// WaitVisible blocks until a match is visible or timeout passes
func (e *Element) WaitVisible(timeout time.Duration) error {
	return translate(e.loc.First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: ms(timeout),
	}))
}

// IsVisible reports whether a match is visible right now
func (e *Element) IsVisible() bool {
	visible, err := e.loc.First().IsVisible()
	return err == nil && visible
}

// Click clicks the match; playwright rejects a locator with several unless narrowed
func (e *Element) Click(opts browser.ClickOptions) error {
	clickOpts := playwright.LocatorClickOptions{
		Force: playwright.Bool(opts.Force),
	}
	if opts.Timeout > 0 {
		clickOpts.Timeout = ms(opts.Timeout)
	}
	if opts.Button == browser.MouseMiddle {
		clickOpts.Button = playwright.MouseButtonMiddle
	}
	return translate(e.loc.Click(clickOpts))
}

// Fill replaces the value of the match
func (e *Element) Fill(value string) error {
	return translate(e.loc.Fill(value))
}

// ScrollIntoView scrolls the match into the viewport
func (e *Element) ScrollIntoView() error {
	return translate(e.loc.ScrollIntoViewIfNeeded())
}

// Text returns the text content of the match
func (e *Element) Text() (string, error) {
	text, err := e.loc.TextContent()
	return text, translate(err)
}

// Attribute returns the named attribute, or "" when unset
func (e *Element) Attribute(name string) (string, error) {
	value, err := e.loc.GetAttribute(name)
	return value, translate(err)
}

// Count returns the number of matches
func (e *Element) Count() (int, error) {
	return e.loc.Count()
}

// AllTexts returns the text of every match
func (e *Element) AllTexts() ([]string, error) {
	return e.loc.AllTextContents()
}

// Locate narrows the search to descendants of the matches
func (e *Element) Locate(descriptor string) browser.Element {
	return &Element{loc: e.loc.Locator(descriptor)}
}

// First narrows to the first match
func (e *Element) First() browser.Element {
	return &Element{loc: e.loc.First()}
}

// Nth narrows to the i-th match
func (e *Element) Nth(i int) browser.Element {
	return &Element{loc: e.loc.Nth(i)}
}
