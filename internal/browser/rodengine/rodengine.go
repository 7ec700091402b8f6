// Package rodengine implements the browser primitives with go-rod over the
// Chrome DevTools protocol, with stealth patches applied to every page.
package rodengine

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/adyen/marketprobe/internal/browser"
)

const pollInterval = 100 * time.Millisecond

// Options configures the launched Chrome
type Options struct {
	Headless  bool
	UserAgent string
	Width     int
	Height    int
}

// Session owns a rod browser and its launcher
type Session struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	opts     Options
}

// Launch starts Chrome, preferring a system install over the bundled download
func Launch(opts Options) (*Session, error) {
	// leakless deadlocks on Windows, see go-rod/rod#853
	l := launcher.New().
		Leakless(runtime.GOOS != "windows").
		Headless(opts.Headless)
	if bin, ok := launcher.LookPath(); ok {
		l = l.Bin(bin)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		l.Cleanup()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	return &Session{launcher: l, browser: b, opts: opts}, nil
}

// Engine names the engine for run records
func (s *Session) Engine() string {
	return "rod"
}

// NewPage opens a stealth page inside a fresh incognito context
func (s *Session) NewPage() (browser.Page, error) {
	incognito, err := s.browser.Incognito()
	if err != nil {
		return nil, fmt.Errorf("failed to create incognito context: %w", err)
	}
	page, err := stealth.Page(incognito)
	if err != nil {
		return nil, fmt.Errorf("failed to create stealth page: %w", err)
	}
	if s.opts.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: s.opts.UserAgent}); err != nil {
			return nil, fmt.Errorf("failed to set user agent: %w", err)
		}
	}
	if s.opts.Width > 0 && s.opts.Height > 0 {
		if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:             s.opts.Width,
			Height:            s.opts.Height,
			DeviceScaleFactor: 1,
		}); err != nil {
			return nil, fmt.Errorf("failed to set viewport: %w", err)
		}
	}
	return &Page{page: page, context: incognito}, nil
}

// Close shuts the browser down and removes the launcher's profile
func (s *Session) Close() error {
	err := s.browser.Close()
	s.launcher.Cleanup()
	return err
}

// Page adapts *rod.Page. context is the incognito browser context it lives in.
type Page struct {
	page    *rod.Page
	context *rod.Browser
}

// Navigate loads url and waits for the document within timeout
func (p *Page) Navigate(url string, timeout time.Duration) error {
	tp := p.page.Timeout(timeout)
	if err := tp.Navigate(url); err != nil {
		return translate(err)
	}
	return translate(tp.WaitLoad())
}

// URL returns the address the tab is showing
func (p *Page) URL() string {
	info, err := p.page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

// Locate returns a lazy element for descriptor
func (p *Page) Locate(descriptor string) browser.Element {
	return &Element{page: p, descriptor: descriptor, index: -1}
}

// WaitForURL blocks until match accepts the current address or timeout passes
func (p *Page) WaitForURL(match func(url string) bool, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		if match(p.URL()) {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: url still %s after %s", browser.ErrTimeout, p.URL(), timeout)
		}
		time.Sleep(pollInterval)
	}
}

// WaitForNewPage runs action and returns the tab it opened. The tab is already
// loading when it arrives, so stealth is registered for later documents and
// also evaluated into the current one.
func (p *Page) WaitForNewPage(action func() error, timeout time.Duration) (browser.Page, error) {
	waiter := p.page.Timeout(timeout)
	defer waiter.CancelTimeout()

	wait := waiter.WaitOpen()
	if err := action(); err != nil {
		return nil, err
	}
	opened, err := wait()
	if err != nil {
		return nil, translate(err)
	}
	opened = opened.Context(p.page.GetContext())
	if _, err := opened.EvalOnNewDocument(stealth.JS); err != nil {
		return nil, fmt.Errorf("failed to patch new tab: %w", err)
	}
	// the current document may be replaced mid-evaluation
	patch := opened.Timeout(defaultActionTimeout)
	_, _ = patch.Evaluate(rod.Eval("() => {" + stealth.JS + "}"))
	patch.CancelTimeout()
	return &Page{page: opened, context: p.context}, nil
}

// WaitForLoad waits for the current document to finish loading
func (p *Page) WaitForLoad(timeout time.Duration) error {
	return translate(p.page.Timeout(timeout).WaitLoad())
}

// Screenshot writes a full-page PNG to path
func (p *Page) Screenshot(path string) error {
	data, err := p.page.Screenshot(true, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return fmt.Errorf("failed to capture screenshot: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// Content returns the serialized DOM
func (p *Page) Content() (string, error) {
	return p.page.HTML()
}

// ClearCookies empties the cookie jar of the page's browser context
func (p *Page) ClearCookies() error {
	return p.page.Browser().SetCookies(nil)
}

// Close disposes the incognito context, taking every tab in it along
func (p *Page) Close() error {
	if p.context == nil {
		return p.page.Close()
	}
	return p.context.Close()
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	if isDeadline(err) {
		return fmt.Errorf("%w: %v", browser.ErrTimeout, err)
	}
	return err
}
