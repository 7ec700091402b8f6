// Package testutil provides an in-memory browser.Page for exercising components
// without launching a browser.
package testutil

import (
	"fmt"
	"sync"
	"time"

	"github.com/adyen/marketprobe/internal/browser"
)

// FakeElement is the scripted state behind one descriptor
type FakeElement struct {
	Visible   bool
	Texts     []string
	Attrs     map[string]string
	Children  map[string]*FakeElement
	ClickFunc func(opts browser.ClickOptions) error
	FillFunc  func(value string) error
}

// FakePage is a scripted browser.Page. Every interaction is appended to Calls as
// "<op>:<arg>" so tests can assert on ordering.
type FakePage struct {
	mu sync.Mutex

	CurrentURL  string
	Elements    map[string]*FakeElement
	HTML        string
	Calls       []string
	Cleared     bool
	Closed      bool
	Screenshots []string

	NavigateFunc   func(url string) error
	NewPageFunc    func() (browser.Page, error)
	WaitForURLFunc func(match func(string) bool, timeout time.Duration) error
}

// NewFakePage creates a fake page sitting at url
func NewFakePage(url string) *FakePage {
	return &FakePage{
		CurrentURL: url,
		Elements:   map[string]*FakeElement{},
	}
}

// Set registers the element behind a descriptor and returns it for chaining
func (p *FakePage) Set(descriptor string, el *FakeElement) *FakeElement {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Elements[descriptor] = el
	return el
}

// SetURL moves the page without recording a navigation
func (p *FakePage) SetURL(url string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CurrentURL = url
}

// CallLog returns a copy of the recorded calls
func (p *FakePage) CallLog() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.Calls...)
}

func (p *FakePage) record(op, arg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = append(p.Calls, op+":"+arg)
}

func (p *FakePage) Navigate(url string, timeout time.Duration) error {
	p.record("navigate", url)
	if p.NavigateFunc != nil {
		return p.NavigateFunc(url)
	}
	p.SetURL(url)
	return nil
}

func (p *FakePage) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.CurrentURL
}

func (p *FakePage) Locate(descriptor string) browser.Element {
	p.mu.Lock()
	el := p.Elements[descriptor]
	p.mu.Unlock()
	return &fakeLocator{page: p, descriptor: descriptor, el: el, index: -1}
}

func (p *FakePage) WaitForURL(match func(string) bool, timeout time.Duration) error {
	p.record("wait-url", timeout.String())
	if p.WaitForURLFunc != nil {
		return p.WaitForURLFunc(match, timeout)
	}
	if match(p.URL()) {
		return nil
	}
	return browser.ErrTimeout
}

func (p *FakePage) WaitForNewPage(action func() error, timeout time.Duration) (browser.Page, error) {
	if err := action(); err != nil {
		return nil, err
	}
	if p.NewPageFunc == nil {
		return nil, browser.ErrTimeout
	}
	return p.NewPageFunc()
}

func (p *FakePage) WaitForLoad(timeout time.Duration) error {
	p.record("wait-load", timeout.String())
	return nil
}

func (p *FakePage) Screenshot(path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Screenshots = append(p.Screenshots, path)
	return nil
}

func (p *FakePage) Content() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.HTML, nil
}

func (p *FakePage) ClearCookies() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Cleared = true
	return nil
}

func (p *FakePage) Close() error {
	p.record("close", "")
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Closed = true
	return nil
}

type fakeLocator struct {
	page       *FakePage
	descriptor string
	el         *FakeElement
	index      int
}

func (l *fakeLocator) texts() []string {
	if l.el == nil {
		return nil
	}
	if l.index >= 0 {
		if l.index < len(l.el.Texts) {
			return []string{l.el.Texts[l.index]}
		}
		return nil
	}
	return l.el.Texts
}

func (l *fakeLocator) WaitVisible(timeout time.Duration) error {
	l.page.record("probe", l.descriptor)
	if l.IsVisible() {
		return nil
	}
	return fmt.Errorf("%w: %s not visible after %s", browser.ErrTimeout, l.descriptor, timeout)
}

func (l *fakeLocator) IsVisible() bool {
	return l.el != nil && l.el.Visible
}

func (l *fakeLocator) Click(opts browser.ClickOptions) error {
	l.page.record("click", l.descriptor)
	if l.el == nil {
		return fmt.Errorf("%w: %s", browser.ErrTimeout, l.descriptor)
	}
	if l.el.ClickFunc != nil {
		return l.el.ClickFunc(opts)
	}
	return nil
}

func (l *fakeLocator) Fill(value string) error {
	l.page.record("fill", l.descriptor+"="+value)
	if l.el == nil {
		return fmt.Errorf("%w: %s", browser.ErrTimeout, l.descriptor)
	}
	if l.el.FillFunc != nil {
		return l.el.FillFunc(value)
	}
	return nil
}

func (l *fakeLocator) ScrollIntoView() error {
	l.page.record("scroll", l.descriptor)
	if l.el == nil {
		return fmt.Errorf("%w: %s", browser.ErrTimeout, l.descriptor)
	}
	return nil
}

func (l *fakeLocator) Text() (string, error) {
	texts := l.texts()
	if len(texts) == 0 {
		return "", fmt.Errorf("%w: %s", browser.ErrTimeout, l.descriptor)
	}
	return texts[0], nil
}

func (l *fakeLocator) Attribute(name string) (string, error) {
	if l.el == nil {
		return "", fmt.Errorf("%w: %s", browser.ErrTimeout, l.descriptor)
	}
	return l.el.Attrs[name], nil
}

func (l *fakeLocator) Count() (int, error) {
	if l.el == nil {
		return 0, nil
	}
	if n := len(l.texts()); n > 0 {
		return n, nil
	}
	if l.el.Visible {
		return 1, nil
	}
	return 0, nil
}

func (l *fakeLocator) AllTexts() ([]string, error) {
	return append([]string{}, l.texts()...), nil
}

func (l *fakeLocator) Locate(descriptor string) browser.Element {
	var child *FakeElement
	if l.el != nil {
		child = l.el.Children[descriptor]
	}
	return &fakeLocator{page: l.page, descriptor: l.descriptor + " " + descriptor, el: child, index: -1}
}

func (l *fakeLocator) First() browser.Element {
	return l.Nth(0)
}

func (l *fakeLocator) Nth(i int) browser.Element {
	if l.el != nil && len(l.el.Texts) == 0 {
		return l
	}
	return &fakeLocator{page: l.page, descriptor: l.descriptor, el: l.el, index: i}
}

// FakeSession hands out pages from NewPageFunc
type FakeSession struct {
	mu sync.Mutex

	EngineName  string
	NewPageFunc func() (browser.Page, error)
	Opened      int
	Closed      bool
}

func (s *FakeSession) NewPage() (browser.Page, error) {
	s.mu.Lock()
	s.Opened++
	s.mu.Unlock()
	if s.NewPageFunc == nil {
		return NewFakePage("about:blank"), nil
	}
	return s.NewPageFunc()
}

func (s *FakeSession) Engine() string {
	if s.EngineName == "" {
		return "fake"
	}
	return s.EngineName
}

func (s *FakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Closed = true
	return nil
}
