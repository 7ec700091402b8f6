// Package htmldoc serves a saved HTML snapshot through the browser primitives.
// It is read-only: queries work, anything that would need a live page returns
// browser.ErrUnsupported.
package htmldoc

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/adyen/marketprobe/internal/browser"
)

// Page is a parsed document posing as a browser page
type Page struct {
	doc *goquery.Document
	url string
}

// Parse reads a document from r; url is reported by URL()
func Parse(r io.Reader, url string) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return &Page{doc: doc, url: url}, nil
}

// Open parses a snapshot file from disk
func Open(path string) (*Page, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer f.Close()
	return Parse(f, "file://"+path)
}

func (p *Page) Navigate(url string, timeout time.Duration) error {
	return browser.ErrUnsupported
}

func (p *Page) URL() string {
	return p.url
}

func (p *Page) Locate(descriptor string) browser.Element {
	return &Element{sel: find(p.doc.Selection, descriptor), descriptor: descriptor}
}

func (p *Page) WaitForURL(match func(url string) bool, timeout time.Duration) error {
	if match(p.url) {
		return nil
	}
	return fmt.Errorf("%w: snapshot url %s does not match", browser.ErrTimeout, p.url)
}

func (p *Page) WaitForNewPage(action func() error, timeout time.Duration) (browser.Page, error) {
	return nil, browser.ErrUnsupported
}

func (p *Page) WaitForLoad(timeout time.Duration) error {
	return nil
}

func (p *Page) Screenshot(path string) error {
	return browser.ErrUnsupported
}

func (p *Page) Content() (string, error) {
	return p.doc.Html()
}

func (p *Page) ClearCookies() error {
	return nil
}

func (p *Page) Close() error {
	return nil
}

// find applies each alternative of descriptor under root and unions the result
// in document order
func find(root *goquery.Selection, descriptor string) *goquery.Selection {
	out := root.FilterFunction(func(int, *goquery.Selection) bool { return false })
	for _, d := range browser.ParseDescriptor(descriptor) {
		matched := root.Find(d.CSS)
		if d.Filtered() {
			matched = matched.FilterFunction(func(_ int, s *goquery.Selection) bool {
				return d.MatchesText(s.Text())
			})
		}
		out = out.AddSelection(matched)
	}
	return root.Find("*").FilterSelection(out)
}

// Element wraps a goquery selection. A snapshot has no layout, so anything
// present in the document counts as visible unless hidden by attribute.
type Element struct {
	sel        *goquery.Selection
	descriptor string
}

func (e *Element) visibleNodes() *goquery.Selection {
	return e.sel.FilterFunction(func(_ int, s *goquery.Selection) bool {
		if _, hidden := s.Attr("hidden"); hidden {
			return false
		}
		if v, _ := s.Attr("aria-hidden"); v == "true" {
			return false
		}
		style, _ := s.Attr("style")
		return !strings.Contains(strings.ReplaceAll(style, " ", ""), "display:none")
	})
}

func (e *Element) WaitVisible(timeout time.Duration) error {
	if e.IsVisible() {
		return nil
	}
	return fmt.Errorf("%w: %s not in snapshot", browser.ErrTimeout, e.descriptor)
}

func (e *Element) IsVisible() bool {
	return e.visibleNodes().Length() > 0
}

func (e *Element) Click(opts browser.ClickOptions) error {
	return browser.ErrUnsupported
}

func (e *Element) Fill(value string) error {
	return browser.ErrUnsupported
}

func (e *Element) ScrollIntoView() error {
	if e.sel.Length() == 0 {
		return fmt.Errorf("%w: %s not in snapshot", browser.ErrTimeout, e.descriptor)
	}
	return nil
}

func (e *Element) Text() (string, error) {
	if e.sel.Length() == 0 {
		return "", fmt.Errorf("%w: %s not in snapshot", browser.ErrTimeout, e.descriptor)
	}
	return e.sel.First().Text(), nil
}

func (e *Element) Attribute(name string) (string, error) {
	if e.sel.Length() == 0 {
		return "", fmt.Errorf("%w: %s not in snapshot", browser.ErrTimeout, e.descriptor)
	}
	value, _ := e.sel.First().Attr(name)
	return value, nil
}

func (e *Element) Count() (int, error) {
	return e.sel.Length(), nil
}

func (e *Element) AllTexts() ([]string, error) {
	texts := make([]string, 0, e.sel.Length())
	e.sel.Each(func(_ int, s *goquery.Selection) {
		texts = append(texts, s.Text())
	})
	return texts, nil
}

func (e *Element) Locate(descriptor string) browser.Element {
	return &Element{sel: find(e.sel, descriptor), descriptor: e.descriptor + " " + descriptor}
}

func (e *Element) First() browser.Element {
	return e.Nth(0)
}

func (e *Element) Nth(i int) browser.Element {
	return &Element{sel: e.sel.Eq(i), descriptor: e.descriptor}
}
