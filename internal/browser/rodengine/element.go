package rodengine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/adyen/marketprobe/internal/browser"
)

const (
	defaultActionTimeout = 5 * time.Second
	resolveTimeout       = 3 * time.Second
)

// Element is a lazy locator; it re-queries the DOM on every call the way a
// playwright locator does.
type Element struct {
	page       *Page
	parent     *Element
	descriptor string
	index      int
}

// level is one step of a locator chain as the in-page resolver sees it
type level struct {
	Alternatives []alternative `json:"alternatives"`
	Index        int           `json:"index"`
}

type alternative struct {
	CSS     string `json:"css"`
	Text    string `json:"text"`
	NotText string `json:"notText"`
	Visible bool   `json:"visible"`
}

// resolveJS walks the chain in one round-trip. Matches of every alternative are
// unioned and kept in document order, the way playwright orders a selector list.
const resolveJS = `(levels, onlyVisible) => {
	const text = (el) => (el.textContent || '').replace(/\s+/g, ' ').toLowerCase();
	const shown = (el) => {
		const style = getComputedStyle(el);
		const rect = el.getBoundingClientRect();
		return style.visibility !== 'hidden' && style.display !== 'none' && rect.width > 0 && rect.height > 0;
	};
	let roots = [document];
	for (const level of levels) {
		const seen = new Set();
		for (const root of roots) {
			for (const alt of level.alternatives) {
				for (const el of root.querySelectorAll(alt.css)) {
					if (seen.has(el)) continue;
					const t = (alt.text || alt.notText) ? text(el) : '';
					if (alt.text && !t.includes(alt.text.toLowerCase())) continue;
					if (alt.notText && t.includes(alt.notText.toLowerCase())) continue;
					if (alt.visible && !shown(el)) continue;
					seen.add(el);
				}
			}
		}
		let matched = [...seen].sort((a, b) =>
			a.compareDocumentPosition(b) & Node.DOCUMENT_POSITION_FOLLOWING ? -1 : 1);
		if (level.index >= 0) {
			matched = level.index < matched.length ? [matched[level.index]] : [];
		}
		roots = matched;
	}
	return onlyVisible ? roots.filter(shown) : roots;
}`

// chain lists the locator levels from the page down to e
func (e *Element) chain() []level {
	var levels []level
	for cur := e; cur != nil; cur = cur.parent {
		l := level{Index: cur.index}
		for _, d := range browser.ParseDescriptor(cur.descriptor) {
			l.Alternatives = append(l.Alternatives, alternative{
				CSS:     d.CSS,
				Text:    d.Text(),
				NotText: d.NotText,
				Visible: d.VisibleOnly,
			})
		}
		levels = append([]level{l}, levels...)
	}
	return levels
}

// resolve returns the live elements matching the chain, honouring the playwright
// extensions that plain CSS engines lack.
func (e *Element) resolve() ([]*rod.Element, error) {
	return e.query(false)
}

// query runs the chain in the page under a deadline; the returned elements are
// bound to the page's own context again.
func (e *Element) query(onlyVisible bool) ([]*rod.Element, error) {
	parent := e.page.page.GetContext()
	ctx, cancel := context.WithTimeout(parent, resolveTimeout)
	defer cancel()

	els, err := e.page.page.Context(ctx).ElementsByJS(rod.Eval(resolveJS, e.chain(), onlyVisible))
	if err != nil {
		return nil, translate(err)
	}
	out := make([]*rod.Element, len(els))
	for i, el := range els {
		out[i] = el.Context(parent)
	}
	return out, nil
}

func (e *Element) first() (*rod.Element, error) {
	els, err := e.resolve()
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, fmt.Errorf("%w: no element matches %s", browser.ErrTimeout, e.descriptor)
	}
	return els[0], nil
}

func (e *Element) visible() bool {
	els, err := e.query(true)
	return err == nil && len(els) > 0
}

// WaitVisible blocks until a match is visible or timeout passes
func (e *Element) WaitVisible(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		if e.visible() {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: %s not visible after %s", browser.ErrTimeout, e.descriptor, timeout)
		}
		time.Sleep(pollInterval)
	}
}

// IsVisible reports whether a match is visible right now
func (e *Element) IsVisible() bool {
	return e.visible()
}

// Click clicks the first match
func (e *Element) Click(opts browser.ClickOptions) error {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultActionTimeout
	}
	if !opts.Force {
		if err := e.WaitVisible(timeout); err != nil {
			return err
		}
	}

	el, err := e.first()
	if err != nil {
		return err
	}
	button := proto.InputMouseButtonLeft
	if opts.Button == browser.MouseMiddle {
		button = proto.InputMouseButtonMiddle
	}

	err = el.Timeout(timeout).Click(button, 1)
	if err != nil && opts.Force && button == proto.InputMouseButtonLeft {
		// covered or zero-size elements still take a DOM click
		_, err = el.Eval(`() => this.click()`)
	}
	return translate(err)
}

// Fill replaces the value of the first match
func (e *Element) Fill(value string) error {
	el, err := e.first()
	if err != nil {
		return err
	}
	if err := el.SelectAllText(); err != nil {
		return translate(err)
	}
	return translate(el.Input(value))
}

// ScrollIntoView scrolls the first match into the viewport
func (e *Element) ScrollIntoView() error {
	el, err := e.first()
	if err != nil {
		return err
	}
	return translate(el.ScrollIntoView())
}

// Text returns the text of the first match
func (e *Element) Text() (string, error) {
	el, err := e.first()
	if err != nil {
		return "", err
	}
	return el.Text()
}

// Attribute returns the named attribute of the first match, or "" when unset
func (e *Element) Attribute(name string) (string, error) {
	el, err := e.first()
	if err != nil {
		return "", err
	}
	value, err := el.Attribute(name)
	if err != nil || value == nil {
		return "", err
	}
	return *value, nil
}

// Count returns the number of matches
func (e *Element) Count() (int, error) {
	els, err := e.resolve()
	return len(els), err
}

// AllTexts returns the text of every match
func (e *Element) AllTexts() ([]string, error) {
	els, err := e.resolve()
	if err != nil {
		return nil, err
	}
	texts := make([]string, 0, len(els))
	for _, el := range els {
		text, err := el.Text()
		if err != nil {
			return nil, err
		}
		texts = append(texts, strings.TrimSpace(text))
	}
	return texts, nil
}

// Locate narrows the search to descendants of the matches
func (e *Element) Locate(descriptor string) browser.Element {
	return &Element{page: e.page, parent: e, descriptor: descriptor, index: -1}
}

// First narrows to the first match
func (e *Element) First() browser.Element {
	return e.Nth(0)
}

// Nth narrows to the i-th match
func (e *Element) Nth(i int) browser.Element {
	return &Element{page: e.page, parent: e.parent, descriptor: e.descriptor, index: i}
}

func isDeadline(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}
