// Package browser defines the page and element primitives the suite drives,
// independent of the engine behind them. Descriptors use the playwright selector
// dialect; engines without native support parse it with ParseDescriptor.
package browser

import (
	"errors"
	"time"
)

// Errors shared by every engine
var (
	ErrTimeout     = errors.New("browser: timed out")
	ErrUnsupported = errors.New("browser: operation not supported by this engine")
	ErrClosed      = errors.New("browser: page closed")
)

// MouseButton selects which button a click uses
type MouseButton string

// Mouse buttons
const (
	MouseLeft   MouseButton = "left"
	MouseMiddle MouseButton = "middle"
)

// ClickOptions controls a single click
type ClickOptions struct {
	Button  MouseButton
	Force   bool
	Timeout time.Duration
}

// Page is one browsing context (tab). A click may open a new Page; the old one is
// abandoned by the caller, not closed. Close on the page a Session handed out
// releases its context along with every tab opened from it.
type Page interface {
	Navigate(url string, timeout time.Duration) error
	URL() string
	Locate(descriptor string) Element
	WaitForURL(match func(url string) bool, timeout time.Duration) error
	WaitForNewPage(action func() error, timeout time.Duration) (Page, error)
	WaitForLoad(timeout time.Duration) error
	Screenshot(path string) error
	Content() (string, error)
	ClearCookies() error
	Close() error
}

// Element is a lazy handle to whatever the descriptor matches at call time.
type Element interface {
	WaitVisible(timeout time.Duration) error
	IsVisible() bool
	Click(opts ClickOptions) error
	Fill(value string) error
	ScrollIntoView() error
	Text() (string, error)
	Attribute(name string) (string, error)
	Count() (int, error)
	AllTexts() ([]string, error)
	Locate(descriptor string) Element
	First() Element
	Nth(i int) Element
}

// Session owns a browser and hands out isolated pages. Each call to NewPage
// starts a fresh context so scenarios share no cookies.
type Session interface {
	NewPage() (Page, error)
	Engine() string
	Close() error
}
