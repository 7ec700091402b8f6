package browser

import (
	"regexp"
	"strings"
)

// Descriptor is one alternative of a selector string, split into the parts that
// plain CSS engines understand and the playwright extensions they do not.
type Descriptor struct {
	CSS         string
	HasText     string
	NotText     string
	VisibleOnly bool
	Role        string
	Name        string
}

var (
	roleRe    = regexp.MustCompile(`^role=([a-z]+)(?:\[name=["'](.*)["']\])?$`)
	notTextRe = regexp.MustCompile(`:not\(:has-text\(["'](.*?)["']\)\)`)
	hasTextRe = regexp.MustCompile(`:has-text\(["'](.*?)["']\)`)
)

// roleSelectors maps ARIA roles to the CSS that carries them implicitly.
var roleSelectors = map[string]string{
	"link":     `a[href], [role="link"]`,
	"button":   `button, [role="button"], input[type="submit"], input[type="button"]`,
	"heading":  `h1, h2, h3, h4, h5, h6, [role="heading"]`,
	"textbox":  `input[type="text"], input:not([type]), textarea, [role="textbox"]`,
	"img":      `img, [role="img"]`,
	"checkbox": `input[type="checkbox"], [role="checkbox"]`,
}

// ParseDescriptor splits a descriptor into its comma-separated alternatives.
func ParseDescriptor(raw string) []Descriptor {
	var out []Descriptor
	for _, part := range splitTopLevel(raw) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, parseOne(part))
	}
	return out
}

func parseOne(s string) Descriptor {
	if m := roleRe.FindStringSubmatch(s); m != nil {
		css, ok := roleSelectors[m[1]]
		if !ok {
			css = `[role="` + m[1] + `"]`
		}
		return Descriptor{CSS: css, Role: m[1], Name: m[2]}
	}

	d := Descriptor{CSS: s}
	if m := notTextRe.FindStringSubmatch(d.CSS); m != nil {
		d.NotText = m[1]
		d.CSS = notTextRe.ReplaceAllString(d.CSS, "")
	}
	if m := hasTextRe.FindStringSubmatch(d.CSS); m != nil {
		d.HasText = m[1]
		d.CSS = hasTextRe.ReplaceAllString(d.CSS, "")
	}
	if strings.Contains(d.CSS, ":visible") {
		d.VisibleOnly = true
		d.CSS = strings.ReplaceAll(d.CSS, ":visible", "")
	}
	d.CSS = strings.TrimSpace(d.CSS)
	if d.CSS == "" {
		d.CSS = "*"
	}
	return d
}

// Filtered reports whether the descriptor needs a text check after the CSS query.
func (d Descriptor) Filtered() bool {
	return d.Text() != "" || d.NotText != ""
}

// Text returns the text the element must contain, if any.
func (d Descriptor) Text() string {
	if d.Name != "" {
		return d.Name
	}
	return d.HasText
}

// MatchesText reports whether text satisfies the descriptor's text filter.
// Matching is case-insensitive substring, like playwright's default.
func (d Descriptor) MatchesText(text string) bool {
	text = strings.ToLower(text)
	if d.NotText != "" && strings.Contains(text, strings.ToLower(d.NotText)) {
		return false
	}
	want := d.Text()
	if want == "" {
		return true
	}
	return strings.Contains(text, strings.ToLower(want))
}

// splitTopLevel splits on commas that are not inside quotes, brackets or parens.
func splitTopLevel(s string) []string {
	var (
		parts []string
		depth int
		quote rune
		start int
	)
	for i, r := range s {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '"' || r == '\'':
			quote = r
		case r == '(' || r == '[':
			depth++
		case r == ')' || r == ']':
			depth--
		case r == ',' && depth == 0:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}
