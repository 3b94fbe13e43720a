package sanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// strict strips every HTML tag and attribute. bluemonday policies are
// read-only after build, so sharing one across goroutines is safe; never
// call a mutating helper on it after init.
var strict = func() *bluemonday.Policy {
	p := bluemonday.StrictPolicy()
	p.AddSpaceWhenStrippingTag(true)
	return p
}()

// Sanitize strips all HTML from user input, leaving surrounding text intact.
// Markdown-ish plaintext passes through unchanged.
func Sanitize(s string) string {
	return strict.Sanitize(s)
}

// Clean is what note titles, note bodies, notebook names, page text and
// tags go through before persistence. Repositories assume their input has
// already been cleaned.
//
// Beyond tag stripping it trims the ends, unescapes entities, maps
// non-breaking spaces to plain spaces and collapses runs of spaces inside
// each line. Newlines survive.
func Clean(s string) string {
	out := strict.Sanitize(s)
	out = strings.TrimSpace(out)
	out = html.UnescapeString(out)
	out = strings.ReplaceAll(out, "\u00a0", " ")
	return collapseSpaces(out)
}

func collapseSpaces(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.Join(strings.Fields(line), " ")
	}
	return strings.Join(lines, "\n")
}
