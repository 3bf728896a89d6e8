// Package frontmatter parses and composes the envelope block at the head of
// every document (`---` delimited key: value lines carrying theme metadata).
//
// The envelope is deliberately NOT parsed as YAML. Documents written by older
// versions of the editor are only guaranteed to round-trip through a plain
// line parser, so upgrading to a real YAML parser would change which inputs
// are accepted. Multi-line values (notably `customCSS: |` blocks) are a known
// limitation and are not reliably parsed.
package frontmatter

import (
	"regexp"
	"strings"
)

// Defaults used when a document has no well-formed envelope.
const (
	DefaultTheme     = "default"
	DefaultThemeName = "Default Theme"
)

const delim = "---"

// Envelope holds the recognized frontmatter fields.
type Envelope struct {
	Theme     string
	ThemeName string
	CustomCSS string
}

var sniffRe = regexp.MustCompile(`(?s)^---\n(.*?)\n---`)

// Parse splits content into its envelope and body. A content string without
// a well-formed envelope (leading `---` line closed by another `---` line)
// is returned wholesale as body with defaulted theme fields.
func Parse(content string) (Envelope, string) {
	env := Envelope{Theme: DefaultTheme, ThemeName: DefaultThemeName}

	if !strings.HasPrefix(content, delim+"\n") {
		return env, content
	}
	rest := content[len(delim)+1:]
	end := strings.Index(rest, "\n"+delim)
	if end < 0 {
		// No closing delimiter; treat everything as body.
		return env, content
	}

	for _, line := range strings.Split(rest[:end], "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.TrimSpace(key) {
		case "theme":
			if value != "" {
				env.Theme = value
			}
		case "themeName":
			if v := stripQuotes(value); v != "" {
				env.ThemeName = v
			}
		case "customCSS":
			env.CustomCSS = value
		}
	}

	body := rest[end+1+len(delim):]
	// Drop the delimiter's own line ending plus the single separator blank
	// line Compose inserts, and nothing more, so bodies round-trip exactly.
	body = strings.TrimPrefix(body, "\n")
	body = strings.TrimPrefix(body, "\n")
	return env, body
}

// Compose builds the full content string persisted for a document:
// envelope followed by a blank line and the body.
func Compose(theme, themeName, body string) string {
	var b strings.Builder
	b.WriteString(delim + "\n")
	b.WriteString("theme: " + theme + "\n")
	b.WriteString("themeName: " + themeName + "\n")
	b.WriteString(delim + "\n\n")
	b.WriteString(body)
	return b.String()
}

// SniffThemeName extracts the themeName from the first bytes of a document
// without reading the whole file. Lists pass in roughly the first 500 bytes;
// if the envelope is absent, unparsable, or truncated past the closing
// delimiter, the default theme name is returned.
func SniffThemeName(head []byte) string {
	m := sniffRe.FindSubmatch(head)
	if m == nil {
		return DefaultThemeName
	}
	for _, line := range strings.Split(string(m[1]), "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok || strings.TrimSpace(key) != "themeName" {
			continue
		}
		if v := stripQuotes(strings.TrimSpace(value)); v != "" {
			return v
		}
	}
	return DefaultThemeName
}

// stripQuotes removes one leading and one trailing single or double quote,
// independently, matching the historical regex ^['"]|['"]$ behavior.
func stripQuotes(s string) string {
	if len(s) > 0 && (s[0] == '\'' || s[0] == '"') {
		s = s[1:]
	}
	if len(s) > 0 && (s[len(s)-1] == '\'' || s[len(s)-1] == '"') {
		s = s[:len(s)-1]
	}
	return s
}
