package richtext

import (
	"html"
	"net/url"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	policyOnce sync.Once
	ugc        *bluemonday.Policy
	strict     *bluemonday.Policy
)

func policies() (*bluemonday.Policy, *bluemonday.Policy) {
	policyOnce.Do(func() {
		ugc = bluemonday.UGCPolicy()
		ugc.AllowAttrs("class").Matching(bluemonday.SpaceSeparatedTokens).Globally()
		ugc.AllowAttrs("loading").Matching(bluemonday.Paragraph).OnElements("img")
		ugc.AllowAttrs("target").Matching(bluemonday.Paragraph).OnElements("a")
		ugc.AllowAttrs("start").Matching(bluemonday.Integer).OnElements("ol")
		ugc.AllowElements("mark", "s", "u")
		strict = bluemonday.StrictPolicy()
	})
	return ugc, strict
}

// SanitizeHTML strips scripts, event handlers and unsafe URLs from CMS
// supplied HTML.
func SanitizeHTML(s string) string {
	p, _ := policies()
	return p.Sanitize(s)
}

// PlainText strips every tag from s and collapses whitespace.
func PlainText(s string) string {
	_, p := policies()
	text := html.UnescapeString(p.Sanitize(strings.ReplaceAll(s, "><", "> <")))
	return strings.Join(strings.Fields(text), " ")
}

// SafeURL validates and sanitizes a URL for use in HTML attributes.
// Relative paths and http, https, mailto and tel URLs pass; everything
// else yields "".
func SafeURL(raw string) string {
	val := strings.TrimSpace(html.UnescapeString(raw))
	if val == "" {
		return ""
	}
	if strings.HasPrefix(val, "/") || strings.HasPrefix(val, "#") {
		return html.EscapeString(val)
	}
	parsed, err := url.Parse(val)
	if err != nil || parsed.Scheme == "" {
		return ""
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https", "mailto", "tel":
		return html.EscapeString(val)
	default:
		return ""
	}
}
