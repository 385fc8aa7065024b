// Package richtext renders Storyblok rich-text documents and markdown fields
// to sanitized HTML.
package richtext

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"io"
	"strconv"
	"strings"

	"github.com/a-h/templ"
)

// IsDocument reports whether v looks like a rich-text document: an object
// with type "doc".
func IsDocument(v any) bool {
	m, ok := v.(map[string]any)
	return ok && m["type"] == "doc"
}

// Render returns the HTML for a rich-text document. Unknown node types are
// rendered as their children; embedded bloks are skipped.
func Render(doc map[string]any) string {
	if doc == nil {
		return ""
	}
	var buf bytes.Buffer
	renderNode(&buf, doc)
	return SanitizeHTML(buf.String())
}

// Component wraps already-sanitized HTML as a templ.Component.
func Component(safeHTML string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, safeHTML)
		return err
	})
}

func renderNode(buf *bytes.Buffer, n map[string]any) {
	typ, _ := n["type"].(string)
	attrs, _ := n["attrs"].(map[string]any)

	switch typ {
	case "doc":
		renderChildren(buf, n)
	case "text":
		text, _ := n["text"].(string)
		renderText(buf, text, marks(n))
	case "paragraph":
		wrap(buf, "p", "", n)
	case "heading":
		level := intAttr(attrs, "level", 1)
		if level < 1 || level > 6 {
			level = 1
		}
		wrap(buf, "h"+strconv.Itoa(level), "", n)
	case "bullet_list":
		wrap(buf, "ul", "", n)
	case "ordered_list":
		start := intAttr(attrs, "order", 1)
		extra := ""
		if start != 1 {
			extra = ` start="` + strconv.Itoa(start) + `"`
		}
		wrap(buf, "ol", extra, n)
	case "list_item":
		wrap(buf, "li", "", n)
	case "blockquote":
		wrap(buf, "blockquote", "", n)
	case "code_block":
		class := ""
		if lang := stringAttr(attrs, "class"); lang != "" {
			class = ` class="` + html.EscapeString(lang) + `"`
		}
		buf.WriteString("<pre><code" + class + ">")
		renderChildren(buf, n)
		buf.WriteString("</code></pre>")
	case "horizontal_rule":
		buf.WriteString("<hr/>")
	case "hard_break":
		buf.WriteString("<br/>")
	case "image":
		src := SafeURL(stringAttr(attrs, "src"))
		if src == "" {
			return
		}
		fmt.Fprintf(buf, `<img src="%s" alt="%s" loading="lazy"`, src, html.EscapeString(stringAttr(attrs, "alt")))
		if title := stringAttr(attrs, "title"); title != "" {
			fmt.Fprintf(buf, ` title="%s"`, html.EscapeString(title))
		}
		buf.WriteString("/>")
	case "emoji":
		if e := stringAttr(attrs, "emoji"); e != "" {
			buf.WriteString(html.EscapeString(e))
		} else if name := stringAttr(attrs, "name"); name != "" {
			buf.WriteString(":" + html.EscapeString(name) + ":")
		}
	case "blok":
		// embedded components carry no markup of their own
	case "table":
		wrap(buf, "table", "", n)
	case "tableRow", "table_row":
		wrap(buf, "tr", "", n)
	case "tableHeader", "table_header":
		wrap(buf, "th", "", n)
	case "tableCell", "table_cell":
		wrap(buf, "td", "", n)
	default:
		renderChildren(buf, n)
	}
}

func wrap(buf *bytes.Buffer, tag, extra string, n map[string]any) {
	buf.WriteString("<" + tag + extra + ">")
	renderChildren(buf, n)
	buf.WriteString("</" + tag + ">")
}

func renderChildren(buf *bytes.Buffer, n map[string]any) {
	children, _ := n["content"].([]any)
	for _, c := range children {
		if child, ok := c.(map[string]any); ok {
			renderNode(buf, child)
		}
	}
}

type mark struct {
	typ   string
	attrs map[string]any
}

func marks(n map[string]any) []mark {
	raw, _ := n["marks"].([]any)
	out := make([]mark, 0, len(raw))
	for _, r := range raw {
		m, ok := r.(map[string]any)
		if !ok {
			continue
		}
		typ, _ := m["type"].(string)
		attrs, _ := m["attrs"].(map[string]any)
		out = append(out, mark{typ: typ, attrs: attrs})
	}
	return out
}

func renderText(buf *bytes.Buffer, text string, ms []mark) {
	var closers []string
	for _, m := range ms {
		open, end := markTags(m)
		if open == "" {
			continue
		}
		buf.WriteString(open)
		closers = append(closers, end)
	}
	buf.WriteString(html.EscapeString(text))
	for i := len(closers) - 1; i >= 0; i-- {
		buf.WriteString(closers[i])
	}
}

func markTags(m mark) (string, string) {
	switch m.typ {
	case "bold":
		return "<strong>", "</strong>"
	case "italic":
		return "<em>", "</em>"
	case "strike":
		return "<s>", "</s>"
	case "underline":
		return "<u>", "</u>"
	case "code":
		return "<code>", "</code>"
	case "superscript":
		return "<sup>", "</sup>"
	case "subscript":
		return "<sub>", "</sub>"
	case "highlight":
		return "<mark>", "</mark>"
	case "styled":
		if class := stringAttr(m.attrs, "class"); class != "" {
			return `<span class="` + html.EscapeString(class) + `">`, "</span>"
		}
		return "<span>", "</span>"
	case "anchor":
		if id := stringAttr(m.attrs, "id"); id != "" {
			return `<span id="` + html.EscapeString(id) + `">`, "</span>"
		}
	case "link":
		href := linkHref(m.attrs)
		if href == "" {
			return "", ""
		}
		open := `<a href="` + href + `"`
		if target := stringAttr(m.attrs, "target"); target == "_blank" {
			open += ` target="_blank"`
		}
		return open + ">", "</a>"
	}
	return "", ""
}

// linkHref resolves a link mark the way Storyblok multilinks resolve:
// email links become mailto, story links are site-relative.
func linkHref(attrs map[string]any) string {
	href := stringAttr(attrs, "href")
	switch stringAttr(attrs, "linktype") {
	case "email":
		href = "mailto:" + strings.TrimPrefix(href, "mailto:")
	case "story":
		if href != "" && !strings.HasPrefix(href, "/") {
			href = "/" + href
		}
	}
	if anchor := stringAttr(attrs, "anchor"); anchor != "" {
		href += "#" + anchor
	}
	return SafeURL(href)
}

func stringAttr(attrs map[string]any, key string) string {
	s, _ := attrs[key].(string)
	return s
}

func intAttr(attrs map[string]any, key string, def int) int {
	switch v := attrs[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
