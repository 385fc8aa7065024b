package views

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/a-h/templ"

	"github.com/eringen/storysite/content"
)

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	if err := c.Render(context.Background(), &buf); err != nil {
		t.Fatalf("Render: %v", err)
	}
	return buf.String()
}

func TestHeaderMarksActiveLink(t *testing.T) {
	cfg := content.SiteConfig{
		SiteName:   "Acme",
		Navigation: []content.Link{{Label: "Home", URL: "/"}, {Label: "Blog", URL: "/blog"}},
	}
	out := render(t, Header(cfg, "/blog"))
	if !strings.Contains(out, "Acme") {
		t.Errorf("missing site name: %s", out)
	}
	if !strings.Contains(out, `<a href="/blog" class="active" aria-current="page">Blog</a>`) {
		t.Errorf("blog link not active: %s", out)
	}
	if strings.Contains(out, `<a href="/" class="active"`) {
		t.Errorf("home link should not be active: %s", out)
	}
}

func TestHeaderEscapesUnsafeURLs(t *testing.T) {
	cfg := content.SiteConfig{
		SiteName:   "<b>Acme</b>",
		Navigation: []content.Link{{Label: "Bad", URL: "javascript:alert(1)"}},
	}
	out := render(t, Header(cfg, ""))
	if strings.Contains(out, "javascript:") {
		t.Errorf("unsafe URL rendered: %s", out)
	}
	if strings.Contains(out, "<b>Acme</b>") {
		t.Errorf("site name not escaped: %s", out)
	}
}

func TestFooter(t *testing.T) {
	out := render(t, Footer(content.Footer{
		Copyright: "© 2025 Acme",
		Links:     []content.Link{{Label: "Privacy", URL: "/privacy"}},
		Social:    []content.Link{{Label: "GitHub", URL: "https://github.com/acme"}},
	}))
	for _, want := range []string{"© 2025 Acme", `href="/privacy"`, `href="https://github.com/acme"`} {
		if !strings.Contains(out, want) {
			t.Errorf("footer missing %q: %s", want, out)
		}
	}
}

func TestBlogListOrder(t *testing.T) {
	posts := []content.BlogPost{
		{Title: "First", Slug: "first", Author: "A"},
		{Title: "Second", Slug: "second", Author: "B"},
	}
	out := render(t, BlogList("Latest", posts))
	i, j := strings.Index(out, "First"), strings.Index(out, "Second")
	if i < 0 || j < 0 || i > j {
		t.Errorf("posts out of order: %s", out)
	}
	if !strings.Contains(out, `href="/blog/first"`) {
		t.Errorf("missing post link: %s", out)
	}
}

func TestBlogListEmpty(t *testing.T) {
	out := render(t, BlogList("", nil))
	if !strings.Contains(out, "No posts yet.") {
		t.Errorf("missing empty state: %s", out)
	}
}

func TestBlogDetailRendersContentHTML(t *testing.T) {
	out := render(t, BlogDetail(content.BlogPost{
		Title:         "Hello",
		Content:       "<p>Body <strong>text</strong></p>",
		Author:        "Ada",
		PublishedDate: "2024-01-15T00:00:00Z",
	}))
	if !strings.Contains(out, "<p>Body <strong>text</strong></p>") {
		t.Errorf("content not rendered as HTML: %s", out)
	}
	if !strings.Contains(out, "January 15, 2024") {
		t.Errorf("date not formatted: %s", out)
	}
	if !strings.Contains(out, "1 min read") {
		t.Errorf("missing reading time: %s", out)
	}
}

func TestErrorPanel(t *testing.T) {
	out := render(t, ErrorPanel("Error Loading Blog", "boom <x>", content.Link{Label: "Return Home", URL: "/"}))
	for _, want := range []string{`class="error-container"`, "Error Loading Blog", "boom &lt;x&gt;", `href="/"`, "Return Home"} {
		if !strings.Contains(out, want) {
			t.Errorf("panel missing %q: %s", want, out)
		}
	}
}

func TestNotFoundPanel(t *testing.T) {
	out := render(t, NotFoundPanel())
	if !strings.Contains(out, "404 - Page Not Found") {
		t.Errorf("unexpected 404 panel: %s", out)
	}
}

func TestPageWrapsChildren(t *testing.T) {
	out := render(t, Page("home-page", PageHeader("Title", ""), nil, LoadingPanel()))
	if !strings.HasPrefix(out, `<div class="page home-page">`) || !strings.HasSuffix(out, "</div>") {
		t.Errorf("unexpected page root: %s", out)
	}
	if !strings.Contains(out, "<h1>Title</h1>") || !strings.Contains(out, "app-loading") {
		t.Errorf("children missing: %s", out)
	}
}

func TestPagination(t *testing.T) {
	out := render(t, Pagination("/blog", 2, 3))
	for _, want := range []string{
		`href="/blog?page=1"`,
		`data-navigate="/blog?page=3"`,
		`aria-current="page">2<`,
		"Previous",
		"Next",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("pagination missing %q: %s", want, out)
		}
	}
	if out := render(t, Pagination("/blog", 1, 1)); strings.Contains(out, "<nav") {
		t.Errorf("single page should render nothing: %s", out)
	}
}

func TestPages(t *testing.T) {
	tests := []struct {
		current, total int
		want           []int
	}{
		{1, 0, nil},
		{1, 1, []int{1}},
		{1, 10, []int{1, 2, 3}},
		{5, 10, []int{3, 4, 5, 6, 7}},
		{10, 10, []int{8, 9, 10}},
		{4, 3, []int{2, 3}},
		{10, 3, nil},
		{1000, 3, nil},
	}
	for _, tt := range tests {
		got := Pages("/blog", tt.current, tt.total)
		if len(got) != len(tt.want) {
			t.Fatalf("Pages(%d, %d) = %+v", tt.current, tt.total, got)
		}
		for i, p := range got {
			if p.Number != tt.want[i] || p.Current != (p.Number == tt.current) {
				t.Errorf("Pages(%d, %d)[%d] = %+v", tt.current, tt.total, i, p)
			}
		}
	}
}

func TestImageURL(t *testing.T) {
	tests := []struct {
		src, size, want string
	}{
		{"", "640x360", ""},
		{"https://a.storyblok.com/f/1/x.png", "640x360", "https://a.storyblok.com/f/1/x.png/m/640x360"},
		{"//a.storyblok.com/f/1/x.png", "", "https://a.storyblok.com/f/1/x.png"},
		{"https://a.storyblok.com/f/1/x.png/m/100x0", "640x360", "https://a.storyblok.com/f/1/x.png/m/100x0"},
		{"https://example.com/x.png", "640x360", "https://example.com/x.png"},
	}
	for _, tt := range tests {
		if got := ImageURL(tt.src, tt.size); got != tt.want {
			t.Errorf("ImageURL(%q, %q) = %q, want %q", tt.src, tt.size, got, tt.want)
		}
	}
}

func TestJSONLD(t *testing.T) {
	cfg := content.SiteConfig{SiteName: "Acme"}
	post := content.BlogPost{Title: "</script><script>x", Slug: "p", Author: "Ada"}
	out := render(t, JSONLD(BlogPostingJSONLD(cfg, post, "https://acme.test")))
	if strings.Count(out, "</script>") != 1 {
		t.Errorf("script breakout not escaped: %s", out)
	}
	if !strings.Contains(out, `"url":"https://acme.test/blog/p/"`) {
		t.Errorf("missing post url: %s", out)
	}
}

func TestDocument(t *testing.T) {
	out := render(t, Document("A <b> title", templ.Raw(`<meta name="x">`), Page("home-page")))
	for _, want := range []string{
		"<!DOCTYPE html>",
		"<title>A &lt;b&gt; title</title>",
		`<meta name="x">`,
		`<div id="app"><div class="page home-page"></div></div>`,
		`src="/_storysite/router.js"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("document missing %q:\n%s", want, out)
		}
	}
}
