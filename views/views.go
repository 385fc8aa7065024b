// Package views holds the UI components pages are composed from. Every
// component is a templ.Component; leaf components are html/template
// definitions embedded from templates/.
package views

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"net/url"
	"strings"

	"github.com/a-h/templ"

	"github.com/eringen/storysite/content"
	"github.com/eringen/storysite/richtext"
)

//go:embed templates/*.gohtml
var templateFS embed.FS

var templates = template.Must(template.New("views").Funcs(template.FuncMap{
	"formatDate": content.FormatDate,
	"pathEscape": url.PathEscape,
	"imageURL":   ImageURL,
}).ParseFS(templateFS, "templates/*.gohtml"))

func tmpl(name string, data any) templ.Component {
	return templ.FromGoHTML(templates.Lookup(name), data)
}

// NavLink is a header navigation entry.
type NavLink struct {
	Label  string
	URL    string
	Active bool
}

type headerData struct {
	SiteName string
	Logo     string
	Links    []NavLink
}

// Header renders the site header. The link whose URL equals active is
// marked as the current page.
func Header(cfg content.SiteConfig, active string) templ.Component {
	links := make([]NavLink, len(cfg.Navigation))
	for i, l := range cfg.Navigation {
		links[i] = NavLink{Label: l.Label, URL: l.URL, Active: active != "" && l.URL == active}
	}
	return tmpl("header", headerData{
		SiteName: cfg.SiteName,
		Logo:     ImageURL(cfg.Logo, ""),
		Links:    links,
	})
}

// Footer renders the site footer.
func Footer(f content.Footer) templ.Component {
	return tmpl("footer", f)
}

// HeroProps configures a Hero.
type HeroProps struct {
	Title    string
	Subtitle string
	CTA      content.Link
}

// Hero renders a full-width introduction section.
func Hero(p HeroProps) templ.Component {
	return tmpl("hero", p)
}

// PageHeader renders a page title section.
func PageHeader(title, subtitle string) templ.Component {
	return tmpl("page-header", struct{ Title, Subtitle string }{title, subtitle})
}

// BlogList renders a grid of post cards under an optional title.
func BlogList(title string, posts []content.BlogPost) templ.Component {
	return tmpl("blog-list", struct {
		Title string
		Posts []content.BlogPost
	}{title, posts})
}

// BlogDetail renders a full post. Post content is sanitized by the content
// package before it gets here.
func BlogDetail(post content.BlogPost) templ.Component {
	return tmpl("blog-detail", struct {
		Post        content.BlogPost
		Content     template.HTML
		ReadingTime string
	}{
		Post:        post,
		Content:     template.HTML(post.Content),
		ReadingTime: content.ReadingTime(richtext.PlainText(post.Content), 200),
	})
}

// ErrorPanel renders the uniform failure panel: a title, the error
// message and one recovery link.
func ErrorPanel(title, message string, action content.Link) templ.Component {
	return tmpl("error-panel", struct {
		Title, Message string
		Action         content.Link
	}{title, message, action})
}

// NotFoundPanel renders the 404 panel.
func NotFoundPanel() templ.Component {
	return ErrorPanel("404 - Page Not Found", "The page you're looking for doesn't exist.", content.Link{Label: "Return Home", URL: "/"})
}

// LoadingPanel renders the spinner shown while a route resolves.
func LoadingPanel() templ.Component {
	return tmpl("loading-panel", nil)
}

// PreviewBanner renders the draft-content notice with its exit form.
func PreviewBanner(csrf string) templ.Component {
	return tmpl("preview-banner", struct{ CSRF string }{csrf})
}

// Page wraps children in the page root element. class is appended to the
// "page" class.
func Page(class string, children ...templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		cls := strings.TrimSpace("page " + class)
		if _, err := fmt.Fprintf(w, `<div class="%s">`, template.HTMLEscapeString(cls)); err != nil {
			return err
		}
		for _, c := range children {
			if c == nil {
				continue
			}
			if err := c.Render(ctx, w); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, "</div>")
		return err
	})
}

// Section wraps children in a <section> with the given class.
func Section(class string, children ...templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, `<section class="%s">`, template.HTMLEscapeString(class)); err != nil {
			return err
		}
		for _, c := range children {
			if err := c.Render(ctx, w); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, "</section>")
		return err
	})
}

// RichText renders sanitized HTML.
func RichText(safeHTML string) templ.Component {
	return richtext.Component(safeHTML)
}

// ImageURL rewrites Storyblok asset URLs through the image service at the
// given size ("640x360", "0" for either side keeps the aspect ratio). Other
// URLs are returned unchanged.
func ImageURL(src, size string) string {
	if src == "" {
		return ""
	}
	if strings.HasPrefix(src, "//") {
		src = "https:" + src
	}
	u, err := url.Parse(src)
	if err != nil || size == "" || !strings.HasSuffix(u.Host, "storyblok.com") || strings.Contains(u.Path, "/m/") {
		return src
	}
	return src + "/m/" + size
}

// Document renders a complete HTML document around the app root. head is
// written inside <head> and may be nil.
func Document(title string, head, app templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		data := struct {
			Title     string
			Head, App template.HTML
		}{Title: title}
		var err error
		if head != nil {
			if data.Head, err = templ.ToGoHTML(ctx, head); err != nil {
				return err
			}
		}
		if app != nil {
			if data.App, err = templ.ToGoHTML(ctx, app); err != nil {
				return err
			}
		}
		return templates.ExecuteTemplate(w, "document", data)
	})
}
