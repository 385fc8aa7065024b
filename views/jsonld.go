package views

import (
	"context"
	"encoding/json"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/a-h/templ"

	"github.com/eringen/storysite/content"
)

// buildURL joins path segments onto a base URL, ensuring a trailing slash.
func buildURL(base string, pathSegments ...string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	u.Path = path.Join(u.Path, path.Join(pathSegments...))
	if len(pathSegments) > 0 && !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u.String()
}

// WebsiteJSONLD returns a Schema.org WebSite block for the site.
func WebsiteJSONLD(cfg content.SiteConfig, siteURL string) map[string]any {
	data := map[string]any{
		"@context": "https://schema.org",
		"@type":    "WebSite",
		"name":     cfg.SiteName,
		"url":      buildURL(siteURL),
	}
	if cfg.SiteDescription != "" {
		data["description"] = cfg.SiteDescription
	}
	return data
}

// BlogPostingJSONLD returns a Schema.org BlogPosting block for a post.
func BlogPostingJSONLD(cfg content.SiteConfig, post content.BlogPost, siteURL string) map[string]any {
	postURL := buildURL(siteURL, "blog", post.Slug)
	data := map[string]any{
		"@context":      "https://schema.org",
		"@type":         "BlogPosting",
		"headline":      post.Title,
		"description":   post.Excerpt,
		"datePublished": post.PublishedDate,
		"url":           postURL,
		"author": map[string]string{
			"@type": "Person",
			"name":  post.Author,
		},
		"publisher": map[string]string{
			"@type": "Organization",
			"name":  cfg.SiteName,
		},
		"mainEntityOfPage": map[string]string{
			"@type": "WebPage",
			"@id":   postURL,
		},
	}
	if post.FeaturedImage != "" {
		data["image"] = post.FeaturedImage
	}
	if len(post.Categories) > 0 {
		data["keywords"] = content.FormatCategories(post.Categories)
	}
	return data
}

// JSONLD renders data inside an application/ld+json script tag.
func JSONLD(data map[string]any) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		b, err := json.Marshal(data)
		if err != nil {
			b = []byte("{}")
		}
		if _, err := io.WriteString(w, `<script type="application/ld+json">`); err != nil {
			return err
		}
		if _, err := w.Write(b); err != nil {
			return err
		}
		_, err = io.WriteString(w, "</script>")
		return err
	})
}
