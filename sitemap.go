package storysite

import (
	"context"
	"encoding/xml"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/eringen/storysite/cms"
	"github.com/eringen/storysite/content"
	"github.com/eringen/storysite/pages"
)

// maxFeedPages bounds how many CDN pages the sitemap walks.
const maxFeedPages = 10

type sitemapURLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

// publishedPosts walks the blog folder newest first until limit posts
// were collected or the folder is exhausted.
func (a *App) publishedPosts(ctx context.Context, limit int) ([]content.BlogPost, error) {
	var posts []content.BlogPost
	for page := 1; page <= maxFeedPages && len(posts) < limit; page++ {
		res, err := a.Content.BlogPosts(ctx, page, cms.MaxPerPage)
		if err != nil {
			return nil, err
		}
		posts = append(posts, res.Posts...)
		if page >= res.PageCount() || len(res.Posts) == 0 {
			break
		}
	}
	if len(posts) > limit {
		posts = posts[:limit]
	}
	return posts, nil
}

func (a *App) handleSitemap(c echo.Context) error {
	posts, err := a.publishedPosts(c.Request().Context(), maxFeedPages*cms.MaxPerPage)
	if err != nil {
		return echo.NewHTTPError(pages.StatusFor(err), pages.Message(err)).SetInternal(err)
	}
	return a.renderSitemap(c, posts)
}

func (a *App) renderSitemap(c echo.Context, posts []content.BlogPost) error {
	base := a.Config.URL
	urls := []sitemapURL{
		{Loc: absURL(base)},
		{Loc: absURL(base, pages.BlogPath)},
	}
	for _, p := range posts {
		lastMod := ""
		if t, ok := content.ParseDate(p.PublishedDate); ok {
			lastMod = t.UTC().Format("2006-01-02")
		}
		urls = append(urls, sitemapURL{
			Loc:     absURL(base, pages.BlogPath, p.Slug),
			LastMod: lastMod,
		})
	}
	sitemap := sitemapURLSet{
		XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9",
		URLs:  urls,
	}
	c.Response().Header().Set(echo.HeaderContentType, "application/xml; charset=utf-8")
	c.Response().WriteHeader(http.StatusOK)
	c.Response().Write([]byte(xml.Header))
	return xml.NewEncoder(c.Response()).Encode(sitemap)
}
