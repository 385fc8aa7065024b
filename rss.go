package storysite

import (
	"encoding/xml"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eringen/storysite/content"
	"github.com/eringen/storysite/pages"
)

// feedItems is the number of posts in the RSS feed.
const feedItems = 20

type rssXML struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title       string    `xml:"title"`
	Link        string    `xml:"link"`
	Description string    `xml:"description"`
	Items       []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string   `xml:"title"`
	Link        string   `xml:"link"`
	Description string   `xml:"description"`
	Categories  []string `xml:"category"`
	PubDate     string   `xml:"pubDate,omitempty"`
	GUID        string   `xml:"guid"`
}

func (a *App) handleFeed(c echo.Context) error {
	ctx := c.Request().Context()
	cfg, err := a.Content.SiteConfig(ctx)
	if err != nil {
		return echo.NewHTTPError(pages.StatusFor(err), pages.Message(err)).SetInternal(err)
	}
	list, err := a.Content.BlogPosts(ctx, 1, feedItems)
	if err != nil {
		return echo.NewHTTPError(pages.StatusFor(err), pages.Message(err)).SetInternal(err)
	}
	return a.renderRSS(c, cfg, list.Posts)
}

func (a *App) renderRSS(c echo.Context, cfg content.SiteConfig, posts []content.BlogPost) error {
	base := a.Config.URL
	items := make([]rssItem, 0, len(posts))
	for _, p := range posts {
		pubDate := ""
		if t, ok := content.ParseDate(p.PublishedDate); ok {
			pubDate = t.UTC().Format(time.RFC1123Z)
		}
		cats := make([]string, 0, len(p.Categories))
		for _, cat := range p.Categories {
			cats = append(cats, cat.Name)
		}
		postURL := absURL(base, pages.BlogPath, p.Slug)
		items = append(items, rssItem{
			Title:       p.Title,
			Link:        postURL,
			Description: p.Excerpt,
			Categories:  cats,
			PubDate:     pubDate,
			GUID:        postURL,
		})
	}
	feed := rssXML{
		Version: "2.0",
		Channel: rssChannel{
			Title:       cfg.SiteName,
			Link:        absURL(base),
			Description: cfg.SiteDescription,
			Items:       items,
		},
	}
	c.Response().Header().Set(echo.HeaderContentType, "application/rss+xml; charset=utf-8")
	c.Response().WriteHeader(http.StatusOK)
	c.Response().Write([]byte(xml.Header))
	return xml.NewEncoder(c.Response()).Encode(feed)
}
