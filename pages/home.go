package pages

import (
	"context"

	"github.com/a-h/templ"
	"golang.org/x/sync/errgroup"

	"github.com/eringen/storysite/content"
	"github.com/eringen/storysite/views"
)

// HomeLatestPosts is the number of posts listed on the home page.
const HomeLatestPosts = 3

// Home renders the landing page: hero, latest posts and site chrome.
type Home struct {
	base
}

// NewHome creates a Home controller.
func NewHome(env Env) (Controller, error) {
	b, err := newBase(env)
	if err != nil {
		return nil, err
	}
	return &Home{base: b}, nil
}

func (h *Home) Render(ctx context.Context, params Params) (templ.Component, error) {
	var (
		cfg    content.SiteConfig
		latest content.BlogPostPage
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		cfg, err = h.env.Source.SiteConfig(gctx)
		return err
	})
	g.Go(func() (err error) {
		latest, err = h.env.Source.BlogPosts(gctx, 1, HomeLatestPosts)
		return err
	})
	if err := g.Wait(); err != nil {
		retry := h.env.CurrentURL
		if retry == "" {
			retry = "/"
		}
		return h.fail(ctx, "home", "Error Loading Page", err, content.Link{Label: "Retry", URL: retry}), nil
	}

	return h.done(cfg.SiteName, views.Page("home-page",
		views.Header(cfg, "/"),
		views.Hero(views.HeroProps{
			Title:    "Welcome to " + cfg.SiteName,
			Subtitle: cfg.SiteDescription,
			CTA:      content.Link{Label: "Read the Blog", URL: "/blog"},
		}),
		views.BlogList("Latest Posts", latest.Posts),
		views.JSONLD(views.WebsiteJSONLD(cfg, h.env.SiteURL)),
		views.Footer(cfg.Footer),
	)), nil
}
