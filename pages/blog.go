package pages

import (
	"context"
	"strconv"

	"github.com/a-h/templ"
	"golang.org/x/sync/errgroup"

	"github.com/eringen/storysite/content"
	"github.com/eringen/storysite/views"
)

// BlogPath is the blog index route.
const BlogPath = "/blog"

// BlogList renders one page of the blog index with pagination.
type BlogList struct {
	base
	page int
}

// NewBlogList creates a BlogList controller.
func NewBlogList(env Env) (Controller, error) {
	b, err := newBase(env)
	if err != nil {
		return nil, err
	}
	return &BlogList{base: b, page: 1}, nil
}

// CurrentPage returns the page number parsed by the last Render.
func (p *BlogList) CurrentPage() int { return p.page }

func (p *BlogList) Render(ctx context.Context, params Params) (templ.Component, error) {
	p.page = parsePage(params.Get("page"))
	perPage := p.env.PostsPerPage

	var (
		cfg   content.SiteConfig
		posts content.BlogPostPage
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		cfg, err = p.env.Source.SiteConfig(gctx)
		return err
	})
	g.Go(func() (err error) {
		posts, err = p.env.Source.BlogPosts(gctx, p.page, perPage)
		return err
	})
	if err := g.Wait(); err != nil {
		return p.fail(ctx, "blog", "Error Loading Blog", err, content.Link{Label: "Return Home", URL: "/"}), nil
	}

	title := "Blog"
	if p.page > 1 {
		title += " - Page " + strconv.Itoa(p.page)
	}
	return p.done(siteTitle(title, cfg), views.Page("blog-page",
		views.Header(cfg, BlogPath),
		views.PageHeader("Our Blog", "Insights, updates, and stories from our team"),
		views.BlogList("", posts.Posts),
		views.Pagination(BlogPath, p.page, posts.PageCount()),
		views.Footer(cfg.Footer),
	)), nil
}

// parsePage reads the page query value; anything that is not a positive
// integer means page 1.
func parsePage(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 1
	}
	return n
}
