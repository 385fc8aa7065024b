package pages

import (
	"context"
	"strings"

	"github.com/a-h/templ"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/eringen/storysite/cms"
	"github.com/eringen/storysite/content"
	"github.com/eringen/storysite/views"
)

// RelatedPostCount is the number of posts listed below a post.
const RelatedPostCount = 3

// BlogDetail renders a single post with related posts.
type BlogDetail struct {
	base
}

// NewBlogDetail creates a BlogDetail controller.
func NewBlogDetail(env Env) (Controller, error) {
	b, err := newBase(env)
	if err != nil {
		return nil, err
	}
	return &BlogDetail{base: b}, nil
}

func (d *BlogDetail) Render(ctx context.Context, params Params) (templ.Component, error) {
	back := content.Link{Label: "Back to Blog", URL: BlogPath}
	const panelTitle = "Error Loading Blog Post"

	slug := strings.TrimSpace(params.Get("slug"))
	if slug == "" {
		err := errors.WithStack(&cms.ValidationError{Field: "slug", Msg: "blog post slug is required"})
		return d.fail(ctx, "blog-detail", panelTitle, err, back), nil
	}

	var (
		cfg  content.SiteConfig
		post content.BlogPost
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		cfg, err = d.env.Source.SiteConfig(gctx)
		return err
	})
	g.Go(func() (err error) {
		post, err = d.env.Source.BlogPost(gctx, slug)
		return err
	})
	if err := g.Wait(); err != nil {
		return d.fail(ctx, "blog-detail", panelTitle, err, back), nil
	}

	related, err := d.env.Source.RelatedPosts(ctx, post.Slug, RelatedPostCount)
	if err != nil {
		return d.fail(ctx, "blog-detail", panelTitle, err, back), nil
	}

	children := []templ.Component{
		views.Header(cfg, ""),
		views.BlogDetail(post),
	}
	if len(related) > 0 {
		children = append(children, views.Section("related-posts", views.BlogList("Related Posts", related)))
	}
	children = append(children,
		views.JSONLD(views.BlogPostingJSONLD(cfg, post, d.env.SiteURL)),
		views.Footer(cfg.Footer),
	)
	return d.done(siteTitle(post.Title, cfg), views.Page("blog-detail-page", children...)), nil
}
