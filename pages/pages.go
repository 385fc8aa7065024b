// Package pages implements the page controllers. A controller fetches what
// its page needs from the injected content Source and composes the page
// from views components. Controllers are the recovery boundary for content
// errors: a failed fetch becomes an error panel, never a returned error.
package pages

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/a-h/templ"

	"github.com/eringen/storysite/content"
	"github.com/eringen/storysite/views"
)

// DefaultPostsPerPage is the blog list page size.
const DefaultPostsPerPage = 9

// Params holds route parameters and query string values.
type Params map[string]string

// Get returns the value for key, or "".
func (p Params) Get(key string) string { return p[key] }

// Source provides normalized content. *content.Repository implements it.
type Source interface {
	SiteConfig(ctx context.Context) (content.SiteConfig, error)
	BlogPosts(ctx context.Context, page, perPage int) (content.BlogPostPage, error)
	BlogPost(ctx context.Context, slug string) (content.BlogPost, error)
	RelatedPosts(ctx context.Context, exclude string, n int) ([]content.BlogPost, error)
}

// Env carries the dependencies a controller is constructed with.
type Env struct {
	Source       Source
	Logger       *slog.Logger
	CurrentURL   string // path and query being rendered, for retry links
	SiteURL      string // absolute site origin for structured data
	PostsPerPage int
}

// Controller renders one page.
type Controller interface {
	// Render fetches content and returns the page subtree. Content errors
	// are rendered as panels; a returned error means the controller itself
	// failed.
	Render(ctx context.Context, params Params) (templ.Component, error)
	// Element returns the last rendered subtree, or nil before Render.
	Element() templ.Component
}

// StatusReporter is implemented by controllers that map their outcome to an
// HTTP status.
type StatusReporter interface {
	Status() int
}

// Titler is implemented by controllers that know their document title.
type Titler interface {
	Title() string
}

type base struct {
	env     Env
	element templ.Component
	status  int
	title   string
}

func newBase(env Env) (base, error) {
	if env.Source == nil {
		return base{}, ErrNoSource
	}
	if env.Logger == nil {
		env.Logger = slog.Default()
	}
	if env.PostsPerPage <= 0 {
		env.PostsPerPage = DefaultPostsPerPage
	}
	return base{env: env, status: http.StatusOK}, nil
}

func (b *base) Element() templ.Component { return b.element }

func (b *base) Status() int { return b.status }

func (b *base) Title() string { return b.title }

func (b *base) done(title string, c templ.Component) templ.Component {
	b.title = title
	b.element = c
	return c
}

// fail logs err and renders the uniform error panel in place of the page.
func (b *base) fail(ctx context.Context, page, title string, err error, action content.Link) templ.Component {
	b.status = StatusFor(err)
	level := slog.LevelError
	if b.status < http.StatusInternalServerError {
		level = slog.LevelWarn
	}
	b.env.Logger.Log(ctx, level, "render page",
		slog.String("page", page),
		slog.Int("status", b.status),
		slog.Any("error", err),
	)
	return b.done(title, views.ErrorPanel(title, Message(err), action))
}

func siteTitle(page string, cfg content.SiteConfig) string {
	if page == "" {
		return cfg.SiteName
	}
	return page + " | " + cfg.SiteName
}
