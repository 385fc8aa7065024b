// Package router maps URL paths to page controllers and drives route
// resolution: loading, rendering, error and not-found states. The same
// Router backs the HTTP handler and the headless navigation Session.
package router

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/a-h/templ"

	"github.com/eringen/storysite/content"
	"github.com/eringen/storysite/pages"
	"github.com/eringen/storysite/views"
)

// State is the resolution state of a route.
type State int

const (
	Idle State = iota
	Loading
	Rendered
	Error
	NotFound
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Rendered:
		return "rendered"
	case Error:
		return "error"
	case NotFound:
		return "not-found"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// ErrorPanelTitle heads the panel shown when a controller cannot render.
const ErrorPanelTitle = "Error Loading Page"

// NotFoundTitle is the document title of the 404 panel.
const NotFoundTitle = "404 - Page Not Found"

// Factory instantiates a page controller for one resolution.
type Factory func(pages.Env) (pages.Controller, error)

type route struct {
	pattern  string
	segments []string
	factory  Factory
}

// Router holds the routing table. Register routes with Handle before
// serving; the table is read-only afterwards.
type Router struct {
	routes []route
	logger *slog.Logger
}

// Option configures a Router.
type Option func(*Router)

// WithLogger sets the logger used for resolution failures.
func WithLogger(l *slog.Logger) Option {
	return func(r *Router) {
		r.logger = l
	}
}

// New creates an empty Router.
func New(opts ...Option) *Router {
	r := &Router{logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Handle registers f for pattern. A pattern is an absolute path whose
// segments are literals or :name parameters, e.g. "/blog/:slug".
func (r *Router) Handle(pattern string, f Factory) *Router {
	if f == nil {
		panic("router: nil factory for " + pattern)
	}
	if !strings.HasPrefix(pattern, "/") {
		panic("router: pattern must start with /: " + pattern)
	}
	r.routes = append(r.routes, route{pattern: pattern, segments: split(pattern), factory: f})
	return r
}

// Patterns returns the registered patterns in registration order.
func (r *Router) Patterns() []string {
	out := make([]string, len(r.routes))
	for i, rt := range r.routes {
		out[i] = rt.pattern
	}
	return out
}

// Match finds the first route matching p. Trailing slashes are ignored.
func (r *Router) Match(p string) (Factory, pages.Params, bool) {
	segs := split(p)
outer:
	for _, rt := range r.routes {
		if len(rt.segments) != len(segs) {
			continue
		}
		params := pages.Params{}
		for i, s := range rt.segments {
			if strings.HasPrefix(s, ":") {
				params[s[1:]] = segs[i]
				continue
			}
			if s != segs[i] {
				continue outer
			}
		}
		return rt.factory, params, true
	}
	return nil, nil, false
}

func split(p string) []string {
	p = strings.Trim(path.Clean("/"+p), "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

// Result is the outcome of resolving one URL.
type Result struct {
	URL       string
	State     State
	Component templ.Component
	Status    int
	Title     string
	Err       error
}

// Resolve matches rawURL, instantiates its controller with env and waits for
// the render. Query values and path parameters are passed as Params, path
// parameters taking precedence. Resolve never returns a nil Component.
func (r *Router) Resolve(ctx context.Context, rawURL string, env pages.Env) Result {
	u, err := url.Parse(rawURL)
	if err != nil {
		return r.notFound(rawURL)
	}
	target := u.RequestURI()

	factory, params, ok := r.Match(u.Path)
	if !ok {
		return r.notFound(target)
	}
	for k, v := range u.Query() {
		if _, taken := params[k]; !taken && len(v) > 0 {
			params[k] = v[0]
		}
	}
	env.CurrentURL = target

	ctrl, err := instantiate(factory, env)
	if err != nil {
		return r.failed(ctx, target, err)
	}
	c, err := render(ctx, ctrl, params)
	if err != nil {
		return r.failed(ctx, target, err)
	}

	res := Result{URL: target, State: Rendered, Component: c, Status: http.StatusOK}
	if sr, ok := ctrl.(pages.StatusReporter); ok && sr.Status() != 0 {
		res.Status = sr.Status()
	}
	if t, ok := ctrl.(pages.Titler); ok {
		res.Title = t.Title()
	}
	return res
}

func instantiate(f Factory, env pages.Env) (ctrl pages.Controller, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("instantiate controller: %v", p)
		}
	}()
	ctrl, err = f(env)
	if err == nil && ctrl == nil {
		err = fmt.Errorf("instantiate controller: factory returned nil")
	}
	return ctrl, err
}

func render(ctx context.Context, ctrl pages.Controller, params pages.Params) (c templ.Component, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("render: %v", p)
		}
	}()
	c, err = ctrl.Render(ctx, params)
	if err == nil && c == nil {
		err = fmt.Errorf("render: controller returned no content")
	}
	return c, err
}

func (r *Router) failed(ctx context.Context, target string, err error) Result {
	status := pages.StatusFor(err)
	r.logger.ErrorContext(ctx, "resolve route",
		slog.String("url", target),
		slog.Int("status", status),
		slog.Any("error", err),
	)
	return Result{
		URL:       target,
		State:     Error,
		Component: views.ErrorPanel(ErrorPanelTitle, pages.Message(err), content.Link{Label: "Return Home", URL: "/"}),
		Status:    status,
		Title:     ErrorPanelTitle,
		Err:       err,
	}
}

func (r *Router) notFound(target string) Result {
	return Result{
		URL:       target,
		State:     NotFound,
		Component: views.NotFoundPanel(),
		Status:    http.StatusNotFound,
		Title:     NotFoundTitle,
	}
}
