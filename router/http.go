package router

import (
	"net/url"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"

	"github.com/eringen/storysite/pages"
	"github.com/eringen/storysite/views"
)

const (
	// PartialHeader marks requests from the client router that want only
	// the app root fragment.
	PartialHeader = "X-Storysite-Partial"
	// PartialApp is the PartialHeader value for an app root fragment.
	PartialApp = "app"
	// TitleHeader carries the path-escaped document title of a fragment.
	TitleHeader = "X-Storysite-Title"
	// StateHeader carries the resolution state of a fragment.
	StateHeader = "X-Storysite-State"
)

// Shell wraps a resolved app root into a full HTML document.
type Shell interface {
	Document(c echo.Context, title string, app templ.Component) templ.Component
}

// ShellFunc adapts a function to Shell.
type ShellFunc func(c echo.Context, title string, app templ.Component) templ.Component

func (f ShellFunc) Document(c echo.Context, title string, app templ.Component) templ.Component {
	return f(c, title, app)
}

// DefaultShell renders the built-in document around the app root.
var DefaultShell Shell = ShellFunc(func(_ echo.Context, title string, app templ.Component) templ.Component {
	return views.Document(title, nil, app)
})

// EnvFunc builds the controller environment for a request.
type EnvFunc func(c echo.Context) pages.Env

// Handler returns an Echo handler resolving the request URL. Requests
// carrying PartialHeader get the app root fragment with the title and
// state in response headers; all others get shell's full document.
func (r *Router) Handler(env EnvFunc, shell Shell) echo.HandlerFunc {
	if shell == nil {
		shell = DefaultShell
	}
	return func(c echo.Context) error {
		req := c.Request()
		res := r.Resolve(req.Context(), req.URL.RequestURI(), env(c))

		h := c.Response().Header()
		h.Add(echo.HeaderVary, PartialHeader)
		h.Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)

		out := res.Component
		if req.Header.Get(PartialHeader) == PartialApp {
			h.Set(TitleHeader, url.PathEscape(res.Title))
			h.Set(StateHeader, res.State.String())
		} else {
			out = shell.Document(c, res.Title, res.Component)
		}
		c.Response().WriteHeader(res.Status)
		return out.Render(req.Context(), c.Response().Writer)
	}
}
