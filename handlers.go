package storysite

import (
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"

	"github.com/eringen/storysite/content"
	"github.com/eringen/storysite/router"
	"github.com/eringen/storysite/views"
)

func (a *App) setupRoutes() {
	e := a.Echo

	// Embedded client assets: router.js, bridge.js.
	embeddedFS, _ := fs.Sub(EmbeddedAssets, "embedded")
	embeddedHandler := http.StripPrefix(assetPrefix, http.FileServer(http.FS(embeddedFS)))
	e.GET(assetPrefix+"*", echo.WrapHandler(embeddedHandler))

	e.GET("/health", handleHealth)
	e.GET("/robots.txt", a.handleRobots)
	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/feed.xml", a.handleFeed)

	e.POST(webhookPath, a.handleWebhook)

	if a.Config.SessionSecret != "" {
		e.GET("/preview/", a.handlePreview)
		e.POST("/preview/exit/", handlePreviewExit)
	}
}

// setupFallback routes every remaining GET through the page router. It is
// registered last so custom routes take precedence.
func (a *App) setupFallback() {
	h := a.Router.Handler(a.pageEnv, router.ShellFunc(a.document))
	a.Echo.GET("/", h)
	a.Echo.GET("/*", h)
}

// document wraps a rendered app root in the entry document. Preview
// sessions get the preview banner and, when enabled, the live-preview
// bridge.
func (a *App) document(c echo.Context, title string, app templ.Component) templ.Component {
	var head, body templ.Component
	if a.inPreview(c) {
		body = views.PreviewBanner(CsrfToken(c))
		if a.Config.PreviewBridge {
			head = templ.Raw(`<script src="https://app.storyblok.com/f/storyblok-v2-latest.js" defer></script>` +
				`<script src="` + assetPrefix + `bridge.js" defer></script>`)
		}
	}
	return a.shell.Component(title, head, body, app)
}

type healthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

func handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, healthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *App) handleRobots(c echo.Context) error {
	body := fmt.Sprintf("User-agent: *\nAllow: /\nDisallow: /preview/\n\nSitemap: %s\n", absURL(a.Config.URL, "sitemap.xml"))
	return c.String(http.StatusOK, body)
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	he, ok := err.(*echo.HTTPError)
	code := http.StatusInternalServerError
	if ok {
		code = he.Code
	}
	if a.Config.Debug {
		a.Logger.Debug("request failed", slog.String("uri", c.Request().RequestURI), slog.String("trace", fmt.Sprintf("%+v", err)))
	}
	if !acceptsHTML(c) {
		a.Echo.DefaultHTTPErrorHandler(err, c)
		return
	}
	switch {
	case code == http.StatusNotFound:
		_ = RenderStatus(c, code, a.document(c, router.NotFoundTitle, views.NotFoundPanel()))
	case code >= 500:
		a.Logger.Error("server error", slog.String("uri", c.Request().RequestURI), slog.Any("error", err))
		panel := views.ErrorPanel("Something went wrong", "The server could not complete the request.", content.Link{Label: "Return Home", URL: "/"})
		_ = RenderStatus(c, code, a.document(c, "Error", panel))
	default:
		a.Echo.DefaultHTTPErrorHandler(err, c)
	}
}

func acceptsHTML(c echo.Context) bool {
	if c.Request().Method == http.MethodHead {
		return false
	}
	accept := c.Request().Header.Get(echo.HeaderAccept)
	return accept == "" || strings.Contains(accept, "text/html") || strings.Contains(accept, "*/*")
}
