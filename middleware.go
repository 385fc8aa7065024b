package storysite

import (
	"log/slog"
	"net/http"
	"path"
	"strings"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/eringen/storysite/cms"
)

const (
	previewSession = "storysite_preview"
	webhookPath    = "/api/storyblok/webhook"
	assetPrefix    = "/_storysite/"
)

func (a *App) setupMiddleware() {
	e := a.Echo

	e.IPExtractor = echo.ExtractIPFromXFFHeader(
		echo.TrustLoopback(true),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(true),
	)

	e.HTTPErrorHandler = a.httpErrorHandler

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:   true,
		LogURI:      true,
		LogMethod:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("ip", v.RemoteIP),
			}
			level := slog.LevelInfo
			if v.Error != nil {
				level = slog.LevelError
				attrs = append(attrs, slog.String("error", v.Error.Error()))
			}
			a.Logger.LogAttrs(c.Request().Context(), level, "request", attrs...)
			return nil
		},
	}))

	e.Use(middleware.Recover())

	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Level: 5,
		Skipper: func(c echo.Context) bool {
			return isCompressed(c.Request().URL.Path)
		},
	}))

	e.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:         "0",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "SAMEORIGIN",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		ContentSecurityPolicy: contentSecurityPolicy(a.Config.Region),
		HSTSMaxAge:            31536000,
	}))

	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: a.Config.AllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAuthorization},
	}))

	if a.Config.SessionSecret != "" {
		e.Use(session.Middleware(a.newSessionStore()))
	}

	e.Use(middleware.CSRFWithConfig(middleware.CSRFConfig{
		ContextKey:     middleware.DefaultCSRFConfig.ContextKey,
		TokenLookup:    "header:X-CSRF-Token,form:_csrf",
		CookieName:     "_csrf",
		CookiePath:     "/",
		CookieSameSite: http.SameSiteLaxMode,
		CookieSecure:   a.Config.CookieSecure,
		CookieHTTPOnly: true,
		Skipper: func(c echo.Context) bool {
			return c.Request().URL.Path == webhookPath
		},
		ErrorHandler: func(err error, c echo.Context) error {
			return c.String(http.StatusForbidden, "Forbidden")
		},
	}))

	e.Use(cacheControlMiddleware)

	e.Use(middleware.StaticWithConfig(middleware.StaticConfig{
		Root: a.Config.DistDir,
		Skipper: func(c echo.Context) bool {
			p := c.Request().URL.Path
			return path.Ext(p) == "" || strings.HasPrefix(p, assetPrefix)
		},
	}))
}

// contentSecurityPolicy allows the site itself plus the Storyblok origins
// the CDN client, image service, live-preview bridge and editor use.
func contentSecurityPolicy(region string) string {
	api := cms.RegionOrigin(region)
	directives := []string{
		"default-src 'self'",
		"script-src 'self' 'unsafe-inline' 'unsafe-eval' https://app.storyblok.com",
		"style-src 'self' 'unsafe-inline'",
		"img-src 'self' data: https: http: *.storyblok.com",
		"connect-src 'self' " + api + " https://api.storyblok.com https://app.storyblok.com wss://ws.storyblok.com",
		"font-src 'self' data:",
		"object-src 'none'",
		"media-src 'self'",
		"frame-src https://app.storyblok.com",
		"frame-ancestors 'self' https://app.storyblok.com",
	}
	return strings.Join(directives, "; ")
}

var staticExts = map[string]bool{
	".js": true, ".css": true, ".jpg": true, ".jpeg": true, ".png": true,
	".gif": true, ".svg": true, ".ico": true, ".webp": true, ".avif": true,
	".woff": true, ".woff2": true,
}

func isCompressed(p string) bool {
	switch path.Ext(p) {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp", ".avif", ".woff", ".woff2":
		return true
	}
	return false
}

// cacheControl returns the Cache-Control value for a request path. Pages
// and HTML are always revalidated; bundler output under /assets/ carries a
// content hash and never changes.
func cacheControl(p string) string {
	ext := path.Ext(p)
	switch {
	case p == "/health" || p == webhookPath || strings.HasPrefix(p, "/preview/"):
		return "no-store"
	case strings.HasPrefix(p, "/assets/") && ext != ".html":
		return "public, max-age=31536000, immutable"
	case p == "/sitemap.xml" || p == "/feed.xml" || p == "/robots.txt":
		return "public, max-age=3600"
	case strings.HasPrefix(p, assetPrefix):
		return "public, max-age=3600"
	case staticExts[ext]:
		return "public, max-age=31536000"
	}
	return "no-cache"
}

func cacheControlMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Set("Cache-Control", cacheControl(c.Request().URL.Path))
		return next(c)
	}
}

func (a *App) newSessionStore() *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(a.Config.SessionSecret))
	store.Options = &sessions.Options{
		Path:     "/",
		HttpOnly: true,
		MaxAge:   60 * 60 * 12,
		SameSite: http.SameSiteNoneMode,
		Secure:   a.Config.CookieSecure,
	}
	if !a.Config.CookieSecure {
		store.Options.SameSite = http.SameSiteLaxMode
	}
	return store
}

// inPreview reports whether the request belongs to a preview session.
func (a *App) inPreview(c echo.Context) bool {
	if a.Config.SessionSecret == "" {
		return false
	}
	sess, err := session.Get(previewSession, c)
	if err != nil {
		return false
	}
	on, ok := sess.Values["preview"].(bool)
	return ok && on
}

func setPreviewSession(c echo.Context) error {
	sess, err := session.Get(previewSession, c)
	if err != nil {
		return err
	}
	sess.Values["preview"] = true
	return sess.Save(c.Request(), c.Response())
}

func clearPreviewSession(c echo.Context) error {
	sess, err := session.Get(previewSession, c)
	if err != nil {
		return err
	}
	sess.Options.MaxAge = -1
	return sess.Save(c.Request(), c.Response())
}

// CsrfToken extracts the CSRF token from the Echo context.
func CsrfToken(c echo.Context) string {
	token, _ := c.Get(middleware.DefaultCSRFConfig.ContextKey).(string)
	return token
}
