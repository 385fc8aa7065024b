// Package storysite serves a marketing site and blog whose content lives in
// the Storyblok headless CMS. Pages are rendered on the server and swapped
// in place by a small client router; the same routing table answers full
// document and fragment requests.
package storysite

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eringen/storysite/cms"
	"github.com/eringen/storysite/content"
	"github.com/eringen/storysite/pages"
	"github.com/eringen/storysite/router"
)

// App is the central storysite application. It wires together the CMS
// client, response cache, routing table, middleware and document shell.
type App struct {
	Config  Config
	Echo    *echo.Echo
	CMS     *cms.Client
	Content *content.Repository
	Router  *router.Router
	Store   *Store
	Logger  *slog.Logger

	preview        *content.Repository
	memCache       *cms.MemoryCache
	shell          *Shell
	webhookLimiter *Limiter
	customRoutes   []func(*App)
	httpClient     *http.Client
	initialized    bool
}

// New creates a new App with the given configuration.
func New(cfg Config, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config: cfg,
		Echo:   echo.New(),
		Logger: slog.Default(),
	}
	a.Echo.HideBanner = true
	a.Echo.HidePort = true

	for _, opt := range opts {
		opt(a)
	}
	return a
}

// NewRouter returns the site's routing table.
func NewRouter(logger *slog.Logger) *router.Router {
	r := router.New(router.WithLogger(logger))
	r.Handle("/", pages.NewHome).
		Handle(pages.BlogPath, pages.NewBlogList).
		Handle(pages.BlogPath+"/:slug", pages.NewBlogDetail)
	return r
}

// Init builds the CMS client, cache, shell, middleware and routes. Start
// calls it; tests call it directly and drive a.Echo.
func (a *App) Init() error {
	if a.initialized {
		return nil
	}
	if err := a.Config.Validate(); err != nil {
		return err
	}

	cache, err := a.newCache()
	if err != nil {
		return fmt.Errorf("storysite: init cache: %w", err)
	}
	opts := []cms.Option{cms.WithLogger(a.Logger)}
	if cache != nil {
		opts = append(opts, cms.WithCache(cache))
	}
	if a.httpClient != nil {
		opts = append(opts, cms.WithHTTPClient(a.httpClient))
	}
	a.CMS = cms.NewClient(cms.Config{
		AccessToken: a.Config.AccessToken(),
		Version:     a.Config.Version(),
		Region:      a.Config.Region,
		BaseURL:     a.Config.CMSBaseURL,
		Timeout:     a.Config.CMSTimeout,
	}, opts...)
	a.Content = content.NewRepository(a.CMS)

	draft := a.CMS.Draft()
	if a.Config.PreviewToken != "" {
		draft = draft.WithToken(a.Config.PreviewToken)
	}
	a.preview = content.NewRepository(draft)

	a.Router = NewRouter(a.Logger)
	a.shell = NewShell(filepath.Join(a.Config.DistDir, "index.html"), a.Logger)
	a.webhookLimiter = NewLimiter(30, time.Minute)

	a.setupMiddleware()
	a.setupRoutes()
	for _, fn := range a.customRoutes {
		fn(a)
	}
	a.setupFallback()

	a.initialized = true
	return nil
}

func (a *App) newCache() (cms.Cache, error) {
	switch a.Config.CacheBackend {
	case CacheNone:
		return nil, nil
	case CacheSQLite:
		store, err := NewStore(a.Config.CachePath, a.Config.CacheTTL, a.Logger)
		if err != nil {
			return nil, err
		}
		a.Store = store
		a.memCache = cms.NewMemoryCache(a.Config.CacheTTL)
		return cms.Layered(a.memCache, store), nil
	}
	a.memCache = cms.NewMemoryCache(a.Config.CacheTTL)
	return a.memCache, nil
}

// Start initializes the app and serves until ctx is done, then shuts the
// server down gracefully within Config.ShutdownTimeout.
func (a *App) Start(ctx context.Context) error {
	if err := a.Init(); err != nil {
		return err
	}

	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	go func() {
		if err := a.shell.Watch(watchCtx); err != nil {
			a.Logger.Warn("shell watcher stopped", slog.Any("error", err))
		}
	}()
	stopLimiter := a.webhookLimiter.StartCleanup(time.Minute)
	defer stopLimiter()
	if a.memCache != nil || a.Store != nil {
		go a.pruneCache(watchCtx)
	}

	errc := make(chan error, 1)
	go func() {
		a.Logger.Info("server listening",
			slog.String("addr", a.Config.Addr),
			slog.String("version", string(a.Config.Version())),
			slog.String("cache", a.Config.CacheBackend),
		)
		errc <- a.Echo.Start(a.Config.Addr)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.Logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.ShutdownTimeout)
	defer cancel()
	if err := a.Echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("storysite: shutdown: %w", err)
	}
	return nil
}

func (a *App) pruneCache(ctx context.Context) {
	ticker := time.NewTicker(a.Config.CacheTTL)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.prune()
		}
	}
}

// prune drops expired CMS responses from every cache layer.
func (a *App) prune() {
	if a.memCache != nil {
		if n := a.memCache.Prune(); n > 0 {
			a.Logger.Debug("pruned memory cache", slog.Int("entries", n))
		}
	}
	if a.Store != nil {
		if n, err := a.Store.Prune(); err != nil {
			a.Logger.Warn("prune cache", slog.Any("error", err))
		} else if n > 0 {
			a.Logger.Debug("pruned cache", slog.Int64("entries", n))
		}
	}
}

// Close cleans up resources. Call this when the app is shutting down.
func (a *App) Close() error {
	if a.Store != nil {
		return a.Store.Close()
	}
	return nil
}

// pageEnv builds the controller environment for a request. Preview
// sessions read draft content.
func (a *App) pageEnv(c echo.Context) pages.Env {
	if a.inPreview(c) {
		return a.env(a.preview)
	}
	return a.env(a.Content)
}

func (a *App) env(src pages.Source) pages.Env {
	return pages.Env{
		Source:       src,
		Logger:       a.Logger,
		SiteURL:      a.Config.URL,
		PostsPerPage: a.Config.PostsPerPage,
	}
}

// Browse resolves rawURL through the routing table and writes what a
// visitor would receive to w: the full document, or only the app subtree
// when fragment is set. Init must have been called.
func (a *App) Browse(ctx context.Context, rawURL string, fragment bool, w io.Writer) (router.Result, error) {
	if !a.initialized {
		return router.Result{}, errors.New("storysite: Browse before Init")
	}
	res := a.Router.Resolve(ctx, rawURL, a.env(a.Content))
	out := res.Component
	if !fragment {
		out = a.shell.Component(res.Title, nil, nil, res.Component)
	}
	return res, out.Render(ctx, w)
}
