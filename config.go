package storysite

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/eringen/storysite/cms"
)

// Cache backends for CMS responses.
const (
	CacheMemory = "memory"
	CacheSQLite = "sqlite"
	CacheNone   = "none"
)

// Config holds all configuration for a storysite server.
type Config struct {
	Addr       string // Listen address (default "0.0.0.0:3000")
	URL        string // Canonical site URL (default "http://localhost:3000")
	Production bool   // Published content with the public token; otherwise draft with the preview token

	PublicToken   string // Storyblok public (published) access token
	PreviewToken  string // Storyblok preview (draft) access token
	Region        string // Storyblok region: eu, us, ap, ca, cn (default eu)
	SpaceID       string // Storyblok space, used to validate preview links
	WebhookSecret string // Verifies webhook-signature when set
	CMSBaseURL    string // Overrides the regional CDN endpoint
	CMSTimeout    time.Duration

	AllowedOrigins []string // CORS origins (default "*")
	DistDir        string   // Built assets and entry document (default "dist")

	CacheBackend string        // memory (default), sqlite or none
	CachePath    string        // SQLite cache path (default "data/storysite.db")
	CacheTTL     time.Duration // CMS response TTL (default 5min)

	SessionSecret string // Preview session key; previews are disabled when empty
	CookieSecure  bool   // Set true for HTTPS
	PreviewBridge bool   // Inject the Storyblok bridge script in preview mode

	PostsPerPage    int
	ShutdownTimeout time.Duration // default 10s
	Debug           bool          // Log error stack traces
}

var errNoToken = errors.New("storysite: a Storyblok access token is required")

func (c *Config) setDefaults() {
	if c.Addr == "" {
		c.Addr = "0.0.0.0:3000"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	c.URL = strings.TrimRight(c.URL, "/")
	if c.Region == "" {
		c.Region = "eu"
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.DistDir == "" {
		c.DistDir = "dist"
	}
	if c.CacheBackend == "" {
		c.CacheBackend = CacheMemory
	}
	if c.CachePath == "" {
		c.CachePath = "data/storysite.db"
	}
	if c.CacheTTL == 0 {
		c.CacheTTL = cms.DefaultTTL
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
}

// AccessToken returns the token for the configured environment: the
// public token in production, the preview token otherwise. Either falls
// back to the other when unset.
func (c Config) AccessToken() string {
	if c.Production {
		return firstNonEmpty(c.PublicToken, c.PreviewToken)
	}
	return firstNonEmpty(c.PreviewToken, c.PublicToken)
}

// Version returns the content version the environment reads.
func (c Config) Version() cms.Version {
	if c.Production {
		return cms.VersionPublished
	}
	return cms.VersionDraft
}

// Validate reports configuration that prevents the server from starting.
func (c Config) Validate() error {
	if c.AccessToken() == "" {
		return errNoToken
	}
	switch c.CacheBackend {
	case CacheMemory, CacheSQLite, CacheNone:
	default:
		return errors.New("storysite: unknown cache backend " + c.CacheBackend)
	}
	return nil
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback runs after the built-in routes except the page fallback.
// Handlers write templ components with Render or RenderStatus.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithLogger sets the application logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *App) {
		a.Logger = l
	}
}

// WithHTTPClient sets the client used for CMS requests.
func WithHTTPClient(h *http.Client) Option {
	return func(a *App) {
		a.httpClient = h
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
