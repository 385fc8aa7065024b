// Package cms is a client for the Storyblok content-delivery API.
//
// The client issues exactly one GET per call, never retries and reports
// failures with the error taxonomy in errors.go. Responses can be cached
// through the Cache interface; draft content is never cached.
package cms

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Version selects draft or published content.
type Version string

const (
	VersionDraft     Version = "draft"
	VersionPublished Version = "published"
)

const (
	// ConfigSlug is the slug of the story holding the site configuration.
	ConfigSlug = "config"
	// BlogFolder is the folder blog post stories live in.
	BlogFolder = "blog/"
	// MaxPerPage is the largest page size the CDN accepts.
	MaxPerPage = 100

	defaultTimeout = 10 * time.Second
	maxBodySize    = 8 << 20 // 8MB
	tracerName     = "github.com/eringen/storysite/cms"
)

var regionHosts = map[string]string{
	"eu": "https://api.storyblok.com",
	"us": "https://api-us.storyblok.com",
	"ap": "https://api-ap.storyblok.com",
	"ca": "https://api-ca.storyblok.com",
	"cn": "https://app.storyblokchina.cn",
}

// RegionOrigin returns the API origin for a space region, defaulting to eu.
func RegionOrigin(region string) string {
	if h, ok := regionHosts[strings.ToLower(strings.TrimSpace(region))]; ok {
		return h
	}
	return regionHosts["eu"]
}

// Config holds the connection settings of a Client.
type Config struct {
	AccessToken string
	Version     Version // default published
	Region      string  // eu (default), us, ap, ca, cn
	BaseURL     string  // overrides Region, e.g. a test server
	Timeout     time.Duration
}

// Client fetches raw stories from the content-delivery API.
type Client struct {
	baseURL string
	token   string
	version Version
	http    *http.Client
	cache   Cache
	logger  *slog.Logger
	tracer  trace.Tracer
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithCache enables response caching for published content.
func WithCache(cache Cache) Option {
	return func(c *Client) { c.cache = cache }
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithTracerProvider sets the provider spans are started from.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Client) { c.tracer = tp.Tracer(tracerName) }
}

// NewClient creates a Client from cfg.
func NewClient(cfg Config, opts ...Option) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = RegionOrigin(cfg.Region) + "/v2"
	}
	version := cfg.Version
	if version == "" {
		version = VersionPublished
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	c := &Client{
		baseURL: strings.TrimRight(base, "/"),
		token:   cfg.AccessToken,
		version: version,
		http:    &http.Client{Timeout: timeout},
		logger:  slog.Default(),
		tracer:  otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Version reports which content version the client requests.
func (c *Client) Version() Version { return c.version }

// Draft returns an uncached client for draft content that shares the
// transport, logger and tracer of c.
func (c *Client) Draft() *Client {
	d := *c
	d.version = VersionDraft
	d.cache = nil
	return &d
}

// WithToken returns a copy of c that authenticates with token.
func (c *Client) WithToken(token string) *Client {
	d := *c
	d.token = token
	return &d
}

// Invalidate drops every cached response.
func (c *Client) Invalidate() {
	if c.cache != nil {
		c.cache.Invalidate()
	}
}

// FetchSiteConfig returns the story holding the site configuration.
func (c *Client) FetchSiteConfig(ctx context.Context) (Story, error) {
	return c.getStory(ctx, "FetchSiteConfig", ConfigSlug)
}

// FetchBlogPostBySlug returns the blog post story with the given slug.
func (c *Client) FetchBlogPostBySlug(ctx context.Context, slug string) (Story, error) {
	slug = strings.Trim(strings.TrimSpace(slug), "/")
	if slug == "" {
		return Story{}, errors.WithStack(&ValidationError{Field: "slug", Msg: "blog post slug is required"})
	}
	path, err := escapeSlug(slug)
	if err != nil {
		return Story{}, err
	}
	return c.getStory(ctx, "FetchBlogPostBySlug", BlogFolder+path)
}

// escapeSlug path-escapes every segment of slug. Dot segments are rejected
// so a slug cannot leave the blog folder.
func escapeSlug(slug string) (string, error) {
	segs := strings.Split(slug, "/")
	for i, seg := range segs {
		if seg == "" || seg == "." || seg == ".." {
			return "", errors.WithStack(&ValidationError{Field: "slug", Msg: "invalid blog post slug " + strconv.Quote(slug)})
		}
		segs[i] = url.PathEscape(seg)
	}
	return strings.Join(segs, "/"), nil
}

// FetchBlogPosts returns one page of blog post stories, newest first.
func (c *Client) FetchBlogPosts(ctx context.Context, page, perPage int) (StoryList, error) {
	if page < 1 {
		return StoryList{}, errors.WithStack(&ValidationError{Field: "page", Msg: "page must be at least 1"})
	}
	if perPage < 1 || perPage > MaxPerPage {
		return StoryList{}, errors.WithStack(&ValidationError{
			Field: "per_page",
			Msg:   "per_page must be between 1 and " + strconv.Itoa(MaxPerPage),
		})
	}
	q := url.Values{}
	q.Set("starts_with", BlogFolder)
	q.Set("is_startpage", "false")
	q.Set("sort_by", "first_published_at:desc")
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(perPage))

	entry, err := c.get(ctx, "FetchBlogPosts", "cdn/stories", q)
	if err != nil {
		return StoryList{}, err
	}
	var resp storiesResponse
	if err := json.Unmarshal(entry.Body, &resp); err != nil {
		return StoryList{}, errors.Wrap(err, "cms: FetchBlogPosts: decode response")
	}
	total := entry.Total
	if total == 0 {
		total = len(resp.Stories)
	}
	if resp.Stories == nil {
		resp.Stories = []Story{}
	}
	return StoryList{Stories: resp.Stories, Total: total}, nil
}

func (c *Client) getStory(ctx context.Context, op, slug string) (Story, error) {
	entry, err := c.get(ctx, op, "cdn/stories/"+slug, url.Values{})
	if err != nil {
		return Story{}, err
	}
	var resp storyResponse
	if err := json.Unmarshal(entry.Body, &resp); err != nil {
		return Story{}, errors.Wrapf(err, "cms: %s: decode response", op)
	}
	if resp.Story == nil {
		return Story{}, errors.Wrapf(ErrNotFound, "%s %q", op, slug)
	}
	return *resp.Story, nil
}

// get performs one GET against path. The cache key never contains the token.
func (c *Client) get(ctx context.Context, op, path string, q url.Values) (entry Entry, err error) {
	q.Set("version", string(c.version))
	key := path + "?" + q.Encode()

	ctx, span := c.tracer.Start(ctx, "cms."+op, trace.WithAttributes(
		attribute.String("cms.path", path),
		attribute.String("cms.version", string(c.version)),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if c.cache != nil && c.version == VersionPublished {
		if e, ok := c.cache.Get(key); ok {
			span.SetAttributes(attribute.Bool("cms.cache_hit", true))
			return e, nil
		}
	}

	q.Set("token", c.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+path+"?"+q.Encode(), http.NoBody)
	if err != nil {
		return Entry{}, errors.Wrapf(err, "cms: %s: build request", op)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		var ue *url.Error
		if errors.As(err, &ue) {
			ue.URL = c.baseURL + "/" + path // drop the token from the message
		}
		return Entry{}, errors.WithStack(&NetworkError{Op: op, Path: path, Err: err})
	}
	defer resp.Body.Close()

	c.logger.DebugContext(ctx, "cms request",
		slog.String("op", op),
		slog.String("path", path),
		slog.String("version", string(c.version)),
		slog.Int("status", resp.StatusCode),
		slog.Duration("latency", time.Since(start)),
	)
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return Entry{}, errors.Wrapf(ErrNotFound, "%s %s", op, path)
	case resp.StatusCode == http.StatusUnauthorized:
		return Entry{}, errors.Wrapf(ErrUnauthorized, "%s %s", op, path)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return Entry{}, errors.WithStack(&APIError{Op: op, Path: path, Status: resp.StatusCode})
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return Entry{}, errors.WithStack(&NetworkError{Op: op, Path: path, Err: err})
	}
	total, _ := strconv.Atoi(resp.Header.Get("Total"))
	entry = Entry{Body: body, Total: total}

	if c.cache != nil && c.version == VersionPublished {
		c.cache.Set(key, entry)
	}
	return entry, nil
}
