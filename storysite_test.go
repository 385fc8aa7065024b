package storysite

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"

	"github.com/eringen/storysite/router"
	"github.com/eringen/storysite/views"
)

// fakeCMS serves a small Storyblok space and records the query of every
// request.
type fakeCMS struct {
	mu      sync.Mutex
	queries []url.Values
	srv     *httptest.Server
}

func newFakeCMS(t *testing.T) *fakeCMS {
	t.Helper()
	f := &fakeCMS{}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.queries = append(f.queries, r.URL.Query())
		f.mu.Unlock()

		switch r.URL.Path {
		case "/v2/cdn/stories/config":
			io.WriteString(w, `{"story":{"id":1,"slug":"config","content":{
				"site_name":"Test Site",
				"site_description":"A site for tests",
				"primary_navigation":[{"label":"Home","url":"/"},{"label":"Blog","url":"/blog"}]}}}`)
		case "/v2/cdn/stories":
			w.Header().Set("Total", "2")
			io.WriteString(w, `{"stories":[
				{"id":11,"slug":"first","full_slug":"blog/first","content":{"title":"First Post","excerpt":"One","publication_date":"2025-01-02","author":"Ada"}},
				{"id":12,"slug":"second","full_slug":"blog/second","content":{"title":"Second Post","excerpt":"Two","publication_date":"2025-01-01","author":"Grace"}}]}`)
		case "/v2/cdn/stories/blog/first":
			io.WriteString(w, `{"story":{"id":11,"slug":"first","full_slug":"blog/first","content":{"title":"First Post","content":"Hello **world**","author":"Ada"}}}`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeCMS) last() url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.queries) == 0 {
		return nil
	}
	return f.queries[len(f.queries)-1]
}

func (f *fakeCMS) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queries)
}

func newTestApp(t *testing.T, mutate func(*Config)) (*App, *fakeCMS) {
	t.Helper()
	cms := newFakeCMS(t)
	cfg := Config{
		URL:           "https://example.test",
		Production:    true,
		PublicToken:   "public-token",
		PreviewToken:  "preview-token",
		SpaceID:       "42",
		WebhookSecret: "hook-secret",
		SessionSecret: "session-secret-for-tests",
		CMSBaseURL:    cms.srv.URL + "/v2",
		DistDir:       t.TempDir(),
	}
	if mutate != nil {
		mutate(&cfg)
	}
	a := New(cfg, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	if err := a.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a, cms
}

func do(a *App, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	a.Echo.ServeHTTP(rec, req)
	return rec
}

func get(a *App, target string) *httptest.ResponseRecorder {
	return do(a, httptest.NewRequest(http.MethodGet, target, nil))
}

func TestInitRequiresToken(t *testing.T) {
	a := New(Config{})
	if err := a.Init(); err != errNoToken {
		t.Fatalf("Init = %v, want errNoToken", err)
	}
}

func TestCustomRoutes(t *testing.T) {
	cms := newFakeCMS(t)
	a := New(Config{PublicToken: "tok", CMSBaseURL: cms.srv.URL + "/v2", DistDir: t.TempDir()},
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithCustomRoutes(func(a *App) {
			a.Echo.GET("/about", func(c echo.Context) error {
				return Render(c, views.PageHeader("About", "Who we are"))
			})
		}))
	if err := a.Init(); err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	rec := get(a, "/about")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Who we are") {
		t.Errorf("custom route = %d %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get(echo.HeaderContentType); ct != echo.MIMETextHTMLCharsetUTF8 {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestRenderFailureReachesErrorHandler(t *testing.T) {
	cms := newFakeCMS(t)
	failing := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		io.WriteString(w, "half a page")
		return errors.New("component failed")
	})
	a := New(Config{PublicToken: "tok", CMSBaseURL: cms.srv.URL + "/v2", DistDir: t.TempDir()},
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithCustomRoutes(func(a *App) {
			a.Echo.GET("/broken", func(c echo.Context) error {
				return RenderStatus(c, http.StatusOK, failing)
			})
		}))
	if err := a.Init(); err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	rec := get(a, "/broken")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "half a page") {
		t.Error("partial component output was sent")
	}
}

func TestHealth(t *testing.T) {
	a, _ := newTestApp(t, nil)
	rec := get(a, "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body healthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "healthy" {
		t.Errorf("status = %q", body.Status)
	}
	if _, err := time.Parse(time.RFC3339, body.Timestamp); err != nil {
		t.Errorf("timestamp %q: %v", body.Timestamp, err)
	}
}

func TestHomePage(t *testing.T) {
	a, cms := newTestApp(t, nil)
	rec := get(a, "/")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	for _, want := range []string{
		"<title>Test Site</title>",
		`<div id="app"><div class="page home-page">`,
		"Welcome to Test Site",
		"/_storysite/router.js",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("home missing %q", want)
		}
	}
	if i, j := strings.Index(body, "First Post"), strings.Index(body, "Second Post"); i < 0 || j < i {
		t.Errorf("posts missing or out of order (%d, %d)", i, j)
	}
	q := cms.last()
	if q.Get("token") != "public-token" || q.Get("version") != "published" {
		t.Errorf("CDN query = %v", q)
	}
	if cc := rec.Header().Get("Cache-Control"); cc != "no-cache" {
		t.Errorf("Cache-Control = %q", cc)
	}
	if csp := rec.Header().Get("Content-Security-Policy"); !strings.Contains(csp, "https://app.storyblok.com") {
		t.Errorf("CSP = %q", csp)
	}
}

func TestPagesAreCached(t *testing.T) {
	a, cms := newTestApp(t, nil)
	get(a, "/")
	n := cms.count()
	get(a, "/")
	if cms.count() != n {
		t.Errorf("second render made %d CDN requests", cms.count()-n)
	}
}

func TestPartialRequest(t *testing.T) {
	a, _ := newTestApp(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/blog/first", nil)
	req.Header.Set(router.PartialHeader, router.PartialApp)
	rec := do(a, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if strings.Contains(body, "<html") {
		t.Error("partial response contains the document")
	}
	if !strings.Contains(body, "<strong>world</strong>") {
		t.Errorf("markdown content not rendered: %s", body)
	}
	if got := rec.Header().Get(router.TitleHeader); got != url.PathEscape("First Post | Test Site") {
		t.Errorf("title header = %q", got)
	}
}

func TestMissingPostIs404(t *testing.T) {
	a, _ := newTestApp(t, nil)
	rec := get(a, "/blog/missing-slug")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Error Loading Blog Post") || !strings.Contains(body, `href="/blog"`) {
		t.Errorf("missing back-to-blog panel: %s", body)
	}
}

func TestUnknownRouteIs404(t *testing.T) {
	a, _ := newTestApp(t, nil)
	rec := get(a, "/no/such/page")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "404 - Page Not Found") {
		t.Error("404 panel missing")
	}
}

func TestBrowse(t *testing.T) {
	a, _ := newTestApp(t, nil)
	var doc, frag strings.Builder

	res, err := a.Browse(context.Background(), "/blog/first", false, &doc)
	if err != nil {
		t.Fatal(err)
	}
	if res.State != router.Rendered || res.Title != "First Post | Test Site" {
		t.Errorf("result = %v %q", res.State, res.Title)
	}
	if !strings.Contains(doc.String(), "<title>First Post | Test Site</title>") {
		t.Errorf("document missing title: %s", doc.String())
	}

	res, err = a.Browse(context.Background(), "/nowhere", true, &frag)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != http.StatusNotFound || strings.Contains(frag.String(), "<html") {
		t.Errorf("fragment = %d %s", res.Status, frag.String())
	}
}

func TestBlogPagePastTheEnd(t *testing.T) {
	a, _ := newTestApp(t, nil)
	rec := get(a, "/blog?page=10")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if body := rec.Body.String(); strings.Contains(body, "Error Loading") || !strings.Contains(body, "Our Blog") {
		t.Errorf("page past the end did not render the blog: %s", body)
	}
}

func TestSlugCannotChangeTheContentVersion(t *testing.T) {
	a, cms := newTestApp(t, nil)
	rec := get(a, "/blog/a%3Fversion=draft%26")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	cms.mu.Lock()
	defer cms.mu.Unlock()
	if len(cms.queries) == 0 {
		t.Fatal("no CDN requests")
	}
	for _, q := range cms.queries {
		if v := q["version"]; len(v) != 1 || v[0] != "published" {
			t.Errorf("CDN version = %v, want [published]", v)
		}
	}
}

func TestPruneDropsExpiredResponses(t *testing.T) {
	a, _ := newTestApp(t, func(c *Config) { c.CacheTTL = 20 * time.Millisecond })
	get(a, "/")
	if a.memCache.Len() == 0 {
		t.Fatal("nothing was cached")
	}
	time.Sleep(40 * time.Millisecond)
	a.prune()
	if n := a.memCache.Len(); n != 0 {
		t.Errorf("Len after prune = %d, want 0", n)
	}
}

func TestStaticAssets(t *testing.T) {
	a, _ := newTestApp(t, nil)
	dist := a.Config.DistDir
	os.MkdirAll(filepath.Join(dist, "assets"), 0o755)
	os.WriteFile(filepath.Join(dist, "assets", "index-3f9a1c.js"), []byte("console.log(1)"), 0o644)
	os.WriteFile(filepath.Join(dist, "logo.png"), []byte("png"), 0o644)

	tests := []struct {
		path, cache, body string
	}{
		{"/assets/index-3f9a1c.js", "public, max-age=31536000, immutable", "console.log(1)"},
		{"/logo.png", "public, max-age=31536000", "png"},
	}
	for _, tt := range tests {
		rec := get(a, tt.path)
		if rec.Code != http.StatusOK {
			t.Errorf("%s: status = %d", tt.path, rec.Code)
			continue
		}
		if got := rec.Header().Get("Cache-Control"); got != tt.cache {
			t.Errorf("%s: Cache-Control = %q, want %q", tt.path, got, tt.cache)
		}
		if rec.Body.String() != tt.body {
			t.Errorf("%s: body = %q", tt.path, rec.Body.String())
		}
	}
}

func TestEmbeddedRouterScript(t *testing.T) {
	a, _ := newTestApp(t, nil)
	rec := get(a, "/_storysite/router.js")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "X-Storysite-Partial") {
		t.Errorf("router.js: %d %.60s", rec.Code, rec.Body.String())
	}
}

func TestCacheControl(t *testing.T) {
	tests := map[string]string{
		"/":                 "no-cache",
		"/blog/post":        "no-cache",
		"/index.html":       "no-cache",
		"/assets/app-1a.js": "public, max-age=31536000, immutable",
		"/styles.css":       "public, max-age=31536000",
		"/health":           "no-store",
		"/preview/":         "no-store",
		"/sitemap.xml":      "public, max-age=3600",
	}
	for p, want := range tests {
		if got := cacheControl(p); got != want {
			t.Errorf("cacheControl(%q) = %q, want %q", p, got, want)
		}
	}
}

func TestDistShellIsUsed(t *testing.T) {
	dist := t.TempDir()
	os.WriteFile(filepath.Join(dist, "index.html"), []byte(`<!doctype html><html><head><title>Built</title><link rel="stylesheet" href="/assets/app.css"></head>
<body><header>chrome</header><div id="app"><div class="boot"><div>Loading</div></div></div><footer>end</footer></body></html>`), 0o644)
	a, _ := newTestApp(t, func(c *Config) { c.DistDir = dist })

	body := get(a, "/").Body.String()
	for _, want := range []string{"<title>Test Site</title>", `href="/assets/app.css"`, "<header>chrome</header>", `<div id="app"><div class="page home-page">`, "<footer>end</footer>"} {
		if !strings.Contains(body, want) {
			t.Errorf("document missing %q:\n%s", want, body)
		}
	}
	if strings.Contains(body, "Loading") {
		t.Error("placeholder content was kept")
	}
}

func TestWebhook(t *testing.T) {
	a, cms := newTestApp(t, nil)
	get(a, "/")
	before := cms.count()

	payload := []byte(`{"text":"published","action":"published","space_id":42,"story_id":11,"full_slug":"blog/first"}`)
	bad := httptest.NewRequest(http.MethodPost, webhookPath, strings.NewReader(string(payload)))
	bad.Header.Set(SignatureHeader, "deadbeef")
	if rec := do(a, bad); rec.Code != http.StatusUnauthorized {
		t.Errorf("bad signature: status = %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, webhookPath, strings.NewReader(string(payload)))
	req.Header.Set(SignatureHeader, SignWebhook("hook-secret", payload))
	if rec := do(a, req); rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	get(a, "/")
	if cms.count() == before {
		t.Error("render after webhook was served from cache")
	}
}

func TestVerifyWebhook(t *testing.T) {
	body := []byte(`{"action":"published"}`)
	sig := SignWebhook("s", body)
	tests := []struct {
		secret, sig string
		body        []byte
		want        bool
	}{
		{"s", sig, body, true},
		{"s", strings.ToUpper(sig), body, true},
		{"other", sig, body, false},
		{"s", sig, []byte(`{"action":"deleted"}`), false},
		{"s", "not-hex", body, false},
		{"s", "", body, false},
	}
	for i, tt := range tests {
		if got := VerifyWebhook(tt.secret, tt.body, tt.sig); got != tt.want {
			t.Errorf("case %d: VerifyWebhook = %v, want %v", i, got, tt.want)
		}
	}
}

func previewQuery(ts time.Time, token string) string {
	stamp := strconv.FormatInt(ts.Unix(), 10)
	if token == "" {
		token = PreviewToken("42", "preview-token", stamp)
	}
	q := url.Values{}
	q.Set("_storyblok_tk[space_id]", "42")
	q.Set("_storyblok_tk[timestamp]", stamp)
	q.Set("_storyblok_tk[token]", token)
	q.Set("path", "/blog")
	return q.Encode()
}

func TestPreviewFlow(t *testing.T) {
	a, cms := newTestApp(t, nil)

	rec := get(a, "/preview/?"+previewQuery(time.Now(), ""))
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/blog" {
		t.Fatalf("preview entry: %d -> %q", rec.Code, rec.Header().Get("Location"))
	}
	cookies := rec.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("no preview session cookie")
	}

	req := httptest.NewRequest(http.MethodGet, "/blog", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	page := do(a, req)
	if !strings.Contains(page.Body.String(), "Preview mode") {
		t.Error("preview banner missing")
	}
	q := cms.last()
	if q.Get("version") != "draft" || q.Get("token") != "preview-token" {
		t.Errorf("preview CDN query = %v", q)
	}
}

func TestPreviewRejectsBadLinks(t *testing.T) {
	a, _ := newTestApp(t, nil)
	for name, query := range map[string]string{
		"forged":  previewQuery(time.Now(), "0000"),
		"expired": previewQuery(time.Now().Add(-2*time.Hour), ""),
		"empty":   "",
	} {
		if rec := get(a, "/preview/?"+query); rec.Code != http.StatusForbidden {
			t.Errorf("%s: status = %d, want 403", name, rec.Code)
		}
	}
}

func TestPreviewExitRequiresCSRF(t *testing.T) {
	a, _ := newTestApp(t, nil)
	if rec := do(a, httptest.NewRequest(http.MethodPost, "/preview/exit/", nil)); rec.Code != http.StatusForbidden {
		t.Errorf("exit without token: status = %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/preview/exit/", strings.NewReader("_csrf=tok123"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: "_csrf", Value: "tok123"})
	if rec := do(a, req); rec.Code != http.StatusSeeOther {
		t.Errorf("exit with token: status = %d", rec.Code)
	}
}

func TestSitemap(t *testing.T) {
	a, _ := newTestApp(t, nil)
	rec := get(a, "/sitemap.xml")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var set sitemapURLSet
	if err := xml.Unmarshal(rec.Body.Bytes(), &set); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := []string{"https://example.test/", "https://example.test/blog", "https://example.test/blog/first", "https://example.test/blog/second"}
	if len(set.URLs) != len(want) {
		t.Fatalf("urls = %+v", set.URLs)
	}
	for i, u := range set.URLs {
		if u.Loc != want[i] {
			t.Errorf("url %d = %q, want %q", i, u.Loc, want[i])
		}
	}
	if set.URLs[2].LastMod != "2025-01-02" {
		t.Errorf("lastmod = %q", set.URLs[2].LastMod)
	}
}

func TestFeed(t *testing.T) {
	a, _ := newTestApp(t, nil)
	rec := get(a, "/feed.xml")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var feed rssXML
	if err := xml.Unmarshal(rec.Body.Bytes(), &feed); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if feed.Channel.Title != "Test Site" || len(feed.Channel.Items) != 2 {
		t.Fatalf("channel = %+v", feed.Channel)
	}
	if it := feed.Channel.Items[0]; it.Link != "https://example.test/blog/first" || it.PubDate == "" {
		t.Errorf("item = %+v", it)
	}
}

func TestRobots(t *testing.T) {
	a, _ := newTestApp(t, nil)
	body := get(a, "/robots.txt").Body.String()
	if !strings.Contains(body, "Sitemap: https://example.test/sitemap.xml") {
		t.Errorf("robots = %q", body)
	}
}

func TestAccessTokenSelection(t *testing.T) {
	tests := []struct {
		cfg     Config
		token   string
		version string
	}{
		{Config{Production: true, PublicToken: "pub", PreviewToken: "pre"}, "pub", "published"},
		{Config{PublicToken: "pub", PreviewToken: "pre"}, "pre", "draft"},
		{Config{Production: true, PreviewToken: "pre"}, "pre", "published"},
		{Config{PublicToken: "pub"}, "pub", "draft"},
	}
	for i, tt := range tests {
		if got := tt.cfg.AccessToken(); got != tt.token {
			t.Errorf("case %d: AccessToken = %q, want %q", i, got, tt.token)
		}
		if got := string(tt.cfg.Version()); got != tt.version {
			t.Errorf("case %d: Version = %q, want %q", i, got, tt.version)
		}
	}
}

func TestContentSecurityPolicy(t *testing.T) {
	csp := contentSecurityPolicy("us")
	for _, want := range []string{"default-src 'self'", "https://api-us.storyblok.com", "wss://ws.storyblok.com", "object-src 'none'", "frame-src https://app.storyblok.com"} {
		if !strings.Contains(csp, want) {
			t.Errorf("CSP missing %q: %s", want, csp)
		}
	}
}

func TestAbsURL(t *testing.T) {
	tests := []struct {
		base string
		segs []string
		want string
	}{
		{"https://example.test", nil, "https://example.test/"},
		{"https://example.test", []string{"/blog", "post"}, "https://example.test/blog/post"},
		{"https://example.test/site/", []string{"sitemap.xml"}, "https://example.test/site/sitemap.xml"},
		{"https://example.test", []string{"blog", "a b"}, "https://example.test/blog/a%20b"},
	}
	for _, tt := range tests {
		if got := absURL(tt.base, tt.segs...); got != tt.want {
			t.Errorf("absURL(%q, %v) = %q, want %q", tt.base, tt.segs, got, tt.want)
		}
	}
}

func TestLocalPath(t *testing.T) {
	for in, want := range map[string]string{
		"/blog":              "/blog",
		"":                   "/",
		"https://evil.test/": "/",
		"//evil.test":        "/",
		"/\\evil.test":       "/",
		"/blog?page=2":       "/blog?page=2",
	} {
		if got := localPath(in); got != want {
			t.Errorf("localPath(%q) = %q, want %q", in, got, want)
		}
	}
}
