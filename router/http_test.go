package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/eringen/storysite/pages"
)

func newTestEcho() *echo.Echo {
	r := quietRouter()
	r.Handle("/", pageFactory(`<div class="page home-page">home</div>`, "Café & Co"))
	e := echo.New()
	e.GET("/*", r.Handler(func(echo.Context) pages.Env { return pages.Env{} }, nil))
	return e
}

func TestHandlerFullDocument(t *testing.T) {
	e := newTestEcho()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"<!DOCTYPE html>", "<title>Café &amp; Co</title>", `<div id="app"><div class="page home-page">home</div></div>`} {
		if !strings.Contains(body, want) {
			t.Errorf("document missing %q:\n%s", want, body)
		}
	}
	if ct := rec.Header().Get(echo.HeaderContentType); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("content type = %q", ct)
	}
	if rec.Header().Get(TitleHeader) != "" {
		t.Error("title header set on full document")
	}
}

func TestHandlerPartial(t *testing.T) {
	e := newTestEcho()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(PartialHeader, PartialApp)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if body := rec.Body.String(); body != `<div class="page home-page">home</div>` {
		t.Errorf("fragment = %q", body)
	}
	if got := rec.Header().Get(TitleHeader); got != "Caf%C3%A9%20&%20Co" {
		t.Errorf("title header = %q", got)
	}
	if got := rec.Header().Get(StateHeader); got != "rendered" {
		t.Errorf("state header = %q", got)
	}
	if !strings.Contains(rec.Header().Get(echo.HeaderVary), PartialHeader) {
		t.Error("Vary does not name the partial header")
	}
}

func TestHandlerNotFound(t *testing.T) {
	e := newTestEcho()
	req := httptest.NewRequest(http.MethodGet, "/missing", nil)
	req.Header.Set(PartialHeader, PartialApp)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "404 - Page Not Found") {
		t.Errorf("body = %s", rec.Body.String())
	}
	if rec.Header().Get(StateHeader) != "not-found" {
		t.Errorf("state header = %q", rec.Header().Get(StateHeader))
	}
}
