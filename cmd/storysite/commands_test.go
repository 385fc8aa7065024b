package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/eringen/storysite"
	"github.com/eringen/storysite/cms"
	"github.com/eringen/storysite/content"
)

func TestFormatTable(t *testing.T) {
	lines := formatTable([][]string{
		{"DATE", "TITLE"},
		{"May 1, 2025", "日本語"},
		{"", "ascii"},
	})
	want := []string{
		"DATE         TITLE",
		"May 1, 2025  日本語",
		"             ascii",
	}
	if strings.Join(lines, "\n") != strings.Join(want, "\n") {
		t.Errorf("table =\n%s\nwant\n%s", strings.Join(lines, "\n"), strings.Join(want, "\n"))
	}
}

func TestPostsTable(t *testing.T) {
	out := postsTable(content.BlogPostPage{
		Posts: []content.BlogPost{{
			Title:         strings.Repeat("long ", 20),
			Slug:          "long",
			PublishedDate: "2025-03-04",
			Categories:    []content.Category{{Name: "Go"}, {Name: "Web"}},
		}},
		Total:   11,
		Page:    2,
		PerPage: 10,
	})
	if !strings.Contains(out, "March 4, 2025") || !strings.Contains(out, "Go, Web") {
		t.Errorf("table = %s", out)
	}
	if !strings.Contains(out, "…") {
		t.Error("long title was not truncated")
	}
	if !strings.HasSuffix(out, "page 2 of 2, 11 posts\n") {
		t.Errorf("footer missing: %q", out)
	}
}

func TestInspectAPI(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v2/cdn/stories/config":
			io.WriteString(w, `{"story":{"id":1,"full_slug":"config","content":{
				"_uid":"x","component":"config","site_name":"Debug Site",
				"primary_navigation":[{"label":"Home","url":"/"}]}}}`)
		case "/v2/cdn/stories":
			w.Header().Set("Total", "7")
			io.WriteString(w, `{"stories":[{"id":2,"slug":"hello","full_slug":"blog/hello",
				"content":{"component":"blog_post","title":"Hello","author":"Ada"}}]}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := cms.NewClient(cms.Config{AccessToken: "t", BaseURL: srv.URL + "/v2"})
	r := inspectAPI(context.Background(), client, 1)

	if r.Version != "published" || r.Config.Error != "" {
		t.Fatalf("report = %+v", r)
	}
	if r.Config.Component != "config" || strings.Join(r.Config.Fields, ",") != "primary_navigation,site_name" {
		t.Errorf("config story = %+v", r.Config)
	}
	if r.Config.Site == nil || r.Config.Site.Name != "Debug Site" || r.Config.Site.Navigation != 1 {
		t.Errorf("site = %+v", r.Config.Site)
	}
	if r.Posts.Total != 7 || len(r.Posts.Stories) != 1 {
		t.Fatalf("posts = %+v", r.Posts)
	}
	if p := r.Posts.Stories[0].Post; p == nil || p.Title != "Hello" || p.Slug != "hello" {
		t.Errorf("post = %+v", p)
	}

	out, err := yaml.Marshal(r)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(out), "full_slug: blog/hello") {
		t.Errorf("yaml = %s", out)
	}
}

func TestInspectAPIReportsErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := cms.NewClient(cms.Config{AccessToken: "bad", BaseURL: srv.URL})
	r := inspectAPI(context.Background(), client, 2)
	if r.Config.Error == "" || r.Posts.Error == "" {
		t.Errorf("errors not reported: %+v", r)
	}
}

func TestEndpoint(t *testing.T) {
	if got := endpoint("", "us"); got != "https://api-us.storyblok.com/v2" {
		t.Errorf("endpoint = %q", got)
	}
	if got := endpoint("http://localhost:9/v2/", "us"); got != "http://localhost:9/v2" {
		t.Errorf("endpoint = %q", got)
	}
}

func TestPrintDistReport(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "style.css"), []byte("a{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	r, err := storysite.InspectDist(dir)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	printDistReport(&buf, r)
	out := buf.String()
	for _, want := range []string{"Checking " + dir, "entry document: embedded", ".css", "Problems:", "index.html is missing"} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}

func TestWriteHTML(t *testing.T) {
	var buf bytes.Buffer
	if err := writeHTML(&buf, strings.NewReader("<p>hi</p>"), false); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "<p>hi</p>" {
		t.Errorf("out = %q", buf.String())
	}
}
