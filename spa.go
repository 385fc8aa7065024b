package storysite

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/a-h/templ"
	"github.com/fsnotify/fsnotify"
)

// Shell is the entry document pages are rendered into. It is read from
// DistDir/index.html, falling back to the embedded default when the file is
// missing or has no app root, and reloads when the file changes.
type Shell struct {
	path   string
	logger *slog.Logger

	mu     sync.RWMutex
	doc    *shellDoc
	source string
}

// shellDoc is an entry document split around the insertion points: the
// title text, the end of <head>, the start of <body> and the app root.
type shellDoc struct {
	beforeTitle string // through <title>, or up to </head> when there is none
	hasTitle    bool
	headRest    string // after </title>, up to </head>
	headToBody  string // </head> through the <body> start tag
	bodyToApp   string // after <body>, through the app root start tag
	afterApp    string // the app root end tag onwards
}

var (
	errNoAppRoot = errors.New(`storysite: entry document has no <div id="app">`)

	reTitle     = regexp.MustCompile(`(?is)<title[^>]*>.*?</title>`)
	reTitleOpen = regexp.MustCompile(`(?i)<title[^>]*>`)
	reHeadEnd   = regexp.MustCompile(`(?i)</head\s*>`)
	reBody      = regexp.MustCompile(`(?is)<body[^>]*>`)
	reAppRoot   = regexp.MustCompile(`(?is)<div\b[^>]*\sid\s*=\s*(?:"app"|'app'|app\b)[^>]*>`)
	reDivTag    = regexp.MustCompile(`(?i)<div\b|</div\s*>`)
)

// routerScript loads the client router; it is added when the document does
// not reference it already.
const routerScript = `<script src="` + assetPrefix + `router.js" defer></script>`

func parseShell(raw string) (*shellDoc, error) {
	headEnd := reHeadEnd.FindStringIndex(raw)
	body := reBody.FindStringIndex(raw)
	app := reAppRoot.FindStringIndex(raw)
	if app == nil {
		return nil, errNoAppRoot
	}
	if headEnd == nil || body == nil || headEnd[0] > body[0] || body[1] > app[0] {
		return nil, errors.New("storysite: entry document needs </head> and <body> before the app root")
	}
	appEnd, err := closingDiv(raw, app[1])
	if err != nil {
		return nil, err
	}

	d := &shellDoc{
		headToBody: raw[headEnd[0]:body[1]],
		bodyToApp:  raw[body[1]:app[1]],
		afterApp:   raw[appEnd:],
	}
	head := raw[:headEnd[0]]
	if t := reTitle.FindStringIndex(head); t != nil {
		open := reTitleOpen.FindStringIndex(head[t[0]:])
		d.beforeTitle = head[:t[0]+open[1]]
		d.hasTitle = true
		d.headRest = head[t[1]-len("</title>"):]
	} else {
		d.beforeTitle = head
	}
	if !strings.Contains(raw, assetPrefix+"router.js") {
		d.headRest += routerScript
	}
	return d, nil
}

// closingDiv returns the offset of the </div> that closes the element whose
// content starts at from.
func closingDiv(raw string, from int) (int, error) {
	depth := 1
	for _, m := range reDivTag.FindAllStringIndex(raw[from:], -1) {
		if raw[from+m[0]+1] == '/' {
			depth--
			if depth == 0 {
				return from + m[0], nil
			}
			continue
		}
		depth++
	}
	return 0, errors.New("storysite: app root is not closed")
}

// NewShell creates a Shell for the entry document at path.
func NewShell(path string, logger *slog.Logger) *Shell {
	s := &Shell{path: path, logger: logger}
	s.Reload()
	return s
}

// Reload rereads the entry document.
func (s *Shell) Reload() {
	doc, source, err := s.load()
	if err != nil {
		s.logger.Warn("entry document unusable, using embedded shell", slog.String("path", s.path), slog.Any("error", err))
	}
	s.mu.Lock()
	s.doc, s.source = doc, source
	s.mu.Unlock()
}

func (s *Shell) load() (*shellDoc, string, error) {
	raw, err := os.ReadFile(s.path)
	if err == nil {
		doc, perr := parseShell(string(raw))
		if perr == nil {
			return doc, s.path, nil
		}
		err = perr
	}
	if errors.Is(err, os.ErrNotExist) {
		err = nil
	}
	fallback, ferr := EmbeddedAssets.ReadFile("embedded/index.html")
	if ferr != nil {
		panic(fmt.Sprintf("storysite: embedded shell: %v", ferr))
	}
	doc, perr := parseShell(string(fallback))
	if perr != nil {
		panic(fmt.Sprintf("storysite: embedded shell: %v", perr))
	}
	return doc, "embedded", err
}

// Source reports where the current document came from: the file path or
// "embedded".
func (s *Shell) Source() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.source
}

// Component renders the document with title, the extra head and body
// content, and app inside the app root. head, body and app may be nil.
func (s *Shell) Component(title string, head, body, app templ.Component) templ.Component {
	s.mu.RLock()
	d := s.doc
	s.mu.RUnlock()

	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, d.beforeTitle); err != nil {
			return err
		}
		t := html.EscapeString(title)
		if !d.hasTitle {
			t = "<title>" + t + "</title>"
		}
		if _, err := io.WriteString(w, t+d.headRest); err != nil {
			return err
		}
		if err := renderOptional(ctx, w, head); err != nil {
			return err
		}
		if _, err := io.WriteString(w, d.headToBody); err != nil {
			return err
		}
		if err := renderOptional(ctx, w, body); err != nil {
			return err
		}
		if _, err := io.WriteString(w, d.bodyToApp); err != nil {
			return err
		}
		if err := renderOptional(ctx, w, app); err != nil {
			return err
		}
		_, err := io.WriteString(w, d.afterApp)
		return err
	})
}

func renderOptional(ctx context.Context, w io.Writer, c templ.Component) error {
	if c == nil {
		return nil
	}
	return c.Render(ctx, w)
}

// Watch reloads the document whenever the file is written, created,
// renamed or removed, until ctx is done. The parent directory is watched
// so editors that replace the file are handled.
func (s *Shell) Watch(ctx context.Context) error {
	dir := filepath.Dir(s.path)
	if _, err := os.Stat(dir); err != nil {
		s.logger.Info("entry document directory missing, not watching", slog.String("dir", dir))
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err := watcher.Add(dir); err != nil {
		return err
	}

	name := filepath.Clean(s.path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != name {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				s.logger.Info("entry document changed", slog.String("op", event.Op.String()))
				s.Reload()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("watcher error", slog.Any("error", err))
		}
	}
}
