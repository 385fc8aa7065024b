package router

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"github.com/a-h/templ"

	"github.com/eringen/storysite/pages"
	"github.com/eringen/storysite/views"
)

// NavigateEvent requests in-app navigation to URL. Pagination controls
// emit it instead of navigating themselves.
type NavigateEvent struct {
	URL string
}

// Session is a headless app instance: a history stack and the app root the
// Router commits into. Navigations may overlap; each resolution captures a
// generation and only the latest one commits, older results are discarded.
type Session struct {
	router *Router
	env    pages.Env
	origin *url.URL
	events chan NavigateEvent

	mu      sync.Mutex
	history []string
	index   int
	gen     uint64
	state   State
	root    templ.Component
	title   string
	status  int
	commits int
}

// NewSession creates a session for the app served at origin (scheme and
// host, e.g. "https://example.com"), starting at start.
func NewSession(r *Router, env pages.Env, origin, start string) (*Session, error) {
	o, err := url.Parse(origin)
	if err != nil {
		return nil, err
	}
	if start == "" {
		start = "/"
	}
	return &Session{
		router:  r,
		env:     env,
		origin:  o,
		events:  make(chan NavigateEvent, 16),
		history: []string{start},
		state:   Idle,
	}, nil
}

// Root returns the component currently committed to the app root, or nil
// before the first resolution.
func (s *Session) Root() templ.Component {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.root
}

// State returns the current resolution state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Title returns the document title of the committed page.
func (s *Session) Title() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.title
}

// Status returns the status of the committed page.
func (s *Session) Status() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Commits returns how many resolutions were committed to the app root.
// Discarded stale resolutions are not counted.
func (s *Session) Commits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commits
}

// Location returns the current history entry.
func (s *Session) Location() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history[s.index]
}

// History returns a copy of the history stack and the current index.
func (s *Session) History() ([]string, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.history...), s.index
}

// Navigate pushes rawURL onto the history, dropping any forward entries,
// and resolves it.
func (s *Session) Navigate(ctx context.Context, rawURL string) Result {
	target, gen := s.push(rawURL)
	return s.resolve(ctx, target, gen)
}

// HandleRoute resolves the current history entry. The loading panel is
// committed first; the resolved page replaces it unless a newer resolution
// started in the meantime.
func (s *Session) HandleRoute(ctx context.Context) Result {
	s.mu.Lock()
	target := s.history[s.index]
	gen := s.begin()
	s.mu.Unlock()
	return s.resolve(ctx, target, gen)
}

func (s *Session) push(rawURL string) (string, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	target := s.local(rawURL)
	s.history = append(s.history[:s.index+1], target)
	s.index = len(s.history) - 1
	return target, s.begin()
}

// begin starts a resolution and returns its generation. s.mu must be held.
func (s *Session) begin() uint64 {
	s.gen++
	s.state = Loading
	s.root = views.LoadingPanel()
	return s.gen
}

func (s *Session) resolve(ctx context.Context, target string, gen uint64) Result {
	res := s.router.Resolve(ctx, target, s.env)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return res
	}
	s.state = res.State
	s.root = res.Component
	s.title = res.Title
	s.status = res.Status
	s.commits++
	return res
}

// Back moves one entry back and resolves it. It reports false at the start
// of the history.
func (s *Session) Back(ctx context.Context) (Result, bool) {
	return s.step(ctx, -1)
}

// Forward moves one entry forward and resolves it. It reports false at the
// end of the history.
func (s *Session) Forward(ctx context.Context) (Result, bool) {
	return s.step(ctx, 1)
}

func (s *Session) step(ctx context.Context, delta int) (Result, bool) {
	s.mu.Lock()
	next := s.index + delta
	if next < 0 || next >= len(s.history) {
		s.mu.Unlock()
		return Result{}, false
	}
	s.index = next
	s.mu.Unlock()
	return s.HandleRoute(ctx), true
}

// Click handles activation of a link. Same-origin links are intercepted and
// navigated in-app; anything else is left to the caller, reported by false.
func (s *Session) Click(ctx context.Context, href string) (Result, bool) {
	if !s.SameOrigin(href) {
		return Result{}, false
	}
	return s.Navigate(ctx, href), true
}

// SameOrigin reports whether href resolves to the session's origin.
func (s *Session) SameOrigin(href string) bool {
	if strings.TrimSpace(href) == "" {
		return false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return false
	}
	u := s.origin.ResolveReference(ref)
	return strings.EqualFold(u.Scheme, s.origin.Scheme) && strings.EqualFold(u.Host, s.origin.Host)
}

// Dispatch queues a navigation request for Run. It reports false when the
// queue is full.
func (s *Session) Dispatch(ev NavigateEvent) bool {
	select {
	case s.events <- ev:
		return true
	default:
		return false
	}
}

// Run processes dispatched navigation events until ctx is done. History and
// generation are taken in dispatch order; resolutions run concurrently.
func (s *Session) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	defer wg.Wait()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-s.events:
			target, gen := s.push(ev.URL)
			wg.Add(1)
			go func() {
				defer wg.Done()
				s.resolve(ctx, target, gen)
			}()
		}
	}
}

// local reduces rawURL to its path and query relative to the origin.
func (s *Session) local(rawURL string) string {
	ref, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return s.origin.ResolveReference(ref).RequestURI()
}
