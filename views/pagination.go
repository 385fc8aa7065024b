package views

import (
	"net/url"
	"strconv"

	"github.com/a-h/templ"
)

const paginationWindow = 2

// PageLink is a numbered pagination control.
type PageLink struct {
	Number  int
	URL     string
	Current bool
}

type paginationData struct {
	TotalPages int
	HasPrev    bool
	HasNext    bool
	PrevURL    string
	NextURL    string
	Pages      []PageLink
}

// PageURL returns base with the page query parameter set. Page 1 keeps it
// explicit so the control always names a distinct URL.
func PageURL(base string, page int) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.String()
}

// Pages returns the numbered links shown for current out of total pages:
// a window around current, clamped to [1, total]. A current page far past
// the end has no window and yields nil.
func Pages(base string, current, total int) []PageLink {
	if total <= 0 {
		return nil
	}
	lo, hi := current-paginationWindow, current+paginationWindow
	if lo < 1 {
		lo = 1
	}
	if hi > total {
		hi = total
	}
	if lo > hi {
		return nil
	}
	links := make([]PageLink, 0, hi-lo+1)
	for n := lo; n <= hi; n++ {
		links = append(links, PageLink{Number: n, URL: PageURL(base, n), Current: n == current})
	}
	return links
}

// Pagination renders page controls. Controls are plain links that also
// carry data-navigate, so the client script turns them into in-app
// navigation requests instead of navigating itself. Nothing is rendered for
// a single page.
func Pagination(base string, current, total int) templ.Component {
	return tmpl("pagination", paginationData{
		TotalPages: total,
		HasPrev:    current > 1,
		HasNext:    current < total,
		PrevURL:    PageURL(base, current-1),
		NextURL:    PageURL(base, current+1),
		Pages:      Pages(base, current, total),
	})
}
