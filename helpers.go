package storysite

import (
	"net/url"
	"path"
	"strings"
)

// absURL joins a base URL with path segments. The site root keeps its
// trailing slash; other paths have none.
func absURL(base string, segments ...string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	u.Path = path.Join("/", u.Path, path.Join(segments...))
	u.RawPath = ""
	return u.String()
}

// localPath returns p when it is a same-site absolute path, else "/".
func localPath(p string) string {
	if !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") || strings.Contains(p, "\\") {
		return "/"
	}
	return p
}
