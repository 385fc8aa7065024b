package storysite

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DistReport describes a built assets directory as the server would see it.
type DistReport struct {
	Dir      string
	Shell    string         // entry document in use: its path, or "embedded"
	Files    int            // regular files under Dir
	Bytes    int64          // their total size
	Assets   map[string]int // file count per extension
	Problems []string       // conditions that change what visitors get
	Notes    []string
}

// OK reports whether the directory has no problems.
func (r DistReport) OK() bool { return len(r.Problems) == 0 }

// Extensions returns the asset extensions, sorted.
func (r DistReport) Extensions() []string {
	exts := make([]string, 0, len(r.Assets))
	for ext := range r.Assets {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// InspectDist checks dir the way the server uses it: the entry document
// must parse with an app root, and files without an extension are never
// served statically.
func InspectDist(dir string) (DistReport, error) {
	r := DistReport{Dir: dir, Shell: "embedded", Assets: map[string]int{}}

	info, err := os.Stat(dir)
	switch {
	case errors.Is(err, os.ErrNotExist):
		r.Problems = append(r.Problems, "directory does not exist; only the embedded entry document is served")
		return r, nil
	case err != nil:
		return r, err
	case !info.IsDir():
		r.Problems = append(r.Problems, "not a directory")
		return r, nil
	}

	index := filepath.Join(dir, "index.html")
	raw, err := os.ReadFile(index)
	switch {
	case errors.Is(err, os.ErrNotExist):
		r.Problems = append(r.Problems, "index.html is missing; the embedded entry document is used")
	case err != nil:
		return r, err
	default:
		if _, perr := parseShell(string(raw)); perr != nil {
			r.Problems = append(r.Problems, "index.html is unusable: "+perr.Error())
		} else {
			r.Shell = index
			if !strings.Contains(string(raw), assetPrefix+"router.js") {
				r.Notes = append(r.Notes, "index.html does not load the router script; it is injected")
			}
		}
	}

	err = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		r.Files++
		r.Bytes += fi.Size()
		ext := strings.ToLower(filepath.Ext(p))
		if ext == "" {
			rel, _ := filepath.Rel(dir, p)
			r.Notes = append(r.Notes, filepath.ToSlash(rel)+" has no extension and is not served")
			ext = "(none)"
		}
		r.Assets[ext]++
		return nil
	})
	return r, err
}
