package storysite

import (
	"crypto/sha1"
	"crypto/subtle"
	"encoding/hex"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
)

// previewLinkTTL bounds how old a Storyblok editor link may be.
const previewLinkTTL = time.Hour

// PreviewToken is the _storyblok_tk[token] value Storyblok computes for an
// editor link: sha1 of "<space id>:<preview token>:<timestamp>".
func PreviewToken(spaceID, previewToken, timestamp string) string {
	sum := sha1.Sum([]byte(spaceID + ":" + previewToken + ":" + timestamp))
	return hex.EncodeToString(sum[:])
}

// validPreviewLink checks the editor link parameters against the configured
// space and preview token at now.
func (a *App) validPreviewLink(q map[string][]string, now time.Time) bool {
	get := func(k string) string {
		if v := q[k]; len(v) > 0 {
			return v[0]
		}
		return ""
	}
	spaceID := get("_storyblok_tk[space_id]")
	ts := get("_storyblok_tk[timestamp]")
	token := get("_storyblok_tk[token]")
	if spaceID == "" || ts == "" || token == "" || a.Config.PreviewToken == "" {
		return false
	}
	if a.Config.SpaceID != "" && spaceID != a.Config.SpaceID {
		return false
	}
	sec, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return false
	}
	if age := now.Sub(time.Unix(sec, 0)); age < -time.Minute || age > previewLinkTTL {
		return false
	}
	want := PreviewToken(spaceID, a.Config.PreviewToken, ts)
	return subtle.ConstantTimeCompare([]byte(want), []byte(token)) == 1
}

// handlePreview enters preview mode from a Storyblok editor link and
// redirects to the page named by the path parameter.
func (a *App) handlePreview(c echo.Context) error {
	if !a.validPreviewLink(c.QueryParams(), time.Now()) {
		a.Logger.Warn("rejected preview link", slog.String("ip", c.RealIP()))
		return echo.NewHTTPError(http.StatusForbidden, "invalid preview link")
	}
	if err := setPreviewSession(c); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, localPath(c.QueryParam("path")))
}

func handlePreviewExit(c echo.Context) error {
	if err := clearPreviewSession(c); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/")
}
