package storysite

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// SignatureHeader carries the hex HMAC-SHA1 of a webhook body.
const SignatureHeader = "webhook-signature"

const maxWebhookBody = 1 << 20

// WebhookEvent is the payload Storyblok posts on content changes.
type WebhookEvent struct {
	Text     string `json:"text"`
	Action   string `json:"action"`
	SpaceID  int64  `json:"space_id"`
	StoryID  int64  `json:"story_id"`
	FullSlug string `json:"full_slug"`
}

// SignWebhook returns the signature Storyblok sends for body.
func SignWebhook(secret string, body []byte) string {
	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyWebhook reports whether signature matches body under secret.
func VerifyWebhook(secret string, body []byte, signature string) bool {
	got, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil {
		return false
	}
	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}

// handleWebhook drops cached CMS responses when content changes. Requests
// are rate limited per IP and, when a secret is configured, must be signed.
func (a *App) handleWebhook(c echo.Context) error {
	ip := c.RealIP()
	if !a.webhookLimiter.Allow(ip) {
		return c.JSON(http.StatusTooManyRequests, map[string]string{"error": "too many requests"})
	}

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unreadable body")
	}
	if a.Config.WebhookSecret != "" && !VerifyWebhook(a.Config.WebhookSecret, body, c.Request().Header.Get(SignatureHeader)) {
		a.Logger.Warn("webhook signature mismatch", slog.String("ip", ip))
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid signature"})
	}

	var ev WebhookEvent
	if len(body) > 0 {
		if err := json.Unmarshal(body, &ev); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		}
	}

	a.CMS.Invalidate()
	a.Logger.Info("content cache invalidated",
		slog.String("action", ev.Action),
		slog.Int64("story_id", ev.StoryID),
		slog.String("full_slug", ev.FullSlug),
	)
	return c.JSON(http.StatusOK, map[string]any{"status": "ok", "invalidated": true})
}
