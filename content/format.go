package content

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Slugify converts a title to a URL-safe slug.
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	prev := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prev = false
		default:
			if !prev && b.Len() > 0 {
				b.WriteByte('-')
				prev = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// ParseDate parses an RFC 3339 or date-only string.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatDate renders a publication date as "January 2, 2006". Unparseable
// input is returned unchanged.
func FormatDate(s string) string {
	t, ok := ParseDate(s)
	if !ok {
		return s
	}
	return t.Format("January 2, 2006")
}

// FormatRelativeTime describes how long before now t was, e.g. "3 days ago".
func FormatRelativeTime(t, now time.Time) string {
	diff := now.Sub(t)
	minutes := int(diff.Minutes())
	hours := minutes / 60
	days := hours / 24

	switch {
	case days >= 365:
		return plural(days/365, "year")
	case days >= 30:
		return plural(days/30, "month")
	case days >= 7:
		return plural(days/7, "week")
	case days > 0:
		return plural(days, "day")
	case hours > 0:
		return plural(hours, "hour")
	case minutes > 0:
		return plural(minutes, "minute")
	}
	return "just now"
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}

// TruncateText shortens text to at most max runes, cutting at the last word
// boundary and appending suffix.
func TruncateText(text string, max int, suffix string) string {
	text = strings.TrimSpace(text)
	if text == "" || utf8.RuneCountInString(text) <= max {
		return text
	}
	cut := strings.TrimSpace(string([]rune(text)[:max]))
	if i := strings.LastIndex(cut, " "); i > 0 {
		cut = cut[:i]
	}
	return cut + suffix
}

// ReadingTime estimates the reading time of text at wpm words per minute.
func ReadingTime(text string, wpm int) string {
	if wpm <= 0 {
		wpm = 200
	}
	words := len(strings.Fields(text))
	minutes := (words + wpm - 1) / wpm
	if minutes < 1 {
		minutes = 1
	}
	return fmt.Sprintf("%d min read", minutes)
}

// FormatCategories joins category names with ", ".
func FormatCategories(categories []Category) string {
	names := make([]string, 0, len(categories))
	for _, c := range categories {
		if c.Name != "" {
			names = append(names, c.Name)
		}
	}
	return strings.Join(names, ", ")
}
