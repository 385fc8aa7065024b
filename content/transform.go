package content

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/eringen/storysite/cms"
	"github.com/eringen/storysite/richtext"
)

// configComponents are the component names a site configuration blok may
// carry inside a body array.
var configComponents = map[string]bool{
	"site configuration": true,
	"site_configuration": true,
	"site_config":        true,
}

// ToSiteConfig maps the "config" story onto a SiteConfig. When the fields are
// wrapped in a body array, the site configuration blok is used, or the first
// blok when none is tagged.
func ToSiteConfig(story cms.Story) SiteConfig {
	f := configFields(fields(story.Content))

	name := f.str("SiteName", "site_name", "siteName", "name")
	if name == "" {
		name = DefaultSiteName
	}
	copyright := f.str("Copyright", "copyright", "footer.copyright", "footer_configuration.copyright")
	if copyright == "" {
		copyright = fmt.Sprintf("© %d %s", time.Now().Year(), name)
	}

	return SiteConfig{
		ID:              storyID(story),
		SiteName:        name,
		SiteDescription: f.str("SiteDescription", "site_description", "siteDescription", "description"),
		Logo:            assetURL(f.value("Logo", "logo")),
		Navigation:      toLinks(f.list("PrimaryNavigation", "primary_navigation", "navigation")),
		Footer: Footer{
			Copyright: copyright,
			Links:     toLinks(f.list("FooterNavigation", "footer_navigation", "footer.links", "footer_configuration.links")),
			Social:    toLinks(f.list("SocialLinks", "social_links", "footer.social", "footer_configuration.social")),
		},
	}
}

func configFields(f fields) fields {
	body := f.list("body")
	if len(body) == 0 {
		if f == nil {
			return fields{}
		}
		return f
	}
	var first fields
	for _, item := range body {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if first == nil {
			first = m
		}
		if c, _ := m["component"].(string); configComponents[strings.ToLower(c)] {
			return m
		}
	}
	if first == nil {
		return f
	}
	return first
}

func toLinks(items []any) []Link {
	links := make([]Link, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		f := fields(m)
		label := f.str("Label", "label", "name", "text", "title")
		if label == "" {
			label = DefaultLinkText
		}
		links = append(links, Link{
			Label: label,
			URL:   LinkURL(f.value("URL", "url", "link", "href")),
		})
	}
	return links
}

// LinkURL resolves a multilink field. Story links become site-relative
// paths from cached_url, external links keep their url, email links become
// mailto URLs and plain strings pass through. Anything else resolves to "/".
func LinkURL(v any) string {
	switch t := v.(type) {
	case string:
		if s := strings.TrimSpace(t); s != "" {
			return s
		}
	case map[string]any:
		f := fields(t)
		linktype := f.str("linktype")
		if linktype == "email" {
			if email := f.str("email", "url"); email != "" {
				return "mailto:" + strings.TrimPrefix(email, "mailto:")
			}
		}
		if u := f.str("url"); u != "" && linktype == "url" {
			return u
		}
		if cached := f.str("cached_url"); cached != "" {
			if strings.Contains(cached, "://") {
				return cached
			}
			return "/" + strings.TrimLeft(cached, "/")
		}
		if u := f.str("url"); u != "" {
			return u
		}
	}
	return "/"
}

func assetURL(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case map[string]any:
		return fields(t).str("filename", "url", "src")
	}
	return ""
}

func storyID(story cms.Story) string {
	if story.UUID != "" {
		return story.UUID
	}
	if story.ID != 0 {
		return strconv.FormatInt(story.ID, 10)
	}
	return ""
}

// ToBlogPost maps a blog post story onto a BlogPost.
func ToBlogPost(story cms.Story) BlogPost {
	f := fields(story.Content)
	if f == nil {
		f = fields{}
	}

	title := f.str("title", "Title", "headline")
	if title == "" {
		title = strings.TrimSpace(story.Name)
	}
	if title == "" {
		title = DefaultTitle
	}

	body := renderContent(f.value("content", "body", "Content", "Body", "long_text", "markdown"))
	excerpt := f.str("excerpt", "Excerpt", "summary", "teaser", "intro")
	if excerpt == "" {
		excerpt = TruncateText(richtext.PlainText(body), ExcerptLength, "...")
	}

	author := authorName(f.value("author", "Author"))
	if author == "" {
		author = DefaultAuthor
	}

	date := f.str("publication_date", "published_date", "publishedDate", "date")
	if date == "" {
		date = story.FirstPublishedAt
	}
	if date == "" {
		date = story.PublishedAt
	}

	slug := story.Slug
	if slug == "" {
		slug = lastSegment(story.FullSlug)
	}

	categories := toCategories(f.list("categories", "Categories", "tags"))
	if len(categories) == 0 {
		categories = toCategories(stringsToAny(story.TagList))
	}

	return BlogPost{
		ID:            storyID(story),
		Title:         title,
		Slug:          slug,
		Excerpt:       excerpt,
		Content:       body,
		FeaturedImage: assetURL(f.value("featured_image", "featuredImage", "FeaturedImage", "image")),
		Categories:    categories,
		Author:        author,
		PublishedDate: normalizeDate(date),
	}
}

// ToBlogPostList maps every story in order.
func ToBlogPostList(stories []cms.Story) []BlogPost {
	posts := make([]BlogPost, len(stories))
	for i, s := range stories {
		posts[i] = ToBlogPost(s)
	}
	return posts
}

// ToBlogPostPage maps one page of stories together with its paging data.
func ToBlogPostPage(list cms.StoryList, page, perPage int) BlogPostPage {
	return BlogPostPage{
		Posts:   ToBlogPostList(list.Stories),
		Total:   list.Total,
		Page:    page,
		PerPage: perPage,
	}
}

func renderContent(v any) string {
	switch t := v.(type) {
	case string:
		if strings.Contains(t, "<") {
			return richtext.SanitizeHTML(t)
		}
		if strings.TrimSpace(t) == "" {
			return ""
		}
		return richtext.Markdown(t)
	case map[string]any:
		if richtext.IsDocument(t) {
			return richtext.Render(t)
		}
	case []any:
		// body arrays of bloks: render each blok's text field in order
		var b strings.Builder
		for _, item := range t {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			b.WriteString(renderContent(fields(m).value("text", "content", "body", "markdown")))
		}
		return b.String()
	}
	return ""
}

func authorName(v any) string {
	switch t := v.(type) {
	case string:
		// unresolved story references are UUIDs, not names
		if looksLikeUUID(t) {
			return ""
		}
		return strings.TrimSpace(t)
	case map[string]any:
		return fields(t).str("name", "content.name", "full_name")
	}
	return ""
}

func toCategories(items []any) []Category {
	categories := make([]Category, 0, len(items))
	seen := make(map[string]bool)
	for _, item := range items {
		var c Category
		switch t := item.(type) {
		case string:
			name := strings.TrimSpace(t)
			if name == "" || looksLikeUUID(name) {
				continue
			}
			c = Category{ID: Slugify(name), Name: displayName(name), Slug: Slugify(name)}
		case map[string]any:
			f := fields(t)
			c.Name = f.str("name", "content.name", "title")
			c.Slug = f.str("slug")
			if c.Slug == "" {
				c.Slug = Slugify(c.Name)
			}
			if c.Name == "" {
				if c.Slug == "" {
					continue
				}
				c.Name = displayName(c.Slug)
			}
			c.ID = f.str("id", "uuid")
			if c.ID == "" {
				c.ID = c.Slug
			}
		default:
			continue
		}
		if seen[c.Slug] {
			continue
		}
		seen[c.Slug] = true
		categories = append(categories, c)
	}
	return categories
}

func stringsToAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

var titleCaser = cases.Title(language.English)

// displayName title-cases slug-like names ("web-design" -> "Web Design")
// and leaves authored names alone.
func displayName(s string) string {
	if s != strings.ToLower(s) || strings.Contains(s, " ") {
		return s
	}
	return titleCaser.String(strings.NewReplacer("-", " ", "_", " ").Replace(s))
}

func looksLikeUUID(s string) bool {
	if len(s) != 36 || strings.Count(s, "-") != 4 {
		return false
	}
	for _, r := range s {
		if r != '-' && !strings.ContainsRune("0123456789abcdef", r) {
			return false
		}
	}
	return true
}

func lastSegment(fullSlug string) string {
	fullSlug = strings.Trim(fullSlug, "/")
	if i := strings.LastIndex(fullSlug, "/"); i >= 0 {
		return fullSlug[i+1:]
	}
	return fullSlug
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// normalizeDate returns s as an RFC 3339 UTC timestamp when it parses and
// unchanged otherwise.
func normalizeDate(s string) string {
	if t, ok := ParseDate(s); ok {
		return t.UTC().Format(time.RFC3339)
	}
	return strings.TrimSpace(s)
}
