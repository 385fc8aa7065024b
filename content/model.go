// Package content maps raw Storyblok stories onto the site's content model.
//
// Every transform is total: missing or malformed optional fields fall back to
// defaults instead of failing, since the shape of a story changes whenever an
// editor changes its component schema.
package content

// Defaults substituted for absent fields.
const (
	DefaultSiteName = "Default Site Name"
	DefaultTitle    = "Untitled"
	DefaultAuthor   = "Anonymous"
	DefaultLinkText = "Unknown"
	ExcerptLength   = 150
)

// Link is a labelled navigation target.
type Link struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// Footer holds the footer copy and link groups.
type Footer struct {
	Copyright string `json:"copyright"`
	Links     []Link `json:"links"`
	Social    []Link `json:"social"`
}

// SiteConfig is the site-wide configuration authored in the "config" story.
type SiteConfig struct {
	ID              string `json:"id"`
	SiteName        string `json:"siteName"`
	SiteDescription string `json:"siteDescription"`
	Logo            string `json:"logo"`
	Navigation      []Link `json:"navigation"`
	Footer          Footer `json:"footer"`
}

// Category is a post category. It has no lifecycle of its own.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// BlogPost is a normalized blog post. Content is sanitized HTML.
type BlogPost struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Slug          string     `json:"slug"`
	Excerpt       string     `json:"excerpt"`
	Content       string     `json:"content"`
	FeaturedImage string     `json:"featuredImage"`
	Categories    []Category `json:"categories"`
	Author        string     `json:"author"`
	PublishedDate string     `json:"publishedDate"`
}

// BlogPostPage is one page of posts plus the paging data needed to render
// pagination controls.
type BlogPostPage struct {
	Posts   []BlogPost `json:"posts"`
	Total   int        `json:"total"`
	Page    int        `json:"page"`
	PerPage int        `json:"perPage"`
}

// PageCount returns the number of pages for the page's total.
func (p BlogPostPage) PageCount() int {
	return PageCount(p.Total, p.PerPage)
}

// PageCount returns ceil(total/perPage), or 0 when either is not positive.
func PageCount(total, perPage int) int {
	if total <= 0 || perPage <= 0 {
		return 0
	}
	return (total + perPage - 1) / perPage
}
