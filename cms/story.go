package cms

// Story is a raw content entry as delivered by the Storyblok CDN API.
// Content keeps the component fields untouched; the content package maps
// them onto the site's model.
type Story struct {
	ID               int64          `json:"id"`
	UUID             string         `json:"uuid"`
	Name             string         `json:"name"`
	Slug             string         `json:"slug"`
	FullSlug         string         `json:"full_slug"`
	CreatedAt        string         `json:"created_at"`
	PublishedAt      string         `json:"published_at"`
	FirstPublishedAt string         `json:"first_published_at"`
	TagList          []string       `json:"tag_list"`
	Content          map[string]any `json:"content"`
}

// StoryList is one page of stories plus the total number of matching
// stories across all pages.
type StoryList struct {
	Stories []Story
	Total   int
}

type storyResponse struct {
	Story *Story `json:"story"`
}

type storiesResponse struct {
	Stories []Story `json:"stories"`
}
