package content

import "github.com/eringen/storysite/cms"

// FromBlogPost converts a normalized post back into a story using the
// canonical raw field names. ToBlogPost(FromBlogPost(p)) == p for any p
// produced by ToBlogPost.
func FromBlogPost(p BlogPost) cms.Story {
	categories := make([]any, len(p.Categories))
	for i, c := range p.Categories {
		categories[i] = map[string]any{"id": c.ID, "name": c.Name, "slug": c.Slug}
	}
	fields := map[string]any{
		"component":        "blog_post",
		"title":            p.Title,
		"excerpt":          p.Excerpt,
		"content":          p.Content,
		"author":           p.Author,
		"publication_date": p.PublishedDate,
		"categories":       categories,
	}
	if p.FeaturedImage != "" {
		fields["featured_image"] = map[string]any{"filename": p.FeaturedImage}
	}
	story := cms.Story{
		UUID:    p.ID,
		Name:    p.Title,
		Slug:    p.Slug,
		Content: fields,
	}
	if p.Slug != "" {
		story.FullSlug = cms.BlogFolder + p.Slug
	}
	return story
}

// FromSiteConfig converts a SiteConfig back into a config story.
func FromSiteConfig(c SiteConfig) cms.Story {
	fields := map[string]any{
		"component":          "site_configuration",
		"site_name":          c.SiteName,
		"site_description":   c.SiteDescription,
		"primary_navigation": linksToAny(c.Navigation),
		"footer_navigation":  linksToAny(c.Footer.Links),
		"social_links":       linksToAny(c.Footer.Social),
		"copyright":          c.Footer.Copyright,
	}
	if c.Logo != "" {
		fields["logo"] = map[string]any{"filename": c.Logo}
	}
	return cms.Story{
		UUID:    c.ID,
		Slug:    cms.ConfigSlug,
		Content: fields,
	}
}

func linksToAny(links []Link) []any {
	out := make([]any, len(links))
	for i, l := range links {
		out[i] = map[string]any{"label": l.Label, "url": l.URL}
	}
	return out
}
