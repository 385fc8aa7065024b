package content

import (
	"context"

	"github.com/eringen/storysite/cms"
)

// Fetcher is the raw story source a Repository reads from. *cms.Client
// implements it.
type Fetcher interface {
	FetchSiteConfig(ctx context.Context) (cms.Story, error)
	FetchBlogPosts(ctx context.Context, page, perPage int) (cms.StoryList, error)
	FetchBlogPostBySlug(ctx context.Context, slug string) (cms.Story, error)
}

// Repository returns normalized content from a Fetcher. Errors from the
// fetcher are returned unchanged.
type Repository struct {
	fetcher Fetcher
}

// NewRepository creates a Repository reading from f.
func NewRepository(f Fetcher) *Repository {
	return &Repository{fetcher: f}
}

// SiteConfig returns the site configuration.
func (r *Repository) SiteConfig(ctx context.Context) (SiteConfig, error) {
	story, err := r.fetcher.FetchSiteConfig(ctx)
	if err != nil {
		return SiteConfig{}, err
	}
	return ToSiteConfig(story), nil
}

// BlogPosts returns one page of posts, newest first.
func (r *Repository) BlogPosts(ctx context.Context, page, perPage int) (BlogPostPage, error) {
	list, err := r.fetcher.FetchBlogPosts(ctx, page, perPage)
	if err != nil {
		return BlogPostPage{}, err
	}
	return ToBlogPostPage(list, page, perPage), nil
}

// BlogPost returns the post with the given slug.
func (r *Repository) BlogPost(ctx context.Context, slug string) (BlogPost, error) {
	story, err := r.fetcher.FetchBlogPostBySlug(ctx, slug)
	if err != nil {
		return BlogPost{}, err
	}
	return ToBlogPost(story), nil
}

// RelatedPosts returns up to n of the latest posts, excluding the post
// with slug exclude.
func (r *Repository) RelatedPosts(ctx context.Context, exclude string, n int) ([]BlogPost, error) {
	if n <= 0 {
		return []BlogPost{}, nil
	}
	page, err := r.BlogPosts(ctx, 1, n+1)
	if err != nil {
		return nil, err
	}
	related := make([]BlogPost, 0, n)
	for _, p := range page.Posts {
		if p.Slug == exclude {
			continue
		}
		related = append(related, p)
		if len(related) == n {
			break
		}
	}
	return related, nil
}
