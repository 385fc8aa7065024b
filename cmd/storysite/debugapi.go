package main

import (
	"context"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/eringen/storysite/cms"
	"github.com/eringen/storysite/content"
)

var debugPosts int

var debugAPICmd = &cobra.Command{
	Use:   "debug-api",
	Short: "Show what the CMS returns and how it is normalized",
	Long: `debug-api fetches the configuration story and the first blog posts with
the configured token and prints, as YAML, the raw component fields each
story carries next to the values the site derives from them. Fetch errors
are reported in place.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.Close()

		r := inspectAPI(cmd.Context(), app.CMS, debugPosts)
		r.Endpoint = endpoint(appConfig.CMSBaseURL, appConfig.Region)
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()
	},
}

func init() {
	debugAPICmd.Flags().IntVar(&debugPosts, "posts", 3, "number of blog posts to fetch")
	rootCmd.AddCommand(debugAPICmd)
}

type apiReport struct {
	Endpoint string      `yaml:"endpoint"`
	Version  string      `yaml:"version"`
	Config   storyReport `yaml:"config"`
	Posts    postsReport `yaml:"posts"`
}

type postsReport struct {
	Total   int           `yaml:"total"`
	Stories []storyReport `yaml:"stories,omitempty"`
	Error   string        `yaml:"error,omitempty"`
}

type storyReport struct {
	FullSlug  string       `yaml:"full_slug,omitempty"`
	Component string       `yaml:"component,omitempty"`
	Fields    []string     `yaml:"fields,omitempty"`
	Site      *siteSummary `yaml:"site,omitempty"`
	Post      *postSummary `yaml:"post,omitempty"`
	Error     string       `yaml:"error,omitempty"`
}

type siteSummary struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	Navigation  int    `yaml:"navigation_links"`
	FooterLinks int    `yaml:"footer_links"`
}

type postSummary struct {
	Title      string   `yaml:"title"`
	Slug       string   `yaml:"slug"`
	Author     string   `yaml:"author"`
	Published  string   `yaml:"published,omitempty"`
	Categories []string `yaml:"categories,omitempty"`
}

func inspectAPI(ctx context.Context, client *cms.Client, n int) apiReport {
	r := apiReport{Version: string(client.Version())}

	if story, err := client.FetchSiteConfig(ctx); err != nil {
		r.Config.Error = err.Error()
	} else {
		r.Config = describeStory(story)
		cfg := content.ToSiteConfig(story)
		r.Config.Site = &siteSummary{
			Name:        cfg.SiteName,
			Description: cfg.SiteDescription,
			Navigation:  len(cfg.Navigation),
			FooterLinks: len(cfg.Footer.Links),
		}
	}

	if n < 1 {
		return r
	}
	list, err := client.FetchBlogPosts(ctx, 1, min(n, cms.MaxPerPage))
	if err != nil {
		r.Posts.Error = err.Error()
		return r
	}
	r.Posts.Total = list.Total
	for _, story := range list.Stories {
		sr := describeStory(story)
		p := content.ToBlogPost(story)
		cats := make([]string, 0, len(p.Categories))
		for _, c := range p.Categories {
			cats = append(cats, c.Name)
		}
		sr.Post = &postSummary{
			Title:      p.Title,
			Slug:       p.Slug,
			Author:     p.Author,
			Published:  p.PublishedDate,
			Categories: cats,
		}
		r.Posts.Stories = append(r.Posts.Stories, sr)
	}
	return r
}

func describeStory(story cms.Story) storyReport {
	sr := storyReport{FullSlug: story.FullSlug}
	for k, v := range story.Content {
		if k == "component" {
			sr.Component, _ = v.(string)
			continue
		}
		if strings.HasPrefix(k, "_") {
			continue
		}
		sr.Fields = append(sr.Fields, k)
	}
	sort.Strings(sr.Fields)
	return sr
}

func endpoint(baseURL, region string) string {
	if baseURL != "" {
		return strings.TrimRight(baseURL, "/")
	}
	return cms.RegionOrigin(region) + "/v2"
}
