package main

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/eringen/storysite/content"
	"github.com/eringen/storysite/pages"
)

const titleWidth = 48

var (
	postsPage    int
	postsPerPage int
)

var postsCmd = &cobra.Command{
	Use:   "posts",
	Short: "List blog posts",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.Close()

		perPage := postsPerPage
		if perPage == 0 {
			perPage = appConfig.PostsPerPage
		}
		if perPage == 0 {
			perPage = pages.DefaultPostsPerPage
		}
		list, err := app.Content.BlogPosts(cmd.Context(), postsPage, perPage)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), postsTable(list))
		return nil
	},
}

func init() {
	postsCmd.Flags().IntVar(&postsPage, "page", 1, "page number")
	postsCmd.Flags().IntVar(&postsPerPage, "per-page", 0, "posts per page (default POSTS_PER_PAGE)")
	rootCmd.AddCommand(postsCmd)
}

func postsTable(list content.BlogPostPage) string {
	rows := [][]string{{"DATE", "TITLE", "SLUG", "CATEGORIES"}}
	for _, p := range list.Posts {
		rows = append(rows, []string{
			content.FormatDate(p.PublishedDate),
			runewidth.Truncate(p.Title, titleWidth, "…"),
			p.Slug,
			content.FormatCategories(p.Categories),
		})
	}
	var sb strings.Builder
	for _, line := range formatTable(rows) {
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	fmt.Fprintf(&sb, "\npage %d of %d, %d posts\n", list.Page, max(list.PageCount(), 1), list.Total)
	return sb.String()
}

// formatTable pads every cell to its column's display width. Wide runes
// such as CJK count as two columns.
func formatTable(rows [][]string) []string {
	var widths []int
	for _, row := range rows {
		for i, cell := range row {
			if i >= len(widths) {
				widths = append(widths, 0)
			}
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}

	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		var sb strings.Builder
		for i, cell := range row {
			if i > 0 {
				sb.WriteString("  ")
			}
			sb.WriteString(cell)
			if i < len(row)-1 {
				sb.WriteString(strings.Repeat(" ", widths[i]-runewidth.StringWidth(cell)))
			}
		}
		lines = append(lines, sb.String())
	}
	return lines
}
