package main

import (
	"bytes"
	"fmt"
	"io"

	"github.com/raymondbutcher/tidyhtml"
	"github.com/spf13/cobra"
)

var (
	browseFragment bool
	browseTidy     bool
)

var browseCmd = &cobra.Command{
	Use:   "browse <path>",
	Short: "Render a page without starting the server",
	Long: `browse resolves a path such as /blog?page=2 through the routing table and
prints the HTML a visitor would get. The route state, status and title go
to stderr.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.Close()

		var buf bytes.Buffer
		res, err := app.Browse(cmd.Context(), args[0], browseFragment, &buf)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "%s %d %q\n", res.State, res.Status, res.Title)
		return writeHTML(cmd.OutOrStdout(), &buf, browseTidy)
	},
}

func init() {
	browseCmd.Flags().BoolVar(&browseFragment, "fragment", false, "print only the app subtree")
	browseCmd.Flags().BoolVar(&browseTidy, "tidy", false, "indent the HTML")
	rootCmd.AddCommand(browseCmd)
}

func writeHTML(w io.Writer, r io.Reader, tidy bool) error {
	if !tidy {
		_, err := io.Copy(w, r)
		return err
	}
	if err := tidyhtml.Copy(w, r); err != nil {
		return fmt.Errorf("tidyhtml: %w", err)
	}
	return nil
}
