package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/eringen/storysite"
)

var checkCmd = &cobra.Command{
	Use:   "check [dir]",
	Short: "Check the built assets directory",
	Long: `check inspects the dist directory (DIST_DIR by default) the way the
server reads it and exits non-zero when visitors would get the embedded
entry document instead of the built one.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := appConfig.DistDir
		if len(args) == 1 {
			dir = args[0]
		}
		r, err := storysite.InspectDist(dir)
		if err != nil {
			return err
		}
		printDistReport(cmd.OutOrStdout(), r)
		if !r.OK() {
			return errors.New("check failed")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func printDistReport(w io.Writer, r storysite.DistReport) {
	fmt.Fprintf(w, "Checking %s:\n", r.Dir)
	fmt.Fprintln(w, "------------------------")
	fmt.Fprintf(w, "entry document: %s\n", r.Shell)
	fmt.Fprintf(w, "files: %d (%d bytes)\n", r.Files, r.Bytes)
	for _, ext := range r.Extensions() {
		fmt.Fprintf(w, "  %-8s %d\n", ext, r.Assets[ext])
	}
	if len(r.Notes) > 0 {
		fmt.Fprintln(w, "\nNotes:")
		for _, n := range r.Notes {
			fmt.Fprintf(w, "- %s\n", n)
		}
	}
	if len(r.Problems) > 0 {
		fmt.Fprintln(w, "\nProblems:")
		for _, p := range r.Problems {
			fmt.Fprintf(w, "- %s\n", p)
		}
	}
}
