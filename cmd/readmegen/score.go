package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

func newScoreCmd(root *rootOptions) *cobra.Command {
	var repoName string
	cmd := &cobra.Command{
		Use:   "score <file>",
		Short: "Score a README and print suggestions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			if repoName == "" {
				repoName = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
			}

			res, err := root.client().Score(cmd.Context(), string(data), repoName)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Score: %d/100\n", res.Score)
			if len(res.Breakdown) > 0 {
				fmt.Fprintln(out, "Breakdown:")
				for _, b := range res.Breakdown {
					fmt.Fprintf(out, "  %-20s %3d/%-3d %s\n", b.Category, b.Score, b.Max, b.Notes)
				}
			}
			if len(res.Suggestions) > 0 {
				fmt.Fprintln(out, "Suggestions:")
				for _, s := range res.Suggestions {
					fmt.Fprintf(out, "  - %s\n", s)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&repoName, "name", "", "Project name used in the prompt (default: file name)")
	return cmd
}

func newImproveCmd(root *rootOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "improve <file>",
		Short: "Polish a README while keeping its structure",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			improved, err := root.client().Improve(cmd.Context(), string(data))
			if err != nil {
				return err
			}
			if output == "" {
				fmt.Fprintln(cmd.OutOrStdout(), improved)
				return nil
			}
			if err := os.WriteFile(output, []byte(improved), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Improved README written to %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "out", "o", "", "Write the improved README to this file")
	return cmd
}
