package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/readmegen/backend/internal/pkg/bulk"
)

type bulkOptions struct {
	workers int
	dir     string
	style   string
}

func newBulkCmd(root *rootOptions) *cobra.Command {
	opts := &bulkOptions{}
	cmd := &cobra.Command{
		Use:   "bulk <file>",
		Short: "Generate READMEs for every repository listed in a file (one per line)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			refs, err := bulk.ParseList(f)
			f.Close()
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}

			genOpts, err := buildOptions(opts.style, "")
			if err != nil {
				return err
			}
			if err := os.MkdirAll(opts.dir, 0o755); err != nil {
				return err
			}

			client := root.client()
			runner := bulk.NewRunner(opts.workers, func(ctx context.Context, ref string) (string, error) {
				res, err := streamReadme(ctx, client, ref, &genOpts, io.Discard, root.flushInterval)
				if err != nil {
					return "", err
				}
				return res.Content, nil
			})
			out := cmd.OutOrStdout()
			runner.OnUpdate = func(it bulk.Item) {
				switch it.Status {
				case bulk.StatusGenerating:
					fmt.Fprintf(out, "[%d/%d] %s ... generating\n", it.Index+1, len(refs), it.Ref)
				case bulk.StatusError:
					fmt.Fprintf(out, "[%d/%d] %s ... error: %v\n", it.Index+1, len(refs), it.Ref, it.Err)
				}
			}

			items, runErr := runner.Run(cmd.Context(), refs)
			done := 0
			for _, it := range items {
				if it.Status != bulk.StatusDone {
					continue
				}
				path := filepath.Join(opts.dir, it.FileName())
				if err := os.WriteFile(path, []byte(it.Readme), 0o644); err != nil {
					fmt.Fprintf(out, "[%d/%d] %s ... write failed: %v\n", it.Index+1, len(refs), it.Ref, err)
					continue
				}
				done++
				fmt.Fprintf(out, "[%d/%d] %s ... done -> %s\n", it.Index+1, len(refs), it.Ref, path)
			}
			fmt.Fprintf(out, "%d/%d READMEs generated\n", done, len(refs))

			if runErr != nil {
				return runErr
			}
			if done < len(refs) {
				return fmt.Errorf("%d repositories failed", len(refs)-done)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.IntVar(&opts.workers, "workers", 1, "Number of repositories generated concurrently")
	f.StringVar(&opts.dir, "dir", ".", "Directory for the generated <repo>-README.md files")
	f.StringVar(&opts.style, "style", "detailed", "README style: minimal, detailed or badges")
	return cmd
}
