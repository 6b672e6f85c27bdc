package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/readmegen/backend/internal/domain"
	"github.com/readmegen/backend/internal/pkg/apiclient"
	"github.com/readmegen/backend/internal/pkg/git"
	"github.com/readmegen/backend/internal/pkg/section"
)

type sectionOptions struct {
	instruction string
	repo        string
	output      string
	id          string
	list        bool
}

func newSectionCmd(root *rootOptions) *cobra.Command {
	opts := &sectionOptions{}
	cmd := &cobra.Command{
		Use:   "section <file> [title | --id=<id>]",
		Short: "Regenerate one section of a README file in place",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			doc := section.NewDocument(string(data))
			out := cmd.OutOrStdout()

			if opts.list || (len(args) == 1 && opts.id == "") {
				for _, sec := range doc.Sections() {
					fmt.Fprintf(out, "%s%s [%s] (lines %d-%d)\n", strings.Repeat("  ", max(sec.Level-1, 0)), sec.Title, sec.ID, sec.StartLine+1, sec.EndLine+1)
				}
				return nil
			}

			info, err := repoInfoFor(opts.repo, args[0])
			if err != nil {
				return err
			}
			client := root.client()
			fn := func(ctx context.Context, sec section.Section) (string, error) {
				return client.RegenerateSection(ctx, apiclient.SectionRequest{
					Section:        sec.Title,
					SectionContent: sec.Content,
					Level:          sec.Level,
					RepoInfo:       &info,
					Instruction:    opts.instruction,
				})
			}
			var sec section.Section
			if opts.id != "" {
				sec, err = doc.RegenerateByID(cmd.Context(), opts.id, fn)
			} else {
				sec, err = doc.Regenerate(cmd.Context(), args[1], fn)
			}
			if err != nil {
				return err
			}

			target := opts.output
			if target == "" {
				target = args[0]
			}
			if err := os.WriteFile(target, []byte(doc.Markdown()), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", target, err)
			}
			fmt.Fprintf(out, "Section %q regenerated -> %s\n", sec.Title, target)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.instruction, "instruction", "", "Extra instruction, e.g. \"Make it more concise\"")
	f.StringVar(&opts.repo, "repo", "", "Repository the README belongs to (owner/name or URL)")
	f.StringVarP(&opts.output, "out", "o", "", "Write the patched README here instead of in place")
	f.StringVar(&opts.id, "id", "", "Select the section by id (see --list) instead of by title")
	f.BoolVar(&opts.list, "list", false, "List the sections and exit")
	return cmd
}

// repoInfoFor 没有 --repo 时用文件名作为项目名
func repoInfoFor(repo, file string) (domain.RepoInfo, error) {
	if repo == "" {
		name := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
		return domain.RepoInfo{Name: name}, nil
	}
	ref, err := git.ParseReference(repo)
	if err != nil {
		return domain.RepoInfo{}, err
	}
	return domain.RepoInfo{Name: ref.Repo, Owner: ref.Owner, URL: ref.CanonicalURL()}, nil
}
