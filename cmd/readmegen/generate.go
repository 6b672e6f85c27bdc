package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/readmegen/backend/internal/domain"
	"github.com/readmegen/backend/internal/pkg/apiclient"
	"github.com/readmegen/backend/internal/pkg/stream"
	"github.com/readmegen/backend/internal/utils"
)

type generateOptions struct {
	style    string
	sections string
	output   string
	render   bool
}

func newGenerateCmd(root *rootOptions) *cobra.Command {
	opts := &generateOptions{}
	cmd := &cobra.Command{
		Use:   "generate <repo>",
		Short: "Generate a README and print it as it streams",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			genOpts, err := buildOptions(opts.style, opts.sections)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			live := out
			if opts.render {
				// 渲染模式只输出最终结果
				live = io.Discard
			}
			res, err := streamReadme(cmd.Context(), root.client(), args[0], &genOpts, live, root.flushInterval)
			if err != nil {
				return err
			}

			if opts.render {
				rendered, err := renderMarkdown(res.Content)
				if err != nil {
					return err
				}
				fmt.Fprint(out, rendered)
			} else {
				fmt.Fprintln(out)
			}

			if opts.output != "" {
				if err := os.WriteFile(opts.output, []byte(res.Content), 0o644); err != nil {
					return fmt.Errorf("write %s: %w", opts.output, err)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "README written to %s\n", opts.output)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.style, "style", string(domain.StyleDetailed), "README style: minimal, detailed or badges")
	f.StringVar(&opts.sections, "sections", "", "Comma separated sections to include (default all)")
	f.StringVarP(&opts.output, "out", "o", "", "Write the README to this file")
	f.BoolVar(&opts.render, "render", false, "Pretty-print the final markdown in the terminal")
	return cmd
}

// buildOptions sections 为空时开启全部章节
func buildOptions(style, sections string) (domain.GenerationOptions, error) {
	opts := domain.DefaultOptions()
	opts.Style = domain.ParseStyle(style)
	if strings.TrimSpace(sections) == "" {
		return opts, nil
	}

	known := make(map[string]domain.SectionKey, len(domain.SectionOrder))
	for _, key := range domain.SectionOrder {
		opts.Sections[key] = false
		known[strings.ToLower(string(key))] = key
	}
	for _, raw := range strings.Split(sections, ",") {
		name := strings.ToLower(strings.TrimSpace(raw))
		if name == "" {
			continue
		}
		key, ok := known[name]
		if !ok {
			return opts, fmt.Errorf("unknown section %q", raw)
		}
		opts.Sections[key] = true
	}
	return opts, nil
}

// deltaPrinter 把累计快照中新增的部分写到 w
type deltaPrinter struct {
	mu      sync.Mutex
	w       io.Writer
	printed int
}

func (p *deltaPrinter) OnInfo(info domain.RepoInfo) {}

func (p *deltaPrinter) OnContent(snapshot string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(snapshot) <= p.printed {
		return
	}
	io.WriteString(p.w, snapshot[p.printed:])
	p.printed = len(snapshot)
}

func streamReadme(ctx context.Context, client *apiclient.Client, ref string, opts *domain.GenerationOptions, w io.Writer, flushInterval time.Duration) (*stream.Result, error) {
	body, err := client.GenerateStream(ctx, ref, opts)
	if err != nil {
		return nil, err
	}
	consumer := stream.NewConsumer(&deltaPrinter{w: w}, flushInterval)
	res, err := consumer.Consume(ctx, body, stream.ConsumeOptions{})
	if err != nil {
		return res, err
	}
	if strings.TrimSpace(res.Content) == "" {
		return res, fmt.Errorf("server returned an empty README for %s", ref)
	}
	res.Content = utils.ExtractMarkdown(res.Content)
	return res, nil
}

func renderMarkdown(md string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return "", err
	}
	return r.Render(md)
}
