// readmegen 是 README 生成服务的命令行客户端。
//
// Usage:
//
//	readmegen generate <repo> [--style=detailed] [--sections=features,usage] [-o README.md] [--render] [--flush-interval=50ms]
//	readmegen bulk <file> [--workers=1] [--dir=.]
//	readmegen section <file> <title> [--id=usage-2] [--instruction=...] [--repo=owner/name]
//	readmegen score <file>
//	readmegen improve <file> [-o out.md]
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"github.com/readmegen/backend/config"
	"github.com/readmegen/backend/internal/pkg/apiclient"
)

// version is set at build time via -ldflags.
var version = "dev"

type rootOptions struct {
	server   string
	clientID string
	// flushInterval 流式输出合并刷新间隔
	flushInterval time.Duration
}

func (o *rootOptions) client() *apiclient.Client {
	return apiclient.New(o.server, o.clientID)
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "readmegen",
		Short:         "Generate README files for GitHub repositories",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
	}

	f := cmd.PersistentFlags()
	f.StringVar(&opts.server, "server", envOr("READMEGEN_SERVER", apiclient.DefaultBaseURL), "README service base URL")
	f.StringVar(&opts.clientID, "client-id", os.Getenv("READMEGEN_CLIENT_ID"), "Client id sent as X-Client-ID (enables history)")
	f.DurationVar(&opts.flushInterval, "flush-interval", config.GetConfig().Stream.FlushInterval, "How often streamed text is flushed to the terminal")
	f.AddGoFlagSet(flag.CommandLine)

	cmd.AddCommand(newGenerateCmd(opts))
	cmd.AddCommand(newBulkCmd(opts))
	cmd.AddCommand(newSectionCmd(opts))
	cmd.AddCommand(newScoreCmd(opts))
	cmd.AddCommand(newImproveCmd(opts))
	return cmd
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	klog.InitFlags(nil)
	defer klog.Flush()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
