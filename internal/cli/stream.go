package cli

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leofalp/directchat/core/config"
	"github.com/leofalp/directchat/core/dispatch"
	"github.com/leofalp/directchat/providers/observability/slogobs"
)

func newStreamCmd() *cobra.Command {
	var (
		flags   requestFlags
		attach  []string
		format  string
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "stream [prompt]",
		Short: "stream one chat turn and render the events",
		Long: `Stream one chat turn. Reasoning is rendered dim, answer text plain, and
search results, tool calls and code execution as annotations.

With --format envelope every event is printed as a backend envelope frame.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != formatPretty && format != formatEnvelope {
				return fmt.Errorf("unknown format %q", format)
			}

			envFiles, err := cmd.Flags().GetStringSlice("env-file")
			if err != nil {
				return err
			}
			cfg, err := config.Load(envFiles...)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			prompt := ""
			if len(args) == 1 {
				prompt = strings.TrimSpace(args[0])
			}
			attachments, err := loadAttachments(attach)
			if err != nil {
				return err
			}

			level := slogobs.GetLogLevelFromEnv()
			if verbose {
				level = slog.LevelDebug
			}
			observer := slogobs.New(
				slogobs.WithOutput(cmd.ErrOrStderr()),
				slogobs.WithLevel(level),
			)
			dispatcher := dispatch.New(cfg, dispatch.WithObserver(observer))

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			stream, err := dispatcher.Stream(ctx, flags.request(prompt), attachments)
			if err != nil {
				return err
			}
			defer stream.Close()

			out := newRenderer(cmd.OutOrStdout(), format)
			for event := range stream.Iter() {
				if err := out.Render(event); err != nil {
					return err
				}
			}
			return out.Err()
		},
	}

	flags.register(cmd)
	cmd.Flags().StringSliceVar(&attach, "attach", nil, "files or image URLs to attach")
	cmd.Flags().StringVar(&format, "format", formatPretty, "output format: pretty or envelope")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log stream diagnostics to stderr")
	return cmd
}
