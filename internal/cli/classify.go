package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leofalp/directchat/core/config"
	"github.com/leofalp/directchat/core/dispatch"
	"github.com/leofalp/directchat/internal/utils"
)

func newClassifyCmd() *cobra.Command {
	var flags requestFlags

	cmd := &cobra.Command{
		Use:   "classify",
		Short: "print the adapter that would serve a request",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			envFiles, err := cmd.Flags().GetStringSlice("env-file")
			if err != nil {
				return err
			}
			cfg, err := config.Load(envFiles...)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			effective, route := dispatch.New(cfg).Effective(flags.request(""))

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "route:   %s\n", route)
			fmt.Fprintf(out, "channel: %s\n", effective.Channel)
			fmt.Fprintf(out, "model:   %s\n", effective.Model)
			fmt.Fprintf(out, "address: %s\n", utils.RedactURL(effective.APIAddress))
			fmt.Fprintf(out, "key set: %t\n", effective.APIKey != "")
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}
