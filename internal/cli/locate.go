package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func NewLocateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "locate",
		Short: "Show location permission status and a one-shot fix",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, rootOpts, cmd.InOrStdin(), cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer a.Close()

			provider, err := a.locator(ctx)
			if err != nil {
				return err
			}
			defer provider.Teardown()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "permission: %s\n", provider.CheckCurrentStatus(ctx))

			pos, err := provider.GetCurrentPosition(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "position:   %s\n", pos.Coordinates())
			fmt.Fprintf(out, "accuracy:   %s (%.0f m)\n", pos.Accuracy, pos.AccuracyMeters)
			fmt.Fprintf(out, "resolved:   %s\n", pos.ResolvedAt.In(a.cfg.Location()).Format(time.RFC3339))
			fmt.Fprintf(out, "map:        %s\n", pos.Coordinates().MapsURL())
			return nil
		},
	}
	return cmd
}
