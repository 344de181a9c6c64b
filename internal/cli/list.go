package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"geosnap/internal/feed"
	"geosnap/internal/model"
	"geosnap/internal/view"
)

type feedOptions struct {
	follow bool
	since  time.Duration
}

func (o *feedOptions) bind(cmd *cobra.Command) {
	cmd.Flags().BoolVarP(&o.follow, "follow", "f", false, "keep running and re-render on every change")
	cmd.Flags().DurationVar(&o.since, "since", 0, "only photos created within this window")
}

// follow renders every snapshot of q onto surface until ctx is done.
func follow(ctx context.Context, a *app, name string, q model.Query, surface feed.Surface) error {
	consumer := feed.NewConsumer(name, a.records, q, surface, a.logger)
	if err := consumer.Open(ctx); err != nil {
		return err
	}
	defer consumer.Close()
	<-ctx.Done()
	return nil
}

func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	var opts feedOptions

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List photos, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, rootOpts, cmd.InOrStdin(), cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer a.Close()

			q := model.Query{NewestFirst: true, Since: opts.since}
			loc := a.cfg.Location()
			if opts.follow {
				lv := view.NewList(cmd.OutOrStdout(), loc)
				if err := follow(ctx, a, "list", q, lv); err != nil {
					return err
				}
				return lv.Err()
			}

			records, err := a.records.List(ctx, q)
			if err != nil {
				return err
			}
			return view.WriteList(cmd.OutOrStdout(), records, loc)
		},
	}
	opts.bind(cmd)
	return cmd
}

func NewMapCommand(rootOpts *RootOptions) *cobra.Command {
	var opts feedOptions

	cmd := &cobra.Command{
		Use:   "map",
		Short: "Print located photos as GeoJSON",
		Long: `Print a GeoJSON FeatureCollection with one point per photo that carries
coordinates. With --follow a new collection is printed on every change.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, rootOpts, cmd.InOrStdin(), cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer a.Close()

			q := model.Query{Since: opts.since}
			loc := a.cfg.Location()
			if opts.follow {
				mv := view.NewMap(cmd.OutOrStdout(), loc)
				if err := follow(ctx, a, "map", q, mv); err != nil {
					return err
				}
				return mv.Err()
			}

			records, err := a.records.List(ctx, q)
			if err != nil {
				return err
			}
			return view.WriteGeoJSON(cmd.OutOrStdout(), view.Markers(records, loc))
		},
	}
	opts.bind(cmd)
	return cmd
}
