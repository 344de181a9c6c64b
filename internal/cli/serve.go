package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"geosnap/internal/httpapi"
)

func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	var readOnly bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the photos collection over HTTP",
		Long: `Serve the photos collection:

  GET  /photos          JSON list (?order=newest|oldest, ?since=24h)
  GET  /photos/stream   server-sent snapshots (?view=list|map)
  POST /photos          multipart upload: image, lat, lon
  GET  /map.geojson     located photos as GeoJSON
  GET  /map/region      initial map region`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, rootOpts, cmd.InOrStdin(), cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer a.Close()

			var uploader httpapi.Uploader
			if !readOnly {
				pl, err := a.pipeline(ctx)
				if err != nil {
					return err
				}
				uploader = pl
			}

			api := httpapi.New(a.records, uploader, a.cfg.Location(), a.logger)
			srv := &http.Server{
				Addr:              a.cfg.Listen,
				Handler:           api.Router(),
				ReadHeaderTimeout: 10 * time.Second,
				BaseContext:       func(_ net.Listener) context.Context { return ctx },
			}

			errc := make(chan error, 1)
			go func() {
				a.logger.Info("geosnap serving", "addr", a.cfg.Listen, "store", a.cfg.Store, "image_mode", a.cfg.ImageMode)
				errc <- srv.ListenAndServe()
			}()

			select {
			case err := <-errc:
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return err
			}
			if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&readOnly, "read-only", false, "disable POST /photos")
	return cmd
}
