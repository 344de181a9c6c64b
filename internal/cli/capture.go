package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"geosnap/internal/apperr"
	"geosnap/internal/capture"
)

func NewCaptureCommand(rootOpts *RootOptions) *cobra.Command {
	var noUpload bool

	cmd := &cobra.Command{
		Use:   "capture [photo]",
		Short: "Capture a photo, locate it and upload it",
		Long: `Capture a photo with the configured device, tag it with the current
position and upload it to the photos collection.

With --camera=file the photo argument is imported as the capture; leaving
it out is the same as backing out of the camera. A failed upload can be
retried without capturing again.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var source string
			if len(args) == 1 {
				source = args[0]
			}

			a, err := openApp(ctx, rootOpts, cmd.InOrStdin(), cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer a.Close()

			ctrl, provider, err := a.controller(ctx, source)
			if err != nil {
				return err
			}
			defer provider.Teardown()

			session, err := ctrl.Capture(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if session == nil {
				fmt.Fprintln(out, "Capture cancelled.")
				return nil
			}
			if session.Position != nil {
				fmt.Fprintf(out, "Captured %s at %s (%s)\n", session.LocalImagePath, session.Position.Coordinates(), session.Position.Accuracy)
			} else {
				fmt.Fprintf(out, "Captured %s without location\n", session.LocalImagePath)
			}
			if noUpload {
				fmt.Fprintf(out, "Ready to upload; not uploading (%s)\n", ctrl.State())
				return nil
			}

			for {
				rec, err := ctrl.Upload(ctx)
				if err == nil {
					fmt.Fprintf(out, "Uploaded %s\n", rec.ID)
					return nil
				}
				if errors.Is(err, capture.ErrUploadInProgress) || !apperr.IsPipeline(err) {
					return err
				}
				if !a.prompter.Confirm(ctx, "Retry Upload", "The photo and its location are kept.", "Retry") {
					return err
				}
			}
		},
	}

	cmd.Flags().BoolVar(&noUpload, "no-upload", false, "capture and locate only")
	return cmd
}
