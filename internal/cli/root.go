// Package cli is the geosnap command tree.
package cli

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"geosnap/internal/config"
)

// RootOptions is shared by every subcommand.
type RootOptions struct {
	Config config.Config
	// EnvFile is loaded before flags are resolved against the environment.
	EnvFile string
	Logger  *slog.Logger
}

func NewRootCommand() *cobra.Command {
	opts := &RootOptions{Config: config.Default()}

	cmd := &cobra.Command{
		Use:   "geosnap",
		Short: "Capture geo-tagged photos and follow them live",
		Long: `geosnap captures a photo, tags it with the current position, uploads it
to the shared photos collection and shows the collection as a live list or
map.

Every flag can also be set through a GEOSNAP_* environment variable, e.g.
--image-mode as GEOSNAP_IMAGE_MODE, or from a .env file.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(opts.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return err
			}
			if err := config.ApplyEnv(cmd.Flags(), os.LookupEnv); err != nil {
				return err
			}
			if err := opts.Config.Validate(); err != nil {
				return err
			}
			opts.Logger = newLogger(cmd, opts.Config.Verbose)
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", ".env", "dotenv file to load")
	config.BindFlags(cmd.PersistentFlags(), &opts.Config)

	cmd.AddCommand(NewCaptureCommand(opts))
	cmd.AddCommand(NewLocateCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewMapCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))

	return cmd
}

func newLogger(cmd *cobra.Command, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}
