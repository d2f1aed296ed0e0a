package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vicentereig/qunalbum/internal/commands"
	"github.com/vicentereig/qunalbum/internal/config"
	"github.com/vicentereig/qunalbum/internal/output"
)

var (
	// version is overridden at build time via -ldflags "-X main.version=X.Y.Z"
	version = "dev"
)

// errReported marks failures that were already written to stdout as a JSON
// result.
var errReported = errors.New("error already reported")

type globalOptions struct {
	configPath string
	dataDir    string
	verbose    bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "qunalbum",
		Short: "Upload images and quote memes to QQ group albums",
		Long: `qunalbum connects to a OneBot v11 implementation (NapCat) and answers the
group command "/上传群相册 [album]" (alias "/up").

The image attached to the quoted message, or to the command itself, is
uploaded to the named group album. When there is no image, the quoted text is
rendered into a "my_friend" meme with the quoted sender's avatar and name, and
that meme is uploaded instead.

Examples:
  qunalbum serve --config qunalbum.yaml
  qunalbum history --group 123456 --since 24h --limit 10
  qunalbum albums --group 123456`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "qunalbum.yaml", "config file")
	root.PersistentFlags().StringVar(&opts.dataDir, "data-dir", "", "data directory (overrides data_dir from the config file)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newServeCmd(opts),
		newHistoryCmd(opts),
		newAlbumsCmd(opts),
		newVersionCmd(),
	)
	return root
}

func newServeCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Listen for group commands until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			log := newLogger(cmd.ErrOrStderr(), cfg.LogLevel, opts.verbose)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			app, err := commands.NewApp(cfg, log)
			if err != nil {
				return fmt.Errorf("failed to initialize: %w", err)
			}
			defer app.Close()

			log.Info().
				Str("onebot", cfg.OneBot.WSURL).
				Str("meme", cfg.Meme.BaseURL).
				Str("data_dir", cfg.DataDir).
				Msg("serving group album commands")

			if err := app.Serve(ctx); err != nil {
				log.Error().Err(err).Msg("serve stopped")
				return errReported
			}
			log.Info().Msg("shut down")
			return nil
		},
	}
}

func newHistoryCmd(opts *globalOptions) *cobra.Command {
	var (
		groupID   int64
		albumName string
		since     time.Duration
		limit     int
		page      int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded uploads",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var groupPtr *int64
			if groupID != 0 {
				groupPtr = &groupID
			}
			var albumPtr *string
			if albumName != "" {
				albumPtr = &albumName
			}
			var sincePtr *time.Time
			if since > 0 {
				t := time.Now().Add(-since)
				sincePtr = &t
			}

			return opts.runOffline(cmd, func(app *commands.App) string {
				return app.History(groupPtr, albumPtr, sincePtr, limit, page)
			})
		},
	}

	cmd.Flags().Int64Var(&groupID, "group", 0, "only uploads to this group")
	cmd.Flags().StringVar(&albumName, "album", "", "only uploads to this album")
	cmd.Flags().DurationVar(&since, "since", 0, "only uploads newer than this (e.g. 24h)")
	cmd.Flags().IntVar(&limit, "limit", 20, "limit")
	cmd.Flags().IntVar(&page, "page", 0, "page")
	return cmd
}

func newAlbumsCmd(opts *globalOptions) *cobra.Command {
	var groupID int64

	cmd := &cobra.Command{
		Use:   "albums",
		Short: "List the albums a group has uploaded to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.runOffline(cmd, func(app *commands.App) string {
				return app.Albums(groupID)
			})
		},
	}

	cmd.Flags().Int64Var(&groupID, "group", 0, "group id")
	_ = cmd.MarkFlagRequired("group")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print CLI version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), commands.Version(version))
		},
	}
}

// runOffline builds an App for commands that only read local history and
// prints the JSON result of fn.
func (o *globalOptions) runOffline(cmd *cobra.Command, fn func(app *commands.App) string) error {
	out := cmd.OutOrStdout()

	cfg, err := o.load()
	if err != nil {
		fmt.Fprintln(out, output.Error(err))
		return errReported
	}

	app, err := commands.NewApp(cfg, newLogger(cmd.ErrOrStderr(), cfg.LogLevel, o.verbose))
	if err != nil {
		fmt.Fprintln(out, output.Error(fmt.Errorf("failed to initialize: %w", err)))
		return errReported
	}
	defer app.Close()

	fmt.Fprintln(out, fn(app))
	return nil
}

func (o *globalOptions) load() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.dataDir != "" {
		cfg.DataDir = o.dataDir
	}
	abs, err := filepath.Abs(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("invalid data directory %q: %w", cfg.DataDir, err)
	}
	cfg.DataDir = abs
	return cfg, nil
}

func newLogger(w io.Writer, level string, verbose bool) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	if verbose {
		lvl = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}).
		Level(lvl).
		With().
		Timestamp().
		Logger()
}
