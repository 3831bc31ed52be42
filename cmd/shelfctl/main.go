package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"tubeshelf/internal/catalog"
	"tubeshelf/internal/downloader"
	"tubeshelf/internal/logging"
	"tubeshelf/internal/process"
	"tubeshelf/internal/startup"
	"tubeshelf/internal/thumbnail"
	"tubeshelf/internal/transcoder"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runner := process.NewExecRunner()
	a := newApp(afero.NewOsFs(), runner, os.Stdout, os.Stderr)
	err := newRootCmd(a).ExecuteContext(ctx)
	runner.Cleanup()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app carries what every subcommand needs. config is filled in by the root
// command before any subcommand runs.
type app struct {
	fs     afero.Fs
	runner process.Runner
	v      *viper.Viper
	out    io.Writer
	errOut io.Writer

	format  string
	verbose bool
	config  *startup.Config
}

func newApp(fs afero.Fs, runner process.Runner, out, errOut io.Writer) *app {
	return &app{
		fs:     fs,
		runner: runner,
		v:      startup.NewViper(),
		out:    out,
		errOut: errOut,
		format: formatAuto,
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "shelfctl",
		Short:         "Manage a tubeshelf video library from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return a.loadConfig()
		},
	}
	root.SetOut(a.out)
	root.SetErr(a.errOut)

	flags := root.PersistentFlags()
	flags.String("videos-dir", "", "videos directory (VIDEOS_DIR)")
	flags.String("thumbnails-dir", "", "thumbnail cache directory (THUMBNAILS_DIR)")
	flags.String("ffmpeg", "", "ffmpeg executable (FFMPEG_PATH)")
	flags.String("yt-dlp", "", "yt-dlp executable (YTDLP_PATH)")
	flags.StringVarP(&a.format, "output", "o", formatAuto, "output format: auto, table or json")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "log progress to stderr")

	for key, flag := range map[string]string{
		startup.KeyVideosDir:     "videos-dir",
		startup.KeyThumbnailsDir: "thumbnails-dir",
		startup.KeyFFmpegPath:    "ffmpeg",
		startup.KeyYtDlpPath:     "yt-dlp",
	} {
		_ = a.v.BindPFlag(key, flags.Lookup(flag))
	}

	root.AddCommand(
		newListCmd(a),
		newSearchCmd(a),
		newStatsCmd(a),
		newThumbnailCmd(a),
		newDownloadCmd(a),
		newNormalizeCmd(a),
		newVersionCmd(a),
	)
	return root
}

func (a *app) loadConfig() error {
	if a.verbose {
		logging.SetLevel(logging.LevelDebug)
	} else {
		logging.SetLevel(logging.LevelWarn)
	}

	switch a.format {
	case formatAuto, formatTable, formatJSON:
	default:
		return fmt.Errorf("unknown output format %q", a.format)
	}

	if _, err := startup.LoadDotEnv(); err != nil {
		return err
	}
	config, warnings, err := startup.Load(a.v)
	if err != nil {
		return err
	}
	for _, w := range warnings {
		fmt.Fprintf(a.errOut, "Warning: %s\n", w)
	}
	if err := startup.SetupDirectories(a.fs, config); err != nil {
		return err
	}
	a.config = config
	return nil
}

func (a *app) catalog() *catalog.Catalog {
	return catalog.New(a.fs, a.config.VideosDir, catalog.Options{Workers: a.config.CatalogWorkers})
}

func (a *app) thumbnails() *thumbnail.Cache {
	trans := transcoder.New(a.runner, a.fs, transcoder.Config{
		FFmpegPath: a.config.FFmpegPath,
		Timeout:    a.config.FFmpegTimeout,
	})
	return thumbnail.New(a.fs, a.catalog(), trans, thumbnail.Config{
		Dir:      a.config.ThumbnailsDir,
		Enabled:  a.config.ThumbnailsEnabled,
		MaxWidth: a.config.ThumbnailMaxWidth,
	})
}

func (a *app) downloader() *downloader.Downloader {
	return downloader.New(a.fs, a.runner, downloader.Config{
		VideosDir:  a.config.VideosDir,
		YtDlpPath:  a.config.YtDlpPath,
		FormatSort: a.config.DownloadFormatSort,
		Timeout:    a.config.DownloadTimeout,
	})
}
