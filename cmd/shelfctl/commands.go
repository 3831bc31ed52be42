package main

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"tubeshelf/internal/catalog"
	"tubeshelf/internal/downloader"
	"tubeshelf/internal/memory"
	"tubeshelf/internal/process"
	"tubeshelf/internal/startup"

	"github.com/spf13/cobra"
)

func newListCmd(a *app) *cobra.Command {
	var page, limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the library one page at a time",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			result, err := a.catalog().List(cmd.Context(), page, limit)
			if err != nil {
				return err
			}
			if !a.tableOutput() {
				return a.printJSON(result)
			}

			a.printVideos(result.Videos)
			pages := (result.Total + result.Limit - 1) / result.Limit
			fmt.Fprintf(a.out, "\nPage %d of %d (%d videos)\n", result.Page, max(pages, 1), result.Total)
			return nil
		},
	}
	cmd.Flags().IntVar(&page, "page", catalog.DefaultPage, "page number")
	cmd.Flags().IntVar(&limit, "limit", catalog.DefaultLimit, "videos per page")
	return cmd
}

func newSearchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Find videos whose title contains the query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := a.catalog().Search(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			if !a.tableOutput() {
				return a.printJSON(result)
			}

			a.printVideos(result.Videos)
			fmt.Fprintf(a.out, "\n%d matches\n", result.Total)
			return nil
		},
	}
}

func (a *app) printVideos(videos []catalog.Video) {
	tw := newTable(a.out)
	fmt.Fprintln(tw, "ID\tTITLE")
	for _, v := range videos {
		fmt.Fprintf(tw, "%s\t%s\n", shortID(v.ID), v.Title)
	}
	_ = tw.Flush()
}

type statsOutput struct {
	Videos          map[string]int `json:"videos"`
	Total           int            `json:"total"`
	Bytes           int64          `json:"bytes"`
	Sidecars        int            `json:"sidecars"`
	Thumbnails      int            `json:"thumbnails"`
	ThumbnailsBytes int64          `json:"thumbnailsBytes"`
}

func newStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarize the library and thumbnail cache",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			stats, err := a.catalog().Stats()
			if err != nil {
				return err
			}
			out := statsOutput{
				Videos:   stats.Videos,
				Total:    stats.Total,
				Bytes:    stats.Bytes,
				Sidecars: stats.Sidecars,
			}
			if thumbs := a.thumbnails(); thumbs.IsEnabled() {
				out.Thumbnails, out.ThumbnailsBytes, err = thumbs.Stats()
				if err != nil {
					return err
				}
			}
			if !a.tableOutput() {
				return a.printJSON(out)
			}

			exts := make([]string, 0, len(out.Videos))
			for ext := range out.Videos {
				exts = append(exts, ext)
			}
			sort.Strings(exts)

			tw := newTable(a.out)
			fmt.Fprintf(tw, "Videos:\t%d (%s)\n", out.Total, memory.FormatBytes(out.Bytes))
			for _, ext := range exts {
				fmt.Fprintf(tw, "  %s:\t%d\n", ext, out.Videos[ext])
			}
			fmt.Fprintf(tw, "Sidecars:\t%d\n", out.Sidecars)
			fmt.Fprintf(tw, "Thumbnails:\t%d (%s)\n", out.Thumbnails, memory.FormatBytes(out.ThumbnailsBytes))
			return tw.Flush()
		},
	}
}

type thumbnailOutput struct {
	Title  string `json:"title"`
	Path   string `json:"path"`
	Cached bool   `json:"cached"`
}

func newThumbnailCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "thumbnail <title>",
		Short: "Generate (or look up) the cached thumbnail for a video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, hit, err := a.thumbnails().Get(cmd.Context(), args[0])
			if err != nil {
				a.printDiagnostics(err)
				return err
			}
			out := thumbnailOutput{Title: args[0], Path: path, Cached: hit}
			if !a.tableOutput() {
				return a.printJSON(out)
			}

			state := "generated"
			if hit {
				state = "cached"
			}
			fmt.Fprintf(a.out, "%s (%s)\n", path, state)
			return nil
		},
	}
}

type downloadOutput struct {
	JobID    string                   `json:"jobId"`
	URL      string                   `json:"url"`
	Duration string                   `json:"duration"`
	Renames  *downloader.RenameReport `json:"renames,omitempty"`
}

func newDownloadCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "download <url>",
		Short: "Download a video with yt-dlp and normalize file names",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := a.downloader().Download(cmd.Context(), args[0])
			if err != nil {
				if result != nil && result.Stderr != "" {
					fmt.Fprintln(a.errOut, strings.TrimSpace(result.Stderr))
				}
				return err
			}
			out := downloadOutput{
				JobID:    result.JobID,
				URL:      result.URL,
				Duration: result.Duration.Round(time.Millisecond).String(),
				Renames:  result.Renames,
			}
			if !a.tableOutput() {
				return a.printJSON(out)
			}

			fmt.Fprintf(a.out, "Downloaded %s in %s\n", out.URL, out.Duration)
			if out.Renames != nil {
				a.printRenames(out.Renames)
			}
			return nil
		},
	}
}

func newNormalizeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "normalize",
		Short: "Replace underscores and hyphens in file names with spaces",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			report, err := a.downloader().Normalize()
			if err != nil {
				return err
			}
			if !a.tableOutput() {
				return a.printJSON(report)
			}
			a.printRenames(report)
			return nil
		},
	}
}

func (a *app) printRenames(report *downloader.RenameReport) {
	if len(report.Renamed) == 0 && len(report.Skipped) == 0 && len(report.Failed) == 0 {
		fmt.Fprintln(a.out, "Nothing to rename")
		return
	}

	tw := newTable(a.out)
	for _, r := range report.Renamed {
		fmt.Fprintf(tw, "renamed\t%s\t-> %s\n", r.From, r.To)
	}
	for _, name := range report.Skipped {
		fmt.Fprintf(tw, "skipped\t%s\t(target exists)\n", name)
	}
	for _, f := range report.Failed {
		fmt.Fprintf(tw, "failed\t%s\t%s\n", f.Name, f.Error)
	}
	_ = tw.Flush()
}

func (a *app) printDiagnostics(err error) {
	var exitErr *process.ExitError
	if errors.As(err, &exitErr) && exitErr.Stderr != "" {
		fmt.Fprintln(a.errOut, strings.TrimSpace(exitErr.Stderr))
	}
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		// Needs no configuration.
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error { return nil },
		RunE: func(_ *cobra.Command, _ []string) error {
			info := startup.GetBuildInfo()
			if a.format == formatJSON {
				return a.printJSON(info)
			}
			fmt.Fprintf(a.out, "shelfctl %s (commit %s, built %s, %s %s/%s)\n",
				info.Version, info.Commit, info.BuildTime, info.GoVersion, info.OS, info.Arch)
			return nil
		},
	}
}
