package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/tendant/thumbcache/internal/batch"
	"github.com/tendant/thumbcache/internal/cache"
	"github.com/tendant/thumbcache/internal/converters"
	"github.com/tendant/thumbcache/internal/media"
	"github.com/tendant/thumbcache/internal/memory"
	"github.com/tendant/thumbcache/internal/metrics"
)

// fileOutput is the JSON line printed per input file.
type fileOutput struct {
	Path       string              `json:"path"`
	Thumbnails *cache.ThumbnailSet `json:"thumbnails,omitempty"`
	Error      string              `json:"error,omitempty"`
}

func toOutput(r batch.Result) fileOutput {
	out := fileOutput{Path: r.Path}
	if r.Err != nil {
		out.Error = r.Err.Error()
	} else {
		set := r.Set
		out.Thumbnails = &set
	}
	return out
}

func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

func newEnsureCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ensure <file>...",
		Short: "Return cached thumbnails for files, generating them when needed",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext(cmd)
			defer stop()

			enc := json.NewEncoder(cmd.OutOrStdout())
			failed := 0
			for _, path := range args {
				start := time.Now()
				set, err := a.service().EnsureThumbnails(ctx, path, a.cfg.CacheDir)
				r := batch.Result{Path: path, Set: set, Err: err, Duration: time.Since(start)}
				if err != nil {
					failed++
					a.logger.Error("ensure thumbnails failed", "path", path, "err", err)
				}
				if err := enc.Encode(toOutput(r)); err != nil {
					return err
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files failed", failed, len(args))
			}
			return nil
		},
	}
}

// readPaths returns one path per non-empty line, skipping # comments.
func readPaths(r io.Reader) ([]string, error) {
	var paths []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		paths = append(paths, line)
	}
	return paths, sc.Err()
}

func newBatchCmd(a *app) *cobra.Command {
	var (
		from       string
		workers    int
		jsonOut    bool
		noProgress bool
	)
	cmd := &cobra.Command{
		Use:   "batch [file]...",
		Short: "Ensure thumbnails for many files in parallel",
		RunE: func(cmd *cobra.Command, args []string) error {
			paths := append([]string(nil), args...)
			if from != "" {
				var r io.Reader = cmd.InOrStdin()
				if from != "-" {
					f, err := os.Open(from)
					if err != nil {
						return fmt.Errorf("open path list: %w", err)
					}
					defer f.Close()
					r = f
				}
				listed, err := readPaths(r)
				if err != nil {
					return fmt.Errorf("read path list: %w", err)
				}
				paths = append(paths, listed...)
			}
			if len(paths) == 0 {
				return errors.New("no input files")
			}

			ctx, stop := signalContext(cmd)
			defer stop()

			opts := batch.Options{
				Workers: workers,
				Monitor: memory.NewMonitor(memory.DefaultConfig(), a.logger),
			}
			var bar *progressBar
			if !noProgress && !jsonOut {
				bar = newProgressBar(cmd.ErrOrStderr(), len(paths))
				opts.OnProgress = bar.Observe
			}

			start := time.Now()
			results, stats := batch.Run(ctx, a.service(), paths, a.cfg.CacheDir, opts)
			bar.Finish()

			out := cmd.OutOrStdout()
			if jsonOut {
				enc := json.NewEncoder(out)
				for _, r := range results {
					if err := enc.Encode(toOutput(r)); err != nil {
						return err
					}
				}
			} else {
				printBatchReport(out, results, stats, time.Since(start))
				printCodecReport(out, a.service().Tracker())
			}

			if stats.Failed > 0 {
				return fmt.Errorf("%d of %d files failed", stats.Failed, stats.Total)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "read paths from file, one per line (- for stdin)")
	cmd.Flags().IntVarP(&workers, "workers", "j", a.cfg.Workers, "parallel workers (0 = one per CPU)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print one JSON object per file")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "disable the progress bar")
	return cmd
}

func printBatchReport(w io.Writer, results []batch.Result, stats batch.Stats, elapsed time.Duration) {
	fmt.Fprintf(w, "processed %d files in %s: %d succeeded, %d failed\n",
		stats.Total, elapsed.Round(time.Millisecond), stats.Succeeded, stats.Failed)
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(w, "  FAIL %s: %v\n", r.Path, r.Err)
		}
	}
}

func printCodecReport(w io.Writer, tracker *metrics.CodecTracker) {
	snapshot := tracker.Snapshot()
	if len(snapshot) == 0 {
		return
	}
	target := metrics.DefaultObjective.MaxExtraction
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CODEC\tSAMPLES\tAVG MS\tSUCCESS\tTARGET")
	for _, m := range snapshot {
		status := "ok"
		if !m.MeetsTarget(target) {
			status = "slow"
		}
		fmt.Fprintf(tw, "%s\t%d\t%.1f\t%.0f%%\t%s\n", m.Codec, m.SampleCount, m.AvgExtractionTimeMs, m.SuccessRate*100, status)
	}
	_ = tw.Flush()
}

func newProbeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "probe <video>",
		Short: "Show the video metadata used to pick a thumbnail frame",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := media.Stat(args[0])
			if err != nil {
				return err
			}
			info, err := a.converter().Probe(cmd.Context(), src.Path)
			if err != nil {
				return fmt.Errorf("probe: %w", err)
			}
			mime, err := media.Sniff(src.Path)
			if err != nil {
				mime = "unknown"
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(tw, "path\t%s\n", src.Path)
			fmt.Fprintf(tw, "kind\t%s\n", src.Kind)
			fmt.Fprintf(tw, "mime\t%s\n", mime)
			fmt.Fprintf(tw, "codec\t%s\n", info.Codec)
			fmt.Fprintf(tw, "dimensions\t%dx%d\n", info.Width, info.Height)
			fmt.Fprintf(tw, "duration\t%s\n", info.Length())
			fmt.Fprintf(tw, "size\t%d\n", info.Size)
			fmt.Fprintf(tw, "frame offset\t%s\n", converters.SelectOffset(info.Length()))
			return tw.Flush()
		},
	}
}

func newCacheCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the thumbnail cache",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "size",
		Short: "Report the number of cached thumbnails and their total size",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			idx, err := cache.NewIndex(a.cfg.CacheDir)
			if err != nil {
				return err
			}
			usage, err := idx.Size()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d files, %s\n", idx.Dir(), usage.Files, humanize.IBytes(uint64(usage.Bytes)))
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Remove every cached thumbnail",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			idx, err := cache.NewIndex(a.cfg.CacheDir)
			if err != nil {
				return err
			}
			n, err := idx.Clear()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d files from %s\n", n, idx.Dir())
			return nil
		},
	})
	return cmd
}

func newDoctorCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check that ffmpeg and ffprobe can be run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			missing := 0
			out := cmd.OutOrStdout()
			for _, bin := range []string{a.cfg.FFmpegPath, a.cfg.FFprobePath} {
				st := converters.CheckAvailability(ctx, a.run, bin)
				if st.Available {
					fmt.Fprintf(out, "ok       %s %s\n", st.Binary, st.Version)
					continue
				}
				missing++
				fmt.Fprintf(out, "missing  %s: %s\n", st.Binary, st.Error)
			}
			if missing > 0 {
				fmt.Fprintf(out, "\n%s", converters.InstallHint(runtime.GOOS))
				return fmt.Errorf("%d required tools unavailable; video thumbnails will fail", missing)
			}
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "thumbcache %s\n", version)
		},
	}
}
