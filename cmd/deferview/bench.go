package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kingrea/deferview/internal/config"
	"github.com/kingrea/deferview/internal/deferral"
	"github.com/kingrea/deferview/internal/logging"
	"github.com/kingrea/deferview/internal/loop"
)

func newBenchCmd(opts *rootOptions) *cobra.Command {
	var (
		showMetrics bool
		timeout     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Release units headlessly and print a timing summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := logging.NewWithWriter(cmd.ErrOrStderr(), logging.FromConfig(cfg.Project.Logging))

			res, err := runBench(cmd.Context(), cfg, timeout, logger)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			printBench(out, res)
			if showMetrics {
				fmt.Fprintln(out)
				res.sched.WriteMetrics(out)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&showMetrics, "metrics", false, "Print scheduler metrics in Prometheus format")
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "Give up when units are still pending after this long")
	return cmd
}

type benchResult struct {
	settings deferral.Settings
	units    int
	elapsed  time.Duration
	first    time.Duration
	last     time.Duration
	// commitFrames counts distinct paint frames in which at least one unit
	// was committed.
	commitFrames int
	frames       uint64
	stats        deferral.Stats
	sched        *deferral.Scheduler
}

// runBench registers every unit in one loop task on a fresh loop and waits
// until the last one commits. The loop and the driver run in one errgroup so a timeout
// or loop failure stops both.
func runBench(ctx context.Context, cfg *config.Config, timeout time.Duration, logger *slog.Logger) (*benchResult, error) {
	settings := cfg.Settings()
	units := cfg.Project.Demo.Units
	l := loop.New(
		loop.WithFrameInterval(cfg.Project.Host.FrameInterval),
		loop.WithLogger(logger),
	)
	sched := deferral.New(l,
		deferral.WithSettings(deferral.StaticSettings(settings)),
		deferral.WithLogger(logger),
	)

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	g, gctx := errgroup.WithContext(ctx)
	loopCtx, stopLoop := context.WithCancel(gctx)
	defer stopLoop()

	var (
		committed atomic.Int64
		// times and frames are only touched on the loop goroutine until
		// g.Wait returns.
		times     = make([]time.Duration, 0, units)
		frameSeen = make(map[uint64]struct{})
		done      = make(chan struct{})
		start     = time.Now()
	)

	g.Go(func() error {
		return l.Run(loopCtx)
	})
	g.Go(func() error {
		defer stopLoop()
		if units == 0 {
			return nil
		}
		// Register the whole burst as one loop task so the scheduler's first
		// kick sees every unit, as it would from a single UI event.
		l.Post(func() {
			for i := 0; i < units; i++ {
				sched.Register(func() {
					times = append(times, time.Since(start))
					frameSeen[l.Frames()] = struct{}{}
					if committed.Add(1) == int64(units) {
						close(done)
					}
				})
			}
		})
		select {
		case <-done:
			return nil
		case <-gctx.Done():
			return fmt.Errorf("bench: %d of %d units committed: %w", committed.Load(), units, gctx.Err())
		}
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &benchResult{
		settings:     settings,
		units:        units,
		elapsed:      time.Since(start),
		commitFrames: len(frameSeen),
		frames:       l.Frames(),
		stats:        sched.Stats(),
		sched:        sched,
	}
	if len(times) > 0 {
		res.first = times[0]
		res.last = times[len(times)-1]
	}
	logger.Info("bench finished",
		"scheduler", sched.ID(),
		"units", units,
		"mode", settings.Mode,
		logging.Since(start),
	)
	return res, nil
}

func printBench(w io.Writer, res *benchResult) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	batch := "all"
	if res.settings.BatchSize > 0 {
		batch = humanize.Comma(int64(res.settings.BatchSize))
	}
	fmt.Fprintf(tw, "mode\t%s\n", res.settings.Mode)
	fmt.Fprintf(tw, "delay\t%s\n", res.settings.Delay)
	fmt.Fprintf(tw, "batch size\t%s\n", batch)
	fmt.Fprintf(tw, "units\t%s\n", humanize.Comma(int64(res.units)))
	fmt.Fprintf(tw, "committed\t%s\n", humanize.Comma(int64(res.stats.Committed)))
	fmt.Fprintf(tw, "first commit\t%s\n", res.first.Round(time.Millisecond))
	fmt.Fprintf(tw, "last commit\t%s\n", res.last.Round(time.Millisecond))
	fmt.Fprintf(tw, "elapsed\t%s\n", res.elapsed.Round(time.Millisecond))
	fmt.Fprintf(tw, "frames\t%s\n", humanize.Comma(int64(res.frames)))
	fmt.Fprintf(tw, "frames with commits\t%s\n", humanize.Comma(int64(res.commitFrames)))
	if res.units > 0 && res.elapsed > 0 {
		rate := float64(res.units) / res.elapsed.Seconds()
		fmt.Fprintf(tw, "throughput\t%s units/s\n", humanize.CommafWithDigits(rate, 1))
	}
	tw.Flush()
}
