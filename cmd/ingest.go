package cmd

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/klauspost/compress/zstd"
	"github.com/spf13/cobra"

	"github.com/pable/go-hax-metrics/internal/engine"
	"github.com/pable/go-hax-metrics/internal/ingest"
	"github.com/pable/go-hax-metrics/internal/live"
	"github.com/pable/go-hax-metrics/internal/model"
	"github.com/pable/go-hax-metrics/internal/parser"
	"github.com/pable/go-hax-metrics/internal/persist"
	"github.com/pable/go-hax-metrics/internal/report"
	"github.com/pable/go-hax-metrics/pkg/logger"
)

const drainTimeout = 30 * time.Second

var (
	ingestLive   string
	ingestSpeed  float64
	ingestPlayer string
	ingestSource string
	ingestForce  bool
)

var (
	cGoal    = color.New(color.FgGreen, color.Bold)
	cOwnGoal = color.New(color.FgRed, color.Bold)
	cSaved   = color.New(color.Faint)
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <events.jsonl|->",
	Short: "Replay a host event stream and store match metrics",
	Long: `Replay a JSON-lines host event stream (a file, or - for stdin), classify every
kick and possession drive, and store each finished match. Files ending in .zst
or .gz are decompressed on the fly.

Matches already in the database are skipped unless --force is given.
With --live the running match is streamed to websocket watchers at /live and
exposed at /snapshot and /metrics.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestLive, "live", "", "serve the live side channel on this address (e.g. :8080)")
	ingestCmd.Flags().Float64Var(&ingestSpeed, "speed", 0, "replay in real time scaled by this factor (0 = as fast as possible)")
	ingestCmd.Flags().StringVar(&ingestPlayer, "player", "", "highlight a player by name and list their kicks")
	ingestCmd.Flags().StringVar(&ingestSource, "source", "", "source label stored with each match (default: file name)")
	ingestCmd.Flags().BoolVar(&ingestForce, "force", false, "re-ingest matches that are already stored")
}

func runIngest(cmd *cobra.Command, args []string) error {
	path := args[0]
	source := ingestSource

	var src io.Reader
	if path == "-" {
		src = os.Stdin
		if source == "" {
			source = "stdin"
		}
	} else {
		rc, err := openStream(path)
		if err != nil {
			return err
		}
		defer rc.Close()
		src = rc
		if source == "" {
			source = filepath.Base(path)
		}
	}

	db, err := openStorage()
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	log := logger.Named("ingest")

	// Results arrive on the saver goroutine while match tables print on this one.
	var out sync.Mutex
	saver := persist.New(db,
		persist.WithQueueSize(cfg.PersistQueueSize),
		persist.WithResultHandler(func(r persist.Result) {
			out.Lock()
			defer out.Unlock()
			if r.Err != nil {
				cOwnGoal.Fprintln(os.Stderr, r.Message)
				return
			}
			cSaved.Fprintln(os.Stdout, r.Message)
		}))
	saver.Start(ctx)

	opts := []engine.Option{
		engine.WithConfig(cfg.Engine),
		engine.WithListener(engine.ListenerFunc(func(ev model.StreamEvent) {
			out.Lock()
			defer out.Unlock()
			announce(ev)
		})),
	}
	addr := ingestLive
	if addr == "" {
		addr = cfg.LiveAddr
	}
	var hub *live.Hub
	if addr != "" {
		hub = live.NewHub()
		opts = append(opts, engine.WithListener(hub))
	}
	eng := engine.New(opts...)

	if hub != nil {
		go hub.Run(ctx)
		go func() {
			if err := live.Serve(ctx, addr, live.NewRouter(hub, eng.Snapshot)); err != nil {
				log.Error(ctx, "live server stopped", logger.String("addr", addr), logger.Error(err))
			}
		}()
		fmt.Fprintf(os.Stdout, "Live side channel on %s\n", addr)
	}

	runnerOpts := []ingest.Option{
		ingest.WithSaver(saver),
		ingest.WithSpeed(ingestSpeed),
		ingest.WithMatchHandler(func(o ingest.Outcome) {
			out.Lock()
			defer out.Unlock()
			printOutcome(os.Stdout, o)
		}),
		ingest.WithSkipHandler(func(id string) {
			out.Lock()
			defer out.Unlock()
			fmt.Fprintf(os.Stdout, "Match %s already stored — skipping.\n", shortID(id))
		}),
	}
	if !ingestForce {
		runnerOpts = append(runnerOpts, ingest.WithStore(db))
	}
	runner := ingest.New(eng, runnerOpts...)

	fmt.Fprintf(os.Stdout, "Ingesting %s...\n", source)
	stats, runErr := runner.Run(ctx, src, parser.Options{
		Source: source,
		OnError: func(line int, err error) {
			log.Warn(ctx, "skipped line", logger.Int("line", line), logger.Error(err))
		},
	})

	drainCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	if err := saver.Close(drainCtx); err != nil {
		return fmt.Errorf("flush matches: %w", err)
	}

	fmt.Fprintf(os.Stdout, "\nRead %d lines: %d matches, %d frames, %d skipped.\n",
		stats.Lines, stats.Matches, stats.Frames, stats.Skipped)
	if runErr != nil {
		return fmt.Errorf("ingest %s: %w", source, runErr)
	}
	return nil
}

// announce prints goals as they are logged.
func announce(ev model.StreamEvent) {
	if ev.Type != model.StreamGoal || ev.Goal == nil {
		return
	}
	g := ev.Goal
	line := fmt.Sprintf("%s  GOAL %s  %d-%d", report.Clock(g.Time), g.Team, g.ScoreRed, g.ScoreBlue)
	if g.Scorer != nil {
		line += "  " + g.Scorer.Name
		if g.Assist != nil {
			line += " (assist " + g.Assist.Name + ")"
		}
	}
	if g.IsOwn {
		cOwnGoal.Fprintln(os.Stdout, line+"  own goal")
		return
	}
	cGoal.Fprintln(os.Stdout, line)
}

func printOutcome(w io.Writer, o ingest.Outcome) {
	report.PrintMatchSummary(w, o.Record.Summary)
	if len(o.Record.Goals) > 0 {
		report.PrintGoalTable(w, o.Record.Goals)
		fmt.Fprintln(w)
	}
	report.PrintPlayerTable(w, o.Stats, ingestPlayer)
	for _, p := range o.Possession {
		fmt.Fprintf(w, "%s possession: %.0f%%  ", p.Team, p.Pct)
	}
	fmt.Fprintln(w)
	if ingestPlayer != "" {
		fmt.Fprintln(w)
		report.PrintKickTable(w, o.Record.Kicks, ingestPlayer)
	}
	if !o.Queued {
		cOwnGoal.Fprintf(os.Stderr, "Failed to save match %s: queue full.\n", o.Record.ID)
	}
}

type multiCloser struct {
	io.Reader
	closers []func() error
}

func (m *multiCloser) Close() error {
	var first error
	for _, c := range m.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// openStream opens a recorded host stream, decompressing .zst and .gz files.
func openStream(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open stream: %w", err)
	}
	switch {
	case strings.HasSuffix(path, ".zst"):
		dec, err := zstd.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("zstd: %w", err)
		}
		return &multiCloser{Reader: dec, closers: []func() error{
			func() error { dec.Close(); return nil },
			f.Close,
		}}, nil
	case strings.HasSuffix(path, ".gz"):
		gz, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("gzip: %w", err)
		}
		return &multiCloser{Reader: gz, closers: []func() error{gz.Close, f.Close}}, nil
	}
	return f, nil
}
