package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"

	"github.com/roach88/reedboard/internal/api"
	"github.com/roach88/reedboard/internal/config"
	"github.com/roach88/reedboard/internal/engine"
	"github.com/roach88/reedboard/internal/indicator"
	"github.com/roach88/reedboard/internal/narrate"
	"github.com/roach88/reedboard/internal/rules"
	"github.com/roach88/reedboard/internal/search"
	"github.com/roach88/reedboard/internal/sensor"
	"github.com/roach88/reedboard/internal/store"
)

// Subscription buffers. The journal gets the deepest one: it must see every scan.
const (
	journalBuffer = 1024
	consoleBuffer = 64
	hintBuffer    = 8
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Script   string        // play a scan script instead of reading hardware
	Interval time.Duration // delay between script frames
	Database string        // overrides journal.path
	Listen   string        // overrides api.listen
	Engine   string        // overrides search.engine

	// Sessions allows overriding the session id generator (for testing).
	Sessions engine.SessionIDGenerator
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Track moves on the board",
		Long: `Start the scan engine and narrate moves as they are played.

Reads the reed switch grid over I2C, woken by the expanders' interrupt line
and a backup poller, or plays a YAML scan script with --script. Every scan can
be journaled to SQLite for later replay; an HTTP API and a UCI engine for hints
are optional.

Examples:
  reedboard run --config board.cue
  reedboard run --script testdata/opening.yaml --db scans.db
  reedboard run --listen :8080 --engine /usr/games/stockfish`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBoard(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Script, "script", "", "play a YAML scan script instead of reading the grid")
	cmd.Flags().DurationVar(&opts.Interval, "interval", 0, "delay between script frames")
	cmd.Flags().StringVar(&opts.Database, "db", "", "journal scans to this SQLite database")
	cmd.Flags().StringVar(&opts.Listen, "listen", "", "serve the HTTP API on this address")
	cmd.Flags().StringVar(&opts.Engine, "engine", "", "path to a UCI engine for move hints")

	return cmd
}

// applyOverrides folds command line flags into the loaded config.
func (o *RunOptions) applyOverrides(cfg *config.Config) {
	if o.Database != "" {
		cfg.Journal.Path = o.Database
	}
	if o.Listen != "" {
		cfg.API.Listen = o.Listen
	}
	if o.Engine != "" {
		cfg.Search.Engine = o.Engine
	}
}

func runBoard(opts *RunOptions, cmd *cobra.Command) error {
	setupLogging(opts.RootOptions, cmd.ErrOrStderr())

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}
	opts.applyOverrides(cfg)

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var closers []io.Closer
	defer func() {
		var errs error
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i].Close(); err != nil {
				errs = multierror.Append(errs, err)
			}
		}
		if errs != nil {
			slog.Error("shutdown failed", "error", errs)
		}
	}()

	// Grid source.
	var (
		src    engine.GridSource
		source string
		script *sensor.ScriptSource
	)
	if opts.Script != "" {
		sc, err := sensor.LoadScript(opts.Script)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to load script", err)
		}
		script, err = sensor.NewScriptSource(sc)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid script", err)
		}
		src, source = script, "script:"+opts.Script
	} else {
		grid, err := sensor.OpenGrid(sensor.GridOptions{
			Bus:        cfg.Sensor.Bus,
			Addresses:  cfg.Sensor.Addresses,
			ActiveLow:  cfg.Sensor.ActiveLow,
			Interrupts: cfg.Sensor.InterruptPin != "",
		})
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open sensor grid", err)
		}
		closers = append(closers, grid)
		src, source = grid, "hardware"
	}

	// Indicator.
	var ind engine.Indicator = indicator.Log{}
	if cfg.Indicator.Enabled() && script == nil {
		led, err := indicator.OpenLED(cfg.Indicator.Red, cfg.Indicator.Yellow, cfg.Indicator.Green)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open indicator", err)
		}
		defer func() {
			if err := led.Off(); err != nil {
				slog.Warn("indicator off failed", "error", err)
			}
		}()
		ind = indicator.Multi{led, indicator.Log{}}
	}

	engineOpts := []engine.Option{engine.WithIndicator(ind)}
	if opts.Sessions != nil {
		engineOpts = append(engineOpts, engine.WithSessions(opts.Sessions))
	}
	eng := engine.New(src, rules.NewGame(), engineOpts...)

	// Everything that can fail is opened before the first goroutine starts, so an early
	// return never leaves a subscriber waiting on a channel nothing will close.
	var (
		st    *store.Store
		runID string
	)
	if cfg.Journal.Path != "" {
		st, err = store.Open(cfg.Journal.Path)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open journal", err)
		}
		closers = append(closers, st)

		runID = engine.UUIDv7Generator{}.Generate()
		if err := st.BeginRun(ctx, runID, source); err != nil {
			return WrapExitError(ExitCommandError, "failed to begin journal run", err)
		}
		slog.Info("journaling scans", "path", cfg.Journal.Path, "run", runID)
	}

	var hinter *search.Engine
	if cfg.Search.Engine != "" {
		hinter, err = search.Open(cfg.Search.Engine, cfg.Search.MoveTime())
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to start search engine", err)
		}
		closers = append(closers, hinter)
	}

	var watcher *sensor.EdgeWatcher
	if pin := cfg.Sensor.InterruptPin; pin != "" && script == nil {
		watcher, err = sensor.OpenEdgeWatcher(pin, eng)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open interrupt pin", err)
		}
	}

	// Everything below hangs off the engine and ends when Run returns.
	var wg sync.WaitGroup
	goWait := func(name string, fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error(name+" stopped", "error", err)
			}
		}()
	}

	if st != nil {
		notes, _ := eng.Subscribe(journalBuffer)
		// Not ctx: the journal drains until the engine closes the subscription.
		goWait("journal", func() error { return st.Record(context.Background(), runID, notes) })
	}

	if hinter != nil {
		notes, _ := eng.Subscribe(hintBuffer)
		goWait("hints", func() error { return logHints(eng, hinter, notes) })
	}

	if cfg.API.Listen != "" {
		var apiOpts []api.Option
		if hinter != nil {
			apiOpts = append(apiOpts, api.WithHinter(hinter))
		}
		srv := api.New(eng, apiOpts...)
		goWait("api", func() error { return srv.ListenAndServe(ctx, cfg.API.Listen) })
	}

	notes, _ := eng.Subscribe(consoleBuffer)
	goWait("console", func() error { return printNotifications(cmd.OutOrStdout(), opts.Format, notes) })

	// Triggers.
	if script != nil {
		frames := script.Remaining()
		goWait("script", func() error { return playScript(ctx, eng, frames, opts.Interval) })
	} else {
		if watcher != nil {
			goWait("edge watcher", func() error { return watcher.Run(ctx) })
		}
		poller := sensor.NewPoller(cfg.Sensor.PollInterval(), eng)
		goWait("poller", func() error { return poller.Run(ctx) })
		eng.Signal("startup")
	}

	slog.Info("board running", "source", source)
	runErr := eng.Run(ctx)
	cancel()
	wg.Wait()

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return WrapExitError(ExitFailure, "engine error", runErr)
	}
	return printSummary(cmd.OutOrStdout(), opts.Format, eng.Status())
}

// playScript signals one scan per frame, then stops the engine once they are queued.
func playScript(ctx context.Context, eng *engine.Engine, frames int, interval time.Duration) error {
	defer eng.Stop()
	for i := 0; i < frames; i++ {
		if !eng.Signal("script") {
			return nil
		}
		if interval <= 0 {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
	return nil
}

// printNotifications narrates moves and state changes: one sentence per line as text, or
// one JSON object per line.
func printNotifications(w io.Writer, format string, notes <-chan engine.Notification) error {
	enc := json.NewEncoder(w)
	for n := range notes {
		text := narrate.Notification(n)
		if format == "json" {
			if n.Kind == engine.NotifyScan {
				continue
			}
			if err := enc.Encode(api.Event{Notification: n, Text: text}); err != nil {
				return err
			}
			continue
		}
		if text != "" {
			fmt.Fprintln(w, text)
		}
	}
	return nil
}

// logHints asks the search engine for a reply after every accepted move.
func logHints(eng *engine.Engine, hinter api.Hinter, notes <-chan engine.Notification) error {
	for n := range notes {
		if n.Kind != engine.NotifyMove || n.Move == nil || n.Move.GameOver {
			continue
		}
		fen := eng.Status().FEN
		hint, err := hinter.BestMove(fen)
		if err != nil {
			slog.Warn("hint failed", "fen", fen, "error", err)
			continue
		}
		slog.Info("hint",
			"seq", n.Seq,
			"turn", n.Move.Turn,
			"move", hint.SAN,
			"score_cp", hint.ScoreCP,
			"mate", hint.Mate,
		)
	}
	return nil
}

// RunSummary is the final line of a run.
type RunSummary struct {
	State     engine.SyncState `json:"state"`
	Session   string           `json:"session,omitempty"`
	Seq       int64            `json:"seq"`
	MoveCount int              `json:"move_count"`
	GameOver  bool             `json:"game_over"`
	Result    string           `json:"result,omitempty"`
	FEN       string           `json:"fen"`
}

func printSummary(w io.Writer, format string, st engine.Status) error {
	sum := RunSummary{
		State:     st.State,
		Session:   st.Session,
		Seq:       st.Seq,
		MoveCount: st.MoveCount,
		GameOver:  st.GameOver,
		Result:    st.Result,
		FEN:       st.FEN,
	}
	if format == "json" {
		return json.NewEncoder(w).Encode(CLIResponse{Status: "ok", Data: sum})
	}
	fmt.Fprintf(w, "Stopped after %d scans: %s, %d half-moves", sum.Seq, sum.State, sum.MoveCount)
	if sum.GameOver {
		fmt.Fprintf(w, ", result %s", sum.Result)
	}
	fmt.Fprintln(w)
	return nil
}
