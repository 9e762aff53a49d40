package cli

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/reedboard/internal/board"
	"github.com/roach88/reedboard/internal/engine"
	"github.com/roach88/reedboard/internal/rules"
	"github.com/roach88/reedboard/internal/store"
)

// replaySession is the session id every replay uses, so two replays of a run compare equal.
const replaySession = "replay"

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	RunID    string // optional - specific run only
	All      bool   // every run instead of the latest
}

// ReplayRunResult holds the replay result for a single journal run.
type ReplayRunResult struct {
	RunID         string           `json:"run_id"`
	Source        string           `json:"source"`
	Scans         int              `json:"scans"`
	Moves         []string         `json:"moves"`
	Desyncs       int              `json:"desyncs"`
	FinalState    engine.SyncState `json:"final_state"`
	Deterministic bool             `json:"deterministic"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Runs             []ReplayRunResult `json:"runs"`
	TotalRuns        int               `json:"total_runs"`
	AllDeterministic bool              `json:"all_deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay journaled scans and verify determinism",
		Long: `Replay journaled scans through a fresh engine and report the moves they produce.

Each run is replayed twice against a freshly reset rules authority; both replays
must agree scan for scan. By default only the latest run is replayed.

Exit codes:
  0 - All runs are deterministic
  1 - Determinism verification failed (differences detected)
  2 - Command error (database not found, unknown run, etc.)

Examples:
  reedboard replay --db scans.db
  reedboard replay --db scans.db --run 0190f3c2-...
  reedboard replay --db scans.db --all --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "replay a specific run only")
	cmd.Flags().BoolVar(&opts.All, "all", false, "replay every run")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	runs, err := selectRuns(ctx, st, opts.RunID, opts.All)
	if err != nil {
		return err
	}

	result := ReplayResult{
		Runs:             make([]ReplayRunResult, 0, len(runs)),
		TotalRuns:        len(runs),
		AllDeterministic: true,
	}

	for _, run := range runs {
		runResult, err := replayAndVerifyRun(ctx, st, run)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to replay run %s", run.ID), err)
		}
		result.Runs = append(result.Runs, runResult)
		if !runResult.Deterministic {
			result.AllDeterministic = false
		}
	}

	if opts.Format == "json" {
		return outputReplayJSON(cmd, result)
	}
	return outputReplayText(cmd, result, opts.Verbose)
}

// selectRuns resolves --run and --all to journal runs. An empty journal yields no runs.
func selectRuns(ctx context.Context, st *store.Store, id string, all bool) ([]store.Run, error) {
	switch {
	case id != "":
		run, err := st.ReadRun(ctx, id)
		if errors.Is(err, store.ErrRunNotFound) {
			return nil, NewExitError(ExitCommandError, fmt.Sprintf("run %s not found", id))
		}
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to read run", err)
		}
		return []store.Run{run}, nil
	case all:
		runs, err := st.ListRuns(ctx)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to list runs", err)
		}
		return runs, nil
	default:
		run, err := st.LatestRun(ctx)
		if errors.Is(err, store.ErrRunNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to read latest run", err)
		}
		return []store.Run{run}, nil
	}
}

// replayAndVerifyRun replays a single run twice and verifies determinism.
func replayAndVerifyRun(ctx context.Context, st *store.Store, run store.Run) (ReplayRunResult, error) {
	snaps, err := st.Snapshots(ctx, run.ID)
	if err != nil {
		return ReplayRunResult{}, err
	}

	first, err := replayOnce(ctx, snaps)
	if err != nil {
		return ReplayRunResult{}, fmt.Errorf("first replay failed: %w", err)
	}
	second, err := replayOnce(ctx, snaps)
	if err != nil {
		return ReplayRunResult{}, fmt.Errorf("second replay failed: %w", err)
	}

	res := ReplayRunResult{
		RunID:         run.ID,
		Source:        run.Source,
		Scans:         len(snaps),
		Moves:         []string{},
		FinalState:    engine.StateWaitingForStart,
		Deterministic: reflect.DeepEqual(first, second),
	}
	prev := engine.StateWaitingForStart
	for _, sr := range first {
		if sr.Move != nil {
			res.Moves = append(res.Moves, sr.Move.SAN)
		}
		if sr.State == engine.StateDesynced && prev != engine.StateDesynced {
			res.Desyncs++
		}
		prev = sr.State
	}
	if len(first) > 0 {
		res.FinalState = first[len(first)-1].State
	}
	return res, nil
}

func replayOnce(ctx context.Context, snaps []board.Snapshot) ([]engine.ScanResult, error) {
	return engine.Replay(ctx, snaps, rules.NewGame(),
		engine.WithSessions(engine.NewFixedGenerator(replaySession)),
	)
}

// outputReplayJSON outputs the replay result as JSON.
func outputReplayJSON(cmd *cobra.Command, result ReplayResult) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
	}

	if !result.AllDeterministic {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    "E_DETERMINISM",
			Message: "determinism verification failed",
		}
	}

	if err := encodeJSON(cmd.OutOrStdout(), response); err != nil {
		return err
	}

	if !result.AllDeterministic {
		return NewExitError(ExitFailure, "determinism verification failed")
	}
	return nil
}

// outputReplayText outputs the replay result as text.
func outputReplayText(cmd *cobra.Command, result ReplayResult, verbose bool) error {
	w := cmd.OutOrStdout()

	if result.TotalRuns == 0 {
		fmt.Fprintln(w, "No runs found in journal.")
		return nil
	}

	fmt.Fprintf(w, "Replay Summary: %d run(s)\n", result.TotalRuns)
	fmt.Fprintln(w)

	for _, run := range result.Runs {
		status := "✓"
		if !run.Deterministic {
			status = "✗"
		}

		fmt.Fprintf(w, "%s Run: %s (%s)\n", status, run.RunID, run.Source)
		fmt.Fprintf(w, "  Scans: %d, moves: %d, desyncs: %d, final state: %s\n",
			run.Scans, len(run.Moves), run.Desyncs, run.FinalState)
		if verbose && len(run.Moves) > 0 {
			fmt.Fprintf(w, "  Moves: %s\n", formatMoves(run.Moves))
		}

		if !run.Deterministic {
			fmt.Fprintln(w, "  Warning: Non-deterministic replay detected!")
		}
		fmt.Fprintln(w)
	}

	if result.AllDeterministic {
		fmt.Fprintln(w, "✓ All runs verified deterministic")
		return nil
	}

	fmt.Fprintln(w, "✗ Determinism verification failed")
	return NewExitError(ExitFailure, "determinism verification failed")
}

// formatMoves numbers SAN moves the usual way: "1. e4 e5 2. Nf3".
func formatMoves(moves []string) string {
	var b strings.Builder
	for i, m := range moves {
		if i > 0 {
			b.WriteByte(' ')
		}
		if i%2 == 0 {
			fmt.Fprintf(&b, "%d. ", i/2+1)
		}
		b.WriteString(m)
	}
	return b.String()
}
