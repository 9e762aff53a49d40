package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/reedboard/internal/board"
	"github.com/roach88/reedboard/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database    string
	RunID       string // optional - latest run otherwise
	ChangesOnly bool
	Boards      bool
}

// TraceScan is one journaled scan in the timeline.
type TraceScan struct {
	Seq      int64              `json:"seq"`
	Snapshot board.Snapshot     `json:"snapshot"`
	Changes  []board.Transition `json:"changes"`
	Start    bool               `json:"start,omitempty"`
}

// TraceStats holds summary statistics for a run.
type TraceStats struct {
	TotalScans    int `json:"total_scans"`
	ChangingScans int `json:"changing_scans"`
	Transitions   int `json:"transitions"`
	StartScans    int `json:"start_scans"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	RunID    string      `json:"run_id"`
	Source   string      `json:"source"`
	Timeline []TraceScan `json:"timeline"`
	Stats    TraceStats  `json:"stats"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show the journaled scans of a run",
		Long: `Show what the grid reported during a journaled run.

Lists every scan with its occupancy and the square transitions relative to the
scan before it; scans showing the start position are marked. No rules are
applied, so this is the raw sensor view to compare with replay.

Examples:
  reedboard trace --db scans.db
  reedboard trace --db scans.db --run 0190f3c2-... --changes-only
  reedboard trace --db scans.db --boards
  reedboard trace --db scans.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run to trace (default latest)")
	cmd.Flags().BoolVar(&opts.ChangesOnly, "changes-only", false, "omit scans that changed nothing")
	cmd.Flags().BoolVar(&opts.Boards, "boards", false, "draw the grid after each scan")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	run, err := resolveRun(ctx, st, opts.RunID)
	if err != nil {
		return err
	}

	result, err := buildTrace(ctx, st, run, opts.ChangesOnly)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read scans", err)
	}

	if opts.Format == "json" {
		return encodeJSON(cmd.OutOrStdout(), CLIResponse{Status: "ok", Data: result})
	}
	outputTraceText(cmd, result, opts.Boards)
	return nil
}

// resolveRun picks --run or the latest run.
func resolveRun(ctx context.Context, st *store.Store, id string) (store.Run, error) {
	var (
		run store.Run
		err error
	)
	if id != "" {
		run, err = st.ReadRun(ctx, id)
	} else {
		run, err = st.LatestRun(ctx)
	}
	if errors.Is(err, store.ErrRunNotFound) {
		if id == "" {
			return store.Run{}, NewExitError(ExitCommandError, "journal has no runs")
		}
		return store.Run{}, NewExitError(ExitCommandError, fmt.Sprintf("run %s not found", id))
	}
	if err != nil {
		return store.Run{}, WrapExitError(ExitCommandError, "failed to read run", err)
	}
	return run, nil
}

func buildTrace(ctx context.Context, st *store.Store, run store.Run, changesOnly bool) (TraceResult, error) {
	scans, err := st.ReadScans(ctx, run.ID)
	if err != nil {
		return TraceResult{}, err
	}
	starts, err := st.CountMatching(ctx, run.ID, board.StartPosition)
	if err != nil {
		return TraceResult{}, err
	}

	result := TraceResult{
		RunID:    run.ID,
		Source:   run.Source,
		Timeline: []TraceScan{},
		Stats: TraceStats{
			TotalScans: len(scans),
			StartScans: starts,
		},
	}

	var prev board.Snapshot
	for i, sc := range scans {
		changes := []board.Transition{}
		if i > 0 {
			changes = append(changes, board.Diff(prev, sc.Snapshot)...)
		}
		prev = sc.Snapshot

		if len(changes) > 0 {
			result.Stats.ChangingScans++
			result.Stats.Transitions += len(changes)
		}
		// The first scan always stays: it is the baseline for every diff after it.
		if changesOnly && i > 0 && len(changes) == 0 {
			continue
		}
		result.Timeline = append(result.Timeline, TraceScan{
			Seq:      sc.Seq,
			Snapshot: sc.Snapshot,
			Changes:  changes,
			Start:    sc.Snapshot.IsStart(),
		})
	}
	return result, nil
}

func outputTraceText(cmd *cobra.Command, result TraceResult, boards bool) {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Run: %s (%s)\n", result.RunID, result.Source)
	fmt.Fprintln(w)

	if len(result.Timeline) == 0 {
		fmt.Fprintln(w, "No scans recorded.")
		return
	}

	fmt.Fprintln(w, "Timeline:")
	for _, sc := range result.Timeline {
		marker := ""
		if sc.Start {
			marker = "  [start]"
		}
		fmt.Fprintf(w, "  [%d] %s %s%s\n", sc.Seq, sc.Snapshot.Hex(), formatChanges(sc.Changes), marker)
		if boards {
			for _, line := range strings.Split(strings.TrimRight(sc.Snapshot.String(), "\n"), "\n") {
				fmt.Fprintf(w, "      %s\n", line)
			}
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Stats:")
	fmt.Fprintf(w, "  Scans: %d (%d with changes)\n", result.Stats.TotalScans, result.Stats.ChangingScans)
	fmt.Fprintf(w, "  Transitions: %d\n", result.Stats.Transitions)
	fmt.Fprintf(w, "  Start position seen: %d time(s)\n", result.Stats.StartScans)
}

func formatChanges(changes []board.Transition) string {
	if len(changes) == 0 {
		return "-"
	}
	parts := make([]string, len(changes))
	for i, t := range changes {
		parts[i] = t.String()
	}
	return strings.Join(parts, " ")
}
