package cli

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/classkit/internal/ir"
	"github.com/roach88/classkit/internal/queryir"
	"github.com/roach88/classkit/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	RunID    string // optional - trace one run instead of listing runs
	Class    string   // optional - filter the run listing to one class
	Where    []string // optional - column<op>value filters over events
}

// TraceResult holds a stored run with its construction timeline.
type TraceResult struct {
	Run      ir.Run                 `json:"run"`
	Timeline []ir.ConstructionEvent `json:"timeline"`
	Snapshot ir.InstanceSnapshot    `json:"snapshot"`
	Digest   string                 `json:"digest"`
	Stats    TraceStats             `json:"stats"`
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	TotalEvents int `json:"total_events"`
	// Constructors counts constructor events, one per class body run.
	Constructors int `json:"constructors"`
	// SuperCalls counts explicit and implicit superclass constructions.
	SuperCalls int `json:"super_calls"`
	MaxDepth   int `json:"max_depth"`
}

// RunListing is the trace output when no run is selected.
type RunListing struct {
	Class string   `json:"class,omitempty"`
	Runs  []ir.Run `json:"runs"`
}

// EventListing is the trace output for --where event queries.
type EventListing struct {
	Where  []string               `json:"where"`
	Events []ir.ConstructionEvent `json:"events"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show stored runs and their construction timelines",
		Long: `Show stored construction runs.

With --run the run's construction timeline is printed in seq order,
indented by depth, together with its snapshot, digest and statistics.
Without --run the stored runs are listed, optionally filtered by --class.

With --where the construction events of every stored run are searched
instead. Each clause is column<op>value over run_id, seq, class, target,
kind or depth; op is one of = < <= > >= and clauses combine with AND.
Combined with --run only that run's events are searched.

Examples:
  classkit trace --db ./classkit.db
  classkit trace --db ./classkit.db --class Duck
  classkit trace --db ./classkit.db --run 0192f8c4-... --format json
  classkit trace --db ./classkit.db --where kind=constructor --where depth>=1`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run id to trace")
	cmd.Flags().StringVar(&opts.Class, "class", "", "list only runs of this class")
	cmd.Flags().StringArrayVar(&opts.Where, "where", nil, "event filter column<op>value (repeatable)")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	formatter := newFormatter(opts.RootOptions, cmd)

	st, err := openStore(opts.Database, true)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err)
	}
	defer closeStore(st)

	if len(opts.Where) > 0 {
		listing, err := queryEvents(ctx, st, opts)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeGeneric, err)
		}
		return outputEventListing(formatter, listing)
	}

	if opts.RunID == "" {
		runs, err := st.ListRuns(ctx, opts.Class)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeGeneric, err)
		}
		return outputRunListing(formatter, RunListing{Class: opts.Class, Runs: runs})
	}

	result, err := buildTrace(ctx, st, opts.RunID)
	if errors.Is(err, sql.ErrNoRows) {
		if opts.Format == "json" {
			return formatter.Error(ErrCodeNotFound, fmt.Sprintf("run not found: %s", opts.RunID), nil)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "No run found: %s\n", opts.RunID)
		return nil
	}
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err)
	}

	if opts.Format == "json" {
		return outputTraceJSON(cmd, result)
	}
	return outputTraceText(formatter, result)
}

// buildTrace reads a run, its events and its snapshot.
func buildTrace(ctx context.Context, st *store.Store, runID string) (TraceResult, error) {
	run, err := st.ReadRun(ctx, runID)
	if err != nil {
		return TraceResult{}, err
	}
	events, err := st.ReadRunEvents(ctx, runID)
	if err != nil {
		return TraceResult{}, err
	}
	snap, digest, err := st.ReadSnapshot(ctx, runID)
	if err != nil {
		return TraceResult{}, fmt.Errorf("read snapshot: %w", err)
	}

	return TraceResult{
		Run:      run,
		Timeline: events,
		Snapshot: snap,
		Digest:   digest,
		Stats:    traceStats(events),
	}, nil
}

// queryEvents searches stored construction events with the --where
// clauses, restricted to --run when set.
func queryEvents(ctx context.Context, st *store.Store, opts *TraceOptions) (EventListing, error) {
	filter, err := queryir.ParseWhere(queryir.TableEvents, opts.Where)
	if err != nil {
		return EventListing{}, &LoadError{Code: ErrCodeQuery, Message: err.Error()}
	}
	if opts.RunID != "" {
		filter = queryir.And{Predicates: []queryir.Predicate{
			queryir.Equals{Field: "run_id", Value: ir.IRString(opts.RunID)},
			filter,
		}}
	}

	events, err := st.QueryEvents(ctx, filter)
	if err != nil {
		return EventListing{}, err
	}
	return EventListing{Where: opts.Where, Events: events}, nil
}

func traceStats(events []ir.ConstructionEvent) TraceStats {
	stats := TraceStats{TotalEvents: len(events)}
	for _, ev := range events {
		switch ev.Kind {
		case "constructor":
			stats.Constructors++
		case "explicit", "implicit":
			stats.SuperCalls++
		}
		stats.MaxDepth = max(stats.MaxDepth, ev.Depth)
	}
	return stats
}

func outputRunListing(formatter *OutputFormatter, listing RunListing) error {
	if formatter.Format == "json" {
		return formatter.Success(listing)
	}

	w := formatter.Writer
	if len(listing.Runs) == 0 {
		fmt.Fprintln(w, "No runs found in database.")
		return nil
	}
	fmt.Fprintf(w, "Runs: %d\n\n", len(listing.Runs))
	for _, run := range listing.Runs {
		fmt.Fprintf(w, "  [%d] %s %s(%s)\n", run.Seq, run.ID, run.Class, renderValue(run.Args))
	}
	return nil
}

func outputEventListing(formatter *OutputFormatter, listing EventListing) error {
	if formatter.Format == "json" {
		return formatter.Success(listing)
	}

	w := formatter.Writer
	if len(listing.Events) == 0 {
		fmt.Fprintln(w, "No matching events.")
		return nil
	}
	fmt.Fprintf(w, "Events: %d\n\n", len(listing.Events))
	for _, ev := range listing.Events {
		fmt.Fprintf(w, "  [%d] %s depth=%d %s\n", ev.Seq, ev.RunID, ev.Depth, eventLabel(ev))
	}
	return nil
}

func outputTraceJSON(cmd *cobra.Command, result TraceResult) error {
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(CLIResponse{
		Status: "ok",
		Data:   result,
	})
}

func outputTraceText(formatter *OutputFormatter, result TraceResult) error {
	w := formatter.Writer

	fmt.Fprintf(w, "Run: %s\n", result.Run.ID)
	fmt.Fprintf(w, "Class: %s\n", result.Run.Class)
	fmt.Fprintf(w, "Args: %s\n", renderValue(result.Run.Args))
	fmt.Fprintf(w, "Seq: %d\n", result.Run.Seq)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Timeline ===")
	writeEvents(formatter, result.Timeline)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Snapshot ===")
	writeSnapshot(formatter, result.Snapshot)
	fmt.Fprintf(w, "Digest: %s\n", result.Digest)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Total Events: %d\n", result.Stats.TotalEvents)
	fmt.Fprintf(w, "  Constructors: %d\n", result.Stats.Constructors)
	fmt.Fprintf(w, "  Super Calls:  %d\n", result.Stats.SuperCalls)
	fmt.Fprintf(w, "  Max Depth:    %d\n", result.Stats.MaxDepth)
	return nil
}
