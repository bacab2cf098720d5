package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/classkit/internal/engine"
	"github.com/roach88/classkit/internal/ir"
	"github.com/roach88/classkit/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	RunID    string // optional - specific run only
	Specs    string // optional - replay against these specs instead of the stored ones
}

// ReplayRunResult holds the replay result for a single run.
type ReplayRunResult struct {
	RunID         string `json:"run_id"`
	Class         string `json:"class"`
	Events        int    `json:"events"`
	EventsMatch   bool   `json:"events_match"`
	DigestMatch   bool   `json:"digest_match"`
	Deterministic bool   `json:"deterministic"`
	Error         string `json:"error,omitempty"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Runs             []ReplayRunResult `json:"runs"`
	TotalRuns        int               `json:"total_runs"`
	ChangedClasses   []string          `json:"changed_classes,omitempty"`
	AllDeterministic bool              `json:"all_deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Re-run stored constructions and verify determinism",
		Long: `Re-run every stored construction and compare it with the stored run.

Each run is constructed again with its stored arguments, run id and
starting seq. The run is deterministic when the construction events and
the snapshot digest both match what was stored. Each run is rebuilt from
the class versions recorded with it, unless --specs points at a spec
path; classes whose spec hash differs from the version a run was built
from are then reported.

Exit codes:
  0 - All runs are deterministic
  1 - Determinism verification failed (differences detected)
  2 - Command error (database not found, etc.)

Examples:
  classkit replay --db ./classkit.db
  classkit replay --db ./classkit.db --run 0192f8c4-...
  classkit replay --db ./classkit.db --specs ./specs --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "replay specific run only")
	cmd.Flags().StringVar(&opts.Specs, "specs", "", "replay against specs at this path")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	formatter := newFormatter(opts.RootOptions, cmd)

	st, err := openStore(opts.Database, true)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err)
	}
	defer closeStore(st)

	stored, err := st.ReadClasses(ctx)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err)
	}
	var override []ir.ClassSpec
	if opts.Specs != "" {
		loadResult, loadErrors := LoadSpecs(opts.Specs, LoadModeFailFast)
		if len(loadErrors) > 0 {
			return formatter.Fail(ExitCommandError, ErrCodeGeneric, loadErrors[0])
		}
		override = loadResult.Classes
	}

	var runs []ir.Run
	if opts.RunID != "" {
		run, err := st.ReadRun(ctx, opts.RunID)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Errorf("run %s: %w", opts.RunID, err))
		}
		runs = []ir.Run{run}
	} else if runs, err = st.ListRuns(ctx, ""); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err)
	}

	result := ReplayResult{
		Runs:             make([]ReplayRunResult, 0, len(runs)),
		TotalRuns:        len(runs),
		AllDeterministic: true,
	}

	if len(runs) == 0 {
		if opts.Format == "json" {
			return outputReplayJSON(cmd, result)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "No runs found in database.")
		return nil
	}

	if opts.Specs != "" {
		if _, err := engine.New(override); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeGeneric, err)
		}
	}

	changed := map[string]bool{}
	for _, run := range runs {
		formatter.VerboseLog("Replaying run %s (%s)", run.ID, run.Class)
		built, err := runClasses(ctx, st, run, stored)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeGeneric, err)
		}
		specs := recordSpecs(built)
		if opts.Specs != "" {
			names, err := changedClasses(built, override)
			if err != nil {
				return formatter.Fail(ExitCommandError, ErrCodeGeneric, err)
			}
			for _, name := range names {
				changed[name] = true
			}
			specs = override
		}

		runResult, err := replayAndVerifyRun(ctx, st, specs, run)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeGeneric, fmt.Errorf("failed to replay run %s: %w", run.ID, err))
		}
		result.Runs = append(result.Runs, runResult)
		if !runResult.Deterministic {
			result.AllDeterministic = false
		}
	}
	if len(changed) > 0 {
		result.ChangedClasses = slices.Sorted(maps.Keys(changed))
	}

	if opts.Format == "json" {
		return outputReplayJSON(cmd, result)
	}
	return outputReplayText(cmd, result, opts.Verbose)
}

// runClasses returns the class versions run was built from. Runs stored
// before spec hashes were recorded fall back to the current classes.
func runClasses(ctx context.Context, st *store.Store, run ir.Run, current []ir.ClassRecord) ([]ir.ClassRecord, error) {
	built, err := st.ReadRunClasses(ctx, run.ID)
	if err != nil {
		return nil, fmt.Errorf("run %s classes: %w", run.ID, err)
	}
	if len(built) < len(run.SpecHashes) {
		return nil, fmt.Errorf("run %s: %d of %d class versions missing", run.ID, len(run.SpecHashes)-len(built), len(run.SpecHashes))
	}
	if len(built) == 0 {
		return current, nil
	}
	return built, nil
}

func recordSpecs(records []ir.ClassRecord) []ir.ClassSpec {
	specs := make([]ir.ClassSpec, len(records))
	for i, rec := range records {
		specs[i] = rec.Spec
	}
	return specs
}

// replayAndVerifyRun constructs run.Class again on a fresh engine whose
// clock and run id generator reproduce the stored run, then compares the
// events and snapshot digest with the stored ones.
func replayAndVerifyRun(ctx context.Context, st *store.Store, specs []ir.ClassSpec, run ir.Run) (ReplayRunResult, error) {
	storedEvents, err := st.ReadRunEvents(ctx, run.ID)
	if err != nil {
		return ReplayRunResult{}, err
	}
	_, storedDigest, err := st.ReadSnapshot(ctx, run.ID)
	if err != nil {
		return ReplayRunResult{}, fmt.Errorf("read snapshot: %w", err)
	}

	eng, err := engine.New(specs,
		engine.WithClock(engine.NewClockAt(run.Seq-1)),
		engine.WithRunIDs(engine.NewFixedGenerator(run.ID)),
	)
	if err != nil {
		return ReplayRunResult{}, err
	}

	result := ReplayRunResult{RunID: run.ID, Class: run.Class, Events: len(storedEvents)}
	inst, err := eng.Instantiate(ctx, run.Class, run.Args)
	if err != nil {
		// A stored run that no longer constructs is a replay mismatch.
		result.Error = err.Error()
		return result, nil
	}

	result.EventsMatch = slices.Equal(storedEvents, inst.Events)
	result.DigestMatch = storedDigest == inst.Digest
	result.Deterministic = result.EventsMatch && result.DigestMatch
	return result, nil
}

// changedClasses lists the recorded classes whose spec hash differs from
// the hash of the same-named class in specs, or that specs no longer
// declare.
func changedClasses(stored []ir.ClassRecord, specs []ir.ClassSpec) ([]string, error) {
	current := make(map[string]string, len(specs))
	for _, spec := range specs {
		hash, err := ir.SpecHash(spec)
		if err != nil {
			return nil, err
		}
		current[spec.Name] = hash
	}
	var changed []string
	for _, rec := range stored {
		if current[rec.Name] != rec.SpecHash {
			changed = append(changed, rec.Name)
		}
	}
	return changed, nil
}

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

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(response); err != nil {
		return err
	}

	if !result.AllDeterministic {
		return NewExitError(ExitFailure, "determinism verification failed")
	}
	return nil
}

func outputReplayText(cmd *cobra.Command, result ReplayResult, verbose bool) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Replay Summary: %d run(s)\n", result.TotalRuns)
	fmt.Fprintln(w)

	for _, run := range result.Runs {
		status := "✓"
		if !run.Deterministic {
			status = "✗"
		}
		fmt.Fprintf(w, "%s Run: %s (%s)\n", status, run.RunID, run.Class)

		if verbose || !run.Deterministic {
			fmt.Fprintf(w, "  Events: %d (match: %v)\n", run.Events, run.EventsMatch)
			fmt.Fprintf(w, "  Digest match: %v\n", run.DigestMatch)
		} else {
			fmt.Fprintf(w, "  Events: %d\n", run.Events)
		}
		if run.Error != "" {
			fmt.Fprintf(w, "  Error: %s\n", run.Error)
		}
		fmt.Fprintln(w)
	}

	if len(result.ChangedClasses) > 0 {
		fmt.Fprintf(w, "Changed classes: %v\n\n", result.ChangedClasses)
	}

	if result.AllDeterministic {
		fmt.Fprintln(w, "✓ All runs verified deterministic")
		return nil
	}

	fmt.Fprintln(w, "✗ Determinism verification failed")
	return NewExitError(ExitFailure, "determinism verification failed")
}
