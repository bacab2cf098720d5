package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/classkit/internal/engine"
	"github.com/roach88/classkit/internal/ir"
)

// NewOptions holds flags for the new command.
type NewOptions struct {
	*RootOptions
	Args     string // JSON array of constructor arguments
	Database string // optional; runs are only persisted when set

	// RunIDs overrides the run id generator (for testing).
	RunIDs engine.RunIDGenerator
}

// NewResult is the JSON payload of the new command.
type NewResult struct {
	RunID    string                 `json:"run_id"`
	Class    string                 `json:"class"`
	Args     ir.IRArray             `json:"args"`
	Events   []ir.ConstructionEvent `json:"events"`
	Snapshot ir.InstanceSnapshot    `json:"snapshot"`
	Digest   string                 `json:"digest"`
}

// NewNewCommand creates the new command.
func NewNewCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &NewOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "new <specs> <class>",
		Short: "Construct an instance and print its construction trace",
		Long: `Construct one instance of a class.

Prints every construction event (begin, explicit and implicit superclass
construction, constructor, end) in order, followed by the instance
snapshot and its digest. With --db the class chain, the run, its events
and its snapshot are stored so the run can be traced and replayed later.

Example:
  classkit new ./specs Duck --args '["larry"]'
  classkit new ./specs Duck --args '["larry"]' --db ./classkit.db`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNew(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Args, "args", "[]", "constructor arguments as a JSON array")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database")

	return cmd
}

func runNew(opts *NewOptions, specsPath, className string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	args, err := parseArgs("args", opts.Args)
	if err != nil {
		return formatter.Fail(ExitCommandError, string(engine.ErrCodeInvalidArgument), err)
	}

	var engineOpts []engine.Option
	if opts.RunIDs != nil {
		engineOpts = append(engineOpts, engine.WithRunIDs(opts.RunIDs))
	}
	if opts.Database != "" {
		st, err := openStore(opts.Database, false)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeGeneric, err)
		}
		defer closeStore(st)
		persist, err := storeOptions(commandContext(cmd), st)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeGeneric, err)
		}
		engineOpts = append(engineOpts, persist...)
	}

	eng, err := loadEngine(specsPath, engineOpts...)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err)
	}

	inst, err := eng.Instantiate(commandContext(cmd), className, args)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err)
	}

	result := NewResult{
		RunID:    inst.RunID,
		Class:    inst.Class,
		Args:     args,
		Events:   inst.Events,
		Snapshot: inst.Snapshot,
		Digest:   inst.Digest,
	}
	if result.Events == nil {
		result.Events = []ir.ConstructionEvent{}
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ Constructed %s (run %s)\n\n", result.Class, result.RunID)
	writeEvents(formatter, result.Events)
	fmt.Fprintln(w)
	writeSnapshot(formatter, result.Snapshot)
	fmt.Fprintf(w, "\nDigest: %s\n", result.Digest)
	if opts.Database != "" {
		fmt.Fprintf(w, "Stored in %s\n", opts.Database)
	}
	return nil
}

// eventLabel names a construction event the way trace assertions do.
func eventLabel(ev ir.ConstructionEvent) string {
	if ev.Target != "" && ev.Target != ev.Class {
		return fmt.Sprintf("%s %s %s", ev.Class, ev.Kind, ev.Target)
	}
	return fmt.Sprintf("%s %s", ev.Class, ev.Kind)
}

// writeEvents prints events indented by construction depth.
func writeEvents(formatter *OutputFormatter, events []ir.ConstructionEvent) {
	fmt.Fprintln(formatter.Writer, "Events:")
	for _, ev := range events {
		fmt.Fprintf(formatter.Writer, "  [%d] %s%s\n", ev.Seq, strings.Repeat("  ", ev.Depth), eventLabel(ev))
	}
}

// writeSnapshot prints the public fields and every class's hidden tiers.
func writeSnapshot(formatter *OutputFormatter, snap ir.InstanceSnapshot) {
	w := formatter.Writer
	fmt.Fprintf(w, "Public: %s\n", renderValue(snap.Public))
	for _, tier := range snap.Chain {
		fmt.Fprintf(w, "%s:\n", tier.Class)
		fmt.Fprintf(w, "  private:   %s\n", renderValue(tier.Private))
		fmt.Fprintf(w, "  protected: %s\n", renderValue(tier.Protected))
	}
}
