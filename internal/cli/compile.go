package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/classkit/internal/ir"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompiledClass is one class of the compiled graph.
type CompiledClass struct {
	ir.ClassRecord
	// Chain is the class followed by its ancestors in first-seen order.
	Chain []string `json:"chain"`
}

// CompilationResult is the compiled class graph in dependency order.
type CompilationResult struct {
	EngineVersion string          `json:"engine_version"`
	IRVersion     string          `json:"ir_version"`
	Classes       []CompiledClass `json:"classes"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <specs>",
		Short: "Compile CUE class specs to the class graph",
		Long: `Compile CUE class specs into the class graph.

Classes are validated, ordered so every class follows its parents and
composed. The output lists each class with its spec hash, direct
superclasses and full ancestor chain.

Example:
  classkit compile ./specs -o classes.json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, specsPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	eng, err := loadEngine(specsPath)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err)
	}

	result := &CompilationResult{
		EngineVersion: ir.EngineVersion,
		IRVersion:     ir.IRVersion,
	}
	reg := eng.Registry()
	for _, name := range reg.Names() {
		entry, _ := reg.Lookup(name)
		formatter.VerboseLog("Compiled class: %s (%s)", name, entry.Hash)
		result.Classes = append(result.Classes, CompiledClass{
			ClassRecord: entry.Record(),
			Chain:       entry.Chain(),
		})
	}

	if opts.Output != "" {
		if err := writeGraphToFile(result, opts.Output); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, fmt.Errorf("writing output file: %w", err))
		}
	}

	return outputCompileSuccess(formatter, result, opts.Output)
}

// writeGraphToFile writes the class graph as indented JSON.
func writeGraphToFile(result *CompilationResult, path string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}

func outputCompileSuccess(formatter *OutputFormatter, result *CompilationResult, outputFile string) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ Compiled %d class(es)\n\n", len(result.Classes))
	for _, c := range result.Classes {
		line := fmt.Sprintf("  %s", c.Name)
		if len(c.Supers) > 0 {
			line += " extends " + strings.Join(c.Supers, ", ")
		}
		fmt.Fprintf(formatter.Writer, "%s\n    %s\n", line, c.SpecHash)
	}
	fmt.Fprintln(formatter.Writer)

	if outputFile != "" {
		fmt.Fprintf(formatter.Writer, "Wrote class graph to %s\n", outputFile)
	}
	return nil
}
