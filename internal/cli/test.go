package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/classkit/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update    bool   // regenerate golden files
	Filter    string // scenario filter (glob pattern)
	GoldenDir string // defaults to <scenarios-dir>/golden
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Golden string   `json:"golden,omitempty"` // "match", "updated" or "missing"
	Errors []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run conformance scenarios",
		Long: `Run conformance scenarios with the harness.

Each YAML scenario names its spec files (relative to the scenario), the
steps to run and the assertions to check. When a golden file named after
the scenario exists its canonical trace must match byte for byte.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  classkit test ./scenarios
  classkit test ./scenarios --filter "duck*"
  classkit test ./scenarios --update
  classkit test ./scenarios --golden-dir ./testdata/golden --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")
	cmd.Flags().StringVar(&opts.GoldenDir, "golden-dir", "", "golden file directory (default <scenarios-dir>/golden)")

	return cmd
}

func runTests(opts *TestOptions, scenariosDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	if _, err := os.Stat(scenariosDir); errors.Is(err, fs.ErrNotExist) {
		return NewExitError(ExitCommandError, fmt.Sprintf("scenarios directory not found: %s", scenariosDir))
	}
	goldenDir := opts.GoldenDir
	if goldenDir == "" {
		goldenDir = filepath.Join(scenariosDir, "golden")
	}

	files, err := findScenarioFiles(scenariosDir, goldenDir, opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}

	result := TestResult{Scenarios: []ScenarioResult{}, Total: len(files)}
	if len(files) == 0 {
		if formatter.Format == "json" {
			return formatter.Success(result)
		}
		fmt.Fprintln(formatter.Writer, "No scenarios found.")
		return nil
	}

	for _, file := range files {
		sr := runScenario(file, goldenDir, opts.Update)
		slog.Debug("scenario finished", "file", file, "pass", sr.Pass)
		if formatter.Format != "json" {
			printScenarioResult(formatter, sr)
		}
		result.add(sr)
	}
	return outputTestResult(formatter, result)
}

func (r *TestResult) add(sr ScenarioResult) {
	r.Scenarios = append(r.Scenarios, sr)
	if sr.Pass {
		r.Passed++
	} else {
		r.Failed++
	}
}

// findScenarioFiles returns the YAML scenarios under dir in lexical order,
// skipping goldenDir. A filter glob is matched against the file name
// without its extension.
func findScenarioFiles(dir, goldenDir, filter string) ([]string, error) {
	if filter != "" {
		if _, err := filepath.Match(filter, ""); err != nil {
			return nil, fmt.Errorf("invalid filter pattern: %w", err)
		}
	}

	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && filepath.Clean(path) == filepath.Clean(goldenDir) {
				return filepath.SkipDir
			}
			return nil
		}

		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		if filter != "" {
			if ok, _ := filepath.Match(filter, strings.TrimSuffix(d.Name(), ext)); !ok {
				return nil
			}
		}
		files = append(files, path)
		return nil
	})
	return files, err
}

// runScenario loads, runs and golden-checks one scenario file. With
// update set the golden file is rewritten instead of compared.
func runScenario(file, goldenDir string, update bool) ScenarioResult {
	scenario, err := harness.LoadScenario(file)
	if err != nil {
		return ScenarioResult{
			Name:   filepath.Base(file),
			Errors: []string{fmt.Sprintf("failed to load scenario: %v", err)},
		}
	}

	result, err := harness.Run(scenario)
	if err != nil {
		return ScenarioResult{
			Name:   scenario.Name,
			Errors: []string{fmt.Sprintf("execution failed: %v", err)},
		}
	}

	sr := ScenarioResult{Name: scenario.Name, Pass: result.Pass}
	if len(result.Errors) > 0 {
		sr.Errors = result.Errors
	}
	fail := func(format string, args ...any) ScenarioResult {
		sr.Pass = false
		sr.Errors = append(sr.Errors, fmt.Sprintf(format, args...))
		return sr
	}

	trace, err := harness.MarshalTrace(scenario.Name, result)
	if err != nil {
		return fail("failed to marshal trace: %v", err)
	}

	goldenPath := filepath.Join(goldenDir, scenario.Name+".golden")
	if update {
		if err := writeGoldenFile(goldenPath, trace); err != nil {
			return fail("failed to update golden file: %v", err)
		}
		sr.Golden = "updated"
		return sr
	}

	golden, err := os.ReadFile(goldenPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		sr.Golden = "missing"
	case err != nil:
		return fail("golden comparison failed: %v", err)
	case !bytes.Equal(golden, trace):
		return fail("trace does not match golden file (run with --update to regenerate)")
	default:
		sr.Golden = "match"
	}
	return sr
}

func writeGoldenFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

func printScenarioResult(formatter *OutputFormatter, sr ScenarioResult) {
	w := formatter.Writer
	switch {
	case !sr.Pass:
		fmt.Fprintf(w, "✗ %s\n", sr.Name)
		for _, e := range sr.Errors {
			fmt.Fprintf(w, "  %s\n", e)
		}
	case sr.Golden == "updated":
		fmt.Fprintf(w, "✓ %s (golden updated)\n", sr.Name)
	default:
		fmt.Fprintf(w, "✓ %s\n", sr.Name)
	}
}

// outputTestResult writes the summary. Any failed scenario exits 1.
func outputTestResult(formatter *OutputFormatter, result TestResult) error {
	var failure error
	if result.Failed > 0 {
		failure = NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}

	if formatter.Format == "json" {
		response := CLIResponse{Status: "ok", Data: result}
		if failure != nil {
			response.Status = "error"
			response.Error = &CLIError{Code: "E_TEST_FAILED", Message: failure.Error()}
		}
		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}
		return failure
	}

	w := formatter.Writer
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Test Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)
	if failure != nil {
		return failure
	}
	fmt.Fprintln(w, "✓ All scenarios passed")
	return nil
}
