package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/classkit/internal/compiler"
	"github.com/roach88/classkit/internal/engine"
	"github.com/roach88/classkit/internal/ir"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
}

// ValidationResult is the JSON payload of the validate command.
type ValidationResult struct {
	Valid   bool                       `json:"valid"`
	Classes int                        `json:"classes"`
	Errors  []compiler.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <specs>",
		Short: "Validate class specs",
		Long: `Validate CUE class specs without constructing anything.

Every class is checked against the class schema, then the class graph is
checked for unknown parents, duplicate names and inheritance cycles, and
finally every class is composed. All errors are reported, not just the
first.

Example:
  classkit validate ./specs
  classkit validate ./specs/animals.cue --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *ValidateOptions, specsPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	loadResult, loadErrors := LoadSpecs(specsPath, LoadModeCollectAll)
	if loadResult == nil && len(loadErrors) > 0 {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, loadErrors[0])
	}
	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, specsPath)

	var errs []compiler.ValidationError
	for _, err := range loadErrors {
		errs = append(errs, loadErrorToValidation(err))
	}
	errs = append(errs, validateAll(loadResult.Classes, formatter)...)

	if len(errs) > 0 {
		return outputValidationErrors(formatter, errs)
	}
	return outputValidateSuccess(formatter, len(loadResult.Classes))
}

// validateAll checks each class spec, then the class graph. Composition
// is only attempted once both are clean.
func validateAll(specs []ir.ClassSpec, formatter *OutputFormatter) []compiler.ValidationError {
	var errs []compiler.ValidationError
	for _, spec := range specs {
		formatter.VerboseLog("Validating class: %s", spec.Name)
		for _, ve := range compiler.Validate(spec) {
			ve.Field = fmt.Sprintf("class.%s.%s", spec.Name, ve.Field)
			errs = append(errs, ve)
		}
	}
	if len(errs) > 0 {
		return errs
	}

	if _, err := compiler.Order(specs); err != nil {
		return []compiler.ValidationError{graphError(err)}
	}

	if _, err := engine.New(specs); err != nil {
		var rtErr *engine.RuntimeError
		field := "class"
		if errors.As(err, &rtErr) && rtErr.Class != "" {
			field = "class." + rtErr.Class
		}
		return []compiler.ValidationError{{
			Field:   field,
			Message: err.Error(),
			Code:    ErrCodeCompose,
		}}
	}
	return nil
}

// graphError maps an Order failure to a validation error.
func graphError(err error) compiler.ValidationError {
	var (
		cycle   *compiler.InheritanceCycleError
		unknown *compiler.UnknownParentError
		dup     *compiler.DuplicateClassError
	)
	switch {
	case errors.As(err, &cycle):
		return compiler.ValidationError{Field: "extends", Message: err.Error(), Code: ErrCodeInheritCycle}
	case errors.As(err, &unknown):
		return compiler.ValidationError{Field: "class." + unknown.Class + ".extends", Message: err.Error(), Code: ErrCodeUnknownParent}
	case errors.As(err, &dup):
		return compiler.ValidationError{Field: "class." + dup.Name, Message: err.Error(), Code: ErrCodeDuplicateClass}
	default:
		return compiler.ValidationError{Field: "class", Message: err.Error(), Code: ErrCodeGeneric}
	}
}

// loadErrorToValidation keeps the code and line of a load error.
func loadErrorToValidation(err error) compiler.ValidationError {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		ve := compiler.ValidationError{Field: "cue", Message: loadErr.Message, Code: loadErr.Code}
		if loadErr.Pos.IsValid() {
			ve.Field = loadErr.Pos.Filename()
			ve.Line = loadErr.Pos.Line()
		}
		return ve
	}
	return compiler.ValidationError{Field: "cue", Message: err.Error(), Code: ErrCodeGeneric}
}

func outputValidateSuccess(formatter *OutputFormatter, classes int) error {
	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, Classes: classes})
	}

	fmt.Fprintf(formatter.Writer, "✓ All specs valid (%d class(es))\n", classes)
	return nil
}

func outputValidationErrors(formatter *OutputFormatter, errs []compiler.ValidationError) error {
	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Errors: errs},
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", err.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", err.Code, err.Field, err.Message)
	}

	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
