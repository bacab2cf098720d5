package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"cuelang.org/go/cue/token"

	"github.com/roach88/classkit/internal/compiler"
	"github.com/roach88/classkit/internal/engine"
	"github.com/roach88/classkit/internal/ir"
)

// LoadMode controls how errors are handled during spec loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// LoadResult contains the classes compiled from a spec path.
type LoadResult struct {
	Classes   []ir.ClassSpec
	Files     []string // CUE files compiled, in load order
	FileCount int
}

// LoadError represents an error that occurred during spec loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadSpecs compiles the classes declared under path, which is either a
// single .cue file or a directory searched recursively. Each file is
// compiled on its own; classes are returned in file order, then in
// declaration order within a file.
func LoadSpecs(path string, mode LoadMode) (*LoadResult, []error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("specs path not found: %s", path)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing specs path: %v", err)}}
	}

	files := []string{path}
	if info.IsDir() {
		files, err = FindCUEFiles(path)
		if err != nil {
			return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
		}
		if len(files) == 0 {
			return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", path)}}
		}
	}

	result := &LoadResult{Files: files, FileCount: len(files)}
	var errs []error
	for _, file := range files {
		specs, err := compiler.CompileFiles(file)
		if err != nil {
			errs = append(errs, convertCompileError(err, file))
			if mode == LoadModeFailFast {
				return result, errs
			}
			continue
		}
		result.Classes = append(result.Classes, specs...)
	}

	if len(result.Classes) == 0 && len(errs) == 0 {
		errs = append(errs, &LoadError{Code: ErrCodeNoClasses, Message: "no classes found in specs"})
	}
	return result, errs
}

// FindCUEFiles walks the directory and returns all .cue file paths in
// lexical order.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	sort.Strings(files)
	return files, err
}

// loadEngine loads specs fail-fast and builds an engine over them. Any
// failure is a command error.
func loadEngine(path string, opts ...engine.Option) (*engine.Engine, error) {
	loadResult, loadErrors := LoadSpecs(path, LoadModeFailFast)
	if len(loadErrors) > 0 {
		return nil, WrapExitError(ExitCommandError, "failed to load specs", loadErrors[0])
	}
	eng, err := engine.New(loadResult.Classes, opts...)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to build classes", err)
	}
	return eng, nil
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error, file string) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: compileErr.Message,
			Pos:     compileErr.Pos,
		}
	}
	if errors.Is(err, os.ErrNotExist) || errors.Is(err, os.ErrPermission) {
		return &LoadError{Code: ErrCodeLoadFailed, Message: err.Error()}
	}
	return &LoadError{
		Code:    ErrCodeGeneric,
		Message: fmt.Sprintf("%s: %v", file, err),
	}
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE file unreadable
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE evaluation failed
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeNoClasses   = "E008" // No classes declared
	ErrCodeQuery       = "E009" // Invalid --where filter

	// Class schema errors reported while compiling
	ErrCodeClassSchema = "E100" // Malformed class declaration

	// Class graph errors
	ErrCodeUnknownParent  = "E120" // extends names an undeclared class
	ErrCodeInheritCycle   = "E121" // class extends itself
	ErrCodeDuplicateClass = "E122" // class declared twice
	ErrCodeCompose        = "E130" // class could not be materialized
)

// MapFieldToErrorCode maps a compiler error field to an error code.
func MapFieldToErrorCode(field string) string {
	switch field {
	case "", "cue":
		return ErrCodeBuildFailed
	default:
		return ErrCodeClassSchema
	}
}
