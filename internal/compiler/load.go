package compiler

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/classkit/internal/ir"
)

// CompileFiles compiles the classes declared in each CUE file. Files are
// compiled independently and their classes concatenated in argument
// order; a class name declared in two files is left for Order to reject.
func CompileFiles(paths ...string) ([]ir.ClassSpec, error) {
	ctx := cuecontext.New()
	var specs []ir.ClassSpec
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		v := ctx.CompileBytes(data, cue.Filename(path))
		compiled, err := CompileClasses(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		specs = append(specs, compiled...)
	}
	return specs, nil
}
