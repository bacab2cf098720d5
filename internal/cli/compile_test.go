package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/classkit/internal/ir"
)

func TestCompile_JSON(t *testing.T) {
	out, err := execute(t, NewCompileCommand(jsonOpts()), animalSpecs)
	require.NoError(t, err)

	resp := decode[CompilationResult](t, out)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, ir.EngineVersion, resp.Data.EngineVersion)
	require.Len(t, resp.Data.Classes, 2)

	animal, duck := resp.Data.Classes[0], resp.Data.Classes[1]
	assert.Equal(t, "Animal", animal.Name)
	assert.Equal(t, []string{"Animal"}, animal.Chain)
	assert.Empty(t, animal.Supers)

	assert.Equal(t, "Duck", duck.Name)
	assert.Equal(t, []string{"Animal"}, duck.Supers)
	assert.Equal(t, []string{"Duck", "Animal"}, duck.Chain)
	assert.Equal(t, ir.MustSpecHash(duck.Spec), duck.SpecHash)
	assert.Len(t, duck.SpecHash, 64)
}

func TestCompile_Text(t *testing.T) {
	out, err := execute(t, NewCompileCommand(textOpts()), animalSpecs)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Compiled 2 class(es)")
	assert.Contains(t, out, "  Duck extends Animal")
}

func TestCompile_OutputFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "classes.json")
	out, err := execute(t, NewCompileCommand(textOpts()), animalSpecs, "-o", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote class graph to "+path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var graph CompilationResult
	require.NoError(t, json.Unmarshal(data, &graph))
	require.Len(t, graph.Classes, 2)
	assert.Equal(t, "Duck", graph.Classes[1].Name)
}

func TestCompile_InvalidSpecs(t *testing.T) {
	out, err := execute(t, NewCompileCommand(jsonOpts()), writeSpec(t, `class: Duck: extends: ["Animal"]`))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	resp := decode[json.RawMessage](t, out)
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "INVALID_SPEC", resp.Error.Code)
}
