package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/classkit/internal/compiler"
)

func TestValidate_ValidSpecs(t *testing.T) {
	out, err := execute(t, NewValidateCommand(textOpts()), animalSpecs)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ All specs valid (2 class(es))")
}

func TestValidate_ValidSpecsJSON(t *testing.T) {
	out, err := execute(t, NewValidateCommand(jsonOpts()), animalSpecs)
	require.NoError(t, err)

	resp := decode[ValidationResult](t, out)
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	assert.Equal(t, 2, resp.Data.Classes)
}

func TestValidate_Directory(t *testing.T) {
	out, err := execute(t, NewValidateCommand(textOpts()), filepath.Join("testdata", "specs"))
	require.NoError(t, err)
	assert.Contains(t, out, "All specs valid")
}

func TestValidate_NotFound(t *testing.T) {
	out, err := execute(t, NewValidateCommand(textOpts()), filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, ErrCodeNotFound)
}

func TestValidate_NoCUEFiles(t *testing.T) {
	_, err := execute(t, NewValidateCommand(textOpts()), t.TempDir())
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), ErrCodeNoFiles)
}

func TestValidate_Failures(t *testing.T) {
	tests := []struct {
		name string
		spec string
		code string
	}{
		{
			name: "missing field",
			spec: `class: Broken: methods: name: {kind: "get"}`,
			code: compiler.ErrMissingField,
		},
		{
			name: "unknown parent",
			spec: `class: Duck: extends: ["Animal"]`,
			code: ErrCodeUnknownParent,
		},
		{
			name: "cycle",
			spec: `
class: A: extends: ["B"]
class: B: extends: ["A"]
`,
			code: ErrCodeInheritCycle,
		},
		{
			name: "unknown delegate scope",
			spec: `class: Duck: methods: quack: {kind: "delegate", scope: "Animal", method: "getSound"}`,
			code: ErrCodeCompose,
		},
		{
			name: "cue syntax",
			spec: `class: {`,
			code: ErrCodeBuildFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, NewValidateCommand(jsonOpts()), writeSpec(t, tt.spec))
			require.Error(t, err)
			assert.Equal(t, ExitFailure, GetExitCode(err))

			resp := decode[ValidationResult](t, out)
			assert.Equal(t, "error", resp.Status)
			assert.False(t, resp.Data.Valid)
			require.NotEmpty(t, resp.Data.Errors)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestValidate_TextErrors(t *testing.T) {
	path := writeSpec(t, `class: Broken: methods: name: {kind: "get"}`)
	out, err := execute(t, NewValidateCommand(textOpts()), path)
	require.Error(t, err)
	assert.Contains(t, out, "✗ Validation failed")
	assert.Contains(t, out, "class.Broken.")
}

func TestLoadSpecs_CollectAll(t *testing.T) {
	dir := t.TempDir()
	good := `class: Animal: static: isAnimal: {kind: "const", value: true}`
	require.NoError(t, writeFile(filepath.Join(dir, "a.cue"), `class: {`))
	require.NoError(t, writeFile(filepath.Join(dir, "b.cue"), good))
	require.NoError(t, writeFile(filepath.Join(dir, "c.cue"), `class: {`))

	result, errs := LoadSpecs(dir, LoadModeCollectAll)
	require.NotNil(t, result)
	assert.Len(t, errs, 2)
	require.Len(t, result.Classes, 1)
	assert.Equal(t, "Animal", result.Classes[0].Name)
	assert.Equal(t, 3, result.FileCount)

	result, errs = LoadSpecs(dir, LoadModeFailFast)
	require.NotNil(t, result)
	assert.Len(t, errs, 1)
	assert.Empty(t, result.Classes)
}

func TestLoadSpecs_NoClasses(t *testing.T) {
	_, errs := LoadSpecs(writeSpec(t, `other: 1`), LoadModeFailFast)
	require.Len(t, errs, 1)
	var loadErr *LoadError
	require.ErrorAs(t, errs[0], &loadErr)
	assert.Equal(t, ErrCodeNoClasses, loadErr.Code)
}
