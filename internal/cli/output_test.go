package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/classkit/internal/engine"
	"github.com/roach88/classkit/internal/ir"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Success(map[string]string{"result": "success"}))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Error("E001", "compilation failed", map[string]int{"line": 42}))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E001", resp.Error.Code)
	assert.Equal(t, "compilation failed", resp.Error.Message)
	assert.NotNil(t, resp.Error.Details)
}

func TestOutputFormatter_TextError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf, Verbose: true}

	require.NoError(t, formatter.Error("E005", "specs path not found", "details here"))
	assert.Contains(t, buf.String(), "Error [E005]: specs path not found")
	assert.Contains(t, buf.String(), "Details: details here")
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: out, ErrWriter: errOut}

	formatter.VerboseLog("hidden %d", 1)
	assert.Empty(t, errOut.String())

	formatter.Verbose = true
	formatter.VerboseLog("shown %d", 2)
	assert.Equal(t, "shown 2\n", errOut.String())
	assert.Empty(t, out.String(), "verbose output never corrupts stdout")
}

func TestOutputFormatter_Fail(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
	}{
		{"plain error keeps given code", errors.New("boom"), ErrCodeGeneric},
		{"runtime error code wins", WrapExitError(ExitCommandError, "x", &engine.RuntimeError{Code: engine.ErrCodeUnknownClass, Message: "no class"}), "UNKNOWN_CLASS"},
		{"load error code wins", &LoadError{Code: ErrCodeNoFiles, Message: "no files"}, ErrCodeNoFiles},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			formatter := &OutputFormatter{Format: "json", Writer: buf}

			err := formatter.Fail(ExitCommandError, ErrCodeGeneric, tt.err)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.ErrorIs(t, err, tt.err)

			var resp CLIResponse
			require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad path")))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
	assert.Equal(t, ExitCommandError, GetExitCode(WrapExitError(ExitCommandError, "wrapped", errors.New("cause"))))
}

func TestParseArgs(t *testing.T) {
	args, err := parseArgs("args", `["larry", 2, true, null, {"k": [1]}]`)
	require.NoError(t, err)
	assert.Equal(t, ir.IRArray{
		ir.IRString("larry"),
		ir.IRInt(2),
		ir.IRBool(true),
		ir.IRNull{},
		ir.IRObject{"k": ir.IRArray{ir.IRInt(1)}},
	}, args)

	args, err = parseArgs("args", "")
	require.NoError(t, err)
	assert.Empty(t, args)

	_, err = parseArgs("args", "[1.5]")
	assert.Error(t, err)

	_, err = parseArgs("ctor-args", `"larry"`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--ctor-args")

	_, err = parseArgs("args", "[")
	assert.Error(t, err)
}

func TestRenderValue(t *testing.T) {
	assert.Equal(t, "null", renderValue(nil))
	assert.Equal(t, `"duck"`, renderValue(ir.IRString("duck")))
	assert.Equal(t, `{"a":1,"b":[true]}`, renderValue(ir.IRObject{"b": ir.IRArray{ir.IRBool(true)}, "a": ir.IRInt(1)}))
}
