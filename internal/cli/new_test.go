package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/classkit/internal/engine"
	"github.com/roach88/classkit/internal/ir"
	"github.com/roach88/classkit/internal/store"
)

// runNewWithIDs runs the new command with fixed run ids.
func runNewWithIDs(t *testing.T, opts *NewOptions, specs, class string, ids ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewNewCommand(opts.RootOptions)
	cmd.SetOut(buf)
	opts.RunIDs = engine.NewFixedGenerator(ids...)
	if opts.Args == "" {
		opts.Args = "[]"
	}
	err := runNew(opts, specs, class, cmd)
	return buf.String(), err
}

func TestNew_JSON(t *testing.T) {
	cmd := NewNewCommand(jsonOpts())
	out, err := execute(t, cmd, animalSpecs, "Duck", "--args", `["larry"]`)
	require.NoError(t, err)

	resp := decode[NewResult](t, out)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "Duck", resp.Data.Class)
	assert.Equal(t, ir.IRArray{ir.IRString("larry")}, resp.Data.Args)
	assert.Len(t, resp.Data.Digest, 64)

	kinds := make([]string, len(resp.Data.Events))
	for i, ev := range resp.Data.Events {
		kinds[i] = eventLabel(ev)
	}
	assert.Equal(t, []string{
		"Duck begin",
		"Duck explicit Animal",
		"Animal begin",
		"Animal constructor",
		"Animal end",
		"Duck constructor",
		"Duck end",
	}, kinds)

	assert.Equal(t, ir.IRObject{"legs": ir.IRInt(2)}, resp.Data.Snapshot.Public)
	require.Len(t, resp.Data.Snapshot.Chain, 2)
	assert.Equal(t, ir.IRString("larry"), resp.Data.Snapshot.Chain[0].Private["name"])
	assert.Equal(t, ir.IRString("quack"), resp.Data.Snapshot.Chain[1].Protected["sound"])
}

func TestNew_Text(t *testing.T) {
	out, err := runNewWithIDs(t, &NewOptions{RootOptions: textOpts()}, animalSpecs, "Duck", "run-1")
	require.NoError(t, err)

	assert.Contains(t, out, "✓ Constructed Duck (run run-1)")
	assert.Contains(t, out, "  [3] Duck explicit Animal\n")
	assert.Contains(t, out, "  [4]   Animal begin\n")
	assert.Contains(t, out, `Public: {"legs":2}`)
	assert.Contains(t, out, "Digest: ")
}

func TestNew_PersistsRun(t *testing.T) {
	db := filepath.Join(t.TempDir(), "classkit.db")
	opts := &NewOptions{RootOptions: textOpts(), Database: db}
	out, err := runNewWithIDs(t, opts, animalSpecs, "Duck", "run-1")
	require.NoError(t, err)
	assert.Contains(t, out, "Stored in "+db)

	st, err := store.Open(db)
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	run, err := st.ReadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "Duck", run.Class)
	assert.Equal(t, int64(1), run.Seq)
	events, err := st.ReadRunEvents(ctx, "run-1")
	require.NoError(t, err)
	assert.Len(t, events, 7)
}

func TestNew_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		code string
	}{
		{"unknown class", []string{animalSpecs, "Goose"}, "UNKNOWN_CLASS"},
		{"float args", []string{animalSpecs, "Duck", "--args", "[1.5]"}, "INVALID_ARGUMENT"},
		{"args not array", []string{animalSpecs, "Duck", "--args", `{"name":"larry"}`}, "INVALID_ARGUMENT"},
		{"missing specs", []string{filepath.Join(t.TempDir(), "nope.cue"), "Duck"}, ErrCodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, NewNewCommand(jsonOpts()), tt.args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			resp := decode[NewResult](t, out)
			assert.Equal(t, "error", resp.Status)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}
