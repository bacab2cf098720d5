package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedDB stores two runs: run-1 constructs Duck("larry") at seq 1 and
// run-2 constructs Animal("moo") after it.
func seedDB(t *testing.T) string {
	t.Helper()
	db := filepath.Join(t.TempDir(), "classkit.db")

	_, err := runNewWithIDs(t, &NewOptions{RootOptions: jsonOpts(), Database: db, Args: `["larry"]`}, animalSpecs, "Duck", "run-1")
	require.NoError(t, err)
	_, err = runNewWithIDs(t, &NewOptions{RootOptions: jsonOpts(), Database: db, Args: `["moo"]`}, animalSpecs, "Animal", "run-2")
	require.NoError(t, err)
	return db
}

func TestTrace_ListRuns(t *testing.T) {
	db := seedDB(t)

	out, err := execute(t, NewTraceCommand(jsonOpts()), "--db", db)
	require.NoError(t, err)
	resp := decode[RunListing](t, out)
	require.Len(t, resp.Data.Runs, 2)
	assert.Equal(t, "run-1", resp.Data.Runs[0].ID)
	assert.Equal(t, int64(1), resp.Data.Runs[0].Seq)
	assert.Equal(t, "run-2", resp.Data.Runs[1].ID)
	assert.Equal(t, int64(9), resp.Data.Runs[1].Seq, "second run resumes after the stored seqs")

	out, err = execute(t, NewTraceCommand(jsonOpts()), "--db", db, "--class", "Animal")
	require.NoError(t, err)
	resp = decode[RunListing](t, out)
	require.Len(t, resp.Data.Runs, 1)
	assert.Equal(t, "run-2", resp.Data.Runs[0].ID)
}

func TestTrace_ListRunsText(t *testing.T) {
	db := seedDB(t)

	out, err := execute(t, NewTraceCommand(textOpts()), "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "Runs: 2")
	assert.Contains(t, out, `[1] run-1 Duck(["larry"])`)
}

func TestTrace_Run(t *testing.T) {
	db := seedDB(t)

	out, err := execute(t, NewTraceCommand(jsonOpts()), "--db", db, "--run", "run-1")
	require.NoError(t, err)

	resp := decode[TraceResult](t, out)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "Duck", resp.Data.Run.Class)
	require.Len(t, resp.Data.Timeline, 7)
	assert.Equal(t, int64(2), resp.Data.Timeline[0].Seq)
	assert.Equal(t, TraceStats{TotalEvents: 7, Constructors: 2, SuperCalls: 1, MaxDepth: 1}, resp.Data.Stats)
	assert.Len(t, resp.Data.Digest, 64)
	assert.Equal(t, "Duck", resp.Data.Snapshot.Class)
}

func TestTrace_RunText(t *testing.T) {
	db := seedDB(t)

	out, err := execute(t, NewTraceCommand(textOpts()), "--db", db, "--run", "run-1")
	require.NoError(t, err)
	assert.Contains(t, out, "Run: run-1")
	assert.Contains(t, out, "=== Timeline ===")
	assert.Contains(t, out, "  [4]   Animal begin\n")
	assert.Contains(t, out, "  Super Calls:  1")
}

func TestTrace_RunNotFound(t *testing.T) {
	db := seedDB(t)

	out, err := execute(t, NewTraceCommand(textOpts()), "--db", db, "--run", "nope")
	require.NoError(t, err)
	assert.Contains(t, out, "No run found: nope")
}

func TestTrace_DatabaseNotFound(t *testing.T) {
	out, err := execute(t, NewTraceCommand(jsonOpts()), "--db", filepath.Join(t.TempDir(), "missing.db"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	resp := decode[RunListing](t, out)
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
}

func TestTrace_RequiresDB(t *testing.T) {
	_, err := execute(t, NewTraceCommand(textOpts()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db")
}

func TestTrace_Where(t *testing.T) {
	db := seedDB(t)

	seqs := func(listing EventListing) []int64 {
		out := []int64{}
		for _, ev := range listing.Events {
			out = append(out, ev.Seq)
		}
		return out
	}

	out, err := execute(t, NewTraceCommand(jsonOpts()), "--db", db, "--where", "kind=constructor")
	require.NoError(t, err)
	resp := decode[EventListing](t, out)
	assert.Equal(t, []int64{5, 7, 11}, seqs(resp.Data))
	assert.Equal(t, []string{"kind=constructor"}, resp.Data.Where)

	out, err = execute(t, NewTraceCommand(jsonOpts()), "--db", db, "--run", "run-1", "--where", "kind=constructor")
	require.NoError(t, err)
	assert.Equal(t, []int64{5, 7}, seqs(decode[EventListing](t, out).Data))

	out, err = execute(t, NewTraceCommand(jsonOpts()), "--db", db, "--where", "depth>=1", "--where", "class=Animal")
	require.NoError(t, err)
	assert.Equal(t, []int64{4, 5, 6}, seqs(decode[EventListing](t, out).Data))
}

func TestTrace_WhereText(t *testing.T) {
	db := seedDB(t)

	out, err := execute(t, NewTraceCommand(textOpts()), "--db", db, "--where", "kind=explicit")
	require.NoError(t, err)
	assert.Contains(t, out, "Events: 1")
	assert.Contains(t, out, "  [3] run-1 depth=0 Duck explicit Animal\n")

	out, err = execute(t, NewTraceCommand(textOpts()), "--db", db, "--where", "class=Goose")
	require.NoError(t, err)
	assert.Contains(t, out, "No matching events.")
}

func TestTrace_WhereInvalid(t *testing.T) {
	db := seedDB(t)

	out, err := execute(t, NewTraceCommand(jsonOpts()), "--db", db, "--where", "depth=deep")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	resp := decode[EventListing](t, out)
	assert.Equal(t, ErrCodeQuery, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "depth needs an integer")
}
