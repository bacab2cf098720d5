package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

var animalSpecs = filepath.Join("testdata", "specs", "animals.cue")

// execute runs cmd with args and returns what it wrote to stdout.
func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// writeSpec writes content to classes.cue in a fresh directory.
func writeSpec(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "classes.cue")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// response is CLIResponse with a typed payload.
type response[T any] struct {
	Status string    `json:"status"`
	Data   T         `json:"data"`
	Error  *CLIError `json:"error"`
}

func decode[T any](t *testing.T, out string) response[T] {
	t.Helper()
	var resp response[T]
	require.NoError(t, json.Unmarshal([]byte(out), &resp), "output: %s", out)
	return resp
}

func jsonOpts() *RootOptions { return &RootOptions{Format: "json"} }
func textOpts() *RootOptions { return &RootOptions{Format: "text"} }

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0644)
}
