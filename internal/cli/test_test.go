package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeScenarioDir writes a one-scenario directory whose spec path is
// absolute, so it runs from anywhere.
func writeScenarioDir(t *testing.T, name, expect string) string {
	t.Helper()
	specs, err := filepath.Abs(animalSpecs)
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "scenarios")
	require.NoError(t, os.MkdirAll(dir, 0755))
	scenario := fmt.Sprintf(`name: %s
description: Duck quacks twice
specs:
  - %s
steps:
  - new: Duck
    args: [larry]
    as: larry
  - call: quack
    on: larry
    args: [2]
    expect: %s
`, name, specs, expect)
	require.NoError(t, writeFile(filepath.Join(dir, name+".yaml"), scenario))
	return dir
}

func TestTest_Testdata(t *testing.T) {
	out, err := execute(t, NewTestCommand(textOpts()), filepath.Join("testdata", "scenarios"))
	require.NoError(t, err)
	assert.Contains(t, out, "✓ quack")
	assert.Contains(t, out, "Test Summary: 1 passed, 0 failed, 1 total")
}

func TestTest_HarnessGoldens(t *testing.T) {
	harnessData := filepath.Join("..", "harness", "testdata")
	out, err := execute(t, NewTestCommand(jsonOpts()),
		filepath.Join(harnessData, "scenarios"),
		"--golden-dir", filepath.Join(harnessData, "golden"),
	)
	require.NoError(t, err)

	resp := decode[TestResult](t, out)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 2, resp.Data.Total)
	assert.Equal(t, 2, resp.Data.Passed)

	golden := map[string]string{}
	for _, s := range resp.Data.Scenarios {
		golden[s.Name] = s.Golden
	}
	assert.Equal(t, "match", golden["duck_quacks"])
	assert.Equal(t, "missing", golden["robo_duck"])
}

func TestTest_Filter(t *testing.T) {
	harnessData := filepath.Join("..", "harness", "testdata")
	out, err := execute(t, NewTestCommand(jsonOpts()),
		filepath.Join(harnessData, "scenarios"),
		"--filter", "robo*",
	)
	require.NoError(t, err)
	resp := decode[TestResult](t, out)
	require.Len(t, resp.Data.Scenarios, 1)
	assert.Equal(t, "robo_duck", resp.Data.Scenarios[0].Name)
}

func TestTest_UpdateThenCompare(t *testing.T) {
	dir := writeScenarioDir(t, "quack_twice", "quack quack")

	out, err := execute(t, NewTestCommand(textOpts()), dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ quack_twice (golden updated)")

	goldenPath := filepath.Join(dir, "golden", "quack_twice.golden")
	require.FileExists(t, goldenPath)

	out, err = execute(t, NewTestCommand(jsonOpts()), dir)
	require.NoError(t, err)
	resp := decode[TestResult](t, out)
	assert.Equal(t, "match", resp.Data.Scenarios[0].Golden)

	require.NoError(t, writeFile(goldenPath, `{"scenario_name":"quack_twice","trace":[]}`))
	out, err = execute(t, NewTestCommand(textOpts()), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "trace does not match golden file")
}

func TestTest_FailingScenario(t *testing.T) {
	dir := writeScenarioDir(t, "honk", "honk")

	out, err := execute(t, NewTestCommand(jsonOpts()), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp := decode[TestResult](t, out)
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, 1, resp.Data.Failed)
	require.Len(t, resp.Data.Scenarios, 1)
	assert.False(t, resp.Data.Scenarios[0].Pass)
	assert.NotEmpty(t, resp.Data.Scenarios[0].Errors)
}

func TestTest_InvalidScenarioFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, writeFile(filepath.Join(dir, "broken.yaml"), "name: broken\nbogus: true\n"))

	out, err := execute(t, NewTestCommand(textOpts()), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ broken.yaml")
	assert.Contains(t, out, "failed to load scenario")
}

func TestTest_NoScenarios(t *testing.T) {
	out, err := execute(t, NewTestCommand(textOpts()), t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")
}

func TestTest_DirectoryNotFound(t *testing.T) {
	_, err := execute(t, NewTestCommand(textOpts()), filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
