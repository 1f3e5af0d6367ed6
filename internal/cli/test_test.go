package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTestCommand_MissingDir(t *testing.T) {
	_, err := execute(t, "test", filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "scenarios directory not found")
}

func TestTestCommand_NoScenarios(t *testing.T) {
	out, err := execute(t, "test", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")
}

func TestTestCommand_AllPass(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "counter.yaml", passingScenario)

	out, err := execute(t, "test", dir)
	require.NoError(t, err)

	assert.Contains(t, out, "✓ counter")
	assert.Contains(t, out, "Test Summary: 1 passed, 0 failed, 1 total")
	assert.Contains(t, out, "✓ All scenarios passed")
}

func TestTestCommand_Failure(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "counter.yaml", passingScenario)
	writeFile(t, dir, "wrong.yaml", failingScenario)

	out, err := execute(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	assert.Contains(t, out, "✗ wrong")
	assert.Contains(t, out, "Test Summary: 1 passed, 1 failed, 2 total")
}

func TestTestCommand_InvalidScenarioCountsAsFailure(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "broken.yaml", "name: broken\n")

	out, err := execute(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ broken.yaml")
	assert.Contains(t, out, "failed to load scenario")
}

func TestTestCommand_UpdateWritesGolden(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "counter.yaml", passingScenario)

	out, err := execute(t, "test", dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "(golden updated)")

	golden, err := os.ReadFile(filepath.Join(dir, "golden", "counter.golden"))
	require.NoError(t, err)

	var snapshot map[string]any
	require.NoError(t, json.Unmarshal(golden, &snapshot))
	assert.Equal(t, "counter", snapshot["scenario_name"])
	assert.Equal(t, fpCounter1, snapshot["final_id"])
	assert.Equal(t, "cli-counter", snapshot["session"])

	// A second run compares against the file just written.
	_, err = execute(t, "test", dir)
	require.NoError(t, err)
}

func TestTestCommand_GoldenMismatch(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "counter.yaml", passingScenario)
	writeFile(t, dir, "golden/counter.golden", `{"scenario_name":"counter"}`)

	out, err := execute(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "trace does not match golden file")
}

func TestTestCommand_Filter(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "counter.yaml", passingScenario)
	writeFile(t, dir, "wrong.yaml", failingScenario)

	out, err := execute(t, "test", dir, "--filter", "count*")
	require.NoError(t, err)
	assert.Contains(t, out, "Test Summary: 1 passed, 0 failed, 1 total")
	assert.NotContains(t, out, "wrong")
}

func TestTestCommand_InvalidFilter(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "counter.yaml", passingScenario)

	_, err := execute(t, "test", dir, "--filter", "[")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTestCommand_JSONOutput(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "counter.yaml", passingScenario)
	writeFile(t, dir, "wrong.yaml", failingScenario)

	out, err := execute(t, "--format", "json", "test", dir)
	require.Error(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
		Error  *CLIError  `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))

	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeTestFailed, resp.Error.Code)
	assert.Equal(t, 2, resp.Data.Total)
	assert.Equal(t, 1, resp.Data.Passed)
	assert.Equal(t, 1, resp.Data.Failed)
}

func TestFindScenarioFiles_SkipsGoldenDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", passingScenario)
	writeFile(t, dir, "nested/b.yml", passingScenario)
	writeFile(t, dir, "golden/stale.yaml", passingScenario)
	writeFile(t, dir, "notes.txt", "ignored")

	files, err := findScenarioFiles(dir, "")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.yaml"),
		filepath.Join(dir, "nested", "b.yml"),
	}, files)
}

func TestGoldenFilePath(t *testing.T) {
	assert.Equal(t,
		filepath.Join("scenarios", "golden", "counter.golden"),
		goldenFilePath(filepath.Join("scenarios", "counter.yaml")))
}
