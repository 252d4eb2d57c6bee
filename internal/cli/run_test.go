package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/querybind/internal/harness"
	"github.com/roach88/querybind/internal/store"
	"github.com/roach88/querybind/internal/testutil"
)

const searchAndPrice = "../../testdata/scenarios/search_and_price.yaml"

// writeScenarioFile writes a scenario into dir pointing at the shared test
// widgets and returns its path.
func writeScenarioFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	widgets, err := filepath.Abs(testWidgetsDir)
	require.NoError(t, err)

	src := fmt.Sprintf("name: %s\ndescription: test scenario\nwidgets: %s\n%s", name, widgets, body)
	path := filepath.Join(dir, name+".yaml")
	require.NoError(t, os.WriteFile(path, []byte(src), 0644))
	return path
}

const failingBody = `steps:
  - mount: search
assertions:
  - type: trace_count
    action: register
    component: search
    count: 5
`

func TestRunScenario(t *testing.T) {
	out, _, err := executeCommand(t, "run", searchAndPrice)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ search_and_price (session test-session-default, 16 events)")
}

func TestRunScenarioWithTrace(t *testing.T) {
	out, _, err := executeCommand(t, "run", "--trace", searchAndPrice)
	require.NoError(t, err)
	assert.Contains(t, out, "1 register search {}\n")
	assert.Contains(t, out, "16 unregister search {}\n")
}

func TestRunScenarioJSON(t *testing.T) {
	out, _, err := executeCommand(t, "run", "--format", "json", "--trace", searchAndPrice)
	require.NoError(t, err)

	var resp struct {
		Status string    `json:"status"`
		Data   RunResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Pass)
	assert.Equal(t, "search_and_price", resp.Data.Scenario)
	assert.Equal(t, 16, resp.Data.Events)
	require.Len(t, resp.Data.Trace, 16)
	assert.Equal(t, "register", resp.Data.Trace[0].Action)
}

func TestRunSessionFlag(t *testing.T) {
	out, _, err := executeCommand(t, "run", "--session", "s-1", searchAndPrice)
	require.NoError(t, err)
	assert.Contains(t, out, "(session s-1, 16 events)")
}

func TestRunFailingScenario(t *testing.T) {
	path := writeScenarioFile(t, t.TempDir(), "failing", failingBody)

	out, _, err := executeCommand(t, "run", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ failing")
	assert.Contains(t, out, "Assertion failed: trace_count")
}

func TestRunFailingScenarioJSON(t *testing.T) {
	path := writeScenarioFile(t, t.TempDir(), "failing", failingBody)

	out, _, err := executeCommand(t, "run", "--format", "json", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeTestFailed, resp.Error.Code)
}

func TestRunMissingScenario(t *testing.T) {
	_, _, err := executeCommand(t, "run", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to load scenario")
}

func TestRunInvalidWidgets(t *testing.T) {
	dir := writeWidgets(t, `
package widgets

widget: bad: react: 5
`)
	path := filepath.Join(t.TempDir(), "bad.yaml")
	src := fmt.Sprintf(`name: bad
description: broken widgets
widgets: %s
steps:
  - mount: bad
assertions:
  - type: trace_count
    action: register
    count: 1
`, dir)
	require.NoError(t, os.WriteFile(path, []byte(src), 0644))

	_, _, err := executeCommand(t, "run", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to run scenario")
}

func TestRunJournalsToDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "journal.db")

	_, _, err := executeCommand(t, "run", "--db", dbPath, searchAndPrice)
	require.NoError(t, err)

	journal, err := store.Open(dbPath)
	require.NoError(t, err)
	defer journal.Close()

	ctx := context.Background()
	sessions, err := journal.Sessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, testutil.DefaultSession, sessions[0].ID)
	assert.Equal(t, "search_and_price", sessions[0].Label)

	// The trace also holds on_query_change and on_data callbacks, which are
	// not store dispatches.
	dispatches, err := journal.ReadSession(ctx, testutil.DefaultSession)
	require.NoError(t, err)
	assert.Len(t, dispatches, 14)
	assert.Equal(t, store.ActionRegister, dispatches[0].Action)
	assert.Equal(t, "search", dispatches[0].ComponentID)
}

func TestRunJournalIsIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "journal.db")

	for i := 0; i < 2; i++ {
		_, _, err := executeCommand(t, "run", "--db", dbPath, searchAndPrice)
		require.NoError(t, err)
	}

	journal, err := store.Open(dbPath)
	require.NoError(t, err)
	defer journal.Close()

	dispatches, err := journal.ReadSession(context.Background(), testutil.DefaultSession)
	require.NoError(t, err)
	assert.Len(t, dispatches, 14)
}

func TestResolveSession(t *testing.T) {
	tests := []struct {
		name     string
		flag     string
		scenario string
		want     string
	}{
		{"flag wins", "flag", "scenario", "flag"},
		{"scenario session", "", "scenario", "scenario"},
		{"default", "", "", testutil.DefaultSession},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resolveSession(tt.flag, &harness.Scenario{Session: tt.scenario})
			assert.Equal(t, tt.want, got)
		})
	}
}
