package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/querybind/internal/store"
)

func TestReplayMatchesJournal(t *testing.T) {
	dbPath := journaledDB(t)

	out, _, err := executeCommand(t, "replay", "--db", dbPath, searchAndPrice)
	require.NoError(t, err)
	assert.Contains(t, out, "Scenario: search_and_price")
	assert.Contains(t, out, "Journaled: 14")
	assert.Contains(t, out, "Replayed:  14")
	assert.Contains(t, out, "✓ Replay matches journal")
}

func TestReplayWithSession(t *testing.T) {
	dbPath := journaledDB(t, "--session", "s-1")

	out, _, err := executeCommand(t, "replay", "--db", dbPath, "--session", "s-1", "--format", "json", searchAndPrice)
	require.NoError(t, err)

	var resp struct {
		Status string       `json:"status"`
		Data   ReplayResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Deterministic)
	assert.Equal(t, "s-1", resp.Data.Session)
	assert.Nil(t, resp.Data.Mismatch)
}

func TestReplayDifferentScenario(t *testing.T) {
	dbPath := journaledDB(t)
	other := writeScenarioFile(t, t.TempDir(), "other", passingBody)

	out, _, err := executeCommand(t, "replay", "--db", dbPath, other)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ Replay differs at dispatch")
}

func TestReplayDifferentScenarioJSON(t *testing.T) {
	dbPath := journaledDB(t)
	other := writeScenarioFile(t, t.TempDir(), "other", passingBody)

	out, _, err := executeCommand(t, "replay", "--db", dbPath, "--format", "json", other)
	require.Error(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeReplayFailed, resp.Error.Code)
}

func TestReplayUnknownSession(t *testing.T) {
	dbPath := journaledDB(t)

	_, _, err := executeCommand(t, "replay", "--db", dbPath, "--session", "nope", searchAndPrice)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "no dispatches journaled for session nope")
}

func TestReplayDatabaseNotFound(t *testing.T) {
	_, _, err := executeCommand(t, "replay", "--db", filepath.Join(t.TempDir(), "missing.db"), searchAndPrice)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "database not found")
}

func TestCompareDispatches(t *testing.T) {
	a := store.Dispatch{Seq: 1, ID: "x", Action: store.ActionRegister, ComponentID: "search"}
	b := store.Dispatch{Seq: 2, ID: "y", Action: store.ActionWatch, ComponentID: "search"}
	c := store.Dispatch{Seq: 2, ID: "z", Action: store.ActionWatch, ComponentID: "search"}

	assert.Nil(t, compareDispatches([]store.Dispatch{a, b}, []store.Dispatch{a, b}))

	m := compareDispatches([]store.Dispatch{a, b}, []store.Dispatch{a, c})
	require.NotNil(t, m)
	assert.Equal(t, 1, m.Index)
	assert.Equal(t, "[2] watch:search y", m.Expected)
	assert.Equal(t, "[2] watch:search z", m.Actual)

	m = compareDispatches([]store.Dispatch{a, b}, []store.Dispatch{a})
	require.NotNil(t, m)
	assert.Equal(t, "end of replay", m.Actual)

	m = compareDispatches([]store.Dispatch{a}, []store.Dispatch{a, b})
	require.NotNil(t, m)
	assert.Equal(t, "end of journal", m.Expected)
}
