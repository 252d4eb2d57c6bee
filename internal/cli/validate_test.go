package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testWidgetsDir = "../../testdata/widgets"

func writeWidgets(t *testing.T, src string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "widgets.cue"), []byte(src), 0644))
	return dir
}

func executeCommand(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestValidateValidWidgets(t *testing.T) {
	out, _, err := executeCommand(t, "validate", testWidgetsDir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ All widgets valid (3)")
}

func TestValidateValidWidgetsJSON(t *testing.T) {
	out, _, err := executeCommand(t, "validate", "--format", "json", testWidgetsDir)
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	assert.Equal(t, []string{"price", "results", "search"}, resp.Data.Widgets)
	assert.Empty(t, resp.Data.Warnings)
}

func TestValidateNonExistentDirectory(t *testing.T) {
	out, _, err := executeCommand(t, "validate", "/nonexistent/directory/path")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "E005")
	assert.Contains(t, out, "not found")
}

func TestValidateEmptyDirectory(t *testing.T) {
	_, _, err := executeCommand(t, "validate", t.TempDir())
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "E003")
}

func TestValidateInvalidWidget(t *testing.T) {
	dir := writeWidgets(t, `
package widgets

widget: {
	bad: react: 5
	typo: colour: "red"
	good: filterLabel: "Good"
}
`)

	out, _, err := executeCommand(t, "validate", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "validation failed with 2 error(s)")

	assert.Contains(t, out, "✗ Validation failed")
	assert.Contains(t, out, "E201")
	assert.Contains(t, out, "E204")
	assert.Contains(t, out, "widgets.cue:")
}

func TestValidateInvalidWidgetJSON(t *testing.T) {
	dir := writeWidgets(t, `
package widgets

widget: bad: defaultQuery: "not an object"
`)

	out, _, err := executeCommand(t, "validate", "--format", "json", dir)
	require.Error(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
		Error  *CLIError        `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.False(t, resp.Data.Valid)
	require.Len(t, resp.Data.Errors, 1)
	assert.Equal(t, "E202", resp.Data.Errors[0].Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E202", resp.Error.Code)
}

func TestValidateWarningsDoNotFail(t *testing.T) {
	dir := writeWidgets(t, `
package widgets

widget: {
	list: react: and: ["list", "elsewhere"]
}
`)

	out, _, err := executeCommand(t, "validate", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "warning: list reacts to elsewhere, which is not defined here")
	assert.Contains(t, out, "warning: list reacts to itself")
	assert.Contains(t, out, "✓ All widgets valid (1)")
}

func TestValidateNoWidgets(t *testing.T) {
	dir := writeWidgets(t, `
package widgets

other: 1
`)

	out, _, err := executeCommand(t, "validate", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "E205")
}

func TestValidateVerboseOutput(t *testing.T) {
	out, errOut, err := executeCommand(t, "validate", "--verbose", testWidgetsDir)
	require.NoError(t, err)

	assert.Contains(t, errOut, "Found 1 CUE file(s)")
	assert.Contains(t, errOut, "Validated widget: price")
	assert.NotContains(t, out, "Validated widget")
}

func TestValidateInvalidFormat(t *testing.T) {
	_, _, err := executeCommand(t, "validate", "--format", "yaml", testWidgetsDir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid format "yaml"`)
}
