package harness

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/querybind/internal/value"
)

// FormatTrace renders a trace one event per line:
//
//	<seq> <action> <component> <canonical payload>
//
// Dispatch ids are left out; they are derived from the session and seq and
// add nothing a reviewer can check by eye.
func FormatTrace(trace []TraceEvent) []byte {
	var buf bytes.Buffer
	for _, event := range trace {
		fmt.Fprintf(&buf, "%d %s %s %s\n", event.Seq, event.Action, event.Component, value.Text(event.Payload))
	}
	return buf.Bytes()
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if trace doesn't match golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	AssertGolden(t, scenario.Name, result)
	return result, nil
}

// AssertGolden compares the given result's trace against a golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, FormatTrace(result.Trace))
}
