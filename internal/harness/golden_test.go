package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/querybind/internal/value"
)

func TestRunWithGolden_SearchAndPrice(t *testing.T) {
	scenario, err := LoadScenario("../../testdata/scenarios/search_and_price.yaml")
	require.NoError(t, err)

	// Regenerate with:
	//   go test ./internal/harness -run TestRunWithGolden_SearchAndPrice -update
	result, err := RunWithGolden(t, scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestAssertGolden_FromResult(t *testing.T) {
	scenario, err := LoadScenario("../../testdata/scenarios/search_and_price.yaml")
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)

	AssertGolden(t, "search_and_price", result)
}

func TestFormatTrace(t *testing.T) {
	trace := []TraceEvent{
		{Seq: 1, Action: "register", Component: "price", Payload: value.Object{}},
		{Seq: 2, Action: "on_query_change", Component: "price", Payload: value.Object{
			"prev": value.Null{},
			"next": value.Object{"match_all": value.Object{}},
		}},
	}

	want := "1 register price {}\n" +
		`2 on_query_change price {"next":{"match_all":{}},"prev":null}` + "\n"
	assert.Equal(t, want, string(FormatTrace(trace)))
}

func TestFormatTrace_Empty(t *testing.T) {
	assert.Empty(t, FormatTrace(nil))
}

func TestFormatTrace_Deterministic(t *testing.T) {
	scenario, err := LoadScenario("../../testdata/scenarios/search_and_price.yaml")
	require.NoError(t, err)

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	assert.Equal(t, string(FormatTrace(first.Trace)), string(FormatTrace(second.Trace)))
}
