package harness

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/querybind/internal/react"
	"github.com/roach88/querybind/internal/store"
	"github.com/roach88/querybind/internal/value"
	"github.com/roach88/querybind/internal/widget"
)

func sampleTrace() []TraceEvent {
	return []TraceEvent{
		{Seq: 1, Action: "register", Component: "price", Payload: value.Object{}},
		{Seq: 2, Action: "register", Component: "price__internal", Payload: value.Object{}},
		{Seq: 3, Action: "watch", Component: "price", Payload: value.Object{
			"react": value.Object{"and": value.Array{value.String("search"), value.String("price__internal")}},
		}},
		{Seq: 4, Action: "push_query", Component: "price__internal", Payload: value.Object{
			"query": value.Object{"match_all": value.Object{}},
		}},
		{Seq: 5, Action: "push_query", Component: "search", Payload: value.Object{
			"query": value.Object{"match": value.Object{"title": value.String("shoes")}},
			"value": value.String("shoes"),
			"label": value.String("Search"),
		}},
	}
}

func TestAssertTraceContains_Found(t *testing.T) {
	assertion := Assertion{
		Type:      AssertTraceContains,
		Action:    "push_query",
		Component: "search",
		Payload:   map[string]any{"value": "shoes"},
	}

	err := assertTraceContains(sampleTrace(), assertion)
	assert.NoError(t, err)
}

func TestAssertTraceContains_NotFound(t *testing.T) {
	assertion := Assertion{
		Type:   AssertTraceContains,
		Action: "set_results",
	}

	err := assertTraceContains(sampleTrace(), assertion)
	require.Error(t, err)

	var assertErr *AssertionError
	require.True(t, errors.As(err, &assertErr))
	assert.Equal(t, "trace_contains", assertErr.Type)
	assert.Contains(t, assertErr.Expected, "set_results")
	assert.Equal(t, "not found in trace", assertErr.Actual)
}

func TestAssertTraceContains_WrongPayload(t *testing.T) {
	assertion := Assertion{
		Type:      AssertTraceContains,
		Action:    "push_query",
		Component: "search",
		Payload:   map[string]any{"value": "boots"},
	}

	err := assertTraceContains(sampleTrace(), assertion)
	assert.Error(t, err)
}

func TestAssertTraceContains_WrongComponent(t *testing.T) {
	assertion := Assertion{
		Type:      AssertTraceContains,
		Action:    "watch",
		Component: "search",
	}

	err := assertTraceContains(sampleTrace(), assertion)
	assert.Error(t, err)
}

func TestAssertTraceContains_NestedSubset(t *testing.T) {
	assertion := Assertion{
		Type:   AssertTraceContains,
		Action: "push_query",
		Payload: map[string]any{
			"query": map[string]any{"match": map[string]any{"title": "shoes"}},
		},
	}

	err := assertTraceContains(sampleTrace(), assertion)
	assert.NoError(t, err)
}

func TestAssertTraceContains_ArraysCompareWhole(t *testing.T) {
	partial := Assertion{
		Type:    AssertTraceContains,
		Action:  "watch",
		Payload: map[string]any{"react": map[string]any{"and": []any{"search"}}},
	}
	assert.Error(t, assertTraceContains(sampleTrace(), partial))

	full := Assertion{
		Type:    AssertTraceContains,
		Action:  "watch",
		Payload: map[string]any{"react": map[string]any{"and": []any{"search", "price__internal"}}},
	}
	assert.NoError(t, assertTraceContains(sampleTrace(), full))
}

func TestAssertTraceOrder_Correct(t *testing.T) {
	assertion := Assertion{
		Type:   AssertTraceOrder,
		Events: []string{"register:price", "watch:price", "push_query:price__internal"},
	}

	err := assertTraceOrder(sampleTrace(), assertion)
	assert.NoError(t, err)
}

func TestAssertTraceOrder_WrongOrder(t *testing.T) {
	assertion := Assertion{
		Type:   AssertTraceOrder,
		Events: []string{"watch:price", "register:price"},
	}

	err := assertTraceOrder(sampleTrace(), assertion)
	require.Error(t, err)

	var assertErr *AssertionError
	require.True(t, errors.As(err, &assertErr))
	assert.Contains(t, assertErr.Actual, "should be before")
}

func TestAssertTraceOrder_MissingEvent(t *testing.T) {
	assertion := Assertion{
		Type:   AssertTraceOrder,
		Events: []string{"register:price", "unregister:price"},
	}

	err := assertTraceOrder(sampleTrace(), assertion)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing event: unregister:price")
}

func TestAssertTraceCount_Exact(t *testing.T) {
	assertion := Assertion{Type: AssertTraceCount, Action: "register", Count: 2}
	assert.NoError(t, assertTraceCount(sampleTrace(), assertion))
}

func TestAssertTraceCount_WithComponent(t *testing.T) {
	assertion := Assertion{Type: AssertTraceCount, Action: "push_query", Component: "search", Count: 1}
	assert.NoError(t, assertTraceCount(sampleTrace(), assertion))
}

func TestAssertTraceCount_Mismatch(t *testing.T) {
	assertion := Assertion{Type: AssertTraceCount, Action: "register", Count: 3}

	err := assertTraceCount(sampleTrace(), assertion)
	require.Error(t, err)

	var assertErr *AssertionError
	require.True(t, errors.As(err, &assertErr))
	assert.Equal(t, "3 occurrences of register", assertErr.Expected)
	assert.Equal(t, "2 occurrences", assertErr.Actual)
}

func TestAssertTraceCount_Zero(t *testing.T) {
	assertion := Assertion{Type: AssertTraceCount, Action: "unregister", Count: 0}
	assert.NoError(t, assertTraceCount(sampleTrace(), assertion))
}

func TestAssertView(t *testing.T) {
	st := store.New()
	st.Register("list")
	st.Watch("list", react.Ref("search"))
	st.SetResults("list", value.Array{
		value.Object{"_id": value.String("1"), "_source": value.Object{"title": value.String("a")}},
	}, nil)
	st.Select("list", value.String("a"))

	pass := Assertion{
		Type:   AssertView,
		Widget: "list",
		Expect: map[string]any{
			"data":         []any{map[string]any{"_id": "1", "title": "a"}},
			"aggregations": nil,
			"error":        nil,
			"loading":      false,
			"value":        "a",
		},
	}
	assert.NoError(t, assertView(st, pass))

	fail := Assertion{Type: AssertView, Widget: "list", Expect: map[string]any{"value": "b"}}
	err := assertView(st, fail)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `list.value = "b"`)
}

func TestAssertView_UnknownField(t *testing.T) {
	st := store.New()
	err := assertView(st, Assertion{Type: AssertView, Widget: "list", Expect: map[string]any{"hits": nil}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown field "hits"`)
}

func TestViewObject_Error(t *testing.T) {
	st := store.New()
	st.Register("list")
	st.SetError("list", errors.New("boom"))

	view := ViewObject(widget.Project(st.Snapshot("list"), nil))
	assert.Equal(t, value.String("boom"), view["error"])
	assert.Equal(t, value.Bool(false), view["loading"])
	assert.Equal(t, value.Null{}, view["value"])
}

func TestEvaluateAssertions_AllPass(t *testing.T) {
	assertions := []Assertion{
		{Type: AssertTraceContains, Action: "register", Component: "price"},
		{Type: AssertTraceOrder, Events: []string{"register:price", "push_query:search"}},
		{Type: AssertTraceCount, Action: "watch", Count: 1},
	}

	result := &Result{Trace: sampleTrace()}
	assert.Empty(t, EvaluateAssertions(result, assertions, store.New()))
}

func TestEvaluateAssertions_SomeFail(t *testing.T) {
	assertions := []Assertion{
		{Type: AssertTraceContains, Action: "register"},
		{Type: AssertTraceCount, Action: "register", Count: 5},
		{Type: AssertTraceContains, Action: "set_error"},
	}

	result := &Result{Trace: sampleTrace()}
	assert.Len(t, EvaluateAssertions(result, assertions, store.New()), 2)
}

func TestEvaluateAssertions_UnknownType(t *testing.T) {
	result := &Result{Trace: sampleTrace()}
	errs := EvaluateAssertions(result, []Assertion{{Type: "final_state"}}, nil)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], `unknown assertion type "final_state"`)
}

func TestEvaluateAssertions_ViewWithoutStore(t *testing.T) {
	result := &Result{}
	errs := EvaluateAssertions(result, []Assertion{{Type: AssertView, Widget: "list", Expect: map[string]any{"loading": false}}}, nil)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "view requires a store")
}

func TestAssertionError_ErrorFormat(t *testing.T) {
	err := &AssertionError{
		Type:     "trace_count",
		Expected: "2 occurrences of register",
		Actual:   "1 occurrences",
		Trace:    sampleTrace()[:1],
	}

	msg := err.Error()
	assert.Contains(t, msg, "Assertion failed: trace_count")
	assert.Contains(t, msg, "Expected: 2 occurrences of register")
	assert.Contains(t, msg, "Actual: 1 occurrences")
	assert.Contains(t, msg, "[1] register:price {}")
}
