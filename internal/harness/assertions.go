package harness

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/querybind/internal/store"
	"github.com/roach88/querybind/internal/value"
	"github.com/roach88/querybind/internal/widget"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %s\n", event.Seq, event.Key(), value.Text(event.Payload))
		}
	}

	return buf.String()
}

// matches reports whether event has the assertion's action and, when one is
// given, its component.
func matches(event TraceEvent, a Assertion) bool {
	if event.Action != a.Action {
		return false
	}
	return a.Component == "" || event.Component == a.Component
}

func describe(a Assertion) string {
	if a.Component == "" {
		return a.Action
	}
	return a.Action + ":" + a.Component
}

// assertTraceContains checks that some event matches the action, component
// and payload subset.
func assertTraceContains(trace []TraceEvent, a Assertion) error {
	expected, err := value.FromAny(a.Payload)
	if err != nil {
		return fmt.Errorf("trace_contains payload: %w", err)
	}
	want, _ := expected.(value.Object)

	for _, event := range trace {
		if matches(event, a) && subset(event.Payload, want) {
			return nil
		}
	}

	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("%s with payload %s", describe(a), value.Text(want)),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks that the first occurrences of the listed
// "action:component" keys appear in order. Intervening events are allowed.
func assertTraceOrder(trace []TraceEvent, a Assertion) error {
	positions := make(map[string]int)
	for i, event := range trace {
		key := event.Key()
		if _, seen := positions[key]; !seen {
			positions[key] = i + 1 // 1-indexed for readability
		}
	}

	for _, key := range a.Events {
		if positions[key] == 0 {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all events present: %v", a.Events),
				Actual:   fmt.Sprintf("missing event: %s", key),
				Trace:    trace,
			}
		}
	}

	for i := 1; i < len(a.Events); i++ {
		prev, curr := a.Events[i-1], a.Events[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("events in order: %v", a.Events),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}

	return nil
}

// assertTraceCount checks that exactly Count events match.
func assertTraceCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, event := range trace {
		if matches(event, a) {
			count++
		}
	}

	if count != a.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", a.Count, describe(a)),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertView projects the component's final store state and checks the
// expected fields.
func assertView(st *store.Store, a Assertion) error {
	view := ViewObject(widget.Project(st.Snapshot(a.Widget), nil))

	keys := make([]string, 0, len(a.Expect))
	for k := range a.Expect {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		actual, ok := view[key]
		if !ok {
			return fmt.Errorf("view assertion: unknown field %q", key)
		}
		expected, err := value.FromAny(a.Expect[key])
		if err != nil {
			return fmt.Errorf("view assertion %s: %w", key, err)
		}
		if !value.Equal(expected, actual) {
			return &AssertionError{
				Type:     AssertView,
				Expected: fmt.Sprintf("%s.%s = %s", a.Widget, key, value.Text(expected)),
				Actual:   value.Text(actual),
			}
		}
	}
	return nil
}

// ViewObject renders a view model as an object with the keys view
// assertions use: data, raw_data, aggregations, error, loading, value.
func ViewObject(vm widget.ViewModel) value.Object {
	var errValue value.Value = value.Null{}
	if vm.Error != nil {
		errValue = value.String(vm.Error.Error())
	}
	return value.Object{
		"data":         vm.Data.Data,
		"raw_data":     vm.RawData,
		"aggregations": objectOrNull(vm.Aggregations),
		"error":        errValue,
		"loading":      value.Bool(vm.Loading),
		"value":        value.OrNull(vm.Value),
	}
}

// subset reports whether actual contains every key of expected with an equal
// value. Nested objects are compared as subsets too.
func subset(actual, expected value.Object) bool {
	for key, want := range expected {
		got, ok := actual[key]
		if !ok {
			return false
		}
		wantObj, wantIsObj := want.(value.Object)
		gotObj, gotIsObj := got.(value.Object)
		if wantIsObj && gotIsObj {
			if !subset(gotObj, wantObj) {
				return false
			}
			continue
		}
		if !value.Equal(got, want) {
			return false
		}
	}
	return true
}

// EvaluateAssertions evaluates all assertions against the result and the
// final store state. Returns a message for each failed assertion.
func EvaluateAssertions(result *Result, assertions []Assertion, st *store.Store) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertView:
			if st == nil {
				err = fmt.Errorf("assertion[%d]: view requires a store", i)
			} else {
				err = assertView(st, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
