// Package harness runs widget scenarios against an in-process store.
//
// A scenario compiles a directory of CUE widget definitions, drives the
// widgets through host steps (mount, update, refresh, unmount) and store
// steps (results, select, loading, error), then checks assertions against
// the recorded trace and the final view models.
//
// # Scenario Format
//
//	name: price_default
//	description: "Default query is pushed for the companion"
//	widgets: ../widgets
//	steps:
//	  - mount: price
//	  - results:
//	      widget: price
//	      hits: [{_id: "1", _source: {title: a}}]
//	  - unmount: price
//	assertions:
//	  - type: trace_contains
//	    action: push_query
//	    component: price__internal
//	    payload: {query: {match_all: {}}}
//	  - type: view
//	    widget: price
//	    expect: {loading: false}
//
// # Trace
//
// The trace interleaves store dispatches (register, watch, push_query, ...)
// with the host callbacks the widgets make (on_data, on_query_change,
// on_error). Both share one deterministic clock, so seq gives the exact
// order in which things happened.
//
// # Assertion Types
//
//   - trace_contains: an event with the action, optional component and a payload subset
//   - trace_order: first occurrences of "action:component" keys appear in order
//   - trace_count: exactly N events with the action and optional component
//   - view: fields of a component's projected view model
//
// # Deterministic Testing
//
// Every run uses a fresh store, a fresh store.Clock and a fixed
// session, so traces are byte-identical across runs and can be compared with
// golden files (see RunWithGolden).
package harness
