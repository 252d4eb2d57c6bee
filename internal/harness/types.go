package harness

import (
	"github.com/roach88/querybind/internal/store"
	"github.com/roach88/querybind/internal/value"
)

// Callback event actions recorded in the trace next to store dispatches.
const (
	EventOnData        = "on_data"
	EventOnQueryChange = "on_query_change"
	EventOnError       = "on_error"
)

// TraceEvent is one entry of a scenario trace: either a store dispatch or a
// host callback made by a widget.
type TraceEvent struct {
	Seq       int64        `json:"seq"`
	Action    string       `json:"action"`
	Component string       `json:"component"`
	Payload   value.Object `json:"payload"`
}

// Key renders the event as "action:component", the form trace_order uses.
func (e TraceEvent) Key() string {
	return e.Action + ":" + e.Component
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every step ran as expected and every assertion held.
	Pass bool `json:"pass"`

	// Session is the store session the dispatches were recorded under.
	Session string `json:"session"`

	// Trace holds dispatches and callback events in seq order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains step and assertion failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult(session string) *Result {
	return &Result{
		Pass:    true,
		Session: session,
		Trace:   []TraceEvent{},
		Errors:  []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddDispatch appends a store dispatch to the trace.
func (r *Result) AddDispatch(d store.Dispatch) {
	r.Trace = append(r.Trace, TraceEvent{
		Seq:       d.Seq,
		Action:    string(d.Action),
		Component: d.ComponentID,
		Payload:   d.Payload,
	})
}

// AddEvent appends a callback event to the trace.
func (r *Result) AddEvent(seq int64, action, component string, payload value.Object) {
	if payload == nil {
		payload = value.Object{}
	}
	r.Trace = append(r.Trace, TraceEvent{
		Seq:       seq,
		Action:    action,
		Component: component,
		Payload:   payload,
	})
}
