package store

import (
	"github.com/roach88/querybind/internal/value"
)

// QueryUpdate is the payload of PushQuery.
//
// Only ComponentID and Query are always meaningful. Value, Label, ShowFilter
// and URLParams are carried for components that own a selected value; hidden
// companion pushes leave them unset.
type QueryUpdate struct {
	ComponentID string
	Query       value.Value
	Value       value.Value
	Label       string
	ShowFilter  *bool
	URLParams   *bool
}

// Payload returns the update in the object form recorded by the journal.
// Unset optional fields are omitted.
func (u QueryUpdate) Payload() value.Object {
	obj := value.Object{"query": value.OrNull(u.Query)}
	if u.Value != nil {
		obj["value"] = u.Value
	}
	if u.Label != "" {
		obj["label"] = value.String(u.Label)
	}
	if u.ShowFilter != nil {
		obj["showFilter"] = value.Bool(*u.ShowFilter)
	}
	if u.URLParams != nil {
		obj["URLParams"] = value.Bool(*u.URLParams)
	}
	return obj
}

// Snapshot is the read-side view of one component's state.
type Snapshot struct {
	Hits          value.Array
	Aggregations  value.Object
	SelectedValue value.Value
	IsLoading     bool
	Error         error
}

// Action names a dispatch kind.
type Action string

const (
	ActionRegister         Action = "register"
	ActionUnregister       Action = "unregister"
	ActionWatch            Action = "watch"
	ActionPushQuery        Action = "push_query"
	ActionSetQueryOptions  Action = "set_query_options"
	ActionSetQueryListener Action = "set_query_listener"
	ActionSetResults       Action = "set_results"
	ActionSetLoading       Action = "set_loading"
	ActionSetError         Action = "set_error"
	ActionSelect           Action = "select"
)

// DomainDispatch is the hash domain for dispatch ids.
const DomainDispatch = "querybind/dispatch/v1"

// Dispatch is one recorded store operation.
type Dispatch struct {
	ID          string       `json:"id"` // Content-addressed hash
	Session     string       `json:"session"`
	Seq         int64        `json:"seq"` // Logical clock
	Action      Action       `json:"action"`
	ComponentID string       `json:"component_id"`
	Payload     value.Object `json:"payload"`
}

// DispatchID computes the content-addressed id of a dispatch.
// The id is stable across runs given the same session, seq and payload.
func DispatchID(session string, seq int64, action Action, componentID string, payload value.Object) (string, error) {
	obj := value.Object{
		"session":      value.String(session),
		"seq":          value.Int(seq),
		"action":       value.String(string(action)),
		"component_id": value.String(componentID),
		"payload":      payloadOrEmpty(payload),
	}
	return value.Hash(DomainDispatch, obj)
}

func payloadOrEmpty(p value.Object) value.Object {
	if p == nil {
		return value.Object{}
	}
	return p
}
