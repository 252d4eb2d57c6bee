package widget

import (
	"github.com/roach88/querybind/internal/react"
	"github.com/roach88/querybind/internal/store"
	"github.com/roach88/querybind/internal/value"
)

// Input is the full input set a custom query source is evaluated against.
type Input struct {
	Props    Props
	Snapshot store.Snapshot
}

// QueryFunc is a custom query source. It returns a query definition: an
// object whose "query" key holds the query and whose other keys are options.
// A nil definition means "no query".
type QueryFunc func(in Input) (value.Object, error)

// DefaultQueryFunc is a default query source. It takes no arguments and is
// re-evaluated on every update.
type DefaultQueryFunc func() (value.Object, error)

// RenderFunc turns a view model into host output.
type RenderFunc func(vm ViewModel) any

// Props is the host configuration of a widget.
type Props struct {
	// ID is the public component id. Required and immutable.
	ID string

	// React declares which widgets gate this widget's query. Nil watches
	// nothing.
	React react.Expr

	CustomQuery  QueryFunc
	DefaultQuery DefaultQueryFunc

	// Value and DefaultValue seed the initial selected value pushed with a
	// custom query, after any value already selected in the store.
	Value        value.Value
	DefaultValue value.Value

	FilterLabel string

	// ShowFilter defaults to true when nil.
	ShowFilter *bool
	URLParams  bool

	// OnData is called with the projected data when hits or aggregations
	// change. Only used without a custom query.
	OnData func(Data)

	OnQueryChange func(prev, next value.Value)
	OnError       func(err error)

	// Render takes precedence over Children.
	Render   RenderFunc
	Children RenderFunc
}

// Validate checks the required configuration.
func (p Props) Validate() error {
	if p.ID == "" {
		return &ConfigError{Field: "ID", Message: "widget id is required"}
	}
	return nil
}

// showFilter resolves the ShowFilter default.
func (p Props) showFilter() bool {
	if p.ShowFilter == nil {
		return true
	}
	return *p.ShowFilter
}

// initialValue is the first non-null of the store-selected value, Value and
// DefaultValue, or Null.
func (p Props) initialValue(snap store.Snapshot) value.Value {
	return value.FirstNonNull(snap.SelectedValue, p.Value, p.DefaultValue)
}

// SplitDefinition separates a query definition into its query and the
// remaining options. The query is Null when absent; options are nil when
// nothing else was set.
func SplitDefinition(def value.Object) (value.Value, value.Object) {
	if def == nil {
		return value.Null{}, nil
	}
	return value.OrNull(def["query"]), def.Without("query")
}
