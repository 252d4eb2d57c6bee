package widget

import (
	"log/slog"

	"github.com/roach88/querybind/internal/store"
	"github.com/roach88/querybind/internal/value"
)

// synchronizer pushes a widget's queries and decides when a push is needed.
//
// INVARIANTS:
//   - Companion pushes happen only when the widget has a companion and had
//     no custom query at construction.
//   - defaultDef is the last default definition pushed for the companion;
//     an equal fresh evaluation pushes nothing.
//   - hits/aggs are the last result set observed by the update step.
type synchronizer struct {
	store     Store
	id        string
	companion string

	defaultDef value.Value // value.Null{} until the first companion push
	hits       value.Array
	aggs       value.Object
}

// construct runs the construction-time step: evaluate the default query once
// and push it for the companion.
func (s *synchronizer) construct(p Props) error {
	if s.companion == "" || p.CustomQuery != nil || p.DefaultQuery == nil {
		return nil
	}
	def, err := p.DefaultQuery()
	if err != nil {
		return &QuerySourceError{WidgetID: s.id, Source: "defaultQuery", Err: err}
	}
	s.pushDefault(def)
	return nil
}

// activate runs the first-activation step: evaluate the custom query against
// the full input set and push it for the widget itself.
func (s *synchronizer) activate(p Props) error {
	if p.CustomQuery == nil {
		return nil
	}
	snap := s.store.Snapshot(s.id)
	def, err := p.CustomQuery(Input{Props: p, Snapshot: snap})
	if err != nil {
		return &QuerySourceError{WidgetID: s.id, Source: "customQuery", Err: err}
	}
	query, _ := SplitDefinition(def)
	s.push(p, query, p.initialValue(snap))
	return nil
}

// observe records the current result set as the baseline for change
// detection.
func (s *synchronizer) observe(snap store.Snapshot) {
	s.hits = snap.Hits
	s.aggs = snap.Aggregations
}

// update runs the update step. Without a custom query it reports result-set
// changes to onData and re-pushes a changed default query for the companion.
func (s *synchronizer) update(p Props, custom bool, onData func(Data)) error {
	if custom {
		return nil
	}

	snap := s.store.Snapshot(s.id)
	changed := !value.Equal(s.hits, snap.Hits) || !value.Equal(objectOrNull(s.aggs), objectOrNull(snap.Aggregations))
	s.observe(snap)
	if changed && onData != nil {
		onData(projectData(snap))
	}

	if s.companion == "" || p.DefaultQuery == nil {
		return nil
	}
	def, err := p.DefaultQuery()
	if err != nil {
		return &QuerySourceError{WidgetID: s.id, Source: "defaultQuery", Err: err}
	}
	if value.Equal(s.defaultDef, objectOrNull(def)) {
		return nil
	}
	s.pushDefault(def)
	return nil
}

// pushDefault sends a default definition to the companion: options first
// (non-executing) when there are any, then the query. The snapshot is
// recorded before dispatching so a re-entrant update sees it.
func (s *synchronizer) pushDefault(def value.Object) {
	s.defaultDef = objectOrNull(def)
	query, options := SplitDefinition(def)

	slog.Debug("pushing default query",
		"widget", s.id,
		"companion", s.companion,
		"options", len(options),
	)

	if len(options) > 0 {
		s.store.SetQueryOptions(s.companion, options, false)
	}
	s.store.PushQuery(store.QueryUpdate{
		ComponentID: s.companion,
		Query:       query,
	})
}

// push sends a query for the widget itself with its filter configuration.
func (s *synchronizer) push(p Props, query, selected value.Value) {
	showFilter := p.showFilter()
	urlParams := p.URLParams
	s.store.PushQuery(store.QueryUpdate{
		ComponentID: s.id,
		Query:       value.OrNull(query),
		Value:       value.OrNull(selected),
		Label:       p.FilterLabel,
		ShowFilter:  &showFilter,
		URLParams:   &urlParams,
	})
}

// objectOrNull keeps a nil object distinct from an empty one, which
// canonical encoding would otherwise treat alike.
func objectOrNull(o value.Object) value.Value {
	if o == nil {
		return value.Null{}
	}
	return o
}
