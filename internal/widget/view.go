package widget

import (
	"log/slog"

	"github.com/roach88/querybind/internal/store"
	"github.com/roach88/querybind/internal/value"
)

// Data is the result set handed to OnData and to renderers.
type Data struct {
	// Data holds the parsed hits.
	Data value.Array

	// RawData holds the hits as the store returned them.
	RawData value.Array

	Aggregations value.Object
}

// ViewModel is what a renderer receives.
type ViewModel struct {
	Data
	Error   error
	Loading bool
	Value   value.Value

	// SetQuery pushes a query for the widget. See Widget.SetQuery.
	SetQuery func(u store.QueryUpdate)
}

// RendererKind is the rendering strategy a widget resolved.
type RendererKind int

const (
	NoRenderer RendererKind = iota
	FunctionRenderer
	ChildFunctionRenderer
)

// String returns the kind name.
func (k RendererKind) String() string {
	switch k {
	case FunctionRenderer:
		return "render"
	case ChildFunctionRenderer:
		return "children"
	default:
		return "none"
	}
}

// ResolveRenderer picks the rendering strategy of p. Render wins over
// Children.
func ResolveRenderer(p Props) (RendererKind, RenderFunc) {
	switch {
	case p.Render != nil:
		return FunctionRenderer, p.Render
	case p.Children != nil:
		return ChildFunctionRenderer, p.Children
	default:
		return NoRenderer, nil
	}
}

// Project builds the view model for snap. It is pure.
func Project(snap store.Snapshot, setQuery func(store.QueryUpdate)) ViewModel {
	return ViewModel{
		Data:     projectData(snap),
		Error:    snap.Error,
		Loading:  snap.IsLoading,
		Value:    snap.SelectedValue,
		SetQuery: setQuery,
	}
}

func projectData(snap store.Snapshot) Data {
	return Data{
		Data:         ParseHits(snap.Hits),
		RawData:      snap.Hits,
		Aggregations: snap.Aggregations,
	}
}

// ParseHits flattens search hits into records: each hit's _source fields
// plus _id, _index and _score, with highlight fragments overlaid on the
// source fields they belong to. Hits without a _source object are passed
// through unchanged. Always returns a non-nil array.
func ParseHits(hits value.Array) value.Array {
	out := make(value.Array, 0, len(hits))
	for _, hit := range hits {
		obj, ok := hit.(value.Object)
		if !ok {
			out = append(out, hit)
			continue
		}
		source, ok := obj["_source"].(value.Object)
		if !ok {
			out = append(out, hit)
			continue
		}

		record := source.Clone()
		for _, meta := range []string{"_id", "_index", "_score"} {
			if v, ok := obj[meta]; ok {
				record[meta] = v
			}
		}
		if highlight, ok := obj["highlight"].(value.Object); ok {
			for field, fragments := range highlight {
				record[field] = firstFragment(fragments)
			}
		}
		out = append(out, record)
	}
	return out
}

// firstFragment unwraps a highlight fragment list to its first element.
func firstFragment(v value.Value) value.Value {
	if arr, ok := v.(value.Array); ok && len(arr) > 0 {
		return arr[0]
	}
	return v
}

// ViewModel projects the widget's current store state.
func (w *Widget) ViewModel() ViewModel {
	return Project(w.store.Snapshot(w.id), w.SetQuery)
}

// Render resolves the renderer and calls it with the current view model.
// It returns false, and calls nothing, when the widget has no renderer.
func (w *Widget) Render() (any, bool) {
	kind, render := ResolveRenderer(w.props)
	if kind == NoRenderer {
		return nil, false
	}
	return render(w.ViewModel()), true
}

// SetQuery pushes a query for the widget id. The caller's query and value are
// kept; the component id, label, filter visibility and URL flag always come
// from the widget. Ignored once the widget is unmounted.
func (w *Widget) SetQuery(u store.QueryUpdate) {
	if w.state == Unmounted || w.state == Unconstructed {
		slog.Debug("set query on inactive widget ignored", "widget", w.id, "state", w.state)
		return
	}
	w.sync.push(w.props, u.Query, u.Value)
}
