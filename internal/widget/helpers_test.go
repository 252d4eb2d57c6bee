package widget

import (
	"testing"

	"github.com/roach88/querybind/internal/store"
	"github.com/roach88/querybind/internal/value"
)

func newStore(t *testing.T) (*store.Store, *store.MemoryRecorder) {
	t.Helper()
	rec := store.NewMemoryRecorder()
	return store.New(store.WithRecorder(rec), store.WithSession("widget-test")), rec
}

// steps renders dispatches as "action:component".
func steps(ds []store.Dispatch) []string {
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = string(d.Action) + ":" + d.ComponentID
	}
	return out
}

// payloads renders the canonical payloads of dispatches matching action.
func payloads(ds []store.Dispatch, action store.Action) []string {
	var out []string
	for _, d := range ds {
		if d.Action == action {
			out = append(out, value.Text(d.Payload))
		}
	}
	return out
}

func count(ds []store.Dispatch, action store.Action, component string) int {
	n := 0
	for _, d := range ds {
		if d.Action == action && d.ComponentID == component {
			n++
		}
	}
	return n
}

func index(ds []store.Dispatch, action store.Action, component string) int {
	for i, d := range ds {
		if d.Action == action && d.ComponentID == component {
			return i
		}
	}
	return -1
}

func obj(v any) value.Object {
	return value.MustFromAny(v).(value.Object)
}

func priceDefault() (value.Object, error) {
	return obj(map[string]any{
		"query": map[string]any{"range": map[string]any{"price": map[string]any{"gte": 0, "lte": 100}}},
		"size":  10,
	}), nil
}

func searchCustom(in Input) (value.Object, error) {
	term := value.FirstNonNull(in.Snapshot.SelectedValue, in.Props.Value)
	return value.Object{
		"query": value.Object{"match": value.Object{"title": term}},
	}, nil
}
