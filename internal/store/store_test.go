package store

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/querybind/internal/react"
	"github.com/roach88/querybind/internal/value"
)

func newTestStore(t *testing.T) (*Store, *MemoryRecorder) {
	t.Helper()
	rec := NewMemoryRecorder()
	return New(WithRecorder(rec), WithSession("test-session")), rec
}

func actions(ds []Dispatch) []string {
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = string(d.Action) + ":" + d.ComponentID
	}
	return out
}

func TestStore_RegisterAndUnregister(t *testing.T) {
	s, rec := newTestStore(t)

	s.Register("price")
	assert.True(t, s.Registered("price"))

	s.PushQuery(QueryUpdate{ComponentID: "price", Query: value.Object{"match_all": value.Object{}}})
	s.Unregister("price")

	assert.False(t, s.Registered("price"))
	_, ok := s.Query("price")
	assert.False(t, ok, "query state must be dropped on unregister")
	assert.Equal(t, []string{"register:price", "push_query:price", "unregister:price"}, actions(rec.Dispatches()))
}

func TestStore_UnregisterUnknownIsNoop(t *testing.T) {
	s, rec := newTestStore(t)

	assert.NotPanics(t, func() {
		s.Unregister("ghost")
		s.Unregister("ghost")
	})
	assert.Empty(t, rec.Dispatches())
}

func TestStore_DispatchSeqIsMonotonic(t *testing.T) {
	s, rec := newTestStore(t)

	s.Register("a")
	s.Watch("a", react.Ref("b"))
	s.SetLoading("a", true)

	ds := rec.Dispatches()
	require.Len(t, ds, 3)
	for i, d := range ds {
		assert.Equal(t, int64(i+1), d.Seq)
		assert.Equal(t, "test-session", d.Session)
		assert.Len(t, d.ID, 64)
	}
}

func TestStore_WatchRecordsClause(t *testing.T) {
	s, rec := newTestStore(t)
	clause := react.Clause{And: react.List{react.Ref("category"), react.Ref("price__internal")}}

	s.Watch("price", clause)

	assert.True(t, react.Equal(clause, s.Dependencies("price")))
	ds := rec.Dispatches()
	require.Len(t, ds, 1)
	assert.Equal(t, `{"react":{"and":["category","price__internal"]}}`, value.Text(ds[0].Payload))
}

func TestStore_Watchers(t *testing.T) {
	s, _ := newTestStore(t)

	s.Watch("results", react.MustParse(map[string]any{"and": []any{"search", "price"}}))
	s.Watch("facets", react.MustParse(map[string]any{"or": "search"}))
	s.Watch("other", react.Ref("price"))

	assert.Equal(t, []string{"facets", "results"}, s.Watchers("search"))
	assert.Empty(t, s.Watchers("nobody"))
}

func TestStore_PushQueryPayloadOmitsUnset(t *testing.T) {
	s, rec := newTestStore(t)
	show := true
	urlParams := false

	s.PushQuery(QueryUpdate{ComponentID: "price__internal", Query: nil})
	s.PushQuery(QueryUpdate{
		ComponentID: "search",
		Query:       value.Object{"match": value.Object{"title": value.String("shoes")}},
		Value:       value.String("shoes"),
		Label:       "Search",
		ShowFilter:  &show,
		URLParams:   &urlParams,
	})

	ds := rec.Dispatches()
	require.Len(t, ds, 2)
	assert.Equal(t, `{"query":null}`, value.Text(ds[0].Payload))
	assert.Equal(t,
		`{"URLParams":false,"label":"Search","query":{"match":{"title":"shoes"}},"showFilter":true,"value":"shoes"}`,
		value.Text(ds[1].Payload))
	assert.Equal(t, value.String("shoes"), s.Snapshot("search").SelectedValue)
}

func TestStore_QueryListenerCalledOnStructuralChangeOnly(t *testing.T) {
	s, _ := newTestStore(t)

	type change struct{ prev, next value.Value }
	var changes []change
	s.SetQueryListener("search", func(prev, next value.Value) {
		changes = append(changes, change{prev, next})
	}, nil)

	q := value.Object{"match": value.Object{"title": value.String("shoes")}}
	s.PushQuery(QueryUpdate{ComponentID: "search", Query: q})
	s.PushQuery(QueryUpdate{ComponentID: "search", Query: value.Object{"match": value.Object{"title": value.String("shoes")}}})
	s.PushQuery(QueryUpdate{ComponentID: "search", Query: nil})

	require.Len(t, changes, 2)
	assert.Equal(t, value.Null{}, changes[0].prev)
	assert.True(t, value.Equal(q, changes[0].next))
	assert.True(t, value.Equal(q, changes[1].prev))
	assert.Equal(t, value.Null{}, changes[1].next)
}

func TestStore_SetErrorReportsToListener(t *testing.T) {
	s, _ := newTestStore(t)

	var reported []error
	s.SetQueryListener("search", nil, func(err error) { reported = append(reported, err) })

	boom := errors.New("search backend unavailable")
	s.SetLoading("search", true)
	s.SetError("search", boom)

	snap := s.Snapshot("search")
	assert.Equal(t, boom, snap.Error)
	assert.False(t, snap.IsLoading)
	assert.Equal(t, []error{boom}, reported)

	s.SetError("search", nil)
	assert.NoError(t, s.Snapshot("search").Error)
	assert.Len(t, reported, 1, "clearing does not notify")
}

func TestStore_SnapshotDefaults(t *testing.T) {
	s, _ := newTestStore(t)

	snap := s.Snapshot("unknown")
	assert.Equal(t, value.Array{}, snap.Hits)
	assert.Nil(t, snap.Aggregations)
	assert.Nil(t, snap.SelectedValue)
	assert.False(t, snap.IsLoading)
	assert.NoError(t, snap.Error)
}

func TestStore_SetResults(t *testing.T) {
	s, _ := newTestStore(t)
	hits := value.Array{value.Object{"_id": value.String("1")}}
	aggs := value.Object{"brands": value.Object{"buckets": value.Array{}}}

	s.SetLoading("results", true)
	s.SetResults("results", hits, aggs)

	snap := s.Snapshot("results")
	assert.Equal(t, hits, snap.Hits)
	assert.Equal(t, aggs, snap.Aggregations)
	assert.False(t, snap.IsLoading)
}

func TestStore_SetQueryOptions(t *testing.T) {
	s, rec := newTestStore(t)
	opts := value.Object{"size": value.Int(10)}

	s.SetQueryOptions("price__internal", opts, false)
	opts["size"] = value.Int(99) // caller mutation must not leak in

	got, execute := s.Options("price__internal")
	assert.Equal(t, value.Object{"size": value.Int(10)}, got)
	assert.False(t, execute)
	assert.Equal(t, `{"execute":false,"options":{"size":10}}`, value.Text(rec.Dispatches()[0].Payload))
}

func TestStore_SubscribeAndCancel(t *testing.T) {
	s, _ := newTestStore(t)

	calls := 0
	cancel := s.Subscribe(func() { calls++ })

	s.Register("a")
	s.Select("a", value.String("x"))
	assert.Equal(t, 2, calls)

	cancel()
	cancel()
	s.Register("b")
	assert.Equal(t, 2, calls)
}

func TestStore_NestedDispatchDoesNotRecurse(t *testing.T) {
	s, rec := newTestStore(t)

	depth, maxDepth, calls := 0, 0, 0
	s.Subscribe(func() {
		depth++
		calls++
		if depth > maxDepth {
			maxDepth = depth
		}
		if calls == 1 {
			s.Register("follow-up")
		}
		depth--
	})

	s.Register("a")

	assert.Equal(t, 1, maxDepth)
	assert.Equal(t, 2, calls, "dirty pass re-runs subscribers once")
	assert.Equal(t, []string{"register:a", "register:follow-up"}, actions(rec.Dispatches()))
}

func TestStore_DefaultSessionIsUUID(t *testing.T) {
	s := New()
	assert.Len(t, s.Session(), 36)
}
