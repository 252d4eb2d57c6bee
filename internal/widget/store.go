package widget

import (
	"github.com/roach88/querybind/internal/react"
	"github.com/roach88/querybind/internal/store"
	"github.com/roach88/querybind/internal/value"
)

// Store is the write and read surface of the shared query store a widget
// uses. *store.Store implements it.
type Store interface {
	Register(id string)
	Unregister(id string)
	Watch(id string, clause react.Expr)
	PushQuery(u store.QueryUpdate)
	SetQueryOptions(id string, options value.Object, execute bool)
	SetQueryListener(id string, onChange store.QueryChangeFunc, onError store.ErrorFunc)
	Snapshot(id string) store.Snapshot
}

// Subscriber delivers store change notifications.
type Subscriber interface {
	Subscribe(fn func()) (cancel func())
}

var (
	_ Store      = (*store.Store)(nil)
	_ Subscriber = (*store.Store)(nil)
)
