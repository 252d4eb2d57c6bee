package widget

import (
	"log/slog"

	"github.com/roach88/querybind/internal/react"
	"github.com/roach88/querybind/internal/store"
)

// maxRefreshPasses bounds how often an update re-runs because the store
// notified the widget while it was already updating.
const maxRefreshPasses = 8

// State is a widget lifecycle state.
type State int

const (
	Unconstructed State = iota
	Constructed
	Mounted
	Unmounted
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Unconstructed:
		return "unconstructed"
	case Constructed:
		return "constructed"
	case Mounted:
		return "mounted"
	case Unmounted:
		return "unmounted"
	default:
		return "unknown"
	}
}

// Widget binds one component to a shared store.
//
// A zero Widget is Unconstructed; use New.
type Widget struct {
	store     Store
	props     Props
	id        string
	companion string
	custom    bool // custom query present at construction
	clause    react.Expr
	state     State
	sync      synchronizer
	cancels   []func()

	busy  bool
	stale bool
}

// New constructs a widget: it registers the widget id and its companion,
// watches the effective dependency clause, pushes the default query for the
// companion and installs the host's query listeners.
//
// On a query source failure every id registered so far is unregistered again
// and the error is returned.
func New(s Store, p Props) (*Widget, error) {
	if s == nil {
		return nil, &ConfigError{Field: "store", Message: "store handle is required"}
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	companion, _ := CompanionID(p.ID, p.DefaultQuery != nil)
	w := &Widget{
		store:     s,
		props:     p,
		id:        p.ID,
		companion: companion,
		custom:    p.CustomQuery != nil,
		sync: synchronizer{
			store:     s,
			id:        p.ID,
			companion: companion,
		},
	}

	s.Register(w.id)
	if w.companion != "" {
		s.Register(w.companion)
	}
	w.watch()

	if err := w.sync.construct(p); err != nil {
		w.unregister()
		w.state = Unmounted
		return nil, err
	}

	s.SetQueryListener(w.id, store.QueryChangeFunc(p.OnQueryChange), store.ErrorFunc(p.OnError))
	w.state = Constructed

	slog.Debug("widget constructed",
		"widget", w.id,
		"companion", w.companion,
		"custom", w.custom,
	)
	return w, nil
}

// ID returns the public component id.
func (w *Widget) ID() string {
	return w.id
}

// Companion returns the hidden companion id, if the widget has one.
func (w *Widget) Companion() (string, bool) {
	return w.companion, w.companion != ""
}

// Clause returns the dependency clause last registered with the store.
func (w *Widget) Clause() react.Expr {
	return w.clause
}

// State returns the current lifecycle state.
func (w *Widget) State() State {
	return w.state
}

// Props returns the props the widget currently holds.
func (w *Widget) Props() Props {
	return w.props
}

// Mount runs the first activation: a custom query is evaluated against the
// current props and store state and pushed for the widget id.
func (w *Widget) Mount() error {
	if w.state != Constructed {
		return &TransitionError{WidgetID: w.id, Op: "mount", From: w.state}
	}
	w.state = Mounted

	return w.guard(func() error {
		w.sync.observe(w.store.Snapshot(w.id))
		return w.sync.activate(w.props)
	})
}

// Update applies new props. Without a custom query it reports result changes
// to OnData and re-pushes a changed default query; a structurally different
// React expression is re-watched.
func (w *Widget) Update(next Props) error {
	if w.state != Mounted {
		return &TransitionError{WidgetID: w.id, Op: "update", From: w.state}
	}
	if err := next.Validate(); err != nil {
		return err
	}
	if next.ID != w.id {
		return &ConfigError{Field: "ID", Message: "widget id cannot change from " + w.id + " to " + next.ID}
	}

	if w.busy {
		// Called from a callback of the running step; applied when it ends.
		w.props = next
		w.stale = true
		return nil
	}

	return w.guard(func() error {
		return w.updateStep(next)
	})
}

// Refresh re-runs the update step with unchanged props. It is what a store
// subscription calls; outside the Mounted state it does nothing.
func (w *Widget) Refresh() error {
	if w.state != Mounted {
		return nil
	}
	if w.busy {
		w.stale = true
		return nil
	}
	return w.guard(func() error {
		return w.updateStep(w.props)
	})
}

// Unmount unregisters the widget id and then its companion. Only the first
// call has an effect. Subscriptions made with Bind are cancelled first.
func (w *Widget) Unmount() {
	if w.state == Unmounted {
		return
	}

	for _, cancel := range w.cancels {
		cancel()
	}
	w.cancels = nil

	if w.store != nil {
		w.unregister()
	}
	w.state = Unmounted

	slog.Debug("widget unmounted", "widget", w.id, "companion", w.companion)
}

// Bind subscribes the widget's Refresh to sub. The returned cancel function
// is idempotent and is also called by Unmount. Refresh failures go to the
// OnError prop, or are logged when there is none.
func (w *Widget) Bind(sub Subscriber) (func(), error) {
	if w.state == Unmounted || w.state == Unconstructed {
		return nil, &TransitionError{WidgetID: w.id, Op: "bind", From: w.state}
	}

	cancel := sub.Subscribe(func() {
		if err := w.Refresh(); err != nil {
			w.report(err)
		}
	})
	w.cancels = append(w.cancels, cancel)
	return cancel, nil
}

// updateStep adopts next and runs the synchronizer's update step. The clause
// is re-watched only when it differs structurally from the registered one.
func (w *Widget) updateStep(next Props) error {
	w.props = next
	err := w.sync.update(next, w.custom, next.OnData)
	if !react.Equal(react.BuildClause(next.React, w.companion), w.clause) {
		w.watch()
	}
	return err
}

// guard runs step with re-entrant refreshes deferred. A refresh requested
// while step ran re-runs the update step afterwards.
func (w *Widget) guard(step func() error) error {
	w.busy = true
	defer func() { w.busy = false }()

	err := step()
	for pass := 0; w.stale && err == nil; pass++ {
		w.stale = false
		if pass >= maxRefreshPasses {
			slog.Warn("widget refresh did not settle", "widget", w.id, "passes", pass)
			break
		}
		if w.state != Mounted {
			break
		}
		err = w.updateStep(w.props)
	}
	w.stale = false
	return err
}

func (w *Widget) watch() {
	w.clause = react.BuildClause(w.props.React, w.companion)
	w.store.Watch(w.id, w.clause)
}

func (w *Widget) unregister() {
	w.store.Unregister(w.id)
	if w.companion != "" {
		w.store.Unregister(w.companion)
	}
}

func (w *Widget) report(err error) {
	if w.props.OnError != nil {
		w.props.OnError(err)
		return
	}
	slog.Error("widget refresh failed", "widget", w.id, "error", err)
}
