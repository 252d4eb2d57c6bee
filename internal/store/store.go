package store

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/roach88/querybind/internal/react"
	"github.com/roach88/querybind/internal/value"
)

// maxNotifyPasses bounds how often subscribers are re-run when they dispatch
// from inside a notification. Exceeding it means two widgets keep re-pushing
// different queries at each other.
const maxNotifyPasses = 64

// QueryChangeFunc is called with the previous and next query of a component.
type QueryChangeFunc func(prev, next value.Value)

// ErrorFunc is called when a store-reported error is set for a component.
type ErrorFunc func(err error)

type listener struct {
	onChange QueryChangeFunc
	onError  ErrorFunc
}

// Store is the reference shared query store.
//
// Thread-safety: all methods are safe for concurrent use. Concurrent widgets
// own disjoint component ids; the store serializes their writes. Callbacks run
// without the lock held, on the goroutine that made the dispatch.
type Store struct {
	mu       sync.Mutex
	clock    Sequencer
	sessions SessionGenerator
	session  string
	recorder Recorder

	registered   map[string]bool
	dependencies map[string]react.Expr
	queries      map[string]QueryUpdate
	options      map[string]value.Object
	executing    map[string]bool
	selected     map[string]value.Value
	hits         map[string]value.Array
	aggregations map[string]value.Object
	loading      map[string]bool
	errs         map[string]error
	listeners    map[string]listener

	subs      map[int]func()
	nextSub   int
	notifying bool
	dirty     bool
}

// Option configures a Store.
type Option func(*Store)

// WithRecorder sets the recorder that receives every dispatch.
func WithRecorder(r Recorder) Option {
	return func(s *Store) {
		s.recorder = r
	}
}

// WithSession fixes the session id stamped on dispatches.
// Default: a fresh UUIDv7.
func WithSession(session string) Option {
	return func(s *Store) {
		s.session = session
	}
}

// WithSessionGenerator sets the generator asked for a session id when none
// was fixed with WithSession.
func WithSessionGenerator(g SessionGenerator) Option {
	return func(s *Store) {
		s.sessions = g
	}
}

// WithClock sets the logical clock. Used to continue a journaled session.
func WithClock(c Sequencer) Option {
	return func(s *Store) {
		s.clock = c
	}
}

// New creates an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		clock:        NewClock(),
		sessions:     UUIDv7Generator{},
		registered:   make(map[string]bool),
		dependencies: make(map[string]react.Expr),
		queries:      make(map[string]QueryUpdate),
		options:      make(map[string]value.Object),
		executing:    make(map[string]bool),
		selected:     make(map[string]value.Value),
		hits:         make(map[string]value.Array),
		aggregations: make(map[string]value.Object),
		loading:      make(map[string]bool),
		errs:         make(map[string]error),
		listeners:    make(map[string]listener),
		subs:         make(map[int]func()),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.session == "" {
		s.session = s.sessions.Generate()
	}

	return s
}

// Session returns the session id stamped on this store's dispatches.
func (s *Store) Session() string {
	return s.session
}

// Register adds a component to the store.
func (s *Store) Register(id string) {
	s.mu.Lock()
	s.registered[id] = true
	s.record(ActionRegister, id, nil)
	s.mu.Unlock()

	s.notify()
}

// Unregister removes a component and all of its state.
// Unregistering an unknown id is a no-op and is not recorded.
func (s *Store) Unregister(id string) {
	s.mu.Lock()
	if !s.registered[id] {
		s.mu.Unlock()
		slog.Debug("unregister of unknown component ignored", "component", id)
		return
	}

	delete(s.registered, id)
	delete(s.dependencies, id)
	delete(s.queries, id)
	delete(s.options, id)
	delete(s.executing, id)
	delete(s.selected, id)
	delete(s.hits, id)
	delete(s.aggregations, id)
	delete(s.loading, id)
	delete(s.errs, id)
	delete(s.listeners, id)
	s.record(ActionUnregister, id, nil)
	s.mu.Unlock()

	s.notify()
}

// Watch sets the dependency clause that gates component id's query.
func (s *Store) Watch(id string, clause react.Expr) {
	s.mu.Lock()
	s.dependencies[id] = clause
	s.record(ActionWatch, id, value.Object{"react": react.ToValue(clause)})
	s.mu.Unlock()

	s.notify()
}

// PushQuery stores the query and selected value carried by u. The component's
// query listener is called when the query changed structurally.
func (s *Store) PushQuery(u QueryUpdate) {
	s.mu.Lock()
	prev, hadPrev := s.queries[u.ComponentID]
	s.queries[u.ComponentID] = u
	s.selected[u.ComponentID] = value.OrNull(u.Value)
	s.record(ActionPushQuery, u.ComponentID, u.Payload())

	var after func()
	l := s.listeners[u.ComponentID]
	var prevQuery value.Value = value.Null{}
	if hadPrev {
		prevQuery = value.OrNull(prev.Query)
	}
	nextQuery := value.OrNull(u.Query)
	if l.onChange != nil && !value.Equal(prevQuery, nextQuery) {
		after = func() { l.onChange(prevQuery, nextQuery) }
	}
	s.mu.Unlock()

	if after != nil {
		after()
	}
	s.notify()
}

// SetQueryOptions replaces the query options of component id. execute marks
// whether the options alone should trigger a fetch.
func (s *Store) SetQueryOptions(id string, options value.Object, execute bool) {
	options = options.Clone()

	s.mu.Lock()
	s.options[id] = options
	s.executing[id] = execute
	s.record(ActionSetQueryOptions, id, value.Object{
		"options": payloadOrEmpty(options),
		"execute": value.Bool(execute),
	})
	s.mu.Unlock()

	s.notify()
}

// SetQueryListener installs the host callbacks for component id. Either may
// be nil.
func (s *Store) SetQueryListener(id string, onChange QueryChangeFunc, onError ErrorFunc) {
	s.mu.Lock()
	s.listeners[id] = listener{onChange: onChange, onError: onError}
	s.record(ActionSetQueryListener, id, value.Object{
		"on_query_change": value.Bool(onChange != nil),
		"on_error":        value.Bool(onError != nil),
	})
	s.mu.Unlock()

	s.notify()
}

// SetResults stores the hits and aggregations returned for component id.
// Loading is cleared.
func (s *Store) SetResults(id string, hits value.Array, aggregations value.Object) {
	s.mu.Lock()
	s.hits[id] = hits
	s.aggregations[id] = aggregations
	s.loading[id] = false
	s.record(ActionSetResults, id, value.Object{
		"hits":         orEmptyArray(hits),
		"aggregations": nullIfNil(aggregations),
	})
	s.mu.Unlock()

	s.notify()
}

// SetLoading sets the loading flag of component id.
func (s *Store) SetLoading(id string, loading bool) {
	s.mu.Lock()
	s.loading[id] = loading
	s.record(ActionSetLoading, id, value.Object{"loading": value.Bool(loading)})
	s.mu.Unlock()

	s.notify()
}

// SetError sets (or clears, with nil) the error of component id. A non-nil
// error is reported to the component's error listener.
func (s *Store) SetError(id string, err error) {
	s.mu.Lock()
	var payload value.Value = value.Null{}
	if err != nil {
		s.errs[id] = err
		payload = value.String(err.Error())
	} else {
		delete(s.errs, id)
	}
	s.loading[id] = false
	s.record(ActionSetError, id, value.Object{"error": payload})

	var after func()
	if l := s.listeners[id]; err != nil && l.onError != nil {
		after = func() { l.onError(err) }
	}
	s.mu.Unlock()

	if after != nil {
		after()
	}
	s.notify()
}

// Select sets the selected value of component id without touching its query,
// as URL restoration or another widget would.
func (s *Store) Select(id string, v value.Value) {
	s.mu.Lock()
	s.selected[id] = value.OrNull(v)
	s.record(ActionSelect, id, value.Object{"value": value.OrNull(v)})
	s.mu.Unlock()

	s.notify()
}

// Snapshot returns the read-side state of component id. Hits default to an
// empty array; absent aggregations, selected value and error are nil.
func (s *Store) Snapshot(id string) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	hits := s.hits[id]
	if hits == nil {
		hits = value.Array{}
	}
	snap := Snapshot{
		Hits:         hits,
		Aggregations: s.aggregations[id],
		IsLoading:    s.loading[id],
		Error:        s.errs[id],
	}
	if sel, ok := s.selected[id]; ok && !value.IsNull(sel) {
		snap.SelectedValue = sel
	}
	return snap
}

// Registered reports whether component id is registered.
func (s *Store) Registered(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registered[id]
}

// Dependencies returns the clause component id watches.
func (s *Store) Dependencies(id string) react.Expr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dependencies[id]
}

// Query returns the last query pushed for component id.
func (s *Store) Query(id string) (QueryUpdate, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.queries[id]
	return u, ok
}

// Options returns the query options of component id and whether they were
// set with execute.
func (s *Store) Options(id string) (value.Object, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.options[id], s.executing[id]
}

// Watchers returns the registered components whose clause references id,
// sorted by component id.
func (s *Store) Watchers(id string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []string
	for component, clause := range s.dependencies {
		for _, ref := range react.Refs(clause) {
			if ref == id {
				out = append(out, component)
				break
			}
		}
	}
	slices.Sort(out)
	return out
}

// Subscribe registers fn to run after every dispatch. The returned cancel
// function is idempotent.
func (s *Store) Subscribe(fn func()) (cancel func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// notify runs subscribers after a dispatch. A dispatch made from inside a
// subscriber does not recurse; it marks the pass dirty and subscribers run
// again once the current pass finishes.
func (s *Store) notify() {
	s.mu.Lock()
	if s.notifying {
		s.dirty = true
		s.mu.Unlock()
		return
	}
	s.notifying = true

	for pass := 0; ; pass++ {
		s.dirty = false
		subs := s.subscribers()
		s.mu.Unlock()

		for _, fn := range subs {
			fn()
		}

		s.mu.Lock()
		if !s.dirty {
			break
		}
		if pass >= maxNotifyPasses {
			slog.Warn("store notification did not settle", "passes", pass+1, "session", s.session)
			break
		}
	}

	s.notifying = false
	s.mu.Unlock()
}

// subscribers returns subscribers in subscription order. Caller holds mu.
func (s *Store) subscribers() []func() {
	ids := make([]int, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	out := make([]func(), len(ids))
	for i, id := range ids {
		out[i] = s.subs[id]
	}
	return out
}

// record stamps and forwards a dispatch to the recorder. Caller holds mu.
func (s *Store) record(action Action, id string, payload value.Object) {
	seq := s.clock.Next()
	if s.recorder == nil {
		return
	}

	payload = payloadOrEmpty(payload)
	dispatchID, err := DispatchID(s.session, seq, action, id, payload)
	if err != nil {
		slog.Error("dispatch not recorded",
			"action", action,
			"component", id,
			"seq", seq,
			"error", err,
		)
		return
	}

	s.recorder.Record(Dispatch{
		ID:          dispatchID,
		Session:     s.session,
		Seq:         seq,
		Action:      action,
		ComponentID: id,
		Payload:     payload,
	})
}

func orEmptyArray(a value.Array) value.Array {
	if a == nil {
		return value.Array{}
	}
	return a
}

func nullIfNil(o value.Object) value.Value {
	if o == nil {
		return value.Null{}
	}
	return o
}
