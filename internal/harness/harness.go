package harness

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/querybind/internal/compiler"
	"github.com/roach88/querybind/internal/react"
	"github.com/roach88/querybind/internal/store"
	"github.com/roach88/querybind/internal/testutil"
	"github.com/roach88/querybind/internal/value"
	"github.com/roach88/querybind/internal/widget"
)

// Option configures a scenario run.
type Option func(*runConfig)

type runConfig struct {
	recorders []store.Recorder
	session   string
	logger    *slog.Logger
}

// WithRecorder forwards every dispatch to r as well, for example a
// store.JournalRecorder.
func WithRecorder(r store.Recorder) Option {
	return func(c *runConfig) {
		c.recorders = append(c.recorders, r)
	}
}

// WithSession overrides the scenario's session id.
func WithSession(session string) Option {
	return func(c *runConfig) {
		c.session = session
	}
}

// WithLogger sets the harness logger. Default: discard.
func WithLogger(l *slog.Logger) Option {
	return func(c *runConfig) {
		c.logger = l
	}
}

// Harness holds the state of one scenario run.
type Harness struct {
	store   *store.Store
	clock   *store.Clock
	defs    *compiler.LoadResult
	widgets map[string]*widget.Widget
	result  *Result
	logger  *slog.Logger
}

// traceRecorder appends dispatches to the result trace as they happen.
type traceRecorder struct {
	result *Result
}

func (r traceRecorder) Record(d store.Dispatch) {
	r.result.AddDispatch(d)
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh store with a deterministic clock and a
// fixed session, so the same scenario always produces the same trace.
//
// Execution flow:
// 1. Compile the widget definitions
// 2. Execute steps, recording dispatches and callbacks
// 3. Evaluate assertions against the trace and final store state
//
// A returned error means the scenario could not run at all; step and
// assertion failures are reported in Result.Errors.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	cfg := runConfig{
		session: scenario.Session,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	defs, errs := compiler.LoadDir(scenario.Widgets, compiler.LoadModeFailFast)
	if len(errs) > 0 {
		return nil, fmt.Errorf("failed to load widgets: %w", errs[0])
	}

	clock := store.NewClock()
	sessions := testutil.NewFixedSessionGenerator(cfg.session)
	result := NewResult(sessions.Generate())

	recorders := append(store.MultiRecorder{traceRecorder{result: result}}, cfg.recorders...)
	st := store.New(
		store.WithClock(clock),
		store.WithSessionGenerator(sessions),
		store.WithRecorder(recorders),
	)

	h := &Harness{
		store:   st,
		clock:   clock,
		defs:    defs,
		widgets: make(map[string]*widget.Widget),
		result:  result,
		logger:  cfg.logger,
	}

	for i, step := range scenario.Steps {
		if !h.runStep(i, step) {
			break
		}
	}

	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, st) {
		result.AddError(errMsg)
	}

	h.logger.Info("scenario completed",
		"scenario", scenario.Name,
		"session", result.Session,
		"events", len(result.Trace),
		"pass", result.Pass,
	)
	return result, nil
}

// runStep executes one step and reports whether the run should continue.
func (h *Harness) runStep(i int, step Step) bool {
	kind := step.Kind()
	err := h.execute(kind, step)

	switch {
	case step.ExpectError != "" && err == nil:
		h.result.AddError(fmt.Sprintf("steps[%d] (%s): expected error containing %q, got none", i, kind, step.ExpectError))
		return false
	case step.ExpectError != "" && !strings.Contains(err.Error(), step.ExpectError):
		h.result.AddError(fmt.Sprintf("steps[%d] (%s): expected error containing %q, got %v", i, kind, step.ExpectError, err))
		return false
	case step.ExpectError == "" && err != nil:
		h.result.AddError(fmt.Sprintf("steps[%d] (%s): %v", i, kind, err))
		return false
	}

	h.logger.Info("step completed", "step", i, "kind", kind, "error", err)
	return true
}

func (h *Harness) execute(kind string, step Step) error {
	switch kind {
	case StepMount:
		return h.mount(step.Mount)
	case StepUpdate:
		return h.update(step.Update)
	case StepRefresh:
		w, err := h.widget(step.Refresh)
		if err != nil {
			return err
		}
		return w.Refresh()
	case StepUnmount:
		w, err := h.widget(step.Unmount)
		if err != nil {
			return err
		}
		w.Unmount()
		return nil
	case StepResults:
		hits, err := toArray(step.Results.Hits)
		if err != nil {
			return fmt.Errorf("hits: %w", err)
		}
		var aggs value.Object
		if step.Results.Aggregations != nil {
			v, err := value.FromAny(step.Results.Aggregations)
			if err != nil {
				return fmt.Errorf("aggregations: %w", err)
			}
			aggs = v.(value.Object)
		}
		h.store.SetResults(step.Results.Widget, hits, aggs)
		return nil
	case StepSelect:
		v, err := value.FromAny(step.Select.Value)
		if err != nil {
			return fmt.Errorf("value: %w", err)
		}
		h.store.Select(step.Select.Widget, v)
		return nil
	case StepLoading:
		h.store.SetLoading(step.Loading.Widget, step.Loading.Loading)
		return nil
	case StepError:
		var reported error
		if step.Error.Message != "" {
			reported = errors.New(step.Error.Message)
		}
		h.store.SetError(step.Error.Widget, reported)
		return nil
	case StepSetQuery:
		w, err := h.widget(step.SetQuery.Widget)
		if err != nil {
			return err
		}
		query, err := value.FromAny(step.SetQuery.Query)
		if err != nil {
			return fmt.Errorf("query: %w", err)
		}
		v, err := value.FromAny(step.SetQuery.Value)
		if err != nil {
			return fmt.Errorf("value: %w", err)
		}
		w.ViewModel().SetQuery(store.QueryUpdate{Query: query, Value: v})
		return nil
	default:
		return fmt.Errorf("unknown step")
	}
}

// mount constructs, binds and mounts a widget from its definition. The host
// callbacks record trace events.
func (h *Harness) mount(id string) error {
	if _, ok := h.widgets[id]; ok {
		return fmt.Errorf("widget %s already mounted", id)
	}
	def, ok := h.defs.Widget(id)
	if !ok {
		return fmt.Errorf("widget %s is not defined", id)
	}

	w, err := widget.New(h.store, h.withCallbacks(def.Props()))
	if err != nil {
		return err
	}
	h.widgets[id] = w

	if _, err := w.Bind(h.store); err != nil {
		return err
	}
	return w.Mount()
}

func (h *Harness) withCallbacks(p widget.Props) widget.Props {
	id := p.ID
	p.OnData = func(d widget.Data) {
		h.result.AddEvent(h.clock.Next(), EventOnData, id, value.Object{
			"data":         d.Data,
			"aggregations": objectOrNull(d.Aggregations),
		})
	}
	p.OnQueryChange = func(prev, next value.Value) {
		h.result.AddEvent(h.clock.Next(), EventOnQueryChange, id, value.Object{
			"prev": value.OrNull(prev),
			"next": value.OrNull(next),
		})
	}
	p.OnError = func(err error) {
		h.result.AddEvent(h.clock.Next(), EventOnError, id, value.Object{
			"error": value.String(err.Error()),
		})
	}
	return p
}

func (h *Harness) update(step *UpdateStep) error {
	w, err := h.widget(step.Widget)
	if err != nil {
		return err
	}
	next := w.Props()

	if present(step.React) {
		raw, err := decodeNode(step.React)
		if err != nil {
			return fmt.Errorf("react: %w", err)
		}
		expr, err := react.Parse(raw)
		if err != nil {
			return fmt.Errorf("react: %w", err)
		}
		next.React = expr
	}
	if present(step.Value) {
		v, err := decodeNode(step.Value)
		if err != nil {
			return fmt.Errorf("value: %w", err)
		}
		next.Value = v
	}
	if present(step.DefaultQuery) {
		def, err := decodeNode(step.DefaultQuery)
		if err != nil {
			return fmt.Errorf("defaultQuery: %w", err)
		}
		switch def.(type) {
		case value.Object, value.Null:
			next.DefaultQuery = compiler.StaticQuery(def)
		default:
			return fmt.Errorf("defaultQuery: must be an object or null")
		}
	}
	if step.FilterLabel != nil {
		next.FilterLabel = *step.FilterLabel
	}

	return w.Update(next)
}

func (h *Harness) widget(id string) (*widget.Widget, error) {
	w, ok := h.widgets[id]
	if !ok {
		return nil, fmt.Errorf("widget %s is not mounted", id)
	}
	return w, nil
}

// present reports whether a YAML field was given, including an explicit null.
func present(n yaml.Node) bool {
	return n.Kind != 0
}

func decodeNode(n yaml.Node) (value.Value, error) {
	var raw any
	if err := n.Decode(&raw); err != nil {
		return nil, err
	}
	return value.FromAny(raw)
}

func toArray(items []any) (value.Array, error) {
	if items == nil {
		return value.Array{}, nil
	}
	v, err := value.FromAny(items)
	if err != nil {
		return nil, err
	}
	return v.(value.Array), nil
}

func objectOrNull(o value.Object) value.Value {
	if o == nil {
		return value.Null{}
	}
	return o
}
