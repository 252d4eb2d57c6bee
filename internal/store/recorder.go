package store

import (
	"context"
	"log/slog"
	"sync"
)

// Recorder receives every dispatch made against a Store, in seq order.
// Record is called with the store lock held and must not call back into the
// store.
type Recorder interface {
	Record(d Dispatch)
}

// MemoryRecorder keeps dispatches in memory. Used by the harness and tests.
//
// Thread-safety: MemoryRecorder is safe for concurrent use.
type MemoryRecorder struct {
	mu         sync.Mutex
	dispatches []Dispatch
}

// NewMemoryRecorder creates an empty recorder.
func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{}
}

// Record appends d.
func (r *MemoryRecorder) Record(d Dispatch) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dispatches = append(r.dispatches, d)
}

// Dispatches returns a copy of everything recorded so far.
func (r *MemoryRecorder) Dispatches() []Dispatch {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Dispatch, len(r.dispatches))
	copy(out, r.dispatches)
	return out
}

// Reset discards recorded dispatches.
func (r *MemoryRecorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dispatches = nil
}

// JournalRecorder writes dispatches to a Journal.
//
// ERROR HANDLING: a failed write is logged with the full dispatch context and
// the dispatch itself still takes effect. Store operations are synchronous
// fire-and-forget calls and cannot report journal failures to widgets.
type JournalRecorder struct {
	ctx     context.Context
	journal *Journal
}

// NewJournalRecorder creates a recorder writing to j under ctx.
func NewJournalRecorder(ctx context.Context, j *Journal) *JournalRecorder {
	return &JournalRecorder{ctx: ctx, journal: j}
}

// Record writes d to the journal.
func (r *JournalRecorder) Record(d Dispatch) {
	if err := r.journal.Record(r.ctx, d); err != nil {
		slog.Error("journal write failed",
			"id", d.ID,
			"session", d.Session,
			"seq", d.Seq,
			"action", d.Action,
			"component", d.ComponentID,
			"error", err,
		)
	}
}

// MultiRecorder fans a dispatch out to several recorders in order.
type MultiRecorder []Recorder

// Record forwards d to every recorder.
func (m MultiRecorder) Record(d Dispatch) {
	for _, r := range m {
		r.Record(d)
	}
}
