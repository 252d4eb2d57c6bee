package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/querybind/internal/store"
)

var _ store.SessionGenerator = (*FixedSessionGenerator)(nil)

func TestFixedSessionGenerator_ReturnsSameSession(t *testing.T) {
	gen := NewFixedSessionGenerator("session-123")

	assert.Equal(t, "session-123", gen.Generate())
	assert.Equal(t, "session-123", gen.Generate())
}

func TestFixedSessionGenerator_EmptyUsesDefault(t *testing.T) {
	assert.Equal(t, DefaultSession, NewFixedSessionGenerator("").Generate())
}

func TestFixedSessionGenerator_ConcurrentUse(t *testing.T) {
	gen := NewFixedSessionGenerator("shared")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				assert.Equal(t, "shared", gen.Generate())
			}
		}()
	}
	wg.Wait()
}

func TestDeterministicStore_StableDispatchIDs(t *testing.T) {
	run := func(clock *store.Clock) []store.Dispatch {
		rec := store.NewMemoryRecorder()
		s := store.New(
			store.WithRecorder(rec),
			store.WithClock(clock),
			store.WithSessionGenerator(NewFixedSessionGenerator("golden")),
		)
		s.Register("price")
		s.Register("price__internal")
		return rec.Dispatches()
	}

	clock := store.NewClock()
	first := run(clock)
	clock.Reset()
	second := run(clock)

	assert.Equal(t, first, second)
	assert.Equal(t, "golden", first[0].Session)
}
