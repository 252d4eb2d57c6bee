package testutil

// DefaultSession is the session id used when a scenario does not name one.
const DefaultSession = "test-session-default"

// FixedSessionGenerator returns the same session id on every call. It
// implements store.SessionGenerator.
//
// A scenario run with a fixed session and a fresh store.Clock produces the
// same dispatch ids every time, which is what golden traces rely on.
//
// Thread-safety: FixedSessionGenerator is immutable and safe for concurrent use.
type FixedSessionGenerator struct {
	session string
}

// NewFixedSessionGenerator creates a generator for session. An empty session
// falls back to DefaultSession.
func NewFixedSessionGenerator(session string) *FixedSessionGenerator {
	if session == "" {
		session = DefaultSession
	}
	return &FixedSessionGenerator{session: session}
}

// Generate returns the fixed session id.
func (g *FixedSessionGenerator) Generate() string {
	return g.session
}
