package store

import "github.com/google/uuid"

// SessionGenerator produces session identifiers that group the dispatches of
// one store instance in the journal.
// Implemented by UUIDv7Generator (production) and testutil.FixedSessionGenerator.
type SessionGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 session ids, so sessions list
// in creation order.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate returns a new hyphenated UUIDv7.
// Panics if the system random source fails.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}
