// Package value provides the canonical value model shared by widgets and the
// query store.
//
// Queries, query options, result hits and aggregations all travel as Values.
// The model is deliberately JSON-shaped so that any definition loaded from CUE,
// YAML or JSON can be compared structurally:
//
//   - Equal compares two Values by their canonical encoding, never by identity
//   - MarshalCanonical produces RFC 8785 style JSON (sorted keys, NFC strings)
//   - Hash derives content-addressed identifiers with domain separation
//
// value imports nothing internal. Every other internal package may import it.
package value
