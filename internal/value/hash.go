package value

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Hash computes a content-addressed identifier for v:
//
//	hex(SHA256(domain + 0x00 + canonical(v)))
//
// The null separator keeps the domain/data boundary unambiguous. Callers pick
// a versioned domain string (e.g. "querybind/dispatch/v1") so that the
// algorithm can evolve without colliding with old identifiers.
func Hash(domain string, v Value) (string, error) {
	data, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("hash %s: %w", domain, err)
	}

	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil)), nil
}
