package value

import (
	"bytes"
	"fmt"
	"math"
	"strconv"

	"golang.org/x/text/unicode/norm"
)

// maxExactInt is the largest magnitude at which every integer is exactly
// representable as a float64.
const maxExactInt = 1 << 53

// MarshalCanonical produces RFC 8785 style canonical JSON for v.
//
// Differences from encoding/json:
//  1. Object keys sorted by UTF-16 code units
//  2. No HTML escaping; only quote, backslash and control characters are escaped
//  3. Strings are NFC normalized
//  4. Integral floats encode as integers, so Float(10) and Int(10) share bytes
//  5. NaN and infinities are rejected
//
// A nil Value encodes as null.
func MarshalCanonical(v Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeCanonical(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCanonical(buf *bytes.Buffer, v Value) error {
	switch val := v.(type) {
	case nil, Null:
		buf.WriteString("null")
	case String:
		writeCanonicalString(buf, string(val))
	case Int:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
	case Float:
		return writeCanonicalFloat(buf, float64(val))
	case Bool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case Array:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, elem); err != nil {
				return fmt.Errorf("array[%d]: %w", i, err)
			}
		}
		buf.WriteByte(']')
	case Object:
		buf.WriteByte('{')
		for i, k := range val.SortedKeys() {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeCanonicalString(buf, k)
			buf.WriteByte(':')
			if err := writeCanonical(buf, val[k]); err != nil {
				return fmt.Errorf("object[%q]: %w", k, err)
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("unsupported value type: %T", v)
	}
	return nil
}

func writeCanonicalFloat(buf *bytes.Buffer, f float64) error {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("non-finite number is not encodable: %v", f)
	}
	if f == math.Trunc(f) && math.Abs(f) <= maxExactInt {
		buf.WriteString(strconv.FormatInt(int64(f), 10))
		return nil
	}
	buf.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
	return nil
}

const hexDigits = "0123456789abcdef"

// writeCanonicalString writes s as an RFC 8785 JSON string after NFC
// normalization. U+2028 and U+2029 are written literally.
func writeCanonicalString(buf *bytes.Buffer, s string) {
	s = norm.NFC.String(s)

	buf.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			buf.WriteString(`\"`)
		case '\\':
			buf.WriteString(`\\`)
		case '\b':
			buf.WriteString(`\b`)
		case '\f':
			buf.WriteString(`\f`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		default:
			if r < 0x20 {
				buf.WriteString(`\u00`)
				buf.WriteByte(hexDigits[r>>4])
				buf.WriteByte(hexDigits[r&0xF])
				continue
			}
			buf.WriteRune(r)
		}
	}
	buf.WriteByte('"')
}

// Equal reports whether a and b are structurally equal. nil and Null are
// equal, object key order is irrelevant, and Int(10) equals Float(10).
//
// Values that cannot be encoded (NaN, infinities) are compared by walking
// them instead; there NaN equals NaN and each infinity equals itself.
func Equal(a, b Value) bool {
	ab, errA := MarshalCanonical(a)
	bb, errB := MarshalCanonical(b)
	if errA == nil && errB == nil {
		return bytes.Equal(ab, bb)
	}
	return equalWalk(a, b)
}

func equalWalk(a, b Value) bool {
	if IsNull(a) || IsNull(b) {
		return IsNull(a) && IsNull(b)
	}
	if fa, ok := number(a); ok {
		fb, ok := number(b)
		return ok && (fa == fb || (math.IsNaN(fa) && math.IsNaN(fb)))
	}

	switch va := a.(type) {
	case String:
		vb, ok := b.(String)
		return ok && norm.NFC.String(string(va)) == norm.NFC.String(string(vb))
	case Bool:
		vb, ok := b.(Bool)
		return ok && va == vb
	case Array:
		vb, ok := b.(Array)
		if !ok || len(va) != len(vb) {
			return false
		}
		for i := range va {
			if !equalWalk(va[i], vb[i]) {
				return false
			}
		}
		return true
	case Object:
		vb, ok := b.(Object)
		if !ok {
			return false
		}
		na, nb := nfcKeys(va), nfcKeys(vb)
		if len(na) != len(nb) {
			return false
		}
		for k, v := range na {
			w, ok := nb[k]
			if !ok || !equalWalk(v, w) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func number(v Value) (float64, bool) {
	switch n := v.(type) {
	case Int:
		return float64(n), true
	case Float:
		return float64(n), true
	default:
		return 0, false
	}
}

// nfcKeys re-keys obj by NFC-normalized key, matching how keys are encoded.
func nfcKeys(obj Object) map[string]Value {
	out := make(map[string]Value, len(obj))
	for k, v := range obj {
		out[norm.NFC.String(k)] = v
	}
	return out
}

// Text returns the canonical JSON text of v, or a diagnostic placeholder
// when v cannot be encoded.
func Text(v Value) string {
	data, err := MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("<invalid: %v>", err)
	}
	return string(data)
}
