package react

import (
	"fmt"

	"github.com/roach88/querybind/internal/value"
)

// Expr is a sealed interface over dependency expression nodes.
// Only Ref, List and Clause implement it. A nil Expr means "watch nothing".
type Expr interface {
	expr() // Sealed
}

// Ref is a leaf term naming another widget by id.
type Ref string

func (Ref) expr() {}

// List is an ordered group of terms. Order is preserved exactly as declared.
type List []Expr

func (List) expr() {}

// Clause combines terms under boolean slots. Any slot may be nil.
type Clause struct {
	And Expr
	Or  Expr
	Not Expr
}

func (Clause) expr() {}

// Slot names used in the object form.
const (
	SlotAnd = "and"
	SlotOr  = "or"
	SlotNot = "not"
)

// Parse converts the object/array/string form of an expression into an Expr.
// Null yields a nil Expr. Unknown object keys and empty references are errors.
func Parse(v value.Value) (Expr, error) {
	switch val := v.(type) {
	case nil, value.Null:
		return nil, nil
	case value.String:
		if val == "" {
			return nil, fmt.Errorf("empty widget reference")
		}
		return Ref(val), nil
	case value.Array:
		list := make(List, 0, len(val))
		for i, elem := range val {
			e, err := Parse(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			if e == nil {
				return nil, fmt.Errorf("[%d]: null term", i)
			}
			list = append(list, e)
		}
		return list, nil
	case value.Object:
		var c Clause
		for _, k := range val.SortedKeys() {
			e, err := Parse(val[k])
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			switch k {
			case SlotAnd:
				c.And = e
			case SlotOr:
				c.Or = e
			case SlotNot:
				c.Not = e
			default:
				return nil, fmt.Errorf("unknown clause key %q (want and, or, not)", k)
			}
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unsupported expression term %T", v)
	}
}

// MustParse is like Parse but panics on error. Use with literal inputs.
func MustParse(v any) Expr {
	val, err := value.FromAny(v)
	if err != nil {
		panic(err)
	}
	e, err := Parse(val)
	if err != nil {
		panic(err)
	}
	return e
}

// ToValue converts an Expr back into its object/array/string form.
func ToValue(e Expr) value.Value {
	switch val := e.(type) {
	case nil:
		return value.Null{}
	case Ref:
		return value.String(val)
	case List:
		arr := make(value.Array, len(val))
		for i, term := range val {
			arr[i] = ToValue(term)
		}
		return arr
	case Clause:
		obj := value.Object{}
		if val.And != nil {
			obj[SlotAnd] = ToValue(val.And)
		}
		if val.Or != nil {
			obj[SlotOr] = ToValue(val.Or)
		}
		if val.Not != nil {
			obj[SlotNot] = ToValue(val.Not)
		}
		return obj
	default:
		return value.Null{}
	}
}

// Equal reports structural equality. Two expressions built independently
// from the same declaration are equal.
func Equal(a, b Expr) bool {
	return value.Equal(ToValue(a), ToValue(b))
}

// String renders e in canonical JSON form for logs and diagnostics.
func String(e Expr) string {
	return value.Text(ToValue(e))
}

// Refs returns every widget id referenced by e in declaration order,
// without duplicates.
func Refs(e Expr) []string {
	var out []string
	seen := make(map[string]bool)
	var walk func(Expr)
	walk = func(e Expr) {
		switch val := e.(type) {
		case Ref:
			if !seen[string(val)] {
				seen[string(val)] = true
				out = append(out, string(val))
			}
		case List:
			for _, term := range val {
				walk(term)
			}
		case Clause:
			walk(val.And)
			walk(val.Or)
			walk(val.Not)
		}
	}
	walk(e)
	return out
}
