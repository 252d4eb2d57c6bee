package react

// BuildClause returns the effective dependency clause registered with the
// store for a widget whose declared expression is declared and whose hidden
// companion id is companion ("" when the widget has none).
//
//   - no companion: declared is returned unchanged (nil means watch nothing)
//   - companion, nothing declared: {and: companion}
//   - companion and declared: companion appended as the last and-conjunct
//
// The declared expression is never mutated and the companion is always the
// newly appended term; existing structure is preserved. Calling BuildClause
// again with unchanged inputs yields a structurally equal result.
func BuildClause(declared Expr, companion string) Expr {
	if companion == "" {
		return declared
	}
	if declared == nil {
		return Clause{And: Ref(companion)}
	}
	return pushToAnd(declared, Ref(companion))
}

func pushToAnd(e Expr, term Ref) Expr {
	switch val := e.(type) {
	case Clause:
		out := val
		switch and := val.And.(type) {
		case nil:
			out.And = term
		case Ref:
			out.And = List{and, term}
		case List:
			out.And = appendTerm(and, term)
		case Clause:
			out.And = pushToAnd(and, term)
		}
		return out
	case Ref:
		return Clause{And: List{val, term}}
	case List:
		return Clause{And: appendTerm(val, term)}
	default:
		return Clause{And: term}
	}
}

// appendTerm copies list before appending so the caller's backing array is
// never shared with the result.
func appendTerm(list List, term Expr) List {
	out := make(List, 0, len(list)+1)
	out = append(out, list...)
	return append(out, term)
}
