// Package react models dependency expressions: the boolean clauses that tell
// the query store which other widgets' selected values gate a widget's query.
//
// An expression is written the same way in CUE, YAML and JSON:
//
//	react: {
//	    and: ["category", {or: ["brand", "color"]}]
//	    not: "outOfStock"
//	}
//
// A string is a leaf reference to a widget id, a list groups terms, and an
// object combines terms under and/or/not slots. BuildClause augments a
// declared expression with a widget's hidden companion before it is handed to
// the store.
package react
