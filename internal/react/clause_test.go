package react

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildClauseWithoutCompanion(t *testing.T) {
	declared := MustParse(map[string]any{"and": []any{"a", "b"}})

	assert.Equal(t, declared, BuildClause(declared, ""))
	assert.Nil(t, BuildClause(nil, ""))
}

func TestBuildClauseCompanionOnly(t *testing.T) {
	got := BuildClause(nil, "price__internal")

	assert.Equal(t, Clause{And: Ref("price__internal")}, got)
	assert.Equal(t, `{"and":"price__internal"}`, String(got))
}

func TestBuildClauseAppendsCompanion(t *testing.T) {
	tests := []struct {
		name     string
		declared any
		expected string
	}{
		{
			name:     "and list",
			declared: map[string]any{"and": []any{"a", "b"}},
			expected: `{"and":["a","b","w__internal"]}`,
		},
		{
			name:     "and reference",
			declared: map[string]any{"and": "a"},
			expected: `{"and":["a","w__internal"]}`,
		},
		{
			name:     "nested and clause",
			declared: map[string]any{"and": map[string]any{"and": "a", "or": "b"}},
			expected: `{"and":{"and":["a","w__internal"],"or":"b"}}`,
		},
		{
			name:     "or only keeps or untouched",
			declared: map[string]any{"or": []any{"a", "b"}},
			expected: `{"and":"w__internal","or":["a","b"]}`,
		},
		{
			name:     "not is preserved",
			declared: map[string]any{"and": "a", "not": "c"},
			expected: `{"and":["a","w__internal"],"not":"c"}`,
		},
		{
			name:     "bare reference root",
			declared: "a",
			expected: `{"and":["a","w__internal"]}`,
		},
		{
			name:     "bare list root",
			declared: []any{"a", map[string]any{"or": []any{"b", "c"}}},
			expected: `{"and":["a",{"or":["b","c"]},"w__internal"]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			declared := MustParse(tt.declared)
			got := BuildClause(declared, "w__internal")
			assert.Equal(t, tt.expected, String(got))
		})
	}
}

func TestBuildClauseDoesNotMutateDeclared(t *testing.T) {
	inner := make(List, 2, 8) // spare capacity would be shared by a naive append
	inner[0], inner[1] = Ref("a"), Ref("b")
	declared := Clause{And: inner}

	_ = BuildClause(declared, "x__internal")
	_ = BuildClause(declared, "y__internal")

	assert.Equal(t, `{"and":["a","b"]}`, String(declared))
	assert.Nil(t, inner[:cap(inner)][2], "backing array must stay untouched")
}

func TestBuildClauseIdempotent(t *testing.T) {
	declared := MustParse(map[string]any{"and": []any{"a"}, "or": "b"})

	first := BuildClause(declared, "w__internal")
	second := BuildClause(declared, "w__internal")

	assert.True(t, Equal(first, second))
	assert.Equal(t, []string{"a", "w__internal", "b"}, Refs(first))
}

func TestBuildClauseCompanionIsLastConjunct(t *testing.T) {
	declared := MustParse(map[string]any{"and": []any{"z", "a", "m"}})

	got := BuildClause(declared, "w__internal").(Clause)
	list := got.And.(List)

	require.Len(t, list, 4)
	assert.Equal(t, Ref("w__internal"), list[3])
	assert.Equal(t, List{Ref("z"), Ref("a"), Ref("m")}, list[:3], "declared order preserved")
}
