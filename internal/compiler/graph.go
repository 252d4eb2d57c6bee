package compiler

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/querybind/internal/react"
)

// ReactWarning describes a questionable dependency between widgets.
//
// These are warnings, not errors: a widget may react to a component that is
// registered by a host outside this directory, and widgets that filter each
// other form cycles on purpose.
type ReactWarning struct {
	Widget  string   `json:"widget"`
	Path    []string `json:"path,omitempty"` // Cycle path: ["a", "b", "a"]
	Message string   `json:"message"`
	Level   string   `json:"level"` // "warning" or "info"
}

// Warning levels.
const (
	LevelWarning = "warning"
	LevelInfo    = "info"
)

// AnalyzeReact checks the react expressions of a set of definitions:
//
//  1. references to widgets not defined in the set (warning)
//  2. widgets that react to themselves (warning)
//  3. cycles between widgets (info)
//
// Results are ordered by widget id and are the same on every call.
func AnalyzeReact(defs []*Definition) []ReactWarning {
	graph := buildReactGraph(defs)

	var warnings []ReactWarning
	for _, id := range graph.nodes() {
		for _, ref := range graph[id] {
			if _, defined := graph[ref]; !defined {
				warnings = append(warnings, ReactWarning{
					Widget:  id,
					Message: fmt.Sprintf("%s reacts to %s, which is not defined here", id, ref),
					Level:   LevelWarning,
				})
			}
		}
	}

	for _, scc := range tarjanSCC(graph) {
		switch {
		case len(scc) == 1 && graph.hasSelfLoop(scc[0]):
			id := scc[0]
			warnings = append(warnings, ReactWarning{
				Widget:  id,
				Path:    []string{id, id},
				Message: fmt.Sprintf("%s reacts to itself", id),
				Level:   LevelWarning,
			})
		case len(scc) > 1:
			path := reconstructCyclePath(scc, graph)
			warnings = append(warnings, ReactWarning{
				Widget:  path[0],
				Path:    path,
				Message: fmt.Sprintf("widgets react to each other: %s", strings.Join(path, " → ")),
				Level:   LevelInfo,
			})
		}
	}

	slices.SortStableFunc(warnings, func(a, b ReactWarning) int {
		return strings.Compare(a.Widget, b.Widget)
	})
	return warnings
}

// reactGraph maps widget id → ids it reacts to, sorted and deduplicated.
type reactGraph map[string][]string

func buildReactGraph(defs []*Definition) reactGraph {
	graph := make(reactGraph, len(defs))
	for _, def := range defs {
		refs := react.Refs(def.React)
		slices.Sort(refs)
		graph[def.ID] = slices.Compact(refs)
	}
	return graph
}

func (g reactGraph) nodes() []string {
	nodes := make([]string, 0, len(g))
	for id := range g {
		nodes = append(nodes, id)
	}
	slices.Sort(nodes)
	return nodes
}

func (g reactGraph) hasSelfLoop(node string) bool {
	return slices.Contains(g[node], node)
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
// Nodes are visited in sorted order; each SCC is returned sorted. Edges to
// undefined widgets are ignored.
func tarjanSCC(graph reactGraph) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, defined := graph[w]; !defined {
				continue
			}
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// v is a root node: pop the stack into an SCC
		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			slices.Sort(scc)
			sccs = append(sccs, scc)
		}
	}

	for _, node := range graph.nodes() {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}

	return sccs
}

// reconstructCyclePath walks from the first SCC member along edges inside the
// SCC until it returns to the start or runs out of unvisited members.
func reconstructCyclePath(scc []string, graph reactGraph) []string {
	members := make(map[string]bool, len(scc))
	for _, node := range scc {
		members[node] = true
	}

	start := scc[0]
	current := start
	path := []string{current}
	visited := make(map[string]bool)

	for {
		visited[current] = true

		var next string
		for _, neighbor := range graph[current] {
			if members[neighbor] && (!visited[neighbor] || neighbor == start) {
				next = neighbor
				break
			}
		}
		if next == "" {
			break
		}

		path = append(path, next)
		if next == start {
			break
		}
		current = next
	}

	return path
}
