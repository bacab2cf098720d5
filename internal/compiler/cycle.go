package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/classkit/internal/ir"
)

// InheritanceCycleError reports classes that (transitively) extend
// themselves.
type InheritanceCycleError struct {
	Path []string `json:"path"` // e.g. ["A", "B", "A"]
}

func (e *InheritanceCycleError) Error() string {
	return fmt.Sprintf("inheritance cycle: %s", strings.Join(e.Path, " → "))
}

// UnknownParentError reports an extends entry naming no declared class.
type UnknownParentError struct {
	Class  string
	Parent string
}

func (e *UnknownParentError) Error() string {
	return fmt.Sprintf("class %s extends unknown class %q", e.Class, e.Parent)
}

// DuplicateClassError reports a class name declared twice.
type DuplicateClassError struct {
	Name string
}

func (e *DuplicateClassError) Error() string {
	return fmt.Sprintf("class %q declared more than once", e.Name)
}

// Order returns specs sorted so every class follows all of its parents.
// Among independent classes declaration order is kept.
//
// The algorithm:
//  1. Build the class → parents graph from extends
//  2. Use Tarjan's algorithm to find strongly connected components
//  3. Report the first SCC with size > 1 or a self-loop as a cycle
//  4. Otherwise emit classes in depth-first post-order
func Order(specs []ir.ClassSpec) ([]ir.ClassSpec, error) {
	byName := make(map[string]ir.ClassSpec, len(specs))
	nodes := make([]string, 0, len(specs))
	for _, s := range specs {
		if _, dup := byName[s.Name]; dup {
			return nil, &DuplicateClassError{Name: s.Name}
		}
		byName[s.Name] = s
		nodes = append(nodes, s.Name)
	}

	graph := make(dependencyGraph, len(specs))
	for _, s := range specs {
		graph[s.Name] = []string{}
		for _, p := range s.Extends {
			if _, ok := byName[p]; !ok {
				return nil, &UnknownParentError{Class: s.Name, Parent: p}
			}
			graph[s.Name] = append(graph[s.Name], p)
		}
	}

	for _, scc := range tarjanSCC(nodes, graph) {
		if len(scc) > 1 || hasSelfLoop(scc[0], graph) {
			return nil, &InheritanceCycleError{Path: reconstructCyclePath(scc, graph)}
		}
	}

	ordered := make([]ir.ClassSpec, 0, len(specs))
	done := make(map[string]bool, len(specs))
	var visit func(string)
	visit = func(name string) {
		if done[name] {
			return
		}
		done[name] = true
		for _, p := range graph[name] {
			visit(p)
		}
		ordered = append(ordered, byName[name])
	}
	for _, name := range nodes {
		visit(name)
	}
	return ordered, nil
}

// dependencyGraph maps class name → direct parents.
type dependencyGraph map[string][]string

func hasSelfLoop(node string, graph dependencyGraph) bool {
	for _, neighbor := range graph[node] {
		if neighbor == node {
			return true
		}
	}
	return false
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm,
// visiting roots in the order of nodes.
func tarjanSCC(nodes []string, graph dependencyGraph) [][]string {
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
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

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
			sccs = append(sccs, scc)
		}
	}

	for _, node := range nodes {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}
	return sccs
}

// reconstructCyclePath walks edges inside scc from its first member until
// it returns there. A self-loop yields [node, node].
func reconstructCyclePath(scc []string, graph dependencyGraph) []string {
	if len(scc) == 1 {
		return []string{scc[0], scc[0]}
	}

	inSCC := make(map[string]bool, len(scc))
	for _, node := range scc {
		inSCC[node] = true
	}

	start := scc[len(scc)-1]
	current := start
	path := []string{current}
	visited := make(map[string]bool)
	for {
		visited[current] = true
		var next string
		for _, neighbor := range graph[current] {
			if inSCC[neighbor] && (!visited[neighbor] || neighbor == start) {
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
