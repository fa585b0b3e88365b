// Package graph computes dependency-respecting execution orders over a
// workflow's connection graph, with support for partial target subsets
// and forward-reachability queries.
package graph

import "fmt"

// Edge is a directed dependency: From must execute before To.
type Edge struct {
	From string
	To   string
}

// CycleError reports a dependency cycle, naming one participating node.
type CycleError struct {
	NodeID string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle detected involving node %s", e.NodeID)
}

// Graph holds a node set (in insertion order) and its dependency edges.
type Graph struct {
	order []string
	nodes map[string]bool
	edges []Edge
}

// New creates a graph from node ids in insertion order and dependency
// edges. Duplicate nodes and edges referencing unknown nodes are ignored.
func New(nodeIDs []string, edges []Edge) *Graph {
	nodes := make(map[string]bool, len(nodeIDs))
	order := make([]string, 0, len(nodeIDs))
	for _, id := range nodeIDs {
		if nodes[id] {
			continue
		}
		nodes[id] = true
		order = append(order, id)
	}
	kept := make([]Edge, 0, len(edges))
	for _, edge := range edges {
		if nodes[edge.From] && nodes[edge.To] {
			kept = append(kept, edge)
		}
	}
	return &Graph{order: order, nodes: nodes, edges: kept}
}

// Sort returns a topological order of the target subset: for every edge
// (u -> v) with both ends in the subset, u precedes v. Nodes with no
// dependency relationship keep their insertion order, so the result is
// deterministic. A nil target means all nodes. A cycle within the subset
// yields a *CycleError and no partial order.
func (g *Graph) Sort(target map[string]bool) ([]string, error) {
	inSubset := func(id string) bool {
		return target == nil || target[id]
	}

	// Kahn's algorithm restricted to the subset. Only edges with both
	// endpoints in the subset constrain the order.
	inDegree := make(map[string]int)
	successors := make(map[string][]string)
	var subset []string
	for _, id := range g.order {
		if inSubset(id) {
			subset = append(subset, id)
			inDegree[id] = 0
		}
	}
	for _, edge := range g.edges {
		if !inSubset(edge.From) || !inSubset(edge.To) {
			continue
		}
		inDegree[edge.To]++
		successors[edge.From] = append(successors[edge.From], edge.To)
	}

	var queue []string
	for _, id := range subset {
		if inDegree[id] == 0 {
			queue = append(queue, id)
		}
	}

	result := make([]string, 0, len(subset))
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		result = append(result, current)
		for _, next := range successors[current] {
			inDegree[next]--
			if inDegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	if len(result) != len(subset) {
		// Every leftover node sits on or behind a cycle; name the first
		// leftover in insertion order for a stable error message.
		ordered := make(map[string]bool, len(result))
		for _, id := range result {
			ordered[id] = true
		}
		for _, id := range subset {
			if !ordered[id] {
				return nil, &CycleError{NodeID: id}
			}
		}
	}
	return result, nil
}

// Descendants returns the set of nodes reachable forward from the given
// node via edges, excluding the node itself.
func (g *Graph) Descendants(nodeID string) map[string]bool {
	successors := make(map[string][]string)
	for _, edge := range g.edges {
		successors[edge.From] = append(successors[edge.From], edge.To)
	}
	visited := make(map[string]bool)
	stack := []string{nodeID}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, next := range successors[current] {
			if !visited[next] {
				visited[next] = true
				stack = append(stack, next)
			}
		}
	}
	delete(visited, nodeID)
	return visited
}

// Contains reports whether the graph holds the given node.
func (g *Graph) Contains(nodeID string) bool {
	return g.nodes[nodeID]
}
