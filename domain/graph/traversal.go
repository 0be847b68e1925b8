package graph

import (
	"fmt"

	apperrors "appaccess-backend/pkg/errors"
)

// TraverseFromLeaf walks the transitive closure of non-leaf vertices reachable
// from the leaf vertex, breadth-first. vertexAction runs once per visited
// vertex; returning false stops the traversal.
func (g *DirectedGraph[L, N]) TraverseFromLeaf(start L, vertexAction func(vertex N) bool) error {
	if !g.ContainsLeafVertex(start) {
		return apperrors.NewNotFound("LeafVertex", fmt.Sprintf("%v", start))
	}
	frontier := make([]N, 0, len(g.leafToNonLeafEdges[start]))
	for to := range g.leafToNonLeafEdges[start] {
		frontier = append(frontier, to)
	}
	g.traverse(frontier, vertexAction, g.forwardNeighbours)
	return nil
}

// TraverseFromNonLeaf walks the transitive closure of non-leaf vertices
// reachable from the non-leaf vertex, including the start vertex itself.
func (g *DirectedGraph[L, N]) TraverseFromNonLeaf(start N, vertexAction func(vertex N) bool) error {
	if !g.ContainsNonLeafVertex(start) {
		return apperrors.NewNotFound("NonLeafVertex", fmt.Sprintf("%v", start))
	}
	g.traverse([]N{start}, vertexAction, g.forwardNeighbours)
	return nil
}

// TraverseFromNonLeafReverse walks the reverse transitive closure of the
// non-leaf vertex: every non-leaf vertex from which the start is reachable,
// including the start itself. Without bidirectional storage each step scans
// the forward edge map.
func (g *DirectedGraph[L, N]) TraverseFromNonLeafReverse(start N, vertexAction func(vertex N) bool) error {
	if !g.ContainsNonLeafVertex(start) {
		return apperrors.NewNotFound("NonLeafVertex", fmt.Sprintf("%v", start))
	}
	g.traverse([]N{start}, vertexAction, g.nonLeafReverse)
	return nil
}

func (g *DirectedGraph[L, N]) forwardNeighbours(vertex N) []N {
	neighbours := make([]N, 0, len(g.nonLeafToNonLeafEdges[vertex]))
	for to := range g.nonLeafToNonLeafEdges[vertex] {
		neighbours = append(neighbours, to)
	}
	return neighbours
}

func (g *DirectedGraph[L, N]) traverse(frontier []N, vertexAction func(vertex N) bool, neighbours func(vertex N) []N) {
	visited := make(map[N]struct{}, len(frontier))
	queue := frontier
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if _, seen := visited[current]; seen {
			continue
		}
		visited[current] = struct{}{}
		if !vertexAction(current) {
			return
		}
		queue = append(queue, neighbours(current)...)
	}
}
