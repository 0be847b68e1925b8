// Package graph implements the two-tier directed graph underpinning the
// access manager: leaf vertices (users) connect into non-leaf vertices
// (groups), and non-leaf vertices connect among themselves acyclically.
package graph

import (
	"fmt"

	apperrors "appaccess-backend/pkg/errors"
)

// DirectedGraph stores leaf and non-leaf vertex sets and the two edge maps
// between them. When storeBidirectional is set, reverse edges are maintained
// alongside the forward ones, making reverse lookups O(1) at the cost of
// double bookkeeping; otherwise reverse lookups scan the forward maps.
//
// The graph itself is not safe for concurrent use. ConcurrentDirectedGraph in
// the concurrency package layers the locking discipline on top.
type DirectedGraph[L comparable, N comparable] struct {
	storeBidirectional bool

	leafVertices    map[L]struct{}
	nonLeafVertices map[N]struct{}

	leafToNonLeafEdges    map[L]map[N]struct{}
	nonLeafToNonLeafEdges map[N]map[N]struct{}

	// Reverse maps, populated only in bidirectional mode.
	leafToNonLeafReverseEdges    map[N]map[L]struct{}
	nonLeafToNonLeafReverseEdges map[N]map[N]struct{}
}

// NewDirectedGraph creates an empty graph. storeBidirectional selects whether
// reverse edges are stored.
func NewDirectedGraph[L comparable, N comparable](storeBidirectional bool) *DirectedGraph[L, N] {
	g := &DirectedGraph[L, N]{
		storeBidirectional:    storeBidirectional,
		leafVertices:          make(map[L]struct{}),
		nonLeafVertices:       make(map[N]struct{}),
		leafToNonLeafEdges:    make(map[L]map[N]struct{}),
		nonLeafToNonLeafEdges: make(map[N]map[N]struct{}),
	}
	if storeBidirectional {
		g.leafToNonLeafReverseEdges = make(map[N]map[L]struct{})
		g.nonLeafToNonLeafReverseEdges = make(map[N]map[N]struct{})
	}
	return g
}

// StoresBidirectionalEdges reports whether reverse edges are stored.
func (g *DirectedGraph[L, N]) StoresBidirectionalEdges() bool {
	return g.storeBidirectional
}

// LeafVertexCount returns the number of leaf vertices.
func (g *DirectedGraph[L, N]) LeafVertexCount() int { return len(g.leafVertices) }

// NonLeafVertexCount returns the number of non-leaf vertices.
func (g *DirectedGraph[L, N]) NonLeafVertexCount() int { return len(g.nonLeafVertices) }

// LeafVertices returns all leaf vertices in unspecified order.
func (g *DirectedGraph[L, N]) LeafVertices() []L {
	vertices := make([]L, 0, len(g.leafVertices))
	for v := range g.leafVertices {
		vertices = append(vertices, v)
	}
	return vertices
}

// NonLeafVertices returns all non-leaf vertices in unspecified order.
func (g *DirectedGraph[L, N]) NonLeafVertices() []N {
	vertices := make([]N, 0, len(g.nonLeafVertices))
	for v := range g.nonLeafVertices {
		vertices = append(vertices, v)
	}
	return vertices
}

// ContainsLeafVertex reports whether the leaf vertex exists.
func (g *DirectedGraph[L, N]) ContainsLeafVertex(vertex L) bool {
	_, ok := g.leafVertices[vertex]
	return ok
}

// ContainsNonLeafVertex reports whether the non-leaf vertex exists.
func (g *DirectedGraph[L, N]) ContainsNonLeafVertex(vertex N) bool {
	_, ok := g.nonLeafVertices[vertex]
	return ok
}

// AddLeafVertex adds a leaf vertex.
func (g *DirectedGraph[L, N]) AddLeafVertex(vertex L) error {
	if g.ContainsLeafVertex(vertex) {
		return apperrors.NewAlreadyExists("LeafVertex", fmt.Sprintf("%v", vertex))
	}
	g.leafVertices[vertex] = struct{}{}
	return nil
}

// RemoveLeafVertex removes a leaf vertex and all its outgoing edges.
func (g *DirectedGraph[L, N]) RemoveLeafVertex(vertex L) error {
	if !g.ContainsLeafVertex(vertex) {
		return apperrors.NewNotFound("LeafVertex", fmt.Sprintf("%v", vertex))
	}
	if g.storeBidirectional {
		for to := range g.leafToNonLeafEdges[vertex] {
			delete(g.leafToNonLeafReverseEdges[to], vertex)
		}
	}
	delete(g.leafToNonLeafEdges, vertex)
	delete(g.leafVertices, vertex)
	return nil
}

// AddNonLeafVertex adds a non-leaf vertex.
func (g *DirectedGraph[L, N]) AddNonLeafVertex(vertex N) error {
	if g.ContainsNonLeafVertex(vertex) {
		return apperrors.NewAlreadyExists("NonLeafVertex", fmt.Sprintf("%v", vertex))
	}
	g.nonLeafVertices[vertex] = struct{}{}
	return nil
}

// RemoveNonLeafVertex removes a non-leaf vertex together with every incident
// edge. The two callbacks fire once per removed edge, after the removal, so
// higher layers can keep counters consistent under the same lock; either may
// be nil.
func (g *DirectedGraph[L, N]) RemoveNonLeafVertex(
	vertex N,
	leafEdgeRemoved func(from L, to N),
	nonLeafEdgeRemoved func(from, to N),
) error {
	if !g.ContainsNonLeafVertex(vertex) {
		return apperrors.NewNotFound("NonLeafVertex", fmt.Sprintf("%v", vertex))
	}

	// Incoming leaf edges.
	for _, from := range g.leafReverse(vertex) {
		delete(g.leafToNonLeafEdges[from], vertex)
		if g.storeBidirectional {
			delete(g.leafToNonLeafReverseEdges[vertex], from)
		}
		if leafEdgeRemoved != nil {
			leafEdgeRemoved(from, vertex)
		}
	}

	// Incoming non-leaf edges.
	for _, from := range g.nonLeafReverse(vertex) {
		delete(g.nonLeafToNonLeafEdges[from], vertex)
		if g.storeBidirectional {
			delete(g.nonLeafToNonLeafReverseEdges[vertex], from)
		}
		if nonLeafEdgeRemoved != nil {
			nonLeafEdgeRemoved(from, vertex)
		}
	}

	// Outgoing non-leaf edges.
	for to := range g.nonLeafToNonLeafEdges[vertex] {
		if g.storeBidirectional {
			delete(g.nonLeafToNonLeafReverseEdges[to], vertex)
		}
		if nonLeafEdgeRemoved != nil {
			nonLeafEdgeRemoved(vertex, to)
		}
	}
	delete(g.nonLeafToNonLeafEdges, vertex)
	if g.storeBidirectional {
		delete(g.leafToNonLeafReverseEdges, vertex)
		delete(g.nonLeafToNonLeafReverseEdges, vertex)
	}
	delete(g.nonLeafVertices, vertex)
	return nil
}

// AddLeafToNonLeafEdge adds an edge from a leaf vertex to a non-leaf vertex.
func (g *DirectedGraph[L, N]) AddLeafToNonLeafEdge(from L, to N) error {
	if !g.ContainsLeafVertex(from) {
		return apperrors.NewNotFound("LeafVertex", fmt.Sprintf("%v", from))
	}
	if !g.ContainsNonLeafVertex(to) {
		return apperrors.NewNotFound("NonLeafVertex", fmt.Sprintf("%v", to))
	}
	if _, ok := g.leafToNonLeafEdges[from][to]; ok {
		return apperrors.NewAlreadyExists("LeafToNonLeafEdge", fmt.Sprintf("%v->%v", from, to))
	}
	if g.leafToNonLeafEdges[from] == nil {
		g.leafToNonLeafEdges[from] = make(map[N]struct{})
	}
	g.leafToNonLeafEdges[from][to] = struct{}{}
	if g.storeBidirectional {
		if g.leafToNonLeafReverseEdges[to] == nil {
			g.leafToNonLeafReverseEdges[to] = make(map[L]struct{})
		}
		g.leafToNonLeafReverseEdges[to][from] = struct{}{}
	}
	return nil
}

// RemoveLeafToNonLeafEdge removes an edge from a leaf vertex to a non-leaf
// vertex.
func (g *DirectedGraph[L, N]) RemoveLeafToNonLeafEdge(from L, to N) error {
	if !g.ContainsLeafVertex(from) {
		return apperrors.NewNotFound("LeafVertex", fmt.Sprintf("%v", from))
	}
	if !g.ContainsNonLeafVertex(to) {
		return apperrors.NewNotFound("NonLeafVertex", fmt.Sprintf("%v", to))
	}
	if _, ok := g.leafToNonLeafEdges[from][to]; !ok {
		return apperrors.NewNotFound("LeafToNonLeafEdge", fmt.Sprintf("%v->%v", from, to))
	}
	delete(g.leafToNonLeafEdges[from], to)
	if g.storeBidirectional {
		delete(g.leafToNonLeafReverseEdges[to], from)
	}
	return nil
}

// AddNonLeafToNonLeafEdge adds an edge between two non-leaf vertices after
// verifying the edge would not close a cycle: if from is reachable from to,
// the add fails with WouldCreateCycle.
func (g *DirectedGraph[L, N]) AddNonLeafToNonLeafEdge(from, to N) error {
	if !g.ContainsNonLeafVertex(from) {
		return apperrors.NewNotFound("NonLeafVertex", fmt.Sprintf("%v", from))
	}
	if !g.ContainsNonLeafVertex(to) {
		return apperrors.NewNotFound("NonLeafVertex", fmt.Sprintf("%v", to))
	}
	if from == to {
		return apperrors.NewWouldCreateCycle(fmt.Sprintf("%v", from), fmt.Sprintf("%v", to))
	}
	if _, ok := g.nonLeafToNonLeafEdges[from][to]; ok {
		return apperrors.NewAlreadyExists("NonLeafToNonLeafEdge", fmt.Sprintf("%v->%v", from, to))
	}

	reachable := false
	g.TraverseFromNonLeaf(to, func(vertex N) bool {
		if vertex == from {
			reachable = true
			return false
		}
		return true
	})
	if reachable {
		return apperrors.NewWouldCreateCycle(fmt.Sprintf("%v", from), fmt.Sprintf("%v", to))
	}

	if g.nonLeafToNonLeafEdges[from] == nil {
		g.nonLeafToNonLeafEdges[from] = make(map[N]struct{})
	}
	g.nonLeafToNonLeafEdges[from][to] = struct{}{}
	if g.storeBidirectional {
		if g.nonLeafToNonLeafReverseEdges[to] == nil {
			g.nonLeafToNonLeafReverseEdges[to] = make(map[N]struct{})
		}
		g.nonLeafToNonLeafReverseEdges[to][from] = struct{}{}
	}
	return nil
}

// RemoveNonLeafToNonLeafEdge removes an edge between two non-leaf vertices.
func (g *DirectedGraph[L, N]) RemoveNonLeafToNonLeafEdge(from, to N) error {
	if !g.ContainsNonLeafVertex(from) {
		return apperrors.NewNotFound("NonLeafVertex", fmt.Sprintf("%v", from))
	}
	if !g.ContainsNonLeafVertex(to) {
		return apperrors.NewNotFound("NonLeafVertex", fmt.Sprintf("%v", to))
	}
	if _, ok := g.nonLeafToNonLeafEdges[from][to]; !ok {
		return apperrors.NewNotFound("NonLeafToNonLeafEdge", fmt.Sprintf("%v->%v", from, to))
	}
	delete(g.nonLeafToNonLeafEdges[from], to)
	if g.storeBidirectional {
		delete(g.nonLeafToNonLeafReverseEdges[to], from)
	}
	return nil
}

// GetLeafEdges returns the non-leaf vertices the leaf vertex connects to.
func (g *DirectedGraph[L, N]) GetLeafEdges(vertex L) ([]N, error) {
	if !g.ContainsLeafVertex(vertex) {
		return nil, apperrors.NewNotFound("LeafVertex", fmt.Sprintf("%v", vertex))
	}
	edges := make([]N, 0, len(g.leafToNonLeafEdges[vertex]))
	for to := range g.leafToNonLeafEdges[vertex] {
		edges = append(edges, to)
	}
	return edges, nil
}

// GetNonLeafEdges returns the non-leaf vertices the non-leaf vertex connects
// to.
func (g *DirectedGraph[L, N]) GetNonLeafEdges(vertex N) ([]N, error) {
	if !g.ContainsNonLeafVertex(vertex) {
		return nil, apperrors.NewNotFound("NonLeafVertex", fmt.Sprintf("%v", vertex))
	}
	edges := make([]N, 0, len(g.nonLeafToNonLeafEdges[vertex]))
	for to := range g.nonLeafToNonLeafEdges[vertex] {
		edges = append(edges, to)
	}
	return edges, nil
}

// GetLeafReverseEdges returns the leaf vertices with an edge to the given
// non-leaf vertex. O(1) map lookup in bidirectional mode, a full scan of the
// forward edges otherwise.
func (g *DirectedGraph[L, N]) GetLeafReverseEdges(vertex N) ([]L, error) {
	if !g.ContainsNonLeafVertex(vertex) {
		return nil, apperrors.NewNotFound("NonLeafVertex", fmt.Sprintf("%v", vertex))
	}
	return g.leafReverse(vertex), nil
}

// GetNonLeafReverseEdges returns the non-leaf vertices with an edge to the
// given non-leaf vertex.
func (g *DirectedGraph[L, N]) GetNonLeafReverseEdges(vertex N) ([]N, error) {
	if !g.ContainsNonLeafVertex(vertex) {
		return nil, apperrors.NewNotFound("NonLeafVertex", fmt.Sprintf("%v", vertex))
	}
	return g.nonLeafReverse(vertex), nil
}

func (g *DirectedGraph[L, N]) leafReverse(vertex N) []L {
	if g.storeBidirectional {
		froms := make([]L, 0, len(g.leafToNonLeafReverseEdges[vertex]))
		for from := range g.leafToNonLeafReverseEdges[vertex] {
			froms = append(froms, from)
		}
		return froms
	}
	var froms []L
	for from, tos := range g.leafToNonLeafEdges {
		if _, ok := tos[vertex]; ok {
			froms = append(froms, from)
		}
	}
	return froms
}

func (g *DirectedGraph[L, N]) nonLeafReverse(vertex N) []N {
	if g.storeBidirectional {
		froms := make([]N, 0, len(g.nonLeafToNonLeafReverseEdges[vertex]))
		for from := range g.nonLeafToNonLeafReverseEdges[vertex] {
			froms = append(froms, from)
		}
		return froms
	}
	var froms []N
	for from, tos := range g.nonLeafToNonLeafEdges {
		if _, ok := tos[vertex]; ok {
			froms = append(froms, from)
		}
	}
	return froms
}
