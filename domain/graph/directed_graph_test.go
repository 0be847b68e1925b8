package graph

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "appaccess-backend/pkg/errors"
)

func newTestGraph(bidirectional bool) *DirectedGraph[string, string] {
	return NewDirectedGraph[string, string](bidirectional)
}

func sorted(values []string) []string {
	sort.Strings(values)
	return values
}

func TestAddAndRemoveLeafVertex(t *testing.T) {
	g := newTestGraph(false)

	require.NoError(t, g.AddLeafVertex("u1"))
	assert.True(t, g.ContainsLeafVertex("u1"))
	assert.Equal(t, 1, g.LeafVertexCount())

	err := g.AddLeafVertex("u1")
	assert.True(t, apperrors.IsAlreadyExists(err))

	require.NoError(t, g.RemoveLeafVertex("u1"))
	assert.False(t, g.ContainsLeafVertex("u1"))

	err = g.RemoveLeafVertex("u1")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestAddLeafToNonLeafEdge_Validation(t *testing.T) {
	g := newTestGraph(false)
	require.NoError(t, g.AddLeafVertex("u1"))
	require.NoError(t, g.AddNonLeafVertex("g1"))

	assert.True(t, apperrors.IsNotFound(g.AddLeafToNonLeafEdge("missing", "g1")))
	assert.True(t, apperrors.IsNotFound(g.AddLeafToNonLeafEdge("u1", "missing")))

	require.NoError(t, g.AddLeafToNonLeafEdge("u1", "g1"))
	assert.True(t, apperrors.IsAlreadyExists(g.AddLeafToNonLeafEdge("u1", "g1")))

	edges, err := g.GetLeafEdges("u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"g1"}, edges)
}

func TestAddNonLeafToNonLeafEdge_RejectsCycles(t *testing.T) {
	g := newTestGraph(false)
	for _, group := range []string{"a", "b", "c"} {
		require.NoError(t, g.AddNonLeafVertex(group))
	}
	require.NoError(t, g.AddNonLeafToNonLeafEdge("a", "b"))
	require.NoError(t, g.AddNonLeafToNonLeafEdge("b", "c"))

	err := g.AddNonLeafToNonLeafEdge("c", "a")
	assert.True(t, apperrors.IsWouldCreateCycle(err))

	// Self edges are cycles too.
	assert.True(t, apperrors.IsWouldCreateCycle(g.AddNonLeafToNonLeafEdge("a", "a")))

	// The rejected edge must not have been stored.
	edges, err := g.GetNonLeafEdges("c")
	require.NoError(t, err)
	assert.Empty(t, edges)
}

func TestReverseEdges_BidirectionalAndScan(t *testing.T) {
	for _, bidirectional := range []bool{true, false} {
		g := newTestGraph(bidirectional)
		require.NoError(t, g.AddLeafVertex("u1"))
		require.NoError(t, g.AddLeafVertex("u2"))
		require.NoError(t, g.AddNonLeafVertex("g1"))
		require.NoError(t, g.AddNonLeafVertex("g2"))
		require.NoError(t, g.AddLeafToNonLeafEdge("u1", "g1"))
		require.NoError(t, g.AddLeafToNonLeafEdge("u2", "g1"))
		require.NoError(t, g.AddNonLeafToNonLeafEdge("g1", "g2"))

		leaves, err := g.GetLeafReverseEdges("g1")
		require.NoError(t, err)
		assert.Equal(t, []string{"u1", "u2"}, sorted(leaves))

		groups, err := g.GetNonLeafReverseEdges("g2")
		require.NoError(t, err)
		assert.Equal(t, []string{"g1"}, groups)
	}
}

func TestRemoveNonLeafVertex_CascadesWithCallbacks(t *testing.T) {
	g := newTestGraph(true)
	require.NoError(t, g.AddLeafVertex("u1"))
	require.NoError(t, g.AddNonLeafVertex("g1"))
	require.NoError(t, g.AddNonLeafVertex("g2"))
	require.NoError(t, g.AddNonLeafVertex("g3"))
	require.NoError(t, g.AddLeafToNonLeafEdge("u1", "g2"))
	require.NoError(t, g.AddNonLeafToNonLeafEdge("g1", "g2"))
	require.NoError(t, g.AddNonLeafToNonLeafEdge("g2", "g3"))

	var removedLeafEdges, removedNonLeafEdges []string
	require.NoError(t, g.RemoveNonLeafVertex("g2",
		func(from string, to string) { removedLeafEdges = append(removedLeafEdges, from+"->"+to) },
		func(from, to string) { removedNonLeafEdges = append(removedNonLeafEdges, from+"->"+to) },
	))

	assert.Equal(t, []string{"u1->g2"}, removedLeafEdges)
	assert.Equal(t, []string{"g1->g2", "g2->g3"}, sorted(removedNonLeafEdges))
	assert.False(t, g.ContainsNonLeafVertex("g2"))

	// No dangling edges remain.
	edges, err := g.GetLeafEdges("u1")
	require.NoError(t, err)
	assert.Empty(t, edges)
	edges, err = g.GetNonLeafEdges("g1")
	require.NoError(t, err)
	assert.Empty(t, edges)
	leaves, err := g.GetLeafReverseEdges("g3")
	require.NoError(t, err)
	assert.Empty(t, leaves)
}

func TestRemoveLeafVertex_RemovesReverseEntries(t *testing.T) {
	g := newTestGraph(true)
	require.NoError(t, g.AddLeafVertex("u1"))
	require.NoError(t, g.AddNonLeafVertex("g1"))
	require.NoError(t, g.AddLeafToNonLeafEdge("u1", "g1"))

	require.NoError(t, g.RemoveLeafVertex("u1"))

	leaves, err := g.GetLeafReverseEdges("g1")
	require.NoError(t, err)
	assert.Empty(t, leaves)
}

func TestTraverseFromLeaf_VisitsTransitiveClosure(t *testing.T) {
	g := newTestGraph(false)
	require.NoError(t, g.AddLeafVertex("u1"))
	for _, group := range []string{"g1", "g2", "g3", "unreachable"} {
		require.NoError(t, g.AddNonLeafVertex(group))
	}
	require.NoError(t, g.AddLeafToNonLeafEdge("u1", "g1"))
	require.NoError(t, g.AddNonLeafToNonLeafEdge("g1", "g2"))
	require.NoError(t, g.AddNonLeafToNonLeafEdge("g2", "g3"))
	require.NoError(t, g.AddNonLeafToNonLeafEdge("g1", "g3")) // diamond, g3 visited once

	var visited []string
	require.NoError(t, g.TraverseFromLeaf("u1", func(vertex string) bool {
		visited = append(visited, vertex)
		return true
	}))

	assert.Equal(t, []string{"g1", "g2", "g3"}, sorted(visited))
}

func TestTraverseFromLeaf_StopsWhenActionReturnsFalse(t *testing.T) {
	g := newTestGraph(false)
	require.NoError(t, g.AddLeafVertex("u1"))
	for _, group := range []string{"g1", "g2"} {
		require.NoError(t, g.AddNonLeafVertex(group))
		require.NoError(t, g.AddLeafToNonLeafEdge("u1", group))
	}

	count := 0
	require.NoError(t, g.TraverseFromLeaf("u1", func(string) bool {
		count++
		return false
	}))

	assert.Equal(t, 1, count)
}

func TestTraverseFromNonLeafReverse(t *testing.T) {
	g := newTestGraph(true)
	for _, group := range []string{"g1", "g2", "g3"} {
		require.NoError(t, g.AddNonLeafVertex(group))
	}
	require.NoError(t, g.AddNonLeafToNonLeafEdge("g1", "g2"))
	require.NoError(t, g.AddNonLeafToNonLeafEdge("g2", "g3"))

	var visited []string
	require.NoError(t, g.TraverseFromNonLeafReverse("g3", func(vertex string) bool {
		visited = append(visited, vertex)
		return true
	}))

	assert.Equal(t, []string{"g1", "g2", "g3"}, sorted(visited))
}

func TestTraversal_MissingVertexFails(t *testing.T) {
	g := newTestGraph(false)
	assert.True(t, apperrors.IsNotFound(g.TraverseFromLeaf("nope", func(string) bool { return true })))
	assert.True(t, apperrors.IsNotFound(g.TraverseFromNonLeaf("nope", func(string) bool { return true })))
}
