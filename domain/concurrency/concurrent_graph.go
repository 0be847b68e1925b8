package concurrency

import (
	"appaccess-backend/domain/graph"
)

// ConcurrentDirectedGraph wraps a DirectedGraph with the four-lock discipline:
// one lock per vertex set, one per edge map, edge locks depending on the
// vertex locks they span. Add operations acquire the target lock and its
// dependencies; remove operations acquire the target lock and its dependents.
//
// When bypass is set no locks are taken at all. That mode is for embedding in
// a higher layer, such as the access manager, which already serializes
// mutations under equivalent locks of its own.
type ConcurrentDirectedGraph[L comparable, N comparable] struct {
	graph  *graph.DirectedGraph[L, N]
	locks  *LockManager
	bypass bool
}

// NewConcurrentDirectedGraph wraps the given graph. bypassLocking disables all
// lock acquisition.
func NewConcurrentDirectedGraph[L comparable, N comparable](g *graph.DirectedGraph[L, N], bypassLocking bool) *ConcurrentDirectedGraph[L, N] {
	locks := NewLockManager()
	// Registration order is the global acquisition order: vertices before the
	// edges that span them.
	for _, name := range []LockName{LockLeafVertices, LockNonLeafVertices, LockLeafToNonLeafEdges, LockNonLeafToNonLeafEdges} {
		// Names are fixed, registration cannot fail.
		_ = locks.RegisterLock(name)
	}
	_ = locks.RegisterLockDependency(LockLeafToNonLeafEdges, LockLeafVertices)
	_ = locks.RegisterLockDependency(LockLeafToNonLeafEdges, LockNonLeafVertices)
	_ = locks.RegisterLockDependency(LockNonLeafToNonLeafEdges, LockNonLeafVertices)

	return &ConcurrentDirectedGraph[L, N]{graph: g, locks: locks, bypass: bypassLocking}
}

// Locks exposes the lock manager so an embedding layer can take the same
// locks around composite operations.
func (c *ConcurrentDirectedGraph[L, N]) Locks() *LockManager {
	return c.locks
}

// Graph returns the wrapped graph. Callers must hold appropriate locks unless
// the wrapper runs in bypass mode.
func (c *ConcurrentDirectedGraph[L, N]) Graph() *graph.DirectedGraph[L, N] {
	return c.graph
}

func (c *ConcurrentDirectedGraph[L, N]) withDependencies(name LockName, fn func() error) error {
	if !c.bypass {
		release := c.locks.LockObjectAndDependencies(name)
		defer release()
	}
	return fn()
}

func (c *ConcurrentDirectedGraph[L, N]) withDependents(name LockName, fn func() error) error {
	if !c.bypass {
		release := c.locks.LockObjectAndDependents(name)
		defer release()
	}
	return fn()
}

func (c *ConcurrentDirectedGraph[L, N]) withRead(name LockName, fn func()) {
	if !c.bypass {
		release := c.locks.RLockObjectAndDependencies(name)
		defer release()
	}
	fn()
}

// AddLeafVertex adds a leaf vertex under the leaf vertex lock.
func (c *ConcurrentDirectedGraph[L, N]) AddLeafVertex(vertex L) error {
	return c.withDependencies(LockLeafVertices, func() error {
		return c.graph.AddLeafVertex(vertex)
	})
}

// RemoveLeafVertex removes a leaf vertex, blocking edge modifications that
// refer to it.
func (c *ConcurrentDirectedGraph[L, N]) RemoveLeafVertex(vertex L) error {
	return c.withDependents(LockLeafVertices, func() error {
		return c.graph.RemoveLeafVertex(vertex)
	})
}

// AddNonLeafVertex adds a non-leaf vertex under the non-leaf vertex lock.
func (c *ConcurrentDirectedGraph[L, N]) AddNonLeafVertex(vertex N) error {
	return c.withDependencies(LockNonLeafVertices, func() error {
		return c.graph.AddNonLeafVertex(vertex)
	})
}

// RemoveNonLeafVertex removes a non-leaf vertex and its incident edges. The
// callbacks run under the same lock set as the removal.
func (c *ConcurrentDirectedGraph[L, N]) RemoveNonLeafVertex(
	vertex N,
	leafEdgeRemoved func(from L, to N),
	nonLeafEdgeRemoved func(from, to N),
) error {
	return c.withDependents(LockNonLeafVertices, func() error {
		return c.graph.RemoveNonLeafVertex(vertex, leafEdgeRemoved, nonLeafEdgeRemoved)
	})
}

// AddLeafToNonLeafEdge adds an edge holding the edge lock and both vertex
// locks it spans.
func (c *ConcurrentDirectedGraph[L, N]) AddLeafToNonLeafEdge(from L, to N) error {
	return c.withDependencies(LockLeafToNonLeafEdges, func() error {
		return c.graph.AddLeafToNonLeafEdge(from, to)
	})
}

// RemoveLeafToNonLeafEdge removes an edge under the edge lock.
func (c *ConcurrentDirectedGraph[L, N]) RemoveLeafToNonLeafEdge(from L, to N) error {
	return c.withDependents(LockLeafToNonLeafEdges, func() error {
		return c.graph.RemoveLeafToNonLeafEdge(from, to)
	})
}

// AddNonLeafToNonLeafEdge adds an edge between non-leaf vertices, including
// the cycle check, under the edge lock and the non-leaf vertex lock.
func (c *ConcurrentDirectedGraph[L, N]) AddNonLeafToNonLeafEdge(from, to N) error {
	return c.withDependencies(LockNonLeafToNonLeafEdges, func() error {
		return c.graph.AddNonLeafToNonLeafEdge(from, to)
	})
}

// RemoveNonLeafToNonLeafEdge removes an edge between non-leaf vertices.
func (c *ConcurrentDirectedGraph[L, N]) RemoveNonLeafToNonLeafEdge(from, to N) error {
	return c.withDependents(LockNonLeafToNonLeafEdges, func() error {
		return c.graph.RemoveNonLeafToNonLeafEdge(from, to)
	})
}

// ContainsLeafVertex reports whether the leaf vertex exists.
func (c *ConcurrentDirectedGraph[L, N]) ContainsLeafVertex(vertex L) bool {
	var ok bool
	c.withRead(LockLeafVertices, func() { ok = c.graph.ContainsLeafVertex(vertex) })
	return ok
}

// ContainsNonLeafVertex reports whether the non-leaf vertex exists.
func (c *ConcurrentDirectedGraph[L, N]) ContainsNonLeafVertex(vertex N) bool {
	var ok bool
	c.withRead(LockNonLeafVertices, func() { ok = c.graph.ContainsNonLeafVertex(vertex) })
	return ok
}

// GetLeafEdges returns the non-leaf vertices the leaf vertex connects to.
func (c *ConcurrentDirectedGraph[L, N]) GetLeafEdges(vertex L) ([]N, error) {
	var (
		edges []N
		err   error
	)
	c.withRead(LockLeafToNonLeafEdges, func() { edges, err = c.graph.GetLeafEdges(vertex) })
	return edges, err
}

// GetNonLeafEdges returns the non-leaf vertices the non-leaf vertex connects
// to.
func (c *ConcurrentDirectedGraph[L, N]) GetNonLeafEdges(vertex N) ([]N, error) {
	var (
		edges []N
		err   error
	)
	c.withRead(LockNonLeafToNonLeafEdges, func() { edges, err = c.graph.GetNonLeafEdges(vertex) })
	return edges, err
}

// GetLeafReverseEdges returns the leaf vertices connected to the non-leaf
// vertex.
func (c *ConcurrentDirectedGraph[L, N]) GetLeafReverseEdges(vertex N) ([]L, error) {
	var (
		edges []L
		err   error
	)
	c.withRead(LockLeafToNonLeafEdges, func() { edges, err = c.graph.GetLeafReverseEdges(vertex) })
	return edges, err
}

// GetNonLeafReverseEdges returns the non-leaf vertices connected to the
// non-leaf vertex.
func (c *ConcurrentDirectedGraph[L, N]) GetNonLeafReverseEdges(vertex N) ([]N, error) {
	var (
		edges []N
		err   error
	)
	c.withRead(LockNonLeafToNonLeafEdges, func() { edges, err = c.graph.GetNonLeafReverseEdges(vertex) })
	return edges, err
}

// TraverseFromLeaf walks the non-leaf closure reachable from the leaf vertex
// under read locks on both edge maps and the vertices they span.
func (c *ConcurrentDirectedGraph[L, N]) TraverseFromLeaf(start L, vertexAction func(vertex N) bool) error {
	if !c.bypass {
		release := c.locks.RLockObjectsAndDependencies(LockLeafToNonLeafEdges, LockNonLeafToNonLeafEdges)
		defer release()
	}
	return c.graph.TraverseFromLeaf(start, vertexAction)
}
