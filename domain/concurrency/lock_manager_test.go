package concurrency

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"appaccess-backend/domain/graph"
)

func newRegisteredManager(t *testing.T) *LockManager {
	t.Helper()
	m := NewLockManager()
	for _, name := range []LockName{LockLeafVertices, LockNonLeafVertices, LockLeafToNonLeafEdges, LockNonLeafToNonLeafEdges} {
		require.NoError(t, m.RegisterLock(name))
	}
	require.NoError(t, m.RegisterLockDependency(LockLeafToNonLeafEdges, LockLeafVertices))
	require.NoError(t, m.RegisterLockDependency(LockLeafToNonLeafEdges, LockNonLeafVertices))
	require.NoError(t, m.RegisterLockDependency(LockNonLeafToNonLeafEdges, LockNonLeafVertices))
	return m
}

func TestRegisterLock_DuplicateFails(t *testing.T) {
	m := NewLockManager()
	require.NoError(t, m.RegisterLock(LockLeafVertices))
	assert.Error(t, m.RegisterLock(LockLeafVertices))
}

func TestRegisterLockDependency_UnknownLockFails(t *testing.T) {
	m := NewLockManager()
	require.NoError(t, m.RegisterLock(LockLeafVertices))
	assert.Error(t, m.RegisterLockDependency(LockLeafVertices, "unknown"))
	assert.Error(t, m.RegisterLockDependency("unknown", LockLeafVertices))
}

func TestObjectAndDependencies_CoversVertexLocks(t *testing.T) {
	m := newRegisteredManager(t)

	names := m.objectAndDependencies(LockLeafToNonLeafEdges)

	assert.Equal(t, []LockName{LockLeafVertices, LockNonLeafVertices, LockLeafToNonLeafEdges}, names)
}

func TestObjectAndDependents_CoversEdgeLocks(t *testing.T) {
	m := newRegisteredManager(t)

	names := m.objectAndDependents(LockNonLeafVertices)

	assert.Equal(t, []LockName{LockNonLeafVertices, LockLeafToNonLeafEdges, LockNonLeafToNonLeafEdges}, names)
}

func TestLockObjectAndDependents_BlocksDependentWriter(t *testing.T) {
	m := newRegisteredManager(t)

	release := m.LockObjectAndDependents(LockNonLeafVertices)

	acquired := make(chan struct{})
	go func() {
		edgeRelease := m.LockObjectAndDependencies(LockNonLeafToNonLeafEdges)
		close(acquired)
		edgeRelease()
	}()

	select {
	case <-acquired:
		t.Fatal("edge writer acquired locks while vertex remove held them")
	case <-time.After(50 * time.Millisecond):
	}

	release()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("edge writer never acquired locks after release")
	}
}

func TestReadersRunConcurrently(t *testing.T) {
	m := newRegisteredManager(t)

	const readers = 8
	var wg sync.WaitGroup
	inside := make(chan struct{}, readers)
	proceed := make(chan struct{})

	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release := m.RLockObjectAndDependencies(LockLeafToNonLeafEdges)
			inside <- struct{}{}
			<-proceed
			release()
		}()
	}

	for i := 0; i < readers; i++ {
		select {
		case <-inside:
		case <-time.After(time.Second):
			t.Fatal("readers did not run concurrently")
		}
	}
	close(proceed)
	wg.Wait()
}

func TestConcurrentGraph_NoRaceUnderMixedLoad(t *testing.T) {
	g := NewConcurrentDirectedGraph(graph.NewDirectedGraph[string, string](true), false)
	require.NoError(t, g.AddLeafVertex("u1"))
	require.NoError(t, g.AddNonLeafVertex("g1"))
	require.NoError(t, g.AddLeafToNonLeafEdge("u1", "g1"))

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				g.ContainsLeafVertex("u1")
				_, _ = g.GetLeafEdges("u1")
				_ = g.TraverseFromLeaf("u1", func(string) bool { return true })
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = g.AddNonLeafVertex("tmp")
				_ = g.AddNonLeafToNonLeafEdge("g1", "tmp")
				_ = g.RemoveNonLeafVertex("tmp", nil, nil)
			}
		}()
	}
	wg.Wait()
}

func TestConcurrentGraph_BypassSkipsLocking(t *testing.T) {
	g := NewConcurrentDirectedGraph(graph.NewDirectedGraph[string, string](false), true)

	// Hold every lock; bypass mode must not block.
	release := g.Locks().LockAll()
	defer release()

	done := make(chan error, 1)
	go func() {
		done <- g.AddLeafVertex("u1")
	}()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("bypass mode attempted to acquire locks")
	}
}
