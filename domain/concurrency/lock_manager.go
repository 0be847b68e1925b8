// Package concurrency provides the multi-reader / single-writer locking layer
// around the directed graph. Locks are named, registered together with their
// dependencies, and always acquired in registration order, which makes the
// acquisition order globally consistent and deadlock free.
package concurrency

import (
	"fmt"
	"sync"
)

// LockName identifies a registered lock.
type LockName string

// Names of the four graph locks.
const (
	LockLeafVertices          LockName = "leafVertices"
	LockNonLeafVertices       LockName = "nonLeafVertices"
	LockLeafToNonLeafEdges    LockName = "leafToNonLeafEdges"
	LockNonLeafToNonLeafEdges LockName = "nonLeafToNonLeafEdges"
)

// LockManager holds a set of named reader/writer locks plus a dependency
// registry between them. Two acquisition patterns are supported:
//
//   - ObjectAndDependencies: the named lock plus every lock it (transitively)
//     depends on. Used by add operations, which need their endpoints stable.
//   - ObjectAndDependents: the named lock plus every lock that (transitively)
//     depends on it. Used by remove operations, which must block edge
//     modifications referring to the removed object.
type LockManager struct {
	mu           sync.Mutex
	locks        map[LockName]*sync.RWMutex
	order        map[LockName]int
	registration []LockName
	dependencies map[LockName][]LockName
}

// NewLockManager creates an empty lock manager.
func NewLockManager() *LockManager {
	return &LockManager{
		locks:        make(map[LockName]*sync.RWMutex),
		order:        make(map[LockName]int),
		dependencies: make(map[LockName][]LockName),
	}
}

// RegisterLock registers a named lock. Registration order defines the global
// acquisition order.
func (m *LockManager) RegisterLock(name LockName) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.locks[name]; ok {
		return fmt.Errorf("lock %q is already registered", name)
	}
	m.locks[name] = &sync.RWMutex{}
	m.order[name] = len(m.registration)
	m.registration = append(m.registration, name)
	return nil
}

// RegisterLockDependency declares that dependent depends on dependency. Both
// locks must already be registered.
func (m *LockManager) RegisterLockDependency(dependent, dependency LockName) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.locks[dependent]; !ok {
		return fmt.Errorf("lock %q is not registered", dependent)
	}
	if _, ok := m.locks[dependency]; !ok {
		return fmt.Errorf("lock %q is not registered", dependency)
	}
	m.dependencies[dependent] = append(m.dependencies[dependent], dependency)
	return nil
}

// Release unlocks an acquired lock set. Locks are released in reverse
// acquisition order.
type Release func()

// LockObjectAndDependencies write-locks the named lock and all its transitive
// dependencies.
func (m *LockManager) LockObjectAndDependencies(name LockName) Release {
	return m.lockSet(m.objectAndDependencies(name), true)
}

// LockObjectAndDependents write-locks the named lock and every lock that
// transitively depends on it.
func (m *LockManager) LockObjectAndDependents(name LockName) Release {
	return m.lockSet(m.objectAndDependents(name), true)
}

// RLockObjectAndDependencies read-locks the named lock and all its transitive
// dependencies, allowing concurrent readers.
func (m *LockManager) RLockObjectAndDependencies(name LockName) Release {
	return m.lockSet(m.objectAndDependencies(name), false)
}

// RLockObjectsAndDependencies read-locks several named locks together with
// all their transitive dependencies. The combined set is deduplicated, so a
// lock shared between the targets is taken once.
func (m *LockManager) RLockObjectsAndDependencies(names ...LockName) Release {
	m.mu.Lock()
	set := map[LockName]struct{}{}
	for _, name := range names {
		m.collectDependencies(name, set)
	}
	ordered := m.inGlobalOrder(set)
	m.mu.Unlock()
	return m.lockSet(ordered, false)
}

// LockAll write-locks every registered lock, for operations that rebuild the
// whole structure.
func (m *LockManager) LockAll() Release {
	m.mu.Lock()
	names := make([]LockName, len(m.registration))
	copy(names, m.registration)
	m.mu.Unlock()
	return m.lockSet(names, true)
}

func (m *LockManager) objectAndDependencies(name LockName) []LockName {
	m.mu.Lock()
	defer m.mu.Unlock()
	set := map[LockName]struct{}{}
	m.collectDependencies(name, set)
	return m.inGlobalOrder(set)
}

func (m *LockManager) collectDependencies(name LockName, set map[LockName]struct{}) {
	if _, seen := set[name]; seen {
		return
	}
	set[name] = struct{}{}
	for _, dep := range m.dependencies[name] {
		m.collectDependencies(dep, set)
	}
}

func (m *LockManager) objectAndDependents(name LockName) []LockName {
	m.mu.Lock()
	defer m.mu.Unlock()
	set := map[LockName]struct{}{name: {}}
	// Fixed-point expansion over the dependency registry.
	for changed := true; changed; {
		changed = false
		for dependent, deps := range m.dependencies {
			if _, have := set[dependent]; have {
				continue
			}
			for _, dep := range deps {
				if _, hit := set[dep]; hit {
					set[dependent] = struct{}{}
					changed = true
					break
				}
			}
		}
	}
	return m.inGlobalOrder(set)
}

func (m *LockManager) inGlobalOrder(set map[LockName]struct{}) []LockName {
	ordered := make([]LockName, 0, len(set))
	for _, name := range m.registration {
		if _, ok := set[name]; ok {
			ordered = append(ordered, name)
		}
	}
	return ordered
}

func (m *LockManager) lockSet(names []LockName, write bool) Release {
	for _, name := range names {
		if write {
			m.locks[name].Lock()
		} else {
			m.locks[name].RLock()
		}
	}
	return func() {
		for i := len(names) - 1; i >= 0; i-- {
			if write {
				m.locks[names[i]].Unlock()
			} else {
				m.locks[names[i]].RUnlock()
			}
		}
	}
}
