// Package persistence provides the durable event log adapters behind the bulk
// persister and persistent reader collaborator interfaces. The memory store
// backs tests and single-process deployments; the file store adds durability
// for single-node deployments. Real cluster deployments plug in an external
// store implementing the same two interfaces.
package persistence

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"appaccess-backend/application/reader"
	"appaccess-backend/domain/access"
	"appaccess-backend/domain/events"
	apperrors "appaccess-backend/pkg/errors"
)

// MemoryEventStore is an in-memory, append-only event log. Persisting is
// idempotent on event id.
type MemoryEventStore struct {
	mu     sync.RWMutex
	events []events.TemporalEvent
	seen   map[uuid.UUID]struct{}
}

// NewMemoryEventStore creates an empty store.
func NewMemoryEventStore() *MemoryEventStore {
	return &MemoryEventStore{seen: make(map[uuid.UUID]struct{})}
}

// PersistEvents appends the batch, skipping events already persisted.
func (s *MemoryEventStore) PersistEvents(_ context.Context, batch []events.TemporalEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ev := range batch {
		if _, ok := s.seen[ev.EventID]; ok {
			continue
		}
		s.events = append(s.events, ev)
		s.seen[ev.EventID] = struct{}{}
	}
	return nil
}

// Load replays the whole log into sink and returns the position of the last
// event. An empty store raises PersistentStorageEmpty.
func (s *MemoryEventStore) Load(_ context.Context, sink access.Mutator) (reader.SnapshotMetadata, error) {
	s.mu.RLock()
	log := make([]events.TemporalEvent, len(s.events))
	copy(log, s.events)
	s.mu.RUnlock()

	if len(log) == 0 {
		return reader.SnapshotMetadata{}, apperrors.NewPersistentStorageEmpty()
	}
	for _, ev := range log {
		if err := access.ApplyEvent(sink, ev); err != nil {
			return reader.SnapshotMetadata{}, apperrors.Wrap(err, "replaying persisted events")
		}
	}
	last := log[len(log)-1]
	return reader.SnapshotMetadata{EventID: last.EventID, Timestamp: last.OccurredTime}, nil
}

// Events returns a copy of the persisted log in order.
func (s *MemoryEventStore) Events() []events.TemporalEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	log := make([]events.TemporalEvent, len(s.events))
	copy(log, s.events)
	return log
}

// Len returns the number of persisted events.
func (s *MemoryEventStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}
