package persistence

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"appaccess-backend/domain/access"
	"appaccess-backend/domain/events"
	apperrors "appaccess-backend/pkg/errors"
)

func addEvent(payload events.Payload) events.TemporalEvent {
	return events.TemporalEvent{
		Header: events.Header{
			EventID:      uuid.New(),
			Action:       events.Add,
			OccurredTime: time.Now().UTC().Truncate(time.Microsecond),
		},
		Payload: payload,
	}
}

func TestMemoryEventStore_RoundTrip(t *testing.T) {
	store := NewMemoryEventStore()
	batch := []events.TemporalEvent{
		addEvent(events.UserPayload{User: "u1"}),
		addEvent(events.GroupPayload{Group: "g1"}),
		addEvent(events.UserToGroupPayload{User: "u1", Group: "g1"}),
	}
	require.NoError(t, store.PersistEvents(context.Background(), batch))
	assert.Equal(t, 3, store.Len())

	replica := access.NewDependencyFreeManager(access.NewManager(false), access.NullEventSink{})
	meta, err := store.Load(context.Background(), replica)
	require.NoError(t, err)
	assert.Equal(t, batch[2].EventID, meta.EventID)
	assert.True(t, replica.ContainsUser("u1"))
	groups, err := replica.GetUserToGroupMappings("u1", false)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"g1"}, groups)
}

func TestMemoryEventStore_IdempotentOnEventID(t *testing.T) {
	store := NewMemoryEventStore()
	batch := []events.TemporalEvent{addEvent(events.UserPayload{User: "u1"})}
	require.NoError(t, store.PersistEvents(context.Background(), batch))
	require.NoError(t, store.PersistEvents(context.Background(), batch))
	assert.Equal(t, 1, store.Len())
}

func TestMemoryEventStore_EmptyLoad(t *testing.T) {
	store := NewMemoryEventStore()
	replica := access.NewDependencyFreeManager(access.NewManager(false), access.NullEventSink{})
	_, err := store.Load(context.Background(), replica)
	assert.True(t, apperrors.IsPersistentStorageEmpty(err))
}

func TestFileEventStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.json")
	store, err := NewFileEventStore(path, zap.NewNop())
	require.NoError(t, err)

	batch := []events.TemporalEvent{
		addEvent(events.UserPayload{User: "u1"}),
		addEvent(events.EntityTypePayload{EntityType: "ClientAccount"}),
	}
	require.NoError(t, store.PersistEvents(context.Background(), batch))

	reopened, err := NewFileEventStore(path, zap.NewNop())
	require.NoError(t, err)

	// Reopened store skips already persisted ids.
	require.NoError(t, reopened.PersistEvents(context.Background(), batch[:1]))

	replica := access.NewDependencyFreeManager(access.NewManager(false), access.NullEventSink{})
	meta, err := reopened.Load(context.Background(), replica)
	require.NoError(t, err)
	assert.Equal(t, batch[1].EventID, meta.EventID)
	assert.True(t, replica.ContainsUser("u1"))
	assert.True(t, replica.ContainsEntityType("ClientAccount"))
}

func TestFileEventStore_EmptyLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.json")
	store, err := NewFileEventStore(path, zap.NewNop())
	require.NoError(t, err)

	replica := access.NewDependencyFreeManager(access.NewManager(false), access.NullEventSink{})
	_, loadErr := store.Load(context.Background(), replica)
	assert.True(t, apperrors.IsPersistentStorageEmpty(loadErr))
}
