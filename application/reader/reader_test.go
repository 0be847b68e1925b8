package reader

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"appaccess-backend/application/cache"
	"appaccess-backend/domain/access"
	"appaccess-backend/domain/events"
	apperrors "appaccess-backend/pkg/errors"
	"appaccess-backend/pkg/observability"
)

type fakeEventSource struct {
	events []events.TemporalEvent
	err    error
	calls  atomic.Int32
}

func (s *fakeEventSource) GetAllEventsSince(_ context.Context, _ uuid.UUID) ([]events.TemporalEvent, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return s.events, nil
}

type fakeStorage struct {
	apply func(sink access.Mutator) error
	meta  SnapshotMetadata
	err   error
}

func (s *fakeStorage) Load(_ context.Context, sink access.Mutator) (SnapshotMetadata, error) {
	if s.err != nil {
		return SnapshotMetadata{}, s.err
	}
	if s.apply != nil {
		if err := s.apply(sink); err != nil {
			return SnapshotMetadata{}, err
		}
	}
	return s.meta, nil
}

func addEvent(payload events.Payload) events.TemporalEvent {
	return events.TemporalEvent{
		Header: events.Header{
			EventID:      uuid.New(),
			Action:       events.Add,
			OccurredTime: time.Now().UTC(),
		},
		Payload: payload,
	}
}

func newTestNode(t *testing.T, source EventSource, storage PersistentReader) *Node {
	t.Helper()
	n, err := NewNode(context.Background(), source, storage, Config{StoreBidirectionalMappings: true}, zap.NewNop(), observability.NullMetricSink{})
	require.NoError(t, err)
	return n
}

func TestRefresh_AppliesCachedEventsAndAdvancesWatermark(t *testing.T) {
	e1 := addEvent(events.UserPayload{User: "u1"})
	e2 := addEvent(events.GroupPayload{Group: "g1"})
	e3 := addEvent(events.UserToGroupPayload{User: "u1", Group: "g1"})
	source := &fakeEventSource{events: []events.TemporalEvent{e1, e2, e3}}
	n := newTestNode(t, source, &fakeStorage{err: apperrors.NewPersistentStorageEmpty()})

	require.Equal(t, uuid.Nil, n.LatestEventID())
	require.NoError(t, n.Refresh(context.Background()))

	q := n.Querier()
	assert.ElementsMatch(t, []string{"u1"}, q.GetUsers())
	assert.ElementsMatch(t, []string{"g1"}, q.GetGroups())
	groups, err := q.GetUserToGroupMappings("u1", false)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"g1"}, groups)
	assert.Equal(t, e3.EventID, n.LatestEventID())
}

func TestRefresh_SwallowsCacheEmpty(t *testing.T) {
	source := &fakeEventSource{err: apperrors.NewCacheEmpty()}
	n := newTestNode(t, source, &fakeStorage{err: apperrors.NewPersistentStorageEmpty()})

	require.NoError(t, n.Refresh(context.Background()))
	assert.Equal(t, uuid.Nil, n.LatestEventID())
	assert.Empty(t, n.Querier().GetUsers())
}

func TestRefresh_ReloadsOnEventNotCached(t *testing.T) {
	snapshotID := uuid.New()
	storage := &fakeStorage{
		apply: func(sink access.Mutator) error {
			if err := sink.AddUser("u2"); err != nil {
				return err
			}
			return sink.AddGroup("g2")
		},
		meta: SnapshotMetadata{EventID: snapshotID, Timestamp: time.Now().UTC()},
	}
	source := &fakeEventSource{err: apperrors.NewEventNotCached(uuid.New().String())}
	n, err := NewNode(context.Background(), source, storage, Config{}, zap.NewNop(), observability.NullMetricSink{})
	require.NoError(t, err)

	// Startup already loaded the snapshot; move the source to a miss and make
	// sure refresh swaps in a fresh reload.
	before := n.Querier()
	require.NoError(t, n.Refresh(context.Background()))

	assert.Equal(t, snapshotID, n.LatestEventID())
	q := n.Querier()
	assert.NotSame(t, before, q)
	assert.ElementsMatch(t, []string{"u2"}, q.GetUsers())
	assert.ElementsMatch(t, []string{"g2"}, q.GetGroups())
}

func TestRefresh_WrapsOtherErrors(t *testing.T) {
	source := &fakeEventSource{err: assert.AnError}
	n := newTestNode(t, source, &fakeStorage{err: apperrors.NewPersistentStorageEmpty()})

	err := n.Refresh(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperrors.KindReaderRefreshFailed, apperrors.KindOf(err))
}

func TestNewNode_LoadOnStartup(t *testing.T) {
	storage := &fakeStorage{
		apply: func(sink access.Mutator) error { return sink.AddUser("preloaded") },
		meta:  SnapshotMetadata{EventID: uuid.New()},
	}
	n, err := NewNode(context.Background(), &fakeEventSource{}, storage, Config{LoadOnStartup: true}, zap.NewNop(), observability.NullMetricSink{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"preloaded"}, n.Querier().GetUsers())
	assert.Equal(t, storage.meta.EventID, n.LatestEventID())
}

func TestLoad_ThrowIfEmpty(t *testing.T) {
	n := newTestNode(t, &fakeEventSource{}, &fakeStorage{err: apperrors.NewPersistentStorageEmpty()})
	err := n.Load(context.Background(), true)
	assert.True(t, apperrors.IsPersistentStorageEmpty(err))
}

func TestIntervalRefreshStrategy(t *testing.T) {
	source := &fakeEventSource{err: apperrors.NewCacheEmpty()}
	n := newTestNode(t, source, &fakeStorage{err: apperrors.NewPersistentStorageEmpty()})
	strategy := NewIntervalRefreshStrategy(n, 5*time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		strategy.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return source.calls.Load() >= 2 }, time.Second, time.Millisecond)
	cancel()
	<-done
}

func TestRefresh_FreshReaderCatchesUpFromEventCache(t *testing.T) {
	e1 := addEvent(events.UserPayload{User: "u1"})
	e2 := addEvent(events.GroupPayload{Group: "g1"})
	e3 := addEvent(events.UserToGroupPayload{User: "u1", Group: "g1"})
	eventCache := cache.NewEventCache(100, zap.NewNop(), observability.NullMetricSink{})
	require.NoError(t, eventCache.CacheEvents(context.Background(), []events.TemporalEvent{e1, e2, e3}))

	// An empty persistent store must not matter: the nil watermark selects the
	// whole cache, not a reload.
	n := newTestNode(t, eventCache, &fakeStorage{err: apperrors.NewPersistentStorageEmpty()})
	require.Equal(t, uuid.Nil, n.LatestEventID())
	require.NoError(t, n.Refresh(context.Background()))

	q := n.Querier()
	assert.ElementsMatch(t, []string{"u1"}, q.GetUsers())
	assert.ElementsMatch(t, []string{"g1"}, q.GetGroups())
	groups, err := q.GetUserToGroupMappings("u1", false)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"g1"}, groups)
	assert.Equal(t, e3.EventID, n.LatestEventID())

	// A second refresh from the advanced watermark applies nothing new.
	require.NoError(t, n.Refresh(context.Background()))
	assert.Equal(t, e3.EventID, n.LatestEventID())
	assert.ElementsMatch(t, []string{"u1"}, n.Querier().GetUsers())
}

func TestQueryTriggeredRefreshStrategy(t *testing.T) {
	source := &fakeEventSource{err: apperrors.NewCacheEmpty()}
	n := newTestNode(t, source, &fakeStorage{err: apperrors.NewPersistentStorageEmpty()})
	strategy := NewQueryTriggeredRefreshStrategy(n, time.Hour)

	require.NoError(t, strategy.BeforeQuery(context.Background()))
	require.NoError(t, strategy.BeforeQuery(context.Background()))
	// Within the staleness bound only the first call refreshes.
	assert.Equal(t, int32(1), source.calls.Load())
}
