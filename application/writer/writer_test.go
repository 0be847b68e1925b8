package writer

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"appaccess-backend/application/buffer"
	"appaccess-backend/domain/events"
	apperrors "appaccess-backend/pkg/errors"
	"appaccess-backend/pkg/hashing"
	"appaccess-backend/pkg/observability"
)

type nullPersister struct{}

func (nullPersister) PersistEvents(context.Context, []events.TemporalEvent) error { return nil }

type nullPublisher struct{}

func (nullPublisher) CacheEvents(context.Context, []events.TemporalEvent) error { return nil }

func newTestNode(mode Mode) (*Node, *buffer.EventBuffer) {
	buf := buffer.NewEventBuffer(nullPersister{}, nullPublisher{}, buffer.Config{Strategy: buffer.FlushManual}, zap.NewNop(), observability.NullMetricSink{})
	node := NewNode(mode, true, buf, NullEventValidator{}, hashing.NewFNV1aHashCodeGenerator(), zap.NewNop(), observability.NullMetricSink{})
	return node, buf
}

func TestProcess_BuffersStampedEvent(t *testing.T) {
	node, buf := newTestNode(Strict)

	require.NoError(t, node.AddUser("alice"))
	require.NoError(t, node.AddGroup("staff"))
	require.NoError(t, node.AddUserToGroupMapping("alice", "staff"))

	batch := buf.GetAndClear()
	require.Len(t, batch, 3)
	for _, ev := range batch {
		assert.NotEqual(t, uuid.Nil, ev.EventID)
		assert.False(t, ev.OccurredTime.IsZero())
		assert.Equal(t, hashing.NewFNV1aHashCodeGenerator().HashCode(ev.Payload.PrimaryElement()), ev.HashCode)
	}
	assert.Equal(t, events.UserPayload{User: "alice"}, batch[0].Payload)
	assert.Equal(t, events.UserToGroupPayload{User: "alice", Group: "staff"}, batch[2].Payload)

	groups, err := node.Querier().GetUserToGroupMappings("alice", false)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"staff"}, groups)
}

func TestProcess_ManagerRejectionBuffersNothing(t *testing.T) {
	node, buf := newTestNode(Strict)

	require.NoError(t, node.AddUser("alice"))
	buf.GetAndClear()

	err := node.AddUser("alice")
	assert.True(t, apperrors.IsAlreadyExists(err))
	assert.Empty(t, buf.GetAndClear())

	err = node.AddUserToGroupMapping("alice", "ghosts")
	assert.True(t, apperrors.IsNotFound(err))
	assert.Empty(t, buf.GetAndClear())
}

func TestProcess_CycleRejectionBuffersNothing(t *testing.T) {
	node, buf := newTestNode(Strict)
	require.NoError(t, node.AddGroup("a"))
	require.NoError(t, node.AddGroup("b"))
	require.NoError(t, node.AddGroupToGroupMapping("a", "b"))
	buf.GetAndClear()

	err := node.AddGroupToGroupMapping("b", "a")
	assert.True(t, apperrors.IsWouldCreateCycle(err))
	assert.Empty(t, buf.GetAndClear())
}

func TestProcess_DependencyFreeSynthesizesPrefixEvents(t *testing.T) {
	node, buf := newTestNode(DependencyFree)

	require.NoError(t, node.AddUserToGroupMapping("alice", "staff"))

	batch := buf.GetAndClear()
	require.Len(t, batch, 3)
	assert.Equal(t, events.UserPayload{User: "alice"}, batch[0].Payload)
	assert.Equal(t, events.GroupPayload{Group: "staff"}, batch[1].Payload)
	assert.Equal(t, events.UserToGroupPayload{User: "alice", Group: "staff"}, batch[2].Payload)
	for _, ev := range batch {
		assert.Equal(t, events.Add, ev.Action)
	}
}

func TestProcess_ValidatorRejects(t *testing.T) {
	buf := buffer.NewEventBuffer(nullPersister{}, nullPublisher{}, buffer.Config{Strategy: buffer.FlushManual}, zap.NewNop(), observability.NullMetricSink{})
	node := NewNode(Strict, true, buf, NewElementValidator(), hashing.NewFNV1aHashCodeGenerator(), zap.NewNop(), observability.NullMetricSink{})

	err := node.AddUser("   ")
	assert.True(t, apperrors.IsInvalidArgument(err))
	assert.Empty(t, buf.GetAndClear())

	err = node.AddUserToGroupMapping("alice", "")
	assert.True(t, apperrors.IsInvalidArgument(err))

	require.NoError(t, node.AddUser("alice"))
}

func TestDistributingEventPersister(t *testing.T) {
	good1 := &recordingPersister{}
	failing := &recordingPersister{err: assert.AnError}
	good2 := &recordingPersister{}
	d := NewDistributingEventPersister(zap.NewNop(), good1, failing, good2)

	batch := []events.TemporalEvent{{
		Header:  events.Header{EventID: uuid.New(), Action: events.Add, OccurredTime: time.Now().UTC()},
		Payload: events.UserPayload{User: "u1"},
	}}

	err := d.PersistEvents(context.Background(), batch)
	require.Error(t, err)
	// Later targets still see the batch after an earlier failure.
	assert.Len(t, good1.batches, 1)
	assert.Len(t, good2.batches, 1)

	failing.err = nil
	require.NoError(t, d.PersistEvents(context.Background(), batch))
}

type recordingPersister struct {
	batches [][]events.TemporalEvent
	err     error
}

func (p *recordingPersister) PersistEvents(_ context.Context, batch []events.TemporalEvent) error {
	if p.err != nil {
		return p.err
	}
	p.batches = append(p.batches, batch)
	return nil
}
