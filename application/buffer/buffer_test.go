package buffer

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"appaccess-backend/domain/events"
	"appaccess-backend/pkg/observability"
)

type fakePersister struct {
	batches [][]events.TemporalEvent
	err     error
}

func (p *fakePersister) PersistEvents(_ context.Context, batch []events.TemporalEvent) error {
	if p.err != nil {
		return p.err
	}
	p.batches = append(p.batches, batch)
	return nil
}

type fakePublisher struct {
	batches [][]events.TemporalEvent
	err     error
}

func (p *fakePublisher) CacheEvents(_ context.Context, batch []events.TemporalEvent) error {
	if p.err != nil {
		return p.err
	}
	p.batches = append(p.batches, batch)
	return nil
}

func userEvent(user string) events.TemporalEvent {
	return events.TemporalEvent{
		Header: events.Header{
			EventID:      uuid.New(),
			Action:       events.Add,
			OccurredTime: time.Now().UTC(),
		},
		Payload: events.UserPayload{User: user},
	}
}

func newTestBuffer(persister BulkEventPersister, publisher EventPublisher, cfg Config) *EventBuffer {
	return NewEventBuffer(persister, publisher, cfg, zap.NewNop(), observability.NullMetricSink{})
}

func TestFlushNow_PersistsThenPublishes(t *testing.T) {
	persister := &fakePersister{}
	publisher := &fakePublisher{}
	b := newTestBuffer(persister, publisher, Config{Strategy: FlushManual})

	e1, e2 := userEvent("u1"), userEvent("u2")
	b.AddEvent(e1)
	b.AddEvent(e2)
	require.Equal(t, 2, b.Len())

	require.NoError(t, b.FlushNow(context.Background()))
	assert.Equal(t, 0, b.Len())
	require.Len(t, persister.batches, 1)
	assert.Equal(t, []events.TemporalEvent{e1, e2}, persister.batches[0])
	require.Len(t, publisher.batches, 1)
	assert.Equal(t, []events.TemporalEvent{e1, e2}, publisher.batches[0])
}

func TestFlushNow_EmptyBufferIsNoOp(t *testing.T) {
	persister := &fakePersister{}
	publisher := &fakePublisher{}
	b := newTestBuffer(persister, publisher, Config{Strategy: FlushManual})

	require.NoError(t, b.FlushNow(context.Background()))
	assert.Empty(t, persister.batches)
	assert.Empty(t, publisher.batches)
}

func TestFlushNow_PersistFailureRetainsOrder(t *testing.T) {
	persister := &fakePersister{err: assert.AnError}
	publisher := &fakePublisher{}
	b := newTestBuffer(persister, publisher, Config{Strategy: FlushManual})

	e1, e2 := userEvent("u1"), userEvent("u2")
	b.AddEvent(e1)
	b.AddEvent(e2)
	require.Error(t, b.FlushNow(context.Background()))
	assert.Equal(t, 2, b.Len())
	assert.Empty(t, publisher.batches)

	// An event arriving between the failure and the retry stays behind the
	// retained batch.
	e3 := userEvent("u3")
	b.AddEvent(e3)
	persister.err = nil
	require.NoError(t, b.FlushNow(context.Background()))
	require.Len(t, persister.batches, 1)
	assert.Equal(t, []events.TemporalEvent{e1, e2, e3}, persister.batches[0])
}

func TestFlushNow_PublishFailureDoesNotRepersist(t *testing.T) {
	persister := &fakePersister{}
	publisher := &fakePublisher{err: assert.AnError}
	b := newTestBuffer(persister, publisher, Config{Strategy: FlushManual})

	e1 := userEvent("u1")
	b.AddEvent(e1)
	require.Error(t, b.FlushNow(context.Background()))
	require.Len(t, persister.batches, 1)

	// Next flush republishes the stranded batch before anything else, without
	// another persist of it.
	e2 := userEvent("u2")
	b.AddEvent(e2)
	publisher.err = nil
	require.NoError(t, b.FlushNow(context.Background()))
	require.Len(t, persister.batches, 2)
	assert.Equal(t, []events.TemporalEvent{e2}, persister.batches[1])
	require.Len(t, publisher.batches, 2)
	assert.Equal(t, []events.TemporalEvent{e1}, publisher.batches[0])
	assert.Equal(t, []events.TemporalEvent{e2}, publisher.batches[1])
}

func TestGetAndClear(t *testing.T) {
	b := newTestBuffer(&fakePersister{}, &fakePublisher{}, Config{Strategy: FlushManual})
	e1 := userEvent("u1")
	b.AddEvent(e1)

	batch := b.GetAndClear()
	assert.Equal(t, []events.TemporalEvent{e1}, batch)
	assert.Equal(t, 0, b.Len())
	assert.Empty(t, b.GetAndClear())
}

func TestRun_SizeLimitedFlush(t *testing.T) {
	persister := &fakePersister{}
	publisher := &fakePublisher{}
	b := newTestBuffer(persister, publisher, Config{Strategy: FlushSizeLimited, SizeThreshold: 2})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		b.Run(ctx)
		close(done)
	}()

	b.AddEvent(userEvent("u1"))
	b.AddEvent(userEvent("u2"))

	require.Eventually(t, func() bool { return b.Len() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
	require.Len(t, persister.batches, 1)
	assert.Len(t, persister.batches[0], 2)
}

func TestRun_IntervalFlushAndShutdownFlush(t *testing.T) {
	persister := &fakePersister{}
	publisher := &fakePublisher{}
	b := newTestBuffer(persister, publisher, Config{Strategy: FlushIntervalLimited, FlushInterval: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		b.Run(ctx)
		close(done)
	}()

	b.AddEvent(userEvent("u1"))
	require.Eventually(t, func() bool { return b.Len() == 0 }, time.Second, 5*time.Millisecond)

	cancel()
	<-done
	assert.NotEmpty(t, persister.batches)
}
