package routing

import (
	"context"
	"sync"

	"appaccess-backend/domain/events"
	apperrors "appaccess-backend/pkg/errors"
)

type heldMutation struct {
	action  events.Action
	payload events.Payload
}

// holdingQueue parks mutations touching a hash range while the coordinator
// moves that range between shards. Routing checks covers() on its fast path;
// the queue is installed and removed by whole-pointer swap on the router.
type holdingQueue struct {
	mu    sync.Mutex
	held  []heldMutation
	kind  ElementKind
	start int32
	end   int32
}

func newHoldingQueue(kind ElementKind, start, end int32) *holdingQueue {
	return &holdingQueue{kind: kind, start: start, end: end}
}

func (q *holdingQueue) covers(kind ElementKind, hash int32) bool {
	return kind == q.kind && rangeContains(q.start, q.end, hash)
}

func (q *holdingQueue) enqueue(m heldMutation) {
	q.mu.Lock()
	q.held = append(q.held, m)
	q.mu.Unlock()
}

func (q *holdingQueue) drain() []heldMutation {
	q.mu.Lock()
	held := q.held
	q.held = nil
	q.mu.Unlock()
	return held
}

// beginHold installs a holding queue for the range. Only one hold may be
// active at a time.
func (r *Router) beginHold(kind ElementKind, start, end int32) (*holdingQueue, error) {
	hq := newHoldingQueue(kind, start, end)
	if !r.holding.CompareAndSwap(nil, hq) {
		return nil, apperrors.NewInternal("a shard reconfiguration is already in progress", nil)
	}
	return hq, nil
}

// endHold removes the queue and replays everything it captured through
// whatever configuration is current. Replay failures are aggregated; the
// mutations were accepted from clients, so each is attempted.
func (r *Router) endHold(ctx context.Context, hq *holdingQueue) error {
	r.holding.CompareAndSwap(hq, nil)
	var result error
	for _, m := range hq.drain() {
		if err := r.RouteMutation(ctx, m.action, m.payload); err != nil {
			result = apperrors.Append(result, err)
		}
	}
	return result
}
