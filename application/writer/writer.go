// Package writer implements the single authoritative mutator node for a
// shard. Every mutation is validated, recorded as a temporal event and applied
// to the in-memory access manager under one serialized critical section, so
// the event log and the manager state never disagree.
package writer

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"appaccess-backend/application/buffer"
	"appaccess-backend/domain/access"
	"appaccess-backend/domain/events"
	"appaccess-backend/pkg/hashing"
	"appaccess-backend/pkg/observability"
)

var (
	metricEventsProcessed = observability.NewCounter("EventsProcessed", "Number of mutation events processed by the writer", observability.CategoryEvent)
	metricEventsRejected  = observability.NewCounter("EventsRejected", "Number of mutations rejected by validation or the access manager", observability.CategoryEvent)
	metricEventProcessing = observability.NewInterval("EventProcessingTime", "Time taken to validate, apply and buffer one mutation", observability.CategoryEvent)
)

// Mode selects how the writer's access manager treats duplicates and missing
// prerequisites.
type Mode int

const (
	// Strict rejects duplicate adds and removes of missing elements.
	Strict Mode = iota
	// DependencyFree accepts them, synthesizing prerequisite events.
	DependencyFree
)

// Node is a writer node. It implements access.Mutator; each operation stamps
// an event, applies the mutation and appends the event to the buffer. A
// mutation the access manager rejects produces no event.
type Node struct {
	mu        sync.Mutex
	manager   access.Mutator
	querier   access.Querier
	buf       *buffer.EventBuffer
	validator EventValidator
	hasher    hashing.HashCodeGenerator
	now       func() time.Time
	logger    *zap.Logger
	metrics   observability.MetricSink
}

// NewNode creates a writer node around a fresh access manager. In
// DependencyFree mode, events synthesized for missing prerequisites are
// stamped and buffered before the event that required them.
func NewNode(mode Mode, storeBidirectionalMappings bool, buf *buffer.EventBuffer, validator EventValidator, hasher hashing.HashCodeGenerator, logger *zap.Logger, metrics observability.MetricSink) *Node {
	n := &Node{
		buf:       buf,
		validator: validator,
		hasher:    hasher,
		now:       time.Now,
		logger:    logger,
		metrics:   metrics,
	}
	strict := access.NewManager(storeBidirectionalMappings)
	n.querier = strict
	if mode == DependencyFree {
		n.manager = access.NewDependencyFreeManager(strict, prerequisiteSink{node: n})
	} else {
		n.manager = strict
	}
	return n
}

// Querier exposes the node's read surface, used for diagnostics and shard
// split replication.
func (n *Node) Querier() access.Querier { return n.querier }

// prerequisiteSink buffers events the dependency-free manager synthesizes. It
// runs inside the node's critical section, so synthesized events land in the
// buffer ahead of the event being processed.
type prerequisiteSink struct {
	node *Node
}

func (s prerequisiteSink) PrerequisiteEventAdded(payload events.Payload) {
	ev := s.node.stamp(events.Add, payload)
	s.node.buf.AddEvent(ev)
	s.node.logger.Debug("synthesized prerequisite event",
		zap.String("eventId", ev.EventID.String()),
		zap.String("kind", string(payload.Kind())))
}

func (n *Node) stamp(action events.Action, payload events.Payload) events.TemporalEvent {
	return events.TemporalEvent{
		Header: events.Header{
			EventID:      uuid.New(),
			Action:       action,
			OccurredTime: n.now().UTC(),
			HashCode:     n.hasher.HashCode(payload.PrimaryElement()),
		},
		Payload: payload,
	}
}

// process runs one mutation: validate, apply, then buffer the event. Applying
// before buffering means a rejected mutation buffers nothing, and holding one
// mutex across both keeps buffer order equal to application order. A query
// racing the same mutation can observe the applied state for the instant
// before its event lands in the buffer; DESIGN.md records this ordering
// decision.
func (n *Node) process(action events.Action, payload events.Payload) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	ev := n.stamp(action, payload)
	if err := n.validator.ValidateEvent(ev); err != nil {
		n.metrics.Increment(metricEventsRejected)
		return err
	}
	intervalID := n.metrics.Begin(metricEventProcessing)
	if err := access.ApplyEvent(n.manager, ev); err != nil {
		n.metrics.CancelBegin(intervalID, metricEventProcessing)
		n.metrics.Increment(metricEventsRejected)
		return err
	}
	n.buf.AddEvent(ev)
	n.metrics.End(intervalID, metricEventProcessing)
	n.metrics.Increment(metricEventsProcessed)
	return nil
}

func (n *Node) AddUser(user string) error {
	return n.process(events.Add, events.UserPayload{User: user})
}

func (n *Node) RemoveUser(user string) error {
	return n.process(events.Remove, events.UserPayload{User: user})
}

func (n *Node) AddGroup(group string) error {
	return n.process(events.Add, events.GroupPayload{Group: group})
}

func (n *Node) RemoveGroup(group string) error {
	return n.process(events.Remove, events.GroupPayload{Group: group})
}

func (n *Node) AddUserToGroupMapping(user, group string) error {
	return n.process(events.Add, events.UserToGroupPayload{User: user, Group: group})
}

func (n *Node) RemoveUserToGroupMapping(user, group string) error {
	return n.process(events.Remove, events.UserToGroupPayload{User: user, Group: group})
}

func (n *Node) AddGroupToGroupMapping(fromGroup, toGroup string) error {
	return n.process(events.Add, events.GroupToGroupPayload{FromGroup: fromGroup, ToGroup: toGroup})
}

func (n *Node) RemoveGroupToGroupMapping(fromGroup, toGroup string) error {
	return n.process(events.Remove, events.GroupToGroupPayload{FromGroup: fromGroup, ToGroup: toGroup})
}

func (n *Node) AddUserToApplicationComponentAndAccessLevelMapping(user, component, accessLevel string) error {
	return n.process(events.Add, events.UserToComponentAccessPayload{User: user, ApplicationComponent: component, AccessLevel: accessLevel})
}

func (n *Node) RemoveUserToApplicationComponentAndAccessLevelMapping(user, component, accessLevel string) error {
	return n.process(events.Remove, events.UserToComponentAccessPayload{User: user, ApplicationComponent: component, AccessLevel: accessLevel})
}

func (n *Node) AddGroupToApplicationComponentAndAccessLevelMapping(group, component, accessLevel string) error {
	return n.process(events.Add, events.GroupToComponentAccessPayload{Group: group, ApplicationComponent: component, AccessLevel: accessLevel})
}

func (n *Node) RemoveGroupToApplicationComponentAndAccessLevelMapping(group, component, accessLevel string) error {
	return n.process(events.Remove, events.GroupToComponentAccessPayload{Group: group, ApplicationComponent: component, AccessLevel: accessLevel})
}

func (n *Node) AddEntityType(entityType string) error {
	return n.process(events.Add, events.EntityTypePayload{EntityType: entityType})
}

func (n *Node) RemoveEntityType(entityType string) error {
	return n.process(events.Remove, events.EntityTypePayload{EntityType: entityType})
}

func (n *Node) AddEntity(entityType, entity string) error {
	return n.process(events.Add, events.EntityPayload{EntityType: entityType, Entity: entity})
}

func (n *Node) RemoveEntity(entityType, entity string) error {
	return n.process(events.Remove, events.EntityPayload{EntityType: entityType, Entity: entity})
}

func (n *Node) AddUserToEntityMapping(user, entityType, entity string) error {
	return n.process(events.Add, events.UserToEntityPayload{User: user, EntityType: entityType, Entity: entity})
}

func (n *Node) RemoveUserToEntityMapping(user, entityType, entity string) error {
	return n.process(events.Remove, events.UserToEntityPayload{User: user, EntityType: entityType, Entity: entity})
}

func (n *Node) AddGroupToEntityMapping(group, entityType, entity string) error {
	return n.process(events.Add, events.GroupToEntityPayload{Group: group, EntityType: entityType, Entity: entity})
}

func (n *Node) RemoveGroupToEntityMapping(group, entityType, entity string) error {
	return n.process(events.Remove, events.GroupToEntityPayload{Group: group, EntityType: entityType, Entity: entity})
}

var _ access.Mutator = (*Node)(nil)
