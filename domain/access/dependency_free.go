package access

import (
	"appaccess-backend/domain/events"
	apperrors "appaccess-backend/pkg/errors"
)

// EventSink receives the payloads of events the dependency-free manager
// synthesizes for missing prerequisites. The writer node injects its event
// buffer here so synthesized events are recorded strictly before the event
// that required them; replicas use NullEventSink.
type EventSink interface {
	PrerequisiteEventAdded(payload events.Payload)
}

// NullEventSink discards synthesized event notifications.
type NullEventSink struct{}

func (NullEventSink) PrerequisiteEventAdded(events.Payload) {}

// DependencyFreeManager relaxes the strict manager for replica use: adding a
// duplicate is a no-op, removing a missing element is a no-op, and an add
// referring to a missing prerequisite (user, group, entity type or entity)
// creates that prerequisite first, notifying the event sink before each
// synthesized creation. This trades strictness for the ability to apply
// events without cross-shard coordination.
type DependencyFreeManager struct {
	*Manager
	sink EventSink
}

// NewDependencyFreeManager wraps a strict manager. sink must not be nil; use
// NullEventSink when synthesized events need no recording.
func NewDependencyFreeManager(inner *Manager, sink EventSink) *DependencyFreeManager {
	return &DependencyFreeManager{Manager: inner, sink: sink}
}

func ignoreAlreadyExists(err error) error {
	if apperrors.IsAlreadyExists(err) {
		return nil
	}
	return err
}

func ignoreNotFound(err error) error {
	if apperrors.IsNotFound(err) {
		return nil
	}
	return err
}

func (m *DependencyFreeManager) ensureUser(user string) error {
	if m.Manager.ContainsUser(user) {
		return nil
	}
	m.sink.PrerequisiteEventAdded(events.UserPayload{User: user})
	return ignoreAlreadyExists(m.Manager.AddUser(user))
}

func (m *DependencyFreeManager) ensureGroup(group string) error {
	if m.Manager.ContainsGroup(group) {
		return nil
	}
	m.sink.PrerequisiteEventAdded(events.GroupPayload{Group: group})
	return ignoreAlreadyExists(m.Manager.AddGroup(group))
}

func (m *DependencyFreeManager) ensureEntityType(entityType string) error {
	if m.Manager.ContainsEntityType(entityType) {
		return nil
	}
	m.sink.PrerequisiteEventAdded(events.EntityTypePayload{EntityType: entityType})
	return ignoreAlreadyExists(m.Manager.AddEntityType(entityType))
}

func (m *DependencyFreeManager) ensureEntity(entityType, entity string) error {
	if err := m.ensureEntityType(entityType); err != nil {
		return err
	}
	if m.Manager.ContainsEntity(entityType, entity) {
		return nil
	}
	m.sink.PrerequisiteEventAdded(events.EntityPayload{EntityType: entityType, Entity: entity})
	return ignoreAlreadyExists(m.Manager.AddEntity(entityType, entity))
}

func (m *DependencyFreeManager) AddUser(user string) error {
	return ignoreAlreadyExists(m.Manager.AddUser(user))
}

func (m *DependencyFreeManager) RemoveUser(user string) error {
	return ignoreNotFound(m.Manager.RemoveUser(user))
}

func (m *DependencyFreeManager) AddGroup(group string) error {
	return ignoreAlreadyExists(m.Manager.AddGroup(group))
}

func (m *DependencyFreeManager) RemoveGroup(group string) error {
	return ignoreNotFound(m.Manager.RemoveGroup(group))
}

func (m *DependencyFreeManager) AddUserToGroupMapping(user, group string) error {
	if err := m.ensureUser(user); err != nil {
		return err
	}
	if err := m.ensureGroup(group); err != nil {
		return err
	}
	return ignoreAlreadyExists(m.Manager.AddUserToGroupMapping(user, group))
}

func (m *DependencyFreeManager) RemoveUserToGroupMapping(user, group string) error {
	return ignoreNotFound(m.Manager.RemoveUserToGroupMapping(user, group))
}

func (m *DependencyFreeManager) AddGroupToGroupMapping(fromGroup, toGroup string) error {
	if err := m.ensureGroup(fromGroup); err != nil {
		return err
	}
	if err := m.ensureGroup(toGroup); err != nil {
		return err
	}
	// Cycles still surface; a replica fed a cycle-closing event is corrupt
	// and must not mask it.
	return ignoreAlreadyExists(m.Manager.AddGroupToGroupMapping(fromGroup, toGroup))
}

func (m *DependencyFreeManager) RemoveGroupToGroupMapping(fromGroup, toGroup string) error {
	return ignoreNotFound(m.Manager.RemoveGroupToGroupMapping(fromGroup, toGroup))
}

func (m *DependencyFreeManager) AddUserToApplicationComponentAndAccessLevelMapping(user, component, accessLevel string) error {
	if err := m.ensureUser(user); err != nil {
		return err
	}
	return ignoreAlreadyExists(m.Manager.AddUserToApplicationComponentAndAccessLevelMapping(user, component, accessLevel))
}

func (m *DependencyFreeManager) RemoveUserToApplicationComponentAndAccessLevelMapping(user, component, accessLevel string) error {
	return ignoreNotFound(m.Manager.RemoveUserToApplicationComponentAndAccessLevelMapping(user, component, accessLevel))
}

func (m *DependencyFreeManager) AddGroupToApplicationComponentAndAccessLevelMapping(group, component, accessLevel string) error {
	if err := m.ensureGroup(group); err != nil {
		return err
	}
	return ignoreAlreadyExists(m.Manager.AddGroupToApplicationComponentAndAccessLevelMapping(group, component, accessLevel))
}

func (m *DependencyFreeManager) RemoveGroupToApplicationComponentAndAccessLevelMapping(group, component, accessLevel string) error {
	return ignoreNotFound(m.Manager.RemoveGroupToApplicationComponentAndAccessLevelMapping(group, component, accessLevel))
}

func (m *DependencyFreeManager) AddEntityType(entityType string) error {
	return ignoreAlreadyExists(m.Manager.AddEntityType(entityType))
}

func (m *DependencyFreeManager) RemoveEntityType(entityType string) error {
	return ignoreNotFound(m.Manager.RemoveEntityType(entityType))
}

func (m *DependencyFreeManager) AddEntity(entityType, entity string) error {
	if err := m.ensureEntityType(entityType); err != nil {
		return err
	}
	return ignoreAlreadyExists(m.Manager.AddEntity(entityType, entity))
}

func (m *DependencyFreeManager) RemoveEntity(entityType, entity string) error {
	return ignoreNotFound(m.Manager.RemoveEntity(entityType, entity))
}

func (m *DependencyFreeManager) AddUserToEntityMapping(user, entityType, entity string) error {
	if err := m.ensureUser(user); err != nil {
		return err
	}
	if err := m.ensureEntity(entityType, entity); err != nil {
		return err
	}
	return ignoreAlreadyExists(m.Manager.AddUserToEntityMapping(user, entityType, entity))
}

func (m *DependencyFreeManager) RemoveUserToEntityMapping(user, entityType, entity string) error {
	return ignoreNotFound(m.Manager.RemoveUserToEntityMapping(user, entityType, entity))
}

func (m *DependencyFreeManager) AddGroupToEntityMapping(group, entityType, entity string) error {
	if err := m.ensureGroup(group); err != nil {
		return err
	}
	if err := m.ensureEntity(entityType, entity); err != nil {
		return err
	}
	return ignoreAlreadyExists(m.Manager.AddGroupToEntityMapping(group, entityType, entity))
}

func (m *DependencyFreeManager) RemoveGroupToEntityMapping(group, entityType, entity string) error {
	return ignoreNotFound(m.Manager.RemoveGroupToEntityMapping(group, entityType, entity))
}

// Compile-time interface checks.
var (
	_ Mutator = (*Manager)(nil)
	_ Querier = (*Manager)(nil)
	_ Mutator = (*DependencyFreeManager)(nil)
	_ Querier = (*DependencyFreeManager)(nil)
)
