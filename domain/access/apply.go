package access

import (
	"fmt"

	"appaccess-backend/domain/events"
)

// Mutator is the event-producing surface of the access manager. Both the
// strict Manager and the DependencyFreeManager implement it, as does the
// writer node which wraps a mutation into an event before applying it.
type Mutator interface {
	AddUser(user string) error
	RemoveUser(user string) error
	AddGroup(group string) error
	RemoveGroup(group string) error
	AddUserToGroupMapping(user, group string) error
	RemoveUserToGroupMapping(user, group string) error
	AddGroupToGroupMapping(fromGroup, toGroup string) error
	RemoveGroupToGroupMapping(fromGroup, toGroup string) error
	AddUserToApplicationComponentAndAccessLevelMapping(user, component, accessLevel string) error
	RemoveUserToApplicationComponentAndAccessLevelMapping(user, component, accessLevel string) error
	AddGroupToApplicationComponentAndAccessLevelMapping(group, component, accessLevel string) error
	RemoveGroupToApplicationComponentAndAccessLevelMapping(group, component, accessLevel string) error
	AddEntityType(entityType string) error
	RemoveEntityType(entityType string) error
	AddEntity(entityType, entity string) error
	RemoveEntity(entityType, entity string) error
	AddUserToEntityMapping(user, entityType, entity string) error
	RemoveUserToEntityMapping(user, entityType, entity string) error
	AddGroupToEntityMapping(group, entityType, entity string) error
	RemoveGroupToEntityMapping(group, entityType, entity string) error
}

// Querier is the read-only query surface of the access manager.
type Querier interface {
	ContainsUser(user string) bool
	GetUsers() []string
	ContainsGroup(group string) bool
	GetGroups() []string
	ContainsEntityType(entityType string) bool
	GetEntityTypes() []string
	ContainsEntity(entityType, entity string) bool
	GetEntities(entityType string) ([]string, error)
	GetUserToGroupMappings(user string, includeIndirect bool) ([]string, error)
	GetGroupToUserMappings(group string, includeIndirect bool) ([]string, error)
	GetGroupToGroupMappings(group string, includeIndirect bool) ([]string, error)
	GetGroupToGroupReverseMappings(group string, includeIndirect bool) ([]string, error)
	GetUserToApplicationComponentAndAccessLevelMappings(user string) ([]ComponentAndAccessLevel, error)
	GetGroupToApplicationComponentAndAccessLevelMappings(group string) ([]ComponentAndAccessLevel, error)
	GetApplicationComponentAndAccessLevelToUserMappings(component, accessLevel string, includeIndirect bool) ([]string, error)
	GetApplicationComponentAndAccessLevelToGroupMappings(component, accessLevel string, includeIndirect bool) ([]string, error)
	GetUserToEntityMappings(user string) ([]EntityTypeAndEntity, error)
	GetUserToEntityMappingsForType(user, entityType string) ([]string, error)
	GetGroupToEntityMappings(group string) ([]EntityTypeAndEntity, error)
	GetGroupToEntityMappingsForType(group, entityType string) ([]string, error)
	GetEntityToUserMappings(entityType, entity string, includeIndirect bool) ([]string, error)
	GetEntityToGroupMappings(entityType, entity string, includeIndirect bool) ([]string, error)
	HasAccessToApplicationComponent(user, component, accessLevel string) (bool, error)
	HasAccessToEntity(user, entityType, entity string) (bool, error)
	GetApplicationComponentsAccessibleByUser(user string) ([]ComponentAndAccessLevel, error)
	GetApplicationComponentsAccessibleByGroup(group string) ([]ComponentAndAccessLevel, error)
	GetEntitiesAccessibleByUser(user string) ([]EntityTypeAndEntity, error)
	GetEntitiesOfTypeAccessibleByUser(user, entityType string) ([]string, error)
	GetEntitiesAccessibleByGroup(group string) ([]EntityTypeAndEntity, error)
}

// ApplyEvent dispatches one temporal event onto a mutator. Reducing an event
// sequence through ApplyEvent reconstructs exactly the state the writer had
// after emitting it.
func ApplyEvent(m Mutator, ev events.TemporalEvent) error {
	add := ev.Action == events.Add
	switch p := ev.Payload.(type) {
	case events.UserPayload:
		if add {
			return m.AddUser(p.User)
		}
		return m.RemoveUser(p.User)
	case events.GroupPayload:
		if add {
			return m.AddGroup(p.Group)
		}
		return m.RemoveGroup(p.Group)
	case events.UserToGroupPayload:
		if add {
			return m.AddUserToGroupMapping(p.User, p.Group)
		}
		return m.RemoveUserToGroupMapping(p.User, p.Group)
	case events.GroupToGroupPayload:
		if add {
			return m.AddGroupToGroupMapping(p.FromGroup, p.ToGroup)
		}
		return m.RemoveGroupToGroupMapping(p.FromGroup, p.ToGroup)
	case events.UserToComponentAccessPayload:
		if add {
			return m.AddUserToApplicationComponentAndAccessLevelMapping(p.User, p.ApplicationComponent, p.AccessLevel)
		}
		return m.RemoveUserToApplicationComponentAndAccessLevelMapping(p.User, p.ApplicationComponent, p.AccessLevel)
	case events.GroupToComponentAccessPayload:
		if add {
			return m.AddGroupToApplicationComponentAndAccessLevelMapping(p.Group, p.ApplicationComponent, p.AccessLevel)
		}
		return m.RemoveGroupToApplicationComponentAndAccessLevelMapping(p.Group, p.ApplicationComponent, p.AccessLevel)
	case events.EntityTypePayload:
		if add {
			return m.AddEntityType(p.EntityType)
		}
		return m.RemoveEntityType(p.EntityType)
	case events.EntityPayload:
		if add {
			return m.AddEntity(p.EntityType, p.Entity)
		}
		return m.RemoveEntity(p.EntityType, p.Entity)
	case events.UserToEntityPayload:
		if add {
			return m.AddUserToEntityMapping(p.User, p.EntityType, p.Entity)
		}
		return m.RemoveUserToEntityMapping(p.User, p.EntityType, p.Entity)
	case events.GroupToEntityPayload:
		if add {
			return m.AddGroupToEntityMapping(p.Group, p.EntityType, p.Entity)
		}
		return m.RemoveGroupToEntityMapping(p.Group, p.EntityType, p.Entity)
	default:
		return fmt.Errorf("unknown event payload type %T", ev.Payload)
	}
}
