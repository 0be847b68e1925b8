// Package events defines the temporal events that record every mutation of
// the authorization state. An event is a common header plus one of ten
// payload kinds; the payload is a tagged variant dispatched with a single
// exhaustive switch rather than a type hierarchy.
package events

import (
	"time"

	"github.com/google/uuid"
)

// Action discriminates additions from removals.
type Action int

const (
	Add Action = iota
	Remove
)

func (a Action) String() string {
	if a == Remove {
		return "Remove"
	}
	return "Add"
}

// Kind identifies the payload variant of an event.
type Kind string

const (
	KindUser                   Kind = "User"
	KindGroup                  Kind = "Group"
	KindUserToGroup            Kind = "UserToGroup"
	KindGroupToGroup           Kind = "GroupToGroup"
	KindUserToComponentAccess  Kind = "UserToComponentAccess"
	KindGroupToComponentAccess Kind = "GroupToComponentAccess"
	KindEntityType             Kind = "EntityType"
	KindEntity                 Kind = "Entity"
	KindUserToEntity           Kind = "UserToEntity"
	KindGroupToEntity          Kind = "GroupToEntity"
)

// Header carries the fields common to every event.
type Header struct {
	// EventID is a globally unique v4 UUID.
	EventID uuid.UUID
	// Action is whether the event adds or removes its element.
	Action Action
	// OccurredTime is the UTC time of the mutation, microsecond precision.
	OccurredTime time.Time
	// HashCode is the hash of the event's primary element, used for shard
	// routing.
	HashCode int32
}

// Payload is one of the ten event payload variants.
type Payload interface {
	Kind() Kind
	// PrimaryElement is the key the event's hash code is computed from: the
	// user, group or entity type the event is primarily about.
	PrimaryElement() string
}

// TemporalEvent is one recorded mutation.
type TemporalEvent struct {
	Header
	Payload Payload
}

// UserPayload records a user addition or removal.
type UserPayload struct {
	User string
}

func (p UserPayload) Kind() Kind             { return KindUser }
func (p UserPayload) PrimaryElement() string { return p.User }

// GroupPayload records a group addition or removal.
type GroupPayload struct {
	Group string
}

func (p GroupPayload) Kind() Kind             { return KindGroup }
func (p GroupPayload) PrimaryElement() string { return p.Group }

// UserToGroupPayload records a user-to-group mapping change.
type UserToGroupPayload struct {
	User  string
	Group string
}

func (p UserToGroupPayload) Kind() Kind             { return KindUserToGroup }
func (p UserToGroupPayload) PrimaryElement() string { return p.User }

// GroupToGroupPayload records a group-to-group mapping change.
type GroupToGroupPayload struct {
	FromGroup string
	ToGroup   string
}

func (p GroupToGroupPayload) Kind() Kind             { return KindGroupToGroup }
func (p GroupToGroupPayload) PrimaryElement() string { return p.FromGroup }

// UserToComponentAccessPayload records a user's access to an application
// component at an access level.
type UserToComponentAccessPayload struct {
	User                 string
	ApplicationComponent string
	AccessLevel          string
}

func (p UserToComponentAccessPayload) Kind() Kind             { return KindUserToComponentAccess }
func (p UserToComponentAccessPayload) PrimaryElement() string { return p.User }

// GroupToComponentAccessPayload records a group's access to an application
// component at an access level.
type GroupToComponentAccessPayload struct {
	Group                string
	ApplicationComponent string
	AccessLevel          string
}

func (p GroupToComponentAccessPayload) Kind() Kind             { return KindGroupToComponentAccess }
func (p GroupToComponentAccessPayload) PrimaryElement() string { return p.Group }

// EntityTypePayload records an entity type addition or removal.
type EntityTypePayload struct {
	EntityType string
}

func (p EntityTypePayload) Kind() Kind             { return KindEntityType }
func (p EntityTypePayload) PrimaryElement() string { return p.EntityType }

// EntityPayload records an entity addition or removal within its type.
type EntityPayload struct {
	EntityType string
	Entity     string
}

func (p EntityPayload) Kind() Kind             { return KindEntity }
func (p EntityPayload) PrimaryElement() string { return p.EntityType }

// UserToEntityPayload records a user-to-entity mapping change.
type UserToEntityPayload struct {
	User       string
	EntityType string
	Entity     string
}

func (p UserToEntityPayload) Kind() Kind             { return KindUserToEntity }
func (p UserToEntityPayload) PrimaryElement() string { return p.User }

// GroupToEntityPayload records a group-to-entity mapping change.
type GroupToEntityPayload struct {
	Group      string
	EntityType string
	Entity     string
}

func (p GroupToEntityPayload) Kind() Kind             { return KindGroupToEntity }
func (p GroupToEntityPayload) PrimaryElement() string { return p.Group }
