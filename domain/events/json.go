package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// wireEvent is the flat JSON form of a TemporalEvent. The payload kind is the
// discriminator; only the fields of that kind are populated.
type wireEvent struct {
	EventID      uuid.UUID `json:"eventId"`
	Action       string    `json:"action"`
	OccurredTime string    `json:"occurredTime"`
	HashCode     int32     `json:"hashCode"`
	Kind         Kind      `json:"kind"`

	User                 string `json:"user,omitempty"`
	Group                string `json:"group,omitempty"`
	FromGroup            string `json:"fromGroup,omitempty"`
	ToGroup              string `json:"toGroup,omitempty"`
	ApplicationComponent string `json:"applicationComponent,omitempty"`
	AccessLevel          string `json:"accessLevel,omitempty"`
	EntityType           string `json:"entityType,omitempty"`
	Entity               string `json:"entity,omitempty"`
}

// occurredTimeLayout fixes microsecond precision on the wire.
const occurredTimeLayout = "2006-01-02T15:04:05.000000Z07:00"

// MarshalJSON flattens the event into the wire form.
func (e TemporalEvent) MarshalJSON() ([]byte, error) {
	if e.Payload == nil {
		return nil, fmt.Errorf("temporal event %s has no payload", e.EventID)
	}
	w := wireEvent{
		EventID:      e.EventID,
		Action:       e.Action.String(),
		OccurredTime: e.OccurredTime.UTC().Format(occurredTimeLayout),
		HashCode:     e.HashCode,
		Kind:         e.Payload.Kind(),
	}
	switch p := e.Payload.(type) {
	case UserPayload:
		w.User = p.User
	case GroupPayload:
		w.Group = p.Group
	case UserToGroupPayload:
		w.User, w.Group = p.User, p.Group
	case GroupToGroupPayload:
		w.FromGroup, w.ToGroup = p.FromGroup, p.ToGroup
	case UserToComponentAccessPayload:
		w.User, w.ApplicationComponent, w.AccessLevel = p.User, p.ApplicationComponent, p.AccessLevel
	case GroupToComponentAccessPayload:
		w.Group, w.ApplicationComponent, w.AccessLevel = p.Group, p.ApplicationComponent, p.AccessLevel
	case EntityTypePayload:
		w.EntityType = p.EntityType
	case EntityPayload:
		w.EntityType, w.Entity = p.EntityType, p.Entity
	case UserToEntityPayload:
		w.User, w.EntityType, w.Entity = p.User, p.EntityType, p.Entity
	case GroupToEntityPayload:
		w.Group, w.EntityType, w.Entity = p.Group, p.EntityType, p.Entity
	default:
		return nil, fmt.Errorf("unknown payload type %T", e.Payload)
	}
	return json.Marshal(w)
}

// UnmarshalJSON reconstructs the event from the wire form.
func (e *TemporalEvent) UnmarshalJSON(data []byte) error {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	occurred, err := time.Parse(occurredTimeLayout, w.OccurredTime)
	if err != nil {
		// Tolerate peers emitting plain RFC3339.
		occurred, err = time.Parse(time.RFC3339Nano, w.OccurredTime)
		if err != nil {
			return fmt.Errorf("parsing occurredTime %q: %w", w.OccurredTime, err)
		}
	}

	action := Add
	if w.Action == Remove.String() {
		action = Remove
	} else if w.Action != Add.String() {
		return fmt.Errorf("unknown event action %q", w.Action)
	}

	var payload Payload
	switch w.Kind {
	case KindUser:
		payload = UserPayload{User: w.User}
	case KindGroup:
		payload = GroupPayload{Group: w.Group}
	case KindUserToGroup:
		payload = UserToGroupPayload{User: w.User, Group: w.Group}
	case KindGroupToGroup:
		payload = GroupToGroupPayload{FromGroup: w.FromGroup, ToGroup: w.ToGroup}
	case KindUserToComponentAccess:
		payload = UserToComponentAccessPayload{User: w.User, ApplicationComponent: w.ApplicationComponent, AccessLevel: w.AccessLevel}
	case KindGroupToComponentAccess:
		payload = GroupToComponentAccessPayload{Group: w.Group, ApplicationComponent: w.ApplicationComponent, AccessLevel: w.AccessLevel}
	case KindEntityType:
		payload = EntityTypePayload{EntityType: w.EntityType}
	case KindEntity:
		payload = EntityPayload{EntityType: w.EntityType, Entity: w.Entity}
	case KindUserToEntity:
		payload = UserToEntityPayload{User: w.User, EntityType: w.EntityType, Entity: w.Entity}
	case KindGroupToEntity:
		payload = GroupToEntityPayload{Group: w.Group, EntityType: w.EntityType, Entity: w.Entity}
	default:
		return fmt.Errorf("unknown event kind %q", w.Kind)
	}

	e.Header = Header{
		EventID:      w.EventID,
		Action:       action,
		OccurredTime: occurred.UTC(),
		HashCode:     w.HashCode,
	}
	e.Payload = payload
	return nil
}
