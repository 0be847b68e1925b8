package writer

import (
	"strings"

	"github.com/go-playground/validator/v10"

	"appaccess-backend/domain/events"
	apperrors "appaccess-backend/pkg/errors"
)

// EventValidator inspects a stamped event before it is applied. Returning an
// error rejects the mutation without buffering anything.
type EventValidator interface {
	ValidateEvent(ev events.TemporalEvent) error
}

// NullEventValidator permits everything.
type NullEventValidator struct{}

func (NullEventValidator) ValidateEvent(events.TemporalEvent) error { return nil }

// ElementValidator rejects events whose element names are empty or consist
// only of whitespace. Structural checks (duplicates, missing prerequisites,
// cycles) remain the access manager's responsibility.
type ElementValidator struct {
	validate *validator.Validate
}

// NewElementValidator creates an ElementValidator.
func NewElementValidator() *ElementValidator {
	return &ElementValidator{validate: validator.New()}
}

func (v *ElementValidator) ValidateEvent(ev events.TemporalEvent) error {
	for name, value := range payloadFields(ev.Payload) {
		if err := v.validate.Var(value, "required"); err != nil || strings.TrimSpace(value) == "" {
			return apperrors.NewInvalidArgument(name, name+" must be a non-blank string")
		}
	}
	return nil
}

func payloadFields(p events.Payload) map[string]string {
	switch pl := p.(type) {
	case events.UserPayload:
		return map[string]string{"user": pl.User}
	case events.GroupPayload:
		return map[string]string{"group": pl.Group}
	case events.UserToGroupPayload:
		return map[string]string{"user": pl.User, "group": pl.Group}
	case events.GroupToGroupPayload:
		return map[string]string{"fromGroup": pl.FromGroup, "toGroup": pl.ToGroup}
	case events.UserToComponentAccessPayload:
		return map[string]string{"user": pl.User, "applicationComponent": pl.ApplicationComponent, "accessLevel": pl.AccessLevel}
	case events.GroupToComponentAccessPayload:
		return map[string]string{"group": pl.Group, "applicationComponent": pl.ApplicationComponent, "accessLevel": pl.AccessLevel}
	case events.EntityTypePayload:
		return map[string]string{"entityType": pl.EntityType}
	case events.EntityPayload:
		return map[string]string{"entityType": pl.EntityType, "entity": pl.Entity}
	case events.UserToEntityPayload:
		return map[string]string{"user": pl.User, "entityType": pl.EntityType, "entity": pl.Entity}
	case events.GroupToEntityPayload:
		return map[string]string{"group": pl.Group, "entityType": pl.EntityType, "entity": pl.Entity}
	default:
		return nil
	}
}
