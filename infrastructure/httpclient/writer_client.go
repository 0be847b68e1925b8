package httpclient

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"appaccess-backend/domain/events"
	apperrors "appaccess-backend/pkg/errors"
)

// WriterNodeClient forwards mutations to writer nodes. It implements the
// router's writer client collaborator.
type WriterNodeClient struct {
	base *Client
}

// NewWriterNodeClient creates a writer client over the shared transport.
func NewWriterNodeClient(cfg Config, logger *zap.Logger) *WriterNodeClient {
	return &WriterNodeClient{base: NewClient(cfg, logger)}
}

// ApplyMutation sends one mutation to the writer at writerURL. Add maps to
// POST, Remove to DELETE.
func (c *WriterNodeClient) ApplyMutation(ctx context.Context, writerURL string, action events.Action, payload events.Payload) error {
	path, err := mutationPath(payload)
	if err != nil {
		return err
	}
	method := http.MethodPost
	if action == events.Remove {
		method = http.MethodDelete
	}
	return c.base.do(ctx, method, writerURL+path, nil, nil)
}

func mutationPath(payload events.Payload) (string, error) {
	switch p := payload.(type) {
	case events.UserPayload:
		return "/api/v1/users/" + escape(p.User), nil
	case events.GroupPayload:
		return "/api/v1/groups/" + escape(p.Group), nil
	case events.UserToGroupPayload:
		return "/api/v1/userToGroupMappings/user/" + escape(p.User) + "/group/" + escape(p.Group), nil
	case events.GroupToGroupPayload:
		return "/api/v1/groupToGroupMappings/fromGroup/" + escape(p.FromGroup) + "/toGroup/" + escape(p.ToGroup), nil
	case events.UserToComponentAccessPayload:
		return "/api/v1/userToApplicationComponentAndAccessLevelMappings/user/" + escape(p.User) +
			"/applicationComponent/" + escape(p.ApplicationComponent) + "/accessLevel/" + escape(p.AccessLevel), nil
	case events.GroupToComponentAccessPayload:
		return "/api/v1/groupToApplicationComponentAndAccessLevelMappings/group/" + escape(p.Group) +
			"/applicationComponent/" + escape(p.ApplicationComponent) + "/accessLevel/" + escape(p.AccessLevel), nil
	case events.EntityTypePayload:
		return "/api/v1/entityTypes/" + escape(p.EntityType), nil
	case events.EntityPayload:
		return "/api/v1/entityTypes/" + escape(p.EntityType) + "/entities/" + escape(p.Entity), nil
	case events.UserToEntityPayload:
		return "/api/v1/userToEntityMappings/user/" + escape(p.User) +
			"/entityType/" + escape(p.EntityType) + "/entity/" + escape(p.Entity), nil
	case events.GroupToEntityPayload:
		return "/api/v1/groupToEntityMappings/group/" + escape(p.Group) +
			"/entityType/" + escape(p.EntityType) + "/entity/" + escape(p.Entity), nil
	default:
		return "", apperrors.NewInvalidArgument("payload", fmt.Sprintf("unsupported payload type %T", payload))
	}
}
