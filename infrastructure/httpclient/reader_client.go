package httpclient

import (
	"context"
	"net/http"
	"strconv"

	"go.uber.org/zap"
)

// ReaderNodeClient forwards queries to reader nodes. It implements the
// router's reader client collaborator.
type ReaderNodeClient struct {
	base *Client
}

// NewReaderNodeClient creates a reader client over the shared transport.
func NewReaderNodeClient(cfg Config, logger *zap.Logger) *ReaderNodeClient {
	return &ReaderNodeClient{base: NewClient(cfg, logger)}
}

func indirectParam(includeIndirect bool) string {
	return "?includeIndirectMappings=" + strconv.FormatBool(includeIndirect)
}

func (c *ReaderNodeClient) getStrings(ctx context.Context, url string) ([]string, error) {
	var result []string
	if err := c.base.do(ctx, http.MethodGet, url, nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *ReaderNodeClient) GetUserToGroupMappings(ctx context.Context, readerURL, user string, includeIndirect bool) ([]string, error) {
	return c.getStrings(ctx, readerURL+"/api/v1/userToGroupMappings/user/"+escape(user)+indirectParam(includeIndirect))
}

func (c *ReaderNodeClient) GetGroupToUserMappings(ctx context.Context, readerURL, group string, includeIndirect bool) ([]string, error) {
	return c.getStrings(ctx, readerURL+"/api/v1/userToGroupMappings/group/"+escape(group)+indirectParam(includeIndirect))
}

func (c *ReaderNodeClient) GetGroupToGroupMappings(ctx context.Context, readerURL, group string, includeIndirect bool) ([]string, error) {
	return c.getStrings(ctx, readerURL+"/api/v1/groupToGroupMappings/group/"+escape(group)+indirectParam(includeIndirect))
}

func (c *ReaderNodeClient) GetGroupToGroupReverseMappings(ctx context.Context, readerURL, group string, includeIndirect bool) ([]string, error) {
	return c.getStrings(ctx, readerURL+"/api/v1/groupToGroupReverseMappings/group/"+escape(group)+indirectParam(includeIndirect))
}

func (c *ReaderNodeClient) HasAccessToApplicationComponent(ctx context.Context, readerURL, user, component, accessLevel string) (bool, error) {
	var has bool
	url := readerURL + "/api/v1/dataElementAccess/applicationComponent/user/" + escape(user) +
		"/applicationComponent/" + escape(component) + "/accessLevel/" + escape(accessLevel)
	if err := c.base.do(ctx, http.MethodGet, url, nil, &has); err != nil {
		return false, err
	}
	return has, nil
}
