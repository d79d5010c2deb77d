package client

import (
	"context"
	"net/http"

	"github.com/rbaliyan/conversation/api"
	"github.com/rbaliyan/conversation/workspace"
)

// Workspace is the workspace side of a Client.
type Workspace struct {
	c *Client
}

var _ workspace.Backend = Workspace{}

// Workspace returns the workspace endpoints of c.
func (c *Client) Workspace() Workspace {
	return Workspace{c: c}
}

func (w Workspace) TrashDocument(ctx context.Context, id string) error {
	return w.c.do(ctx, http.MethodPut, route(api.RouteDocumentTrash, "id", id), nil, nil, nil)
}

func (w Workspace) TrashFolder(ctx context.Context, id string) error {
	return w.c.do(ctx, http.MethodPut, route(api.RouteWSFolderTrash, "id", id), nil, nil, nil)
}
