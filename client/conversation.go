package client

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/rbaliyan/conversation"
	"github.com/rbaliyan/conversation/api"
)

var _ conversation.Backend = (*Client)(nil)

func pageQuery(page int) url.Values {
	return url.Values{api.ParamPage: {api.Page(page)}}
}

func (c *Client) ListMails(ctx context.Context, folder string, page int) ([]api.Mail, error) {
	var out []api.Mail
	err := c.do(ctx, http.MethodGet, route(api.RouteList, "folder", folder), pageQuery(page), nil, &out)
	return out, err
}

func (c *Client) ListUserFolderMails(ctx context.Context, folderID string, page int) ([]api.Mail, error) {
	q := pageQuery(page)
	q.Set(api.ParamRestrain, "")
	var out []api.Mail
	err := c.do(ctx, http.MethodGet, route(api.RouteList, "folder", folderID), q, nil, &out)
	return out, err
}

func (c *Client) CountUnread(ctx context.Context, folder string) (int64, error) {
	var out api.Count
	q := url.Values{api.ParamUnread: {"true"}}
	err := c.do(ctx, http.MethodGet, route(api.RouteCount, "folder", strings.ToUpper(folder)), q, nil, &out)
	return out.Count, err
}

func (c *Client) GetMail(ctx context.Context, id string) (api.Mail, error) {
	var out api.Mail
	err := c.do(ctx, http.MethodGet, route(api.RouteMessage, "id", id), nil, nil, &out)
	return out, err
}

func (c *Client) CreateDraft(ctx context.Context, req api.DraftRequest, inReplyTo string) (string, error) {
	var q url.Values
	if inReplyTo != "" {
		q = url.Values{api.ParamInReplyTo: {inReplyTo}}
	}
	var out api.IDResponse
	err := c.do(ctx, http.MethodPost, api.RouteDraft, q, req, &out)
	return out.ID, err
}

func (c *Client) UpdateDraft(ctx context.Context, id string, req api.DraftRequest) error {
	return c.do(ctx, http.MethodPut, route(api.RouteDraftID, "id", id), nil, req, nil)
}

func (c *Client) Send(ctx context.Context, draftID, inReplyTo string, req api.DraftRequest) (api.SendResult, error) {
	q := url.Values{}
	if draftID != "" {
		q.Set(api.ParamID, draftID)
	}
	if inReplyTo != "" {
		q.Set(api.ParamInReplyTo, inReplyTo)
	}
	var out api.SendResult
	err := c.do(ctx, http.MethodPost, api.RouteSend, q, req, &out)
	return out, err
}

func (c *Client) Trash(ctx context.Context, ids []string) error {
	return c.do(ctx, http.MethodPut, api.RouteTrash, api.IDs(ids...), nil, nil)
}

func (c *Client) Restore(ctx context.Context, ids []string) error {
	return c.do(ctx, http.MethodPut, api.RouteRestore, api.IDs(ids...), nil, nil)
}

func (c *Client) Delete(ctx context.Context, ids []string) error {
	return c.do(ctx, http.MethodDelete, api.RouteDelete, api.IDs(ids...), nil, nil)
}

func (c *Client) Visible(ctx context.Context) (api.Visible, error) {
	var out api.Visible
	err := c.do(ctx, http.MethodGet, api.RouteVisible, nil, nil, &out)
	return out, err
}

func (c *Client) MaxDepth(ctx context.Context) (int, error) {
	var out api.MaxDepth
	err := c.do(ctx, http.MethodGet, api.RouteMaxDepth, nil, nil, &out)
	return out.MaxDepth, err
}

func (c *Client) Quota(ctx context.Context, userID string) (api.Quota, error) {
	var out api.Quota
	err := c.do(ctx, http.MethodGet, route(api.RouteQuota, "id", userID), nil, nil, &out)
	return out, err
}

func (c *Client) Person(ctx context.Context, id string) (api.PersonResult, error) {
	var out api.PersonResult
	err := c.do(ctx, http.MethodGet, api.RoutePerson, url.Values{api.ParamID: {id}}, nil, &out)
	return out, err
}

func (c *Client) ListFolders(ctx context.Context, parentID string, trash bool) ([]api.Folder, error) {
	q := url.Values{}
	if parentID != "" {
		q.Set(api.ParamParentID, parentID)
	}
	if trash {
		q.Set(api.ParamTrash, "")
	}
	var out []api.Folder
	err := c.do(ctx, http.MethodGet, api.RouteFolders, q, nil, &out)
	return out, err
}

func (c *Client) CreateFolder(ctx context.Context, name, parentID string) (string, error) {
	var out api.IDResponse
	err := c.do(ctx, http.MethodPost, api.RouteFolder, nil, api.FolderRequest{Name: name, ParentID: parentID}, &out)
	return out.ID, err
}

func (c *Client) RenameFolder(ctx context.Context, id, name string) error {
	return c.do(ctx, http.MethodPut, route(api.RouteFolderID, "id", id), nil, api.FolderRequest{Name: name}, nil)
}

func (c *Client) TrashFolder(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPut, route(api.RouteFolderTrash, "id", id), nil, nil, nil)
}

func (c *Client) RestoreFolder(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPut, route(api.RouteFolderRestore, "id", id), nil, nil, nil)
}

func (c *Client) DeleteFolder(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, route(api.RouteFolderID, "id", id), nil, nil, nil)
}

func (c *Client) MoveToFolder(ctx context.Context, folderID string, ids []string) error {
	return c.do(ctx, http.MethodPut, route(api.RouteMoveUserFolder, "folderId", folderID), api.IDs(ids...), nil, nil)
}

func (c *Client) MoveToRoot(ctx context.Context, ids []string) error {
	return c.do(ctx, http.MethodPut, api.RouteMoveRoot, api.IDs(ids...), nil, nil)
}

func (c *Client) DeleteAttachment(ctx context.Context, mailID, attachmentID string) error {
	return c.do(ctx, http.MethodDelete, route(api.RouteAttachment, "id", mailID, "attachmentId", attachmentID), nil, nil, nil)
}

func (c *Client) Forward(ctx context.Context, draftID, originID string) (api.Mail, error) {
	var out api.Mail
	err := c.do(ctx, http.MethodPut, route(api.RouteForward, "id", draftID, "forwardedId", originID), nil, nil, &out)
	return out, err
}
