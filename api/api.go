// Package api holds the JSON shapes and routes shared by the conversation
// server and its HTTP client.
package api

import (
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// Routes. Path parameters use chi syntax.
const (
	RouteList           = "/conversation/list/{folder}"
	RouteCount          = "/conversation/count/{folder}"
	RouteMessage        = "/conversation/message/{id}"
	RouteExport         = "/conversation/message/{id}/export"
	RouteDraft          = "/conversation/draft"
	RouteDraftID        = "/conversation/draft/{id}"
	RouteSend           = "/conversation/send"
	RouteTrash          = "/conversation/trash"
	RouteRestore        = "/conversation/restore"
	RouteDelete         = "/conversation/delete"
	RouteVisible        = "/conversation/visible"
	RouteMaxDepth       = "/conversation/max-depth"
	RouteFolders        = "/conversation/folders/list"
	RouteFolder         = "/conversation/folder"
	RouteFolderID       = "/conversation/folder/{id}"
	RouteFolderTrash    = "/conversation/folder/trash/{id}"
	RouteFolderRestore  = "/conversation/folder/restore/{id}"
	RouteMoveUserFolder = "/conversation/move/userfolder/{folderId}"
	RouteMoveRoot       = "/conversation/move/root"
	RouteAttachments    = "/conversation/message/{id}/attachment"
	RouteAttachment     = "/conversation/message/{id}/attachment/{attachmentId}"
	RouteForward        = "/conversation/message/{id}/forward/{forwardedId}"
	RouteQuota          = "/workspace/quota/user/{id}"
	RouteDocumentTrash  = "/workspace/document/trash/{id}"
	RouteWSFolderTrash  = "/workspace/folder/trash/{id}"
	RoutePerson         = "/userbook/api/person"
	RouteHealth         = "/healthz"
)

// Query parameters.
const (
	ParamID        = "id"
	ParamPage      = "page"
	ParamInReplyTo = "In-Reply-To"
	ParamUnread    = "unread"
	ParamRestrain  = "restrain"
	ParamParentID  = "parentId"
	ParamTrash     = "trash"
	FormFile       = "file"
)

// Folder names accepted by RouteList.
const (
	FolderInbox  = "inbox"
	FolderOutbox = "outbox"
	FolderDraft  = "draft"
	FolderTrash  = "trash"
)

// Message states.
const (
	StateDraft = "DRAFT"
	StateSent  = "SENT"
)

// Attachment describes a file attached to a message.
type Attachment struct {
	ID          string `json:"id"`
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

// Mail is a message as exchanged over the wire. Date is milliseconds since
// the Unix epoch. DisplayNames pairs every id of From, To and Cc with the
// name it had when the message was written.
type Mail struct {
	ID           string       `json:"id"`
	Date         int64        `json:"date"`
	Subject      string       `json:"subject"`
	Body         string       `json:"body"`
	From         string       `json:"from"`
	To           []string     `json:"to"`
	Cc           []string     `json:"cc"`
	DisplayNames [][2]string  `json:"displayNames"`
	Unread       bool         `json:"unread"`
	State        string       `json:"state"`
	ParentID     string       `json:"parent_id,omitempty"`
	ThreadID     string       `json:"thread_id,omitempty"`
	FromName     string       `json:"fromName,omitempty"`
	ToName       []string     `json:"toName,omitempty"`
	Attachments  []Attachment `json:"attachments"`
}

// DraftRequest is the body of draft and send requests.
type DraftRequest struct {
	Subject string   `json:"subject"`
	Body    string   `json:"body"`
	To      []string `json:"to"`
	Cc      []string `json:"cc"`
}

// IDResponse carries the id of a created resource.
type IDResponse struct {
	ID string `json:"id"`
}

// SendResult reports how a message was delivered. Inactive lists the display
// names of recipients who never activated their account, Undelivered the
// ids nothing could be delivered to.
type SendResult struct {
	ID          string   `json:"id"`
	Sent        int      `json:"sent"`
	Inactive    []string `json:"inactive"`
	Undelivered []string `json:"undelivered"`
}

// Count is the body of RouteCount.
type Count struct {
	Count int64 `json:"count"`
}

// MaxDepth is the body of RouteMaxDepth.
type MaxDepth struct {
	MaxDepth int `json:"max-depth"`
}

// Folder is a user folder.
type Folder struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ParentID string `json:"parent_id,omitempty"`
	Depth    int    `json:"depth"`
	Trashed  bool   `json:"trashed,omitempty"`
}

// FolderRequest creates or renames a folder.
type FolderRequest struct {
	Name     string `json:"name"`
	ParentID string `json:"parentId,omitempty"`
}

// Person is a visible user.
type Person struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Name        string `json:"name,omitempty"`
	Profile     string `json:"profile,omitempty"`
}

// Group is a visible group of users.
type Group struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName,omitempty"`
}

// Visible lists the users and groups the caller may write to.
type Visible struct {
	Groups []Group  `json:"groups"`
	Users  []Person `json:"users"`
}

// PersonResult is the body of RoutePerson.
type PersonResult struct {
	Result []Person `json:"result"`
}

// Quota is the body of RouteQuota, in bytes.
type Quota struct {
	Quota   int64 `json:"quota"`
	Storage int64 `json:"storage"`
}

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error string `json:"error"`
}

// Error is a non-2xx response.
type Error struct {
	Status  int
	Message string
	// RetryAfter is the parsed Retry-After header in seconds, zero if absent.
	RetryAfter int
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: status %d", e.Status)
	}
	return fmt.Sprintf("api: status %d: %s", e.Status, e.Message)
}

// Retryable reports whether the request may succeed if sent again.
func (e *Error) Retryable() bool {
	return e.Status == 429 || e.Status >= 500
}

// RetryDelay is the wait requested by the server through Retry-After.
func (e *Error) RetryDelay() time.Duration {
	return time.Duration(e.RetryAfter) * time.Second
}

// IDs encodes ids as repeated id= query parameters.
func IDs(ids ...string) url.Values {
	v := make(url.Values, 1)
	for _, id := range ids {
		v.Add(ParamID, id)
	}
	return v
}

// Page encodes a page number.
func Page(n int) string {
	return strconv.Itoa(n)
}
