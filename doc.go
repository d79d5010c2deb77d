// Package conversation is the client side of the portal messaging service.
//
// It keeps a local model of one user's mailbox: the system folders (inbox,
// outbox, drafts, trash) and the user's own folder tree, each holding a
// paginated list of mails, plus the directory of people the user may write
// to and their storage quota. The model is filled and kept in sync through
// a Backend, normally the HTTP client of the client package.
//
// # Basic Usage
//
//	backend := client.New("https://portal.example.org", client.WithToken(token))
//
//	c, err := conversation.New(backend, conversation.WithMe("u1"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := c.Sync(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	for _, m := range c.Inbox.Mails().All() {
//	    fmt.Println(m.Sender().DisplayName, m.Subject)
//	}
//
// # Controller
//
// Controller wraps a Conversation with the state of a mail screen (the open
// folder, the mail being read or composed, the selection and sort order)
// and exposes every user action on it: reply, forward, send, move, trash,
// folder management, attachment upload, drag and drop.
//
// # Concurrency
//
// Conversation, folders and mail collections are safe for concurrent use.
// A Mail value is not: it belongs to the caller editing it.
package conversation
