package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rbaliyan/conversation/api"
	"github.com/rbaliyan/conversation/mailbox"
)

var systemFolders = []string{api.FolderInbox, api.FolderOutbox, api.FolderDraft, api.FolderTrash}

func page(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get(api.ParamPage))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(io.LimitReader(r.Body, mailbox.DefaultMaxBodySize*2)).Decode(v); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func ids(r *http.Request) []string {
	return r.URL.Query()[api.ParamID]
}

// list serves system folders by name and user folders by id.
func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	folder := chi.URLParam(r, "folder")
	mb := s.userMailbox(r)

	var err error
	var mails []api.Mail
	if slices.Contains(systemFolders, strings.ToLower(folder)) {
		msgs, lerr := mb.List(r.Context(), folder, page(r))
		mails, err = toMails(msgs), lerr
	} else {
		msgs, lerr := mb.ListUserFolder(r.Context(), folder, page(r))
		mails, err = toMails(msgs), lerr
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mails)
}

func (s *Server) count(w http.ResponseWriter, r *http.Request) {
	n, err := s.userMailbox(r).CountUnread(r.Context(), chi.URLParam(r, "folder"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, api.Count{Count: n})
}

func (s *Server) getMessage(w http.ResponseWriter, r *http.Request) {
	msg, err := s.userMailbox(r).Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMail(msg))
}

func (s *Server) exportMessage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(s.userMailbox(r).Export(r.Context(), pw, id))
	}()
	defer pr.Close()

	// Read ahead so that a missing message still gets a proper status.
	buf := make([]byte, 4096)
	n, err := io.ReadAtLeast(pr, buf, 1)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "message/rfc822")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": id + ".eml"}))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf[:n])
	_, _ = io.Copy(w, pr)
}

func toDraft(req api.DraftRequest) mailbox.Draft {
	return mailbox.Draft{Subject: req.Subject, Body: req.Body, To: req.To, Cc: req.Cc}
}

func (s *Server) createDraft(w http.ResponseWriter, r *http.Request) {
	var req api.DraftRequest
	if !decode(w, r, &req) {
		return
	}
	msg, err := s.userMailbox(r).SaveDraft(r.Context(), toDraft(req), r.URL.Query().Get(api.ParamInReplyTo))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, api.IDResponse{ID: msg.ID})
}

func (s *Server) updateDraft(w http.ResponseWriter, r *http.Request) {
	var req api.DraftRequest
	if !decode(w, r, &req) {
		return
	}
	msg, err := s.userMailbox(r).UpdateDraft(r.Context(), chi.URLParam(r, "id"), toDraft(req))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, api.IDResponse{ID: msg.ID})
}

func (s *Server) send(w http.ResponseWriter, r *http.Request) {
	var req api.DraftRequest
	if !decode(w, r, &req) {
		return
	}
	q := r.URL.Query()
	res, err := s.userMailbox(r).Send(r.Context(), q.Get(api.ParamID), q.Get(api.ParamInReplyTo), toDraft(req))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, api.SendResult{
		ID:          res.Message.ID,
		Sent:        res.Sent,
		Inactive:    nonNil(res.Inactive),
		Undelivered: nonNil(res.Undelivered),
	})
}

func (s *Server) trash(w http.ResponseWriter, r *http.Request) {
	s.noContent(w, r, s.userMailbox(r).Trash(r.Context(), ids(r)))
}

func (s *Server) restore(w http.ResponseWriter, r *http.Request) {
	s.noContent(w, r, s.userMailbox(r).Restore(r.Context(), ids(r)))
}

func (s *Server) delete(w http.ResponseWriter, r *http.Request) {
	s.noContent(w, r, s.userMailbox(r).Delete(r.Context(), ids(r)))
}

func (s *Server) noContent(w http.ResponseWriter, r *http.Request, err error) {
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) visible(w http.ResponseWriter, r *http.Request) {
	users, groups, err := s.userMailbox(r).Visible(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := api.Visible{
		Groups: make([]api.Group, len(groups)),
		Users:  make([]api.Person, len(users)),
	}
	for i, g := range groups {
		out.Groups[i] = api.Group{ID: g.ID, Name: g.Name, DisplayName: g.Name}
	}
	for i, u := range users {
		out.Users[i] = toPerson(u)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) maxDepth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, api.MaxDepth{MaxDepth: s.svc.MaxFolderDepth()})
}

func (s *Server) listFolders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	_, trash := q[api.ParamTrash]
	folders, err := s.userMailbox(r).ListFolders(r.Context(), q.Get(api.ParamParentID), trash)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toFolders(folders))
}

func (s *Server) createFolder(w http.ResponseWriter, r *http.Request) {
	var req api.FolderRequest
	if !decode(w, r, &req) {
		return
	}
	f, err := s.userMailbox(r).CreateFolder(r.Context(), req.Name, req.ParentID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, api.IDResponse{ID: f.ID})
}

func (s *Server) renameFolder(w http.ResponseWriter, r *http.Request) {
	var req api.FolderRequest
	if !decode(w, r, &req) {
		return
	}
	_, err := s.userMailbox(r).RenameFolder(r.Context(), chi.URLParam(r, "id"), req.Name)
	s.noContent(w, r, err)
}

func (s *Server) trashFolder(w http.ResponseWriter, r *http.Request) {
	s.noContent(w, r, s.userMailbox(r).TrashFolder(r.Context(), chi.URLParam(r, "id")))
}

func (s *Server) restoreFolder(w http.ResponseWriter, r *http.Request) {
	s.noContent(w, r, s.userMailbox(r).RestoreFolder(r.Context(), chi.URLParam(r, "id")))
}

func (s *Server) deleteFolder(w http.ResponseWriter, r *http.Request) {
	s.noContent(w, r, s.userMailbox(r).DeleteFolder(r.Context(), chi.URLParam(r, "id")))
}

func (s *Server) moveToFolder(w http.ResponseWriter, r *http.Request) {
	s.noContent(w, r, s.userMailbox(r).MoveToFolder(r.Context(), chi.URLParam(r, "folderId"), ids(r)))
}

func (s *Server) moveToRoot(w http.ResponseWriter, r *http.Request) {
	s.noContent(w, r, s.userMailbox(r).MoveToRoot(r.Context(), ids(r)))
}

// addAttachment streams the "file" part of a multipart body.
func (s *Server) addAttachment(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.maxUploadSize)
	mr, err := r.MultipartReader()
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "expected a multipart body")
		return
	}
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			writeMessage(w, http.StatusBadRequest, fmt.Sprintf("missing %q part", api.FormFile))
			return
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeMessage(w, http.StatusRequestEntityTooLarge, "upload too large")
			return
		}
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "malformed multipart body")
			return
		}
		if part.FormName() != api.FormFile {
			_ = part.Close()
			continue
		}

		att, err := s.userMailbox(r).AddAttachment(r.Context(), chi.URLParam(r, "id"), part.FileName(), part.Header.Get("Content-Type"), part)
		_ = part.Close()
		if errors.As(err, &tooLarge) {
			writeMessage(w, http.StatusRequestEntityTooLarge, "upload too large")
			return
		}
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, api.IDResponse{ID: att.ID})
		return
	}
}

func (s *Server) getAttachment(w http.ResponseWriter, r *http.Request) {
	att, rc, err := s.userMailbox(r).LoadAttachment(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "attachmentId"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", att.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(att.Size, 10))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": att.Filename}))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		s.logger.Warn("attachment download interrupted", "attachment_id", att.ID, "error", err)
	}
}

func (s *Server) removeAttachment(w http.ResponseWriter, r *http.Request) {
	s.noContent(w, r, s.userMailbox(r).RemoveAttachment(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "attachmentId")))
}

func (s *Server) forward(w http.ResponseWriter, r *http.Request) {
	msg, err := s.userMailbox(r).Forward(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "forwardedId"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMail(msg))
}

func (s *Server) quota(w http.ResponseWriter, r *http.Request) {
	if chi.URLParam(r, "id") != UserID(r.Context()) {
		writeMessage(w, http.StatusForbidden, "quota of another user")
		return
	}
	usage, err := s.userMailbox(r).Quota(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, api.Quota{Quota: usage.Quota, Storage: usage.Storage})
}

func (s *Server) person(w http.ResponseWriter, r *http.Request) {
	u, err := s.userMailbox(r).Person(r.Context(), r.URL.Query().Get(api.ParamID))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, api.PersonResult{Result: []api.Person{toPerson(u)}})
}
