// Package server exposes a mailbox.Service over HTTP.
//
// Every route but the health check requires a bearer token signed with the
// server secret whose subject is the calling user. Each user is rate
// limited independently.
package server

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rbaliyan/conversation/api"
	"github.com/rbaliyan/conversation/mailbox"
)

// ErrSecretRequired is returned when no token secret is configured.
var ErrSecretRequired = errors.New("server: secret is required")

// Server serves the conversation API.
type Server struct {
	svc     *mailbox.Service
	opts    *options
	logger  *slog.Logger
	limiter *userLimiter
}

// New creates a server for svc.
func New(svc *mailbox.Service, opts ...Option) (*Server, error) {
	o := newOptions(opts...)
	if len(o.secret) == 0 {
		return nil, ErrSecretRequired
	}
	return &Server{
		svc:     svc,
		opts:    o,
		logger:  o.logger,
		limiter: newUserLimiter(o.rateLimit, o.rateBurst, o.limiterIdle),
	}, nil
}

// Handler returns the HTTP handler of the API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggerMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.opts.requestTimeout))
	if len(s.opts.allowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.opts.allowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			ExposedHeaders:   []string{"Retry-After"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get(api.RouteHealth, s.healthz)

	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Use(s.rateLimitMiddleware)

		r.Get(api.RouteList, s.list)
		r.Get(api.RouteCount, s.count)
		r.Get(api.RouteMessage, s.getMessage)
		r.Get(api.RouteExport, s.exportMessage)
		r.Post(api.RouteDraft, s.createDraft)
		r.Put(api.RouteDraftID, s.updateDraft)
		r.Post(api.RouteSend, s.send)
		r.Put(api.RouteTrash, s.trash)
		r.Put(api.RouteRestore, s.restore)
		r.Delete(api.RouteDelete, s.delete)
		r.Get(api.RouteVisible, s.visible)
		r.Get(api.RouteMaxDepth, s.maxDepth)

		r.Get(api.RouteFolders, s.listFolders)
		r.Post(api.RouteFolder, s.createFolder)
		r.Put(api.RouteFolderID, s.renameFolder)
		r.Put(api.RouteFolderTrash, s.trashFolder)
		r.Put(api.RouteFolderRestore, s.restoreFolder)
		r.Delete(api.RouteFolderID, s.deleteFolder)
		r.Put(api.RouteMoveUserFolder, s.moveToFolder)
		r.Put(api.RouteMoveRoot, s.moveToRoot)

		r.Post(api.RouteAttachments, s.addAttachment)
		r.Get(api.RouteAttachment, s.getAttachment)
		r.Delete(api.RouteAttachment, s.removeAttachment)
		r.Put(api.RouteForward, s.forward)

		r.Get(api.RouteQuota, s.quota)
		r.Get(api.RoutePerson, s.person)
	})

	return r
}

func (s *Server) loggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			s.logger.Debug("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()))
		}()

		next.ServeHTTP(ww, r)
	})
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	if !s.svc.IsConnected() {
		writeMessage(w, http.StatusServiceUnavailable, "service unavailable")
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) userMailbox(r *http.Request) *mailbox.Mailbox {
	return s.svc.Mailbox(UserID(r.Context()))
}
