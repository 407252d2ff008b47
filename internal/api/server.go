// Package api exposes the boundary operations over HTTP. It is thin
// plumbing: requests are parsed and validated here, everything else is
// delegated to the resolvers and the context assembler.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/convocore/convocore/internal/convo"
	"github.com/convocore/convocore/internal/database"
	"github.com/convocore/convocore/internal/groups"
	"github.com/convocore/convocore/internal/identity"
	"github.com/convocore/convocore/internal/logger"
)

// Server wires the HTTP router to the core components.
type Server struct {
	logger    *slog.Logger
	store     database.Store
	identity  *identity.Resolver
	groups    *groups.Resolver
	assembler *convo.Assembler
	validate  *validator.Validate
}

// NewServer creates the API server.
func NewServer(
	log *slog.Logger,
	store database.Store,
	identityResolver *identity.Resolver,
	groupResolver *groups.Resolver,
	assembler *convo.Assembler,
) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		logger:    log.With("component", "api"),
		store:     store,
		identity:  identityResolver,
		groups:    groupResolver,
		assembler: assembler,
		validate:  validator.New(),
	}
}

// Router builds the chi router with all routes and middleware.
func (s *Server) Router(requestTimeout time.Duration) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logger.RequestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)

	r.Post("/users/resolve", s.handleResolveUser)
	r.Post("/groups/resolve", s.handleResolveGroup)
	r.Post("/groups/{groupID}/members", s.handleEnsureMembership)
	r.Delete("/groups/{groupID}/members/{userID}", s.handleLeaveGroup)
	r.Get("/groups/{groupID}/history", s.handleGroupHistory)
	r.Delete("/groups/{groupID}", s.handleDeactivateGroup)

	r.Post("/messages", s.handleAppendMessage)
	r.Get("/history", s.handleGetHistory)
	r.Post("/context", s.handleBuildContext)
	r.Post("/chat", s.handleChat)

	return r
}
