package api

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/illumefy/illumefy-server/pkg/creators"
	"github.com/illumefy/illumefy-server/pkg/ingest"
	"github.com/illumefy/illumefy-server/pkg/storage"
	"github.com/illumefy/illumefy-server/pkg/tags"
)

// ErrorResponse is the JSON error envelope for API failures.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Server is the HTTP API server for the creator catalog.
type Server struct {
	config    Config
	store     storage.Store
	service   *creators.Service
	search    *creators.SearchEngine
	registrar *tags.Registrar
	pipeline  *ingest.Pipeline
	logger    *zap.Logger
	app       *fiber.App
}

// ServerOption configures optional server components.
type ServerOption func(*Server)

// WithPipeline enables the admin ingest endpoint.
func WithPipeline(p *ingest.Pipeline) ServerOption {
	return func(s *Server) {
		s.pipeline = p
	}
}

// NewServer creates a new API server.
// The store is injected to allow sharing with other components.
func NewServer(config Config, store storage.Store, service *creators.Service, search *creators.SearchEngine, registrar *tags.Registrar, logger *zap.Logger, opts ...ServerOption) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config:    config,
		store:     store,
		service:   service,
		search:    search,
		registrar: registrar,
		logger:    logger,
		app:       app,
	}
	for _, opt := range opts {
		opt(s)
	}

	app.Get("/ping", s.handlePing)

	v1 := app.Group("/v1")
	v1.Get("/creators/popular", s.handlePopularCreators)
	v1.Get("/creators/newest", s.handleNewestCreators)
	v1.Get("/creators/search", s.handleSearchCreators)
	v1.Get("/creators/:id", s.handleGetCreator)
	v1.Put("/creators/:id", s.handleUpdateCreator)
	v1.Delete("/creators/:id", s.handleDeleteCreator)
	v1.Get("/creators/:id/edit-history", s.handleCreatorEditHistory)

	v1.Get("/tags", s.handleListTags)
	v1.Get("/tags/popular", s.handlePopularTags)
	v1.Post("/tags/register", s.handleRegisterTags)

	v1.Post("/admin/creators/youtube", s.handleIngestYouTube)

	v1.Post("/users/:userID/favorites/:creatorID/toggle", s.handleToggleFavorite)
	v1.Get("/users/:userID/favorites", s.handleListFavorites)
	v1.Get("/users/:userID/history/views", s.handleViewHistory)
	v1.Get("/users/:userID/history/searches", s.handleSearchHistory)

	return s
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		zap.String("listen", s.config.ListenAddr),
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
