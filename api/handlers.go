package api

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/illumefy/illumefy-server/pkg/catalog"
	"github.com/illumefy/illumefy-server/pkg/creators"
	"github.com/illumefy/illumefy-server/pkg/storage"
	"github.com/illumefy/illumefy-server/pkg/youtube"
)

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

func limitParam(c *fiber.Ctx) int {
	raw := c.Query("limit")
	if raw == "" {
		return 0
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0
	}
	return limit
}

// --- creators ---

func (s *Server) handlePopularCreators(c *fiber.Ctx) error {
	result, err := s.service.Popular(c.Context(), limitParam(c))
	if err != nil {
		s.logger.Error("listing popular creators", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to list creators"})
	}
	return c.JSON(fiber.Map{"creators": result})
}

func (s *Server) handleNewestCreators(c *fiber.Ctx) error {
	result, err := s.service.Newest(c.Context(), limitParam(c))
	if err != nil {
		s.logger.Error("listing newest creators", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to list creators"})
	}
	return c.JSON(fiber.Map{"creators": result})
}

// handleSearchCreators answers multi-tag searches. Tags arrive as a
// comma-separated list of tag IDs in the "tags" query parameter. An
// optional "userId" records the search in that user's history.
func (s *Server) handleSearchCreators(c *fiber.Ctx) error {
	raw := c.Query("tags")
	tagIDs := splitList(raw)
	if len(tagIDs) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "tags parameter required"})
	}

	result, err := s.search.Search(c.Context(), tagIDs, limitParam(c))
	if err != nil {
		if errors.Is(err, creators.ErrNoTags) {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: err.Error()})
		}
		s.logger.Error("searching creators", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "search failed"})
	}

	if userID := c.Query("userId"); userID != "" {
		if err := s.service.RecordSearch(c.Context(), userID, raw); err != nil {
			s.logger.Warn("recording search history", zap.Error(err))
		}
	}

	return c.JSON(fiber.Map{"creators": result})
}

func (s *Server) handleGetCreator(c *fiber.Ctx) error {
	id := c.Params("id")

	creator, err := s.service.Get(c.Context(), id)
	if err != nil {
		if storage.IsNotFound(err) {
			return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "creator not found"})
		}
		s.logger.Error("loading creator", zap.String("creator_id", id), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to load creator"})
	}

	creatorTags, err := s.service.Tags(c.Context(), creator)
	if err != nil {
		s.logger.Warn("expanding creator tags", zap.String("creator_id", id), zap.Error(err))
	}

	if userID := c.Query("userId"); userID != "" {
		if err := s.service.RecordView(c.Context(), userID, id); err != nil {
			s.logger.Warn("recording view history", zap.Error(err))
		}
	}

	return c.JSON(fiber.Map{
		"creator": creator,
		"tags":    creatorTags,
	})
}

type updateCreatorRequest struct {
	Name            *string            `json:"name"`
	Description     *string            `json:"description"`
	ProfileImageURL *string            `json:"profileImageUrl"`
	Platforms       *catalog.Platforms `json:"platforms"`
	Tags            []string           `json:"tags"`

	// EditorID identifies who made the edit for the history record.
	EditorID string `json:"editorId,omitempty"`
}

// handleUpdateCreator applies a partial edit to a creator. Omitted fields
// keep their stored values; the change lands in the edit history.
func (s *Server) handleUpdateCreator(c *fiber.Ctx) error {
	id := c.Params("id")

	var req updateCreatorRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}

	creator, err := s.service.Update(c.Context(), id, creators.CreatorUpdate{
		Name:            req.Name,
		Description:     req.Description,
		ProfileImageURL: req.ProfileImageURL,
		Platforms:       req.Platforms,
		Tags:            req.Tags,
		EditorID:        req.EditorID,
	})
	if err != nil {
		switch {
		case errors.Is(err, creators.ErrInvalidUpdate):
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: err.Error()})
		case storage.IsNotFound(err):
			return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "creator not found"})
		}
		s.logger.Error("updating creator", zap.String("creator_id", id), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to update creator"})
	}

	return c.JSON(fiber.Map{"creator": creator})
}

func (s *Server) handleCreatorEditHistory(c *fiber.Ctx) error {
	history, err := s.service.EditHistory(c.Context(), c.Params("id"), limitParam(c))
	if err != nil {
		s.logger.Error("listing edit history", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to list history"})
	}
	return c.JSON(fiber.Map{"edits": history})
}

func (s *Server) handleDeleteCreator(c *fiber.Ctx) error {
	id := c.Params("id")

	if err := s.service.Delete(c.Context(), id); err != nil {
		if storage.IsNotFound(err) {
			return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "creator not found"})
		}
		s.logger.Error("deleting creator", zap.String("creator_id", id), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to delete creator"})
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// --- tags ---

func (s *Server) handleListTags(c *fiber.Ctx) error {
	allTags, err := s.store.AllTags(c.Context())
	if err != nil {
		s.logger.Error("listing tags", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to list tags"})
	}
	return c.JSON(fiber.Map{"tags": allTags})
}

func (s *Server) handlePopularTags(c *fiber.Ctx) error {
	limit := limitParam(c)
	if limit == 0 {
		limit = creators.DefaultSearchLimit
	}

	popular, err := s.store.PopularTags(c.Context(), limit)
	if err != nil {
		s.logger.Error("listing popular tags", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to list tags"})
	}
	return c.JSON(fiber.Map{"tags": popular})
}

type registerTagsRequest struct {
	Names []string `json:"names"`

	// Context optionally labels where the names came from, for log
	// correlation only.
	Context string `json:"context,omitempty"`
}

// handleRegisterTags resolves a batch of tag names to canonical tag IDs,
// creating tags for genuinely new concepts.
func (s *Server) handleRegisterTags(c *fiber.Ctx) error {
	var req registerTagsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}
	if len(req.Names) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "names are required"})
	}

	ids, err := s.registrar.RegisterAll(c.Context(), req.Names, req.Context)
	if err != nil {
		s.logger.Error("registering tags", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "registration failed"})
	}

	resolved, err := s.store.TagsByIDs(c.Context(), ids)
	if err != nil {
		s.logger.Error("loading registered tags", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to load tags"})
	}

	return c.JSON(fiber.Map{"tags": resolved})
}

// --- ingest ---

type ingestYouTubeRequest struct {
	URL string `json:"url"`
}

func (s *Server) handleIngestYouTube(c *fiber.Ctx) error {
	if s.pipeline == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{Error: "ingest is not configured"})
	}

	var req ingestYouTubeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}
	if strings.TrimSpace(req.URL) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "url is required"})
	}

	creator, err := s.pipeline.Ingest(c.Context(), req.URL)
	if err != nil {
		switch {
		case errors.Is(err, youtube.ErrNotChannelURL):
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "url is not a youtube channel"})
		case errors.Is(err, youtube.ErrChannelNotFound):
			return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "channel not found"})
		}
		s.logger.Error("ingesting creator", zap.String("url", req.URL), zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(ErrorResponse{Error: "ingest failed"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"creator": creator})
}

// --- users ---

func (s *Server) handleToggleFavorite(c *fiber.Ctx) error {
	userID := c.Params("userID")
	creatorID := c.Params("creatorID")

	favorited, err := s.service.ToggleFavorite(c.Context(), userID, creatorID)
	if err != nil {
		if storage.IsNotFound(err) {
			return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "creator not found"})
		}
		s.logger.Error("toggling favorite", zap.String("creator_id", creatorID), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to toggle favorite"})
	}

	return c.JSON(fiber.Map{"favorited": favorited})
}

func (s *Server) handleListFavorites(c *fiber.Ctx) error {
	favorites, err := s.service.Favorites(c.Context(), c.Params("userID"))
	if err != nil {
		s.logger.Error("listing favorites", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to list favorites"})
	}
	return c.JSON(fiber.Map{"creators": favorites})
}

func (s *Server) handleViewHistory(c *fiber.Ctx) error {
	history, err := s.service.ViewHistory(c.Context(), c.Params("userID"), limitParam(c))
	if err != nil {
		s.logger.Error("listing view history", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to list history"})
	}
	return c.JSON(fiber.Map{"views": history})
}

func (s *Server) handleSearchHistory(c *fiber.Ctx) error {
	history, err := s.service.SearchHistory(c.Context(), c.Params("userID"), limitParam(c))
	if err != nil {
		s.logger.Error("listing search history", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to list history"})
	}
	return c.JSON(fiber.Map{"searches": history})
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
