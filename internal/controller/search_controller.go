package controller

import (
	"strconv"

	"semantic-notes-be/internal/dto"
	"semantic-notes-be/internal/pkg/apperror"
	"semantic-notes-be/internal/pkg/serverutils"
	"semantic-notes-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type ISearchController interface {
	RegisterRoutes(r fiber.Router)
	Search(ctx *fiber.Ctx) error
	Similar(ctx *fiber.Ctx) error
	GenerateEmbeddings(ctx *fiber.Ctx) error
}

type searchController struct {
	searchService   service.ISearchService
	backfillService service.IBackfillService
}

func NewSearchController(searchService service.ISearchService, backfillService service.IBackfillService) ISearchController {
	return &searchController{
		searchService:   searchService,
		backfillService: backfillService,
	}
}

func (c *searchController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/search/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Post("search", c.Search)
	h.Get("similar/:noteId", c.Similar)
	h.Post("generate-embeddings", c.GenerateEmbeddings)
}

func (c *searchController) Search(ctx *fiber.Ctx) error {
	userId, err := currentUserId(ctx)
	if err != nil {
		return err
	}

	var req dto.SemanticSearchRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.searchService.SearchByText(ctx.Context(), userId, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success search notes", res))
}

func (c *searchController) Similar(ctx *fiber.Ctx) error {
	userId, err := currentUserId(ctx)
	if err != nil {
		return err
	}

	noteId, err := uuid.Parse(ctx.Params("noteId"))
	if err != nil {
		return apperror.ErrNoteNotFound
	}

	limit := 0
	if raw := ctx.Query("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return fiber.NewError(fiber.StatusBadRequest, "limit must be a positive integer")
		}
	}

	res, err := c.searchService.FindSimilar(ctx.Context(), userId, noteId, limit)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get similar notes", res))
}

// GenerateEmbeddings answers as soon as the backfill is scheduled; progress
// only shows up in the logs.
func (c *searchController) GenerateEmbeddings(ctx *fiber.Ctx) error {
	userId, err := currentUserId(ctx)
	if err != nil {
		return err
	}

	started := c.backfillService.GenerateMissingEmbeddings(userId)

	res := dto.BackfillResponse{
		Started: started,
		Message: "Embedding generation started",
	}
	if !started {
		res.Message = "Embedding generation already running"
	}

	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse("Backfill scheduled", res))
}
