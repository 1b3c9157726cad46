package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/fumi-go-api/internal/dto"
	"github.com/noah-isme/fumi-go-api/internal/middleware"
	"github.com/noah-isme/fumi-go-api/internal/models"
	"github.com/noah-isme/fumi-go-api/internal/service"
	"github.com/noah-isme/fumi-go-api/internal/utils"
)

// QuestionHandler serves the question catalogue.
type QuestionHandler struct {
	queries service.QueryService
	catalog service.CatalogService
	logger  zerolog.Logger
}

// NewQuestionHandler builds a question handler instance.
func NewQuestionHandler(queries service.QueryService, catalog service.CatalogService, logger zerolog.Logger) *QuestionHandler {
	return &QuestionHandler{
		queries: queries,
		catalog: catalog,
		logger:  logger.With().Str("component", "question_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *QuestionHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Post("", middleware.RequireRole(models.RoleTeacher), h.create)
	router.Get("/best", h.best)
	router.Get("/:id", h.get)
}

func (h *QuestionHandler) list(c *fiber.Ctx) error {
	var difficulty *models.DifficultyLevel
	if raw := optionalQuery(c, "difficulty"); raw != nil {
		level, ok := models.ParseDifficulty(*raw)
		if !ok {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid difficulty")
		}
		difficulty = &level
	}

	questions, err := h.queries.ListQuestions(c.UserContext(), difficulty)
	if err != nil {
		return sendServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "questions retrieved", dto.NewQuestionResponseSlice(questions))
}

func (h *QuestionHandler) best(c *fiber.Ctx) error {
	level := models.DifficultyN5
	if raw := optionalQuery(c, "difficulty"); raw != nil {
		parsed, ok := models.ParseDifficulty(*raw)
		if !ok {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid difficulty")
		}
		level = parsed
	}

	question, err := h.queries.FindBestQuestion(c.UserContext(), level)
	if err != nil {
		return sendServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "question retrieved", dto.NewQuestionResponse(question))
}

func (h *QuestionHandler) get(c *fiber.Ctx) error {
	question, err := h.queries.FindQuestionByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return sendServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "question retrieved", dto.NewQuestionResponse(question))
}

func (h *QuestionHandler) create(c *fiber.Ctx) error {
	var payload dto.QuestionCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	question, err := h.catalog.CreateQuestion(c.UserContext(), payload, actorFromContext(c))
	if err != nil {
		return sendServiceError(c, h.logger, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "question created", dto.NewQuestionResponse(question))
}
