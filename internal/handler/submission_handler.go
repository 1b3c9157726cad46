package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/fumi-go-api/internal/dto"
	"github.com/noah-isme/fumi-go-api/internal/middleware"
	"github.com/noah-isme/fumi-go-api/internal/models"
	"github.com/noah-isme/fumi-go-api/internal/repository"
	"github.com/noah-isme/fumi-go-api/internal/service"
	"github.com/noah-isme/fumi-go-api/internal/utils"
)

// SubmissionHandler manages submission endpoints.
type SubmissionHandler struct {
	submissions service.SubmissionService
	queries     service.QueryService
	logger      zerolog.Logger
	writeLimit  fiber.Handler
}

// NewSubmissionHandler builds a submission handler instance. writeLimit
// guards the mutating routes and may be nil.
func NewSubmissionHandler(submissions service.SubmissionService, queries service.QueryService, writeLimit fiber.Handler, logger zerolog.Logger) *SubmissionHandler {
	if writeLimit == nil {
		writeLimit = func(c *fiber.Ctx) error { return c.Next() }
	}
	return &SubmissionHandler{
		submissions: submissions,
		queries:     queries,
		logger:      logger.With().Str("component", "submission_handler").Logger(),
		writeLimit:  writeLimit,
	}
}

// Register attaches the routes to the provided router group.
func (h *SubmissionHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Post("", h.writeLimit, middleware.RequireRole(models.RoleStudent), h.create)
	router.Get("/:id", h.get)
	router.Put("/:id/draft", h.writeLimit, middleware.RequireRole(models.RoleStudent), h.saveDraft)
	router.Post("/:id/submit", h.writeLimit, middleware.RequireRole(models.RoleStudent), h.submit)
	router.Post("/:id/grade", h.writeLimit, middleware.RequireRole(models.RoleTeacher), h.grade)
	router.Post("/:id/ai-grade", middleware.RequireRole(models.RoleReviewer, models.RoleTeacher), h.aiGrade)
	router.Post("/:id/review", middleware.RequireRole(models.RoleReviewer), h.review)
}

func (h *SubmissionHandler) list(c *fiber.Ctx) error {
	filter := repository.SubmissionFilter{
		StudentID: optionalQuery(c, "student_id"),
		TaskID:    optionalQuery(c, "task_id"),
	}

	filter = service.ReadableFilter(actorFromContext(c), filter)

	submissions, err := h.queries.ListSubmissions(c.UserContext(), filter)
	if err != nil {
		return sendServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "submissions retrieved", dto.NewSubmissionResponseSlice(submissions))
}

func (h *SubmissionHandler) get(c *fiber.Ctx) error {
	ctx := c.UserContext()
	submission, err := h.queries.FindSubmissionByID(ctx, c.Params("id"))
	if err != nil {
		return sendServiceError(c, h.logger, err)
	}

	if !service.CanRead(actorFromContext(c), submission) {
		return sendServiceError(c, h.logger, service.ErrForbidden)
	}

	history, err := h.queries.SubmissionHistory(ctx, submission.ID)
	if err != nil {
		return sendServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "submission retrieved", dto.NewSubmissionDetailResponse(submission, history))
}

func (h *SubmissionHandler) create(c *fiber.Ctx) error {
	var payload dto.SubmissionCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	submission, err := h.submissions.Create(c.UserContext(), payload, actorFromContext(c))
	if err != nil {
		return sendServiceError(c, h.logger, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "submission created", dto.NewSubmissionResponse(submission))
}

func (h *SubmissionHandler) saveDraft(c *fiber.Ctx) error {
	var payload dto.SubmissionDraftRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	submission, err := h.submissions.SaveDraft(c.UserContext(), c.Params("id"), payload.Content, actorFromContext(c))
	if err != nil {
		return sendServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "draft saved", dto.NewSubmissionResponse(submission))
}

func (h *SubmissionHandler) submit(c *fiber.Ctx) error {
	submission, err := h.submissions.Submit(c.UserContext(), c.Params("id"), actorFromContext(c))
	if err != nil {
		return sendServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "submission submitted", dto.NewSubmissionResponse(submission))
}

func (h *SubmissionHandler) grade(c *fiber.Ctx) error {
	var payload dto.SubmissionGradeRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if payload.TeacherScore == nil {
		return utils.SendError(c, fiber.StatusBadRequest, "teacher_score is required")
	}

	submission, err := h.submissions.Grade(c.UserContext(), c.Params("id"), *payload.TeacherScore, payload.TeacherFeedback, actorFromContext(c))
	if err != nil {
		return sendServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "submission graded", dto.NewSubmissionResponse(submission))
}

func (h *SubmissionHandler) aiGrade(c *fiber.Ctx) error {
	var payload dto.AIGradeRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if payload.AIScore == nil {
		return utils.SendError(c, fiber.StatusBadRequest, "ai_score is required")
	}

	submission, err := h.submissions.DeliverAIGrade(c.UserContext(), c.Params("id"), *payload.AIScore, payload.FeedbackPayload(), actorFromContext(c))
	if err != nil {
		return sendServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "ai grade recorded", dto.NewSubmissionResponse(submission))
}

func (h *SubmissionHandler) review(c *fiber.Ctx) error {
	submission, err := h.submissions.MarkReviewed(c.UserContext(), c.Params("id"), actorFromContext(c))
	if err != nil {
		return sendServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "submission reviewed", dto.NewSubmissionResponse(submission))
}
