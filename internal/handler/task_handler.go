package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/fumi-go-api/internal/dto"
	"github.com/noah-isme/fumi-go-api/internal/middleware"
	"github.com/noah-isme/fumi-go-api/internal/models"
	"github.com/noah-isme/fumi-go-api/internal/service"
	"github.com/noah-isme/fumi-go-api/internal/utils"
)

// TaskHandler manages task endpoints.
type TaskHandler struct {
	queries service.QueryService
	catalog service.CatalogService
	logger  zerolog.Logger
	now     func() time.Time
}

// NewTaskHandler builds a task handler instance.
func NewTaskHandler(queries service.QueryService, catalog service.CatalogService, logger zerolog.Logger) *TaskHandler {
	return &TaskHandler{
		queries: queries,
		catalog: catalog,
		logger:  logger.With().Str("component", "task_handler").Logger(),
		now:     time.Now,
	}
}

// Register attaches the routes to the provided router group.
func (h *TaskHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Post("", middleware.RequireRole(models.RoleTeacher), h.create)
	router.Get("/:id", h.get)
	router.Delete("/:id", middleware.RequireRole(models.RoleTeacher), h.delete)
}

func (h *TaskHandler) list(c *fiber.Ctx) error {
	var (
		tasks []models.Task
		err   error
	)
	if teacherID := optionalQuery(c, "teacher_id"); teacherID != nil {
		tasks, err = h.queries.ListTasksForTeacher(c.UserContext(), *teacherID)
	} else {
		tasks, err = h.queries.ListTasks(c.UserContext())
	}
	if err != nil {
		return sendServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "tasks retrieved", dto.NewTaskResponseSlice(tasks, h.now()))
}

func (h *TaskHandler) get(c *fiber.Ctx) error {
	task, err := h.queries.FindTaskByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return sendServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "task retrieved", dto.NewTaskResponse(task, h.now()))
}

func (h *TaskHandler) create(c *fiber.Ctx) error {
	var payload dto.TaskCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	task, err := h.catalog.CreateTask(c.UserContext(), payload, actorFromContext(c))
	if err != nil {
		return sendServiceError(c, h.logger, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "task created", dto.NewTaskResponse(task, h.now()))
}

func (h *TaskHandler) delete(c *fiber.Ctx) error {
	if err := h.catalog.DeleteTask(c.UserContext(), c.Params("id"), actorFromContext(c)); err != nil {
		return sendServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "task deleted", nil)
}
