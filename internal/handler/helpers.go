package handler

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/fumi-go-api/internal/middleware"
	"github.com/noah-isme/fumi-go-api/internal/models"
	"github.com/noah-isme/fumi-go-api/internal/service"
	"github.com/noah-isme/fumi-go-api/internal/utils"
)

func actorFromContext(c *fiber.Ctx) service.Actor {
	id, role := middleware.Identity(c)
	return service.Actor{ID: id, Role: role}
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

func optionalQuery(c *fiber.Ctx, key string) *string {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return nil
	}
	return &value
}

// sendServiceError maps domain error kinds onto HTTP statuses.
func sendServiceError(c *fiber.Ctx, logger zerolog.Logger, err error) error {
	var validationErrors validator.ValidationErrors
	var validationErr *models.ValidationError
	var stateErr *models.StateError
	var notFoundErr *models.NotFoundError

	switch {
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	case errors.As(err, &validationErr):
		if validationErr.Field == "" {
			return utils.SendError(c, fiber.StatusBadRequest, validationErr.Error())
		}
		return utils.SendErrorWithDetails(c, fiber.StatusBadRequest, validationErr.Error(), fiber.Map{"field": validationErr.Field})
	case errors.As(err, &notFoundErr):
		return utils.SendError(c, fiber.StatusNotFound, notFoundErr.Error())
	case errors.As(err, &stateErr):
		return utils.SendErrorWithDetails(c, fiber.StatusConflict, stateErr.Error(), fiber.Map{"status": stateErr.Status.String()})
	case errors.Is(err, models.ErrTaskInUse):
		return utils.SendError(c, fiber.StatusConflict, models.ErrTaskInUse.Error())
	case errors.Is(err, service.ErrForbidden):
		return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
	default:
		requestLogger(logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
