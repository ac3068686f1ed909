package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/hivedesk/taskhub-api/internal/dto"
	"github.com/hivedesk/taskhub-api/internal/middleware"
	"github.com/hivedesk/taskhub-api/internal/models"
	"github.com/hivedesk/taskhub-api/internal/service"
	"github.com/hivedesk/taskhub-api/internal/utils"
)

// ActivityHandler wires the audit trail read endpoint.
type ActivityHandler struct {
	service   service.ActivityService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewActivityHandler constructs the handler.
func NewActivityHandler(service service.ActivityService, validator *validator.Validate, logger zerolog.Logger) *ActivityHandler {
	return &ActivityHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "activity_handler").Logger(),
	}
}

// Register attaches the activity endpoint to the router group.
func (h *ActivityHandler) Register(router fiber.Router) {
	router.Get("", middleware.RequireRole(models.RoleLeader, models.RoleSuperadmin), h.list)
}

func (h *ActivityHandler) list(c *fiber.Ctx) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	page, err := parseQueryInt(c, "page")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page")
	}
	limit, err := parseQueryInt(c, "limit")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid limit")
	}
	actorID, err := parseQueryUintPtr(c, "userId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid userId")
	}

	query := dto.ActivityListQuery{
		Type:    c.Query("type"),
		ActorID: actorID,
		Page:    page,
		Limit:   limit,
	}

	response, err := h.service.List(c.Context(), actor, query)
	if err != nil {
		return sendServiceError(c, err)
	}

	return utils.SendSuccess(c, "activity retrieved", response)
}
