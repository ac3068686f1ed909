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

// UserHandler wires user directory HTTP routes.
type UserHandler struct {
	service   service.UserService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewUserHandler constructs the handler.
func NewUserHandler(service service.UserService, validator *validator.Validate, logger zerolog.Logger) *UserHandler {
	return &UserHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "user_handler").Logger(),
	}
}

// Register attaches user endpoints to the router group. Listing and mutating
// users is reserved for leaders and superadmins; stats is open to any
// authenticated actor.
func (h *UserHandler) Register(router fiber.Router) {
	manage := middleware.RequireRole(models.RoleLeader, models.RoleSuperadmin)

	router.Get("", manage, h.list)
	router.Post("", manage, h.create)
	router.Put("/:id", manage, h.update)
	router.Delete("/:id", manage, h.delete)
	router.Get("/:id/stats", h.stats)
}

func (h *UserHandler) list(c *fiber.Ctx) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	users, err := h.service.List(c.Context(), actor)
	if err != nil {
		return sendServiceError(c, err)
	}

	return utils.SendSuccess(c, "users retrieved", users)
}

func (h *UserHandler) create(c *fiber.Ctx) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	var payload dto.UserCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	user, err := h.service.Create(c.Context(), actor, payload)
	if err != nil {
		return sendServiceError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "user created successfully", user)
}

func (h *UserHandler) update(c *fiber.Ctx) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var patch dto.UserUpdateRequest
	if err := c.BodyParser(&patch); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	user, err := h.service.Update(c.Context(), actor, id, patch)
	if err != nil {
		return sendServiceError(c, err)
	}

	return utils.SendSuccess(c, "user updated successfully", user)
}

func (h *UserHandler) delete(c *fiber.Ctx) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.Delete(c.Context(), actor, id); err != nil {
		return sendServiceError(c, err)
	}

	return utils.SendSuccess(c, "user deleted successfully", nil)
}

func (h *UserHandler) stats(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	counts, err := h.service.Stats(c.Context(), id)
	if err != nil {
		return sendServiceError(c, err)
	}

	return utils.SendSuccess(c, "task stats retrieved", counts)
}
