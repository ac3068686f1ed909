package middleware

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/hivedesk/taskhub-api/internal/access"
	"github.com/hivedesk/taskhub-api/internal/models"
	"github.com/hivedesk/taskhub-api/internal/utils"
)

const actorLocal = "actor"

// UserSource resolves the account behind a token subject.
type UserSource interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
}

// LoadActor resolves the authenticated user behind the token claims set by
// JWTProtected and threads an explicit access.Actor through the request.
// Tokens for unknown or deactivated accounts are rejected here.
func LoadActor(users UserSource) fiber.Handler {
	return func(c *fiber.Ctx) error {
		idValue := c.Locals("user_id")
		id, ok := idValue.(uint)
		if !ok || id == 0 {
			return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
		}

		user, err := users.GetByID(c.Context(), id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
			}
			return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
		}
		if !user.IsActive {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		c.Locals(actorLocal, access.Actor{ID: user.ID, Role: user.Role, Active: user.IsActive})
		c.Locals("user_role", string(user.Role))

		return c.Next()
	}
}

// ActorFromContext returns the actor bound to the request, if any.
func ActorFromContext(c *fiber.Ctx) (access.Actor, bool) {
	if value := c.Locals(actorLocal); value != nil {
		if actor, ok := value.(access.Actor); ok {
			return actor, true
		}
	}
	return access.Actor{}, false
}
