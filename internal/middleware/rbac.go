package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/hivedesk/taskhub-api/internal/access"
	"github.com/hivedesk/taskhub-api/internal/models"
	"github.com/hivedesk/taskhub-api/internal/utils"
)

// RequireRole gates a route group to the given roles. The check reads the
// role claim placed in locals by the JWT middleware; finer-grained rules
// (team scope, ownership) live in the access package and run per request.
func RequireRole(roles ...models.Role) fiber.Handler {
	allowed := make(map[models.Role]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		claim, _ := c.Locals("user_role").(string)
		role := models.Role(strings.ToLower(strings.TrimSpace(claim)))
		if _, ok := allowed[role]; !ok {
			return utils.SendForbidden(c, access.ReasonRoleForbidden, "insufficient permissions")
		}
		return c.Next()
	}
}
