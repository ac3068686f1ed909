package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const correlationLocal = "correlation_id"

// Headers accepted from clients, in order of preference.
var correlationHeaders = []string{"X-Correlation-ID", "X-Request-ID"}

// CorrelationID tags every request with an identifier that is echoed back
// to the client and stamped on the request log line, so a reported failure
// can be matched to its log entry.
func CorrelationID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var id string
		for _, header := range correlationHeaders {
			if value := strings.TrimSpace(c.Get(header)); value != "" {
				id = value
				break
			}
		}
		if id == "" {
			id = uuid.NewString()
		}

		c.Locals(correlationLocal, id)
		c.Set("X-Correlation-ID", id)
		return c.Next()
	}
}

// GetCorrelationID returns the identifier bound to the active request, or
// an empty string outside the middleware chain.
func GetCorrelationID(c *fiber.Ctx) string {
	if c == nil {
		return ""
	}
	id, _ := c.Locals(correlationLocal).(string)
	return id
}
