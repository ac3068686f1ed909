package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/hivedesk/taskhub-api/internal/access"
	"github.com/hivedesk/taskhub-api/internal/middleware"
	"github.com/hivedesk/taskhub-api/internal/service"
)

// RealtimeHandler upgrades websocket connections and joins them to their
// topics. Authentication happens once, at handshake time, via a token query
// parameter; topic membership is derived from the actor and never changes
// for the lifetime of the connection.
type RealtimeHandler struct {
	broadcaster service.BroadcastService
	users       middleware.UserSource
	jwtSecret   string
	logger      zerolog.Logger
}

// NewRealtimeHandler constructs the handler.
func NewRealtimeHandler(broadcaster service.BroadcastService, users middleware.UserSource, jwtSecret string, logger zerolog.Logger) *RealtimeHandler {
	return &RealtimeHandler{
		broadcaster: broadcaster,
		users:       users,
		jwtSecret:   jwtSecret,
		logger:      logger.With().Str("component", "realtime_handler").Logger(),
	}
}

// Register binds the websocket endpoint on the provided router group.
func (h *RealtimeHandler) Register(router fiber.Router) {
	router.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	router.Get("/ws", websocket.New(h.handleConnection))
}

func (h *RealtimeHandler) handleConnection(conn *websocket.Conn) {
	actor, ok := h.authenticate(conn)
	if !ok {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "authentication failed"))
		_ = conn.Close()
		return
	}

	h.logger.Info().Uint("user_id", actor.ID).Str("role", string(actor.Role)).Msg("realtime connection established")
	h.broadcaster.ServeConnection(conn, service.BroadcastConnectionOptions{
		Actor:   actor,
		Context: context.Background(),
	})
	h.logger.Info().Uint("user_id", actor.ID).Msg("realtime connection closed")
}

func (h *RealtimeHandler) authenticate(conn *websocket.Conn) (access.Actor, bool) {
	token := conn.Query("token")
	if token == "" {
		return access.Actor{}, false
	}

	userID, err := middleware.ParseToken(h.jwtSecret, token)
	if err != nil {
		h.logger.Debug().Err(err).Msg("realtime handshake rejected")
		return access.Actor{}, false
	}

	user, err := h.users.GetByID(context.Background(), userID)
	if err != nil || !user.IsActive {
		return access.Actor{}, false
	}

	return access.Actor{ID: user.ID, Role: user.Role, Active: user.IsActive}, true
}
