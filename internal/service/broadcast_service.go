package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/hivedesk/taskhub-api/internal/access"
	"github.com/hivedesk/taskhub-api/internal/models"
	"github.com/hivedesk/taskhub-api/internal/observability"
)

const broadcastSendBufferSize = 32

// Realtime topic names. Every connection joins its own user topic; leaders
// and superadmins additionally join the role topics.
const (
	TopicLeaders = "leaders"
	TopicAdmins  = "admins"
)

// Realtime event names delivered over the websocket channel.
const (
	EventNewTask     = "new_task"
	EventTaskUpdated = "task_updated"
)

// UserTopic returns the per-user topic name for a user id.
func UserTopic(id uint) string {
	return fmt.Sprintf("user:%d", id)
}

// TopicsFor derives the full topic set for an actor, once, at handshake time.
func TopicsFor(actor access.Actor) []string {
	topics := []string{UserTopic(actor.ID)}
	switch actor.Role {
	case models.RoleLeader:
		topics = append(topics, TopicLeaders)
	case models.RoleSuperadmin:
		topics = append(topics, TopicAdmins)
	case models.RoleMember:
	}
	return topics
}

// Event is the envelope written to subscribed connections.
type Event struct {
	Event   string      `json:"event"`
	Topic   string      `json:"topic"`
	Payload interface{} `json:"payload"`
	SentAt  time.Time   `json:"sent_at"`
}

// BroadcastConnectionOptions wraps metadata extracted during the HTTP upgrade.
type BroadcastConnectionOptions struct {
	Actor   access.Actor
	Context context.Context
}

// BroadcastService fans task lifecycle events out to live connections.
// Delivery is at-most-once and best-effort: disconnected or not-yet-connected
// recipients simply miss the event.
type BroadcastService interface {
	ServeConnection(conn *websocket.Conn, opts BroadcastConnectionOptions)
	Publish(ctx context.Context, topics []string, event string, payload interface{})
	Start(ctx context.Context)
}

type broadcastService struct {
	redis       *redis.Client
	redisStream string
	nats        *nats.Conn
	natsSubject string
	logger      zerolog.Logger
	tracer      trace.Tracer
	hub         *broadcastHub
	nodeID      string
}

// broadcastHub is the only shared mutable state in the process: the live
// topic-membership table. Joins happen on connect, drops on disconnect.
type broadcastHub struct {
	mu     sync.RWMutex
	topics map[string]map[*broadcastClient]struct{}
	log    zerolog.Logger
}

type broadcastClient struct {
	conn    *websocket.Conn
	send    chan Event
	topics  []string
	actor   access.Actor
	service *broadcastService
	closed  chan struct{}
	once    sync.Once
}

// remoteEvent is the wire format relayed between nodes over Redis/NATS.
type remoteEvent struct {
	Source string   `json:"source"`
	Topics []string `json:"topics"`
	Event  Event    `json:"event"`
}

// NewBroadcastService constructs the realtime fan-out service. Both the Redis
// client and the NATS connection are optional; when absent the hub serves the
// local process only.
func NewBroadcastService(redisClient *redis.Client, channelBase string, natsConn *nats.Conn, logger zerolog.Logger) BroadcastService {
	hub := &broadcastHub{
		topics: make(map[string]map[*broadcastClient]struct{}),
		log:    logger.With().Str("component", "broadcast_hub").Logger(),
	}

	stream := ""
	subject := ""
	if channelBase != "" {
		stream = channelBase + ":events"
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".events"
	}

	return &broadcastService{
		redis:       redisClient,
		redisStream: stream,
		nats:        natsConn,
		natsSubject: subject,
		logger:      logger.With().Str("component", "broadcast_service").Logger(),
		tracer:      otel.Tracer("github.com/hivedesk/taskhub-api/internal/service/broadcast"),
		hub:         hub,
		nodeID:      uuid.NewString(),
	}
}

func (s *broadcastService) Start(ctx context.Context) {
	if s.redis != nil && s.redisStream != "" {
		go s.consumeRedis(ctx)
	}
	if s.nats != nil && s.natsSubject != "" {
		go s.consumeNATS(ctx)
	}
}

func (s *broadcastService) ServeConnection(conn *websocket.Conn, opts BroadcastConnectionOptions) {
	client := &broadcastClient{
		conn:    conn,
		send:    make(chan Event, broadcastSendBufferSize),
		topics:  TopicsFor(opts.Actor),
		actor:   opts.Actor,
		service: s,
		closed:  make(chan struct{}),
	}

	s.hub.register(client)
	observability.RealtimeConnections().Inc()
	defer observability.RealtimeConnections().Dec()

	go client.writer()
	client.reader()
}

// Publish delivers the event to every connection currently joined to one of
// the topics, then relays it to peer nodes.
func (s *broadcastService) Publish(ctx context.Context, topics []string, event string, payload interface{}) {
	_, span := s.tracer.Start(ctx, "broadcast.publish", trace.WithAttributes(
		attribute.String("event.name", event),
		attribute.StringSlice("event.topics", topics),
	))
	defer span.End()

	now := time.Now().UTC()
	for _, topic := range topics {
		s.hub.broadcast(topic, Event{Event: event, Topic: topic, Payload: payload, SentAt: now})
	}
	observability.EventsPublished().WithLabelValues(event).Inc()

	if err := s.relay(ctx, topics, event, payload, now); err != nil {
		span.RecordError(err)
		s.logger.Warn().Err(err).Str("event", event).Msg("failed to relay event to peer nodes")
	}
}

func (s *broadcastService) relay(ctx context.Context, topics []string, event string, payload interface{}, sentAt time.Time) error {
	if (s.redis == nil || s.redisStream == "") && (s.nats == nil || s.natsSubject == "") {
		return nil
	}

	wire := remoteEvent{
		Source: s.nodeID,
		Topics: topics,
		Event:  Event{Event: event, Payload: payload, SentAt: sentAt},
	}

	data, err := json.Marshal(wire)
	if err != nil {
		return err
	}

	if s.redis != nil && s.redisStream != "" {
		if err := s.redis.Publish(ctx, s.redisStream, data).Err(); err != nil {
			return err
		}
	}

	if s.nats != nil && s.natsSubject != "" {
		if err := s.nats.Publish(s.natsSubject, data); err != nil {
			return err
		}
	}

	return nil
}

func (s *broadcastService) consumeRedis(ctx context.Context) {
	pubsub := s.redis.Subscribe(ctx, s.redisStream)
	defer func() {
		_ = pubsub.Close()
	}()
	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			s.logger.Error().Err(err).Msg("broadcast redis subscription closed")
			return
		}
		s.handleRemote([]byte(msg.Payload))
	}
}

func (s *broadcastService) consumeNATS(ctx context.Context) {
	sub, err := s.nats.Subscribe(s.natsSubject, func(msg *nats.Msg) {
		s.handleRemote(msg.Data)
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to subscribe to nats event subject")
		return
	}
	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to drain broadcast nats subscription")
		}
	}()
}

func (s *broadcastService) handleRemote(data []byte) {
	var wire remoteEvent
	if err := json.Unmarshal(data, &wire); err != nil {
		s.logger.Warn().Err(err).Msg("invalid remote broadcast event")
		return
	}

	if wire.Source == s.nodeID {
		return
	}

	for _, topic := range wire.Topics {
		event := wire.Event
		event.Topic = topic
		s.hub.broadcast(topic, event)
	}
}

func (h *broadcastHub) register(client *broadcastClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, topic := range client.topics {
		if _, exists := h.topics[topic]; !exists {
			h.topics[topic] = make(map[*broadcastClient]struct{})
		}
		h.topics[topic][client] = struct{}{}
	}
	h.log.Debug().Uint("user_id", client.actor.ID).Strs("topics", client.topics).Msg("realtime client connected")
}

func (h *broadcastHub) unregister(client *broadcastClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, topic := range client.topics {
		if clients, ok := h.topics[topic]; ok {
			delete(clients, client)
			if len(clients) == 0 {
				delete(h.topics, topic)
			}
		}
	}
	h.log.Debug().Uint("user_id", client.actor.ID).Msg("realtime client disconnected")
}

func (h *broadcastHub) broadcast(topic string, event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.topics[topic] {
		select {
		case client.send <- event:
		default:
			h.log.Warn().Str("topic", topic).Uint("user_id", client.actor.ID).Msg("dropping event for slow client")
		}
	}
}

func (c *broadcastClient) close() {
	c.once.Do(func() {
		close(c.closed)
		c.service.hub.unregister(c)
		_ = c.conn.Close()
	})
}

// reader drains inbound frames so control messages are processed and the
// disconnect is noticed; clients never send application messages.
func (c *broadcastClient) reader() {
	defer c.close()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			c.service.logger.Debug().Err(err).Msg("broadcast read loop ended")
			return
		}
	}
}

func (c *broadcastClient) writer() {
	defer c.close()

	for {
		select {
		case event, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.WriteJSON(event); err != nil {
				c.service.logger.Debug().Err(err).Msg("broadcast write loop terminated")
				return
			}
		case <-time.After(30 * time.Second):
			if err := c.conn.WriteMessage(websocket.PingMessage, []byte("keepalive")); err != nil {
				c.service.logger.Debug().Err(err).Msg("broadcast ping failed")
				return
			}
		case <-c.closed:
			return
		}
	}
}
