// Package realtime fans submission status events out to stream subscribers.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/fumi-go-api/internal/models"
	"github.com/noah-isme/fumi-go-api/internal/observability"
)

const subscriberBufferSize = 16

type envelope struct {
	Source string                 `json:"source"`
	Event  models.SubmissionEvent `json:"event"`
	SentAt time.Time              `json:"sent_at"`
}

// Hub delivers events to subscribers of a submission. When a Redis client is
// configured, events are also relayed to hubs running on other nodes.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan models.SubmissionEvent]struct{}
	redis       *redis.Client
	channel     string
	nodeID      string
	logger      zerolog.Logger
}

// NewHub constructs a hub. redisClient may be nil.
func NewHub(redisClient *redis.Client, channel string, logger zerolog.Logger) *Hub {
	if channel == "" {
		channel = "fumi:submission-events"
	}
	return &Hub{
		subscribers: make(map[string]map[chan models.SubmissionEvent]struct{}),
		redis:       redisClient,
		channel:     channel,
		nodeID:      uuid.NewString(),
		logger:      logger.With().Str("component", "realtime_hub").Logger(),
	}
}

// Start consumes relayed events until ctx is cancelled.
func (h *Hub) Start(ctx context.Context) {
	if h.redis == nil {
		return
	}
	pubsub := h.redis.Subscribe(ctx, h.channel)
	go func() {
		defer func() { _ = pubsub.Close() }()
		for {
			msg, err := pubsub.ReceiveMessage(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) || ctx.Err() != nil {
					return
				}
				h.logger.Error().Err(err).Msg("submission event subscription closed")
				return
			}
			h.handleRelay([]byte(msg.Payload))
		}
	}()
}

// Publish delivers the event locally and relays it to other nodes.
func (h *Hub) Publish(event models.SubmissionEvent) {
	h.broadcast(event)

	if h.redis == nil {
		return
	}
	payload, err := json.Marshal(envelope{Source: h.nodeID, Event: event, SentAt: time.Now().UTC()})
	if err != nil {
		h.logger.Warn().Err(err).Msg("failed to encode submission event")
		return
	}
	if err := h.redis.Publish(context.Background(), h.channel, payload).Err(); err != nil {
		h.logger.Warn().Err(err).Str("submission_id", event.SubmissionID).Msg("failed to relay submission event")
	}
}

// Subscribe registers a listener for one submission. The returned func must
// be called to release it.
func (h *Hub) Subscribe(submissionID string) (<-chan models.SubmissionEvent, func()) {
	channel := make(chan models.SubmissionEvent, subscriberBufferSize)

	h.mu.Lock()
	if _, exists := h.subscribers[submissionID]; !exists {
		h.subscribers[submissionID] = make(map[chan models.SubmissionEvent]struct{})
	}
	h.subscribers[submissionID][channel] = struct{}{}
	h.mu.Unlock()
	observability.StreamClientsActive().Inc()

	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			h.mu.Lock()
			if subscribers, ok := h.subscribers[submissionID]; ok {
				delete(subscribers, channel)
				close(channel)
				if len(subscribers) == 0 {
					delete(h.subscribers, submissionID)
				}
			}
			h.mu.Unlock()
			observability.StreamClientsActive().Dec()
		})
	}
	return channel, cleanup
}

func (h *Hub) handleRelay(payload []byte) {
	var message envelope
	if err := json.Unmarshal(payload, &message); err != nil {
		h.logger.Warn().Err(err).Msg("invalid submission event payload")
		return
	}
	if message.Source == h.nodeID {
		return
	}
	h.broadcast(message.Event)
}

// broadcast never blocks; slow subscribers miss events.
func (h *Hub) broadcast(event models.SubmissionEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subscribers[event.SubmissionID] {
		select {
		case ch <- event:
		default:
		}
	}
}
