package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/fumi-go-api/internal/middleware"
	"github.com/noah-isme/fumi-go-api/internal/models"
	"github.com/noah-isme/fumi-go-api/internal/service"
)

const (
	streamWriteTimeout = 10 * time.Second
	streamPingInterval = 30 * time.Second
)

// SubmissionSubscriber is the part of the realtime hub the stream needs.
type SubmissionSubscriber interface {
	Subscribe(submissionID string) (<-chan models.SubmissionEvent, func())
}

// StreamMessage is one frame pushed to websocket clients.
type StreamMessage struct {
	Type         string                   `json:"type"`
	SubmissionID string                   `json:"submission_id"`
	Status       models.SubmissionStatus  `json:"status"`
	StatusLabel  string                   `json:"status_label"`
	From         *models.SubmissionStatus `json:"from,omitempty"`
	OccurredAt   time.Time                `json:"occurred_at"`
}

// StreamHandler pushes submission status changes over websockets.
type StreamHandler struct {
	queries service.QueryService
	hub     SubmissionSubscriber
	logger  zerolog.Logger
}

// NewStreamHandler creates a stream handler instance.
func NewStreamHandler(queries service.QueryService, hub SubmissionSubscriber, logger zerolog.Logger) *StreamHandler {
	return &StreamHandler{
		queries: queries,
		hub:     hub,
		logger:  logger.With().Str("component", "stream_handler").Logger(),
	}
}

// Register binds the stream route under the submissions group.
func (h *StreamHandler) Register(router fiber.Router) {
	router.Get("/:id/stream", h.upgrade, websocket.New(h.handleConnection))
}

func (h *StreamHandler) upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	submission, err := h.queries.FindSubmissionByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return sendServiceError(c, h.logger, err)
	}
	if !service.CanRead(actorFromContext(c), submission) {
		return sendServiceError(c, h.logger, service.ErrForbidden)
	}

	ctx := middleware.ContextWithCorrelation(context.Background(), middleware.GetCorrelationID(c))
	c.Locals("request_ctx", ctx)
	c.Locals("submission_id", submission.ID)
	return c.Next()
}

func (h *StreamHandler) handleConnection(conn *websocket.Conn) {
	submissionID, _ := conn.Locals("submission_id").(string)
	ctx, _ := conn.Locals("request_ctx").(context.Context)
	if ctx == nil {
		ctx = context.Background()
	}
	logger := h.logger.With().
		Str("submission_id", submissionID).
		Str("correlation_id", middleware.CorrelationIDFromContext(ctx)).
		Logger()

	events, cleanup := h.hub.Subscribe(submissionID)
	defer cleanup()

	// Subscribed first so no transition falls between snapshot and stream.
	current, err := h.queries.FindSubmissionByID(ctx, submissionID)
	if err != nil {
		logger.Warn().Err(err).Msg("submission vanished before stream start")
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "submission unavailable"))
		_ = conn.Close()
		return
	}

	if err := h.write(conn, StreamMessage{
		Type:         "snapshot",
		SubmissionID: current.ID,
		Status:       current.Status,
		StatusLabel:  current.Status.String(),
		OccurredAt:   current.UpdatedAt,
	}); err != nil {
		return
	}
	if current.Status.IsTerminal() {
		h.closeNormal(conn, "submission reviewed")
		return
	}

	logger.Info().Msg("submission stream connected")
	defer logger.Info().Msg("submission stream disconnected")

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(streamPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(streamWriteTimeout)); err != nil {
				return
			}
		case event, ok := <-events:
			if !ok {
				return
			}
			// Relayed duplicates of what the snapshot already covers are dropped.
			if event.To <= current.Status {
				continue
			}
			from := event.From
			if err := h.write(conn, StreamMessage{
				Type:         "transition",
				SubmissionID: event.SubmissionID,
				Status:       event.To,
				StatusLabel:  event.To.String(),
				From:         &from,
				OccurredAt:   event.OccurredAt,
			}); err != nil {
				logger.Debug().Err(err).Msg("stream write failed")
				return
			}
			current.Status = event.To
			if event.To.IsTerminal() {
				h.closeNormal(conn, "submission reviewed")
				return
			}
		}
	}
}

func (h *StreamHandler) write(conn *websocket.Conn, message StreamMessage) error {
	_ = conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
	return conn.WriteJSON(message)
}

func (h *StreamHandler) closeNormal(conn *websocket.Conn, reason string) {
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason))
	_ = conn.Close()
}
