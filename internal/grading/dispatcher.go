package grading

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/noah-isme/fumi-go-api/internal/models"
)

// ErrWorkerUnbound is returned when a local dispatcher has no worker yet.
var ErrWorkerUnbound = errors.New("grading worker not bound")

// LocalDispatcher grades in background goroutines of the same process.
type LocalDispatcher struct {
	mu     sync.RWMutex
	worker *Worker
	wg     sync.WaitGroup
	logger zerolog.Logger
}

// NewLocalDispatcher constructs an unbound dispatcher; call Bind before use.
func NewLocalDispatcher(logger zerolog.Logger) *LocalDispatcher {
	return &LocalDispatcher{logger: logger.With().Str("component", "local_grading_dispatcher").Logger()}
}

// Bind attaches the worker that processes dispatched events.
func (d *LocalDispatcher) Bind(worker *Worker) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.worker = worker
}

func (d *LocalDispatcher) Dispatch(ctx context.Context, event models.SubmissionEvent) error {
	d.mu.RLock()
	worker := d.worker
	d.mu.RUnlock()
	if worker == nil {
		return ErrWorkerUnbound
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := worker.Process(ctx, event); err != nil {
			d.logger.Error().Err(err).Str("submission_id", event.SubmissionID).Msg("grading failed")
		}
	}()
	return nil
}

// Wait blocks until every dispatched event was processed.
func (d *LocalDispatcher) Wait() {
	d.wg.Wait()
}

// NATSDispatcher publishes events for workers subscribed on NATS.
type NATSDispatcher struct {
	conn    *nats.Conn
	subject string
}

// NewNATSDispatcher constructs a dispatcher publishing on subject.
func NewNATSDispatcher(conn *nats.Conn, subject string) *NATSDispatcher {
	if subject == "" {
		subject = SubmittedSubject
	}
	return &NATSDispatcher{conn: conn, subject: subject}
}

func (d *NATSDispatcher) Dispatch(ctx context.Context, event models.SubmissionEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return d.conn.Publish(d.subject, payload)
}

// Subscribe consumes events from NATS in a queue group until ctx is done.
func (w *Worker) Subscribe(ctx context.Context, conn *nats.Conn, subject, queue string) error {
	if subject == "" {
		subject = SubmittedSubject
	}
	if queue == "" {
		queue = "fumi-grading"
	}

	sub, err := conn.QueueSubscribe(subject, queue, func(msg *nats.Msg) {
		var event models.SubmissionEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			w.logger.Warn().Err(err).Msg("invalid grading event payload")
			return
		}
		if err := w.Process(ctx, event); err != nil {
			w.logger.Error().Err(err).Str("submission_id", event.SubmissionID).Msg("grading failed")
		}
	})
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			w.logger.Warn().Err(err).Msg("failed to drain grading subscription")
		}
	}()
	return nil
}
