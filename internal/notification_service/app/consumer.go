package app

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/talkwave/messenger-services/internal/notification_service/dispatch"
	"github.com/talkwave/messenger-services/internal/notification_service/domain"
)

// NotificationQueueConsumer pulls delivery requests off the durable queue,
// validates their shape, invokes the resolved dispatch strategy, and
// acknowledges or escalates per outcome.
//
// Messages are processed with bounded concurrency: up to maxInFlight dispatch
// calls run simultaneously, each carrying its own ack handle, so one slow
// gateway call never blocks acknowledgment of unrelated completed messages.
// A failed message is terminated on the primary queue (no broker redelivery);
// retry happens only by re-injection as a new message.
type NotificationQueueConsumer struct {
	registry        *dispatch.Registry
	escalator       *FailureEscalationPipeline
	audit           domain.AuditRepository
	dispatchTimeout time.Duration
	sem             chan struct{}
	wg              sync.WaitGroup
	now             func() time.Time
	logger          *slog.Logger
}

func NewNotificationQueueConsumer(
	registry *dispatch.Registry,
	escalator *FailureEscalationPipeline,
	audit domain.AuditRepository,
	maxInFlight int,
	dispatchTimeout time.Duration,
	logger *slog.Logger,
) *NotificationQueueConsumer {
	if maxInFlight <= 0 {
		maxInFlight = 1
	}
	if dispatchTimeout <= 0 {
		dispatchTimeout = 15 * time.Second
	}
	return &NotificationQueueConsumer{
		registry:        registry,
		escalator:       escalator,
		audit:           audit,
		dispatchTimeout: dispatchTimeout,
		sem:             make(chan struct{}, maxInFlight),
		now:             time.Now,
		logger:          logger.With("component", "notification_consumer"),
	}
}

// HandleMessage is the queue-subscription callback. It blocks while the
// in-flight limit is reached, then processes the message on its own goroutine.
func (c *NotificationQueueConsumer) HandleMessage(ctx context.Context, msg jetstream.Msg) {
	select {
	case c.sem <- struct{}{}:
	case <-ctx.Done():
		return
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer func() { <-c.sem }()
		c.process(ctx, msg)
	}()
}

// Drain waits for all in-flight messages to reach a terminal state.
func (c *NotificationQueueConsumer) Drain() {
	c.wg.Wait()
}

func (c *NotificationQueueConsumer) process(ctx context.Context, msg jetstream.Msg) {
	raw := msg.Data()

	req, err := domain.ParseAndValidate(raw)
	if err != nil {
		notificationsConsumedCounter.WithLabelValues("unknown").Inc()
		c.terminate(msg)
		c.escalator.EscalateValidationFailure(ctx, req, raw, err)
		return
	}
	notificationsConsumedCounter.WithLabelValues(string(req.Type)).Inc()

	strategy, err := c.registry.Resolve(req.Type, req.Action)
	if err != nil {
		// Unresolvable (type, action) is a validation failure, not a dispatch one.
		c.terminate(msg)
		c.escalator.EscalateValidationFailure(ctx, req, raw, err)
		return
	}

	dispatchCtx, cancel := context.WithTimeout(ctx, c.dispatchTimeout)
	defer cancel()

	started := c.now()
	err = strategy.Send(dispatchCtx, req.RecipientID, req.Action, req.Payload)
	dispatchDurationHist.WithLabelValues(string(req.Type)).Observe(c.now().Sub(started).Seconds())

	if err != nil {
		c.terminate(msg)
		c.escalator.EscalateDispatchFailure(ctx, req, raw, err)
		return
	}

	if ackErr := msg.Ack(); ackErr != nil {
		c.logger.WarnContext(ctx, "Failed to ack delivered message",
			"recipient_id", req.RecipientID, "type", string(req.Type), "error", ackErr)
	}
	notificationsAckedCounter.WithLabelValues(string(req.Type)).Inc()

	record := domain.NewAuditRecord(req, nil, c.now())
	if auditErr := c.audit.Insert(ctx, record); auditErr != nil {
		// The message is already delivered and acked; losing the audit row is
		// logged but must not fail the pipeline.
		c.logger.ErrorContext(ctx, "Audit insert failed for delivered message",
			"recipient_id", req.RecipientID, "type", string(req.Type), "error", auditErr)
	}

	c.logger.InfoContext(ctx, "Notification dispatched",
		"recipient_id", req.RecipientID, "type", string(req.Type),
		"action", string(req.Action), "strategy", strategy.Name())
}

// terminate removes the message from the primary queue without requeueing.
// Blind redelivery without backoff would thunder the downstream gateway.
func (c *NotificationQueueConsumer) terminate(msg jetstream.Msg) {
	if err := msg.Term(); err != nil {
		c.logger.Warn("Failed to terminate message on primary queue", "error", err)
	}
}
