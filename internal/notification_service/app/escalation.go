package app

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/talkwave/messenger-services/internal/notification_service/domain"
)

// QueuePublisher publishes to durable, acknowledged queue destinations.
type QueuePublisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// ChannelPublisher publishes on best-effort pub/sub channels (no delivery
// guarantee: a signal with no live subscriber is lost).
type ChannelPublisher interface {
	Publish(ctx context.Context, channel string, data []byte) error
}

// EscalationConfig names the destinations the pipeline publishes to.
type EscalationConfig struct {
	DeadLetterSubject string
	ErrorSubject      string
	RetryChannel      string
}

// errorReport is the structured payload published to the error queue for
// operational visibility into every escalated failure.
type errorReport struct {
	Kind     string          `json:"kind"` // "validation" or "dispatch"
	Error    string          `json:"error"`
	Request  json.RawMessage `json:"request"`
	FailedAt time.Time       `json:"failedAt"`
}

// FailureEscalationPipeline turns a failed notification request into three
// independent side effects: a best-effort retry-channel publish, a durable
// dead-letter publish (plus an error-queue report), and a persisted audit row.
// The side effects run unconditionally and without rollback; a partial failure
// of one must not prevent the others and never crashes the consumer. Each is
// logged and swallowed at this boundary.
type FailureEscalationPipeline struct {
	queue  QueuePublisher
	retry  ChannelPublisher
	audit  domain.AuditRepository
	cfg    EscalationConfig
	now    func() time.Time
	logger *slog.Logger
}

func NewFailureEscalationPipeline(
	queue QueuePublisher,
	retry ChannelPublisher,
	audit domain.AuditRepository,
	cfg EscalationConfig,
	logger *slog.Logger,
) *FailureEscalationPipeline {
	return &FailureEscalationPipeline{
		queue:  queue,
		retry:  retry,
		audit:  audit,
		cfg:    cfg,
		now:    time.Now,
		logger: logger.With("component", "escalation_pipeline"),
	}
}

// EscalateDispatchFailure handles a request that validated but failed to
// dispatch: retry-channel publish, dead-letter publish, error report, audit
// failure row. Permanent failures (domain.ErrPermanent) are escalated
// identically to transient ones; only the metric label differs.
func (p *FailureEscalationPipeline) EscalateDispatchFailure(
	ctx context.Context,
	req *domain.NotificationRequest,
	raw []byte,
	dispatchErr error,
) {
	failureClass := "transient"
	if errors.Is(dispatchErr, domain.ErrPermanent) {
		failureClass = "permanent"
	}
	notificationsEscalatedCounter.WithLabelValues(string(req.Type), failureClass).Inc()

	p.logger.ErrorContext(ctx, "Dispatch failed, escalating",
		"recipient_id", req.RecipientID, "type", string(req.Type),
		"action", string(req.Action), "failure_class", failureClass, "error", dispatchErr)

	p.publishRetrySignal(ctx, raw)
	p.publishDeadLetter(ctx, raw)
	p.publishErrorReport(ctx, "dispatch", raw, dispatchErr)
	p.persistAudit(ctx, domain.NewAuditRecord(req, dispatchErr, p.now()))
}

// EscalateValidationFailure handles a structurally invalid request: straight to
// dead-letter and audit, never to the retry channel, since redelivering an
// invalid request cannot succeed. req may be nil when the raw bytes did not parse.
func (p *FailureEscalationPipeline) EscalateValidationFailure(
	ctx context.Context,
	req *domain.NotificationRequest,
	raw []byte,
	valErr error,
) {
	typeLabel := "unknown"
	if req != nil {
		typeLabel = string(req.Type)
	}
	notificationsEscalatedCounter.WithLabelValues(typeLabel, "validation").Inc()

	p.logger.ErrorContext(ctx, "Validation failed, dead-lettering",
		"type", typeLabel, "error", valErr)

	p.publishDeadLetter(ctx, raw)
	p.publishErrorReport(ctx, "validation", raw, valErr)

	record := domain.DeliveryAuditRecord{
		Payload:   string(raw),
		Success:   false,
		CreatedAt: p.now(),
	}
	if req != nil {
		record = domain.NewAuditRecord(req, valErr, p.now())
	} else {
		msg := valErr.Error()
		record.ErrorMessage = &msg
	}
	p.persistAudit(ctx, record)
}

func (p *FailureEscalationPipeline) publishRetrySignal(ctx context.Context, raw []byte) {
	if err := p.retry.Publish(ctx, p.cfg.RetryChannel, raw); err != nil {
		p.logger.WarnContext(ctx, "Retry-channel publish failed (best effort)",
			"channel", p.cfg.RetryChannel, "error", err)
	}
}

func (p *FailureEscalationPipeline) publishDeadLetter(ctx context.Context, raw []byte) {
	if err := p.queue.Publish(ctx, p.cfg.DeadLetterSubject, raw); err != nil {
		p.logger.ErrorContext(ctx, "Dead-letter publish failed",
			"subject", p.cfg.DeadLetterSubject, "error", err)
	}
}

func (p *FailureEscalationPipeline) publishErrorReport(ctx context.Context, kind string, raw []byte, cause error) {
	report := errorReport{
		Kind:     kind,
		Error:    cause.Error(),
		Request:  json.RawMessage(raw),
		FailedAt: p.now(),
	}
	data, err := json.Marshal(report)
	if err != nil {
		// raw may not be valid JSON; retry with it quoted as a string
		report.Request = nil
		data, err = json.Marshal(struct {
			errorReport
			RawRequest string `json:"rawRequest"`
		}{report, string(raw)})
		if err != nil {
			p.logger.ErrorContext(ctx, "Failed to marshal error report", "error", err)
			return
		}
	}
	if err := p.queue.Publish(ctx, p.cfg.ErrorSubject, data); err != nil {
		p.logger.ErrorContext(ctx, "Error-queue publish failed",
			"subject", p.cfg.ErrorSubject, "error", err)
	}
}

func (p *FailureEscalationPipeline) persistAudit(ctx context.Context, record domain.DeliveryAuditRecord) {
	if err := p.audit.Insert(ctx, record); err != nil {
		p.logger.ErrorContext(ctx, "Audit insert failed",
			"recipient_id", record.RecipientID, "error", err)
	}
}
