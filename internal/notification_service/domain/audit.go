package domain

import (
	"context"
	"time"
)

// DeliveryAuditRecord is the append-only persisted trace of one terminal
// dispatch outcome. Exactly one record is written per terminal outcome; records
// are never mutated or deleted by this service.
type DeliveryAuditRecord struct {
	RecipientID  string
	Type         NotificationType
	Action       NotificationAction
	Payload      string
	Success      bool
	ErrorMessage *string
	CreatedAt    time.Time
}

// AuditRepository persists delivery audit records. Queried only by external
// operational tooling, never by this service.
type AuditRepository interface {
	Insert(ctx context.Context, record DeliveryAuditRecord) error
}

// NewAuditRecord builds an audit record for a terminal outcome of req.
// dispatchErr is nil on success.
func NewAuditRecord(req *NotificationRequest, dispatchErr error, now time.Time) DeliveryAuditRecord {
	record := DeliveryAuditRecord{
		RecipientID: req.RecipientID,
		Type:        req.Type,
		Action:      req.Action,
		Payload:     req.Payload,
		Success:     dispatchErr == nil,
		CreatedAt:   now,
	}
	if dispatchErr != nil {
		msg := dispatchErr.Error()
		record.ErrorMessage = &msg
	}
	return record
}
