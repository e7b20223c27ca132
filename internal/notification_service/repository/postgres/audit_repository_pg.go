package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/talkwave/messenger-services/internal/notification_service/domain"
)

// Querier abstracts *pgxpool.Pool for tests.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PgAuditRepository persists delivery audit records. Append-only: no dedup, no
// update, no delete. Retention is an operational concern outside this service.
type PgAuditRepository struct {
	db     Querier
	logger *slog.Logger
}

func NewPgAuditRepository(db Querier, logger *slog.Logger) domain.AuditRepository {
	return &PgAuditRepository{db: db, logger: logger.With("component", "audit_repository_pg")}
}

func (r *PgAuditRepository) Insert(ctx context.Context, record domain.DeliveryAuditRecord) error {
	query := `
		INSERT INTO delivery_audit_log (recipient_id, type, action, payload, success, error_message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.Exec(ctx, query,
		record.RecipientID,
		string(record.Type),
		string(record.Action),
		record.Payload,
		record.Success,
		record.ErrorMessage,
		record.CreatedAt,
	)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to insert delivery audit record",
			"recipient_id", record.RecipientID, "type", string(record.Type), "error", err)
		return fmt.Errorf("inserting delivery audit record: %w", err)
	}

	r.logger.DebugContext(ctx, "Delivery audit record inserted",
		"recipient_id", record.RecipientID, "type", string(record.Type), "success", record.Success)
	return nil
}
