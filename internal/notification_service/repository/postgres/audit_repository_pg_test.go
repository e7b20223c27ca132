package postgres

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talkwave/messenger-services/internal/notification_service/domain"
)

func newMockRepo(t *testing.T) (pgxmock.PgxPoolIface, domain.AuditRepository) {
	t.Helper()
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockPool.Close)
	return mockPool, NewPgAuditRepository(mockPool, slog.Default())
}

func TestPgAuditRepository_InsertSuccessRecord(t *testing.T) {
	mockPool, repo := newMockRepo(t)

	now := time.Now()
	record := domain.DeliveryAuditRecord{
		RecipientID: "u1",
		Type:        domain.TypeEmail,
		Action:      domain.ActionPincode,
		Payload:     "1234",
		Success:     true,
		CreatedAt:   now,
	}

	mockPool.ExpectExec(`INSERT INTO delivery_audit_log`).
		WithArgs("u1", "EMAIL", "PINCODE", "1234", true, (*string)(nil), now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := repo.Insert(context.Background(), record)
	require.NoError(t, err)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestPgAuditRepository_InsertFailureRecordKeepsErrorMessage(t *testing.T) {
	mockPool, repo := newMockRepo(t)

	now := time.Now()
	errMsg := "sms gateway timeout"
	record := domain.DeliveryAuditRecord{
		RecipientID:  "u2",
		Type:         domain.TypeSMS,
		Action:       domain.ActionNewMessage,
		Payload:      "hello",
		Success:      false,
		ErrorMessage: &errMsg,
		CreatedAt:    now,
	}

	mockPool.ExpectExec(`INSERT INTO delivery_audit_log`).
		WithArgs("u2", "SMS", "NEW_MESSAGE", "hello", false, &errMsg, now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := repo.Insert(context.Background(), record)
	require.NoError(t, err)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestPgAuditRepository_InsertDatabaseError(t *testing.T) {
	mockPool, repo := newMockRepo(t)

	record := domain.DeliveryAuditRecord{
		RecipientID: "u3",
		Type:        domain.TypeTelegram,
		Action:      domain.ActionFriendRequest,
		CreatedAt:   time.Now(),
	}

	mockPool.ExpectExec(`INSERT INTO delivery_audit_log`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(errors.New("connection reset"))

	err := repo.Insert(context.Background(), record)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "inserting delivery audit record")
	assert.NoError(t, mockPool.ExpectationsWereMet())
}
