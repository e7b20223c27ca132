package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAndValidate_ValidRequest(t *testing.T) {
	raw := []byte(`{"recipientId":"u1","type":"SMS","action":"PINCODE","payload":"1234"}`)

	req, err := ParseAndValidate(raw)
	require.NoError(t, err)
	assert.Equal(t, "u1", req.RecipientID)
	assert.Equal(t, TypeSMS, req.Type)
	assert.Equal(t, ActionPincode, req.Action)
	assert.Equal(t, "1234", req.Payload)
}

func TestParseAndValidate_MalformedJSON(t *testing.T) {
	req, err := ParseAndValidate([]byte(`{not json`))
	require.Nil(t, req)
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
}

func TestParseAndValidate_FieldErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"missing recipient", `{"type":"EMAIL","action":"PINCODE","payload":"1234"}`},
		{"missing payload", `{"recipientId":"u1","type":"EMAIL","action":"PINCODE"}`},
		{"unknown type", `{"recipientId":"u1","type":"PIGEON","action":"PINCODE","payload":"x"}`},
		{"unknown action", `{"recipientId":"u1","type":"EMAIL","action":"DANCE","payload":"x"}`},
		{"empty body", `{}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req, err := ParseAndValidate([]byte(tc.raw))
			assert.Nil(t, req)
			require.Error(t, err)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.NotEmpty(t, verr.Fields)
			assert.NotEmpty(t, verr.Error())
		})
	}
}

func TestIsValidationError(t *testing.T) {
	assert.True(t, IsValidationError(NewValidationError("type", "bad")))
	assert.True(t, IsValidationError(fmt.Errorf("wrapped: %w", NewValidationError("type", "bad"))))
	assert.False(t, IsValidationError(errors.New("boom")))
	assert.False(t, IsValidationError(ErrPermanent))
}

func TestNewAuditRecord(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	req := &NotificationRequest{RecipientID: "u1", Type: TypeEmail, Action: ActionNewMessage, Payload: "hello"}

	success := NewAuditRecord(req, nil, now)
	assert.True(t, success.Success)
	assert.Nil(t, success.ErrorMessage)
	assert.Equal(t, now, success.CreatedAt)

	failure := NewAuditRecord(req, errors.New("gateway timeout"), now)
	assert.False(t, failure.Success)
	require.NotNil(t, failure.ErrorMessage)
	assert.Equal(t, "gateway timeout", *failure.ErrorMessage)
}
