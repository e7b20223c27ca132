package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// NotificationType selects the delivery channel for a request.
type NotificationType string

const (
	TypeEmail    NotificationType = "EMAIL"
	TypeSMS      NotificationType = "SMS"
	TypeTelegram NotificationType = "TELEGRAM"
)

// NotificationAction identifies which message template the channel renders.
type NotificationAction string

const (
	ActionPincode       NotificationAction = "PINCODE"
	ActionNewMessage    NotificationAction = "NEW_MESSAGE"
	ActionFriendRequest NotificationAction = "FRIEND_REQUEST"
)

// NotificationRequest is the unit of work read from the durable queue. Type and
// action together must resolve to exactly one registered dispatch strategy;
// anything else is a validation failure, not a dispatch failure.
type NotificationRequest struct {
	RecipientID string             `json:"recipientId" validate:"required"`
	Type        NotificationType   `json:"type" validate:"required,oneof=EMAIL SMS TELEGRAM"`
	Action      NotificationAction `json:"action" validate:"required,oneof=PINCODE NEW_MESSAGE FRIEND_REQUEST"`
	Payload     string             `json:"payload" validate:"required"`
}

// FieldError describes a single invalid field of a NotificationRequest.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries the structured per-field result of request
// validation. Requests failing validation are never dispatched and never
// retried via the retry channel: retrying a structurally invalid request
// cannot succeed.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Field, f.Message))
	}
	return "invalid notification request: " + strings.Join(parts, "; ")
}

// NewValidationError builds a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}

// IsValidationError reports whether err is (or wraps) a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

var requestValidator = validator.New()

// ParseAndValidate deserializes raw queue bytes into a NotificationRequest and
// validates its shape. Called once at the consumer boundary before any dispatch
// logic runs.
func ParseAndValidate(data []byte) (*NotificationRequest, error) {
	var req NotificationRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, NewValidationError("body", "malformed JSON: "+err.Error())
	}

	if err := requestValidator.Struct(&req); err != nil {
		var invalid *validator.InvalidValidationError
		if errors.As(err, &invalid) {
			return nil, NewValidationError("body", err.Error())
		}

		verr := &ValidationError{}
		for _, fe := range err.(validator.ValidationErrors) {
			verr.Fields = append(verr.Fields, FieldError{
				Field:   fe.Field(),
				Message: fmt.Sprintf("failed %q constraint", fe.Tag()),
			})
		}
		return nil, verr
	}
	return &req, nil
}

// ErrPermanent marks a dispatch failure no retry will ever fix (for example a
// recipient who never linked a Telegram account). The escalation pipeline
// currently treats permanent and transient failures identically; the
// classification exists so they can diverge later.
var ErrPermanent = errors.New("permanent dispatch failure")
