package dispatch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talkwave/messenger-services/internal/notification_service/domain"
)

type noopStrategy struct{ name string }

func (s *noopStrategy) Send(ctx context.Context, recipientID string, action domain.NotificationAction, payload string) error {
	return nil
}
func (s *noopStrategy) Name() string { return s.name }

func TestRegistry_ResolveKnownPair(t *testing.T) {
	registry := NewRegistry()
	email := &noopStrategy{name: "email"}
	registry.Register(domain.TypeEmail, email)

	s, err := registry.Resolve(domain.TypeEmail, domain.ActionPincode)
	require.NoError(t, err)
	assert.Same(t, email, s.(*noopStrategy))
}

func TestRegistry_UnresolvableIsValidationFailure(t *testing.T) {
	registry := NewRegistry()
	registry.Register(domain.TypeEmail, &noopStrategy{name: "email"})

	_, err := registry.Resolve(domain.TypeSMS, domain.ActionPincode)
	require.Error(t, err)
	assert.True(t, domain.IsValidationError(err), "unregistered type must be a validation failure")

	_, err = registry.Resolve(domain.TypeEmail, domain.NotificationAction("DANCE"))
	require.Error(t, err)
	assert.True(t, domain.IsValidationError(err), "unknown action must be a validation failure")
}

func TestRegistry_RegisterReplacesEntry(t *testing.T) {
	registry := NewRegistry()
	registry.Register(domain.TypeSMS, &noopStrategy{name: "old"})
	registry.Register(domain.TypeSMS, &noopStrategy{name: "new"})

	s, err := registry.Resolve(domain.TypeSMS, domain.ActionNewMessage)
	require.NoError(t, err)
	assert.Equal(t, "new", s.Name())
}

func TestRenderBody(t *testing.T) {
	body, err := renderBody(domain.ActionPincode, "9999")
	require.NoError(t, err)
	assert.Contains(t, body, "9999")

	body, err = renderBody(domain.ActionNewMessage, "hey there")
	require.NoError(t, err)
	assert.Contains(t, body, "hey there")

	_, err = renderBody(domain.NotificationAction("DANCE"), "x")
	require.Error(t, err)
	assert.True(t, domain.IsValidationError(err))
}

func TestSubjectFor(t *testing.T) {
	assert.NotEmpty(t, subjectFor(domain.ActionPincode))
	assert.NotEmpty(t, subjectFor(domain.ActionFriendRequest))
	assert.Empty(t, subjectFor(domain.NotificationAction("DANCE")))
}
