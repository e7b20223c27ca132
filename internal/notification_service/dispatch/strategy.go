package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/talkwave/messenger-services/internal/notification_service/domain"
)

// Strategy is the uniform contract every delivery channel implements. Send
// either completes the delivery or returns an error; transport-level timeouts
// bound how long a hung gateway call can take.
type Strategy interface {
	Send(ctx context.Context, recipientID string, action domain.NotificationAction, payload string) error
	Name() string
}

// ContactResolver is the external user/contact-resolution collaborator.
type ContactResolver interface {
	ResolveEmail(ctx context.Context, userID string) (string, error)
	ResolvePhone(ctx context.Context, userID string) (string, error)
	// ResolveTelegramChatID returns ErrTelegramNotLinked when the user never
	// linked a Telegram account.
	ResolveTelegramChatID(ctx context.Context, userID string) (int64, error)
}

// ErrTelegramNotLinked is returned by resolvers when the recipient has no
// linked Telegram chat id. This is a permanent failure: no retry will help.
var ErrTelegramNotLinked = errors.New("recipient has no linked telegram chat")

// Registry is the lookup table from notification type to channel strategy.
// Adding a channel means one strategy implementation and one table entry.
type Registry struct {
	strategies map[domain.NotificationType]Strategy
}

func NewRegistry() *Registry {
	return &Registry{strategies: make(map[domain.NotificationType]Strategy)}
}

// Register binds a strategy to a notification type, replacing any previous entry.
func (r *Registry) Register(typ domain.NotificationType, s Strategy) {
	r.strategies[typ] = s
}

// Resolve returns the single strategy registered for (type, action). An
// unresolvable pair is a validation failure, not a dispatch failure.
func (r *Registry) Resolve(typ domain.NotificationType, action domain.NotificationAction) (Strategy, error) {
	s, ok := r.strategies[typ]
	if !ok {
		return nil, domain.NewValidationError("type", fmt.Sprintf("no dispatch strategy registered for type %q", typ))
	}
	if _, ok := messageTemplates[action]; !ok {
		return nil, domain.NewValidationError("action", fmt.Sprintf("no message template registered for action %q", action))
	}
	return s, nil
}
