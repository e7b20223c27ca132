package dispatch

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/talkwave/messenger-services/internal/notification_service/domain"
)

// messageTemplate renders a request payload into channel-ready text. The same
// body template backs every channel; Subject is used by email only.
type messageTemplate struct {
	Subject string
	Body    *template.Template
}

var messageTemplates = map[domain.NotificationAction]messageTemplate{
	domain.ActionPincode: {
		Subject: "Your TalkWave verification code",
		Body:    template.Must(template.New("pincode").Parse("Your verification code is {{.Payload}}. It expires in 10 minutes.")),
	},
	domain.ActionNewMessage: {
		Subject: "New message on TalkWave",
		Body:    template.Must(template.New("new_message").Parse("You have a new message: {{.Payload}}")),
	},
	domain.ActionFriendRequest: {
		Subject: "New friend request on TalkWave",
		Body:    template.Must(template.New("friend_request").Parse("{{.Payload}} wants to add you as a friend.")),
	},
}

type templateData struct {
	Payload string
}

// renderBody renders the payload into the action's body template.
func renderBody(action domain.NotificationAction, payload string) (string, error) {
	tmpl, ok := messageTemplates[action]
	if !ok {
		return "", domain.NewValidationError("action", fmt.Sprintf("no message template registered for action %q", action))
	}

	var buf bytes.Buffer
	if err := tmpl.Body.Execute(&buf, templateData{Payload: payload}); err != nil {
		return "", fmt.Errorf("failed to render template for action %q: %w", action, err)
	}
	return buf.String(), nil
}

// subjectFor returns the email subject for the action, or an empty string when
// the action has no template.
func subjectFor(action domain.NotificationAction) string {
	return messageTemplates[action].Subject
}
