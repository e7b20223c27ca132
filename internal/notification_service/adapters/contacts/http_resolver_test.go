package contacts

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talkwave/messenger-services/internal/notification_service/dispatch"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *HTTPResolver) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	resolver := NewHTTPResolver(server.URL, "secret", server.Client(), slog.Default())
	return server, resolver
}

func TestHTTPResolver_ResolveContacts(t *testing.T) {
	_, resolver := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/internal/users/u1/contacts", r.URL.Path)
		assert.Equal(t, "ApiKey secret", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"email":"u1@example.com","phone":"+15550001111","telegramChatId":42}`))
	})

	ctx := context.Background()

	email, err := resolver.ResolveEmail(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1@example.com", email)

	phone, err := resolver.ResolvePhone(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "+15550001111", phone)

	chatID, err := resolver.ResolveTelegramChatID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(42), chatID)
}

func TestHTTPResolver_MissingContactPoints(t *testing.T) {
	_, resolver := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"email":"","phone":""}`))
	})

	ctx := context.Background()

	_, err := resolver.ResolveEmail(ctx, "u1")
	assert.ErrorContains(t, err, "no email address")

	_, err = resolver.ResolvePhone(ctx, "u1")
	assert.ErrorContains(t, err, "no phone number")

	_, err = resolver.ResolveTelegramChatID(ctx, "u1")
	assert.ErrorIs(t, err, dispatch.ErrTelegramNotLinked)
}

func TestHTTPResolver_UserNotFound(t *testing.T) {
	_, resolver := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	})

	_, err := resolver.ResolveEmail(context.Background(), "ghost")
	assert.ErrorContains(t, err, "not found")
}

func TestHTTPResolver_UpstreamError(t *testing.T) {
	_, resolver := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	})

	_, err := resolver.ResolvePhone(context.Background(), "u1")
	assert.ErrorContains(t, err, "status 502")
}
