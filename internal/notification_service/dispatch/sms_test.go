package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talkwave/messenger-services/internal/notification_service/domain"
)

// fakeResolver is a ContactResolver with fixed answers.
type fakeResolver struct {
	email  string
	phone  string
	chatID int64

	emailErr error
	phoneErr error
	chatErr  error
}

func (r *fakeResolver) ResolveEmail(ctx context.Context, userID string) (string, error) {
	return r.email, r.emailErr
}
func (r *fakeResolver) ResolvePhone(ctx context.Context, userID string) (string, error) {
	return r.phone, r.phoneErr
}
func (r *fakeResolver) ResolveTelegramChatID(ctx context.Context, userID string) (int64, error) {
	return r.chatID, r.chatErr
}

func TestSMSStrategy_Send(t *testing.T) {
	var captured smsGatewayRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_ = json.NewEncoder(w).Encode(smsGatewayResponse{Status: 0, Message: "queued"})
	}))
	defer server.Close()

	strategy := NewSMSStrategy(&fakeResolver{phone: "+15550001111"}, SMSGatewayConfig{
		APIURL:   server.URL,
		APIKey:   "test-key",
		SenderID: "TALKWAVE",
	}, server.Client(), slog.Default())

	err := strategy.Send(context.Background(), "u1", domain.ActionPincode, "1234")
	require.NoError(t, err)

	assert.Equal(t, "TALKWAVE", captured.Sender)
	assert.Equal(t, []string{"+15550001111"}, captured.Recipients)
	assert.Contains(t, captured.Body, "1234")
}

func TestSMSStrategy_GatewayHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer server.Close()

	strategy := NewSMSStrategy(&fakeResolver{phone: "+15550001111"}, SMSGatewayConfig{APIURL: server.URL}, server.Client(), slog.Default())

	err := strategy.Send(context.Background(), "u1", domain.ActionPincode, "1234")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

func TestSMSStrategy_GatewayReportedError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(smsGatewayResponse{Status: 42, Message: "invalid recipient"})
	}))
	defer server.Close()

	strategy := NewSMSStrategy(&fakeResolver{phone: "+15550001111"}, SMSGatewayConfig{APIURL: server.URL}, server.Client(), slog.Default())

	err := strategy.Send(context.Background(), "u1", domain.ActionPincode, "1234")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid recipient")
}

func TestSMSStrategy_ResolveFailureSkipsGateway(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	strategy := NewSMSStrategy(&fakeResolver{phoneErr: errors.New("no phone on file")}, SMSGatewayConfig{APIURL: server.URL}, server.Client(), slog.Default())

	err := strategy.Send(context.Background(), "u1", domain.ActionPincode, "1234")
	require.Error(t, err)
	assert.False(t, called, "gateway must not be called when the recipient cannot be resolved")
}

func TestSMSStrategy_GatewayTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	strategy := NewSMSStrategy(&fakeResolver{phone: "+15550001111"}, SMSGatewayConfig{APIURL: server.URL}, server.Client(), slog.Default())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := strategy.Send(ctx, "u1", domain.ActionPincode, "1234")
	require.Error(t, err, "a hung gateway call surfaces as a normal dispatch failure")
}
