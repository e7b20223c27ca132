package contacts

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/talkwave/messenger-services/internal/notification_service/dispatch"
)

// HTTPResolver resolves a user's contact points against the main backend's
// internal user API. It satisfies dispatch.ContactResolver.
type HTTPResolver struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewHTTPResolver(baseURL, apiKey string, httpClient *http.Client, logger *slog.Logger) *HTTPResolver {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPResolver{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: httpClient,
		logger:     logger.With("component", "contacts_http_resolver"),
	}
}

type contactResponse struct {
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	TelegramChatID *int64 `json:"telegramChatId"`
}

func (r *HTTPResolver) ResolveEmail(ctx context.Context, userID string) (string, error) {
	contact, err := r.fetch(ctx, userID)
	if err != nil {
		return "", err
	}
	if contact.Email == "" {
		return "", fmt.Errorf("user %s has no email address", userID)
	}
	return contact.Email, nil
}

func (r *HTTPResolver) ResolvePhone(ctx context.Context, userID string) (string, error) {
	contact, err := r.fetch(ctx, userID)
	if err != nil {
		return "", err
	}
	if contact.Phone == "" {
		return "", fmt.Errorf("user %s has no phone number", userID)
	}
	return contact.Phone, nil
}

func (r *HTTPResolver) ResolveTelegramChatID(ctx context.Context, userID string) (int64, error) {
	contact, err := r.fetch(ctx, userID)
	if err != nil {
		return 0, err
	}
	if contact.TelegramChatID == nil {
		return 0, dispatch.ErrTelegramNotLinked
	}
	return *contact.TelegramChatID, nil
}

func (r *HTTPResolver) fetch(ctx context.Context, userID string) (*contactResponse, error) {
	endpoint := fmt.Sprintf("%s/internal/users/%s/contacts", r.baseURL, url.PathEscape(userID))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create contacts request: %w", err)
	}
	if r.apiKey != "" {
		httpReq.Header.Set("Authorization", "ApiKey "+r.apiKey)
	}

	httpResp, err := r.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to reach contacts endpoint: %w", err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	if httpResp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("user %s not found", userID)
	}
	if httpResp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(httpResp.Body)
		return nil, fmt.Errorf("contacts endpoint returned status %d: %s", httpResp.StatusCode, string(body))
	}

	var contact contactResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&contact); err != nil {
		return nil, fmt.Errorf("failed to decode contacts response: %w", err)
	}
	return &contact, nil
}
