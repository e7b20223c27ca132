package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/talkwave/messenger-services/internal/notification_service/domain"
)

// TelegramConfig configures the Telegram Bot API client.
type TelegramConfig struct {
	APIURL   string // e.g. "https://api.telegram.org"
	BotToken string
	Timeout  time.Duration
}

// TelegramStrategy resolves the recipient's linked chat id and sends the
// rendered message via the Bot API. A recipient who never linked a Telegram
// account is a permanent failure; the error carries domain.ErrPermanent so the
// escalation pipeline can tell it apart, though today both failure classes are
// escalated identically.
type TelegramStrategy struct {
	resolver   ContactResolver
	cfg        TelegramConfig
	httpClient *http.Client
	logger     *slog.Logger
}

func NewTelegramStrategy(resolver ContactResolver, cfg TelegramConfig, httpClient *http.Client, logger *slog.Logger) *TelegramStrategy {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &TelegramStrategy{
		resolver:   resolver,
		cfg:        cfg,
		httpClient: httpClient,
		logger:     logger.With("strategy", "telegram"),
	}
}

func (s *TelegramStrategy) Name() string { return "telegram" }

type telegramSendRequest struct {
	ChatID int64  `json:"chat_id"`
	Text   string `json:"text"`
}

type telegramSendResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

func (s *TelegramStrategy) Send(ctx context.Context, recipientID string, action domain.NotificationAction, payload string) error {
	chatID, err := s.resolver.ResolveTelegramChatID(ctx, recipientID)
	if err != nil {
		if errors.Is(err, ErrTelegramNotLinked) {
			return fmt.Errorf("%w: recipient %s: %w", domain.ErrPermanent, recipientID, err)
		}
		return fmt.Errorf("failed to resolve telegram chat for recipient %s: %w", recipientID, err)
	}

	text, err := renderBody(action, payload)
	if err != nil {
		return err
	}

	reqBytes, err := json.Marshal(telegramSendRequest{ChatID: chatID, Text: text})
	if err != nil {
		return fmt.Errorf("failed to marshal telegram request: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", s.cfg.APIURL, s.cfg.BotToken)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(reqBytes))
	if err != nil {
		return fmt.Errorf("failed to create telegram request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	s.logger.InfoContext(ctx, "Sending telegram message", "recipient_id", recipientID, "action", string(action))
	httpResp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to reach telegram bot api: %w", err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	respBytes, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return fmt.Errorf("telegram bot api returned status %d and unreadable body: %w", httpResp.StatusCode, err)
	}

	var apiResp telegramSendResponse
	if err := json.Unmarshal(respBytes, &apiResp); err != nil {
		return fmt.Errorf("telegram bot api returned unparseable response (status %d): %s", httpResp.StatusCode, string(respBytes))
	}
	if !apiResp.OK {
		return fmt.Errorf("telegram bot api rejected message (status %d): %s", httpResp.StatusCode, apiResp.Description)
	}
	return nil
}
