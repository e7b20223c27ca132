package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/talkwave/messenger-services/internal/notification_service/domain"
)

// SMSGatewayConfig configures the HTTP SMS gateway client.
type SMSGatewayConfig struct {
	APIURL   string
	APIKey   string
	SenderID string
	Timeout  time.Duration
}

// SMSStrategy resolves the recipient's phone number and submits the rendered
// message to an HTTP SMS gateway.
type SMSStrategy struct {
	resolver   ContactResolver
	cfg        SMSGatewayConfig
	httpClient *http.Client
	logger     *slog.Logger
}

func NewSMSStrategy(resolver ContactResolver, cfg SMSGatewayConfig, httpClient *http.Client, logger *slog.Logger) *SMSStrategy {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &SMSStrategy{
		resolver:   resolver,
		cfg:        cfg,
		httpClient: httpClient,
		logger:     logger.With("strategy", "sms"),
	}
}

func (s *SMSStrategy) Name() string { return "sms" }

type smsGatewayRequest struct {
	Sender     string   `json:"sender"`
	Body       string   `json:"body"`
	Recipients []string `json:"recipients"`
}

type smsGatewayResponse struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

func (s *SMSStrategy) Send(ctx context.Context, recipientID string, action domain.NotificationAction, payload string) error {
	phone, err := s.resolver.ResolvePhone(ctx, recipientID)
	if err != nil {
		return fmt.Errorf("failed to resolve phone for recipient %s: %w", recipientID, err)
	}

	body, err := renderBody(action, payload)
	if err != nil {
		return err
	}

	reqBody := smsGatewayRequest{
		Sender:     s.cfg.SenderID,
		Body:       body,
		Recipients: []string{phone},
	}
	reqBytes, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal sms gateway request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.APIURL, bytes.NewBuffer(reqBytes))
	if err != nil {
		return fmt.Errorf("failed to create sms gateway request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)

	s.logger.InfoContext(ctx, "Submitting SMS to gateway", "recipient_id", recipientID, "action", string(action))
	httpResp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to reach sms gateway: %w", err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	respBytes, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return fmt.Errorf("sms gateway returned status %d and unreadable body: %w", httpResp.StatusCode, err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return fmt.Errorf("sms gateway rejected message (status %d): %s", httpResp.StatusCode, string(respBytes))
	}

	var gatewayResp smsGatewayResponse
	if err := json.Unmarshal(respBytes, &gatewayResp); err == nil && gatewayResp.Status != 0 {
		return fmt.Errorf("sms gateway reported delivery error (code %d): %s", gatewayResp.Status, gatewayResp.Message)
	}
	return nil
}
