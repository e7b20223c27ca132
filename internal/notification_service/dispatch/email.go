package dispatch

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"github.com/talkwave/messenger-services/internal/notification_service/domain"
)

// SMTPConfig configures the email channel's SMTP transport.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Timeout  time.Duration
}

// EmailStrategy resolves the recipient's address, renders the payload into the
// action's mail template, and hands the message to an SMTP transport.
type EmailStrategy struct {
	resolver ContactResolver
	cfg      SMTPConfig
	logger   *slog.Logger
}

func NewEmailStrategy(resolver ContactResolver, cfg SMTPConfig, logger *slog.Logger) *EmailStrategy {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &EmailStrategy{
		resolver: resolver,
		cfg:      cfg,
		logger:   logger.With("strategy", "email"),
	}
}

func (s *EmailStrategy) Name() string { return "email" }

func (s *EmailStrategy) Send(ctx context.Context, recipientID string, action domain.NotificationAction, payload string) error {
	address, err := s.resolver.ResolveEmail(ctx, recipientID)
	if err != nil {
		return fmt.Errorf("failed to resolve email for recipient %s: %w", recipientID, err)
	}

	body, err := renderBody(action, payload)
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Sending email", "recipient_id", recipientID, "action", string(action))
	if err := s.transmit(ctx, address, subjectFor(action), body); err != nil {
		return fmt.Errorf("smtp transport rejected message for recipient %s: %w", recipientID, err)
	}
	return nil
}

// transmit dials the SMTP server with a bounded deadline, upgrades to STARTTLS
// when the server offers it, authenticates, and sends the message.
func (s *EmailStrategy) transmit(ctx context.Context, to, subject, body string) error {
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))

	dialer := net.Dialer{Timeout: s.cfg.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to dial smtp server %s: %w", addr, err)
	}
	_ = conn.SetDeadline(time.Now().Add(s.cfg.Timeout))

	client, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("smtp handshake failed: %w", err)
	}
	defer func() { _ = client.Close() }()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: s.cfg.Host}); err != nil {
			return fmt.Errorf("starttls failed: %w", err)
		}
	}

	if s.cfg.Username != "" {
		auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth failed: %w", err)
		}
	}

	if err := client.Mail(s.cfg.From); err != nil {
		return fmt.Errorf("smtp MAIL failed: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("smtp RCPT failed: %w", err)
	}

	wc, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp DATA failed: %w", err)
	}
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s\r\n",
		s.cfg.From, to, subject, body)
	if _, err := wc.Write([]byte(msg)); err != nil {
		_ = wc.Close()
		return fmt.Errorf("failed to write message body: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("smtp server rejected message: %w", err)
	}

	return client.Quit()
}
