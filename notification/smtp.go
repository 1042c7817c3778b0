package notification

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"time"

	"messenger/domain"
	"messenger/errors"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
)

type SMTPConfig struct {
	Addr     string
	Username string
	Password string
	From     string
	// StartTLS upgrades the connection before authenticating.
	StartTLS bool
	// TLSConfig defaults to verifying the relay host name.
	TLSConfig *tls.Config
}

// SMTPNotifier mails the recipient of a message through an SMTP relay.
// PLAIN authentication is used when a username is configured, after
// STARTTLS unless it is disabled.
type SMTPNotifier struct {
	config SMTPConfig
	log    *slog.Logger
}

func NewSMTPNotifier(config SMTPConfig, log *slog.Logger) *SMTPNotifier {
	return &SMTPNotifier{config: config, log: log}
}

func (s *SMTPNotifier) Notify(ctx context.Context, n domain.Notification) error {
	if n.RecipientEmail == "" {
		return fmt.Errorf("%w: message %s", errors.ErrNoRecipientAddress, n.MessageID)
	}
	raw := buildMail(s.config.From, n, time.Now())

	client, err := s.connect(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.Mail(s.config.From, nil); err != nil {
		return fmt.Errorf("smtp: MAIL FROM failed: %w", err)
	}
	if err := client.Rcpt(n.RecipientEmail, nil); err != nil {
		return fmt.Errorf("smtp: RCPT TO %q failed: %w", n.RecipientEmail, err)
	}
	writer, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp: DATA failed: %w", err)
	}
	if _, err := writer.Write(raw); err != nil {
		return fmt.Errorf("smtp: writing message failed: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("smtp: finalizing message failed: %w", err)
	}
	if err := client.Quit(); err != nil {
		return fmt.Errorf("smtp: QUIT failed: %w", err)
	}
	s.log.Debug("Notification mailed", "message_id", n.MessageID, "to", n.RecipientEmail)
	return nil
}

func (s *SMTPNotifier) connect(ctx context.Context) (*smtp.Client, error) {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", s.config.Addr)
	if err != nil {
		return nil, fmt.Errorf("smtp: dial %s failed: %w", s.config.Addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	if s.config.Username == "" {
		return smtp.NewClient(conn), nil
	}

	var client *smtp.Client
	if s.config.StartTLS {
		if client, err = smtp.NewClientStartTLS(conn, s.tlsConfig()); err != nil {
			return nil, fmt.Errorf("smtp: STARTTLS failed: %w", err)
		}
	} else {
		client = smtp.NewClient(conn)
	}
	auth := sasl.NewPlainClient("", s.config.Username, s.config.Password)
	if err := client.Auth(auth); err != nil {
		client.Close()
		return nil, fmt.Errorf("smtp: auth failed: %w", err)
	}
	return client, nil
}

func (s *SMTPNotifier) tlsConfig() *tls.Config {
	if s.config.TLSConfig != nil {
		return s.config.TLSConfig
	}
	host, _, _ := net.SplitHostPort(s.config.Addr)
	return &tls.Config{ServerName: host}
}
