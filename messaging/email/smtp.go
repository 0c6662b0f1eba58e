package email

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
)

// SMTPConfig holds the configuration for local email sending
type SMTPConfig struct {
	SMTPHost string
	SMTPPort string
	Username string
	Password string
	From     string
}

// LocalSMTPSender implements Sender for a plain SMTP relay
type LocalSMTPSender struct {
	Config *SMTPConfig
}

func (s *LocalSMTPSender) SendTemplateEmail(ctx context.Context, recipientEmail string, template Template) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var auth smtp.Auth
	if s.Config.Username != "" {
		auth = smtp.PlainAuth("", s.Config.Username, s.Config.Password, s.Config.SMTPHost)
	}
	msg := []byte(fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s",
		s.Config.From, recipientEmail, template.Subject, template.Body))

	addr := net.JoinHostPort(s.Config.SMTPHost, s.Config.SMTPPort)
	if err := smtp.SendMail(addr, auth, s.Config.From, []string{recipientEmail}, msg); err != nil {
		return "", fmt.Errorf("smtp send: %w", err)
	}
	return "", nil
}

func validateSMTPConfig(config *SMTPConfig) error {
	if config == nil || config.SMTPHost == "" || config.SMTPPort == "" || config.From == "" {
		return fmt.Errorf("%w: smtp requires host, port and from", ErrInvalidConfig)
	}
	return nil
}
