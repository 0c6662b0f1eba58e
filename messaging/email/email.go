// Package email sends operational notifications through a configured
// provider (mailgun, sendgrid or plain smtp).
package email

import (
	"context"
	"errors"
)

var ErrInvalidConfig = errors.New("invalid email configuration")

// Email holds the configuration for all email providers
type Email struct {
	Provider string          `json:"provider" yaml:"provider"`
	Mailgun  *MailgunConfig  `json:"mailgun" yaml:"mailgun"`
	SendGrid *SendGridConfig `json:"sendgrid" yaml:"sendgrid"`
	SMTP     *SMTPConfig     `json:"smtp" yaml:"smtp"`
}

// Template represents the email template
type Template struct {
	Subject string `json:"subject"`
	// Template names a provider side template. When empty Body is sent as text.
	Template string         `json:"template"`
	Body     string         `json:"body"`
	Data     map[string]any `json:"data"`
}

// Config is a provider specific configuration
type Config any

// Sender is a generic interface for sending emails
type Sender interface {
	SendTemplateEmail(ctx context.Context, recipientEmail string, template Template) (string, error)
}

// validateEmailConfig validates the common email configuration
func validateEmailConfig(config Config) error {
	switch c := config.(type) {
	case *MailgunConfig:
		return validateMailgunConfig(c)
	case *SendGridConfig:
		return validateSendGridConfig(c)
	case *SMTPConfig:
		return validateSMTPConfig(c)
	default:
		return ErrInvalidConfig
	}
}

// NewSender returns a new Sender
func NewSender(config Config) (Sender, error) {
	if err := validateEmailConfig(config); err != nil {
		return nil, err
	}
	switch c := config.(type) {
	case *MailgunConfig:
		return &MailgunSender{Config: c}, nil
	case *SendGridConfig:
		return &SendGridSender{Config: c}, nil
	case *SMTPConfig:
		return &LocalSMTPSender{Config: c}, nil
	default:
		return nil, errors.New("create email sender failed")
	}
}
