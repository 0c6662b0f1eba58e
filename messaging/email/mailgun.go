package email

import (
	"context"
	"fmt"
	"time"

	"github.com/mailgun/mailgun-go/v4"
)

// MailgunConfig holds the configuration for Mailgun
type MailgunConfig struct {
	Key    string
	Domain string
	From   string
}

// MailgunSender implements Sender for Mailgun
type MailgunSender struct {
	Config *MailgunConfig
}

func (s *MailgunSender) SendTemplateEmail(ctx context.Context, recipientEmail string, template Template) (string, error) {
	mg := mailgun.NewMailgun(s.Config.Domain, s.Config.Key)

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	message := mg.NewMessage(s.Config.From, template.Subject, template.Body)
	if template.Template != "" {
		message.SetTemplate(template.Template)
		for k, v := range template.Data {
			if err := message.AddVariable(k, v); err != nil {
				return "", fmt.Errorf("mailgun variable %s: %w", k, err)
			}
		}
	}
	if err := message.AddRecipient(recipientEmail); err != nil {
		return "", err
	}

	_, id, err := mg.Send(ctx, message)
	if err != nil {
		return "", fmt.Errorf("mailgun send: %w", err)
	}
	return id, nil
}

func validateMailgunConfig(config *MailgunConfig) error {
	if config == nil || config.Key == "" || config.Domain == "" || config.From == "" {
		return fmt.Errorf("%w: mailgun requires key, domain and from", ErrInvalidConfig)
	}
	return nil
}
