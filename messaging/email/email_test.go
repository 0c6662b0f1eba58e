package email

import (
	"errors"
	"testing"
)

func TestProvideSender(t *testing.T) {
	full := &Email{
		Mailgun:  &MailgunConfig{Key: "k", Domain: "mg.example.com", From: "a@example.com"},
		SendGrid: &SendGridConfig{Key: "k", From: "a@example.com"},
		SMTP:     &SMTPConfig{SMTPHost: "localhost", SMTPPort: "25", From: "a@example.com"},
	}

	tests := []struct {
		provider string
		wantType any
	}{
		{"mailgun", &MailgunSender{}},
		{"sendgrid", &SendGridSender{}},
		{"smtp", &LocalSMTPSender{}},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			cfg := *full
			cfg.Provider = tt.provider
			sender, err := ProvideSender(&cfg)
			if err != nil {
				t.Fatalf("ProvideSender: %v", err)
			}
			switch tt.wantType.(type) {
			case *MailgunSender:
				if _, ok := sender.(*MailgunSender); !ok {
					t.Errorf("got %T", sender)
				}
			case *SendGridSender:
				if _, ok := sender.(*SendGridSender); !ok {
					t.Errorf("got %T", sender)
				}
			case *LocalSMTPSender:
				if _, ok := sender.(*LocalSMTPSender); !ok {
					t.Errorf("got %T", sender)
				}
			}
		})
	}
}

func TestProvideSenderUnconfigured(t *testing.T) {
	sender, err := ProvideSender(&Email{})
	if err != nil || sender != nil {
		t.Errorf("ProvideSender = %v, %v; want nil, nil", sender, err)
	}
	sender, err = ProvideSender(nil)
	if err != nil || sender != nil {
		t.Errorf("ProvideSender(nil) = %v, %v", sender, err)
	}
}

func TestNewSenderValidates(t *testing.T) {
	cases := []Config{
		&MailgunConfig{Key: "k"},
		&SendGridConfig{From: "a@example.com"},
		&SMTPConfig{SMTPHost: "localhost"},
		"unsupported",
	}
	for _, c := range cases {
		if _, err := NewSender(c); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("NewSender(%T) err = %v, want ErrInvalidConfig", c, err)
		}
	}
}
