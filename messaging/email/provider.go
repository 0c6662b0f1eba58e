package email

// ProvideSender creates a Sender from the Email configuration. It returns a
// nil Sender when no provider is configured.
func ProvideSender(cfg *Email) (Sender, error) {
	if cfg == nil {
		return nil, nil
	}

	switch cfg.Provider {
	case "mailgun":
		return NewSender(cfg.Mailgun)
	case "sendgrid":
		return NewSender(cfg.SendGrid)
	case "smtp":
		return NewSender(cfg.SMTP)
	default:
		return nil, nil
	}
}
