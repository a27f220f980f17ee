package notification

import (
	"context"
	"crypto/tls"
	"fmt"

	mail "github.com/go-mail/mail/v2"
	"github.com/google/uuid"
)

type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Pass     string
	From     string
	FromName string
}

type mailDialer interface {
	DialAndSend(m ...*mail.Message) error
}

// SMTPSender delivers email through a relay with mandatory STARTTLS.
type SMTPSender struct {
	cfg    SMTPConfig
	dialer mailDialer
}

func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	d := mail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Pass)
	d.StartTLSPolicy = mail.MandatoryStartTLS
	d.TLSConfig = &tls.Config{ServerName: cfg.Host, MinVersion: tls.VersionTLS12}
	return &SMTPSender{cfg: cfg, dialer: d}
}

func (s *SMTPSender) SendEmail(ctx context.Context, msg Email) (Receipt, error) {
	if s.cfg.Host == "" || s.cfg.From == "" {
		return Receipt{}, fmt.Errorf("smtp: %w", ErrNotConfigured)
	}
	if msg.To == "" {
		return Receipt{}, ErrNoRecipient
	}
	if err := ctx.Err(); err != nil {
		return Receipt{}, err
	}

	id := uuid.NewString()
	m := mail.NewMessage()
	m.SetAddressHeader("From", s.cfg.From, s.cfg.FromName)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetHeader("Message-ID", fmt.Sprintf("<%s@%s>", id, s.cfg.Host))
	m.SetBody("text/plain", msg.Body)
	html := msg.HTML
	if html == "" {
		html = textToHTML(msg.Body)
	}
	m.AddAlternative("text/html", html)

	// go-mail has no context support; run the dial in the background so a
	// cancelled request does not wait on a stuck relay.
	done := make(chan error, 1)
	go func() { done <- s.dialer.DialAndSend(m) }()

	select {
	case err := <-done:
		if err != nil {
			return Receipt{}, fmt.Errorf("smtp send: %w", err)
		}
		return Receipt{MessageID: id, Provider: "smtp"}, nil
	case <-ctx.Done():
		return Receipt{}, ctx.Err()
	}
}
