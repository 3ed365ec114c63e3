package notify

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gopkg.in/gomail.v2"

	"coverguard/internal/domain"
)

// SMTPConfig carries the mail transport settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

func (c SMTPConfig) Configured() bool {
	return c.Host != "" && c.From != ""
}

// SMTPSender delivers email messages over SMTP. SMS messages are rejected;
// wire a gateway-backed Sender for that channel.
type SMTPSender struct {
	cfg SMTPConfig
}

func NewSMTPSender(cfg SMTPConfig) (*SMTPSender, error) {
	if !cfg.Configured() {
		return nil, fmt.Errorf("smtp sender requires host and from address")
	}
	return &SMTPSender{cfg: cfg}, nil
}

func (s *SMTPSender) Send(_ context.Context, msg Message) (Receipt, error) {
	if msg.Channel != domain.ChannelEmail {
		err := fmt.Errorf("smtp sender cannot deliver channel %q", msg.Channel)
		return Receipt{Success: false, Error: err.Error()}, err
	}
	if msg.Recipient == "" {
		err := fmt.Errorf("no recipient")
		return Receipt{Success: false, Error: err.Error()}, err
	}

	subject, body := Render(msg)

	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", msg.Recipient)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	d := gomail.NewDialer(s.cfg.Host, s.cfg.Port, s.cfg.Username, s.cfg.Password)
	if err := d.DialAndSend(m); err != nil {
		return Receipt{Success: false, Error: err.Error()}, fmt.Errorf("send mail to %s: %w", msg.Recipient, err)
	}
	return Receipt{Success: true, ID: uuid.NewString()}, nil
}
