package notify

import (
	"context"

	"gopkg.in/gomail.v2"
)

type Sender interface {
	Send(ctx context.Context, m Message) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

// MailSender delivers messages over SMTP, one connection per message.
type MailSender struct {
	from   string
	dialer *gomail.Dialer
}

func NewMailSender(c SMTPConfig) *MailSender {
	return &MailSender{
		from:   c.From,
		dialer: gomail.NewDialer(c.Host, c.Port, c.User, c.Password),
	}
}

func (s *MailSender) build(m Message) *gomail.Message {
	gm := gomail.NewMessage()
	gm.SetHeader("From", s.from)
	gm.SetHeader("To", m.To)
	gm.SetHeader("Subject", m.Subject)
	gm.SetBody("text/html", m.HTML)
	return gm
}

// Send returns when delivery finishes or ctx is done. gomail has no context
// support, so an abandoned dial keeps running in the background until it fails.
func (s *MailSender) Send(ctx context.Context, m Message) error {
	done := make(chan error, 1)
	gm := s.build(m)
	go func() { done <- s.dialer.DialAndSend(gm) }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
