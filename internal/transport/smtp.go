package transport

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/google/uuid"
	"gopkg.in/gomail.v2"
)

// SMTP delivers through a plain SMTP relay. Used for local development
// against mailhog-style catchers; production sends go through SES.
type SMTP struct {
	Host     string
	Port     int
	User     string
	Password string

	// StaticQuota is reported by DailyQuota since a bare relay has no
	// quota API.
	StaticQuota int
}

// Send renders the message into a gomail envelope and delivers it.
func (s *SMTP) Send(ctx context.Context, msg *Message) (*Result, error) {
	m := gomail.NewMessage()
	m.SetHeader("From", msg.From)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	if msg.ReplyTo != "" {
		m.SetHeader("Reply-To", msg.ReplyTo)
	}
	for name, value := range msg.Headers {
		m.SetHeader(name, value)
	}

	if msg.Text != "" {
		m.SetBody("text/plain", msg.Text)
		m.AddAlternative("text/html", msg.HTML)
	} else {
		m.SetBody("text/html", msg.HTML)
	}

	d := gomail.NewDialer(s.Host, s.Port, s.User, s.Password)

	if err := d.DialAndSend(m); err != nil {
		return nil, classifySMTP(err)
	}

	// SMTP relays don't hand back a provider message ID.
	return &Result{MessageID: uuid.New().String(), SentAt: time.Now().UTC()}, nil
}

// DailyQuota reports the configured static ceiling.
func (s *SMTP) DailyQuota(ctx context.Context) (Quota, error) {
	max := s.StaticQuota
	if max <= 0 {
		max = 10000
	}
	return Quota{Max: max}, nil
}

func classifySMTP(err error) *Error {
	var nerr net.Error
	switch {
	case errors.As(err, &nerr) && nerr.Timeout():
		return NewError(KindTimeout, "smtp connection timed out", err)
	case errors.Is(err, context.DeadlineExceeded):
		return NewError(KindTimeout, "smtp send timed out", err)
	}
	return NewError(KindInternal, "smtp send to relay failed", err)
}
