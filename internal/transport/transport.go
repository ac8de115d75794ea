package transport

import (
	"context"
	"time"
)

// Message is a fully assembled, per-recipient email ready for the
// provider. Content assembly (merge fields, tracking injection) happens
// before a Message is built; the transport only moves bytes.
type Message struct {
	CampaignID string
	FanID      string
	From       string // "Display Name <addr@domain>"
	ReplyTo    string
	To         string
	Subject    string
	HTML       string
	Text       string
	Headers    map[string]string
	Tags       map[string]string // provider message tags for webhook correlation
}

// Result reports a successful provider send.
type Result struct {
	MessageID string
	SentAt    time.Time
}

// Quota is the provider's daily sending allowance.
type Quota struct {
	Max       int
	UsedToday int
}

// Transport is the bulk email provider contract. Send returns a typed
// *Error so callers can classify failures without parsing messages.
type Transport interface {
	Send(ctx context.Context, msg *Message) (*Result, error)
	DailyQuota(ctx context.Context) (Quota, error)
}
