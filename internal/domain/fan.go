package domain

import "time"

// FanStatus is a fan's subscription state.
type FanStatus string

const (
	FanSubscribed   FanStatus = "subscribed"
	FanUnsubscribed FanStatus = "unsubscribed"
	FanBounced      FanStatus = "bounced"
	FanPending      FanStatus = "pending"
	FanRejected     FanStatus = "rejected"
)

// Fan is one subscriber on an artist's list. The delivery engine treats
// fans as read-only except for the outcome log.
type Fan struct {
	ID       string    `json:"id"`
	ArtistID string    `json:"artist_id"`
	Email    string    `json:"email"`
	Name     string    `json:"name"`
	Status   FanStatus `json:"status"`

	// Explicit per-fan tracking consent. A campaign-level tracking
	// setting never overrides a fan's opt-out.
	AllowOpenTracking  bool `json:"allow_open_tracking"`
	AllowClickTracking bool `json:"allow_click_tracking"`

	CreatedAt time.Time `json:"created_at"`
}

// EligibleFor reports whether the fan should receive a campaign with the
// given settings. Bounced, rejected and pending addresses are never
// eligible.
func (f *Fan) EligibleFor(s CampaignSettings) bool {
	switch f.Status {
	case FanSubscribed:
		return true
	case FanUnsubscribed:
		return s.SendToUnsubscribed
	default:
		return false
	}
}

// Artist is the verified sending identity a campaign is delivered from.
type Artist struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Email             string `json:"email"`
	SESDomain         string `json:"ses_domain"`
	SESDomainVerified bool   `json:"ses_domain_verified"`
}
