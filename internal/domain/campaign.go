package domain

import "time"

// CampaignStatus enumerates the lifecycle states of a campaign.
type CampaignStatus string

const (
	CampaignDraft     CampaignStatus = "draft"
	CampaignScheduled CampaignStatus = "scheduled"
	CampaignSending   CampaignStatus = "sending"
	CampaignSent      CampaignStatus = "sent"
	CampaignPaused    CampaignStatus = "paused"
	CampaignCancelled CampaignStatus = "cancelled"
)

// CampaignSettings controls tracking and audience behavior for one campaign.
// Tracking settings are campaign-level intent only; each fan's own
// preferences are applied on top at assembly time.
type CampaignSettings struct {
	TrackOpens         bool `json:"track_opens"`
	TrackClicks        bool `json:"track_clicks"`
	SendToUnsubscribed bool `json:"send_to_unsubscribed"`
}

// CampaignStats are aggregate delivery counters, recomputed from the
// delivery outcomes of a send rather than incremented in place.
type CampaignStats struct {
	TotalSent       int `json:"total_sent"`
	TotalDelivered  int `json:"total_delivered"`
	TotalBounced    int `json:"total_bounced"`
	TotalComplained int `json:"total_complained"`
	TotalFailed     int `json:"total_failed"`
}

// Campaign is one logical bulk email send to an artist's fan list.
type Campaign struct {
	ID       string           `json:"id"`
	ArtistID string           `json:"artist_id"`
	Name     string           `json:"name"`
	Subject  string           `json:"subject"`
	HTMLBody string           `json:"html_body"`
	TextBody string           `json:"text_body"`
	Status   CampaignStatus   `json:"status"`
	Settings CampaignSettings `json:"settings"`
	Stats    CampaignStats    `json:"stats"`
	SendDate *time.Time       `json:"send_date"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Sendable reports whether a send may be started from the current status.
func (c *Campaign) Sendable() bool {
	return c.Status == CampaignDraft || c.Status == CampaignScheduled
}

// Halted reports whether an operator has stopped the campaign; the
// dispatch loop checks this at batch boundaries.
func (c *Campaign) Halted() bool {
	return c.Status == CampaignPaused || c.Status == CampaignCancelled
}
