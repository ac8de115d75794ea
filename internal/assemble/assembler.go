// Package assemble turns a campaign body plus one fan into the final
// transport payload: merge fields, unsubscribe link, and tracking
// injection gated by consent.
package assemble

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/createdbymax/Loopletter-Open-source-email-marketing-platform-sub000/internal/domain"
	"github.com/createdbymax/Loopletter-Open-source-email-marketing-platform-sub000/internal/transport"
)

// ErrDomainNotVerified means the artist has no verified sending domain.
// This is a configuration error: the orchestrator checks it before any
// job is enqueued, and assembly re-checks it as a hard precondition.
var ErrDomainNotVerified = errors.New("artist sending domain is not verified")

var linkRe = regexp.MustCompile(`href=["'](https?://[^"']+)["']`)

// Assembler builds transport messages. TrackingURL and TrackingSecret
// configure the redirect/pixel endpoints; with an empty TrackingURL no
// tracking is ever injected.
type Assembler struct {
	TrackingURL    string
	TrackingSecret string
}

// Assemble produces the per-fan payload for a campaign.
//
// Tracking is injected only when the campaign setting AND the fan's own
// preference are both true. This conjunction is a privacy invariant:
// campaign settings never override a fan's opt-out.
func (a *Assembler) Assemble(c *domain.Campaign, artist *domain.Artist, fan *domain.Fan) (*transport.Message, error) {
	if !artist.SESDomainVerified || artist.SESDomain == "" {
		return nil, ErrDomainNotVerified
	}

	unsubURL := a.unsubscribeURL(c.ID, fan.ID)

	merge := strings.NewReplacer(
		"{{fan_name}}", fan.Name,
		"{{fan_email}}", fan.Email,
		"{{artist_name}}", artist.Name,
		"{{unsubscribe_url}}", unsubURL,
	)
	html := merge.Replace(c.HTMLBody)
	text := merge.Replace(c.TextBody)

	if a.TrackingURL != "" {
		if c.Settings.TrackClicks && fan.AllowClickTracking {
			html = a.rewriteLinks(html, c.ID, fan.ID)
		}
		if c.Settings.TrackOpens && fan.AllowOpenTracking {
			html = a.injectOpenPixel(html, c.ID, fan.ID)
		}
	}

	headers := map[string]string{
		"X-Campaign": c.ID,
	}
	if unsubURL != "" {
		headers["List-Unsubscribe"] = fmt.Sprintf("<%s>", unsubURL)
		headers["List-Unsubscribe-Post"] = "List-Unsubscribe=One-Click"
	}

	return &transport.Message{
		CampaignID: c.ID,
		FanID:      fan.ID,
		From:       fmt.Sprintf("%s <no-reply@%s>", artist.Name, artist.SESDomain),
		ReplyTo:    artist.Email,
		To:         fan.Email,
		Subject:    c.Subject,
		HTML:       html,
		Text:       text,
		Headers:    headers,
		Tags: map[string]string{
			"campaign_id": c.ID,
			"fan_id":      fan.ID,
		},
	}, nil
}

// sign produces a short HMAC so tracking URLs can't be forged.
func (a *Assembler) sign(data string) string {
	h := hmac.New(sha256.New, []byte(a.TrackingSecret))
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))[:16]
}

func (a *Assembler) encode(data string) string {
	return base64.URLEncoding.EncodeToString([]byte(data))
}

// rewriteLinks routes every http(s) href through the click-tracking
// redirect. Already-tracked and mailto links pass through.
func (a *Assembler) rewriteLinks(html, campaignID, fanID string) string {
	return linkRe.ReplaceAllStringFunc(html, func(match string) string {
		parts := linkRe.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}
		orig := parts[1]
		if strings.Contains(orig, "/track/") || strings.Contains(orig, "mailto:") {
			return match
		}
		data := fmt.Sprintf("%s|%s|%s", campaignID, fanID, orig)
		return fmt.Sprintf(`href="%s/track/click/%s/%s"`, a.TrackingURL, a.encode(data), a.sign(data))
	})
}

// injectOpenPixel places a 1x1 image just before </body>, or appends it
// when the body has no closing tag.
func (a *Assembler) injectOpenPixel(html, campaignID, fanID string) string {
	data := fmt.Sprintf("%s|%s", campaignID, fanID)
	pixel := fmt.Sprintf(
		`<img src="%s/track/open/%s/%s" width="1" height="1" alt="" style="display:none;width:1px;height:1px" />`,
		a.TrackingURL, a.encode(data), a.sign(data),
	)

	if idx := strings.LastIndex(strings.ToLower(html), "</body>"); idx >= 0 {
		return html[:idx] + pixel + html[idx:]
	}
	return html + pixel
}

func (a *Assembler) unsubscribeURL(campaignID, fanID string) string {
	if a.TrackingURL == "" {
		return ""
	}
	data := fmt.Sprintf("%s|%s", campaignID, fanID)
	return fmt.Sprintf("%s/track/unsubscribe/%s/%s", a.TrackingURL, a.encode(data), a.sign(data))
}
