package assemble

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/createdbymax/Loopletter-Open-source-email-marketing-platform-sub000/internal/domain"
)

func testCampaign() *domain.Campaign {
	return &domain.Campaign{
		ID:       "camp-1",
		ArtistID: "artist-1",
		Subject:  "New single out now",
		HTMLBody: `<html><body><p>Hi {{fan_name}}!</p><a href="https://example.com/listen">Listen</a></body></html>`,
		TextBody: "Hi {{fan_name}}! Listen: https://example.com/listen",
		Settings: domain.CampaignSettings{TrackOpens: true, TrackClicks: true},
	}
}

func testArtist() *domain.Artist {
	return &domain.Artist{
		ID:                "artist-1",
		Name:              "The Band",
		Email:             "band@example.com",
		SESDomain:         "mail.theband.com",
		SESDomainVerified: true,
	}
}

func testFan() *domain.Fan {
	return &domain.Fan{
		ID:                 "fan-1",
		Email:              "alice@example.com",
		Name:               "Alice",
		Status:             domain.FanSubscribed,
		AllowOpenTracking:  true,
		AllowClickTracking: true,
	}
}

func testAssembler() *Assembler {
	return &Assembler{TrackingURL: "https://track.example.com", TrackingSecret: "secret"}
}

func TestAssembleMergeFields(t *testing.T) {
	msg, err := testAssembler().Assemble(testCampaign(), testArtist(), testFan())
	require.NoError(t, err)

	assert.Contains(t, msg.HTML, "Hi Alice!")
	assert.Contains(t, msg.Text, "Hi Alice!")
	assert.NotContains(t, msg.HTML, "{{fan_name}}")

	assert.Equal(t, "The Band <no-reply@mail.theband.com>", msg.From)
	assert.Equal(t, "band@example.com", msg.ReplyTo)
	assert.Equal(t, "alice@example.com", msg.To)
	assert.Equal(t, "New single out now", msg.Subject)
	assert.Equal(t, "camp-1", msg.Tags["campaign_id"])
	assert.Equal(t, "fan-1", msg.Tags["fan_id"])
}

func TestAssembleUnsubscribeHeaders(t *testing.T) {
	msg, err := testAssembler().Assemble(testCampaign(), testArtist(), testFan())
	require.NoError(t, err)

	assert.Contains(t, msg.Headers["List-Unsubscribe"], "/track/unsubscribe/")
	assert.Equal(t, "List-Unsubscribe=One-Click", msg.Headers["List-Unsubscribe-Post"])
	assert.Equal(t, "camp-1", msg.Headers["X-Campaign"])
}

func TestAssembleUnverifiedDomain(t *testing.T) {
	artist := testArtist()
	artist.SESDomainVerified = false

	_, err := testAssembler().Assemble(testCampaign(), artist, testFan())
	assert.ErrorIs(t, err, ErrDomainNotVerified)
}

func TestTrackingRequiresBothConsents(t *testing.T) {
	cases := []struct {
		campaign bool
		fan      bool
		injected bool
	}{
		{true, true, true},
		{true, false, false},
		{false, true, false},
		{false, false, false},
	}

	for _, tc := range cases {
		name := fmt.Sprintf("campaign=%v fan=%v", tc.campaign, tc.fan)
		t.Run(name, func(t *testing.T) {
			c := testCampaign()
			c.Settings.TrackOpens = tc.campaign
			c.Settings.TrackClicks = tc.campaign
			fan := testFan()
			fan.AllowOpenTracking = tc.fan
			fan.AllowClickTracking = tc.fan

			msg, err := testAssembler().Assemble(c, testArtist(), fan)
			require.NoError(t, err)

			assert.Equal(t, tc.injected, strings.Contains(msg.HTML, "/track/open/"))
			assert.Equal(t, tc.injected, strings.Contains(msg.HTML, "/track/click/"))
			if !tc.injected {
				assert.Contains(t, msg.HTML, `href="https://example.com/listen"`)
			}
		})
	}
}

func TestNoTrackingWithoutEndpoint(t *testing.T) {
	a := &Assembler{}

	msg, err := a.Assemble(testCampaign(), testArtist(), testFan())
	require.NoError(t, err)

	assert.NotContains(t, msg.HTML, "/track/")
	assert.NotContains(t, msg.Headers, "List-Unsubscribe")
}

func TestRewriteSkipsMailtoLinks(t *testing.T) {
	c := testCampaign()
	c.HTMLBody = `<a href="mailto:band@example.com">Write us</a><a href="https://example.com/x">Go</a>`

	msg, err := testAssembler().Assemble(c, testArtist(), testFan())
	require.NoError(t, err)

	assert.Contains(t, msg.HTML, `href="mailto:band@example.com"`)
	assert.NotContains(t, msg.HTML, `href="https://example.com/x"`)
}

func TestOpenPixelPlacedBeforeBodyClose(t *testing.T) {
	msg, err := testAssembler().Assemble(testCampaign(), testArtist(), testFan())
	require.NoError(t, err)

	pixelAt := strings.Index(msg.HTML, "/track/open/")
	bodyAt := strings.Index(strings.ToLower(msg.HTML), "</body>")
	require.GreaterOrEqual(t, pixelAt, 0)
	require.GreaterOrEqual(t, bodyAt, 0)
	assert.Less(t, pixelAt, bodyAt)
}

func TestOpenPixelAppendedWithoutBodyTag(t *testing.T) {
	c := testCampaign()
	c.HTMLBody = "<p>Hi {{fan_name}}</p>"

	msg, err := testAssembler().Assemble(c, testArtist(), testFan())
	require.NoError(t, err)
	assert.True(t, strings.Contains(msg.HTML, "/track/open/"))
}

func TestSignatureIsDeterministic(t *testing.T) {
	a := testAssembler()
	assert.Equal(t, a.sign("camp-1|fan-1"), a.sign("camp-1|fan-1"))
	assert.NotEqual(t, a.sign("camp-1|fan-1"), a.sign("camp-1|fan-2"))
	assert.Len(t, a.sign("camp-1|fan-1"), 16)
}
