package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/createdbymax/Loopletter-Open-source-email-marketing-platform-sub000/internal/campaign"
	"github.com/createdbymax/Loopletter-Open-source-email-marketing-platform-sub000/internal/csvparser"
	"github.com/createdbymax/Loopletter-Open-source-email-marketing-platform-sub000/internal/domain"
)

type fakeSender struct {
	sent chan string
	ctxs chan context.Context
}

func (s *fakeSender) SendCampaign(ctx context.Context, campaignID string) (*campaign.SendReport, error) {
	s.ctxs <- ctx
	s.sent <- campaignID
	return &campaign.SendReport{CampaignID: campaignID}, nil
}

type fakeCampaignStore struct {
	statuses map[string]domain.CampaignStatus
}

func (s *fakeCampaignStore) Get(ctx context.Context, id string) (*domain.Campaign, error) {
	status, ok := s.statuses[id]
	if !ok {
		return nil, campaign.ErrNotFound
	}
	return &domain.Campaign{ID: id, Status: status}, nil
}

func (s *fakeCampaignStore) UpdateStatus(ctx context.Context, id string, status domain.CampaignStatus) error {
	if _, ok := s.statuses[id]; !ok {
		return campaign.ErrNotFound
	}
	s.statuses[id] = status
	return nil
}

func (s *fakeCampaignStore) UpdateStats(ctx context.Context, id string, stats domain.CampaignStats) error {
	return nil
}

func (s *fakeCampaignStore) UpdateSendDate(ctx context.Context, id string, sendDate time.Time) error {
	return nil
}

type fakeImporter struct {
	artistID string
	rows     []csvparser.FanRow
}

func (i *fakeImporter) Import(ctx context.Context, artistID string, rows []csvparser.FanRow) (int, error) {
	i.artistID = artistID
	i.rows = rows
	return len(rows), nil
}

type fakeCorrector struct {
	campaignID string
	fanID      string
	status     domain.OutcomeStatus
}

func (c *fakeCorrector) CorrectOutcome(ctx context.Context, campaignID, fanID string, status domain.OutcomeStatus, detail string) error {
	c.campaignID = campaignID
	c.fanID = fanID
	c.status = status
	return nil
}

func newTestHandler() (*Handler, *fakeSender, *fakeCampaignStore, *fakeImporter, *fakeCorrector) {
	sender := &fakeSender{sent: make(chan string, 1), ctxs: make(chan context.Context, 1)}
	store := &fakeCampaignStore{statuses: map[string]domain.CampaignStatus{
		"camp-1": domain.CampaignDraft,
	}}
	importer := &fakeImporter{}
	corrector := &fakeCorrector{}
	h := &Handler{
		Sender:    sender,
		Campaigns: store,
		Fans:      importer,
		Outcomes:  corrector,
		Log:       zap.NewNop(),
	}
	return h, sender, store, importer, corrector
}

func TestSendCampaignAccepted(t *testing.T) {
	h, sender, _, _, _ := newTestHandler()

	req := httptest.NewRequest(http.MethodPost, "/campaigns/camp-1/send", nil)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)

	select {
	case id := <-sender.sent:
		assert.Equal(t, "camp-1", id)
	case <-time.After(time.Second):
		t.Fatal("send was never started")
	}
}

func TestSendCampaignInheritsBaseContext(t *testing.T) {
	h, sender, _, _, _ := newTestHandler()
	base, cancel := context.WithCancel(context.Background())
	h.Base = base

	req := httptest.NewRequest(http.MethodPost, "/campaigns/camp-1/send", nil)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var sendCtx context.Context
	select {
	case sendCtx = <-sender.ctxs:
	case <-time.After(time.Second):
		t.Fatal("send was never started")
	}
	<-sender.sent

	// Server shutdown reaches the running send.
	cancel()
	select {
	case <-sendCtx.Done():
	case <-time.After(time.Second):
		t.Fatal("send context did not observe shutdown")
	}
}

func TestCancelCampaign(t *testing.T) {
	h, _, store, _, _ := newTestHandler()

	req := httptest.NewRequest(http.MethodPost, "/campaigns/camp-1/cancel", nil)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.CampaignCancelled, store.statuses["camp-1"])
}

func TestCancelCampaignNotFound(t *testing.T) {
	h, _, _, _, _ := newTestHandler()

	req := httptest.NewRequest(http.MethodPost, "/campaigns/missing/cancel", nil)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestImportFans(t *testing.T) {
	h, _, _, importer, _ := newTestHandler()

	body := "email,name\nalice@example.com,Alice\nbob@example.com,Bob\n"
	req := httptest.NewRequest(http.MethodPost, "/fans/import?artist_id=artist-1", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "artist-1", importer.artistID)
	assert.Len(t, importer.rows, 2)
}

func TestImportFansRequiresArtist(t *testing.T) {
	h, _, _, _, _ := newTestHandler()

	req := httptest.NewRequest(http.MethodPost, "/fans/import", strings.NewReader("email\na@b.com\n"))
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeliveryNotificationBounce(t *testing.T) {
	h, _, _, _, corrector := newTestHandler()

	body := `{"campaign_id":"camp-1","fan_id":"fan-1","type":"bounce","detail":"mailbox full"}`
	req := httptest.NewRequest(http.MethodPost, "/notifications/delivery", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "camp-1", corrector.campaignID)
	assert.Equal(t, "fan-1", corrector.fanID)
	assert.Equal(t, domain.OutcomeBounced, corrector.status)
}

func TestDeliveryNotificationRejectsUnknownType(t *testing.T) {
	h, _, _, _, _ := newTestHandler()

	body := `{"campaign_id":"camp-1","fan_id":"fan-1","type":"delivered"}`
	req := httptest.NewRequest(http.MethodPost, "/notifications/delivery", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthz(t *testing.T) {
	h, _, _, _, _ := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
