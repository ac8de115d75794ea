package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/createdbymax/Loopletter-Open-source-email-marketing-platform-sub000/internal/campaign"
	"github.com/createdbymax/Loopletter-Open-source-email-marketing-platform-sub000/internal/csvparser"
	"github.com/createdbymax/Loopletter-Open-source-email-marketing-platform-sub000/internal/domain"
)

// Sender runs a campaign send to completion.
type Sender interface {
	SendCampaign(ctx context.Context, campaignID string) (*campaign.SendReport, error)
}

// FanImporter loads parsed fan rows into the directory.
type FanImporter interface {
	Import(ctx context.Context, artistID string, rows []csvparser.FanRow) (int, error)
}

// OutcomeCorrector applies bounce/complaint notifications to the
// outcome log after the fact.
type OutcomeCorrector interface {
	CorrectOutcome(ctx context.Context, campaignID, fanID string, status domain.OutcomeStatus, detail string) error
}

// Handler is the engine's thin HTTP control surface.
type Handler struct {
	Sender    Sender
	Campaigns campaign.Store
	Fans      FanImporter
	Outcomes  OutcomeCorrector
	Log       *zap.Logger

	// Base is the server's root context. Sends started by the handler
	// inherit it, so shutdown pauses a running campaign at its next
	// batch boundary instead of orphaning it.
	Base context.Context
}

// Routes mounts the control endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/campaigns/{id}/send", h.sendCampaign)
	r.Post("/campaigns/{id}/cancel", h.cancelCampaign)
	r.Post("/fans/import", h.importFans)
	r.Post("/notifications/delivery", h.deliveryNotification)
	r.Get("/healthz", h.healthz)
	return r
}

// sendCampaign kicks off a send asynchronously and returns 202. The
// orchestrator writes the final status; progress is visible through the
// campaign record and metrics.
func (h *Handler) sendCampaign(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	base := h.Base
	if base == nil {
		base = context.Background()
	}
	go func() {
		if _, err := h.Sender.SendCampaign(base, id); err != nil {
			h.Log.Error("campaign send failed",
				zap.String("campaign_id", id), zap.Error(err))
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"campaign_id": id, "state": "accepted"})
}

// cancelCampaign flips the campaign to cancelled; a running send
// observes it at its next batch boundary.
func (h *Handler) cancelCampaign(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	err := h.Campaigns.UpdateStatus(r.Context(), id, domain.CampaignCancelled)
	if errors.Is(err, campaign.ErrNotFound) {
		http.Error(w, "campaign not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.Log.Error("cancel failed", zap.String("campaign_id", id), zap.Error(err))
		http.Error(w, "cancel failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"campaign_id": id, "status": string(domain.CampaignCancelled)})
}

// importFans parses a CSV request body into the artist's fan list.
func (h *Handler) importFans(w http.ResponseWriter, r *http.Request) {
	artistID := r.URL.Query().Get("artist_id")
	if artistID == "" {
		http.Error(w, "artist_id is required", http.StatusBadRequest)
		return
	}

	rows, err := csvparser.ParseFanRows(r.Body, 10000)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	n, err := h.Fans.Import(r.Context(), artistID, rows)
	if err != nil {
		h.Log.Error("fan import failed", zap.String("artist_id", artistID), zap.Error(err))
		http.Error(w, "import failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"imported": n})
}

// deliveryNotification corrects a provisional "sent" outcome after the
// provider reports a bounce or complaint for the message.
func (h *Handler) deliveryNotification(w http.ResponseWriter, r *http.Request) {
	var n struct {
		CampaignID string `json:"campaign_id"`
		FanID      string `json:"fan_id"`
		Type       string `json:"type"`
		Detail     string `json:"detail"`
	}
	if err := json.NewDecoder(r.Body).Decode(&n); err != nil {
		http.Error(w, "invalid notification body", http.StatusBadRequest)
		return
	}
	if n.CampaignID == "" || n.FanID == "" {
		http.Error(w, "campaign_id and fan_id are required", http.StatusBadRequest)
		return
	}

	var status domain.OutcomeStatus
	switch n.Type {
	case "bounce":
		status = domain.OutcomeBounced
	case "complaint":
		status = domain.OutcomeComplained
	default:
		http.Error(w, "type must be bounce or complaint", http.StatusBadRequest)
		return
	}

	if err := h.Outcomes.CorrectOutcome(r.Context(), n.CampaignID, n.FanID, status, n.Detail); err != nil {
		h.Log.Error("outcome correction failed",
			zap.String("campaign_id", n.CampaignID),
			zap.String("fan_id", n.FanID),
			zap.Error(err),
		)
		http.Error(w, "correction failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": string(status)})
}

func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
