package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/GCUGrayArea/delicious-lotus/internal/orchestrator"
)

const maxWebhookBody = 1 << 20

func (a *App) ReplicateWebhook(w http.ResponseWriter, r *http.Request) {
	var payload orchestrator.WebhookPayload
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxWebhookBody)).Decode(&payload); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	rec, err := a.Webhooks.Handle(r.Context(), payload)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]string{"status": "ok", "job_id": rec.JobID})
}
