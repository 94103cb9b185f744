// internal/handler/delivery_handler.go
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/dhivaai/microlearn-backend/internal/delivery"
	"github.com/dhivaai/microlearn-backend/internal/service"
)

// DeliveryHandler exposes the scheduler trigger and the messaging-gateway
// webhook.
type DeliveryHandler struct {
	Orchestrator *delivery.Orchestrator
	Interactions *service.InteractionService
	Log          zerolog.Logger
}

// TriggerDelivery runs one delivery cycle. This is the one path where a
// failure should alert: a 500 here means no content was processed at all.
func (h *DeliveryHandler) TriggerDelivery(w http.ResponseWriter, r *http.Request) {
	result, err := h.Orchestrator.RunCycle(r.Context())
	if err != nil {
		h.Log.Error().Err(err).Msg("❌ delivery cycle failed")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]any{"error": err.Error()})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"summary": result,
	})
}

// gupshupWebhook mirrors the gateway's inbound payload shape.
type gupshupWebhook struct {
	Payload struct {
		Sender struct {
			Phone string `json:"phone"`
		} `json:"sender"`
		Message struct {
			Text string `json:"text"`
		} `json:"message"`
	} `json:"payload"`
}

// GupshupWebhook receives learner replies and routes them as commands.
func (h *DeliveryHandler) GupshupWebhook(w http.ResponseWriter, r *http.Request) {
	var body gupshupWebhook
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid webhook payload: "+err.Error(), http.StatusBadRequest)
		return
	}

	phone := body.Payload.Sender.Phone
	text := body.Payload.Message.Text
	if phone == "" || text == "" {
		http.Error(w, "invalid webhook payload structure", http.StatusBadRequest)
		return
	}

	if _, err := h.Interactions.HandleMessage(r.Context(), phone, text); err != nil {
		h.Log.Error().Err(err).Str("phone", phone).Msg("⚠️ command processing failed")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]any{"error": "failed to process command"})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"success": true, "message": "OK"})
}
