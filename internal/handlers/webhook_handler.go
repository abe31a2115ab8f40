package handlers

import (
	"io"
	"log"
	"net/http"

	syncsvc "drayage-backend/internal/sync"
	"drayage-backend/pkg/utils"
)

const maxWebhookBody = 1 << 20 // 1 MB

type WebhookHandler struct {
	Engine *syncsvc.Engine
}

func NewWebhookHandler(engine *syncsvc.Engine) *WebhookHandler {
	return &WebhookHandler{Engine: engine}
}

// HandlePortProWebhook receives vendor event deliveries. The vendor
// retries on anything but 2xx, so every outcome except a malformed body
// answers 200 and the outcome is carried in the response.
func (h *WebhookHandler) HandlePortProWebhook(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBody)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		utils.Error(w, http.StatusBadRequest, "unreadable request body")
		return
	}

	signature := r.Header.Get("X-PortPro-Signature")
	outcome, err := h.Engine.HandleWebhook(r.Context(), body, signature)
	if outcome == syncsvc.OutcomeMalformed {
		log.Printf("[Webhook] rejected malformed payload: %v", err)
		utils.Error(w, http.StatusBadRequest, "malformed webhook payload")
		return
	}

	utils.JSON(w, http.StatusOK, map[string]string{"status": outcome})
}
