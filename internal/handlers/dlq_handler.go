package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"drayage-backend/internal/repositories"
	syncsvc "drayage-backend/internal/sync"
	"drayage-backend/pkg/utils"
)

// DLQHandler exposes the dead letter queue to the ops dashboard: inspect
// stuck events, requeue exhausted ones, discard poison payloads.
type DLQHandler struct {
	DLQ  *syncsvc.DLQService
	Idem *syncsvc.IdempotencyStore
}

func NewDLQHandler(dlq *syncsvc.DLQService, idem *syncsvc.IdempotencyStore) *DLQHandler {
	return &DLQHandler{DLQ: dlq, Idem: idem}
}

func (h *DLQHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")

	entries, err := h.DLQ.List(r.Context(), status)
	if err != nil {
		utils.Error(w, http.StatusInternalServerError, err.Error())
		return
	}

	utils.JSON(w, http.StatusOK, entries)
}

func (h *DLQHandler) RequeueEntry(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(mux.Vars(r)["id"])

	if err := h.DLQ.Requeue(r.Context(), id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			utils.Error(w, http.StatusNotFound, "Entry not found")
			return
		}
		utils.Error(w, http.StatusInternalServerError, err.Error())
		return
	}

	utils.JSON(w, http.StatusOK, map[string]string{"message": "Entry requeued for retry"})
}

func (h *DLQHandler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(mux.Vars(r)["id"])

	if err := h.DLQ.Delete(r.Context(), id); err != nil {
		utils.Error(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *DLQHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	pending, exhausted, err := h.DLQ.Stats(r.Context())
	if err != nil {
		utils.Error(w, http.StatusInternalServerError, err.Error())
		return
	}

	utils.JSON(w, http.StatusOK, map[string]interface{}{
		"pending":     pending,
		"exhausted":   exhausted,
		"idempotency": h.Idem.Stats(r.Context()),
	})
}
