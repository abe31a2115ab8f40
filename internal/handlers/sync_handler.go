package handlers

import (
	"net/http"

	"drayage-backend/internal/notify"
	syncsvc "drayage-backend/internal/sync"
	"drayage-backend/pkg/utils"
)

// SyncHandler exposes the scheduled-trigger endpoints. All routes sit
// behind the cron token middleware.
type SyncHandler struct {
	Engine     *syncsvc.Engine
	DLQ        *syncsvc.DLQService
	Dispatcher *notify.Dispatcher
}

func NewSyncHandler(engine *syncsvc.Engine, dlq *syncsvc.DLQService, dispatcher *notify.Dispatcher) *SyncHandler {
	return &SyncHandler{Engine: engine, DLQ: dlq, Dispatcher: dispatcher}
}

func (h *SyncHandler) TriggerPoll(w http.ResponseWriter, r *http.Request) {
	fetched, err := h.Engine.Poll(r.Context())
	if err != nil {
		utils.Error(w, http.StatusBadGateway, err.Error())
		return
	}
	utils.JSON(w, http.StatusOK, map[string]int{"fetched": fetched})
}

func (h *SyncHandler) TriggerReconcile(w http.ResponseWriter, r *http.Request) {
	checked, drifted, err := h.Engine.Reconcile(r.Context())
	if err != nil {
		utils.Error(w, http.StatusBadGateway, err.Error())
		return
	}
	utils.JSON(w, http.StatusOK, map[string]int{"checked": checked, "drifted": drifted})
}

func (h *SyncHandler) TriggerDLQRetry(w http.ResponseWriter, r *http.Request) {
	attempted, succeeded, err := h.DLQ.ProcessDue(r.Context())
	if err != nil {
		utils.Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	utils.JSON(w, http.StatusOK, map[string]int{"attempted": attempted, "succeeded": succeeded})
}

func (h *SyncHandler) TriggerDigest(w http.ResponseWriter, r *http.Request) {
	users, items, errs := h.Dispatcher.RunDigest(r.Context())
	resp := map[string]interface{}{
		"users_processed": users,
		"items_sent":      items,
	}
	if len(errs) > 0 {
		resp["errors"] = errs
	}
	utils.JSON(w, http.StatusOK, resp)
}
