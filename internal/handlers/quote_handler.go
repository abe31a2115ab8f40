package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"drayage-backend/internal/models"
	"drayage-backend/internal/repositories"
	"drayage-backend/internal/services"
	"drayage-backend/pkg/utils"
)

type QuoteHandler struct {
	Service *services.QuoteService
}

func NewQuoteHandler(s *services.QuoteService) *QuoteHandler {
	return &QuoteHandler{Service: s}
}

// SubmitQuote is the public intake endpoint behind the website form.
func (h *QuoteHandler) SubmitQuote(w http.ResponseWriter, r *http.Request) {
	var req models.CreateQuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	quote, err := h.Service.Submit(r.Context(), &req)
	if err != nil {
		utils.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	utils.JSON(w, http.StatusCreated, quote)
}

func (h *QuoteHandler) GetQuote(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(mux.Vars(r)["id"])

	quote, err := h.Service.Get(r.Context(), id)
	if err != nil {
		utils.Error(w, http.StatusNotFound, "Quote not found")
		return
	}

	utils.JSON(w, http.StatusOK, quote)
}

func (h *QuoteHandler) ListQuotes(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")

	quotes, err := h.Service.List(r.Context(), status)
	if err != nil {
		utils.Error(w, http.StatusInternalServerError, err.Error())
		return
	}

	utils.JSON(w, http.StatusOK, quotes)
}

// AssignQuote claims a quote for a dispatcher. A stale optimistic-lock
// token answers 409 so the caller refetches and retries.
func (h *QuoteHandler) AssignQuote(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(mux.Vars(r)["id"])

	var req models.AssignQuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	quote, err := h.Service.Assign(r.Context(), id, &req)
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrConflict):
			utils.Error(w, http.StatusConflict, "Quote was modified by someone else")
		case errors.Is(err, repositories.ErrNotFound):
			utils.Error(w, http.StatusNotFound, "Quote not found")
		default:
			utils.Error(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	utils.JSON(w, http.StatusOK, quote)
}

func (h *QuoteHandler) UpdateQuoteStatus(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(mux.Vars(r)["id"])

	var req models.UpdateQuoteStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	quote, err := h.Service.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			utils.Error(w, http.StatusNotFound, "Quote not found")
			return
		}
		utils.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	utils.JSON(w, http.StatusOK, quote)
}

// GetTriageBoard returns active quotes ranked by priority with SLA flags.
func (h *QuoteHandler) GetTriageBoard(w http.ResponseWriter, r *http.Request) {
	board, err := h.Service.Triage(r.Context())
	if err != nil {
		utils.Error(w, http.StatusInternalServerError, err.Error())
		return
	}

	utils.JSON(w, http.StatusOK, board)
}
