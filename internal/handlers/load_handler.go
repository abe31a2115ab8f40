package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"drayage-backend/internal/repositories"
	"drayage-backend/pkg/utils"
)

type LoadHandler struct {
	Loads  *repositories.LoadRepository
	Events *repositories.LoadEventRepository
}

func NewLoadHandler(loads *repositories.LoadRepository, events *repositories.LoadEventRepository) *LoadHandler {
	return &LoadHandler{Loads: loads, Events: events}
}

func (h *LoadHandler) ListLoads(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	loads, err := h.Loads.List(r.Context(), limit, offset)
	if err != nil {
		utils.Error(w, http.StatusInternalServerError, err.Error())
		return
	}

	utils.JSON(w, http.StatusOK, loads)
}

func (h *LoadHandler) GetLoad(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(mux.Vars(r)["id"])

	load, err := h.Loads.Get(r.Context(), id)
	if err != nil {
		utils.Error(w, http.StatusNotFound, "Load not found")
		return
	}

	utils.JSON(w, http.StatusOK, load)
}

func (h *LoadHandler) GetLoadEvents(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(mux.Vars(r)["id"])

	if _, err := h.Loads.Get(r.Context(), id); err != nil {
		utils.Error(w, http.StatusNotFound, "Load not found")
		return
	}

	events, err := h.Events.ListByLoad(r.Context(), id)
	if err != nil {
		utils.Error(w, http.StatusInternalServerError, err.Error())
		return
	}

	utils.JSON(w, http.StatusOK, events)
}

// trackingView is the public subset of a load: no revenue, margin, or
// internal identifiers.
type trackingView struct {
	TrackingNumber  string          `json:"tracking_number"`
	Status          string          `json:"status"`
	ContainerNumber string          `json:"container_number,omitempty"`
	Origin          string          `json:"origin,omitempty"`
	Destination     string          `json:"destination,omitempty"`
	ETA             *time.Time      `json:"eta,omitempty"`
	Events          []trackingEvent `json:"events"`
}

type trackingEvent struct {
	MoveNumber int        `json:"move_number"`
	StopNumber int        `json:"stop_number"`
	StopType   string     `json:"stop_type"`
	Location   string     `json:"location,omitempty"`
	ArrivedAt  *time.Time `json:"arrived_at,omitempty"`
	DepartedAt *time.Time `json:"departed_at,omitempty"`
	Completed  bool       `json:"completed"`
	InProgress bool       `json:"in_progress"`
}

// TrackLoad serves the customer-facing tracking page by tracking number.
func (h *LoadHandler) TrackLoad(w http.ResponseWriter, r *http.Request) {
	trackingNumber := mux.Vars(r)["trackingNumber"]

	load, err := h.Loads.GetByTrackingNumber(r.Context(), trackingNumber)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			utils.Error(w, http.StatusNotFound, "Tracking number not found")
			return
		}
		utils.Error(w, http.StatusInternalServerError, err.Error())
		return
	}

	events, err := h.Events.ListByLoad(r.Context(), load.ID)
	if err != nil {
		utils.Error(w, http.StatusInternalServerError, err.Error())
		return
	}

	view := trackingView{
		TrackingNumber:  load.TrackingNumber,
		Status:          load.Status,
		ContainerNumber: load.ContainerNumber,
		Origin:          load.Origin,
		Destination:     load.Destination,
		ETA:             load.ETA,
		Events:          make([]trackingEvent, 0, len(events)),
	}
	for _, e := range events {
		view.Events = append(view.Events, trackingEvent{
			MoveNumber: e.MoveNumber,
			StopNumber: e.StopNumber,
			StopType:   e.StopType,
			Location:   e.Location,
			ArrivedAt:  e.ArrivedAt,
			DepartedAt: e.DepartedAt,
			Completed:  e.Completed,
			InProgress: e.InProgress,
		})
	}

	utils.JSON(w, http.StatusOK, view)
}
