package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/example/lab-inventory/internal/application"
)

type statsService interface {
	Summary(ctx context.Context) (application.InventoryStats, error)
}

type StatsHandler struct {
	service   statsService
	responder responder
	logger    *slog.Logger
}

func NewStatsHandler(service statsService, logger *slog.Logger) *StatsHandler {
	base := defaultLogger(logger)
	return &StatsHandler{service: service, responder: newResponder(base), logger: base}
}

type statsDTO struct {
	EquipmentCount         int64            `json:"equipment_count"`
	LocationCount          int64            `json:"location_count"`
	ReservationCount       int64            `json:"reservation_count"`
	ActiveReservationCount int64            `json:"active_reservation_count"`
	EquipmentByStatus      map[string]int64 `json:"equipment_by_status"`
}

func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	stats, err := h.service.Summary(r.Context())
	if err != nil {
		logServiceError(r.Context(), handlerLogger(r.Context(), h.logger, "StatsHandler", "Get"), "stats lookup failed", err)
		h.responder.handleServiceError(r.Context(), w, err, "")
		return
	}

	byStatus := stats.EquipmentByStatus
	if byStatus == nil {
		byStatus = map[string]int64{}
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, statsDTO{
		EquipmentCount:         stats.Equipment,
		LocationCount:          stats.Locations,
		ReservationCount:       stats.Reservations,
		ActiveReservationCount: stats.ActiveReservations,
		EquipmentByStatus:      byStatus,
	})
}
