package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/example/lab-inventory/internal/application"
)

type locationService interface {
	ListLocations(ctx context.Context) ([]application.Location, error)
	CreateLocation(ctx context.Context, input application.LocationInput) (application.Location, error)
	DeleteLocation(ctx context.Context, id int64) error
}

type LocationHandler struct {
	service   locationService
	responder responder
	logger    *slog.Logger
}

func NewLocationHandler(service locationService, logger *slog.Logger) *LocationHandler {
	base := defaultLogger(logger)
	return &LocationHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *LocationHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "LocationHandler", operation, attrs...)
}

const locationNotFound = "Location not found"

func (h *LocationHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	logger := h.log(r.Context(), "List")
	locations, err := h.service.ListLocations(r.Context())
	if err != nil {
		logServiceError(r.Context(), logger, "location list failed", err)
		h.responder.handleServiceError(r.Context(), w, err, locationNotFound)
		return
	}

	dtos := make([]locationDTO, 0, len(locations))
	for _, location := range locations {
		dtos = append(dtos, toLocationDTO(location))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, dtos)
}

func (h *LocationHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req application.LocationInput
	if err := decodeJSON(w, r, &req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode location request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create")
	location, err := h.service.CreateLocation(r.Context(), req)
	if err != nil {
		logServiceError(r.Context(), logger, "location creation failed", err)
		h.responder.handleServiceError(r.Context(), w, err, locationNotFound)
		return
	}

	logger.With("location_id", location.ID).InfoContext(r.Context(), "location created")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toLocationDTO(location))
}

func (h *LocationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id, ok := ResourceIDFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidID)
		return
	}

	logger := h.log(r.Context(), "Delete", "location_id", id)
	if err := h.service.DeleteLocation(r.Context(), id); err != nil {
		logServiceError(r.Context(), logger, "location delete failed", err)
		h.responder.handleServiceError(r.Context(), w, err, locationNotFound)
		return
	}

	logger.InfoContext(r.Context(), "location deleted")
	h.responder.writeSuccess(r.Context(), w)
}

type locationDTO struct {
	ID        int64   `json:"id"`
	Building  *string `json:"building"`
	Room      *string `json:"room"`
	Cabinet   *string `json:"cabinet"`
	Shelf     *string `json:"shelf"`
	Bin       *string `json:"bin"`
	CreatedAt string  `json:"created_at"`
}

func toLocationDTO(location application.Location) locationDTO {
	return locationDTO{
		ID:        location.ID,
		Building:  location.Building,
		Room:      location.Room,
		Cabinet:   location.Cabinet,
		Shelf:     location.Shelf,
		Bin:       location.Bin,
		CreatedAt: formatTimestamp(location.CreatedAt),
	}
}
