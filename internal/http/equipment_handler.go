package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/example/lab-inventory/internal/application"
)

type equipmentService interface {
	ListEquipment(ctx context.Context, filter application.EquipmentFilter) ([]application.EquipmentView, error)
	GetEquipment(ctx context.Context, id int64) (application.EquipmentView, error)
	CreateEquipment(ctx context.Context, input application.EquipmentInput) (application.EquipmentView, error)
	UpdateEquipment(ctx context.Context, id int64, patch application.EquipmentPatch) (application.EquipmentView, error)
	DeleteEquipment(ctx context.Context, id int64) error
}

type EquipmentHandler struct {
	service   equipmentService
	responder responder
	logger    *slog.Logger
}

func NewEquipmentHandler(service equipmentService, logger *slog.Logger) *EquipmentHandler {
	base := defaultLogger(logger)
	return &EquipmentHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *EquipmentHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "EquipmentHandler", operation, attrs...)
}

const equipmentNotFound = "Equipment not found"

func (h *EquipmentHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	query := r.URL.Query()
	filter := application.EquipmentFilter{
		Search:   query.Get("search"),
		Category: query.Get("category"),
		Status:   query.Get("status"),
	}
	if value := strings.TrimSpace(query.Get("location")); value != "" {
		id, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			h.log(r.Context(), "List", "error_kind", "bad_request").WarnContext(r.Context(), "invalid equipment query", "error", err)
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidQuery)
			return
		}
		filter.LocationID = &id
	}

	logger := h.log(r.Context(), "List")
	items, err := h.service.ListEquipment(r.Context(), filter)
	if err != nil {
		logServiceError(r.Context(), logger, "equipment list failed", err)
		h.responder.handleServiceError(r.Context(), w, err, equipmentNotFound)
		return
	}

	logger.With("result_count", len(items)).InfoContext(r.Context(), "equipment listed")
	dtos := make([]equipmentDTO, 0, len(items))
	for _, item := range items {
		dtos = append(dtos, toEquipmentDTO(item))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, dtos)
}

func (h *EquipmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id, ok := ResourceIDFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidID)
		return
	}

	view, err := h.service.GetEquipment(r.Context(), id)
	if err != nil {
		logServiceError(r.Context(), h.log(r.Context(), "Get", "equipment_id", id), "equipment lookup failed", err)
		h.responder.handleServiceError(r.Context(), w, err, equipmentNotFound)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toEquipmentDTO(view))
}

func (h *EquipmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req equipmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode equipment request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create")
	view, err := h.service.CreateEquipment(r.Context(), req.toInput())
	if err != nil {
		logServiceError(r.Context(), logger, "equipment creation failed", err)
		h.responder.handleServiceError(r.Context(), w, err, equipmentNotFound)
		return
	}

	logger.With("equipment_id", view.ID).InfoContext(r.Context(), "equipment created")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toEquipmentDTO(view))
}

func (h *EquipmentHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id, ok := ResourceIDFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidID)
		return
	}

	var req equipmentPatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.log(r.Context(), "Update", "equipment_id", id, "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode equipment update", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Update", "equipment_id", id)
	view, err := h.service.UpdateEquipment(r.Context(), id, req.toPatch())
	if err != nil {
		logServiceError(r.Context(), logger, "equipment update failed", err)
		h.responder.handleServiceError(r.Context(), w, err, equipmentNotFound)
		return
	}

	logger.InfoContext(r.Context(), "equipment updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toEquipmentDTO(view))
}

func (h *EquipmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id, ok := ResourceIDFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidID)
		return
	}

	logger := h.log(r.Context(), "Delete", "equipment_id", id)
	if err := h.service.DeleteEquipment(r.Context(), id); err != nil {
		logServiceError(r.Context(), logger, "equipment delete failed", err)
		h.responder.handleServiceError(r.Context(), w, err, equipmentNotFound)
		return
	}

	logger.InfoContext(r.Context(), "equipment deleted")
	h.responder.writeSuccess(r.Context(), w)
}

type equipmentRequest struct {
	Name            string    `json:"name"`
	Model           *string   `json:"model"`
	Manufacturer    *string   `json:"manufacturer"`
	SerialNumber    *string   `json:"serial_number"`
	AssetTag        *string   `json:"asset_tag"`
	Category        *string   `json:"category"`
	Status          string    `json:"status"`
	LocationID      flexID    `json:"location_id"`
	CalibrationDate *string   `json:"calibration_date"`
	NextCalibration *string   `json:"next_calibration"`
	Cost            flexFloat `json:"cost"`
	Notes           *string   `json:"notes"`
}

func (r equipmentRequest) toInput() application.EquipmentInput {
	return application.EquipmentInput{
		Name:            r.Name,
		Model:           r.Model,
		Manufacturer:    r.Manufacturer,
		SerialNumber:    r.SerialNumber,
		AssetTag:        r.AssetTag,
		Category:        r.Category,
		Status:          r.Status,
		LocationID:      r.LocationID.optional(),
		CalibrationDate: r.CalibrationDate,
		NextCalibration: r.NextCalibration,
		Cost:            r.Cost.optional(),
		Notes:           r.Notes,
	}
}

type equipmentPatchRequest struct {
	Name            optionalString `json:"name"`
	Model           optionalString `json:"model"`
	Manufacturer    optionalString `json:"manufacturer"`
	SerialNumber    optionalString `json:"serial_number"`
	AssetTag        optionalString `json:"asset_tag"`
	Category        optionalString `json:"category"`
	Status          optionalString `json:"status"`
	LocationID      flexID         `json:"location_id"`
	CalibrationDate optionalString `json:"calibration_date"`
	NextCalibration optionalString `json:"next_calibration"`
	Cost            flexFloat      `json:"cost"`
	Notes           optionalString `json:"notes"`
}

func (r equipmentPatchRequest) toPatch() application.EquipmentPatch {
	return application.EquipmentPatch{
		Name:            r.Name.ptr(),
		Model:           r.Model.ptr(),
		Manufacturer:    r.Manufacturer.ptr(),
		SerialNumber:    r.SerialNumber.ptr(),
		AssetTag:        r.AssetTag.ptr(),
		Category:        r.Category.ptr(),
		Status:          r.Status.ptr(),
		LocationID:      r.LocationID.patch(),
		CalibrationDate: r.CalibrationDate.ptr(),
		NextCalibration: r.NextCalibration.ptr(),
		Cost:            r.Cost.optional(),
		Notes:           r.Notes.ptr(),
	}
}

// equipmentDTO flattens the location columns into the equipment record.
type equipmentDTO struct {
	ID              int64    `json:"id"`
	Name            string   `json:"name"`
	Model           *string  `json:"model"`
	Manufacturer    *string  `json:"manufacturer"`
	SerialNumber    *string  `json:"serial_number"`
	AssetTag        *string  `json:"asset_tag"`
	Category        *string  `json:"category"`
	Status          string   `json:"status"`
	LocationID      *int64   `json:"location_id"`
	CalibrationDate *string  `json:"calibration_date"`
	NextCalibration *string  `json:"next_calibration"`
	Cost            *float64 `json:"cost"`
	Notes           *string  `json:"notes"`
	CreatedAt       string   `json:"created_at"`
	UpdatedAt       string   `json:"updated_at"`
	Building        *string  `json:"building"`
	Room            *string  `json:"room"`
	Cabinet         *string  `json:"cabinet"`
	Shelf           *string  `json:"shelf"`
	Bin             *string  `json:"bin"`
}

func toEquipmentDTO(view application.EquipmentView) equipmentDTO {
	dto := equipmentDTO{
		ID:              view.ID,
		Name:            view.Name,
		Model:           view.Model,
		Manufacturer:    view.Manufacturer,
		SerialNumber:    view.SerialNumber,
		AssetTag:        view.AssetTag,
		Category:        view.Category,
		Status:          view.Status,
		LocationID:      view.LocationID,
		CalibrationDate: view.CalibrationDate,
		NextCalibration: view.NextCalibration,
		Cost:            view.Cost,
		Notes:           view.Notes,
		CreatedAt:       formatTimestamp(view.CreatedAt),
		UpdatedAt:       formatTimestamp(view.UpdatedAt),
	}
	if view.Location != nil {
		dto.Building = view.Location.Building
		dto.Room = view.Location.Room
		dto.Cabinet = view.Location.Cabinet
		dto.Shelf = view.Location.Shelf
		dto.Bin = view.Location.Bin
	}
	return dto
}
