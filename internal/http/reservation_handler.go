package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/example/lab-inventory/internal/application"
	"github.com/example/lab-inventory/internal/scheduler"
)

const maxBodyBytes = 1 << 20

type reservationService interface {
	ListReservations(ctx context.Context, filter application.ReservationFilter) ([]application.ReservationView, error)
	GetReservation(ctx context.Context, id int64) (application.ReservationView, error)
	CreateReservation(ctx context.Context, input application.ReservationInput) (application.ReservationView, error)
	UpdateReservation(ctx context.Context, id int64, patch application.ReservationPatch) (application.ReservationView, error)
	DeleteReservation(ctx context.Context, id int64) error
}

type ReservationHandler struct {
	service   reservationService
	responder responder
	logger    *slog.Logger
}

func NewReservationHandler(service reservationService, logger *slog.Logger) *ReservationHandler {
	base := defaultLogger(logger)
	return &ReservationHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *ReservationHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "ReservationHandler", operation, attrs...)
}

const reservationNotFound = "Reservation not found"

func (h *ReservationHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	filter, err := parseReservationFilter(r)
	if err != nil {
		h.log(r.Context(), "List", "error_kind", "bad_request").WarnContext(r.Context(), "invalid reservation query", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidQuery)
		return
	}

	logger := h.log(r.Context(), "List")
	views, err := h.service.ListReservations(r.Context(), filter)
	if err != nil {
		logServiceError(r.Context(), logger, "reservation list failed", err)
		h.responder.handleServiceError(r.Context(), w, err, reservationNotFound)
		return
	}

	logger.With("result_count", len(views)).InfoContext(r.Context(), "reservations listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toReservationDTOs(views))
}

func (h *ReservationHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id, ok := ResourceIDFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidID)
		return
	}

	view, err := h.service.GetReservation(r.Context(), id)
	if err != nil {
		logServiceError(r.Context(), h.log(r.Context(), "Get", "reservation_id", id), "reservation lookup failed", err)
		h.responder.handleServiceError(r.Context(), w, err, reservationNotFound)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toReservationDTO(view))
}

func (h *ReservationHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req reservationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode reservation request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create", "equipment_id", req.EquipmentID.orZero())

	view, err := h.service.CreateReservation(r.Context(), req.toInput())
	if err != nil {
		logServiceError(r.Context(), logger, "reservation creation failed", err)
		h.responder.handleServiceError(r.Context(), w, err, reservationNotFound)
		return
	}

	logger.With("reservation_id", view.ID).InfoContext(r.Context(), "reservation created")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toReservationDTO(view))
}

func (h *ReservationHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id, ok := ResourceIDFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidID)
		return
	}

	var req reservationPatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.log(r.Context(), "Update", "reservation_id", id, "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode reservation update", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Update", "reservation_id", id)

	view, err := h.service.UpdateReservation(r.Context(), id, req.toPatch())
	if err != nil {
		logServiceError(r.Context(), logger, "reservation update failed", err)
		h.responder.handleServiceError(r.Context(), w, err, reservationNotFound)
		return
	}

	logger.InfoContext(r.Context(), "reservation updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toReservationDTO(view))
}

func (h *ReservationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id, ok := ResourceIDFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidID)
		return
	}

	logger := h.log(r.Context(), "Delete", "reservation_id", id)
	if err := h.service.DeleteReservation(r.Context(), id); err != nil {
		logServiceError(r.Context(), logger, "reservation delete failed", err)
		h.responder.handleServiceError(r.Context(), w, err, reservationNotFound)
		return
	}

	logger.InfoContext(r.Context(), "reservation deleted")
	h.responder.writeSuccess(r.Context(), w)
}

func parseReservationFilter(r *http.Request) (application.ReservationFilter, error) {
	query := r.URL.Query()
	var filter application.ReservationFilter

	if value := strings.TrimSpace(query.Get("equipment_id")); value != "" {
		id, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return application.ReservationFilter{}, err
		}
		filter.EquipmentID = &id
	}
	if value := strings.TrimSpace(query.Get("start_date")); value != "" {
		start, err := scheduler.ParseDate(value)
		if err != nil {
			return application.ReservationFilter{}, err
		}
		filter.StartDate = &start
	}
	if value := strings.TrimSpace(query.Get("end_date")); value != "" {
		end, err := scheduler.ParseDate(value)
		if err != nil {
			return application.ReservationFilter{}, err
		}
		filter.EndDate = &end
	}
	return filter, nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst)
}

type reservationRequest struct {
	EquipmentID flexID  `json:"equipment_id"`
	UserName    string  `json:"user_name"`
	UserEmail   *string `json:"user_email"`
	StartDate   string  `json:"start_date"`
	EndDate     string  `json:"end_date"`
	StartTime   *string `json:"start_time"`
	EndTime     *string `json:"end_time"`
	Purpose     *string `json:"purpose"`
	Notes       *string `json:"notes"`
}

func (r reservationRequest) toInput() application.ReservationInput {
	return application.ReservationInput{
		EquipmentID: r.EquipmentID.orZero(),
		UserName:    r.UserName,
		UserEmail:   r.UserEmail,
		StartDate:   r.StartDate,
		EndDate:     r.EndDate,
		StartTime:   r.StartTime,
		EndTime:     r.EndTime,
		Purpose:     r.Purpose,
		Notes:       r.Notes,
	}
}

// reservationPatchRequest ignores id and the equipment display fields, which
// clients echo back from GET responses.
type reservationPatchRequest struct {
	EquipmentID flexID         `json:"equipment_id"`
	UserName    optionalString `json:"user_name"`
	UserEmail   optionalString `json:"user_email"`
	StartDate   optionalString `json:"start_date"`
	EndDate     optionalString `json:"end_date"`
	StartTime   optionalString `json:"start_time"`
	EndTime     optionalString `json:"end_time"`
	Purpose     optionalString `json:"purpose"`
	Notes       optionalString `json:"notes"`
	Status      optionalString `json:"status"`
}

func (r reservationPatchRequest) toPatch() application.ReservationPatch {
	return application.ReservationPatch{
		EquipmentID: r.EquipmentID.patch(),
		UserName:    r.UserName.ptr(),
		UserEmail:   r.UserEmail.ptr(),
		StartDate:   r.StartDate.ptr(),
		EndDate:     r.EndDate.ptr(),
		StartTime:   r.StartTime.ptr(),
		EndTime:     r.EndTime.ptr(),
		Purpose:     r.Purpose.ptr(),
		Notes:       r.Notes.ptr(),
		Status:      r.Status.ptr(),
	}
}

type reservationDTO struct {
	ID             int64   `json:"id"`
	EquipmentID    int64   `json:"equipment_id"`
	UserName       string  `json:"user_name"`
	UserEmail      *string `json:"user_email"`
	StartDate      string  `json:"start_date"`
	EndDate        string  `json:"end_date"`
	StartTime      *string `json:"start_time"`
	EndTime        *string `json:"end_time"`
	Purpose        *string `json:"purpose"`
	Notes          *string `json:"notes"`
	Status         string  `json:"status"`
	CreatedAt      string  `json:"created_at"`
	EquipmentName  *string `json:"equipment_name"`
	EquipmentModel *string `json:"equipment_model"`
}

func toReservationDTO(view application.ReservationView) reservationDTO {
	return reservationDTO{
		ID:             view.ID,
		EquipmentID:    view.EquipmentID,
		UserName:       view.UserName,
		UserEmail:      view.UserEmail,
		StartDate:      scheduler.FormatDate(view.StartDate),
		EndDate:        scheduler.FormatDate(view.EndDate),
		StartTime:      view.StartTime,
		EndTime:        view.EndTime,
		Purpose:        view.Purpose,
		Notes:          view.Notes,
		Status:         string(view.Status),
		CreatedAt:      formatTimestamp(view.CreatedAt),
		EquipmentName:  view.EquipmentName,
		EquipmentModel: view.EquipmentModel,
	}
}

func toReservationDTOs(views []application.ReservationView) []reservationDTO {
	dtos := make([]reservationDTO, 0, len(views))
	for _, view := range views {
		dtos = append(dtos, toReservationDTO(view))
	}
	return dtos
}
