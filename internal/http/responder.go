package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/lab-inventory/internal/application"
)

const messageInternalError = "Internal server error"

var (
	errBadRequestBody = errors.New("Invalid request body")
	errInvalidID      = errors.New("Invalid id")
	errInvalidQuery   = errors.New("Invalid query parameters")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := statusMessage(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" && status < http.StatusInternalServerError {
			message = msg
		}
		r.loggerFor(ctx).WarnContext(ctx, "request failed", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{Error: message})
}

func (r responder) writeSuccess(ctx context.Context, w http.ResponseWriter) {
	r.writeJSON(ctx, w, http.StatusOK, successResponse{Success: true})
}

// handleServiceError maps service errors to statuses. notFound is the message used
// for ErrNotFound, e.g. "Reservation not found".
func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error, notFound string) {
	if err == nil {
		r.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Error: messageInternalError})
		return
	}

	var conflict *application.ConflictError
	if errors.As(err, &conflict) {
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			Error:          application.MessageConflict,
			ConflictingIDs: conflict.ConflictingIDs,
		})
		return
	}

	var vErr *application.ValidationError
	if errors.As(err, &vErr) {
		r.writeJSON(ctx, w, http.StatusBadRequest, errorResponse{
			Error:  vErr.Error(),
			Fields: vErr.FieldErrors,
		})
		return
	}

	switch {
	case errors.Is(err, application.ErrNotFound):
		if notFound == "" {
			notFound = statusMessage(http.StatusNotFound)
		}
		r.writeJSON(ctx, w, http.StatusNotFound, errorResponse{Error: notFound})
	case errors.Is(err, application.ErrInUse):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{Error: "Resource is still referenced and cannot be deleted"})
	case errors.Is(err, application.ErrConflict):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{Error: application.MessageConflict})
	default:
		r.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Error: messageInternalError})
	}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

func statusMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "Bad request"
	case http.StatusNotFound:
		return "Not found"
	case http.StatusMethodNotAllowed:
		return "Method not allowed"
	case http.StatusConflict:
		return "Conflict"
	case http.StatusServiceUnavailable:
		return "Service unavailable"
	default:
		return messageInternalError
	}
}

type errorResponse struct {
	Error          string            `json:"error"`
	Fields         map[string]string `json:"fields,omitempty"`
	ConflictingIDs []int64           `json:"conflicting_ids,omitempty"`
}

type successResponse struct {
	Success bool `json:"success"`
}
