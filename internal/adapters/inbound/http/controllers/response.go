package controllers

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	apperrors "housebalance/internal/shared_kernel/errors"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const maxRequestBodyBytes = 64 * 1024

type errorResponse struct {
	Error errorEnvelope `json:"error"`
}

type errorEnvelope struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func statusForAppError(appErr *apperrors.AppError) int {
	switch appErr.Type {
	case apperrors.TypeValidation:
		return http.StatusBadRequest
	case apperrors.TypeNotFound:
		return http.StatusNotFound
	case apperrors.TypeConflict:
		return http.StatusConflict
	case apperrors.TypeInsufficientFunds:
		return http.StatusUnprocessableEntity
	case apperrors.TypeTransferFailed:
		return http.StatusBadGateway
	case apperrors.TypeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeAppError never exposes internal error details to the client.
func writeAppError(w http.ResponseWriter, appErr *apperrors.AppError) {
	status := statusForAppError(appErr)
	envelope := errorEnvelope{
		Code:    appErr.Code,
		Message: appErr.Message,
		Details: appErr.Details,
	}
	if status == http.StatusInternalServerError {
		envelope = errorEnvelope{
			Code:    "internal_error",
			Message: "an unexpected error occurred",
		}
	}

	writeJSON(w, status, errorResponse{Error: envelope})
}

func logRequestError(logger *zap.Logger, r *http.Request, route string, appErr *apperrors.AppError) {
	level := zapcore.WarnLevel
	if statusForAppError(appErr) >= http.StatusInternalServerError {
		level = zapcore.ErrorLevel
	}
	logger.Check(level, "request error").Write(
		zap.String("path", route),
		zap.String("method", r.Method),
		zap.String("type", string(appErr.Type)),
		zap.String("code", appErr.Code),
		zap.String("message", appErr.Message),
		zap.Any("details", appErr.Details),
	)
}

func decodeJSONBody(w http.ResponseWriter, r *http.Request, payload any) *apperrors.AppError {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes))
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(payload); err != nil {
		return apperrors.NewValidation(
			"invalid_request",
			"request body must be valid JSON",
			map[string]any{"error": err.Error()},
		)
	}

	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return apperrors.NewValidation(
			"invalid_request",
			"request body must contain a single JSON object",
			nil,
		)
	}

	return nil
}

// decimalInput accepts an amount as a JSON string or a JSON number and keeps
// its literal text, so no precision is lost to float64.
type decimalInput string

func (d *decimalInput) UnmarshalJSON(raw []byte) error {
	text := strings.TrimSpace(string(raw))
	if text == "null" {
		*d = ""
		return nil
	}
	if strings.HasPrefix(text, `"`) {
		var value string
		if err := json.Unmarshal(raw, &value); err != nil {
			return err
		}
		*d = decimalInput(value)
		return nil
	}
	var number json.Number
	if err := json.Unmarshal(raw, &number); err != nil {
		return err
	}
	*d = decimalInput(number.String())
	return nil
}
