package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/getsentry/sentry-go"

	"keuangan/internal/core"
	"keuangan/internal/log"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// JSONResponseBuilder provides a fluent API for JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	headers    map[string]string
	payload    any
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Header sets a response header.
func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value to encode.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.payload = v
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	if b.payload != nil {
		_ = json.NewEncoder(w).Encode(b.payload)
	}
}

func writeData(w http.ResponseWriter, v any) {
	NewJSONResponse().Body(map[string]any{"data": v}).Write(w)
}

// ErrorResponse creates a standard error response.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).Body(ErrorBody{Error: message})
}

// NotFoundError creates a 404 Not Found error response.
func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

// BadRequestError creates a 400 Bad Request error response.
func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

// writeError maps domain errors onto status codes. Client errors are
// logged with their error type; unknown errors are storage failures:
// logged, reported to Sentry and returned as 500 with the raw message.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var insufficient *core.InsufficientFundsError
	var maxBytes *http.MaxBytesError

	switch {
	case errors.As(err, &insufficient):
		logRejected(r, slog.LevelWarn, op, log.ErrorTypeInsufficientFunds, err)
		NewJSONResponse().
			Status(http.StatusUnprocessableEntity).
			Body(ErrorBody{Error: insufficient.Error(), Code: insufficient.Code()}).
			Write(w)
	case errors.Is(err, core.ErrInsufficientFunds):
		logRejected(r, slog.LevelWarn, op, log.ErrorTypeInsufficientFunds, err)
		NewJSONResponse().
			Status(http.StatusUnprocessableEntity).
			Body(ErrorBody{Error: err.Error(), Code: core.InsufficientFundsCode}).
			Write(w)
	case errors.As(err, &maxBytes):
		logRejected(r, slog.LevelWarn, op, log.ErrorTypeValidation, err)
		ErrorResponse(http.StatusRequestEntityTooLarge, "Request body too large").Write(w)
	case core.IsValidation(err):
		logRejected(r, slog.LevelDebug, op, log.ErrorTypeValidation, err)
		BadRequestError(err.Error()).Write(w)
	case errors.Is(err, core.ErrNotFound):
		logRejected(r, slog.LevelDebug, op, log.ErrorTypeNotFound, err)
		NotFoundError("Not found").Write(w)
	case errors.Is(err, core.ErrTypeInUse):
		logRejected(r, slog.LevelWarn, op, log.ErrorTypeConflict, err)
		ErrorResponse(http.StatusConflict, err.Error()).Write(w)
	default:
		log.FromContext(r.Context()).LogError(r.Context(), "Request failed", err, op,
			log.NewFields().WithErrorType(log.ErrorTypeDatabase))
		if hub := sentry.GetHubFromContext(r.Context()); hub != nil {
			hub.CaptureException(err)
		} else {
			sentry.CaptureException(err)
		}
		ErrorResponse(http.StatusInternalServerError, err.Error()).Write(w)
	}
}

func logRejected(r *http.Request, level slog.Level, op, errorType string, err error) {
	log.FromContext(r.Context()).Log(r.Context(), level, "Request rejected",
		log.NewFields().WithOperation(op).WithErrorType(errorType).WithError(err).ToSlice()...)
}
