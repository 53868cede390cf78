package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/nachitzaid/food4u/internal/auth"
	"github.com/nachitzaid/food4u/internal/service"
	"github.com/nachitzaid/food4u/pkg/logger"
)

type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" || tag == "-" {
			return f.Name
		}
		return tag
	})
	return v
}

// requestError is a client mistake detected before reaching a service.
type requestError struct {
	status  int
	code    string
	message string
	details map[string]string
}

func (e *requestError) Error() string { return e.message }

// decodeJSON reads at most limit bytes of JSON into dest and validates it.
func decodeJSON(w http.ResponseWriter, r *http.Request, dest any, limit int64) error {
	body := http.MaxBytesReader(w, r.Body, limit)
	defer func() {
		io.Copy(io.Discard, body)
	}()

	decoder := json.NewDecoder(body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return &requestError{status: http.StatusRequestEntityTooLarge, code: "body_too_large", message: "request body too large"}
		}
		return &requestError{
			status:  http.StatusBadRequest,
			code:    "invalid_request",
			message: "invalid JSON body",
			details: map[string]string{"body": err.Error()},
		}
	}

	if err := validate.Struct(dest); err != nil {
		return validationError(err)
	}
	return nil
}

func validationError(err error) *requestError {
	details := map[string]string{}
	var errs validator.ValidationErrors
	if errors.As(err, &errs) {
		for _, fe := range errs {
			details[fe.Field()] = validationMessage(fe)
		}
	}
	return &requestError{
		status:  http.StatusBadRequest,
		code:    "validation_failed",
		message: "validation failed",
		details: details,
	}
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min", "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max", "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "gtfield":
		return fmt.Sprintf("must be after %s", fe.Param())
	case "excludesall":
		return fmt.Sprintf("must not contain any of %q", fe.Param())
	}
	return "is invalid"
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// respondServiceError maps domain and service errors to HTTP statuses.
// Anything unrecognized is logged and reported as an internal error.
func respondServiceError(w http.ResponseWriter, r *http.Request, log *logger.Logger, err error) {
	var reqErr *requestError
	if errors.As(err, &reqErr) {
		respondJSON(w, reqErr.status, ErrorResponse{Error: reqErr.message, Code: reqErr.code, Details: reqErr.details})
		return
	}

	var (
		status int
		code   string
	)
	switch {
	case errors.Is(err, service.ErrMenuItemNotFound),
		errors.Is(err, service.ErrDealNotFound),
		errors.Is(err, service.ErrOrderNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, service.ErrInvalidSelection):
		status, code = http.StatusUnprocessableEntity, "invalid_selection"
	case errors.Is(err, service.ErrEmptyCart):
		status, code = http.StatusConflict, "empty_cart"
	case errors.Is(err, service.ErrInvalidTransition):
		status, code = http.StatusConflict, "invalid_transition"
	case errors.Is(err, service.ErrInvalidImage):
		status, code = http.StatusUnsupportedMediaType, "unsupported_media_type"
	case errors.Is(err, service.ErrInvalidDeal):
		status, code = http.StatusBadRequest, "invalid_deal"
	case errors.Is(err, service.ErrUploadsDisabled):
		status, code = http.StatusServiceUnavailable, "uploads_disabled"
	case errors.Is(err, auth.ErrMissingToken), errors.Is(err, auth.ErrInvalidToken):
		status, code = http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, context.DeadlineExceeded):
		status, code = http.StatusGatewayTimeout, "timeout"
	default:
		log.Error(r.Context(), "request failed", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	respondError(w, status, code, err.Error())
}
