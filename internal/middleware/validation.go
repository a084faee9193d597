package middleware

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	apierrors "fincast/internal/errors"
)

// QueryParamValidator validates query and path parameters with validator tags
// and writes a 400 problem when one is rejected
type QueryParamValidator struct {
	validate     *validator.Validate
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewQueryParamValidator creates a new query parameter validator
func NewQueryParamValidator(logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *QueryParamValidator {
	return &QueryParamValidator{
		validate:     validator.New(),
		logger:       logger.With(slog.String("component", "query_validator")),
		errorHandler: errorHandler,
	}
}

// Int reads an integer query parameter, applying tag (e.g. "min=1900,max=2100")
func (v *QueryParamValidator) Int(w http.ResponseWriter, r *http.Request, param, tag string, defaultValue int) (int, bool) {
	return v.intValue(w, r, param, r.URL.Query().Get(param), tag, defaultValue)
}

// PathInt reads an integer chi URL parameter
func (v *QueryParamValidator) PathInt(w http.ResponseWriter, r *http.Request, param, tag string) (int, bool) {
	raw := chi.URLParam(r, param)
	if raw == "" {
		v.reject(w, r, param, fmt.Sprintf("%s is required", param))
		return 0, false
	}
	return v.intValue(w, r, param, raw, tag, 0)
}

func (v *QueryParamValidator) intValue(w http.ResponseWriter, r *http.Request, param, raw, tag string, defaultValue int) (int, bool) {
	if raw == "" {
		return defaultValue, true
	}

	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		v.reject(w, r, param, fmt.Sprintf("%s must be a valid integer", param))
		return 0, false
	}
	if err := v.validate.Var(n, tag); err != nil {
		v.reject(w, r, param, formatValidationError(param, err))
		return 0, false
	}
	return n, true
}

// Enum reads a string query parameter that must be one of allowed
func (v *QueryParamValidator) Enum(w http.ResponseWriter, r *http.Request, param string, allowed []string, defaultValue string) (string, bool) {
	value := r.URL.Query().Get(param)
	if value == "" {
		return defaultValue, true
	}

	if err := v.validate.Var(value, "oneof="+strings.Join(allowed, " ")); err != nil {
		v.reject(w, r, param, formatValidationError(param, err))
		return "", false
	}
	return value, true
}

// PathCode reads an identifier-like chi URL parameter
func (v *QueryParamValidator) PathCode(w http.ResponseWriter, r *http.Request, param string) (string, bool) {
	value := strings.TrimSpace(chi.URLParam(r, param))
	if err := v.validate.Var(value, "required,max=64,excludesall=/\\"); err != nil {
		v.reject(w, r, param, formatValidationError(param, err))
		return "", false
	}
	return value, true
}

func (v *QueryParamValidator) reject(w http.ResponseWriter, r *http.Request, param, message string) {
	v.logger.DebugContext(r.Context(), "parameter rejected",
		slog.String("param", param),
		slog.String("reason", message))
	v.errorHandler.HandleError(w, r, apierrors.ErrValidation(param, message))
}

// formatValidationError formats validation error messages
func formatValidationError(field string, err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Sprintf("%s is invalid", field)
	}

	fe := verrs[0]
	param := fe.Param()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", field, param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(param, " ", ", "))
	case "excludesall":
		return fmt.Sprintf("%s contains invalid characters", field)
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}
