package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	apierrors "erplens/internal/errors"
	"erplens/pkg/contracts/domain"
)

// RequestValidator validates request payloads with go-playground tags.
// A single instance is shared by all handlers; validator.Validate is
// safe for concurrent use.
type RequestValidator struct {
	validate *validator.Validate
	logger   *slog.Logger
}

// NewRequestValidator registers the custom tag validators used by the
// analyze endpoints.
func NewRequestValidator(logger *slog.Logger) *RequestValidator {
	if logger == nil {
		logger = slog.Default()
	}
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterValidation("datatype", isDataType)
	v.RegisterValidation("upload_filename", isUploadFilename)

	return &RequestValidator{
		validate: v,
		logger:   logger.With(slog.String("component", "request_validator")),
	}
}

// ValidateStruct checks payload against its validate tags and returns a
// field-keyed validation error.
func (rv *RequestValidator) ValidateStruct(payload interface{}) error {
	err := rv.validate.Struct(payload)
	if err == nil {
		return nil
	}
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	messages := make([]string, 0, len(validationErrors))
	for _, fieldErr := range validationErrors {
		messages = append(messages, formatFieldError(fieldErr))
	}
	return apierrors.NewWithDetails(http.StatusBadRequest, "VALIDATION_FAILED",
		"Request validation failed", messages)
}

func formatFieldError(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", err.Field())
	case "min":
		return fmt.Sprintf("%s must have at least %s items", err.Field(), err.Param())
	case "max":
		return fmt.Sprintf("%s must have at most %s items", err.Field(), err.Param())
	case "datatype":
		return fmt.Sprintf("%s must be one of: financial, manufacturing, inventory, sales, purchase", err.Field())
	case "upload_filename":
		return fmt.Sprintf("%s must be a plain .csv or .xlsx filename", err.Field())
	default:
		return fmt.Sprintf("%s failed %s validation", err.Field(), err.Tag())
	}
}

// isDataType accepts empty (auto-detect) or a known domain wire name
func isDataType(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	dt, err := domain.ParseDataType(value)
	return err == nil && dt != domain.Unknown
}

// isUploadFilename rejects path traversal and unknown extensions
func isUploadFilename(fl validator.FieldLevel) bool {
	name := fl.Field().String()
	if name == "" || name != filepath.Base(name) || strings.Contains(name, "..") {
		return false
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".xlsx":
		return true
	}
	return false
}

// ContentTypeValidator rejects requests whose Content-Type matches none
// of the allowed prefixes.
func ContentTypeValidator(contentTypes ...string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead {
				next.ServeHTTP(w, r)
				return
			}
			contentType := r.Header.Get("Content-Type")
			for _, allowed := range contentTypes {
				if strings.HasPrefix(contentType, allowed) {
					next.ServeHTTP(w, r)
					return
				}
			}
			problem := apierrors.NewProblemDetails(
				http.StatusUnsupportedMediaType,
				"/errors/unsupported-media-type",
				"Unsupported Media Type",
				fmt.Sprintf("Content-Type %q is not supported by this endpoint", contentType),
				r.URL.Path,
			)
			render.Render(w, r, problem)
		})
	}
}
