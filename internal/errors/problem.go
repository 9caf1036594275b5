package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/render"
)

// Pipeline sentinel errors, matched with errors.Is by MapPipelineError
// and by callers that need to branch on failure cause.
var (
	ErrEmptyDataset        = errors.New("dataset is empty")
	ErrNoColumns           = errors.New("dataset has no columns")
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrFileSizeExceeded    = errors.New("file size exceeded")
	ErrSchemaUnknown       = errors.New("schema not detected")
	ErrInsufficientData    = errors.New("insufficient data for analysis")
	ErrNoDomainsDetected   = errors.New("no analyzable domains detected")
)

// ProblemDetails implements RFC 7807 Problem Details for HTTP APIs
type ProblemDetails struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`

	// Additional fields for extensibility
	Extensions map[string]interface{} `json:"-"`
}

// Render implements the render.Renderer interface
func (pd *ProblemDetails) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, pd.Status)
	return nil
}

// MarshalJSON custom marshaler to include extensions
func (pd *ProblemDetails) MarshalJSON() ([]byte, error) {
	data := make(map[string]interface{})

	data["type"] = pd.Type
	data["title"] = pd.Title
	data["status"] = pd.Status

	if pd.Detail != "" {
		data["detail"] = pd.Detail
	}
	if pd.Instance != "" {
		data["instance"] = pd.Instance
	}

	for k, v := range pd.Extensions {
		data[k] = v
	}

	return json.Marshal(data)
}

// NewProblemDetails creates a new RFC 7807 compliant error
func NewProblemDetails(status int, problemType, title, detail, instance string) *ProblemDetails {
	return &ProblemDetails{
		Type:       problemType,
		Title:      title,
		Status:     status,
		Detail:     detail,
		Instance:   instance,
		Extensions: make(map[string]interface{}),
	}
}

// WithExtension adds an extension field to the problem details
func (pd *ProblemDetails) WithExtension(key string, value interface{}) *ProblemDetails {
	pd.Extensions[key] = value
	return pd
}

// MapPipelineError maps analysis pipeline errors to HTTP problem details
func MapPipelineError(err error, traceID string) render.Renderer {
	instance := fmt.Sprintf("/api/analyze#trace-%s", traceID)

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return NewProblemDetails(
			apiErr.StatusCode,
			"/errors/"+apiErr.ErrorCode,
			http.StatusText(apiErr.StatusCode),
			apiErr.Message,
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", apiErr.ErrorCode)
	}

	switch {
	case errors.Is(err, ErrEmptyDataset), errors.Is(err, ErrNoColumns):
		return NewProblemDetails(
			http.StatusUnprocessableEntity,
			"/errors/empty-dataset",
			"Empty Dataset",
			"The uploaded file contains no usable rows or columns.",
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "EMPTY_DATASET")

	case errors.Is(err, ErrUnsupportedFileType):
		return NewProblemDetails(
			http.StatusUnsupportedMediaType,
			"/errors/unsupported-file-type",
			"Unsupported File Type",
			"Only CSV and XLSX files are supported.",
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "UNSUPPORTED_FILE_TYPE")

	case errors.Is(err, ErrFileSizeExceeded):
		return NewProblemDetails(
			http.StatusRequestEntityTooLarge,
			"/errors/file-too-large",
			"File Too Large",
			"The uploaded file exceeds the configured size limit.",
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "FILE_TOO_LARGE")

	case errors.Is(err, ErrSchemaUnknown):
		return NewProblemDetails(
			http.StatusUnprocessableEntity,
			"/errors/schema-not-detected",
			"Schema Not Detected",
			"The file columns did not match any known business data type.",
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "SCHEMA_NOT_DETECTED")

	case errors.Is(err, ErrInsufficientData):
		return NewProblemDetails(
			http.StatusUnprocessableEntity,
			"/errors/insufficient-data",
			"Insufficient Data",
			"The file was recognized but does not carry enough of the required fields for a confident analysis.",
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "INSUFFICIENT_DATA")

	case errors.Is(err, ErrNoDomainsDetected):
		return NewProblemDetails(
			http.StatusUnprocessableEntity,
			"/errors/no-domains-detected",
			"No Analyzable Domains",
			"None of the uploaded files could be matched to a business domain with enough confidence.",
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "NO_DOMAINS_DETECTED")

	default:
		return NewProblemDetails(
			http.StatusInternalServerError,
			"/errors/internal-error",
			"Internal Server Error",
			"An unexpected error occurred while processing your request.",
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "INTERNAL_ERROR")
	}
}
