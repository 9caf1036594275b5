package errors

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestHandler() *ErrorHandler {
	return NewErrorHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), false)
}

func TestErrorToProblem(t *testing.T) {
	h := newTestHandler()
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", nil)

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{"context deadline", context.DeadlineExceeded, http.StatusGatewayTimeout, TypeTimeout},
		{"schema unknown", ErrSchemaUnknown, http.StatusUnprocessableEntity, TypeSchemaNotDetected},
		{"insufficient data", ErrInsufficientData, http.StatusUnprocessableEntity, TypeInsufficientData},
		{"empty dataset", fmt.Errorf("load file: %w", ErrEmptyDataset), http.StatusUnprocessableEntity, TypeEmptyDataset},
		{"unsupported file", ErrUnsupportedFileType, http.StatusUnsupportedMediaType, TypeUnsupportedFormat},
		{"file too large", ErrFileSizeExceeded, http.StatusRequestEntityTooLarge, TypePayloadTooLarge},
		{"api error", ErrAnalysisFailed, http.StatusInternalServerError, TypeAnalysisFailed},
		{"not found message", fmt.Errorf("dataset not found"), http.StatusNotFound, TypeNotFound},
		{"unknown error", fmt.Errorf("something odd"), http.StatusInternalServerError, TypeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			problem := h.ErrorToProblem(tt.err, req)
			assert.Equal(t, tt.wantStatus, problem.Status)
			assert.Equal(t, tt.wantType, problem.Type)
		})
	}
}

func TestHandleError(t *testing.T) {
	h := newTestHandler()
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", nil)
	rec := httptest.NewRecorder()

	h.HandleError(rec, req, ErrSchemaUnknown)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Schema Not Detected")
}

func TestHandleErrorNil(t *testing.T) {
	h := newTestHandler()
	rec := httptest.NewRecorder()

	h.HandleError(rec, httptest.NewRequest(http.MethodGet, "/", nil), nil)

	// nothing written for nil error
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestNotFoundHandler(t *testing.T) {
	h := newTestHandler()
	rec := httptest.NewRecorder()

	h.NotFound(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Not Found")
}
