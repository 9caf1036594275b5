package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"erplens/internal/dataset"
	apierrors "erplens/internal/errors"
	"erplens/internal/middleware"
	"erplens/internal/services"
	"erplens/pkg/contracts/domain"
)

// multipartMemoryLimit bounds the in-memory part of multipart parsing;
// larger files spill to temp storage.
const multipartMemoryLimit = 32 << 20

// AnalyzeHandler serves the single-file and multi-file analysis endpoints
type AnalyzeHandler struct {
	service      AnalysisService
	loader       *dataset.Loader
	validator    *middleware.RequestValidator
	errorHandler *apierrors.ErrorHandler
	logger       *slog.Logger
}

// NewAnalyzeHandler creates the analyze handler
func NewAnalyzeHandler(service AnalysisService, loader *dataset.Loader, logger *slog.Logger) *AnalyzeHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnalyzeHandler{
		service:      service,
		loader:       loader,
		validator:    middleware.NewRequestValidator(logger),
		errorHandler: apierrors.NewErrorHandler(logger, false),
		logger:       logger.With(slog.String("component", "analyze_handler")),
	}
}

// Routes returns the analyze routes
func (h *AnalyzeHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Post("/analyze", h.Analyze)
	r.Post("/analyze/multi", h.AnalyzeMulti)

	return r
}

// analyzeRequest is the JSON body of POST /api/analyze. DataType is
// optional; empty means auto-detect.
type analyzeRequest struct {
	Columns  []string        `json:"columns" validate:"required,min=1"`
	Rows     [][]interface{} `json:"rows" validate:"required,min=1"`
	DataType string          `json:"data_type" validate:"datatype"`
	Source   string          `json:"source"`
}

// Analyze handles POST /api/analyze. The body is either a JSON record
// set or a multipart form with a single "file" part.
func (h *AnalyzeHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var (
		d        *dataset.Dataset
		source   string
		declared domain.DataType
		err      error
	)

	if isMultipart(r) {
		d, source, declared, err = h.datasetFromUpload(r)
	} else {
		d, source, declared, err = h.datasetFromJSON(r)
	}
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	report, err := h.service.Analyze(r.Context(), d, source, declared)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, report)
}

// AnalyzeMulti handles POST /api/analyze/multi: a multipart form with
// one file per domain. The domain is taken from the form field name when
// it is a known wire name, otherwise inferred from the filename. Files
// that match no domain are skipped, mirroring the orchestrator's gate.
func (h *AnalyzeHandler) AnalyzeMulti(w http.ResponseWriter, r *http.Request) {
	if !isMultipart(r) {
		h.renderError(w, r, apierrors.ErrValidation("body", "multipart/form-data body with one file per domain is required"))
		return
	}
	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		h.renderError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}

	files := make(map[string]*dataset.Dataset)
	var skipped []string
	for field, headers := range r.MultipartForm.File {
		for _, header := range headers {
			dt := domainForUpload(field, header.Filename)
			if dt == domain.Unknown {
				h.logger.WarnContext(r.Context(), "file matches no domain, skipping",
					slog.String("field", field),
					slog.String("filename", header.Filename))
				skipped = append(skipped, header.Filename)
				continue
			}

			d, err := h.loadPart(header)
			if err != nil {
				h.renderError(w, r, err)
				return
			}
			files[dt.String()] = d
		}
	}

	report := h.service.AnalyzeMulti(r.Context(), files)

	render.Status(r, http.StatusOK)
	if len(skipped) > 0 {
		render.JSON(w, r, struct {
			domain.Report
			SkippedFiles []string `json:"skipped_files"`
		}{Report: report, SkippedFiles: skipped})
		return
	}
	render.JSON(w, r, report)
}

func (h *AnalyzeHandler) datasetFromJSON(r *http.Request) (*dataset.Dataset, string, domain.DataType, error) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, "", domain.Unknown, apierrors.InvalidRequestWithError(err)
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return nil, "", domain.Unknown, err
	}

	declared, _ := domain.ParseDataType(req.DataType)
	source := req.Source
	if source == "" {
		source = "inline"
	}
	return dataset.New(req.Columns, req.Rows), source, declared, nil
}

func (h *AnalyzeHandler) datasetFromUpload(r *http.Request) (*dataset.Dataset, string, domain.DataType, error) {
	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		return nil, "", domain.Unknown, apierrors.InvalidRequestWithError(err)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, "", domain.Unknown, apierrors.ErrValidation("file", "a csv or xlsx file part named 'file' is required")
	}
	defer file.Close()

	meta := struct {
		Filename string `validate:"upload_filename"`
		DataType string `validate:"datatype"`
	}{Filename: header.Filename, DataType: r.FormValue("data_type")}
	if err := h.validator.ValidateStruct(meta); err != nil {
		return nil, "", domain.Unknown, err
	}

	d, err := h.loader.LoadReader(file, filepath.Ext(header.Filename))
	if err != nil {
		return nil, "", domain.Unknown, err
	}
	declared, _ := domain.ParseDataType(meta.DataType)
	return d, header.Filename, declared, nil
}

func (h *AnalyzeHandler) loadPart(header *multipart.FileHeader) (*dataset.Dataset, error) {
	meta := struct {
		Filename string `validate:"upload_filename"`
	}{Filename: header.Filename}
	if err := h.validator.ValidateStruct(meta); err != nil {
		return nil, err
	}

	file, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return h.loader.LoadReader(file, filepath.Ext(header.Filename))
}

// renderError maps pipeline errors to problem documents. The unusable
// data case carries its quality report so clients can show the blocking
// issues.
func (h *AnalyzeHandler) renderError(w http.ResponseWriter, r *http.Request, err error) {
	var unusable *services.UnusableDataError
	if errors.As(err, &unusable) {
		problem := apierrors.NewProblemDetails(
			http.StatusUnprocessableEntity,
			"/errors/data-quality",
			"Data Not Usable",
			unusable.Error(),
			r.URL.Path,
		).WithExtension("blocking_issues", unusable.Report.BlockingIssues).
			WithExtension("quality_report", unusable.Report)
		render.Render(w, r, problem)
		return
	}
	h.errorHandler.HandleError(w, r, err)
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}

// domainForUpload resolves the target domain from the form field name
// first, then from the filename stem.
func domainForUpload(field, filename string) domain.DataType {
	if dt, err := domain.ParseDataType(field); err == nil && dt != domain.Unknown {
		return dt
	}
	stem := strings.ToLower(strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename)))
	for _, dt := range domain.AllDataTypes {
		if strings.Contains(stem, dt.String()) {
			return dt
		}
	}
	return domain.Unknown
}
