package http

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"idqcli/internal/catalog"
	"idqcli/internal/config"
	"idqcli/internal/errors"
	"idqcli/internal/refdata"
	"idqcli/internal/services"
)

var validate = validator.New()

// RunHandler handles upload, run control and artifact download requests.
type RunHandler struct {
	service *services.RunService
	cfg     *config.Config
	logger  *slog.Logger
}

// NewRunHandler creates a run handler.
func NewRunHandler(service *services.RunService, cfg *config.Config, logger *slog.Logger) *RunHandler {
	if service == nil {
		panic("service cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RunHandler{
		service: service,
		cfg:     cfg,
		logger:  logger.With(slog.String("handler", "run")),
	}
}

// Routes returns the router for upload and run endpoints.
func (h *RunHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/uploads/catalog", h.UploadCatalog)
	r.Post("/uploads/barcodes", h.UploadBarcodes)
	r.Get("/uploads", h.InputStatus)
	r.Post("/runs", h.StartRun)
	r.Get("/runs", h.ListRuns)
	r.Get("/runs/{runID}", h.RunStatus)
	r.Get("/runs/{runID}/workbook", h.DownloadWorkbook)
	r.Get("/runs/{runID}/anomalies", h.DownloadAnomalies)
	return r
}

// UploadCatalog handles POST /api/uploads/catalog. The body is a
// multipart form with the catalog workbook in the "file" field.
func (h *RunHandler) UploadCatalog(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.Server.MaxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		render.Render(w, r, errors.InvalidRequestWithError(fmt.Errorf("missing file field: %w", err)))
		return
	}
	defer file.Close()

	records, err := catalog.ReadFrom(file)
	if err != nil {
		h.logger.WarnContext(r.Context(), "catalog upload rejected",
			slog.String("file", header.Filename),
			slog.String("error", err.Error()))
		render.Render(w, r, errors.ErrValidation("file", err.Error()))
		return
	}

	h.service.SetCatalog(header.Filename, records)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, map[string]interface{}{
		"file":    header.Filename,
		"records": len(records),
	})
}

// UploadBarcodes handles POST /api/uploads/barcodes. The body is a
// multipart form with the barcode CSV in the "file" field.
func (h *RunHandler) UploadBarcodes(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.Server.MaxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		render.Render(w, r, errors.InvalidRequestWithError(fmt.Errorf("missing file field: %w", err)))
		return
	}
	defer file.Close()

	table, err := refdata.ParseBarcodes(file, h.cfg.References.BarcodeHeaderRow)
	if err != nil {
		h.logger.WarnContext(r.Context(), "barcode upload rejected",
			slog.String("file", header.Filename),
			slog.String("error", err.Error()))
		render.Render(w, r, errors.ErrValidation("file", err.Error()))
		return
	}

	h.service.SetBarcodes(header.Filename, table)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, map[string]interface{}{
		"file":    header.Filename,
		"entries": len(table),
	})
}

// InputStatus handles GET /api/uploads.
func (h *RunHandler) InputStatus(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.Inputs())
}

// StartRunRequest is the optional body for POST /api/runs. An empty
// markets list runs every market present in the catalog.
type StartRunRequest struct {
	Markets []string `json:"markets,omitempty" validate:"omitempty,min=1,dive,len=2,uppercase"`
}

// Bind implements render.Binder.
func (req *StartRunRequest) Bind(r *http.Request) error {
	return validate.Struct(req)
}

// StartRun handles POST /api/runs.
func (h *RunHandler) StartRun(w http.ResponseWriter, r *http.Request) {
	req := &StartRunRequest{}
	if r.ContentLength > 0 {
		if err := render.Bind(r, req); err != nil {
			render.Render(w, r, errors.InvalidRequestWithError(err))
			return
		}
	}
	for _, market := range req.Markets {
		if _, ok := h.cfg.Marketplace.Markets[market]; !ok {
			render.Render(w, r, errors.ErrValidation("markets", fmt.Sprintf("unknown market %q", market)))
			return
		}
	}

	runID, err := h.service.StartRun(r.Context(), req.Markets)
	if err != nil {
		render.Render(w, r, startRunError(err))
		return
	}

	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, map[string]string{"run_id": runID})
}

func startRunError(err error) *errors.APIError {
	switch {
	case stderrors.Is(err, services.ErrNoCatalog):
		return errors.ErrValidation("catalog", err.Error())
	case stderrors.Is(err, services.ErrNoBarcodes):
		return errors.ErrValidation("barcodes", err.Error())
	case stderrors.Is(err, services.ErrNoRecords):
		return errors.ErrValidation("markets", err.Error())
	case stderrors.Is(err, services.ErrRunActive):
		return errors.ErrRunInProgress
	default:
		return errors.RunFailedError(err)
	}
}

// ListRuns handles GET /api/runs.
func (h *RunHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.List())
}

// RunStatus handles GET /api/runs/{runID}.
func (h *RunHandler) RunStatus(w http.ResponseWriter, r *http.Request) {
	state, err := h.service.Status(chi.URLParam(r, "runID"))
	if err != nil {
		render.Render(w, r, errors.ErrRunNotFound)
		return
	}
	render.JSON(w, r, state)
}

// DownloadWorkbook handles GET /api/runs/{runID}/workbook.
func (h *RunHandler) DownloadWorkbook(w http.ResponseWriter, r *http.Request) {
	h.serveArtifact(w, r, h.service.WorkbookPath,
		config.ResultWorkbookName,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
}

// DownloadAnomalies handles GET /api/runs/{runID}/anomalies.
func (h *RunHandler) DownloadAnomalies(w http.ResponseWriter, r *http.Request) {
	h.serveArtifact(w, r, h.service.AnomalyPath, config.AnomalyLogName, "text/csv")
}

func (h *RunHandler) serveArtifact(w http.ResponseWriter, r *http.Request, lookup func(string) (string, error), name, contentType string) {
	path, err := lookup(chi.URLParam(r, "runID"))
	switch {
	case stderrors.Is(err, services.ErrRunUnknown):
		render.Render(w, r, errors.ErrRunNotFound)
		return
	case stderrors.Is(err, services.ErrRunUnfinished):
		render.Render(w, r, errors.ErrRunNotFinished)
		return
	case err != nil:
		render.Render(w, r, errors.ErrInternalServer)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	http.ServeFile(w, r, path)
}
