package echo

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	app "github.com/mohammadpnp/catalog-import/internal/application/catalogimport"
	"github.com/mohammadpnp/catalog-import/internal/domain/catalog"
	"go.uber.org/zap"
)

type ImportHandler struct {
	start  app.StartImport
	cancel app.CancelImport
	get    app.GetImportJob
	logger *zap.Logger
}

type startImportRequest struct {
	SourcePath          string `json:"source_path"`
	OriginalFilename    string `json:"original_filename"`
	BatchSize           int    `json:"batch_size"`
	Delimiter           string `json:"delimiter"`
	Encoding            string `json:"encoding"`
	DisableTransactions bool   `json:"disable_transactions"`
	ClearExisting       bool   `json:"clear_existing"`
	SkipRows            int64  `json:"skip_rows"`
	TestLines           int64  `json:"test_lines"`
	Mode                string `json:"mode"`
	Sanitize            string `json:"sanitize"`
}

func (r startImportRequest) options() catalog.ImportOptions {
	return catalog.ImportOptions{
		BatchSize:           r.BatchSize,
		Delimiter:           r.Delimiter,
		Encoding:            r.Encoding,
		DisableTransactions: r.DisableTransactions,
		ClearExisting:       r.ClearExisting,
		SkipRows:            r.SkipRows,
		TestLines:           r.TestLines,
		Mode:                catalog.ImportMode(r.Mode),
		Sanitize:            catalog.SanitizeMode(r.Sanitize),
	}
}

func NewImportHandler(start app.StartImport, cancel app.CancelImport, get app.GetImportJob, logger *zap.Logger) *ImportHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImportHandler{start: start, cancel: cancel, get: get, logger: logger}
}

func (h *ImportHandler) StartCatalogImport(c echo.Context) error {
	var req startImportRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, http.StatusBadRequest, "bad_request", "invalid request body")
	}

	out, err := h.start.Execute(c.Request().Context(), app.StartImportInput{
		SourcePath:       req.SourcePath,
		OriginalFilename: req.OriginalFilename,
		Options:          req.options(),
	})
	if err != nil {
		switch {
		case errors.Is(err, catalog.ErrImportAlreadyRunning):
			return c.JSON(http.StatusConflict, apiResponse{
				Data:  out,
				Error: &errorBody{Code: "import_running", Message: "another import is already processing"},
			})
		case errors.Is(err, app.ErrInvalidImportSource):
			return writeError(c, http.StatusBadRequest, "invalid_source", err.Error())
		case isOptionError(err):
			return writeError(c, http.StatusBadRequest, "invalid_options", err.Error())
		}
		h.logger.Error("start import failed", zap.Error(err))
		return writeError(c, http.StatusInternalServerError, "internal_error", "failed to start import job")
	}

	return c.JSON(http.StatusAccepted, apiResponse{Data: out})
}

func (h *ImportHandler) CancelImport(c echo.Context) error {
	out, err := h.cancel.Execute(c.Request().Context(), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, catalog.ErrJobNotFound):
			return writeError(c, http.StatusNotFound, "not_found", "import job not found")
		case errors.Is(err, app.ErrJobAlreadyFinished):
			return c.JSON(http.StatusConflict, apiResponse{
				Data:  out,
				Error: &errorBody{Code: "already_finished", Message: "import job already finished"},
			})
		}
		h.logger.Error("cancel import failed", zap.String("job_id", c.Param("id")), zap.Error(err))
		return writeError(c, http.StatusInternalServerError, "internal_error", "failed to cancel import job")
	}

	return c.JSON(http.StatusAccepted, apiResponse{Data: out})
}

func (h *ImportHandler) GetImportJob(c echo.Context) error {
	out, err := h.get.Execute(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, catalog.ErrJobNotFound) {
			return writeError(c, http.StatusNotFound, "not_found", "import job not found")
		}
		h.logger.Error("get import job failed", zap.String("job_id", c.Param("id")), zap.Error(err))
		return writeError(c, http.StatusInternalServerError, "internal_error", "failed to get import job")
	}

	return c.JSON(http.StatusOK, apiResponse{Data: out})
}

func isOptionError(err error) bool {
	for _, target := range []error{
		catalog.ErrInvalidBatchSize,
		catalog.ErrInvalidImportMode,
		catalog.ErrInvalidSanitizeMode,
		catalog.ErrInvalidRowWindow,
		catalog.ErrInvalidDelimiter,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
