package echo

import (
	"net/http"

	"github.com/labstack/echo/v4"
	admin "github.com/mohammadpnp/catalog-import/internal/application/catalogadmin"
	"go.uber.org/zap"
)

type CatalogHandler struct {
	coverage admin.ImageCoverage
	logger   *zap.Logger
}

func NewCatalogHandler(coverage admin.ImageCoverage, logger *zap.Logger) *CatalogHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogHandler{coverage: coverage, logger: logger}
}

func (h *CatalogHandler) ImageCoverage(c echo.Context) error {
	out, err := h.coverage.Execute(c.Request().Context())
	if err != nil {
		h.logger.Error("image coverage failed", zap.Error(err))
		return writeError(c, http.StatusInternalServerError, "internal_error", "failed to compute image coverage")
	}
	return c.JSON(http.StatusOK, apiResponse{Data: out})
}
