package bootstrap

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	httpecho "github.com/mohammadpnp/catalog-import/internal/interfaces/http/echo"
	"github.com/mohammadpnp/catalog-import/internal/logger"
	"go.uber.org/zap"
)

func NewHTTPServer(c *Container, log *zap.Logger) *echo.Echo {
	server := echo.New()
	server.HideBanner = true
	server.HidePort = true

	server.Use(middleware.Recover())
	server.Use(middleware.RequestID())
	server.Use(logger.EchoRequestLogger(log))
	server.Use(middleware.BodyLimit("1M"))

	importHandler := httpecho.NewImportHandler(c.StartImport, c.CancelImport, c.GetImportJob, log)
	catalogHandler := httpecho.NewCatalogHandler(c.ImageCoverage, log)
	httpecho.RegisterRoutes(server, importHandler, catalogHandler)

	server.GET("/healthz", func(ctx echo.Context) error {
		return ctx.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	return server
}
