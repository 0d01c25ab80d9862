package echo

import e "github.com/labstack/echo/v4"

func RegisterRoutes(server *e.Echo, importHandler *ImportHandler, catalogHandler *CatalogHandler) {
	imports := server.Group("/api/v1/imports")
	imports.POST("/catalog", importHandler.StartCatalogImport)
	imports.GET("/:id", importHandler.GetImportJob)
	imports.POST("/:id/cancel", importHandler.CancelImport)

	server.GET("/api/v1/catalog/images/coverage", catalogHandler.ImageCoverage)
}
