package api

import (
	"aem-import-pipeline/internal/api/handler"
	"aem-import-pipeline/pkg/router"

	httpSwagger "github.com/swaggo/http-swagger"
)

func RegisterRoutes(r *router.Router, h *handler.ImportHandler) {
	r.POST("/api/v1/imports", h.StartImport)
	r.GET("/api/v1/imports", h.ListImports)
	// More specific routes first
	r.GET("/api/v1/imports/*/report", h.GetImportReport)
	r.GET("/api/v1/imports/*/errors", h.GetImportErrors)
	// Generic import route last
	r.GET("/api/v1/imports/*", h.GetImport)

	r.POST("/api/v1/config/reload", h.ReloadConfig)

	r.GET("/swagger/*", router.HandlerFunc(httpSwagger.WrapHandler))
}
