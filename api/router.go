package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"rummage/api/handlers"
	"rummage/config"
	"rummage/db/kvdb"
	"rummage/db/searchdb"
	"rummage/logger"
	"rummage/ui"
	"rummage/validation"
)

func setupRoutes(ctx context.Context, router *gin.Engine, logger logger.Logger, cfg *config.Config, searchDB searchdb.DB, kvDB kvdb.DB, validator *validation.Validator) {
	router.GET("/health", health())

	// Serve static UI files
	router.StaticFS("/ui", http.FS(ui.Files))
	router.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/ui/index.html")
	})

	handlers.SetupIndex(ctx, router, logger, searchDB, kvDB, validator)
	handlers.SetupSearch(router, logger, searchDB, validator, cfg.GetResultLimit())

}

func health() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	}
}

func newRouter() *gin.Engine {
	router := gin.New()
	router.UseRawPath = true
	router.Use(_CORSMiddleware())
	router.Use(gin.Recovery())

	return router
}
