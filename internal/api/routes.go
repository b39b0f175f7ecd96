package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"tefi/server/config"
	"tefi/server/internal/web"
)

// NewRouter builds the engine with middleware, templates and all routes.
func NewRouter(cfg *config.Config, handler *Handler, logger *logrus.Logger) (*gin.Engine, error) {
	tmpl, err := web.Templates()
	if err != nil {
		return nil, err
	}

	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(logger))
	router.SetHTMLTemplate(tmpl)

	router.Static("/static", cfg.Storage.StaticDir)
	router.Static("/uploads", cfg.Storage.UploadsDir)

	SetupRoutes(router, handler, cfg.Server.AllowedOrigins)
	return router, nil
}

func SetupRoutes(router *gin.Engine, handler *Handler, allowedOrigins []string) {
	router.GET("/", handler.Dashboard)
	router.POST("/new-property", handler.NewProperty)
	router.GET("/bud/:code", handler.BidderPage)
	router.GET("/healthz", handler.Health)

	api := router.Group("/api")
	api.Use(corsMiddleware(allowedOrigins))
	{
		api.GET("/properties", handler.GetAllProperties)
		api.GET("/properties/:code", handler.GetProperty)
	}
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	corsConfig := cors.Config{
		AllowMethods: []string{"GET", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
		MaxAge:       12 * time.Hour,
	}

	for _, origin := range allowedOrigins {
		if origin == "*" {
			corsConfig.AllowAllOrigins = true
			return cors.New(corsConfig)
		}
	}
	corsConfig.AllowOrigins = allowedOrigins
	return cors.New(corsConfig)
}
