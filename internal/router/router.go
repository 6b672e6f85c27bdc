package router

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/readmegen/backend/config"
	"github.com/readmegen/backend/internal/handler"
)

// generatePath 流式响应不能经过 gzip 缓冲
const generatePath = "/api/generate"

type Handlers struct {
	Readme   *handler.ReadmeHandler
	History  *handler.HistoryHandler
	Share    *handler.ShareHandler
	Branding *handler.BrandingHandler
	Preset   *handler.PresetHandler
}

func Setup(cfg *config.Config, h Handlers) *gin.Engine {
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Authorization", "X-Client-Info", "Apikey", "Content-Type", handler.ClientIDHeader},
		ExposeHeaders: []string{"Content-Length"},
	}))
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{generatePath})))

	r.GET("/healthz", handler.Health)

	api := r.Group("/api")
	{
		api.POST("/generate", h.Readme.Generate)
		api.POST("/regenerate-section", h.Readme.RegenerateSection)
		api.POST("/score", h.Readme.Score)
		api.POST("/improve", h.Readme.Improve)

		history := api.Group("/history")
		{
			history.GET("", h.History.List)
			history.POST("", h.History.Create)
			history.GET("/:id", h.History.Get)
			history.DELETE("/:id", h.History.Delete)
		}

		shares := api.Group("/shares")
		{
			shares.POST("", h.Share.Create)
			shares.GET("/:slug", h.Share.Get)
		}

		api.GET("/branding", h.Branding.Get)
		api.PUT("/branding", h.Branding.Update)
		api.GET("/presets", h.Preset.List)
	}

	return r
}
