package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/unifind-backend/internal/http/handlers"
	httpMW "github.com/yungbote/unifind-backend/internal/http/middleware"
	"github.com/yungbote/unifind-backend/internal/observability"
	"github.com/yungbote/unifind-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	ServiceName    string
	CORSOrigins    []string
	Metrics        *observability.Metrics
	AuthMiddleware *httpMW.AuthMiddleware

	IndexHandler   *httpH.IndexHandler
	SearchHandler  *httpH.SearchHandler
	FileHandler    *httpH.FileHandler
	AccountHandler *httpH.AccountHandler
	HealthHandler  *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log, "/healthcheck", "/metrics"))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins...))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapF(cfg.Metrics.WriteHTTP))
	}

	protected := r.Group("/api")
	{
		// Middleware
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}

		// Local indexing
		if cfg.IndexHandler != nil {
			protected.POST("/index-files", cfg.IndexHandler.Start)
			protected.GET("/index-status", cfg.IndexHandler.Status)
		}

		// Search
		if cfg.SearchHandler != nil {
			protected.GET("/search-files", cfg.SearchHandler.Search)
			protected.POST("/favorite", cfg.SearchHandler.ToggleFavorite)
		}

		// Files
		if cfg.FileHandler != nil {
			protected.POST("/open-file", cfg.FileHandler.Open)
			protected.GET("/download-file", cfg.FileHandler.Download)
		}

		// Linked accounts
		if cfg.AccountHandler != nil {
			protected.POST("/sync-cloud-storage", cfg.AccountHandler.SyncNow)
			protected.DELETE("/cloud-accounts/:id", cfg.AccountHandler.Unlink)
		}
	}

	return r
}
