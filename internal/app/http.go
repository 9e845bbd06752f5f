package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/unifind-backend/internal/http"
	httpH "github.com/yungbote/unifind-backend/internal/http/handlers"
	httpMW "github.com/yungbote/unifind-backend/internal/http/middleware"
	"github.com/yungbote/unifind-backend/internal/observability"
	"github.com/yungbote/unifind-backend/internal/platform/logger"
	"github.com/yungbote/unifind-backend/internal/search"
)

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

type Handlers struct {
	Health  *httpH.HealthHandler
	Index   *httpH.IndexHandler
	Search  *httpH.SearchHandler
	File    *httpH.FileHandler
	Account *httpH.AccountHandler
}

func wireHandlers(log *logger.Logger, db *gorm.DB, index search.Index, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:  httpH.NewHealthHandler(db, index),
		Index:   httpH.NewIndexHandler(services.Indexing),
		Search:  httpH.NewSearchHandler(services.Query),
		File:    httpH.NewFileHandler(log, services.Files),
		Account: httpH.NewAccountHandler(log, services.Sync, services.Accounts),
	}
}

func wireMiddleware(log *logger.Logger, cfg Config) Middleware {
	log.Info("Wiring middleware...")
	if cfg.JWTSecretKey == "" {
		log.Warn("JWT_SECRET_KEY is empty; every /api request will be rejected")
	}
	return Middleware{
		Auth: httpMW.NewAuthMiddleware(log, cfg.JWTSecretKey),
	}
}

func wireServer(log *logger.Logger, cfg Config, handlers Handlers, middleware Middleware, metrics *observability.Metrics) *http.Server {
	routerCfg := http.RouterConfig{
		Log:            log,
		CORSOrigins:    cfg.CORSOrigins,
		Metrics:        metrics,
		AuthMiddleware: middleware.Auth,
		IndexHandler:   handlers.Index,
		SearchHandler:  handlers.Search,
		FileHandler:    handlers.File,
		AccountHandler: handlers.Account,
		HealthHandler:  handlers.Health,
	}
	if cfg.Tracing.Enabled {
		routerCfg.ServiceName = cfg.Tracing.ServiceName
	}
	return http.NewServer(cfg.HTTPAddr, routerCfg)
}
