package server

import (
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"summary-backend/internal/documents"
	"summary-backend/internal/services/health"
	"summary-backend/internal/shared/config"
	"summary-backend/internal/shared/metrics"
	"summary-backend/internal/shared/server/middleware"
	"summary-backend/internal/summaries"
)

// RouterDeps holds the handlers mounted by NewRouter. Nil handlers are
// skipped.
type RouterDeps struct {
	Config          config.Config
	Verifier        middleware.TokenVerifier
	Health          *health.Service
	DocumentHandler *documents.Handler
	SummaryHandler  *summaries.Handler
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if !deps.Config.IsDevLike() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		gzip.Gzip(gzip.DefaultCompression),
	)

	if deps.Health != nil {
		r.GET("/health", deps.Health.Handle)
	}
	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.Use(middleware.Auth(deps.Verifier))
	registerMeRoutes(api)
	if deps.DocumentHandler != nil {
		deps.DocumentHandler.RegisterRoutes(api)
	}
	if deps.SummaryHandler != nil {
		deps.SummaryHandler.RegisterRoutes(api)
	}

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
