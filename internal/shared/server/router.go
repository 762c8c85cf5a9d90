package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"docflow-backend/internal/documents"
	"docflow-backend/internal/shared/config"
	"docflow-backend/internal/shared/metrics"
	"docflow-backend/internal/shared/server/middleware"
	"docflow-backend/internal/shared/server/respond"
	"docflow-backend/internal/signatures"
	"docflow-backend/internal/users"
)

// RouterDeps bundles handlers and shared components for NewRouter.
type RouterDeps struct {
	Config           config.Config
	Tokens           middleware.TokenVerifier
	Metrics          *metrics.Metrics
	Ping             func(ctx context.Context) error
	DocumentHandler  *documents.Handler
	SignatureHandler *signatures.Handler
	UserHandler      *users.Handler
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		deps.Metrics.Middleware(),
	)

	r.GET("/metrics", deps.Metrics.Handler())
	r.GET("/api/v1/health", healthHandler(deps.Ping))

	api := r.Group("/api/v1", middleware.Auth(deps.Tokens))
	if deps.UserHandler != nil {
		deps.UserHandler.RegisterRoutes(api)
	}
	if deps.DocumentHandler != nil {
		deps.DocumentHandler.RegisterRoutes(api)
	}
	if deps.SignatureHandler != nil {
		deps.SignatureHandler.RegisterRoutes(api)
	}
	return r
}

func healthHandler(ping func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if ping != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := ping(ctx); err != nil {
				respond.JSON(c, http.StatusServiceUnavailable, gin.H{"ok": false, "database": "unreachable"})
				return
			}
		}
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	}
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
