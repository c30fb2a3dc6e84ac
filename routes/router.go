package routes

import (
	"taskmanager/backend/database"
	"taskmanager/backend/middleware"
	"taskmanager/backend/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Services bundles the handlers' dependencies
type Services struct {
	Auth  services.AuthServiceInterface
	Users services.UserServiceInterface
	Tasks services.TaskServiceInterface
}

type RouterOptions struct {
	AllowedOrigins string
	MaxUploadSize  int64
	// AuthRate and AuthBurst throttle /auth per client IP; a zero burst disables it
	AuthRate  rate.Limit
	AuthBurst int
}

// NewRouter builds the HTTP API. Every route is served both at the root and
// under /api.
func NewRouter(db *database.Database, svc Services, opts RouterOptions, logger *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(
		middleware.RequestLogger(logger),
		middleware.Recovery(logger),
		middleware.CORSMiddleware(opts.AllowedOrigins),
	)

	var limiter gin.HandlerFunc
	if opts.AuthBurst > 0 {
		limiter = middleware.RateLimiter(opts.AuthRate, opts.AuthBurst)
	}

	for _, prefix := range []string{"", "/api"} {
		group := router.Group(prefix)
		RegisterHealthRoutes(group, db)
		RegisterAuthRoutes(group, svc.Auth, limiter)

		protected := group.Group("", middleware.AuthMiddleware(svc.Auth))
		RegisterTaskRoutes(protected, svc.Tasks, opts.MaxUploadSize)

		admin := protected.Group("", middleware.RequireAdmin())
		RegisterUserRoutes(admin, svc.Users)
	}

	return router
}
