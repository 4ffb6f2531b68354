package router

import (
	"time"

	"buildpos/internal/config"
	"buildpos/internal/handler"
	"buildpos/internal/middleware"
	"buildpos/internal/mirror"
	"buildpos/internal/model"
	"buildpos/internal/repository"
	"buildpos/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Deps carries the wired infrastructure the router needs. DB and RDB are
// only used by the health endpoint and may be nil in memory mode.
type Deps struct {
	Snapshots repository.SnapshotRepository
	Sequences repository.SequenceRepository
	Hub       *mirror.Hub
	DB        *gorm.DB
	RDB       *redis.Client
}

// New wires all dependencies and returns a configured Gin engine.
func New(cfg *config.Config, deps Deps) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(1000, time.Minute))

	authSvc := service.NewAuthService(deps.Snapshots, cfg)

	authH := handler.NewAuthHandler(authSvc)
	tablesH := handler.NewTablesHandler(deps.Snapshots)
	sequencesH := handler.NewSequencesHandler(deps.Sequences)

	// Public
	r.GET("/health", handler.Health(deps.DB, deps.RDB))
	r.POST("/v1/auth/login", authH.Login)

	// Protected routes
	jwtMW := middleware.JWTAuth(cfg.JWTSecret)
	v1 := r.Group("/v1", jwtMW)
	{
		anyRole := middleware.RequireRole(model.RoleAdmin, model.RoleCashier)

		// Reads: any authenticated terminal (catalog sync on startup/reconnect).
		v1.GET("/tables/:table", anyRole, tablesH.Get)

		// Writes: cashiers mutate every sale-path collection; the users
		// collection stays admin only. Fine-grained permission checks
		// (discounts, product management) run terminal-side before the
		// request is ever issued.
		v1.PUT("/tables/:table", anyRole, requireAdminForUsers(), tablesH.Put)

		v1.POST("/sequences/:name", anyRole, sequencesH.Next)

		v1.GET("/mirror", anyRole, handler.Mirror(deps.Hub))
	}

	return r
}

// requireAdminForUsers guards writes to the users collection without
// blocking cashier writes to the sale-path tables.
func requireAdminForUsers() gin.HandlerFunc {
	adminOnly := middleware.RequireRole(model.RoleAdmin)
	return func(c *gin.Context) {
		if c.Param("table") == string(model.TableUsers) {
			adminOnly(c)
			return
		}
		c.Next()
	}
}
