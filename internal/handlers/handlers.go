package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"campusdesk/api/internal/audit"
	"campusdesk/api/internal/config"
	"campusdesk/api/internal/middleware"
	"campusdesk/api/internal/models"
	"campusdesk/api/internal/ratelimit"
	"campusdesk/api/internal/security"
	"campusdesk/api/internal/service"
)

// AuditTrail is the read side of the audit log, for the admin listing.
type AuditTrail interface {
	List(ctx context.Context, limit int, offset int) ([]models.AuditEntry, error)
}

type HandlerSet struct {
	log      zerolog.Logger
	cfg      *config.AppConfig
	auth     *service.AuthService
	recorder *audit.Recorder
	trail    AuditTrail
	limiter  *ratelimit.Limiter
	db       *pgxpool.Pool
	cache    *redis.Client
}

func NewHandlerSet(
	log zerolog.Logger,
	cfg *config.AppConfig,
	auth *service.AuthService,
	recorder *audit.Recorder,
	trail AuditTrail,
	limiter *ratelimit.Limiter,
	db *pgxpool.Pool,
	cache *redis.Client,
) HandlerSet {
	return HandlerSet{
		log:      log,
		cfg:      cfg,
		auth:     auth,
		recorder: recorder,
		trail:    trail,
		limiter:  limiter,
		db:       db,
		cache:    cache,
	}
}

// Register wires the route tree. Order inside a route chain is the control
// flow of the subsystem: rate limit, then session resolution, then audit
// capture, then authorization, then CSRF, then the handler.
func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	authPolicy := ratelimit.Policy{
		Max:    h.cfg.RateLimit.Auth.Max,
		Window: h.cfg.RateLimit.Auth.Window,
	}
	apiPolicy := ratelimit.Policy{
		Max:    h.cfg.RateLimit.API.Max,
		Window: h.cfg.RateLimit.API.Window,
	}

	authLimited := middleware.RateLimit(h.limiter, authPolicy, "auth", h.log)
	apiLimited := middleware.RateLimit(h.limiter, apiPolicy, "api", h.log)
	authed := middleware.Auth(h.cfg, h.auth)

	v1 := router.Group("/v1")

	login := v1.Group("/auth")
	login.POST("/login", authLimited, h.Login)

	session := v1.Group("/auth")
	session.Use(apiLimited, authed)
	session.GET("/me", h.Me)
	session.POST("/logout", middleware.CSRF(), h.Logout)

	admin := v1.Group("/admin")
	admin.Use(apiLimited, authed)
	admin.GET("/users",
		middleware.RequirePermission(security.PermManageUsers),
		h.AdminListUsers)
	admin.POST("/users",
		middleware.Audit(h.recorder, "create_user", "user"),
		middleware.RequirePermission(security.PermManageUsers),
		middleware.CSRF(),
		h.AdminCreateUser)
	admin.PUT("/users/:id/role",
		middleware.Audit(h.recorder, "update_user_role", "user"),
		middleware.RequirePermission(security.PermManageUsers),
		middleware.CSRF(),
		h.AdminUpdateUserRole)
	admin.PUT("/users/:id",
		middleware.Audit(h.recorder, "update_user_profile", "user"),
		middleware.RequirePermission(security.PermManageUsers),
		middleware.CSRF(),
		h.AdminUpdateUserProfile)
	admin.DELETE("/users/:id",
		middleware.Audit(h.recorder, "delete_user", "user"),
		middleware.RequirePermission(security.PermManageUsers),
		middleware.CSRF(),
		h.AdminDeleteUser)
	admin.POST("/sessions/invalidate",
		middleware.Audit(h.recorder, "invalidate_sessions", "session"),
		middleware.RequirePermission(security.PermManageSystem),
		middleware.CSRF(),
		h.AdminInvalidateSessions)
	admin.GET("/audit",
		middleware.RequirePermission(security.PermManageSystem),
		h.AdminListAudit)

	// Representative business routes: their handlers are stubs, but they
	// exercise the full middleware contract the CRUD layer plugs into.
	portal := v1.Group("")
	portal.Use(apiLimited, authed)
	portal.GET("/reports/placements",
		middleware.RequirePermission(security.PermViewReports),
		h.PlacementReport)
	portal.POST("/students/import",
		middleware.Audit(h.recorder, "import_students", "student"),
		middleware.RequirePermission(security.PermManageStudents),
		middleware.CSRF(),
		h.ImportStudents)
}
