// internal/router/router.go
package router

import (
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/javajoker/tink-backend/internal/config"
	"github.com/javajoker/tink-backend/internal/events"
	"github.com/javajoker/tink-backend/internal/handlers"
	"github.com/javajoker/tink-backend/internal/middleware"
	"github.com/javajoker/tink-backend/internal/models"
	"github.com/javajoker/tink-backend/internal/services"
)

// Options swaps out the collaborators that talk to the outside world.
// Zero values select the production defaults.
type Options struct {
	Publisher     events.Publisher
	SMSSender     services.SMSSender
	Documents     services.DocumentStore
	SkipRateLimit bool
}

var staffRoles = []string{
	string(models.UserRoleLandlord),
	string(models.UserRoleManager),
	string(models.UserRoleAdmin),
}

func Initialize(db *gorm.DB, cfg *config.Config, opts Options) (*gin.Engine, error) {
	if opts.Publisher == nil {
		opts.Publisher = events.NopPublisher{}
	}
	if opts.SMSSender == nil {
		opts.SMSSender = services.LogSMSSender{}
	}
	if opts.Documents == nil {
		storage, err := services.NewStorageService(cfg)
		if err != nil {
			return nil, err
		}
		opts.Documents = storage
	}

	// Initialize services
	notificationService := services.NewNotificationService(opts.SMSSender, cfg)
	authService := services.NewAuthService(db, cfg)
	applicationService := services.NewApplicationService(db, opts.Publisher)
	viewingService := services.NewViewingService(db, applicationService)
	propertyService := services.NewPropertyService(db, applicationService)
	leaseService := services.NewLeaseService(db, applicationService, opts.Documents, notificationService)
	boardService := services.NewBoardService(applicationService)
	tenantAuthService := services.NewTenantAuthService(db, cfg, notificationService)
	paymentService := services.NewPaymentService(db, cfg, notificationService)
	adminService := services.NewAdminService(db, authService)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	applicationHandler := handlers.NewApplicationHandler(applicationService, propertyService)
	boardHandler := handlers.NewBoardHandler(boardService, applicationService, viewingService, propertyService, leaseService)
	tenantHandler := handlers.NewTenantHandler(tenantAuthService, leaseService)
	paymentHandler := handlers.NewPaymentHandler(paymentService)
	adminHandler := handlers.NewAdminHandler(adminService)

	limit := func(h gin.HandlerFunc) gin.HandlerFunc {
		if opts.SkipRateLimit {
			return func(c *gin.Context) { c.Next() }
		}
		return h
	}

	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(cors.New(corsConfig(cfg.Frontend.AllowedOrigins)))
	r.Use(middleware.I18nMiddleware())
	r.Use(limit(middleware.GeneralRateLimit()))
	r.Use(middleware.AuditLogMiddleware(db))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})

	v1 := r.Group("/v1")
	{
		// Staff authentication
		auth := v1.Group("/auth")
		auth.Use(limit(middleware.AuthRateLimit()))
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.RefreshToken)
			auth.GET("/me", middleware.AuthRequired(), middleware.RoleRequired(staffRoles...), authHandler.GetProfile)
		}

		staff := v1.Group("")
		staff.Use(middleware.AuthRequired(), middleware.RoleRequired(staffRoles...))
		{
			staff.GET("/board", boardHandler.GetBoard)
			staff.POST("/board/columns/:title/sort", boardHandler.ToggleSort)

			applications := staff.Group("/applications")
			{
				applications.GET("", applicationHandler.ListApplications)
				applications.GET("/:id", applicationHandler.GetApplication)
				applications.PATCH("/:id", applicationHandler.UpdateApplication)
				applications.DELETE("/:id", applicationHandler.DeleteApplication)
				applications.POST("/:id/decide", applicationHandler.DecideApplication)
				applications.POST("/:id/room", applicationHandler.AssignRoom)
				applications.GET("/:id/actions", boardHandler.GetActions)
				applications.POST("/:id/actions/:action", boardHandler.ExecuteAction)
				applications.POST("/:id/assignment", boardHandler.OpenAssignment)
				applications.POST("/:id/assignment/submit", boardHandler.SubmitAssignment)
			}

			properties := staff.Group("/properties")
			{
				properties.GET("", applicationHandler.ListProperties)
				properties.GET("/:id", applicationHandler.GetProperty)
				properties.GET("/:id/tenant-conflicts", applicationHandler.TenantConflicts)
			}
		}

		tenant := v1.Group("/tenant")
		{
			tenantAuth := tenant.Group("/auth")
			{
				tenantAuth.POST("/request-code", limit(middleware.OTPRateLimit()), tenantHandler.RequestCode)
				tenantAuth.POST("/verify", limit(middleware.AuthRateLimit()), tenantHandler.VerifyCode)
				tenantAuth.POST("/select-profile", tenantHandler.SelectProfile)
				tenantAuth.POST("/refresh", tenantHandler.RefreshToken)
			}

			portal := tenant.Group("")
			portal.Use(middleware.AuthRequired(), middleware.RoleRequired(string(models.UserRoleTenant)))
			{
				portal.GET("/me", tenantHandler.GetProfile)
				portal.GET("/leases", tenantHandler.GetLeases)
				portal.POST("/leases/:id/sign", tenantHandler.SignLease)
				portal.GET("/leases/:id/document", tenantHandler.GetLeaseDocument)
				portal.GET("/payments", paymentHandler.GetPaymentHistory)
				portal.POST("/payments/intent", paymentHandler.CreateRentPayment)
				portal.POST("/payments/confirm", paymentHandler.ConfirmRentPayment)
			}
		}

		admin := v1.Group("/admin")
		admin.Use(middleware.AuthRequired(), middleware.RoleRequired(string(models.UserRoleAdmin)))
		{
			admin.GET("/users", adminHandler.GetUsers)
			admin.POST("/users", adminHandler.CreateStaff)
			admin.PUT("/users/:id/status", adminHandler.UpdateUserStatus)
			admin.GET("/audit-logs", adminHandler.GetAuditLogs)
			admin.POST("/payments/:id/refund", paymentHandler.RefundRentPayment)
		}
	}

	return r, nil
}

func corsConfig(origins []string) cors.Config {
	config := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "Accept-Language"},
		ExposeHeaders: []string{"X-Total-Count", "X-Page", "X-Per-Page", "Retry-After"},
		MaxAge:        12 * time.Hour,
	}
	// Credentials cannot be combined with a wildcard origin.
	if len(origins) == 0 || slices.Contains(origins, "*") {
		config.AllowAllOrigins = true
		return config
	}
	config.AllowOrigins = origins
	config.AllowCredentials = true
	return config
}
