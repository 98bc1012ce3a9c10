package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "reportverify/docs"
	"reportverify/internal/auth"
	"reportverify/internal/handler"
	"reportverify/internal/middleware"
)

// Options carries the cross-cutting settings of the router.
type Options struct {
	Logger         *zap.Logger
	Tokens         middleware.TokenParser
	AuthDisabled   bool
	AllowedOrigins []string
	MaxUploadBytes int64
}

// Setup configures the Gin engine with all routes and middleware.
func Setup(
	opts Options,
	verificationH *handler.VerificationHandler,
	healthH *handler.HealthHandler,
) *gin.Engine {
	r := gin.New()
	if opts.MaxUploadBytes > 0 {
		// two documents plus form overhead
		r.MaxMultipartMemory = 2*opts.MaxUploadBytes + 1<<20
	}

	// Global middleware
	r.Use(middleware.Recovery(opts.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(opts.Logger))
	r.Use(middleware.CORS(opts.AllowedOrigins))

	// Health checks
	r.GET("/healthz", healthH.Liveness)
	r.GET("/readyz", healthH.Readiness)

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := r.Group("/api/v1")

	// Protected routes - require a valid bearer token unless auth is disabled
	protected := v1.Group("")
	if !opts.AuthDisabled {
		protected.Use(middleware.AuthMiddleware(opts.Tokens))
	}

	read := middleware.RequireScope(auth.ScopeRead)
	write := middleware.RequireScope(auth.ScopeWrite)

	runs := protected.Group("/verifications")
	runs.POST("", write, verificationH.Create)
	runs.POST("/from-storage", write, verificationH.CreateFromStorage)
	runs.GET("", read, verificationH.List)
	runs.GET("/:id", read, verificationH.GetByID)
	runs.GET("/:id/sources/:kind", read, verificationH.SourceURL)
	runs.GET("/:id/export", read, verificationH.Export)
	runs.DELETE("/:id", write, verificationH.Delete)

	return r
}
