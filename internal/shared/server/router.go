package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"slidebanai-backend/internal/credits"
	"slidebanai-backend/internal/documents"
	"slidebanai-backend/internal/presentations"
	"slidebanai-backend/internal/shared/config"
	"slidebanai-backend/internal/shared/metrics"
	"slidebanai-backend/internal/shared/server/middleware"
	"slidebanai-backend/internal/shared/server/respond"
)

// RouterDeps contains handlers and middleware dependencies for the router.
type RouterDeps struct {
	Config              config.Config
	Verifier            middleware.Verifier
	RateLimiter         middleware.RateLimitBackend
	CreditsHandler      *credits.Handler
	DocumentHandler     *documents.Handler
	PresentationHandler *presentations.Handler
}

// Version is stamped at build time with -ldflags "-X".
var Version = "dev"

var generationRoutes = map[string]bool{
	"/api/v1/presentations/outline":               true,
	"/api/v1/presentations/outline/from-document": true,
	"/api/v1/presentations/:id/finalize":          true,
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)
	if deps.Config.IsProduction() {
		r.Use(respond.HideInternalErrors())
	}

	r.GET("/", func(c *gin.Context) {
		respond.OK(c, gin.H{
			"name":        "SlideBanai API",
			"version":     Version,
			"description": "AI-assisted presentation generation",
			"health":      "/api/v1/health",
		})
	})
	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})

	authed := api.Group("")
	authed.Use(
		middleware.Auth(deps.Verifier),
		middleware.RateLimit(rateLimitConfig(deps)),
	)
	registerMeRoutes(authed)
	if deps.CreditsHandler != nil {
		deps.CreditsHandler.RegisterRoutes(authed)
	}
	if deps.DocumentHandler != nil {
		deps.DocumentHandler.RegisterRoutes(authed)
	}
	if deps.PresentationHandler != nil {
		deps.PresentationHandler.RegisterRoutes(authed)
		deps.PresentationHandler.RegisterGenerationRoutes(authed)
	}
	if deps.Config.Env == "dev" && deps.CreditsHandler != nil {
		deps.CreditsHandler.RegisterDevRoutes(authed.Group("/dev"))
	}

	return r
}

func rateLimitConfig(deps RouterDeps) middleware.RateLimitConfig {
	perMinute := deps.Config.RateLimitPerMinute
	burst := deps.Config.RateLimitBurst
	generation := perMinute / 6
	if generation < 1 && perMinute > 0 {
		generation = 1
	}
	return middleware.RateLimitConfig{
		Rules: map[string]middleware.RateLimitRule{
			middleware.RateLimitGroupDefault:    {PerMinute: perMinute, Burst: burst},
			middleware.RateLimitGroupGeneration: {PerMinute: generation, Burst: generation},
		},
		DefaultGroup: middleware.RateLimitGroupDefault,
		GroupFor: func(c *gin.Context) string {
			if c.Request.Method == http.MethodPost && generationRoutes[c.FullPath()] {
				return middleware.RateLimitGroupGeneration
			}
			return ""
		},
		Backend: deps.RateLimiter,
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
