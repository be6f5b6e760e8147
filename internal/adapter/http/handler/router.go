package handler

import (
	"smiles-ledger/internal/adapter/http/middleware"
	redisStore "smiles-ledger/internal/adapter/storage/redis"
	"smiles-ledger/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	LedgerSvc      ports.LedgerService
	ReportingSvc   ports.ReportingService
	TokenSvc       ports.TokenService
	ServiceKeys    map[string]string          // service name -> API key; empty disables /auth/token
	RateLimitStore *redisStore.RateLimitStore // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Health check (deep — verifies PostgreSQL + Redis + ledger node)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// Swagger documentation
	swagger := r.Group("/swagger")
	{
		swagger.GET("", SwaggerUI)
		swagger.GET("/spec", SwaggerSpec)
	}

	// Rate limit rules
	rules := middleware.DefaultRateLimitRules()

	// Helper: return rate limiter middleware if store is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	// API v1 routes
	v1 := r.Group("/api/v1")

	// --- Public routes (token issuance only) ---
	if len(deps.ServiceKeys) > 0 {
		authHandler := NewAuthHandler(deps.TokenSvc, deps.ServiceKeys)
		v1.POST("/auth/token", rl("auth_token"), authHandler.IssueToken)
	}

	// --- Service-authenticated routes ---
	auth := middleware.ServiceAuth(deps.TokenSvc, deps.Logger)
	walletHandler := NewWalletHandler(deps.LedgerSvc)
	tokenHandler := NewTokenHandler(deps.LedgerSvc)
	reportingHandler := NewReportingHandler(deps.ReportingSvc)

	wallets := v1.Group("/wallets", auth)
	{
		wallets.POST("", rl("wallets"), walletHandler.Create)
		wallets.GET("/:owner_id/balance", rl("wallets"), walletHandler.GetBalance)
		wallets.DELETE("/:owner_id", rl("wallets"), walletHandler.Deactivate)
		wallets.POST("/:owner_id/associate", rl("wallets"), walletHandler.Associate)
	}

	tokens := v1.Group("/tokens", auth)
	{
		tokens.POST("/mint", rl("tokens"), tokenHandler.Mint)
		tokens.POST("/transfer", rl("tokens"), tokenHandler.Transfer)
		tokens.POST("/burn", rl("tokens"), tokenHandler.Burn)
	}

	transactions := v1.Group("/transactions", auth)
	{
		transactions.GET("", rl("reports"), reportingHandler.ListTransactions)
		transactions.GET("/stats", rl("reports"), reportingHandler.GetStats)
	}

	return r
}
