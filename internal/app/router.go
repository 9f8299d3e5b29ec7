package app

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rewards-backend/internal/handlers"
	"rewards-backend/internal/logger"
	"rewards-backend/internal/middleware"
	"rewards-backend/internal/services"
)

// NewRouter mounts every HTTP route. gatherer backs /metrics.
func NewRouter(d *Deps, hub *handlers.WebSocketHub, gatherer prometheus.Gatherer) *gin.Engine {
	cfg := d.Config

	jwtService := services.NewJWTService(cfg.JWTSecret, cfg.JWTTTL)
	tgAuth := services.NewTelegramAuthenticator(cfg.BotToken, services.DefaultInitDataMaxAge)

	authHandler := handlers.NewAuthHandler(tgAuth, jwtService, d.Log.Named("auth"))
	playHandler := handlers.NewPlayHandler(d.Engine)
	depositHandler := handlers.NewDepositHandler(d.Deposits)
	wsHandler := handlers.NewWebSocketHandler(d.Engine, hub, d.Log.Named("ws"))

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery(), logger.GinMiddleware(d.Log.Named("http")))
	router.Use(cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-API-Key"},
		MaxAge:           12 * time.Hour,
		AllowCredentials: false,
	}))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "odds_version": d.Odds.Version})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	router.GET("/auth/telegram", authHandler.Authenticate)

	protected := router.Group("/api")
	protected.Use(middleware.AuthMiddleware(jwtService))
	{
		protected.POST("/play",
			middleware.RateLimitMiddleware(d.Limiter, "play", cfg.PlayRateLimit, time.Minute, d.Log),
			playHandler.Play)
		protected.GET("/balance", playHandler.GetBalance)
		protected.GET("/history", playHandler.GetHistory)
		protected.GET("/odds", playHandler.GetOdds)
		protected.GET("/ws", wsHandler.HandleWebSocket)
	}

	internal := router.Group("/internal")
	internal.Use(middleware.APIKeyMiddleware(cfg.APIKey))
	{
		internal.POST("/deposits", depositHandler.Deposit)
	}

	return router
}
