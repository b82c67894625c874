package cmd

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/plugins/migratecmd"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	pubnub "github.com/pubnub/go/v7"

	"videochat-system/config"
	"videochat-system/handlers"
	"videochat-system/internal/notify"
	"videochat-system/internal/services"
	"videochat-system/internal/services/checkout"
	"videochat-system/monitoring"
	"videochat-system/security"
	"videochat-system/utils"

	_ "videochat-system/migrations"
)

func Start() error {
	app := pocketbase.New()

	// Load configuration
	cfg := config.LoadConfig()

	// Initialize Redis
	redisClient := utils.NewRedisClient(cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB)
	defer redisClient.Close()

	// Initialize PubNub
	pnConfig := pubnub.NewConfigWithUserId(pubnub.UserId(cfg.PubNubUserID))
	pnConfig.PublishKey = cfg.PubNubPublishKey
	pnConfig.SubscribeKey = cfg.PubNubSubscribeKey
	pnConfig.SecretKey = cfg.PubNubSecretKey

	pn := pubnub.NewPubNub(pnConfig)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Checkout providers; the first registered is the default.
	registry := checkout.NewRegistry()
	registry.Register(checkout.NewStripeClient(&checkout.StripeConfig{
		BaseURL:   cfg.StripeAPIURL,
		SecretKey: cfg.StripeSecretKey,
	}))
	registry.Register(checkout.NewIyzicoClient(&checkout.IyzicoConfig{
		BaseURL:   cfg.IyzicoAPIURL,
		SecretKey: cfg.IyzicoSecretKey,
	}))

	// Initialize services
	monitor := monitoring.NewMonitor()
	notifier := notify.NewPubNubNotifier(pn)
	queue := services.NewMatchQueue()
	presenceService := services.NewPresenceService(redisClient, app, cfg.PresenceTTL)
	coinService := services.NewCoinService(app)
	matchStore := services.NewMatchStore(app)
	videoCatalog := services.NewPBVideoCatalog(app)
	videoService := services.NewVideoService(redisClient, videoCatalog, cfg.VideoHistoryDepth)
	matchService := services.NewMatchService(queue, coinService, matchStore, videoService, presenceService, notifier, monitor, cfg.MatchCost, cfg.FallbackWindow)
	signalService := services.NewSignalService(presenceService, notifier)
	purchaseService := services.NewPurchaseService(redisClient, pn, coinService, registry, notifier, cfg.CheckoutNotifyChannel)

	// Initialize handlers
	connectHandler := handlers.NewConnectHandler(presenceService, coinService, matchService, cfg.SignupBonus)
	matchHandler := handlers.NewMatchHandler(presenceService, matchService, matchStore, signalService)
	coinHandler := handlers.NewCoinHandler(presenceService, coinService, purchaseService)
	adminHandler := handlers.NewAdminHandler(app, matchService, videoCatalog)

	rateLimiter := security.NewRateLimiter(redisClient)

	// Enable migrations
	migratecmd.MustRegister(app, app.RootCmd, migratecmd.Config{
		Automigrate: true,
	})

	// Start background tasks
	go purchaseService.SubscribeToPaymentNotifications()
	go publishQueueMetrics(ctx, matchService, monitor, cfg.QueueMetricsInterval)

	// Setup graceful shutdown
	go handleShutdown(cancel, matchService)

	app.OnServe().BindFunc(func(se *core.ServeEvent) error {
		api := se.Router.Group("/api/v1")
		api.Bind(rateLimiter.AntiBot())

		// Connection lifecycle
		api.POST("/connect", connectHandler.Connect)
		api.POST("/heartbeat", connectHandler.Heartbeat)
		api.POST("/disconnect", connectHandler.Disconnect)

		// Matchmaking
		match := api.Group("/match")
		match.Bind(rateLimiter.MatchRateLimit(30))
		match.POST("/find", matchHandler.FindMatch)
		match.POST("/cancel", matchHandler.CancelFindMatch)
		match.POST("/end", matchHandler.EndCall)
		match.POST("/signal", matchHandler.Signal)
		match.GET("/history", matchHandler.MatchHistory)
		match.GET("/{id}", matchHandler.GetMatch)

		// Coin economy
		api.GET("/coins/balance", coinHandler.GetBalance)
		api.GET("/coins/packages", coinHandler.ListPackages)
		api.GET("/coins/transactions", coinHandler.ListTransactions)
		api.POST("/coins/purchase", coinHandler.Purchase)

		// Admin endpoints
		admin := api.Group("/admin")
		admin.Bind(apis.RequireSuperuserAuth())
		admin.GET("/dashboard", adminHandler.GetDashboard)
		admin.POST("/remove-from-queue", adminHandler.RemoveFromQueue)
		admin.GET("/fake-videos", adminHandler.ListFakeVideos)
		admin.POST("/fake-videos/{id}/toggle", adminHandler.ToggleFakeVideo)
		admin.POST("/ban", adminHandler.BanParticipant)

		// Health check
		se.Router.GET("/health", func(e *core.RequestEvent) error {
			if err := utils.RedisHealthCheck(redisClient); err != nil {
				return e.JSON(503, map[string]string{
					"status": "unhealthy",
					"error":  err.Error(),
				})
			}
			return e.JSON(200, map[string]string{"status": "healthy"})
		})

		if cfg.EnableMetrics {
			se.Router.GET("/metrics", apis.WrapStdHandler(promhttp.Handler()))
		}

		log.Println("Server routes registered")

		return se.Next()
	})

	return app.Start()
}

// publishQueueMetrics keeps the queue gauges fresh for scraping.
func publishQueueMetrics(ctx context.Context, matches *services.MatchService, monitor *monitoring.Monitor, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			monitor.SetQueueLength(matches.QueueLen())
			monitor.SetActiveCalls(matches.ActiveCallCount())
		}
	}
}

// handleShutdown handles graceful shutdown
func handleShutdown(cancel context.CancelFunc, matches *services.MatchService) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	slog.Info("shutdown signal received, cleaning up")
	matches.Shutdown()
	cancel()
}
