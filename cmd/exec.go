package cmd

import (
	"log"
	"log/slog"
	"net/http"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/plugins/migratecmd"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	pubnub "github.com/pubnub/go"

	"ticketeer/config"
	"ticketeer/handlers"
	"ticketeer/monitoring"
	"ticketeer/security"
	"ticketeer/services"
	"ticketeer/utils"

	_ "ticketeer/migrations"
)

func Start() error {
	app := pocketbase.New()

	// Load configuration
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Initialize Redis. The hash index and rate limiter degrade gracefully
	// without it, so a missing redis is a warning, not a startup failure.
	redisClient, err := utils.NewRedisClient(cfg.RedisURL)
	if err != nil {
		slog.Warn("redis unavailable, hash index and rate limiting disabled", "error", err)
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	// Initialize PubNub
	var pn *pubnub.PubNub
	if cfg.HasPubNub() {
		pnConfig := pubnub.NewConfig()
		pnConfig.PublishKey = cfg.PubNubPublishKey
		pnConfig.SubscribeKey = cfg.PubNubSubscribeKey
		pnConfig.SecretKey = cfg.PubNubSecretKey
		pn = pubnub.NewPubNub(pnConfig)
	}
	feed := services.NewRealtimeFeed(pn)

	// Initialize services
	codec, err := services.NewHashCodec(cfg.OrderHashSecret)
	if err != nil {
		log.Fatalf("Invalid hash configuration: %v", err)
	}

	store := services.NewPBStore(app)

	var index *services.HashIndex
	if redisClient != nil {
		index = services.NewHashIndex(redisClient, cfg.HashIndexTTL)
	}
	resolver := services.NewResolver(codec, store, index)

	notifier := services.NewEmailService(app, cfg.BaseURL)
	ticketService := services.NewTicketService(store)
	orderService := services.NewOrderService(store, codec, notifier, feed, cfg.BaseURL)
	confirmationService := services.NewConfirmationService(store, codec, resolver, notifier)
	checkinService := services.NewCheckinService(store, codec, resolver, feed)
	pickupService := services.NewPickupService(store, resolver, feed)

	rateLimiter := security.NewRateLimiter(redisClient, cfg.RateLimitPerMinute)

	// Initialize handlers
	webhookHandler := handlers.NewWebhookHandler(app, orderService)
	confirmationHandler := handlers.NewConfirmationHandler(confirmationService)
	checkinHandler := handlers.NewCheckinHandler(checkinService)
	pickupHandler := handlers.NewPickupHandler(pickupService)
	ticketHandler := handlers.NewTicketHandler(ticketService)
	orderHandler := handlers.NewOrderHandler(app, orderService)

	// Enable migrations
	migratecmd.MustRegister(app, app.RootCmd, migratecmd.Config{
		Automigrate: true,
	})

	// Prometheus metrics on a separate port
	if cfg.EnableMetrics {
		if redisClient != nil {
			monitoring.NewMonitor(redisClient)
		}
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(":"+cfg.MetricsPort, mux); err != nil {
				slog.Error("metrics server stopped", "error", err)
			}
		}()
	}

	app.OnServe().BindFunc(func(e *core.ServeEvent) error {
		// Payment provider webhook
		e.Router.POST("/api/webhooks/checkout/{ownerId}", webhookHandler.HandleCheckout)

		// Public hash routes. Every lookup is a linear scan, so these are
		// rate limited.
		e.Router.GET("/api/confirmation/{hash}", rateLimiter.Limit(confirmationHandler.GetOrder))
		e.Router.POST("/api/confirmation/{hash}/buyers", rateLimiter.Limit(confirmationHandler.SubmitBuyers))
		e.Router.GET("/api/checkin/{hash}", rateLimiter.Limit(checkinHandler.GetStatus))
		e.Router.POST("/api/checkin/{hash}", rateLimiter.Limit(checkinHandler.Checkin))
		e.Router.GET("/api/accessory-pickup/{hash}", rateLimiter.Limit(pickupHandler.GetStatus))
		e.Router.POST("/api/accessory-pickup/{hash}", rateLimiter.Limit(pickupHandler.Pickup))

		// Organizer ticket endpoints
		e.Router.POST("/api/events/{eventId}/tickets", ticketHandler.CreateTickets)
		e.Router.GET("/api/events/{eventId}/tickets", ticketHandler.ListTickets)
		e.Router.GET("/api/events/{eventId}/tickets/available", ticketHandler.SearchAvailable)
		e.Router.GET("/api/events/{eventId}/tickets/stats", ticketHandler.GetStats)
		e.Router.GET("/api/events/{eventId}/checkin-stats", checkinHandler.GetEventStats)
		e.Router.GET("/api/tickets/{ticketId}", ticketHandler.GetTicket)
		e.Router.PATCH("/api/tickets/{ticketId}", ticketHandler.UpdateTicket)
		e.Router.DELETE("/api/tickets/{ticketId}", ticketHandler.DeleteTicket)
		e.Router.DELETE("/api/tickets", ticketHandler.DeleteTickets)
		e.Router.GET("/api/tickets/{ticketId}/access-hash", checkinHandler.GetAccessHash)

		// Organizer order endpoints
		e.Router.GET("/api/orders/{orderRef}/confirmation-link", orderHandler.GetConfirmationLink)
		e.Router.POST("/api/webhook-key/rotate", orderHandler.RotateWebhookKey)

		// Health check
		e.Router.GET("/health", func(e *core.RequestEvent) error {
			if redisClient != nil {
				if err := utils.RedisHealthCheck(redisClient); err != nil {
					return e.JSON(503, map[string]string{
						"status": "unhealthy",
						"error":  err.Error(),
					})
				}
			}
			return e.JSON(200, map[string]string{"status": "healthy"})
		})

		log.Println("Server routes registered")

		return e.Next()
	})

	seedWebhookKeys(app)

	return app.Start()
}

// seedWebhookKeys assigns a webhook key to organizers that do not have one
// yet, so the checkout route is usable without a manual rotation call.
func seedWebhookKeys(app *pocketbase.PocketBase) {
	app.OnRecordCreate("users").BindFunc(func(e *core.RecordEvent) error {
		if e.Record.GetString("webhook_key") == "" {
			key, err := utils.GenerateCode(24)
			if err != nil {
				return err
			}
			e.Record.Set("webhook_key", key)
		}
		return e.Next()
	})
}
