package router

import (
	"time"

	"busara/config"
	"busara/internal/handler"
	"busara/internal/middleware"
	"busara/internal/poller"
	"busara/internal/reconcile"
	"busara/internal/repository"
	"busara/internal/service"
	"busara/pkg/payment"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Setup wires repositories, the reconciler, the poller, and all routes. The
// poller, notification service, and reconciler are returned so main can
// re-arm, run the background sweeps, and shut down cleanly.
func Setup(cfg *config.Config, db *gorm.DB, logger *zap.Logger) (*gin.Engine, *poller.Poller, *service.NotificationService, *reconcile.Reconciler) {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins: cfg.Server.CORSOrigins,
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
		MaxAge:       12 * time.Hour,
	}))

	var limiter middleware.RateLimiter
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		limiter = middleware.NewRedisRateLimiter(client, 100, 60*time.Second)
		logger.Info("rate limiter backed by redis", zap.String("addr", cfg.Redis.Addr))
	} else {
		limiter = middleware.NewInMemoryRateLimiter(100, 60*time.Second)
		logger.Warn("rate limiter is in-memory, not shared across processes")
	}
	r.Use(middleware.RateLimit(limiter))

	// Repositories
	intentRepo := repository.NewPaymentIntentRepository(db)
	membershipRepo := repository.NewMembershipRepository(db)
	donationRepo := repository.NewDonationRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	eventRepo := repository.NewEventRegistrationRepository(db)
	flagRepo := repository.NewReviewFlagRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	// Providers
	cardProvider := payment.NewCardProvider(cfg.Card.SecretKey, logger)
	mpesaProvider := payment.NewMpesaProvider(
		cfg.Mpesa.BaseURL,
		cfg.Mpesa.Email,
		cfg.Mpesa.Password,
		cfg.Mpesa.WebhookBaseURL,
		cfg.Mpesa.CallTimeout,
		logger,
	)

	// Core
	notifSvc := service.NewNotificationService(notificationRepo, &cfg.Mail, logger)
	rec := reconcile.New(intentRepo, membershipRepo, donationRepo, orderRepo, eventRepo, flagRepo, notifSvc, logger)
	watcher := poller.New(mpesaProvider, rec, cfg.Poller.Interval, cfg.Poller.Budget, cfg.Poller.CallTimeout, logger)

	// Handlers
	membershipHandler := handler.NewMembershipHandler(membershipRepo)
	donationHandler := handler.NewDonationHandler(donationRepo)
	orderHandler := handler.NewOrderHandler(orderRepo)
	eventHandler := handler.NewEventRegistrationHandler(eventRepo)
	paymentHandler := handler.NewPaymentHandler(intentRepo, membershipRepo, donationRepo, orderRepo, eventRepo, cardProvider, mpesaProvider, watcher, logger)
	cardWebhookHandler := handler.NewCardWebhookHandler(intentRepo, rec, cfg.Card.WebhookSecret, logger)
	mpesaWebhookHandler := handler.NewMpesaWebhookHandler(intentRepo, rec, cfg.Mpesa.WebhookSecret, logger)
	adminHandler := handler.NewAdminHandler(flagRepo, intentRepo)

	api := r.Group("/api/v1")
	{
		api.POST("/memberships", membershipHandler.Create)
		api.GET("/memberships/:id", membershipHandler.Get)
		api.POST("/donations", donationHandler.Create)
		api.GET("/donations/:id", donationHandler.Get)
		api.POST("/orders", orderHandler.Create)
		api.GET("/orders/:id", orderHandler.Get)
		api.POST("/registrations", eventHandler.Create)
		api.GET("/registrations/:id", eventHandler.Get)

		api.POST("/payments/card", paymentHandler.InitiateCard)
		api.POST("/payments/mpesa", paymentHandler.InitiateMpesa)
		api.GET("/payments/:id", paymentHandler.Status)
		api.DELETE("/payments/:id/watch", paymentHandler.CancelWatch)

		admin := api.Group("/admin", middleware.AdminRequired(&cfg.JWT))
		{
			admin.GET("/review-flags", adminHandler.ListReviewFlags)
			admin.POST("/review-flags/:id/resolve", adminHandler.ResolveReviewFlag)
			admin.GET("/payments", adminHandler.ListPayments)
		}
	}

	webhooks := r.Group("/webhooks")
	{
		webhooks.POST("/card", cardWebhookHandler.Handle)
		webhooks.POST("/mpesa", mpesaWebhookHandler.Handle)
	}

	return r, watcher, notifSvc, rec
}

// RearmPoller restores watches for push-poll intents that were in flight when
// the process last stopped, so a restart cannot strand a pending push.
func RearmPoller(db *gorm.DB, watcher *poller.Poller, logger *zap.Logger) {
	intentRepo := repository.NewPaymentIntentRepository(db)
	intents, err := intentRepo.ListUnresolved("mpesa")
	if err != nil {
		logger.Error("unresolved intent scan failed", zap.Error(err))
		return
	}
	for _, intent := range intents {
		if intent.ExternalRef == nil {
			continue
		}
		watcher.Watch(intent.ID, *intent.ExternalRef)
	}
	if len(intents) > 0 {
		logger.Info("re-armed poller for unresolved intents", zap.Int("count", len(intents)))
	}
}
