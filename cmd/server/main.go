package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"drayage-backend/internal/cache"
	"drayage-backend/internal/config"
	"drayage-backend/internal/database"
	"drayage-backend/internal/db"
	"drayage-backend/internal/handlers"
	"drayage-backend/internal/health"
	h "drayage-backend/internal/http"
	"drayage-backend/internal/middleware"
	"drayage-backend/internal/monitoring"
	"drayage-backend/internal/notify"
	"drayage-backend/internal/portpro"
	"drayage-backend/internal/repositories"
	"drayage-backend/internal/services"
	syncsvc "drayage-backend/internal/sync"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Connect to PostgreSQL (fail fast - nothing works without it)
	pool := db.Connect(cfg)
	defer pool.Close()

	// Initialize Redis cache (optional - idempotency fails open without it)
	if err := cache.Init(); err != nil {
		log.Printf("[Redis] Cache unavailable: %v (webhook dedup disabled)", err)
	} else {
		log.Println("[Redis] Cache connected successfully")
	}

	// Run database migrations
	log.Println("Running database migrations...")
	migrator := database.NewMigrator(pool)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := migrator.RunMigrations(ctx); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize repositories
	loadRepo := repositories.NewLoadRepository(pool)
	loadEventRepo := repositories.NewLoadEventRepository(pool)
	quoteRepo := repositories.NewQuoteRepository(pool)
	userRepo := repositories.NewUserRepository(pool)
	deadLetterRepo := repositories.NewDeadLetterRepository(pool)
	notificationRepo := repositories.NewNotificationRepository(pool)
	systemSettingRepo := repositories.NewSystemSettingRepository(pool)

	// Initialize the sync pipeline
	idemStore := syncsvc.NewIdempotencyStore(time.Duration(cfg.Sync.IdempotencyTTLHours) * time.Hour)
	dlqService := syncsvc.NewDLQService(deadLetterRepo,
		time.Duration(cfg.Sync.DLQBaseDelaySeconds)*time.Second,
		time.Duration(cfg.Sync.DLQMaxDelaySeconds)*time.Second,
		cfg.Sync.DLQMaxRetries)
	portproClient := portpro.NewClient(cfg.PortPro.BaseURL, cfg.PortPro.APIKey)

	engine := syncsvc.NewEngine(loadRepo, loadEventRepo, systemSettingRepo,
		idemStore, dlqService, portproClient, syncsvc.EngineConfig{
			WebhookSecret:     cfg.PortPro.WebhookSecret,
			PollLimit:         cfg.PortPro.PollLimit,
			ReconcilePageSize: cfg.Sync.ReconcilePageSize,
		})

	// Notification channels: real providers when configured, mocks otherwise
	var emailService notify.EmailProvider
	if cfg.Notifications.EmailAPIKey != "" {
		log.Println("Using Resend for email delivery")
		emailService = notify.NewResendService(cfg.Notifications.EmailAPIKey, cfg.Notifications.EmailFrom)
	} else {
		log.Println("WARNING: RESEND_API_KEY not set, using MockEmail (emails will only print to logs)")
		emailService = &notify.MockEmailService{}
	}

	var chatService notify.ChatProvider
	if cfg.Notifications.ChatWebhookURL != "" {
		log.Println("Using Slack webhook for chat notifications")
		chatService = notify.NewSlackWebhookService(cfg.Notifications.ChatWebhookURL)
	} else {
		log.Println("WARNING: SLACK_WEBHOOK_URL not set, using MockChat (chat posts will be dropped)")
		chatService = &notify.MockChatService{}
	}

	dispatcher := notify.NewDispatcher(notificationRepo, userRepo, systemSettingRepo,
		emailService, chatService, cfg.Notifications.DefaultChannel)
	engine.SetNotifier(dispatcher)

	// Quote intake
	quoteService := services.NewQuoteService(quoteRepo)
	quoteService.SetNotifier(dispatcher)

	// Initialize health checker
	healthChecker := health.NewHealthChecker(pool)

	// Start monitoring dashboard server in background
	evaluator := monitoring.NewAlertEvaluator(deadLetterRepo, systemSettingRepo, chatService,
		monitoring.EvaluatorConfig{
			StaleAfter: time.Duration(cfg.Sync.StaleThresholdMinutes) * time.Minute,
			OpsChannel: cfg.Notifications.OpsChannel,
		})
	go monitoring.NewMonitoringServer(pool, cfg.Server.MonitoringPort, evaluator, deadLetterRepo, idemStore).Start()

	// Initialize handlers
	webhookHandler := handlers.NewWebhookHandler(engine)
	syncHandler := handlers.NewSyncHandler(engine, dlqService, dispatcher)
	loadHandler := handlers.NewLoadHandler(loadRepo, loadEventRepo)
	quoteHandler := handlers.NewQuoteHandler(quoteService)
	notificationHandler := handlers.NewNotificationHandler(notificationRepo)
	dlqHandler := handlers.NewDLQHandler(dlqService, idemStore)
	systemSettingHandler := handlers.NewSystemSettingHandler(systemSettingRepo)
	healthHandler := handlers.NewHealthHandler(healthChecker)

	router := h.NewRouter(webhookHandler, syncHandler, loadHandler, quoteHandler,
		notificationHandler, dlqHandler, systemSettingHandler, healthHandler,
		cfg.Server.CronToken)

	// Wrap with panic recovery and metrics middleware
	corsMiddleware := middleware.NewCORS(cfg)
	handler := middleware.PanicRecovery(middleware.MetricsMiddleware(corsMiddleware(router)))

	// Start server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Printf("Server running on %s", addr)
	if err := http.ListenAndServe(addr, handler); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
