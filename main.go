package main

import (
	"context"
	"log"

	api "nexus-backend/cmd/api"
	actiondomain "nexus-backend/internal/action/domain"
	actionRepo "nexus-backend/internal/action/repository"
	assistantdomain "nexus-backend/internal/assistant/domain"
	assistantRepo "nexus-backend/internal/assistant/repository"
	authdomain "nexus-backend/internal/auth/domain"
	authRepo "nexus-backend/internal/auth/repository"
	authUsecase "nexus-backend/internal/auth/usecase"
	calendardomain "nexus-backend/internal/calendar/domain"
	calendarRepo "nexus-backend/internal/calendar/repository"
	inboxdomain "nexus-backend/internal/inbox/domain"
	inboxRepo "nexus-backend/internal/inbox/repository"
	"nexus-backend/internal/notification"
	taskdomain "nexus-backend/internal/task/domain"
	taskRepo "nexus-backend/internal/task/repository"
	tonedomain "nexus-backend/internal/tone/domain"
	toneRepo "nexus-backend/internal/tone/repository"
	"nexus-backend/pkg/config"
	"nexus-backend/pkg/database"
	"nexus-backend/pkg/fcm"
	"nexus-backend/pkg/gcalendar"
	"nexus-backend/pkg/gmail"
	"nexus-backend/pkg/imap"
	"nexus-backend/pkg/metrics"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.NewPostgresConnection(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Auto-migrate database schemas
	if err := database.Migrate(db,
		&authdomain.User{}, &authdomain.RefreshToken{}, &authdomain.FCMToken{},
		&inboxdomain.Thread{}, &inboxdomain.Message{}, &inboxdomain.Draft{}, &inboxdomain.Contact{}, &inboxdomain.Order{},
		&calendardomain.Event{}, &calendardomain.SchedulingRule{},
		&actiondomain.PendingAction{}, &actiondomain.ActionLog{},
		&taskdomain.Task{},
		&tonedomain.ToneProfile{}, &tonedomain.Exemplar{},
		&assistantdomain.Session{}, &assistantdomain.StoredMessage{},
	); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	// Initialize repositories (dependency injection)
	userRepo := authRepo.NewUserRepository(db)
	fcmTokenRepo := authRepo.NewFCMTokenRepository(db)

	infra := api.Infrastructure{
		Users:     userRepo,
		Inbox:     inboxRepo.NewGormInboxRepository(db),
		Events:    calendarRepo.NewGormEventRepository(db),
		Rules:     calendarRepo.NewGormRuleRepository(db),
		Actions:   actionRepo.NewGormActionRepository(db),
		Tasks:     taskRepo.NewGormTaskRepository(db),
		Sessions:  assistantRepo.NewGormSessionRepository(db),
		Profiles:  toneRepo.NewGormProfileRepository(db),
		Exemplars: toneRepo.NewGormExemplarRepository(db),

		// Google readers share the OAuth client used at sign-in
		Gmail:    gmail.NewService(cfg.GoogleClientID, cfg.GoogleClientSecret),
		Calendar: gcalendar.NewService(cfg.GoogleClientID, cfg.GoogleClientSecret),
		IMAP:     imap.NewReader(),
		Metrics:  metrics.Default(),
	}

	// Initialize FCM Client (optional, the app works without push)
	if cfg.FirebaseCredentials != "" {
		fcmClient, err := fcm.NewClient(context.Background(), cfg.FirebaseCredentials)
		if err != nil {
			log.Printf("[WARN] Failed to initialize FCM client (push notifications disabled): %v", err)
		} else {
			infra.Notifier = notification.NewPushNotifier(fcmTokenRepo, fcmClient)
			log.Printf("[DEBUG] FCM client initialized successfully")
		}
	} else {
		log.Printf("[DEBUG] No Firebase credentials configured, FCM disabled")
	}

	// Initialize use cases (dependency injection)
	authUsecaseInstance := authUsecase.NewAuthUsecase(userRepo, fcmTokenRepo, cfg)

	// Initialize HTTP handler
	handler, err := api.NewHandler(authUsecaseInstance, infra, cfg)
	if err != nil {
		log.Fatal("Failed to initialize handlers:", err)
	}

	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on port %s", port)
	if err := handler.Start(":" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
