package api

import (
	"context"
	"errors"
	"fmt"
	"log"

	actionDelivery "nexus-backend/internal/action/delivery"
	actionRepo "nexus-backend/internal/action/repository"
	actionUsecase "nexus-backend/internal/action/usecase"
	assistantDelivery "nexus-backend/internal/assistant/delivery"
	assistantRepo "nexus-backend/internal/assistant/repository"
	assistantUsecase "nexus-backend/internal/assistant/usecase"
	authRepo "nexus-backend/internal/auth/repository"
	authUsecase "nexus-backend/internal/auth/usecase"
	briefingDelivery "nexus-backend/internal/briefing/delivery"
	briefingUsecase "nexus-backend/internal/briefing/usecase"
	calendarRepo "nexus-backend/internal/calendar/repository"
	classifierUsecase "nexus-backend/internal/classifier/usecase"
	inboxRepo "nexus-backend/internal/inbox/repository"
	inboxUsecase "nexus-backend/internal/inbox/usecase"
	lifecycleDelivery "nexus-backend/internal/lifecycle/delivery"
	lifecycleUsecase "nexus-backend/internal/lifecycle/usecase"
	"nexus-backend/internal/notification"
	schedulingDelivery "nexus-backend/internal/scheduling/delivery"
	schedulingUsecase "nexus-backend/internal/scheduling/usecase"
	taskDelivery "nexus-backend/internal/task/delivery"
	taskRepo "nexus-backend/internal/task/repository"
	"nexus-backend/internal/task/scheduler"
	taskUsecasePkg "nexus-backend/internal/task/usecase"
	toneDelivery "nexus-backend/internal/tone/delivery"
	toneRepo "nexus-backend/internal/tone/repository"
	toneUsecase "nexus-backend/internal/tone/usecase"
	"nexus-backend/pkg/ai"
	"nexus-backend/pkg/chroma"
	"nexus-backend/pkg/config"
	"nexus-backend/pkg/gcalendar"
	"nexus-backend/pkg/gmail"
	"nexus-backend/pkg/imap"
	"nexus-backend/pkg/metrics"

	"github.com/gin-gonic/gin"
)

// Infrastructure is everything main opens before the HTTP layer is assembled
type Infrastructure struct {
	Users     authRepo.UserRepository
	Inbox     inboxRepo.InboxRepository
	Events    calendarRepo.EventRepository
	Rules     calendarRepo.RuleRepository
	Actions   actionRepo.ActionRepository
	Tasks     taskRepo.TaskRepository
	Sessions  assistantRepo.SessionRepository
	Profiles  toneRepo.ProfileRepository
	Exemplars toneRepo.ExemplarRepository

	Gmail    *gmail.Service
	Calendar *gcalendar.Service
	IMAP     *imap.Reader
	Notifier *notification.PushNotifier
	Metrics  *metrics.Metrics
}

type Handler struct {
	authUsecase authUsecase.AuthUsecase
	config      *config.Config
	metrics     *metrics.Metrics

	assistantHandler  *assistantDelivery.AssistantHandler
	actionHandler     *actionDelivery.ActionHandler
	briefingHandler   *briefingDelivery.BriefingHandler
	schedulingHandler *schedulingDelivery.SchedulingHandler
	taskHandler       *taskDelivery.TaskHandler
	toneHandler       *toneDelivery.ToneHandler
	lifecycleHandler  *lifecycleDelivery.LifecycleHandler
}

// threadFetcherAdapter adapts InboxUsecase to TaskUsecase.MessageFetcher interface
type threadFetcherAdapter struct {
	inboxUc *inboxUsecase.InboxUsecase
}

func (a *threadFetcherAdapter) GetLatestMessage(userID, threadID string) (subject, body, sender string, err error) {
	msg, err := a.inboxUc.LatestInbound(userID, threadID)
	if errors.Is(err, inboxUsecase.ErrThreadNotFound) || (err == nil && msg == nil) {
		return "", "", "", taskUsecasePkg.ErrSourceNotFound
	}
	if err != nil {
		return "", "", "", err
	}
	return msg.Subject, msg.Body, msg.FromEmail, nil
}

func NewHandler(authUc authUsecase.AuthUsecase, infra Infrastructure, cfg *config.Config) (*Handler, error) {
	// Initialize runtime config for settings API
	InitRuntimeConfig(cfg.OllamaBaseURL, cfg.OllamaModel)

	// Ollama endpoint and model are read through getters so the settings API applies without a restart
	aiService, err := ai.NewProvider(ai.DynamicConfig{
		Provider:             ai.ProviderType(cfg.AIProvider),
		GeminiAPIKey:         cfg.GeminiApiKey,
		GeminiModel:          cfg.GeminiModel,
		GeminiEmbeddingModel: cfg.GeminiEmbeddingModel,
		GetOllamaBaseURL:     GetRuntimeOllamaBaseURL,
		GetOllamaModel:       GetRuntimeOllamaModel,
		OllamaEmbeddingModel: cfg.OllamaEmbeddingModel,
	})
	if err != nil {
		return nil, fmt.Errorf("initialize AI provider: %w", err)
	}
	log.Printf("AI service initialized with provider: %s (dynamic config enabled)", cfg.AIProvider)

	embedder, err := ai.NewCachedEmbedder(aiService, cfg.EmbeddingCacheSize)
	if err != nil {
		return nil, err
	}

	// A nil notifier must stay a nil interface so consumers can tell push is off
	var notifier scheduler.Notifier
	if infra.Notifier != nil {
		notifier = infra.Notifier
	}

	// Pending actions: the only path from a proposal to a write
	actionManager := actionUsecase.NewManager(infra.Actions)
	actionManager.SetNotifier(notifier)
	actionManager.SetMetrics(infra.Metrics)

	inboxUc := inboxUsecase.NewInboxUsecase(infra.Inbox)
	classifier := classifierUsecase.NewClassifier(aiService)

	schedulingService := schedulingUsecase.NewService(
		infra.Users,
		schedulingUsecase.NewResolver(infra.Rules, cfg.SchedulingDefaults),
		schedulingUsecase.NewCalculator(infra.Events),
		actionManager,
	)
	briefingGenerator := briefingUsecase.NewGenerator(infra.Events, inboxUc, schedulingService)

	// Set up Task Usecase with the classifier as extractor and the inbox as message source
	taskUc := taskUsecasePkg.NewTaskUsecase(infra.Tasks)
	taskUc.SetTaskExtractor(classifier)
	taskUc.SetMessageFetcher(&threadFetcherAdapter{inboxUc: inboxUc})

	reminders := scheduler.NewTaskReminderScheduler(infra.Tasks, notifier)
	reminders.Start()
	log.Println("Task reminder scheduler started")

	toneEngine := toneUsecase.NewEngine(aiService, embedder, infra.Profiles, infra.Exemplars)
	toneEngine.SetSentSource(infra.Inbox)
	toneEngine.SetMetrics(infra.Metrics)
	if cfg.ChromaAPIKey != "" {
		index, err := chroma.NewExemplarIndex(cfg)
		if err != nil {
			log.Printf("Warning: Failed to initialize Chroma client: %v. Exemplar retrieval falls back to local similarity.", err)
		} else {
			toneEngine.SetIndex(index)
			log.Println("Chroma client initialized successfully")
		}
	} else {
		log.Println("Warning: CHROMA_API_KEY not set. Exemplar retrieval falls back to local similarity.")
	}

	// Lifecycle: backfill worker pool plus tone learning
	backfiller := lifecycleUsecase.NewBackfiller(infra.Users, infra.Inbox, infra.Events, cfg.EncryptionKey, cfg.BackfillWorkers)
	backfiller.SetGoogleReaders(infra.Gmail, infra.Calendar)
	backfiller.SetSentFolderReader(infra.IMAP)
	backfiller.SetMetrics(infra.Metrics)
	dispatcher := lifecycleUsecase.NewDispatcher(toneEngine, backfiller)

	authUc.SetConnectionListener(dispatcher)
	if cfg.GoogleProjectID != "" {
		bus, err := lifecycleDelivery.NewBus(context.Background(), cfg.GoogleProjectID, cfg.LifecycleTopic, cfg.GoogleCredentials, dispatcher)
		if err != nil {
			log.Printf("[ERROR] Failed to initialize lifecycle bus, handling events in-process: %v", err)
		} else {
			authUc.SetConnectionListener(bus)
			go bus.Start(context.Background())
			log.Printf("[DEBUG] Lifecycle bus started on topic %s", cfg.LifecycleTopic)
		}
	} else {
		log.Printf("[WARN] GoogleProjectID not configured, lifecycle events handled in-process")
	}

	// Assistant: tool catalog, executor and orchestration loop
	toolbox := assistantUsecase.NewToolbox(inboxUc, taskUc, infra.Events, classifier, schedulingService, briefingGenerator, actionManager)
	executor := assistantUsecase.NewExecutor(toolbox.Handlers())
	executor.SetMetrics(infra.Metrics)
	orchestrator := assistantUsecase.NewOrchestrator(aiService, executor, infra.Sessions)
	orchestrator.SetLimits(cfg.MaxToolIterations, cfg.HistoryLimit)
	orchestrator.SetMetrics(infra.Metrics)

	return &Handler{
		authUsecase:       authUc,
		config:            cfg,
		metrics:           infra.Metrics,
		assistantHandler:  assistantDelivery.NewAssistantHandler(orchestrator),
		actionHandler:     actionDelivery.NewActionHandler(actionManager),
		briefingHandler:   briefingDelivery.NewBriefingHandler(briefingGenerator),
		schedulingHandler: schedulingDelivery.NewSchedulingHandler(schedulingService),
		taskHandler:       taskDelivery.NewTaskHandler(taskUc),
		toneHandler:       toneDelivery.NewToneHandler(toneEngine),
		lifecycleHandler:  lifecycleDelivery.NewLifecycleHandler(dispatcher),
	}, nil
}

// Engine builds the gin engine with CORS and every route
func (h *Handler) Engine() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.Default()

	// CORS middleware
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Timezone")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	SetupRoutes(r, h)
	return r
}

func (h *Handler) Start(addr string) error {
	return h.Engine().Run(addr)
}
