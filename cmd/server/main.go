package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/text/language"

	"arcos-chat/internal/chips"
	"arcos-chat/internal/config"
	"arcos-chat/internal/conversation"
	"arcos-chat/internal/database"
	"arcos-chat/internal/handlers"
	"arcos-chat/internal/handoff"
	"arcos-chat/internal/middleware"
	"arcos-chat/internal/models"
	"arcos-chat/internal/render"
	"arcos-chat/internal/repository"
	"arcos-chat/internal/router"
	"arcos-chat/internal/services"
	"arcos-chat/internal/session"
	"arcos-chat/internal/websocket"
	"arcos-chat/internal/worker"
	"arcos-chat/migrations"
	"arcos-chat/web"
)

func main() {
	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	setupLogger(cfg)
	log.Info().Msg("🚀 Starting Arcos chat...")
	log.Info().Msg("✓ Environment variables loaded")

	lang, err := language.Parse(cfg.Locale)
	if err != nil {
		log.Warn().Str("locale", cfg.Locale).Msg("unknown locale, using es-ES")
		lang = language.MustParse("es-ES")
	}

	// ──── Step 2: Initialize Redis Clients (optional) ────
	var redisClients *database.RedisClients
	if cfg.RedisURL != "" {
		redisClients, err = database.NewRedisClients(cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("✗ Redis connection failed")
		}
		defer redisClients.Close()
		log.Info().Msg("✓ Redis connected")
	}

	// ──── Step 3: Initialize PostgreSQL and the dispatch log (optional) ────
	var recorder services.Recorder
	var logPool *worker.Pool
	if cfg.DatabaseURL != "" {
		pool, err := database.NewPostgresPool(cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("✗ PostgreSQL connection failed")
		}
		defer pool.Close()
		log.Info().Msg("✓ PostgreSQL connected")

		if err := database.RunMigrations(pool, migrations.FS); err != nil {
			log.Fatal().Err(err).Msg("✗ Database migration failed")
		}
		log.Info().Msg("✓ Database migrations applied")

		logPool = worker.NewPool(repository.NewDispatchLogRepo(pool), 2, 256)
		logPool.Start()
		recorder = logPool
		log.Info().Msg("✓ Dispatch log worker pool started (2 goroutines)")
	}

	// ──── Step 4: Sessions and hand-off ────
	storeType := session.StoreType(cfg.SessionStore)
	storeOpts := []session.StoreOption{session.WithTTL(cfg.SessionTTL)}
	ledger := handoff.Ledger(handoff.NewMemoryLedger())
	if redisClients != nil {
		storeOpts = append(storeOpts, session.WithRedisClient(redisClients.Store))
		ledger = handoff.NewRedisLedger(redisClients.Store)
	}
	sessionStore, err := session.NewStore(storeType, storeOpts...)
	if err != nil {
		log.Fatal().Err(err).Str("store", cfg.SessionStore).Msg("✗ Session store initialization failed")
	}
	defer sessionStore.Close()
	provider := session.NewProvider(sessionStore, cfg.SecureCookies || cfg.IsProduction(), cfg.BasePath)
	log.Info().Str("store", cfg.SessionStore).Msg("✓ Session store ready")

	signer, err := handoff.NewSigner(cfg.HandoffSecret, cfg.HandoffTTL, ledger)
	if err != nil {
		log.Fatal().Err(err).Msg("✗ Hand-off signer initialization failed")
	}

	// ──── Step 5: Assistant dispatcher ────
	assistant := services.NewAssistantService(services.AssistantOptions{
		WebhookURL:       cfg.AssistantWebhookURL,
		Source:           cfg.AssistantSource,
		Timeout:          cfg.AssistantTimeout,
		ContentType:      models.ParseContentType(cfg.AssistantContentType),
		ConcurrentReqs:   cfg.AssistantConcurrentReqs,
		PriceSuffix:      cfg.AssistantPriceSuffix,
		PlaceholderImage: cfg.ProductPlaceholderImage,
		LinkPrefix:       cfg.BasePath + "products/",
		Recorder:         recorder,
	})
	log.Info().Str("webhook", cfg.AssistantWebhookURL).Dur("timeout", cfg.AssistantTimeout).Msg("✓ Assistant dispatcher initialized")

	// ──── Step 6: Start WebSocket Hub ────
	var wsHub *websocket.Hub
	var publisher conversation.Publisher
	if redisClients != nil {
		wsHub = websocket.NewHub(redisClients.PubSub, cfg.AllowedOrigins...)
		publisher = websocket.NewRedisPublisher(redisClients.Store)
	} else {
		wsHub = websocket.NewHub(nil, cfg.AllowedOrigins...)
		publisher = wsHub
	}
	log.Info().Msg("✓ WebSocket hub started")

	// ──── Step 7: Conversations ────
	manager := conversation.NewManager(assistant, publisher, conversation.ManagerOptions{
		IdleTTL:  cfg.ConversationIdleTTL,
		Language: lang,
	})
	manager.Start()
	log.Info().Dur("idle_ttl", cfg.ConversationIdleTTL).Msg("✓ Conversation manager started")

	// ──── Initialize Handlers ────
	presenter := render.NewPresenter(render.PresenterOptions{
		Max:         cfg.ProductGridMax,
		Locale:      cfg.Locale,
		Currency:    cfg.Currency,
		Placeholder: cfg.ProductPlaceholderImage,
	})
	views := handlers.NewViews(render.NewRenderer(), presenter)
	carousel := chips.Default()
	conversations := handlers.NewConversations(manager, signer, lang, cfg.BasePath)

	pageHandler, err := handlers.NewPageHandler(conversations, views, carousel, web.Templates, handlers.PageOptions{
		BasePath: cfg.BasePath,
		BaseURL:  cfg.BaseURL,
		Language: lang,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("✗ Page templates failed to parse")
	}
	chatHandler := handlers.NewChatHandler(conversations, views, wsHub)
	sessionHandler := handlers.NewSessionHandler(carousel, conversations, cfg.BasePath)

	limiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute, time.Minute)

	// ──── Step 8: Start HTTP Server ────
	r := router.New(provider, limiter, pageHandler, chatHandler, sessionHandler, router.Options{
		BasePath:       cfg.BasePath,
		AllowedOrigins: cfg.AllowedOrigins,
		Static:         web.Static,
		Logger:         log.Logger,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown: background work stops first, then the HTTP server
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	stops := []func(){manager.Stop, limiter.Stop}
	if logPool != nil {
		stops = append(stops, func() {
			logPool.Stop()
			log.Info().Msg("✓ Dispatch log drained")
		})
	}
	done := onSignal(sigChan, server, 30*time.Second, stops...)

	log.Info().Msgf("✓ Arcos chat ready on %s%s", cfg.BaseURL, cfg.BasePath)
	log.Info().Msgf("  API: %s/api/v1", cfg.BaseURL)
	log.Info().Msgf("  WS:  %s/api/v1/ws", cfg.BaseURL)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("Server error")
	}

	// deferred closes must not run before the pool has drained
	<-done
	log.Info().Msg("✓ Shutdown complete")
}

// setupLogger writes human readable logs in development and JSON otherwise.
func setupLogger(cfg *config.Config) {
	zerolog.TimeFieldFormat = time.RFC3339
	if !cfg.IsProduction() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}
