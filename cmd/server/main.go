package main

import (
	"context"
	"errors"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"atelier/internal/auth"
	"atelier/internal/cache"
	"atelier/internal/capabilities"
	"atelier/internal/config"
	"atelier/internal/handler"
	"atelier/internal/handler/sse"
	"atelier/internal/middleware"
	"atelier/internal/repository/postgres"
	postgresChat "atelier/internal/repository/postgres/chat"
	postgresLibrary "atelier/internal/repository/postgres/library"
	"atelier/internal/secrets"
	librarySvc "atelier/internal/service/library"
	"atelier/internal/service/library/converter"
	serviceLLM "atelier/internal/service/llm"
	llmsetup "atelier/internal/service/llm/setup"
	"atelier/internal/service/llm/streaming"
	studioSvc "atelier/internal/service/studio"
	"atelier/internal/service/user"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	// Load configuration
	cfg := config.Load()

	// Setup structured logging
	logLevel := slog.LevelInfo
	if cfg.Environment == "dev" {
		logLevel = slog.LevelDebug
	}

	var logWriter io.Writer = os.Stdout
	if cfg.LogDir != "" {
		logFile, err := config.SetupLogFile(cfg.LogDir, 5)
		if err != nil {
			log.Printf("warning: file logging disabled: %v", err)
		} else {
			defer logFile.Close()
			logWriter = io.MultiWriter(os.Stdout, logFile)
		}
	}

	logger := slog.New(slog.NewJSONHandler(logWriter, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger) // Set as default logger

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"table_prefix", cfg.TablePrefix,
	)

	// Create JWT verifier for Supabase authentication
	jwtVerifier, err := auth.NewJWTVerifier(cfg.SupabaseJWKSURL, logger)
	if err != nil {
		log.Fatalf("Failed to create JWT verifier: %v", err)
	}
	defer jwtVerifier.Close()

	// Create pgx connection pool
	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to create connection pool: %v", err)
	}
	defer pool.Close()

	logger.Info("database connected")

	// Create table names
	tables := postgres.NewTableNames(cfg.TablePrefix)

	// Create repositories
	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	}
	workspaceRepo := postgresLibrary.NewWorkspaceRepository(repoConfig)
	docRepo := postgresLibrary.NewDocumentRepository(repoConfig)
	folderRepo := postgresLibrary.NewFolderRepository(repoConfig)
	txManager := postgres.NewTransactionManager(pool)

	// Chat repositories
	chatRepo := postgresChat.NewChatRepository(repoConfig)
	turnRepo := postgresChat.NewTurnRepository(repoConfig)

	// User repositories
	userPrefsRepo := postgres.NewUserPreferencesRepository(repoConfig)
	providerKeyRepo := postgres.NewProviderKeyRepository(repoConfig)

	// Redis backs the studio response cache and the rate limiter. The
	// server still runs without it; both features degrade gracefully.
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logger.Warn("redis unavailable, response cache and rate limiting disabled", "error", err)
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	var responseCache *cache.ResponseCache
	var rateLimiter *cache.RateLimiter
	if redisClient != nil {
		responseCache = cache.NewResponseCache(redisClient,
			time.Duration(cfg.StudioCacheTTLSeconds)*time.Second, logger)
		rateLimiter = cache.NewRateLimiter(redisClient, cfg.RateLimitRPM, time.Minute, logger)
	}

	// User-supplied provider keys are sealed at rest; without a master key
	// the feature is off and requests fall back to server-configured keys.
	var keyService *user.ProviderKeyService
	var keySource streaming.ProviderKeySource
	if cfg.SecretsMasterKey != "" {
		box, err := secrets.NewBox(cfg.SecretsMasterKey)
		if err != nil {
			log.Fatalf("Failed to initialize secrets box: %v", err)
		}
		keyService = user.NewProviderKeyService(providerKeyRepo, box, logger)
		keySource = keyService
	} else {
		logger.Warn("SECRETS_MASTER_KEY not set, user provider keys disabled")
	}

	userPrefsService := user.NewPreferencesService(userPrefsRepo, logger)

	// Setup LLM providers
	providerRegistry, err := serviceLLM.SetupProviders(cfg, logger)
	if err != nil {
		log.Fatalf("Failed to setup LLM providers: %v", err)
	}

	// Initialize capability registry
	capabilityRegistry, err := capabilities.NewRegistry()
	if err != nil {
		log.Fatalf("Failed to initialize capability registry: %v", err)
	}
	logger.Info("capability registry initialized")

	// Setup chat services (chat, conversation, streaming)
	llmServices, err := llmsetup.New(
		chatRepo,
		turnRepo,
		workspaceRepo,
		docRepo,
		folderRepo,
		providerRegistry,
		keySource,
		cfg,
		txManager,
		capabilityRegistry,
		logger,
	)
	if err != nil {
		log.Fatalf("Failed to setup LLM services: %v", err)
	}

	// Create library services
	contentAnalyzer := librarySvc.NewContentAnalyzer()
	pathResolver := librarySvc.NewPathResolver(folderRepo, txManager)
	validator := librarySvc.NewResourceValidator(workspaceRepo, folderRepo)
	workspaceService := librarySvc.NewWorkspaceService(workspaceRepo, logger)
	docService := librarySvc.NewDocumentService(docRepo, folderRepo, contentAnalyzer, pathResolver, validator, logger)
	folderService := librarySvc.NewFolderService(folderRepo, docRepo, pathResolver, validator, logger)
	treeService := librarySvc.NewTreeService(folderRepo, docRepo, validator, logger)

	// Import pipeline: zip archives first, then individual files
	converterRegistry := converter.NewConverterRegistry()
	processors := librarySvc.NewFileProcessorRegistry()
	processors.Register(librarySvc.NewZipFileProcessor(docRepo, docService, converterRegistry, logger))
	processors.Register(librarySvc.NewIndividualFileProcessor(docRepo, docService, converterRegistry, logger))
	importService := librarySvc.NewImportService(processors, docRepo, pathResolver, validator, logger)

	// Studio one-shot service (the document service doubles as reader and
	// searcher for the summary and QA endpoints)
	modelResolver := serviceLLM.NewModelResolver(capabilityRegistry, cfg.DefaultProvider, cfg.DefaultModel)
	studioService := studioSvc.NewService(
		providerRegistry,
		keySource,
		modelResolver,
		responseCache,
		docService,
		docService,
		logger,
	)

	// Create handlers
	workspaceHandler := handler.NewWorkspaceHandler(workspaceService, logger)
	docHandler := handler.NewDocumentHandler(docService, logger)
	folderHandler := handler.NewFolderHandler(folderService, logger)
	treeHandler := handler.NewTreeHandler(treeService, logger)
	importHandler := handler.NewImportHandler(importService, logger)
	chatHandler := handler.NewChatHandler(
		llmServices.Chat,
		llmServices.Conversation,
		llmServices.Streaming,
		logger,
	)
	streamHandler := handler.NewStreamHandler(llmServices.Streaming, sse.DefaultConfig(), logger)
	studioHandler := handler.NewStudioHandler(studioService, logger)
	modelsHandler := handler.NewModelsHandler(cfg, logger, capabilityRegistry)
	usersHandler := handler.NewUsersHandler(keyService, logger)
	userPrefsHandler := handler.NewUserPreferencesHandler(userPrefsService, logger)
	healthHandler := handler.NewHealthHandler(pool, redisClient)

	logger.Info("services initialized")

	// Authenticated API router (Go 1.22+ enhanced patterns)
	api := http.NewServeMux()

	// Studio one-shot routes share a rate limit budget
	studioRoute := func(h http.HandlerFunc) http.Handler {
		if rateLimiter == nil {
			return h
		}
		return middleware.RateLimit(rateLimiter, "studio")(h)
	}
	api.Handle("POST /api/v1/model", studioRoute(studioHandler.Invoke))
	api.Handle("POST /api/v1/story", studioRoute(studioHandler.GenerateStory))
	api.Handle("POST /api/v1/names", studioRoute(studioHandler.GenerateNames))
	api.Handle("POST /api/v1/summaries", studioRoute(studioHandler.Summarize))
	api.Handle("POST /api/v1/reviews", studioRoute(studioHandler.ReviewCode))
	api.Handle("POST /api/v1/search", studioRoute(studioHandler.AnswerQuestion))

	// Model capabilities
	api.HandleFunc("GET /api/v1/models", modelsHandler.GetCapabilities)

	// User routes
	api.HandleFunc("GET /api/v1/users/me", usersHandler.Me)
	api.HandleFunc("GET /api/v1/users/me/preferences", userPrefsHandler.GetPreferences)
	api.HandleFunc("PATCH /api/v1/users/me/preferences", userPrefsHandler.UpdatePreferences)
	if keyService != nil {
		api.HandleFunc("GET /api/v1/users/me/keys", usersHandler.ListKeys)
		api.HandleFunc("PUT /api/v1/users/me/keys/{provider}", usersHandler.StoreKey)
		api.HandleFunc("DELETE /api/v1/users/me/keys/{provider}", usersHandler.DeleteKey)
	}

	// Workspace routes
	api.HandleFunc("POST /api/v1/workspaces", workspaceHandler.Create)
	api.HandleFunc("GET /api/v1/workspaces", workspaceHandler.List)
	api.HandleFunc("GET /api/v1/workspaces/{id}", workspaceHandler.Get)
	api.HandleFunc("PATCH /api/v1/workspaces/{id}", workspaceHandler.Update)
	api.HandleFunc("DELETE /api/v1/workspaces/{id}", workspaceHandler.Delete)
	api.HandleFunc("GET /api/v1/workspaces/{id}/tree", treeHandler.GetTree)
	api.HandleFunc("GET /api/v1/workspaces/{id}/search", docHandler.Search)
	api.HandleFunc("POST /api/v1/workspaces/{id}/import", importHandler.Import)

	// Folder routes
	api.HandleFunc("POST /api/v1/workspaces/{id}/folders", folderHandler.Create)
	api.HandleFunc("GET /api/v1/workspaces/{id}/folders", folderHandler.ListRoot)
	api.HandleFunc("GET /api/v1/workspaces/{id}/folders/{folderID}", folderHandler.Get)
	api.HandleFunc("PATCH /api/v1/workspaces/{id}/folders/{folderID}", folderHandler.Update)
	api.HandleFunc("DELETE /api/v1/workspaces/{id}/folders/{folderID}", folderHandler.Delete)

	// Document routes
	api.HandleFunc("POST /api/v1/workspaces/{id}/documents", docHandler.Create)
	api.HandleFunc("GET /api/v1/workspaces/{id}/documents/{docID}", docHandler.Get)
	api.HandleFunc("PATCH /api/v1/workspaces/{id}/documents/{docID}", docHandler.Update)
	api.HandleFunc("DELETE /api/v1/workspaces/{id}/documents/{docID}", docHandler.Delete)

	// Chat routes
	api.HandleFunc("POST /api/v1/workspaces/{id}/chats", chatHandler.CreateChat)
	api.HandleFunc("GET /api/v1/workspaces/{id}/chats", chatHandler.ListChats)
	api.HandleFunc("GET /api/v1/chats/{id}", chatHandler.GetChat)
	api.HandleFunc("PATCH /api/v1/chats/{id}", chatHandler.UpdateChat)
	api.HandleFunc("DELETE /api/v1/chats/{id}", chatHandler.DeleteChat)
	api.HandleFunc("GET /api/v1/chats/{id}/tree", chatHandler.GetChatTree)
	api.HandleFunc("GET /api/v1/chats/{id}/turns", chatHandler.GetPaginatedTurns)
	api.HandleFunc("POST /api/v1/chats/{id}/turns", chatHandler.CreateTurn)
	api.HandleFunc("GET /api/v1/turns/{id}/path", chatHandler.GetTurnPath)
	api.HandleFunc("GET /api/v1/turns/{id}/siblings", chatHandler.GetTurnSiblings)

	// Streaming routes
	api.HandleFunc("GET /api/v1/turns/{id}/stream", streamHandler.StreamTurn)
	api.HandleFunc("GET /api/v1/turns/{id}/blocks", chatHandler.GetTurnBlocks)
	api.HandleFunc("GET /api/v1/turns/{id}/token-usage", chatHandler.GetTurnTokenUsage)
	api.HandleFunc("POST /api/v1/turns/{id}/interrupt", chatHandler.InterruptTurn)

	// Debug routes (only in dev environment)
	if cfg.Environment == "dev" {
		chatDebugHandler := handler.NewChatDebugHandler(llmServices.Streaming, logger)
		api.HandleFunc("POST /api/v1/chats/{id}/turns/debug", chatDebugHandler.DebugTurnRequest)
		logger.Warn("Debug route registered: POST /api/v1/chats/{id}/turns/debug (provider request preview)")
	}

	// Metrics sits directly around the API mux so r.Pattern is populated;
	// auth wraps the whole authenticated surface above it.
	var apiHandler http.Handler = middleware.Metrics(api)
	apiHandler = middleware.AuthMiddleware(jwtVerifier)(apiHandler)

	// Root router: health and Prometheus scrapes stay unauthenticated
	root := http.NewServeMux()
	root.HandleFunc("GET /health", healthHandler.Health)
	root.Handle("GET /metrics", promhttp.Handler())
	root.Handle("/api/v1/", apiHandler)

	// Build middleware chain (reverse order, they wrap each other)
	// Order: CORS → Recovery → Auth (API only) → Routes
	var httpHandler http.Handler = root
	httpHandler = middleware.Recovery(logger)(httpHandler)

	// CORS - Must be before auth to handle OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization", "Last-Event-ID"},
		AllowCredentials: true,
	})
	httpHandler = corsHandler.Handler(httpHandler)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      httpHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // Disabled to allow long-lived SSE streams
		IdleTimeout:  60 * time.Second,
	}

	// Start server with graceful shutdown on SIGINT/SIGTERM
	shutdownCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("listening", "port", cfg.Port)
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	case <-shutdownCtx.Done():
		logger.Info("shutdown signal received, draining connections")
		drainCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(drainCtx); err != nil {
			logger.Error("graceful shutdown failed", "error", err)
		}
	}
}
