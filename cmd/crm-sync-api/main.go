package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"careops/backend/internal/api"
	"careops/backend/internal/api/handlers"
	"careops/backend/internal/auth"
	"careops/backend/internal/closecrm"
	"careops/backend/internal/config"
	"careops/backend/internal/db"
	"careops/backend/internal/health"
	"careops/backend/internal/logger"
	"careops/backend/internal/repository"
	"careops/backend/internal/resolver"
	"careops/backend/internal/scheduler"
	"careops/backend/internal/service"

	"github.com/gin-gonic/gin"
)

func main() {
	// Load and validate configuration first (before logger)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize structured logger with configuration
	logger.Init(cfg.Logger)

	logger.Info().
		Str("environment", cfg.Logger.Environment).
		Str("log_level", cfg.Logger.Level).
		Msg("configuration loaded successfully")

	// Run migrations before connecting to database
	logger.Info().Msg("running database migrations")
	if err := db.RunMigrations(cfg.Database.URL, cfg.Database.MigrationsPath); err != nil {
		logger.Fatal().Err(err).Msg("failed to run migrations")
	}

	// Initialize database
	ctx := context.Background()
	database, err := db.NewDatabase(ctx, cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer database.Close()

	logger.Info().Msg("database connected successfully")

	// Initialize repositories
	userRepo := repository.NewUserRepository(database.Pool)
	staffRepo := repository.NewStaffContactRepository(database.Pool)
	threadRepo := repository.NewThreadRepository(database.Pool)
	messageRepo := repository.NewMessageRepository(database.Pool)
	statusRepo := repository.NewSyncStatusRepository(database.Pool)

	// Initialize the Close client and resolver
	closeClient := closecrm.New(cfg.Close)
	contactResolver := resolver.New(closeClient)

	// Initialize services
	historyService := service.NewHistorySyncService(
		closeClient, contactResolver, statusRepo, staffRepo, threadRepo, messageRepo, cfg.Sync)
	lookupService := service.NewLookupService(closeClient, contactResolver, cfg.Sync)
	directoryService := service.NewDirectoryService(closeClient, staffRepo)
	outboundService := service.NewOutboundService(closeClient, threadRepo, messageRepo)

	// Initialize handlers
	syncHandler := handlers.NewSyncHandler(historyService, statusRepo)
	lookupHandler := handlers.NewLookupHandler(lookupService)
	messageHandler := handlers.NewMessageHandler(outboundService)
	directoryHandler := handlers.NewDirectoryHandler(directoryService, staffRepo)
	threadHandler := handlers.NewThreadHandler(threadRepo, messageRepo)
	userHandler := handlers.NewUserHandler(userRepo)

	// Initialize and start the directory sync scheduler
	cronScheduler := scheduler.NewScheduler(directoryService, cfg.Sync.DirectoryCronSpec)
	if err := cronScheduler.Start(); err != nil {
		logger.Fatal().Err(err).Msg("failed to start scheduler")
	}
	defer cronScheduler.Stop()

	// Set up Gin router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(api.RequestIDMiddleware())
	router.Use(api.LoggingMiddleware())
	router.Use(api.CORSMiddleware(cfg.CORS))
	router.Use(api.ErrorHandlerMiddleware())

	// Health check endpoint
	healthChecker := health.NewHealthChecker(database, cfg.Database.HealthTimeout)
	router.GET("/health", healthChecker.Handler)

	// API routes
	v1 := router.Group("/api/v1")
	v1.Use(auth.SessionMiddleware(userRepo))
	{
		syncRoutes := v1.Group("/sync")
		{
			syncRoutes.POST("/history", syncHandler.SyncHistory)
			syncRoutes.GET("/status", syncHandler.GetSyncStatus)
			syncRoutes.GET("/runs", syncHandler.GetSyncRuns)
		}

		crm := v1.Group("/crm")
		{
			crm.POST("/lookup", lookupHandler.Lookup)
			crm.POST("/contacts/sync", directoryHandler.SyncContacts)
		}

		threads := v1.Group("/threads")
		{
			threads.GET("", threadHandler.ListThreads)
			threads.GET("/:id/messages", threadHandler.ListMessages)
		}

		v1.POST("/messages/send", messageHandler.SendMessage)
		v1.GET("/staff", directoryHandler.ListStaff)
		v1.GET("/me", userHandler.Me)
	}

	// Start server with configured bind address
	addr := cfg.GetBindAddress()
	// Use a listener so we can discover the selected port when PORT=0
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		logger.Fatal().Err(err).Str("addr", addr).Msg("failed to bind listener")
	}

	tcpAddr, ok := ln.Addr().(*net.TCPAddr)
	if !ok {
		_ = ln.Close()
		logger.Fatal().Msg("failed to determine TCP address")
	}
	selectedPort := tcpAddr.Port

	srv := &http.Server{
		Addr:    ln.Addr().String(),
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		logger.Info().
			Int("port", selectedPort).
			Str("addr", cfg.Server.Host).
			Msg("starting server")
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down server")

	// Give outstanding requests a configured timeout to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server exited")

	// Print the selected port on graceful exit for supervising processes
	fmt.Printf("PORT=%d\n", selectedPort)
}
