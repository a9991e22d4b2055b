package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/movelabs/movescout/internal/githubapi"
	"github.com/movelabs/movescout/internal/handlers"
	"github.com/movelabs/movescout/internal/middleware"
	"github.com/movelabs/movescout/internal/services"
	"github.com/movelabs/movescout/pkg/config"
	"github.com/movelabs/movescout/pkg/logger"
	"github.com/movelabs/movescout/pkg/ratelimit"
)

func main() {
	// Set Gin mode
	gin.SetMode(gin.ReleaseMode)

	// Load configuration; a missing GitHub token is fatal before serving
	if err := config.Load(); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	cfg := config.AppConfig

	logger.Init(cfg.LogLevel)

	// One limiter shared by every outbound call of every pipeline run
	limiter := ratelimit.New(cfg.SearchPageDelay, cfg.RepoFetchDelay)
	client, err := githubapi.New(cfg.GithubToken, limiter, cfg.HTTPClientTimeout)
	if err != nil {
		log.Fatalf("Failed to create GitHub client: %v", err)
	}

	// Initialize pipeline services
	searchPager := githubapi.Pager{Delay: cfg.SearchPageDelay}
	repoPager := githubapi.Pager{Delay: cfg.RepoFetchDelay}

	searchDiscovery := services.NewSearchDiscoveryService(client, searchPager, cfg.MaxSearchPages, cfg.OversampleFactor)
	accountDiscovery := services.NewAccountDiscoveryService(client, repoPager)
	detector, err := services.NewDetectorService(client, cfg.DetectionCacheSize, cfg.Concurrency)
	if err != nil {
		log.Fatalf("Failed to create detector: %v", err)
	}
	aggregator := services.NewAggregatorService(client, repoPager, cfg.Concurrency)
	reports := services.NewReportService(searchDiscovery, accountDiscovery, detector, aggregator, cfg.ScanFactor, cfg.PipelineTimeout)

	// Initialize router
	router := gin.Default()
	router.Use(middleware.CORS())
	setupRoutes(router, reports)

	// Setup server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		log.Printf("Server starting on :%s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	log.Println("Server stopped")
}

func setupRoutes(router *gin.Engine, reports *services.ReportService) {
	homeHandler := handlers.NewHomeHandler()
	userHandler := handlers.NewUserHandler(reports)
	healthHandler := handlers.NewHealthHandler()

	router.GET("/", homeHandler.Index)
	router.GET("/sui-move-users", userHandler.ListMoveUsers)
	router.GET("/users/:username/move-files", userHandler.UserMoveFiles)
	router.GET("/health", healthHandler.HealthCheck)
}
