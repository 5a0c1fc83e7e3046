package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"reports-service/internal/config"
	"reports-service/internal/events"
	"reports-service/internal/handlers"
	"reports-service/internal/importer"
	"reports-service/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title Reports Catalog API
// @version 1.0.0
// @description Bulk import of market-research reports and the category taxonomy they are filed under

// @host localhost:8085
// @BasePath /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

type redisPinger struct {
	client *redis.Client
}

func (p redisPinger) PingContext(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg := config.Load()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if cfg.Environment == "production" {
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(logrus.DebugLevel)
	}
	appLog := logrus.NewEntry(logger).WithField("service", "reports-service")

	stores, err := config.OpenStores(cfg)
	if err != nil {
		log.Fatal("Failed to initialize storage:", err)
	}
	defer stores.Close()
	log.Printf("✓ Storage initialized (%s)", cfg.StorageDriver)

	if err := os.MkdirAll(cfg.UploadDir, 0o750); err != nil {
		log.Fatal("Failed to create upload directory:", err)
	}

	// Events are optional; imports run the same without them
	var notifier importer.Notifier
	var eventsPublisher *events.Publisher
	if cfg.NATSURL != "" {
		eventsPublisher, err = events.NewPublisher(cfg.NATSURL, logger)
		if err != nil {
			log.Printf("WARNING: Failed to initialize events publisher: %v (events won't be published)", err)
		} else {
			notifier = eventsPublisher
			log.Println("✓ NATS events publisher initialized")
		}
	}

	pipeline := importer.NewPipeline(stores.Catalog, stores.Taxonomy, notifier, cfg.ImportOptions(), appLog)

	importHandler := handlers.NewImportHandler(pipeline, cfg.UploadDir, cfg.MaxUploadMB, appLog)
	categoryHandler := handlers.NewCategoryHandler(stores.Taxonomy, appLog)

	readiness := map[string]handlers.Pinger{}
	if stores.DB != nil {
		if sqlDB, err := stores.DB.DB(); err == nil {
			readiness["database"] = sqlDB
		}
	}
	if stores.Redis != nil {
		readiness["redis"] = redisPinger{client: stores.Redis}
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.CORSOrigins))

	// Health check endpoints (no auth required)
	router.GET("/health", handlers.HealthCheck)
	router.GET("/ready", handlers.ReadyCheck(readiness))

	if cfg.JWTSecret == "" {
		log.Println("WARNING: JWT_SECRET is empty, API authentication is disabled")
	}
	api := router.Group("/api")
	api.Use(middleware.AuthMiddleware(cfg.JWTSecret))
	{
		reports := api.Group("/reports")
		reports.Use(middleware.RequireAnyRole(cfg.JWTSecret, "admin", "editor"))
		{
			reports.POST("/bulk-upload", importHandler.BulkUpload)
			reports.POST("/check-duplicates", importHandler.CheckDuplicates)
			reports.GET("/import/template", importHandler.GetImportTemplate)
		}

		categories := api.Group("/categories")
		{
			categories.GET("", categoryHandler.GetCategoryList)
			categories.GET("/:slug", categoryHandler.GetCategory)
		}
	}

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Reports service starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server:", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down reports-service...")

	// In-flight imports get time to finish their current run
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("WARNING: Server shutdown: %v", err)
	}

	if eventsPublisher != nil {
		eventsPublisher.Close()
		log.Println("✓ Events publisher closed")
	}

	log.Println("Reports service stopped")
}
