package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/joshua-takyi/secretspace/internal/config"
	"github.com/joshua-takyi/secretspace/internal/connect"
	"github.com/joshua-takyi/secretspace/internal/container"
	"github.com/joshua-takyi/secretspace/internal/helpers"
	"github.com/joshua-takyi/secretspace/internal/models"
	"github.com/joshua-takyi/secretspace/internal/routes"
	"go.mongodb.org/mongo-driver/mongo"
)

func main() {
	// Load environment variables
	_ = godotenv.Load(".env.local")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup logger
	logger := setupLogger(cfg)
	logger.Info("Starting SecretSpace API server", "environment", cfg.Environment)

	if !cfg.HasMapsKey() {
		logger.Warn("GOOGLE_MAPS_API_KEY is not set; suggestions will have no photos or map images")
	}

	// Initialize database connections
	db, err := connect.PostgresConnect(cfg)
	if err != nil {
		logger.Error("Failed to connect to Postgres", "error", err)
		os.Exit(1)
	}
	logger.Info("Connected to Postgres successfully")

	if err := models.PostgresNewRepo(db).Migrate(); err != nil {
		logger.Error("Failed to migrate schema", "error", err)
		os.Exit(1)
	}

	var mongoClient *mongo.Client
	if cfg.HistoryEnabled() {
		mongoClient, err = connect.MongoDBConnect(cfg)
		if err != nil {
			logger.Error("Failed to connect to MongoDB", "error", err)
			os.Exit(1)
		}
		logger.Info("Connected to MongoDB successfully")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := models.MongodbNewRepo(mongoClient).EnsureIndexes(ctx); err != nil {
			logger.Warn("Failed to create suggestion history indexes", "error", err)
		}
		cancel()
	}

	mirror, err := setupMirror(cfg)
	if err != nil {
		logger.Error("Failed to initialize image mirror", "mirror", cfg.ImageMirror, "error", err)
		os.Exit(1)
	}

	// Initialize dependency container
	appContainer, err := container.NewContainer(cfg, logger, db, mongoClient, mirror)
	if err != nil {
		logger.Error("Failed to build application container", "error", err)
		os.Exit(1)
	}

	// Setup routes
	router := routes.SetupRoutes(appContainer)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Server is shutting down...")

	// Give outstanding requests 30 seconds to complete
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	appContainer.Close()
	connect.Disconnect(logger)

	logger.Info("Server exited")
}

func setupMirror(cfg *config.Config) (helpers.ImageMirror, error) {
	switch cfg.ImageMirror {
	case config.MirrorCloudinary:
		cld, err := connect.CloudinaryCredentials(cfg)
		if err != nil {
			return nil, err
		}
		return helpers.NewCloudinaryMirror(cld), nil
	case config.MirrorSupabase:
		client, err := connect.InitSupabase(cfg)
		if err != nil {
			return nil, err
		}
		return helpers.NewSupabaseMirror(client, cfg.SupabaseBucket), nil
	default:
		return nil, nil
	}
}

func setupLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	if cfg.IsProduction() {
		// JSON logging for production
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	} else {
		// Human-readable logging for development
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}

	return slog.New(handler)
}
