package container

import (
	"fmt"
	"log/slog"

	"github.com/joshua-takyi/secretspace/internal/config"
	"github.com/joshua-takyi/secretspace/internal/helpers"
	"github.com/joshua-takyi/secretspace/internal/llm"
	"github.com/joshua-takyi/secretspace/internal/maps"
	"github.com/joshua-takyi/secretspace/internal/models"
	"github.com/joshua-takyi/secretspace/internal/services"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"
)

// Container holds all application dependencies
type Container struct {
	Config *config.Config
	Logger *slog.Logger
	Tokens *helpers.TokenManager

	UserService       *services.UserService
	PlaceService      *services.PlaceService
	SuggestionService *services.SuggestionService
}

// NewContainer creates a new dependency injection container. mongoClient
// and mirror may be nil.
func NewContainer(
	cfg *config.Config,
	logger *slog.Logger,
	db *gorm.DB,
	mongoClient *mongo.Client,
	mirror helpers.ImageMirror,
) (*Container, error) {
	tokens, err := helpers.NewTokenManager(cfg.JWTSecret, cfg.JWTExpiresIn, cfg.JWKSURL)
	if err != nil {
		return nil, err
	}

	// Initialize repositories
	pg := models.PostgresNewRepo(db)

	var history models.SuggestionHistoryRepo
	if mongoClient != nil {
		history = models.MongodbNewRepo(mongoClient)
	}

	var photos maps.PhotoFinder
	if cfg.HasMapsKey() {
		mc, err := maps.NewClient(cfg.GoogleMapsAPIKey, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create maps client: %w", err)
		}
		photos = mc
	}

	completer := llm.NewClient(cfg.DeepSeekAPIKey, cfg.DeepSeekBaseURL, cfg.DeepSeekModel)

	userService := services.NewUserService(pg, tokens)
	placeService := services.NewPlaceService(pg, mirror, logger)
	suggestionService := services.NewSuggestionService(
		completer,
		photos,
		cfg.GoogleMapsAPIKey,
		placeService,
		history,
		cfg.RejectOutOfBounds,
		logger,
	)

	return &Container{
		Config:            cfg,
		Logger:            logger,
		Tokens:            tokens,
		UserService:       userService,
		PlaceService:      placeService,
		SuggestionService: suggestionService,
	}, nil
}

func (c *Container) Close() {
	c.Tokens.Close()
}
