package routes

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joshua-takyi/secretspace/internal/container"
	"github.com/joshua-takyi/secretspace/internal/handlers"
	"github.com/joshua-takyi/secretspace/internal/middleware"
	"github.com/joshua-takyi/secretspace/internal/models"
)

const (
	jsonBodyLimit      = 10 << 20
	multipartBodyLimit = models.MaxImagesPerPlace*models.MaxImageBytes + 1<<20
)

// SetupRoutes configures all routes with the dependency container
func SetupRoutes(container *container.Container) *gin.Engine {
	if container.Config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.MaxMultipartMemory = 8 << 20

	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
	}
	if len(container.Config.CORSOrigins) == 1 && container.Config.CORSOrigins[0] == "*" {
		corsConfig.AllowOriginFunc = func(origin string) bool { return true }
	} else {
		corsConfig.AllowOrigins = container.Config.CORSOrigins
	}
	r.Use(cors.New(corsConfig))

	// Add middleware
	r.Use(middleware.RequestID())
	r.Use(middleware.StructuredLogger(container.Logger))
	r.Use(middleware.ErrorHandler(container.Logger))
	r.Use(gin.Recovery())

	auth := middleware.AuthMiddleware(container.Tokens, container.Logger)
	jsonLimit := middleware.BodyLimit(jsonBodyLimit)
	formLimit := middleware.BodyLimit(multipartBodyLimit)

	ps := container.PlaceService
	ss := container.SuggestionService

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "OK",
			"service": "secretspace-api",
		})
	})

	// public routes
	r.POST("/users", jsonLimit, handlers.CreateUser(container.UserService))
	r.POST("/auth/login", jsonLimit, handlers.AuthenticateUser(container.UserService))
	r.GET("/auth/me", auth, handlers.Me(container.UserService))

	placeRoutes := r.Group("/places")
	{
		placeRoutes.GET("/nearby", handlers.ListNearby(ps))
		placeRoutes.GET("/images/:imageId", handlers.GetImage(ps))
		placeRoutes.GET("/:id", handlers.GetPlace(ps))
		placeRoutes.GET("/:id/comments", handlers.ListComments(ps))
		placeRoutes.GET("/:id/rating", handlers.GetAverageRating(ps))

		placeRoutes.GET("", auth, handlers.ListMyPlaces(ps))
		placeRoutes.POST("", auth, formLimit, handlers.CreatePlace(ps))
		placeRoutes.PUT("/:id", auth, formLimit, handlers.UpdatePlace(ps))
		placeRoutes.DELETE("/:id", auth, handlers.DeletePlace(ps))
		placeRoutes.POST("/comments", auth, jsonLimit, handlers.CreateComment(ps))
		placeRoutes.POST("/ratings", auth, jsonLimit, handlers.CreateRating(ps))
	}

	aiRoutes := r.Group("/ai")
	{
		aiRoutes.GET("/check-location", handlers.CheckLocation(ss))
		aiRoutes.GET("/suggest-places", auth, handlers.SuggestPlaces(ss))
		aiRoutes.POST("/add-place", auth, formLimit, handlers.AddSuggestedPlace(ss))
		aiRoutes.GET("/history", auth, handlers.SuggestionHistory(ss))
	}

	return r
}
