package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joshua-takyi/secretspace/internal/models"
	"github.com/joshua-takyi/secretspace/internal/services"
)

func CreateComment(ps *services.PlaceService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := identity(c)
		if !ok {
			return
		}
		var req models.CommentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse(err.Error()))
			return
		}

		comment, err := ps.AddComment(c.Request.Context(), id.UserID, &req)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, models.SuccessResponse(comment, "Comment added successfully"))
	}
}

func ListComments(ps *services.PlaceService) gin.HandlerFunc {
	return func(c *gin.Context) {
		placeID, ok := uuidParam(c, "id")
		if !ok {
			return
		}
		comments, err := ps.ListComments(c.Request.Context(), placeID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(comments, ""))
	}
}

func CreateRating(ps *services.PlaceService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := identity(c)
		if !ok {
			return
		}
		var req models.RatingRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse(err.Error()))
			return
		}

		rating, err := ps.AddRating(c.Request.Context(), id.UserID, &req)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, models.SuccessResponse(rating, "Rating added successfully"))
	}
}

func GetAverageRating(ps *services.PlaceService) gin.HandlerFunc {
	return func(c *gin.Context) {
		placeID, ok := uuidParam(c, "id")
		if !ok {
			return
		}
		avg, err := ps.AverageRating(c.Request.Context(), placeID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"average": avg})
	}
}
