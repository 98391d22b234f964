package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/joshua-takyi/secretspace/internal/models"
	"github.com/joshua-takyi/secretspace/internal/services"
)

// upstreamError reports a failure of the suggestion flow. Bad input keeps
// its 400; everything else is a 500 with a prefixed message.
func upstreamError(c *gin.Context, prefix string, err error) {
	if errors.Is(err, models.ErrInvalidInput) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": prefix + err.Error()})
}

func SuggestPlaces(ss *services.SuggestionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := identity(c)
		if !ok {
			return
		}
		lat, err := queryFloat(c, "lat")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid coordinates"})
			return
		}
		lng, err := queryFloat(c, "lng")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid coordinates"})
			return
		}

		places, err := ss.SuggestPlaces(c.Request.Context(), id.UserID, lat, lng, c.Query("preferences"))
		if err != nil {
			upstreamError(c, "Failed to get AI suggestions: ", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"places": places})
	}
}

func AddSuggestedPlace(ss *services.SuggestionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := identity(c)
		if !ok {
			return
		}
		var sp models.SuggestedPlace
		if err := c.ShouldBindJSON(&sp); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		place, err := ss.AddSuggestedPlace(c.Request.Context(), id.UserID, &sp)
		if err != nil {
			upstreamError(c, "Failed to add AI suggested place: ", err)
			return
		}
		c.JSON(http.StatusCreated, models.SuccessResponse(place, "Place added successfully"))
	}
}

func CheckLocation(ss *services.SuggestionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		lat, err := queryFloat(c, "lat")
		if err != nil {
			respondError(c, err)
			return
		}
		lng, err := queryFloat(c, "lng")
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, ss.CheckLocation(lat, lng))
	}
}

// queryInt reads an optional integer parameter; absent means 0.
func queryInt(c *gin.Context, key string) (int, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, invalidInput("%s must be an integer", key)
	}
	return v, nil
}

func SuggestionHistory(ss *services.SuggestionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := identity(c)
		if !ok {
			return
		}
		page, err := queryInt(c, "page")
		if err != nil {
			respondError(c, err)
			return
		}
		limit, err := queryInt(c, "limit")
		if err != nil {
			respondError(c, err)
			return
		}

		history, err := ss.ListHistory(c.Request.Context(), id.UserID, page, limit)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.PaginatedResponse(history.Records, history.Page, history.Limit, history.Total))
	}
}
