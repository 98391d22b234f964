package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joshua-takyi/secretspace/internal/helpers"
	"github.com/joshua-takyi/secretspace/internal/models"
	"github.com/joshua-takyi/secretspace/internal/services"
)

func CreateUser(us *services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var creds models.Credentials
		if err := c.ShouldBindJSON(&creds); err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse(err.Error()))
			return
		}

		user, err := us.CreateUser(c.Request.Context(), &creds)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusCreated, models.SuccessResponse(user, "User created successfully"))
	}
}

func AuthenticateUser(us *services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var creds models.Credentials
		if err := c.ShouldBindJSON(&creds); err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse(err.Error()))
			return
		}

		res, err := us.AuthenticateUser(c.Request.Context(), &creds)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, res)
	}
}

// Me confirms the token's user still exists before echoing its identity.
func Me(us *services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := identity(c)
		if !ok {
			return
		}
		user, err := us.GetUser(c.Request.Context(), id.UserID)
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				c.JSON(http.StatusUnauthorized, models.ErrorResponse("user no longer exists"))
				return
			}
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, helpers.Identity{UserID: user.ID, Username: user.Username})
	}
}
