package user

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"taskmate/controller"
	"taskmate/dto"
	"taskmate/services"
)

func UserController(router *gin.Engine, env *controller.Env) {
	routes := router.Group("/users", env.Auth)
	{
		routes.GET("/me", func(c *gin.Context) {
			GetProfile(c, env)
		})
		routes.PUT("/me", func(c *gin.Context) {
			RegisterProfile(c, env)
		})
	}
}

// GetProfile returns the caller's stored profile. Registered is false until
// PUT /users/me has been called, and others cannot share with the caller
// before that.
func GetProfile(c *gin.Context, env *controller.Env) {
	sess, ok := controller.RequireSession(c)
	if !ok {
		return
	}
	p, found, err := env.Users.Profile(c.Request.Context(), sess)
	if err != nil {
		controller.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ProfileResponse{UserProfile: p, Registered: found})
}

func RegisterProfile(c *gin.Context, env *controller.Env) {
	sess, ok := controller.RequireSession(c)
	if !ok {
		return
	}
	var req dto.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	p, err := env.Users.Register(c.Request.Context(), sess, services.ProfileUpdate{
		DisplayName: req.DisplayName,
		PhotoURL:    req.PhotoURL,
	})
	if err != nil {
		controller.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ProfileResponse{UserProfile: p, Registered: true})
}
