package routes

import (
	"github.com/gin-gonic/gin"
)

// AuthRoutes sets up the authentication routes
func AuthRoutes(r *gin.Engine, h *Handlers) {
	auth := r.Group("/api/auth")
	{
		auth.POST("/register", h.Auth.RegisterUser)
		auth.POST("/login", h.Auth.LoginUser)
		auth.POST("/refresh", h.Auth.RefreshToken)
		auth.POST("/logout", h.Auth.LogoutUser)
		auth.GET("/me", h.requireAuth(), h.Auth.GetMe)
	}
}
