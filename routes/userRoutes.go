package routes

import (
	"github.com/gin-gonic/gin"
)

// UserRoutes sets up the user directory and lookup table routes
func UserRoutes(r *gin.Engine, h *Handlers) {
	api := r.Group("/api", h.requireAuth())
	{
		api.GET("/users", h.Lookups.GetAllUsers)
		api.GET("/categories", h.Lookups.GetCategories)
		api.GET("/statuses", h.Lookups.GetStatuses)
		api.GET("/priorities", h.Lookups.GetPriorities)
	}
}
