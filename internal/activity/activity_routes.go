package activity

import (
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"go-presence/internal/middleware"
)

func RegisterRoutes(r *gin.RouterGroup, h *Handler) {
	activities := r.Group("/activities")
	activities.Use(middleware.AuthMiddleware())
	activities.Use(middleware.RateLimitByEmployee(rate.Limit(5), 10))
	{
		activities.GET("", h.GetHistory)
		activities.GET("/current", h.GetCurrent)
		activities.POST("/start", h.Start)
		activities.POST("/on-desk", h.GoOnDesk)
	}
}
