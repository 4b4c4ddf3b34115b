package http

import (
	"github.com/gin-gonic/gin"
)

func SetupRoutes(router *gin.Engine, handler *Handler) {
	api := router.Group("/api/v1")
	{
		api.GET("/valuations", handler.ListValuations)
		api.GET("/summary", handler.GetSummary)
		api.POST("/cycles", handler.TriggerCycle)
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
}
