package controller

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tnqbao/gau-focus-service/utils"
)

func (ctrl *Controller) HealthCheck(c *gin.Context) {
	utils.JSON200(c, gin.H{
		"message":    "Focus Session API is running",
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"version":    ctrl.Config.EnvConfig.Version,
		"activeRuns": ctrl.Coordinator.ActiveRuns(),
	})
}

func (ctrl *Controller) Welcome(c *gin.Context) {
	utils.JSON200(c, gin.H{
		"message": "Welcome to the Focus Session API",
		"version": ctrl.Config.EnvConfig.Version,
		"features": []string{
			"Focus session tracking",
			"Simulated media processing",
			"Presigned cloud storage URLs",
			"Processing logs",
			"API key and bearer token authentication",
			"Rate limiting",
		},
		"endpoints": gin.H{
			"health": "GET /api/health",
			"create": "POST /api/focus-session",
			"list":   "GET /api/focus-session",
			"get":    "GET /api/focus-session/:id",
			"logs":   "GET /api/focus-session/:id/logs",
			"resume": "POST /api/focus-session/:id/resume",
		},
		"authentication": "Send your key in the x-api-key header or the apiKey query parameter",
	})
}
