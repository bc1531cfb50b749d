package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/tnqbao/gau-focus-service/http/controller"
	middlewares "github.com/tnqbao/gau-focus-service/http/middleware"
	"github.com/tnqbao/gau-focus-service/utils"
)

func SetupRouter(ctrl *controller.Controller) *gin.Engine {
	r := gin.Default()
	middles, err := middlewares.NewMiddlewares(ctrl)
	if err != nil {
		panic(err)
	}

	r.Use(middles.CORSMiddleware)

	r.GET("/", ctrl.Welcome)
	r.GET("/api/health", ctrl.HealthCheck)

	sessionRoutes := r.Group("/api/focus-session")
	{
		sessionRoutes.Use(middles.AuthMiddleware)

		sessionRoutes.POST("", middles.RateLimitMiddleware, ctrl.CreateFocusSession)
		sessionRoutes.GET("", ctrl.ListFocusSessions)
		sessionRoutes.GET("/:id", ctrl.GetFocusSession)
		sessionRoutes.GET("/:id/logs", ctrl.GetFocusSessionLogs)
		sessionRoutes.POST("/:id/resume", ctrl.ResumeFocusSession)
	}

	r.NoRoute(func(c *gin.Context) {
		utils.JSON404(c, "Endpoint not found: "+c.Request.Method+" "+c.Request.URL.Path)
	})

	return r
}
