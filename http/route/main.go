package route

import (
	"github.com/gin-gonic/gin"

	"github.com/vidlingo/dub-orchestrator/http/controller"
	middlewares "github.com/vidlingo/dub-orchestrator/http/middleware"
)

func SetupRouter(ctrl *controller.Controller, mw *middlewares.Middlewares) *gin.Engine {
	r := gin.Default()
	r.Use(mw.CORSMiddleware)

	r.GET("/healthz", ctrl.HealthCheck)

	api := r.Group("/api/v1/dub")
	api.Use(mw.AuthMiddleware)
	{
		api.POST("/videos/:id/submit", ctrl.SubmitDub)
		api.GET("/videos/:id/status", ctrl.GetVideoDubStatus)
		api.DELETE("/videos/:id", ctrl.CancelDub)
		api.POST("/videos/:id/regenerate", ctrl.RegenerateDub)

		api.GET("/jobs", ctrl.ListDubJobs)
		api.GET("/jobs/:job_id", ctrl.GetDubJob)
		api.POST("/jobs/:job_id/retry", ctrl.RetryDubJob)
	}

	return r
}
