package controller

import (
	"github.com/gin-gonic/gin"

	"github.com/vidlingo/dub-orchestrator/utils"
)

// HealthCheck reports on the orchestrator's backing services.
func (ctrl *Controller) HealthCheck(c *gin.Context) {
	ctx := c.Request.Context()
	checks := gin.H{}
	healthy := true

	if sqlDB, err := ctrl.Infra.Postgres.DB.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
		checks["postgres"] = "unreachable"
		healthy = false
	} else {
		checks["postgres"] = "ok"
	}

	if err := ctrl.Infra.Redis.Client.Ping(ctx).Err(); err != nil {
		checks["redis"] = "unreachable"
		healthy = false
	} else {
		checks["redis"] = "ok"
	}

	if err := ctrl.health.Health(ctx); err != nil {
		checks["minio"] = "unreachable"
		healthy = false
	} else {
		checks["minio"] = "ok"
	}

	if healthy {
		utils.JSON200(c, gin.H{"status": "ok", "checks": checks})
		return
	}
	c.JSON(503, gin.H{"status": "degraded", "checks": checks})
}
