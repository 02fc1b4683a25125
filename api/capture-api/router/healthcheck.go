package capture_routers

import (
	"github.com/gin-gonic/gin"

	healthCheckApi "github.com/rapidaai/voice-capture/api/health-check-api"
	"github.com/rapidaai/voice-capture/config"
	"github.com/rapidaai/voice-capture/pkg/commons"
	"github.com/rapidaai/voice-capture/pkg/connectors"
)

func HealthCheckRoutes(cfg *config.AppConfig, engine *gin.Engine, logger commons.Logger, database connectors.DatabaseConnector, redis connectors.RedisConnector) {
	logger.Info("Internal HealthCheckRoutes and Connectors added to engine.")
	apiv1 := engine.Group("")
	hcApi := healthCheckApi.New(cfg, logger, database, redis)
	{
		apiv1.GET("/readiness/", hcApi.Readiness)
		apiv1.GET("/healthz/", hcApi.Healthz)
	}
}
