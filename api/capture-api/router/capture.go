package capture_routers

import (
	"github.com/gin-gonic/gin"

	captureApi "github.com/rapidaai/voice-capture/api/capture-api/api"
	internal_registry "github.com/rapidaai/voice-capture/api/capture-api/internal/registry"
	"github.com/rapidaai/voice-capture/config"
	"github.com/rapidaai/voice-capture/pkg/commons"
)

func CaptureApiRoute(cfg *config.AppConfig, engine *gin.Engine, logger commons.Logger, registry *internal_registry.Registry) {
	logger.Info("Capture routes added to engine.")
	cApi := captureApi.New(cfg, logger, registry)

	apiv1 := engine.Group("v1")
	{
		apiv1.GET("/devices", cApi.Devices)
		apiv1.GET("/results/:session", cApi.Result)
	}

	devices := apiv1.Group("/devices/:device")
	{
		devices.GET("/recording", cApi.Status)
		devices.POST("/recording/start", cApi.Start)
		devices.POST("/recording/stop", cApi.Stop)
		devices.POST("/recording/abort", cApi.Abort)
		devices.POST("/recording/reset", cApi.Reset)
		devices.POST("/recording/retry", cApi.Retry)
		devices.GET("/recording/download", cApi.Download)
		devices.GET("/events", cApi.Events)
		devices.GET("/sessions", cApi.Sessions)
	}
}
