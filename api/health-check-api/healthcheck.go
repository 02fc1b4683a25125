// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package health_check_api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rapidaai/voice-capture/config"
	"github.com/rapidaai/voice-capture/pkg/commons"
	"github.com/rapidaai/voice-capture/pkg/connectors"
)

type HealthCheckApi struct {
	cfg      *config.AppConfig
	logger   commons.Logger
	database connectors.DatabaseConnector
	redis    connectors.RedisConnector
}

// New builds the health endpoints. redis may be nil when no cache is
// configured.
func New(cfg *config.AppConfig, logger commons.Logger, database connectors.DatabaseConnector, redis connectors.RedisConnector) *HealthCheckApi {
	return &HealthCheckApi{cfg: cfg, logger: logger, database: database, redis: redis}
}

// Healthz reports that the process is serving.
func (h *HealthCheckApi) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"healthy": true, "service": h.cfg.Name, "version": h.cfg.Version})
}

// Readiness checks every backing connection.
func (h *HealthCheckApi) Readiness(c *gin.Context) {
	checks := gin.H{}
	ready := true
	if h.database != nil {
		ok := h.database.IsConnected(c.Request.Context())
		checks["database"] = ok
		ready = ready && ok
	}
	if h.redis != nil {
		ok := h.redis.IsConnected(c.Request.Context())
		checks["redis"] = ok
		ready = ready && ok
	}
	if !ready {
		h.logger.Warnw("readiness check failed", "checks", checks)
		c.JSON(http.StatusServiceUnavailable, gin.H{"ready": false, "checks": checks})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ready": true, "checks": checks})
}
