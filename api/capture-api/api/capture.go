// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package capture_api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	internal_artifact "github.com/rapidaai/voice-capture/api/capture-api/internal/artifact"
	internal_registry "github.com/rapidaai/voice-capture/api/capture-api/internal/registry"
	internal_session "github.com/rapidaai/voice-capture/api/capture-api/internal/session"
	internal_type "github.com/rapidaai/voice-capture/api/capture-api/internal/type"
	"github.com/rapidaai/voice-capture/config"
	"github.com/rapidaai/voice-capture/pkg/commons"
)

type CaptureApi struct {
	cfg      *config.AppConfig
	logger   commons.Logger
	registry *internal_registry.Registry
}

func New(cfg *config.AppConfig, logger commons.Logger, registry *internal_registry.Registry) *CaptureApi {
	return &CaptureApi{cfg: cfg, logger: logger, registry: registry}
}

// StopRequest carries the identifiers submitted with the recording.
type StopRequest struct {
	PatientID     string            `json:"patient_id"`
	DoctorID      string            `json:"doctor_id"`
	QuestionIndex *int              `json:"question_index" binding:"omitempty,min=0"`
	Extra         map[string]string `json:"extra"`
}

func (r StopRequest) metadata() internal_type.Metadata {
	return internal_type.Metadata{
		PatientID:     r.PatientID,
		DoctorID:      r.DoctorID,
		QuestionIndex: r.QuestionIndex,
		Extra:         r.Extra,
	}
}

func (cApi *CaptureApi) controller(c *gin.Context) (*internal_session.Controller, bool) {
	ctrl, err := cApi.registry.Controller(c.Param("device"))
	if err != nil {
		cApi.writeError(c, err, nil)
		return nil, false
	}
	return ctrl, true
}

// writeError maps controller errors to HTTP statuses. The current session
// is included when known so a UI can re-render from it.
func (cApi *CaptureApi) writeError(c *gin.Context, err error, session *internal_type.Session) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, internal_registry.ErrUnknownDevice),
		errors.Is(err, internal_registry.ErrResultNotFound):
		status = http.StatusNotFound
	case errors.Is(err, internal_type.ErrInvalidTransition):
		status = http.StatusConflict
	case errors.Is(err, internal_session.ErrClosed):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		cApi.logger.Errorf("capture api request %s failed: %v", c.FullPath(), err)
	}
	body := gin.H{"error": err.Error()}
	if session != nil {
		body["session"] = session
	}
	c.JSON(status, body)
}

func (cApi *CaptureApi) respond(c *gin.Context, snap internal_type.Session, err error) {
	if err != nil {
		cApi.writeError(c, err, &snap)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": snap})
}

// @Router /v1/devices/:device/recording/start [post]
func (cApi *CaptureApi) Start(c *gin.Context) {
	ctrl, ok := cApi.controller(c)
	if !ok {
		return
	}
	snap, err := ctrl.Start(c.Request.Context())
	cApi.respond(c, snap, err)
}

// @Router /v1/devices/:device/recording/stop [post]
func (cApi *CaptureApi) Stop(c *gin.Context) {
	ctrl, ok := cApi.controller(c)
	if !ok {
		return
	}
	var req StopRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	snap, err := ctrl.Stop(c.Request.Context(), req.metadata())
	cApi.respond(c, snap, err)
}

// @Router /v1/devices/:device/recording/abort [post]
func (cApi *CaptureApi) Abort(c *gin.Context) {
	ctrl, ok := cApi.controller(c)
	if !ok {
		return
	}
	snap, err := ctrl.Abort()
	cApi.respond(c, snap, err)
}

// @Router /v1/devices/:device/recording/reset [post]
func (cApi *CaptureApi) Reset(c *gin.Context) {
	ctrl, ok := cApi.controller(c)
	if !ok {
		return
	}
	snap, err := ctrl.Reset()
	cApi.respond(c, snap, err)
}

// @Router /v1/devices/:device/recording/retry [post]
func (cApi *CaptureApi) Retry(c *gin.Context) {
	ctrl, ok := cApi.controller(c)
	if !ok {
		return
	}
	snap, err := ctrl.Retry(c.Request.Context())
	cApi.respond(c, snap, err)
}

// @Router /v1/devices/:device/recording [get]
func (cApi *CaptureApi) Status(c *gin.Context) {
	ctrl, ok := cApi.controller(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": ctrl.Snapshot()})
}

// Download streams the retained payload of the last stopped recording.
// With ?save=true the file is written to the download directory instead
// and its path returned.
//
// @Router /v1/devices/:device/recording/download [get]
func (cApi *CaptureApi) Download(c *gin.Context) {
	ctrl, ok := cApi.controller(c)
	if !ok {
		return
	}
	if save, _ := strconv.ParseBool(c.Query("save")); save {
		path, ok := ctrl.DownloadLast(cApi.cfg.CaptureConfig.DownloadDir)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "no recording retained"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"path": path})
		return
	}

	payload, ok := ctrl.LastPayload()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no recording retained"})
		return
	}
	name := internal_artifact.FileName(cApi.cfg.CaptureConfig.BaseName, payload.StartedAt, payload.Format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, payload.Format.MimeType, payload.Data)
}

// @Router /v1/results/:session [get]
func (cApi *CaptureApi) Result(c *gin.Context) {
	sessionID := c.Param("session")
	result, err := cApi.registry.Result(c.Request.Context(), sessionID)
	if err != nil {
		cApi.writeError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessionId": sessionID, "result": result})
}

// @Router /v1/devices/:device/sessions [get]
func (cApi *CaptureApi) Sessions(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return
	}
	sessions, err := cApi.registry.History(c.Request.Context(), c.Param("device"), limit)
	if err != nil {
		cApi.writeError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

// @Router /v1/devices [get]
func (cApi *CaptureApi) Devices(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"devices": cApi.registry.Devices()})
}
