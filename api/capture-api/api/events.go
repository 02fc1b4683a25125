// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package capture_api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	internal_type "github.com/rapidaai/voice-capture/api/capture-api/internal/type"
)

const eventWriteWait = 5 * time.Second

var eventUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Events streams controller events of a device over a websocket. The first
// message is a state event carrying the current snapshot.
//
// @Router /v1/devices/:device/events [get]
// @Success 101 "Switching Protocols"
func (cApi *CaptureApi) Events(c *gin.Context) {
	ctrl, ok := cApi.controller(c)
	if !ok {
		return
	}
	conn, err := eventUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		cApi.logger.Errorf("event stream upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	events, cancel := ctrl.Subscribe()
	defer cancel()

	// the client only sends close frames; reading surfaces them
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	snap := ctrl.Snapshot()
	if err := cApi.writeEvent(conn, internal_type.Event{
		Type:      internal_type.EventState,
		SessionID: snap.ID,
		State:     snap.State,
		Session:   &snap,
		At:        time.Now(),
	}); err != nil {
		return
	}
	for {
		select {
		case <-closed:
			return
		case ev, ok := <-events:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "controller closed"),
					time.Now().Add(eventWriteWait))
				return
			}
			if err := cApi.writeEvent(conn, ev); err != nil {
				cApi.logger.Debugf("event stream for %s ended: %v", ctrl.DeviceID(), err)
				return
			}
		}
	}
}

func (cApi *CaptureApi) writeEvent(conn *websocket.Conn, ev internal_type.Event) error {
	_ = conn.SetWriteDeadline(time.Now().Add(eventWriteWait))
	return conn.WriteJSON(ev)
}
