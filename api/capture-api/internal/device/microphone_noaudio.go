//go:build !cgo || noaudio

// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_device

import (
	"context"
	"errors"
	"fmt"

	internal_type "github.com/rapidaai/voice-capture/api/capture-api/internal/type"
	"github.com/rapidaai/voice-capture/pkg/commons"
)

var errNoAudio = errors.New("built without audio support")

// Microphone is unavailable in cgo-less and noaudio builds. File devices
// still work.
type Microphone struct {
	id  string
	cfg Config
}

func NewMicrophone(_ commons.Logger, id string, cfg Config) *Microphone {
	return &Microphone{id: id, cfg: cfg.withDefaults()}
}

func (m *Microphone) ID() string { return m.id }

func (m *Microphone) Format() internal_type.Format { return wavFormat(m.cfg) }

func (m *Microphone) Open(context.Context) (internal_type.CaptureStream, error) {
	return nil, fmt.Errorf("%w: %v", internal_type.ErrDeviceUnavailable, errNoAudio)
}

func ListDevices(commons.Logger) ([]Info, error) {
	return nil, errNoAudio
}
