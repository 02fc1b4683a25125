// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_device

import (
	"strings"
	"time"

	internal_type "github.com/rapidaai/voice-capture/api/capture-api/internal/type"
	"github.com/rapidaai/voice-capture/pkg/commons"
)

const (
	// DefaultDeviceID selects the platform's default input.
	DefaultDeviceID = "default"
	// FilePrefix marks device ids that replay an audio file.
	FilePrefix = "file:"

	DefaultSampleRate    uint32 = 16000
	DefaultChannels      uint32 = 1
	DefaultChunkInterval        = 250 * time.Millisecond
)

// Config shapes the audio a device produces.
type Config struct {
	SampleRate    uint32
	Channels      uint32
	ChunkInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.SampleRate == 0 {
		c.SampleRate = DefaultSampleRate
	}
	if c.Channels == 0 {
		c.Channels = DefaultChannels
	}
	if c.ChunkInterval <= 0 {
		c.ChunkInterval = DefaultChunkInterval
	}
	return c
}

// Info describes an input device found on the host.
type Info struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	IsDefault bool   `json:"isDefault"`
}

// New returns the capture device for id: "file:<path>" replays a file, any
// other id names a microphone ("default" for the platform default).
func New(logger commons.Logger, id string, cfg Config) internal_type.CaptureDevice {
	cfg = cfg.withDefaults()
	if path, ok := strings.CutPrefix(id, FilePrefix); ok {
		return NewFileDevice(logger, id, path, cfg)
	}
	return NewMicrophone(logger, id, cfg)
}

func wavFormat(cfg Config) internal_type.Format {
	return internal_type.Format{
		MimeType:   "audio/wav",
		Extension:  "wav",
		SampleRate: cfg.SampleRate,
		Channels:   cfg.Channels,
	}
}
