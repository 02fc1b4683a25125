// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_device

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	internal_type "github.com/rapidaai/voice-capture/api/capture-api/internal/type"
	"github.com/rapidaai/voice-capture/pkg/commons"
)

var fileFormats = map[string]internal_type.Format{
	"wav":  {MimeType: "audio/wav", Extension: "wav"},
	"webm": {MimeType: "audio/webm", Extension: "webm"},
	"ogg":  {MimeType: "audio/ogg", Extension: "ogg"},
	"mp3":  {MimeType: "audio/mpeg", Extension: "mp3"},
	"m4a":  {MimeType: "audio/mp4", Extension: "m4a"},
}

// FileDevice replays an audio file at the rate a microphone would deliver it.
// It lets the service run on hosts without an input device.
type FileDevice struct {
	logger commons.Logger
	id     string
	path   string
	cfg    Config

	mu   sync.Mutex
	busy bool
}

func NewFileDevice(logger commons.Logger, id, path string, cfg Config) *FileDevice {
	return &FileDevice{logger: logger, id: id, path: path, cfg: cfg.withDefaults()}
}

func (d *FileDevice) ID() string { return d.id }

func (d *FileDevice) Format() internal_type.Format {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(d.path), "."))
	if f, ok := fileFormats[ext]; ok {
		if ext == "wav" {
			return wavFormat(d.cfg)
		}
		return f
	}
	return internal_type.Format{MimeType: "application/octet-stream", Extension: ext}
}

// Open starts replaying the file from its beginning. Once the file is
// exhausted the stream stays open and silent until Stop.
func (d *FileDevice) Open(ctx context.Context) (internal_type.CaptureStream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.busy {
		return nil, internal_type.ErrDeviceBusy
	}
	data, err := os.ReadFile(d.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", internal_type.ErrDeviceUnavailable, err)
	}

	step := bytesPerSecond(d.cfg.SampleRate, d.cfg.Channels) * int(d.cfg.ChunkInterval) / int(time.Second)
	if step <= 0 {
		step = len(data)
	}
	feederDone := make(chan struct{})
	quit := make(chan struct{})
	stream := newPCMStream(d.cfg.ChunkInterval, nil,
		func() error {
			close(quit)
			<-feederDone
			return nil
		},
		func() error {
			d.mu.Lock()
			d.busy = false
			d.mu.Unlock()
			d.logger.Debugw("file device released", "device", d.id)
			return nil
		},
	)
	go func() {
		defer close(feederDone)
		ticker := time.NewTicker(d.cfg.ChunkInterval)
		defer ticker.Stop()
		for offset := 0; offset < len(data); {
			end := min(offset+step, len(data))
			stream.write(data[offset:end])
			offset = end
			select {
			case <-quit:
				return
			case <-ticker.C:
			}
		}
	}()
	d.busy = true
	d.logger.Debugw("file device opened", "device", d.id, "path", d.path, "bytes", len(data))
	return stream, nil
}
