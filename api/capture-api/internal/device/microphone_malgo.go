//go:build cgo && !noaudio

// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_device

import (
	"context"
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
	internal_type "github.com/rapidaai/voice-capture/api/capture-api/internal/type"
	"github.com/rapidaai/voice-capture/pkg/commons"
)

// rawFormat must match BytesPerSample.
var rawFormat = malgo.FormatS16

// Microphone captures 16 bit PCM from a host input device through miniaudio.
// The first chunk of every stream is a WAV header, so the concatenated
// chunks form a playable file.
type Microphone struct {
	logger commons.Logger
	id     string
	cfg    Config

	mu   sync.Mutex
	busy bool
}

func NewMicrophone(logger commons.Logger, id string, cfg Config) *Microphone {
	return &Microphone{logger: logger, id: id, cfg: cfg.withDefaults()}
}

func (m *Microphone) ID() string { return m.id }

func (m *Microphone) Format() internal_type.Format { return wavFormat(m.cfg) }

func (m *Microphone) Open(ctx context.Context) (internal_type.CaptureStream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if size := malgo.SampleSizeInBytes(rawFormat); size != BytesPerSample {
		return nil, fmt.Errorf("%w: malgo sample size %d", internal_type.ErrDeviceUnavailable, size)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.busy {
		return nil, internal_type.ErrDeviceBusy
	}

	malgoCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", internal_type.ErrDeviceUnavailable, err)
	}
	freeContext := func() {
		_ = malgoCtx.Uninit()
		malgoCtx.Free()
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.SampleRate = m.cfg.SampleRate
	deviceConfig.Capture.Format = rawFormat
	deviceConfig.Capture.Channels = m.cfg.Channels
	deviceConfig.Alsa.NoMMap = 1
	if m.id != DefaultDeviceID {
		info, err := findCaptureDevice(malgoCtx, m.id)
		if err != nil {
			freeContext()
			return nil, err
		}
		deviceConfig.Capture.DeviceID = info.ID.Pointer()
	}

	var stream *pcmStream
	callbacks := malgo.DeviceCallbacks{
		Data: func(_, input []byte, _ uint32) {
			stream.write(input)
		},
	}
	device, err := malgo.InitDevice(malgoCtx.Context, deviceConfig, callbacks)
	if err != nil {
		freeContext()
		return nil, fmt.Errorf("%w: %v", internal_type.ErrDeviceUnavailable, err)
	}

	stream = newPCMStream(m.cfg.ChunkInterval, StreamingWAVHeader(m.cfg.SampleRate, m.cfg.Channels),
		device.Stop,
		func() error {
			device.Uninit()
			freeContext()
			m.mu.Lock()
			m.busy = false
			m.mu.Unlock()
			m.logger.Debugw("microphone released", "device", m.id)
			return nil
		},
	)
	if err := device.Start(); err != nil {
		_ = stream.Release()
		return nil, fmt.Errorf("%w: %v", internal_type.ErrDeviceUnavailable, err)
	}
	m.busy = true
	m.logger.Infow("microphone opened", "device", m.id, "sampleRate", m.cfg.SampleRate, "channels", m.cfg.Channels)
	return stream, nil
}

func findCaptureDevice(malgoCtx *malgo.AllocatedContext, name string) (malgo.DeviceInfo, error) {
	devices, err := malgoCtx.Devices(malgo.Capture)
	if err != nil {
		return malgo.DeviceInfo{}, fmt.Errorf("%w: %v", internal_type.ErrDeviceUnavailable, err)
	}
	for _, dev := range devices {
		if dev.Name() == name {
			return dev, nil
		}
	}
	return malgo.DeviceInfo{}, fmt.Errorf("%w: no input device named %q", internal_type.ErrDeviceUnavailable, name)
}

// ListDevices returns the capture devices miniaudio can see.
func ListDevices(logger commons.Logger) ([]Info, error) {
	malgoCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = malgoCtx.Uninit()
		malgoCtx.Free()
	}()

	devices, err := malgoCtx.Devices(malgo.Capture)
	if err != nil {
		return nil, err
	}
	res := make([]Info, 0, len(devices))
	seen := make(map[string]struct{}, len(devices))
	for _, dev := range devices {
		full, err := malgoCtx.DeviceInfo(malgo.Capture, dev.ID, malgo.Shared)
		if err != nil {
			logger.Warnf("unable to get audio device info: %v", err)
			continue
		}
		name := full.Name()
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		res = append(res, Info{ID: name, Name: name, IsDefault: full.IsDefault == 1})
	}
	return res, nil
}
