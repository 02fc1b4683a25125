// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_type

import "context"

// Format describes the byte stream a capture device produces.
type Format struct {
	MimeType   string `json:"mimeType"`
	Extension  string `json:"extension"`
	SampleRate uint32 `json:"sampleRate,omitempty"`
	Channels   uint32 `json:"channels,omitempty"`
}

// CaptureDevice opens exclusive capture streams on a microphone or other source.
type CaptureDevice interface {
	ID() string
	Format() Format
	// Open requests access and starts capture. It blocks while the platform
	// asks for permission. A denial must wrap ErrPermissionDenied.
	Open(ctx context.Context) (CaptureStream, error)
}

// CaptureStream is one running capture.
type CaptureStream interface {
	// Chunks delivers audio buffers in capture order. It is closed after Stop
	// has flushed any partially filled buffer.
	Chunks() <-chan []byte
	// Stop ends capture and flushes pending audio into Chunks.
	Stop() error
	// Release frees the device handle. It is safe to call more than once.
	Release() error
}

// Lease guards exclusive ownership of a device handle across controllers.
type Lease interface {
	// Acquire claims deviceID for owner or returns ErrDeviceBusy.
	Acquire(ctx context.Context, deviceID, owner string) error
	// Release gives up the claim if owner still holds it.
	Release(ctx context.Context, deviceID, owner string) error
}
