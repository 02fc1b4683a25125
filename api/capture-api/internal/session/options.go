// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_session

import (
	"time"

	internal_type "github.com/rapidaai/voice-capture/api/capture-api/internal/type"
	"github.com/rapidaai/voice-capture/pkg/utils"
)

// Mode selects how consecutive recordings are submitted.
type Mode string

const (
	// ModeSingleClip submits each recording on its own.
	ModeSingleClip Mode = "single"
	// ModeMultiClip numbers consecutive recordings for multi-question flows.
	ModeMultiClip Mode = "multi"
)

const (
	DefaultUploadTimeout   = 30 * time.Second
	DefaultMaxDuration     = 10 * time.Minute
	DefaultMaxPayloadBytes = 50 << 20
	DefaultEventBuffer     = 64
	DefaultIndexField      = "question_index"
	DefaultBaseName        = "recording"

	// releaseWait bounds how long Abort and Close wait for a device to
	// close its chunk channel.
	releaseWait = 2 * time.Second
)

// Option configures a Controller.
type Option func(*options)

type options struct {
	lease           internal_type.Lease
	mode            Mode
	indexField      string
	maxDuration     time.Duration
	maxPayloadBytes int
	uploadTimeout   time.Duration
	eventBuffer     int
	baseName        string
	clock           func() time.Time
}

func defaultOptions() options {
	return options{
		mode:            ModeSingleClip,
		indexField:      DefaultIndexField,
		maxDuration:     DefaultMaxDuration,
		maxPayloadBytes: DefaultMaxPayloadBytes,
		uploadTimeout:   DefaultUploadTimeout,
		eventBuffer:     DefaultEventBuffer,
		baseName:        DefaultBaseName,
		clock:           time.Now,
	}
}

// WithLease shares device ownership with other controllers.
func WithLease(lease internal_type.Lease) Option {
	return func(o *options) { o.lease = lease }
}

func WithMode(mode Mode) Option {
	return func(o *options) { o.mode = mode }
}

// WithIndexField sets the form field carrying the clip index.
func WithIndexField(field string) Option {
	return func(o *options) { o.indexField = field }
}

// WithMaxDuration caps a recording's wall-clock length. Zero disables the cap.
func WithMaxDuration(d time.Duration) Option {
	return func(o *options) { o.maxDuration = d }
}

// WithMaxPayloadBytes caps the buffered audio. Zero disables the cap.
func WithMaxPayloadBytes(n int) Option {
	return func(o *options) { o.maxPayloadBytes = n }
}

func WithUploadTimeout(d time.Duration) Option {
	return func(o *options) { o.uploadTimeout = d }
}

// WithEventBuffer sets the per-subscriber event channel capacity.
func WithEventBuffer(n int) Option {
	return func(o *options) { o.eventBuffer = n }
}

// WithBaseName sets the artifact file name prefix. Blank keeps the default.
func WithBaseName(name string) Option {
	return func(o *options) { o.baseName = utils.Coalesce(name, DefaultBaseName) }
}

// WithClock injects the time source, for tests.
func WithClock(clock func() time.Time) Option {
	return func(o *options) { o.clock = clock }
}
