// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	internal_artifact "github.com/rapidaai/voice-capture/api/capture-api/internal/artifact"
	internal_type "github.com/rapidaai/voice-capture/api/capture-api/internal/type"
	"github.com/rapidaai/voice-capture/pkg/commons"
)

// ErrClosed is returned by operations on a closed controller.
var ErrClosed = errors.New("controller closed")

// Controller owns one capture device and drives recording sessions on it
// through the idle, recording, uploading and terminal states.
//
// Every exported method is safe for concurrent use. Start and Stop block the
// calling goroutine while waiting for permission and for the upload; readers
// such as Snapshot are never blocked by either.
type Controller struct {
	logger   commons.Logger
	device   internal_type.CaptureDevice
	uploader internal_type.Uploader
	opts     options
	owner    string
	events   *broadcaster

	mu         sync.Mutex
	session    internal_type.Session
	chunks     [][]byte
	stream     internal_type.CaptureStream
	stopStream func() error
	pumpDone   chan struct{}
	limitTimer *time.Timer
	full       bool
	payload    *internal_type.Payload
	nextIndex  int
	closed     bool
}

// New builds a controller for device. Sessions start in idle.
func New(logger commons.Logger, device internal_type.CaptureDevice, uploader internal_type.Uploader, opts ...Option) (*Controller, error) {
	if device == nil {
		return nil, errors.New("capture device is required")
	}
	if uploader == nil {
		return nil, errors.New("uploader is required")
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	switch {
	case o.mode != ModeSingleClip && o.mode != ModeMultiClip:
		return nil, fmt.Errorf("unknown mode %q", o.mode)
	case o.uploadTimeout <= 0:
		return nil, errors.New("upload timeout must be positive")
	case o.maxDuration < 0 || o.maxPayloadBytes < 0:
		return nil, errors.New("recording caps must not be negative")
	}
	c := &Controller{
		logger:   logger,
		device:   device,
		uploader: uploader,
		opts:     o,
		owner:    uuid.NewString(),
		events:   newBroadcaster(o.eventBuffer),
	}
	c.session = c.freshSession()
	return c, nil
}

func (c *Controller) freshSession() internal_type.Session {
	return internal_type.Session{
		ID:       uuid.NewString(),
		DeviceID: c.device.ID(),
		State:    internal_type.StateIdle,
	}
}

// Start acquires the device and begins buffering chunks. While a session is
// already recording it returns the current snapshot without touching the
// device. Permission and device failures move the session to failed and are
// reported on the snapshot, not as the returned error.
func (c *Controller) Start(ctx context.Context) (internal_type.Session, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return internal_type.Session{}, ErrClosed
	}
	if c.session.State == internal_type.StateRecording {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return snap, nil
	}
	next, err := internal_type.Transition(c.session.State, internal_type.TriggerStart)
	if err != nil {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return snap, err
	}
	c.session.State = next
	sessionID := c.session.ID
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.emit(internal_type.EventState, snap, 0)

	stream, openErr := c.acquire(ctx)

	c.mu.Lock()
	if c.closed || c.session.ID != sessionID {
		c.mu.Unlock()
		if openErr == nil {
			c.release(stream)
		}
		return internal_type.Session{}, ErrClosed
	}
	if openErr != nil {
		next, _ = internal_type.Transition(c.session.State, internal_type.TriggerDenied)
		c.session.State = next
		c.session.Err = internal_type.ClassifyDeviceError(openErr)
		c.chunks = nil
		snap = c.snapshotLocked()
		c.mu.Unlock()

		c.logger.Warnw("capture device not acquired", "device", c.device.ID(), "session", sessionID, "error", openErr)
		c.emit(internal_type.EventState, snap, 0)
		c.emit(internal_type.EventFailed, snap, 0)
		return snap, nil
	}

	next, _ = internal_type.Transition(c.session.State, internal_type.TriggerGranted)
	c.session.State = next
	c.session.StartedAt = c.opts.clock()
	c.stream = stream
	c.stopStream = sync.OnceValue(stream.Stop)
	c.pumpDone = make(chan struct{})
	c.full = false
	if c.opts.maxDuration > 0 {
		c.limitTimer = time.AfterFunc(c.opts.maxDuration, func() {
			c.limitReached(sessionID, "max_duration")
		})
	}
	go c.pump(sessionID, stream, c.pumpDone)
	snap = c.snapshotLocked()
	c.mu.Unlock()

	c.logger.Infow("recording started", "device", c.device.ID(), "session", sessionID)
	c.emit(internal_type.EventState, snap, 0)
	return snap, nil
}

func (c *Controller) acquire(ctx context.Context) (internal_type.CaptureStream, error) {
	if c.opts.lease != nil {
		if err := c.opts.lease.Acquire(ctx, c.device.ID(), c.owner); err != nil {
			return nil, err
		}
	}
	stream, err := c.device.Open(ctx)
	if err != nil {
		c.releaseLease()
		return nil, err
	}
	return stream, nil
}

// release frees the device handle and the lease. The caller must have taken
// stream out of c.stream so each handle is released once.
func (c *Controller) release(stream internal_type.CaptureStream) {
	if stream == nil {
		return
	}
	if err := stream.Release(); err != nil {
		c.logger.Warnw("releasing capture stream", "device", c.device.ID(), "error", err)
	}
	c.releaseLease()
	c.logger.Debugw("capture device released", "device", c.device.ID())
}

func (c *Controller) releaseLease() {
	if c.opts.lease == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), releaseWait)
	defer cancel()
	if err := c.opts.lease.Release(ctx, c.device.ID(), c.owner); err != nil {
		c.logger.Warnw("releasing device lease", "device", c.device.ID(), "error", err)
	}
}

// takeStreamLocked detaches the running stream so exactly one caller
// releases it.
func (c *Controller) takeStreamLocked() (internal_type.CaptureStream, func() error, chan struct{}) {
	stream, stop, done := c.stream, c.stopStream, c.pumpDone
	c.stream, c.stopStream, c.pumpDone = nil, nil, nil
	if c.limitTimer != nil {
		c.limitTimer.Stop()
		c.limitTimer = nil
	}
	return stream, stop, done
}

// pump is the only writer of c.chunks for a session. It drains the device
// channel in delivery order until the device closes it.
func (c *Controller) pump(sessionID string, stream internal_type.CaptureStream, done chan struct{}) {
	defer close(done)
	for chunk := range stream.Chunks() {
		c.appendChunk(sessionID, chunk)
	}
}

func (c *Controller) appendChunk(sessionID string, chunk []byte) {
	if len(chunk) == 0 {
		return
	}
	c.mu.Lock()
	if c.session.ID != sessionID || c.full {
		c.mu.Unlock()
		return
	}
	if s := c.session.State; s != internal_type.StateRecording && s != internal_type.StateStopping {
		c.mu.Unlock()
		return
	}
	if c.opts.maxPayloadBytes > 0 && c.session.ByteCount+len(chunk) > c.opts.maxPayloadBytes {
		c.full = true
		c.mu.Unlock()
		c.limitReached(sessionID, "max_payload_bytes")
		return
	}
	c.chunks = append(c.chunks, append([]byte(nil), chunk...))
	c.session.ChunkCount++
	c.session.ByteCount += len(chunk)
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.emit(internal_type.EventChunk, snap, len(chunk))
}

// limitReached stops capture once a cap is hit. The session stays in
// recording until the caller stops or aborts it.
func (c *Controller) limitReached(sessionID, reason string) {
	c.mu.Lock()
	if c.session.ID != sessionID || c.session.State != internal_type.StateRecording || c.session.Limited {
		c.mu.Unlock()
		return
	}
	c.session.Limited = true
	stop := c.stopStream
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.logger.Warnw("recording limit reached", "device", c.device.ID(), "session", sessionID, "limit", reason)
	if stop != nil {
		if err := stop(); err != nil {
			c.logger.Warnw("stopping capture stream", "device", c.device.ID(), "error", err)
		}
	}
	c.emit(internal_type.EventLimit, snap, 0)
}

// Stop ends the recording, releases the device, concatenates the chunks and
// uploads them with md. The upload outcome is reported on the returned
// snapshot; the error is only set when the session was not recording.
func (c *Controller) Stop(ctx context.Context, md internal_type.Metadata) (internal_type.Session, error) {
	c.mu.Lock()
	next, err := internal_type.Transition(c.session.State, internal_type.TriggerStop)
	if err != nil {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return snap, err
	}
	c.session.State = next
	sessionID := c.session.ID
	stop, done := c.stopStream, c.pumpDone
	if c.limitTimer != nil {
		c.limitTimer.Stop()
		c.limitTimer = nil
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.emit(internal_type.EventState, snap, 0)

	if stop != nil {
		if err := stop(); err != nil {
			c.logger.Warnw("stopping capture stream", "device", c.device.ID(), "error", err)
		}
	}
	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
			c.logger.Warnw("capture stream did not flush", "device", c.device.ID(), "session", sessionID, "error", ctx.Err())
		}
	}

	c.mu.Lock()
	if c.session.ID != sessionID || c.session.State != internal_type.StateStopping {
		snap = c.snapshotLocked()
		c.mu.Unlock()
		return snap, ErrClosed
	}
	stream, _, _ := c.takeStreamLocked()
	c.mu.Unlock()
	c.release(stream)

	c.mu.Lock()
	c.session.StoppedAt = c.opts.clock()
	c.payload = &internal_type.Payload{
		SessionID: sessionID,
		Data:      concat(c.chunks),
		Format:    c.device.Format(),
		StartedAt: c.session.StartedAt,
		Metadata:  c.clipMetadataLocked(md),
	}
	c.session.Index = c.payload.Metadata.QuestionIndex
	next, _ = internal_type.Transition(c.session.State, internal_type.TriggerFlushed)
	c.session.State = next
	snap = c.snapshotLocked()
	c.mu.Unlock()

	c.logger.Infow("recording stopped", "device", c.device.ID(), "session", sessionID,
		"chunks", snap.ChunkCount, "bytes", snap.ByteCount)
	c.emit(internal_type.EventState, snap, 0)
	return c.upload(ctx, sessionID), nil
}

// clipMetadataLocked numbers consecutive clips in multi-clip mode. A caller
// supplied index wins and moves the sequence past it.
func (c *Controller) clipMetadataLocked(md internal_type.Metadata) internal_type.Metadata {
	if c.opts.mode != ModeMultiClip {
		return md
	}
	index := c.nextIndex
	if md.QuestionIndex != nil {
		index = *md.QuestionIndex
	}
	c.nextIndex = index + 1
	md.QuestionIndex = &index
	return md
}

type uploadResult struct {
	ref string
	err *internal_type.CaptureError
}

func (c *Controller) upload(ctx context.Context, sessionID string) internal_type.Session {
	c.mu.Lock()
	payload := *c.payload
	c.mu.Unlock()

	req := internal_type.UploadRequest{
		Payload:    payload,
		FileName:   internal_artifact.FileName(c.opts.baseName, payload.StartedAt, payload.Format),
		IndexField: c.opts.indexField,
	}
	uctx, cancel := context.WithTimeout(ctx, c.opts.uploadTimeout)
	defer cancel()

	start := time.Now()
	results := make(chan uploadResult, 1)
	go func() {
		ref, err := c.uploader.Upload(uctx, req)
		results <- uploadResult{ref: ref, err: err}
	}()

	var res uploadResult
	select {
	case res = <-results:
	case <-uctx.Done():
	}
	if res.err == nil && res.ref == "" {
		switch err := uctx.Err(); {
		case errors.Is(err, context.DeadlineExceeded):
			res.err = internal_type.NewTimeoutError(err)
		case err != nil:
			res.err = internal_type.NewNetworkError(err)
		default:
			res.err = internal_type.NewServerError(0, "empty analysis result")
		}
	}
	if res.err != nil && res.err.Kind == internal_type.KindNetworkError && errors.Is(uctx.Err(), context.DeadlineExceeded) {
		res.err = internal_type.NewTimeoutError(res.err.Err)
	}
	c.logger.Benchmark("Controller.upload", time.Since(start))

	c.mu.Lock()
	if c.session.ID != sessionID || c.session.State != internal_type.StateUploading {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return snap
	}
	evType := internal_type.EventCompleted
	if res.err != nil {
		c.session.State, _ = internal_type.Transition(c.session.State, internal_type.TriggerUploadFailed)
		c.session.Err = res.err
		// a failed session holds no chunks; the retained payload serves Retry and DownloadLast
		c.chunks = nil
		c.session.ChunkCount = 0
		c.session.ByteCount = 0
		evType = internal_type.EventFailed
	} else {
		c.session.State, _ = internal_type.Transition(c.session.State, internal_type.TriggerUploaded)
		c.session.ResultRef = res.ref
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()

	if res.err != nil {
		c.logger.Errorw("upload failed", "device", c.device.ID(), "session", sessionID,
			"kind", res.err.Kind, "status", res.err.Status, "error", res.err.Message)
	} else {
		c.logger.Infow("upload completed", "device", c.device.ID(), "session", sessionID)
	}
	c.emit(internal_type.EventState, snap, 0)
	c.emit(evType, snap, 0)
	return snap
}

// Retry resubmits the retained payload of a session whose upload failed.
func (c *Controller) Retry(ctx context.Context) (internal_type.Session, error) {
	c.mu.Lock()
	if c.session.State != internal_type.StateFailed || c.payload == nil {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return snap, fmt.Errorf("%w: no failed upload to retry", internal_type.ErrInvalidTransition)
	}
	c.session.State, _ = internal_type.Transition(c.session.State, internal_type.TriggerRetry)
	c.session.Err = nil
	sessionID := c.session.ID
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.logger.Infow("retrying upload", "device", c.device.ID(), "session", sessionID)
	c.emit(internal_type.EventState, snap, 0)
	return c.upload(ctx, sessionID), nil
}

// Abort abandons a recording without uploading. The device is released and
// the chunks are discarded before Abort returns.
func (c *Controller) Abort() (internal_type.Session, error) {
	c.mu.Lock()
	if _, err := internal_type.Transition(c.session.State, internal_type.TriggerAbort); err != nil {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return snap, err
	}
	aborted := c.session.ID
	stream, stop, done := c.takeStreamLocked()
	c.session = c.freshSession()
	c.chunks = nil
	c.full = false
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.shutdown(stream, stop, done)
	c.logger.Infow("recording aborted", "device", c.device.ID(), "session", aborted)
	c.emit(internal_type.EventState, snap, 0)
	return snap, nil
}

func (c *Controller) shutdown(stream internal_type.CaptureStream, stop func() error, done chan struct{}) {
	if stop != nil {
		if err := stop(); err != nil {
			c.logger.Warnw("stopping capture stream", "device", c.device.ID(), "error", err)
		}
	}
	if done != nil {
		select {
		case <-done:
		case <-time.After(releaseWait):
			c.logger.Warnw("capture stream did not close in time", "device", c.device.ID())
		}
	}
	c.release(stream)
}

// Reset starts a fresh idle session after a completed or failed one and
// drops the chunks, result, error and retained payload.
func (c *Controller) Reset() (internal_type.Session, error) {
	c.mu.Lock()
	if _, err := internal_type.Transition(c.session.State, internal_type.TriggerReset); err != nil {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return snap, err
	}
	c.session = c.freshSession()
	c.chunks = nil
	c.payload = nil
	c.full = false
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.emit(internal_type.EventState, snap, 0)
	return snap, nil
}

// DownloadLast writes the retained payload into dir and returns its path.
// It reports false when no payload is retained or the file cannot be written.
func (c *Controller) DownloadLast(dir string) (string, bool) {
	payload, ok := c.LastPayload()
	if !ok {
		return "", false
	}
	path, err := internal_artifact.Write(dir, c.opts.baseName, payload)
	if err != nil {
		c.logger.Warnw("writing recording artifact", "device", c.device.ID(), "error", err)
		return "", false
	}
	return path, true
}

// LastPayload returns the payload of the last stopped session until Reset.
func (c *Controller) LastPayload() (internal_type.Payload, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.payload == nil {
		return internal_type.Payload{}, false
	}
	p := *c.payload
	p.Data = append([]byte(nil), c.payload.Data...)
	return p, true
}

// Snapshot returns a copy of the current session.
func (c *Controller) Snapshot() internal_type.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() internal_type.Session {
	s := c.session
	if !s.State.HoldsChunks() {
		s.ChunkCount, s.ByteCount = 0, 0
	}
	if s.Err != nil {
		e := *s.Err
		s.Err = &e
	}
	if s.Index != nil {
		i := *s.Index
		s.Index = &i
	}
	return s
}

// Chunks returns a copy of the buffered chunks in arrival order.
func (c *Controller) Chunks() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.chunks))
	for i, chunk := range c.chunks {
		out[i] = append([]byte(nil), chunk...)
	}
	return out
}

// DeviceID returns the id of the controlled device.
func (c *Controller) DeviceID() string {
	return c.device.ID()
}

// Subscribe returns a channel of controller events and a cancel func.
// Slow subscribers lose their oldest events, never the latest.
func (c *Controller) Subscribe() (<-chan internal_type.Event, func()) {
	return c.events.subscribe()
}

func (c *Controller) emit(t internal_type.EventType, snap internal_type.Session, chunkSize int) {
	ev := internal_type.Event{
		Type:      t,
		SessionID: snap.ID,
		State:     snap.State,
		ChunkSize: chunkSize,
		At:        c.opts.clock(),
	}
	if t != internal_type.EventChunk {
		s := snap
		ev.Session = &s
	}
	c.events.publish(ev)
}

// Close releases the device if it is still held and ends every
// subscription. A recording in progress is discarded.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	stream, stop, done := c.takeStreamLocked()
	if c.session.State == internal_type.StateRecording {
		c.session = c.freshSession()
		c.chunks = nil
	}
	c.mu.Unlock()

	c.shutdown(stream, stop, done)
	c.events.close()
	return nil
}

func concat(chunks [][]byte) []byte {
	n := 0
	for _, chunk := range chunks {
		n += len(chunk)
	}
	out := make([]byte, 0, n)
	for _, chunk := range chunks {
		out = append(out, chunk...)
	}
	return out
}
