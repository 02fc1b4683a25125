// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_registry

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	internal_device "github.com/rapidaai/voice-capture/api/capture-api/internal/device"
	internal_history "github.com/rapidaai/voice-capture/api/capture-api/internal/history"
	internal_session "github.com/rapidaai/voice-capture/api/capture-api/internal/session"
	internal_type "github.com/rapidaai/voice-capture/api/capture-api/internal/type"
	"github.com/rapidaai/voice-capture/pkg/commons"
	"github.com/rapidaai/voice-capture/pkg/utils"
	"github.com/rapidaai/voice-capture/pkg/configs"
)

var (
	// ErrUnknownDevice is returned for device ids that are not configured.
	ErrUnknownDevice = errors.New("unknown capture device")
	// ErrResultNotFound is returned when no completed result exists for a session.
	ErrResultNotFound = errors.New("result not found")
)

const persistTimeout = 5 * time.Second

// DeviceFactory builds the capture device for a configured id.
type DeviceFactory func(id string) internal_type.CaptureDevice

// Option configures a Registry.
type Option func(*Registry)

// WithLease shares device ownership through lease, for example across
// service instances.
func WithLease(lease internal_type.Lease) Option {
	return func(r *Registry) { r.lease = lease }
}

// WithStore persists terminal sessions.
func WithStore(store internal_history.Store) Option {
	return func(r *Registry) { r.store = store }
}

// WithResultCache caches completed results.
func WithResultCache(cache *internal_history.ResultCache) Option {
	return func(r *Registry) { r.cache = cache }
}

func WithDeviceFactory(factory DeviceFactory) Option {
	return func(r *Registry) { r.newDevice = factory }
}

// WithSessionOptions appends controller options after the ones derived
// from configuration.
func WithSessionOptions(opts ...internal_session.Option) Option {
	return func(r *Registry) { r.sessionOpts = append(r.sessionOpts, opts...) }
}

// Registry owns one controller per configured device. It records the
// outcome of every session that reaches a terminal state.
type Registry struct {
	logger      commons.Logger
	cfg         configs.CaptureConfig
	uploader    internal_type.Uploader
	lease       internal_type.Lease
	store       internal_history.Store
	cache       *internal_history.ResultCache
	newDevice   DeviceFactory
	sessionOpts []internal_session.Option

	mu          sync.Mutex
	controllers map[string]*internal_session.Controller
	closed      bool
	observers   sync.WaitGroup
}

func New(logger commons.Logger, cfg configs.CaptureConfig, uploader internal_type.Uploader, opts ...Option) *Registry {
	r := &Registry{
		logger:      logger,
		cfg:         cfg,
		uploader:    uploader,
		controllers: make(map[string]*internal_session.Controller),
	}
	r.newDevice = func(id string) internal_type.CaptureDevice {
		return internal_device.New(logger, id, internal_device.Config{ChunkInterval: cfg.ChunkInterval})
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Devices returns the configured device ids.
func (r *Registry) Devices() []string {
	return slices.Clone(r.cfg.Devices)
}

// Controller returns the controller of deviceID, creating it on first use.
func (r *Registry) Controller(deviceID string) (*internal_session.Controller, error) {
	if !slices.Contains(r.cfg.Devices, deviceID) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDevice, deviceID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, internal_session.ErrClosed
	}
	if c, ok := r.controllers[deviceID]; ok {
		return c, nil
	}

	c, err := internal_session.New(r.logger, r.newDevice(deviceID), r.uploader, r.controllerOptions()...)
	if err != nil {
		return nil, fmt.Errorf("creating controller for %s: %w", deviceID, err)
	}
	events, _ := c.Subscribe()
	r.observers.Add(1)
	go r.observe(events)
	r.controllers[deviceID] = c
	r.logger.Infow("capture controller created", "device", deviceID, "mode", r.cfg.Mode)
	return c, nil
}

func (r *Registry) controllerOptions() []internal_session.Option {
	opts := []internal_session.Option{
		internal_session.WithMode(internal_session.Mode(r.cfg.Mode)),
		internal_session.WithMaxDuration(r.cfg.MaxDuration),
		internal_session.WithMaxPayloadBytes(r.cfg.MaxPayloadBytes),
		internal_session.WithBaseName(r.cfg.BaseName),
	}
	if !utils.IsEmpty(r.cfg.IndexField) {
		opts = append(opts, internal_session.WithIndexField(r.cfg.IndexField))
	}
	if r.cfg.EventBuffer > 0 {
		opts = append(opts, internal_session.WithEventBuffer(r.cfg.EventBuffer))
	}
	if r.lease != nil {
		opts = append(opts, internal_session.WithLease(r.lease))
	}
	return append(opts, r.sessionOpts...)
}

// observe runs until the controller closes its event stream.
func (r *Registry) observe(events <-chan internal_type.Event) {
	defer r.observers.Done()
	for ev := range events {
		if !ev.Terminal() || ev.Session == nil {
			continue
		}
		r.persist(*ev.Session)
	}
}

func (r *Registry) persist(s internal_type.Session) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if r.store != nil {
		if err := r.store.Save(ctx, internal_history.FromSession(s)); err != nil {
			r.logger.Errorw("persisting capture session", "session", s.ID, "error", err)
		}
	}
	if r.cache != nil && s.State == internal_type.StateCompleted {
		if err := r.cache.Put(ctx, s.ID, s.ResultRef); err != nil {
			r.logger.Warnw("caching analysis result", "session", s.ID, "error", err)
		}
	}
}

// Result returns the analysis result of a completed session from the cache,
// falling back to the history store.
func (r *Registry) Result(ctx context.Context, sessionID string) (string, error) {
	if r.cache != nil {
		result, ok, err := r.cache.Get(ctx, sessionID)
		if err != nil {
			r.logger.Warnw("reading cached result", "session", sessionID, "error", err)
		} else if ok {
			return result, nil
		}
	}
	if r.store == nil {
		return "", fmt.Errorf("%w: %s", ErrResultNotFound, sessionID)
	}
	rec, err := r.store.Get(ctx, sessionID)
	if errors.Is(err, internal_history.ErrNotFound) {
		return "", fmt.Errorf("%w: %s", ErrResultNotFound, sessionID)
	}
	if err != nil {
		return "", err
	}
	if rec.Status != string(internal_type.StateCompleted) {
		return "", fmt.Errorf("%w: session %s is %s", ErrResultNotFound, sessionID, rec.Status)
	}
	return rec.ResultRef, nil
}

// History lists the latest terminal sessions of a device.
func (r *Registry) History(ctx context.Context, deviceID string, limit int) ([]internal_type.Session, error) {
	if !slices.Contains(r.cfg.Devices, deviceID) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDevice, deviceID)
	}
	if r.store == nil {
		return []internal_type.Session{}, nil
	}
	records, err := r.store.ListByDevice(ctx, deviceID, limit)
	if err != nil {
		return nil, err
	}
	out := make([]internal_type.Session, 0, len(records))
	for _, rec := range records {
		out = append(out, rec.Session())
	}
	return out, nil
}

// Close closes every controller and waits for pending outcomes to be
// recorded.
func (r *Registry) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	controllers := make([]*internal_session.Controller, 0, len(r.controllers))
	for _, c := range r.controllers {
		controllers = append(controllers, c)
	}
	r.mu.Unlock()

	var errs []error
	for _, c := range controllers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	r.observers.Wait()
	return errors.Join(errs...)
}
