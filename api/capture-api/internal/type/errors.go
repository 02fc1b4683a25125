// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_type

import (
	"errors"
	"fmt"
)

var (
	// ErrPermissionDenied is returned by devices when the user declined access.
	ErrPermissionDenied = errors.New("microphone permission denied")
	// ErrDeviceUnavailable is returned by devices that are absent or disabled.
	ErrDeviceUnavailable = errors.New("capture device unavailable")
	// ErrDeviceBusy is returned by leases when another session owns the device.
	ErrDeviceBusy = errors.New("capture device already claimed")
)

// ErrorKind classifies a session failure.
type ErrorKind string

const (
	KindPermissionDenied  ErrorKind = "permission_denied"
	KindDeviceUnavailable ErrorKind = "device_unavailable"
	KindNetworkError      ErrorKind = "network_error"
	KindServerError       ErrorKind = "server_error"
	KindTimeoutError      ErrorKind = "timeout_error"
)

// CaptureError is the failure recorded on a session in StateFailed.
type CaptureError struct {
	Kind    ErrorKind `json:"kind"`
	Status  int       `json:"status,omitempty"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *CaptureError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s (HTTP %d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *CaptureError) Unwrap() error {
	return e.Err
}

// IsNetwork reports whether the request never produced a server answer.
// Timeouts count as network errors.
func (e *CaptureError) IsNetwork() bool {
	return e.Kind == KindNetworkError || e.Kind == KindTimeoutError
}

// Retryable reports whether resubmitting the same payload can succeed
// without caller changes.
func (e *CaptureError) Retryable() bool {
	switch e.Kind {
	case KindNetworkError, KindTimeoutError:
		return true
	case KindServerError:
		return e.Status >= 500
	}
	return false
}

// NeedsUserAction reports whether the user must intervene (grant access,
// plug a device) before another attempt.
func (e *CaptureError) NeedsUserAction() bool {
	return e.Kind == KindPermissionDenied || e.Kind == KindDeviceUnavailable
}

// ClassifyDeviceError maps a device open or lease error to a CaptureError.
func ClassifyDeviceError(err error) *CaptureError {
	if errors.Is(err, ErrPermissionDenied) {
		return &CaptureError{Kind: KindPermissionDenied, Message: "grant microphone access and try again", Err: err}
	}
	return &CaptureError{Kind: KindDeviceUnavailable, Message: err.Error(), Err: err}
}

func NewNetworkError(err error) *CaptureError {
	return &CaptureError{Kind: KindNetworkError, Message: err.Error(), Err: err}
}

func NewTimeoutError(err error) *CaptureError {
	return &CaptureError{Kind: KindTimeoutError, Message: "upload timed out", Err: err}
}

func NewServerError(status int, message string) *CaptureError {
	return &CaptureError{Kind: KindServerError, Status: status, Message: message}
}
