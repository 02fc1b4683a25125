package internal_type

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyDeviceError(t *testing.T) {
	denied := ClassifyDeviceError(fmt.Errorf("open mic: %w", ErrPermissionDenied))
	assert.Equal(t, KindPermissionDenied, denied.Kind)
	assert.True(t, denied.NeedsUserAction())
	assert.True(t, errors.Is(denied, ErrPermissionDenied))

	busy := ClassifyDeviceError(fmt.Errorf("lease: %w", ErrDeviceBusy))
	assert.Equal(t, KindDeviceUnavailable, busy.Kind)
	assert.True(t, errors.Is(busy, ErrDeviceBusy))

	missing := ClassifyDeviceError(errors.New("no capture device"))
	assert.Equal(t, KindDeviceUnavailable, missing.Kind)
	assert.Contains(t, missing.Message, "no capture device")
}

func TestCaptureError_Retryable(t *testing.T) {
	tests := []struct {
		name      string
		err       *CaptureError
		retryable bool
		network   bool
	}{
		{"network", NewNetworkError(errors.New("connection reset")), true, true},
		{"timeout", NewTimeoutError(errors.New("deadline")), true, true},
		{"server 503", NewServerError(503, "unavailable"), true, false},
		{"server 400", NewServerError(400, "bad patient id"), false, false},
		{"permission", &CaptureError{Kind: KindPermissionDenied}, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.retryable, tt.err.Retryable())
			assert.Equal(t, tt.network, tt.err.IsNetwork())
		})
	}
}

func TestCaptureError_Message(t *testing.T) {
	assert.Equal(t, "server_error (HTTP 502): bad gateway", NewServerError(502, "bad gateway").Error())
	assert.Equal(t, "network_error: connection reset", NewNetworkError(errors.New("connection reset")).Error())
}
