// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_lease

import (
	"context"
	"sync"

	internal_type "github.com/rapidaai/voice-capture/api/capture-api/internal/type"
)

// LocalLease arbitrates devices between controllers of one process.
type LocalLease struct {
	mu     sync.Mutex
	owners map[string]string
}

func NewLocalLease() *LocalLease {
	return &LocalLease{owners: make(map[string]string)}
}

func (l *LocalLease) Acquire(_ context.Context, deviceID, owner string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if held, ok := l.owners[deviceID]; ok && held != owner {
		return internal_type.ErrDeviceBusy
	}
	l.owners[deviceID] = owner
	return nil
}

func (l *LocalLease) Release(_ context.Context, deviceID, owner string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.owners[deviceID] == owner {
		delete(l.owners, deviceID)
	}
	return nil
}

// Holder returns the current owner of deviceID, if any.
func (l *LocalLease) Holder(deviceID string) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	owner, ok := l.owners[deviceID]
	return owner, ok
}
