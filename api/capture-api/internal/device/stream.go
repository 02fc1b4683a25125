// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_device

import (
	"sync"
	"time"
)

// pcmStream collects bytes written by a capture callback and hands them to
// the reader once per interval. The callback never blocks.
type pcmStream struct {
	mu      sync.Mutex
	pending []byte
	stopped bool

	ch       chan []byte
	stop     chan struct{}
	abandon  chan struct{}
	stopOnce sync.Once
	stopErr  error
	relOnce  sync.Once
	relErr   error

	stopSource    func() error
	releaseSource func() error
}

func newPCMStream(interval time.Duration, header []byte, stopSource, releaseSource func() error) *pcmStream {
	s := &pcmStream{
		ch:            make(chan []byte, 16),
		stop:          make(chan struct{}),
		abandon:       make(chan struct{}),
		stopSource:    stopSource,
		releaseSource: releaseSource,
	}
	if len(header) > 0 {
		s.ch <- append([]byte(nil), header...)
	}
	go s.loop(interval)
	return s
}

func (s *pcmStream) Chunks() <-chan []byte {
	return s.ch
}

func (s *pcmStream) write(p []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.pending = append(s.pending, p...)
}

func (s *pcmStream) loop(interval time.Duration) {
	defer close(s.ch)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if !s.flush() {
				return
			}
		case <-s.stop:
			s.flush()
			return
		case <-s.abandon:
			return
		}
	}
}

// flush hands pending bytes to the reader. It reports false once the stream
// was released without anyone reading.
func (s *pcmStream) flush() bool {
	s.mu.Lock()
	chunk := s.pending
	s.pending = nil
	s.mu.Unlock()
	if len(chunk) == 0 {
		return true
	}
	select {
	case s.ch <- chunk:
		return true
	case <-s.abandon:
		return false
	}
}

// Stop halts the source and closes Chunks after one final flush.
func (s *pcmStream) Stop() error {
	s.stopOnce.Do(func() {
		if s.stopSource != nil {
			s.stopErr = s.stopSource()
		}
		s.mu.Lock()
		s.stopped = true
		s.mu.Unlock()
		close(s.stop)
	})
	return s.stopErr
}

func (s *pcmStream) Release() error {
	s.relOnce.Do(func() {
		_ = s.Stop()
		close(s.abandon)
		if s.releaseSource != nil {
			s.relErr = s.releaseSource()
		}
	})
	return s.relErr
}
