// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_session

import (
	"sync"

	internal_type "github.com/rapidaai/voice-capture/api/capture-api/internal/type"
)

// broadcaster fans controller events out to subscribers. Sends never block:
// a full subscriber channel drops its oldest event so the newest one, which
// is usually the terminal event, is always delivered.
type broadcaster struct {
	mu     sync.Mutex
	size   int
	nextID int
	subs   map[int]chan internal_type.Event
	closed bool
}

func newBroadcaster(size int) *broadcaster {
	if size < 1 {
		size = 1
	}
	return &broadcaster{size: size, subs: make(map[int]chan internal_type.Event)}
}

func (b *broadcaster) subscribe() (<-chan internal_type.Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan internal_type.Event, b.size)
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if sub, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(sub)
			}
		})
	}
}

func (b *broadcaster) publish(ev internal_type.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		for {
			select {
			case ch <- ev:
			default:
				// drop oldest and try again
				select {
				case <-ch:
				default:
				}
				continue
			}
			break
		}
	}
}

func (b *broadcaster) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
