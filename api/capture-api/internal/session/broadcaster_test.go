package internal_session

import (
	"testing"

	internal_type "github.com/rapidaai/voice-capture/api/capture-api/internal/type"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcaster_DropsOldestWhenFull(t *testing.T) {
	b := newBroadcaster(2)
	events, cancel := b.subscribe()
	defer cancel()

	b.publish(internal_type.Event{SessionID: "1"})
	b.publish(internal_type.Event{SessionID: "2"})
	b.publish(internal_type.Event{SessionID: "3", Type: internal_type.EventCompleted})

	first := <-events
	second := <-events
	assert.Equal(t, "2", first.SessionID)
	assert.Equal(t, "3", second.SessionID)
	assert.True(t, second.Terminal())
}

func TestBroadcaster_CancelAndClose(t *testing.T) {
	b := newBroadcaster(4)
	a, cancelA := b.subscribe()
	c, _ := b.subscribe()

	cancelA()
	cancelA()
	_, ok := <-a
	assert.False(t, ok)

	b.publish(internal_type.Event{SessionID: "x"})
	ev, ok := <-c
	require.True(t, ok)
	assert.Equal(t, "x", ev.SessionID)

	b.close()
	b.close()
	_, ok = <-c
	assert.False(t, ok)

	late, _ := b.subscribe()
	_, ok = <-late
	assert.False(t, ok)
}
