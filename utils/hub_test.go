package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hostsboard/services"
)

func TestHub_FanOut(t *testing.T) {
	h := NewHub(8)
	_, a, cancelA := h.Subscribe()
	defer cancelA()
	_, b, cancelB := h.Subscribe()
	defer cancelB()
	require.Equal(t, 2, h.Len())

	h.Publish(services.Event{Type: services.EventClear, Generation: 3})

	ea := <-a
	eb := <-b
	assert.Equal(t, services.EventClear, ea.Type)
	assert.Equal(t, uint64(3), eb.Generation)
}

func TestHub_CancelRemovesSubscriber(t *testing.T) {
	h := NewHub(8)
	_, ch, cancel := h.Subscribe()
	cancel()
	cancel() // idempotent

	assert.Equal(t, 0, h.Len())
	_, ok := <-ch
	assert.False(t, ok)

	// publishing with no subscribers is fine
	h.Publish(services.Event{Type: services.EventStatus})
}

func TestHub_DropsSlowSubscriber(t *testing.T) {
	h := NewHub(1)
	_, slow, cancel := h.Subscribe()
	defer cancel()

	h.Publish(services.Event{Type: services.EventRow})
	h.Publish(services.Event{Type: services.EventRow})

	assert.Equal(t, 0, h.Len())
	e, ok := <-slow
	require.True(t, ok)
	assert.Equal(t, services.EventRow, e.Type)
	_, ok = <-slow
	assert.False(t, ok)
}
