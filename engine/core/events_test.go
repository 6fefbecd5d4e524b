package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventSystemLifecycle(t *testing.T) {
	require.True(t, EventSystemInitialize())
	defer EventSystemShutdown()

	// Double initialization is rejected.
	assert.False(t, EventSystemInitialize())
}

func TestEventDispatchOrder(t *testing.T) {
	require.True(t, EventSystemInitialize())
	defer EventSystemShutdown()

	var order []string
	require.NoError(t, EventRegister(EVENT_CODE_KEY_PRESSED, func(context EventContext) {
		order = append(order, "first")
	}))
	require.NoError(t, EventRegister(EVENT_CODE_KEY_PRESSED, func(context EventContext) {
		order = append(order, "second")
	}))
	require.NoError(t, EventRegister(EVENT_CODE_KEY_RELEASED, func(context EventContext) {
		order = append(order, "released")
	}))

	EventFire(EventContext{Type: EVENT_CODE_KEY_PRESSED, Data: &KeyEvent{KeyCode: KEY_SPACE}})
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestEventFirePassesData(t *testing.T) {
	require.True(t, EventSystemInitialize())
	defer EventSystemShutdown()

	var got *SystemEvent
	require.NoError(t, EventRegister(EVENT_CODE_RESIZED, func(context EventContext) {
		got = context.Data.(*SystemEvent)
	}))

	EventFire(EventContext{
		Type: EVENT_CODE_RESIZED,
		Data: &SystemEvent{WindowWidth: 800, WindowHeight: 600},
	})

	require.NotNil(t, got)
	assert.Equal(t, uint32(800), got.WindowWidth)
	assert.Equal(t, uint32(600), got.WindowHeight)
}

func TestEventSystemUninitialized(t *testing.T) {
	// Fire on a shut down system is a no-op, register errors.
	assert.Error(t, EventRegister(EVENT_CODE_APPLICATION_QUIT, func(context EventContext) {}))
	EventFire(EventContext{Type: EVENT_CODE_APPLICATION_QUIT})
	assert.Error(t, EventSystemShutdown())
}

func TestIdentifierUniqueness(t *testing.T) {
	a := NewIdentifier()
	b := NewIdentifier()

	assert.NotEqual(t, a, b)
	assert.False(t, a.IsZero())
	assert.True(t, Identifier{}.IsZero())
	assert.NotEmpty(t, a.String())
}
