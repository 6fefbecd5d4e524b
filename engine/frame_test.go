package engine

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameLoopRunsStepsInOrder(t *testing.T) {
	loop := NewFrameLoop()

	var order []string
	iterations := 0
	_, err := loop.AddRun(func() error {
		order = append(order, "a")
		return nil
	})
	require.NoError(t, err)
	_, err = loop.AddRun(func() error {
		order = append(order, "b")
		iterations++
		if iterations == 2 {
			loop.Shutdown()
		}
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, loop.Run())
	assert.Equal(t, []string{"a", "b", "a", "b"}, order)
	assert.False(t, loop.Running())
}

func TestFrameLoopRunOnce(t *testing.T) {
	loop := NewFrameLoop()

	onceRuns := 0
	_, err := loop.AddRunOnce(func() error {
		onceRuns++
		return nil
	})
	require.NoError(t, err)

	iterations := 0
	_, err = loop.AddRun(func() error {
		iterations++
		if iterations == 3 {
			loop.Shutdown()
		}
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, loop.Run())
	assert.Equal(t, 1, onceRuns)
	assert.Equal(t, 3, iterations)
}

func TestFrameLoopRemoveRun(t *testing.T) {
	loop := NewFrameLoop()

	removedRuns := 0
	id, err := loop.AddRun(func() error {
		removedRuns++
		return nil
	})
	require.NoError(t, err)

	iterations := 0
	_, err = loop.AddRun(func() error {
		iterations++
		if iterations == 1 {
			loop.RemoveRun(id)
		}
		if iterations == 3 {
			loop.Shutdown()
		}
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, loop.Run())
	assert.Equal(t, 1, removedRuns)
}

func TestFrameLoopEndCallbacksReverseOrder(t *testing.T) {
	loop := NewFrameLoop()

	var ends []string
	loop.AddRunEnd(func() { ends = append(ends, "first") })
	loop.AddRunEnd(func() { ends = append(ends, "second") })

	_, err := loop.AddRun(func() error {
		loop.Shutdown()
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, loop.Run())
	assert.Equal(t, []string{"second", "first"}, ends)
}

func TestFrameLoopStepErrorAborts(t *testing.T) {
	loop := NewFrameLoop()

	endCalled := false
	loop.AddRunEnd(func() { endCalled = true })

	_, err := loop.AddRun(func() error {
		return fmt.Errorf("step failed")
	})
	require.NoError(t, err)

	assert.Error(t, loop.Run())
	assert.True(t, endCalled)
	assert.False(t, loop.Running())
}

func TestFrameLoopRejectsNilStep(t *testing.T) {
	loop := NewFrameLoop()
	_, err := loop.AddRun(nil)
	assert.Error(t, err)
	_, err = loop.AddRunOnce(nil)
	assert.Error(t, err)
}
