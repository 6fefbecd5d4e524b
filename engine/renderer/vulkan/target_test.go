package vulkan

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
)

func TestTakeRequestsIsEdgeTriggered(t *testing.T) {
	target := NewTarget(true)

	assert.False(t, target.TakeRequests().Any())

	target.RequestResize()
	requests := target.TakeRequests()
	assert.True(t, requests.Resize)
	assert.False(t, requests.Reload)
	assert.False(t, target.TakeRequests().Any())

	target.RequestReload()
	target.RequestResize()
	requests = target.TakeRequests()
	assert.True(t, requests.Reload)
	assert.True(t, requests.Resize)
	assert.False(t, target.TakeRequests().Any())
}

func TestSetVSyncRequestsReloadOnChange(t *testing.T) {
	target := NewTarget(true)

	target.SetVSync(true)
	assert.False(t, target.TakeRequests().Any())

	target.SetVSync(false)
	assert.False(t, target.VSync())
	assert.True(t, target.TakeRequests().Reload)

	target.SetVSync(true)
	assert.True(t, target.VSync())
	assert.True(t, target.TakeRequests().Reload)
}

func TestChoosePresentMode(t *testing.T) {
	all := []vk.PresentMode{vk.PresentModeImmediate, vk.PresentModeMailbox, vk.PresentModeFifo}

	vsyncOn := NewTarget(true)
	assert.Equal(t, vk.PresentModeFifo, vsyncOn.choosePresentMode(all))

	vsyncOff := NewTarget(false)
	assert.Equal(t, vk.PresentModeMailbox, vsyncOff.choosePresentMode(all))
	assert.Equal(t, vk.PresentModeImmediate,
		vsyncOff.choosePresentMode([]vk.PresentMode{vk.PresentModeImmediate, vk.PresentModeFifo}))
	assert.Equal(t, vk.PresentModeFifo,
		vsyncOff.choosePresentMode([]vk.PresentMode{vk.PresentModeFifo}))
}

func TestTargetDefaults(t *testing.T) {
	target := NewTarget(true)
	assert.Equal(t, uint32(2), target.MaxFramesInFlight)
	assert.Equal(t, uint32(0), target.FrameIndex())
	assert.True(t, target.VSync())
}
