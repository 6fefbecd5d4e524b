package vulkan

import (
	"fmt"
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeVariant stands in for a real pipeline flavor so the shared lifecycle
// can be driven without a device.
type fakeVariant struct {
	createCalls int
	failCreate  bool
}

func (variant *fakeVariant) createHandle(context *VulkanContext) error {
	variant.createCalls++
	if variant.failCreate {
		return fmt.Errorf("create failed")
	}
	return nil
}

func (variant *fakeVariant) bindPoint() vk.PipelineBindPoint { return vk.PipelineBindPointGraphics }

func (variant *fakeVariant) prepare(commandBuffer *VulkanCommandBuffer) {}

// createdLayout returns a layout marked created so the lifecycle under test
// skips driver work.
func createdLayout() *PipelineLayout {
	layout := NewPipelineLayout()
	layout.created = true
	return layout
}

func TestPipelineLifecycle(t *testing.T) {
	variant := &fakeVariant{}
	pipeline := newPipeline(createdLayout(), variant)

	assert.False(t, pipeline.Created())
	assert.True(t, pipeline.Active())
	assert.True(t, pipeline.AutoBind())

	require.NoError(t, pipeline.Create(nil))
	assert.True(t, pipeline.Created())
	assert.Equal(t, 1, variant.createCalls)

	err := pipeline.Create(nil)
	require.Error(t, err)
	assert.Equal(t, 1, variant.createCalls)

	pipeline.Destroy(nil)
	assert.False(t, pipeline.Created())

	require.NoError(t, pipeline.Create(nil))
	assert.True(t, pipeline.Created())
	assert.Equal(t, 2, variant.createCalls)
}

func TestPipelineCreateFailureLeavesNotCreated(t *testing.T) {
	variant := &fakeVariant{failCreate: true}
	pipeline := newPipeline(createdLayout(), variant)

	require.Error(t, pipeline.Create(nil))
	assert.False(t, pipeline.Created())
}

func TestPipelineCreateWithoutLayout(t *testing.T) {
	pipeline := newPipeline(nil, &fakeVariant{})
	require.Error(t, pipeline.Create(nil))
}

func TestPipelineActiveToggle(t *testing.T) {
	pipeline := newPipeline(createdLayout(), &fakeVariant{})

	pipeline.SetActive(false)
	assert.False(t, pipeline.Active())
	pipeline.ToggleActive()
	assert.True(t, pipeline.Active())
	pipeline.ToggleActive()
	assert.False(t, pipeline.Active())
}

func TestPipelineProcessSkipsInactive(t *testing.T) {
	pipeline := newPipeline(createdLayout(), &fakeVariant{})
	pipeline.SetAutoBind(false)

	processed := 0
	pipeline.SetProcessCallback(func(commandBuffer *VulkanCommandBuffer) error {
		processed++
		return nil
	})

	pipeline.SetActive(false)
	require.NoError(t, pipeline.Process(&VulkanCommandBuffer{}))
	assert.Equal(t, 0, processed)

	pipeline.SetActive(true)
	require.NoError(t, pipeline.Process(&VulkanCommandBuffer{}))
	assert.Equal(t, 1, processed)
}

func TestPipelineProcessPropagatesCallbackError(t *testing.T) {
	pipeline := newPipeline(createdLayout(), &fakeVariant{})
	pipeline.SetAutoBind(false)
	pipeline.SetProcessCallback(func(commandBuffer *VulkanCommandBuffer) error {
		return fmt.Errorf("record failed")
	})

	assert.Error(t, pipeline.Process(&VulkanCommandBuffer{}))
}
