package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/magma/engine/core"
)

// BlockCommand is one recording callback owned by a RenderBlock, with a
// primary command buffer per frame in flight.
type BlockCommand struct {
	ID   core.Identifier
	Name string

	active  bool
	buffers []*VulkanCommandBuffer
	record  func(commandBuffer *VulkanCommandBuffer) error
}

func (command *BlockCommand) Active() bool         { return command.active }
func (command *BlockCommand) SetActive(state bool) { command.active = state }

// RenderBlock re-records a list of commands every frame. Commands run in the
// order they were added; inactive commands are skipped but keep their
// buffers.
type RenderBlock struct {
	pool       vk.CommandPool
	frameCount uint32

	currentFrame uint32
	commands     []*BlockCommand
}

// RenderBlockCreate builds the block's command pool on the graphics queue
// family. frameCount must match the target's frames in flight.
func RenderBlockCreate(context *VulkanContext, frameCount uint32) (*RenderBlock, error) {
	if frameCount == 0 {
		return nil, fmt.Errorf("render block needs at least one frame")
	}
	block := &RenderBlock{
		frameCount: frameCount,
	}

	poolCreateInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: uint32(context.Device.GraphicsQueueIndex),
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}
	if err := lockPool.SafeCall(CommandPoolManagement, func() error {
		if res := vk.CreateCommandPool(context.Device.LogicalDevice, &poolCreateInfo, context.Allocator, &block.pool); res != vk.Success {
			return errVulkan("vkCreateCommandPool", res)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return block, nil
}

func (block *RenderBlock) Destroy(context *VulkanContext) {
	for _, command := range block.commands {
		for _, buffer := range command.buffers {
			buffer.Free(context, block.pool)
		}
		command.buffers = nil
	}
	block.commands = nil

	if block.pool != vk.NullCommandPool {
		lockPool.SafeCall(CommandPoolManagement, func() error {
			vk.DestroyCommandPool(context.Device.LogicalDevice, block.pool, context.Allocator)
			return nil
		})
		block.pool = vk.NullCommandPool
	}
}

func (block *RenderBlock) FrameCount() uint32   { return block.frameCount }
func (block *RenderBlock) CurrentFrame() uint32 { return block.currentFrame }

// AddCommand registers a named recording callback and allocates its
// per-frame command buffers. The name shows up in error and trace output.
func (block *RenderBlock) AddCommand(context *VulkanContext, name string, record func(commandBuffer *VulkanCommandBuffer) error) (*BlockCommand, error) {
	if record == nil {
		return nil, fmt.Errorf("render block command %q has no recording callback", name)
	}
	command := &BlockCommand{
		ID:     core.NewIdentifier(),
		Name:   name,
		active: true,
		record: record,
	}
	for i := uint32(0); i < block.frameCount; i++ {
		buffer, err := CommandBufferAllocate(context, block.pool, true)
		if err != nil {
			for _, allocated := range command.buffers {
				allocated.Free(context, block.pool)
			}
			return nil, err
		}
		command.buffers = append(command.buffers, buffer)
	}
	block.commands = append(block.commands, command)
	return command, nil
}

func (block *RenderBlock) RemoveCommand(context *VulkanContext, command *BlockCommand) {
	for i, candidate := range block.commands {
		if candidate.ID == command.ID {
			for _, buffer := range candidate.buffers {
				buffer.Free(context, block.pool)
			}
			block.commands = append(block.commands[:i], block.commands[i+1:]...)
			return
		}
	}
	core.LogWarn("command %s not registered with render block", command.ID.String())
}

// Process re-records every active command for the given frame. The buffers
// for that frame must not be pending on the GPU; the target's frame fence
// guarantees that.
func (block *RenderBlock) Process(frameIndex uint32) error {
	return block.runCommands(frameIndex, func(command *BlockCommand) error {
		buffer := command.buffers[frameIndex]
		if err := buffer.Begin(false, false, false); err != nil {
			return fmt.Errorf("command %q: %w", command.Name, err)
		}
		if err := command.record(buffer); err != nil {
			return fmt.Errorf("command %q: %w", command.Name, err)
		}
		if err := buffer.End(); err != nil {
			return fmt.Errorf("command %q: %w", command.Name, err)
		}
		return nil
	})
}

// runCommands drives the active commands in registration order and tracks
// the current frame.
func (block *RenderBlock) runCommands(frameIndex uint32, run func(command *BlockCommand) error) error {
	if frameIndex >= block.frameCount {
		return fmt.Errorf("frame index %d out of range (%d frames)", frameIndex, block.frameCount)
	}
	block.currentFrame = frameIndex
	for _, command := range block.commands {
		if !command.active {
			continue
		}
		if err := run(command); err != nil {
			return err
		}
	}
	return nil
}

// CommandBuffers returns the recorded buffers of the active commands for a
// frame, in processing order, ready for submission.
func (block *RenderBlock) CommandBuffers(frameIndex uint32) []vk.CommandBuffer {
	if frameIndex >= block.frameCount {
		return nil
	}
	buffers := make([]vk.CommandBuffer, 0, len(block.commands))
	for _, command := range block.commands {
		if !command.active {
			continue
		}
		buffers = append(buffers, command.buffers[frameIndex].Handle)
	}
	return buffers
}
