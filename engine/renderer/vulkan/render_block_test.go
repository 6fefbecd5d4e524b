package vulkan

import (
	"fmt"
	"testing"

	"github.com/spaghettifunk/magma/engine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBlock(frameCount uint32, commandCount int) (*RenderBlock, []*BlockCommand) {
	block := &RenderBlock{frameCount: frameCount}
	commands := make([]*BlockCommand, commandCount)
	for i := range commands {
		command := &BlockCommand{
			ID:     core.NewIdentifier(),
			active: true,
		}
		for f := uint32(0); f < frameCount; f++ {
			command.buffers = append(command.buffers, &VulkanCommandBuffer{})
		}
		commands[i] = command
		block.commands = append(block.commands, command)
	}
	return block, commands
}

func TestRunCommandsOrder(t *testing.T) {
	block, commands := testBlock(2, 3)

	var order []string
	names := map[*BlockCommand]string{
		commands[0]: "a",
		commands[1]: "b",
		commands[2]: "c",
	}
	run := func(command *BlockCommand) error {
		order = append(order, names[command])
		return nil
	}

	require.NoError(t, block.runCommands(0, run))
	assert.Equal(t, []string{"a", "b", "c"}, order)
	assert.Equal(t, uint32(0), block.CurrentFrame())

	order = nil
	require.NoError(t, block.runCommands(1, run))
	assert.Equal(t, []string{"a", "b", "c"}, order)
	assert.Equal(t, uint32(1), block.CurrentFrame())
}

func TestRunCommandsSkipsInactive(t *testing.T) {
	block, commands := testBlock(2, 3)
	commands[1].SetActive(false)

	var ran []*BlockCommand
	require.NoError(t, block.runCommands(0, func(command *BlockCommand) error {
		ran = append(ran, command)
		return nil
	}))

	require.Len(t, ran, 2)
	assert.Equal(t, commands[0].ID, ran[0].ID)
	assert.Equal(t, commands[2].ID, ran[1].ID)
}

func TestRunCommandsFrameOutOfRange(t *testing.T) {
	block, _ := testBlock(2, 1)
	err := block.runCommands(2, func(command *BlockCommand) error { return nil })
	assert.Error(t, err)
}

func TestRunCommandsStopsOnError(t *testing.T) {
	block, commands := testBlock(1, 3)

	var ran []*BlockCommand
	err := block.runCommands(0, func(command *BlockCommand) error {
		ran = append(ran, command)
		if command == commands[1] {
			return fmt.Errorf("record failed")
		}
		return nil
	})

	assert.Error(t, err)
	assert.Len(t, ran, 2)
}

func TestCommandBuffersMatchActiveCommands(t *testing.T) {
	block, commands := testBlock(2, 3)
	commands[0].SetActive(false)

	buffers := block.CommandBuffers(1)
	assert.Len(t, buffers, 2)

	assert.Nil(t, block.CommandBuffers(5))
}
