package engine

import (
	"fmt"

	"github.com/spaghettifunk/magma/engine/core"
)

// RunFunc is one step of the frame loop. Returning an error aborts the loop.
type RunFunc func() error

type runEntry struct {
	id   core.Identifier
	fn   RunFunc
	once bool
}

// FrameLoop drives registered run steps every iteration until shutdown.
// Steps run in registration order; end callbacks run in reverse order, so
// teardown mirrors setup.
type FrameLoop struct {
	running  bool
	shutdown bool

	entries []*runEntry
	removed map[core.Identifier]bool
	ends    []func()
}

func NewFrameLoop() *FrameLoop {
	return &FrameLoop{
		removed: map[core.Identifier]bool{},
	}
}

// AddRun registers a step invoked every iteration and returns its id for
// later removal.
func (loop *FrameLoop) AddRun(fn RunFunc) (core.Identifier, error) {
	if fn == nil {
		return core.Identifier{}, fmt.Errorf("run step is nil")
	}
	entry := &runEntry{id: core.NewIdentifier(), fn: fn}
	loop.entries = append(loop.entries, entry)
	return entry.id, nil
}

// AddRunOnce registers a step that removes itself after its first run.
func (loop *FrameLoop) AddRunOnce(fn RunFunc) (core.Identifier, error) {
	if fn == nil {
		return core.Identifier{}, fmt.Errorf("run step is nil")
	}
	entry := &runEntry{id: core.NewIdentifier(), fn: fn, once: true}
	loop.entries = append(loop.entries, entry)
	return entry.id, nil
}

// AddRunEnd registers a callback invoked when the loop finishes.
func (loop *FrameLoop) AddRunEnd(fn func()) {
	if fn != nil {
		loop.ends = append(loop.ends, fn)
	}
}

// RemoveRun marks a step for removal. Safe to call from inside a step; the
// removal takes effect before the step would run again.
func (loop *FrameLoop) RemoveRun(id core.Identifier) {
	loop.removed[id] = true
}

// Shutdown requests the loop to stop after the current iteration.
func (loop *FrameLoop) Shutdown() {
	loop.shutdown = true
}

func (loop *FrameLoop) Running() bool { return loop.running }

// Run iterates the registered steps until Shutdown is called or a step
// fails. End callbacks run in either case.
func (loop *FrameLoop) Run() error {
	if loop.running {
		return fmt.Errorf("frame loop already running")
	}
	loop.running = true
	loop.shutdown = false

	defer func() {
		loop.running = false
		for i := len(loop.ends) - 1; i >= 0; i-- {
			loop.ends[i]()
		}
	}()

	for !loop.shutdown {
		if err := loop.iterate(); err != nil {
			return err
		}
	}
	return nil
}

func (loop *FrameLoop) iterate() error {
	// Steps added during the iteration run from the next one.
	entries := loop.entries

	for _, entry := range entries {
		if loop.shutdown {
			break
		}
		if loop.removed[entry.id] {
			continue
		}
		if entry.once {
			loop.removed[entry.id] = true
		}
		if err := entry.fn(); err != nil {
			return err
		}
	}

	loop.compact()
	return nil
}

func (loop *FrameLoop) compact() {
	if len(loop.removed) == 0 {
		return
	}
	kept := loop.entries[:0]
	for _, entry := range loop.entries {
		if loop.removed[entry.id] {
			continue
		}
		kept = append(kept, entry)
	}
	loop.entries = kept
	loop.removed = map[core.Identifier]bool{}
}
