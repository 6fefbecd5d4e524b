package assets

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spaghettifunk/magma/engine/core"
)

const reloadDebounce = 200 * time.Millisecond

// ShaderWatcher watches shader directories and reports changed shader files.
// Edits arrive as bursts of write events, so changes are debounced and
// handed out on the frame thread through DrainChanges.
type ShaderWatcher struct {
	watcher *fsnotify.Watcher
	done    chan struct{}

	mu      sync.Mutex
	pending map[string]time.Time
}

func NewShaderWatcher() (*ShaderWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	shaderWatcher := &ShaderWatcher{
		watcher: watcher,
		done:    make(chan struct{}),
		pending: map[string]time.Time{},
	}
	go shaderWatcher.run()
	return shaderWatcher, nil
}

// Watch adds a directory to the watch set.
func (shaderWatcher *ShaderWatcher) Watch(dir string) error {
	if err := shaderWatcher.watcher.Add(dir); err != nil {
		return err
	}
	core.LogDebug("watching shader directory %s", dir)
	return nil
}

func (shaderWatcher *ShaderWatcher) Close() error {
	close(shaderWatcher.done)
	return shaderWatcher.watcher.Close()
}

func (shaderWatcher *ShaderWatcher) run() {
	for {
		select {
		case <-shaderWatcher.done:
			return
		case event, ok := <-shaderWatcher.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if !IsShaderFile(event.Name) {
				continue
			}
			shaderWatcher.mu.Lock()
			shaderWatcher.pending[filepath.Clean(event.Name)] = time.Now()
			shaderWatcher.mu.Unlock()
		case err, ok := <-shaderWatcher.watcher.Errors:
			if !ok {
				return
			}
			core.LogWarn("shader watcher: %s", err)
		}
	}
}

// DrainChanges returns the shader paths whose debounce window has passed and
// clears them from the pending set. Called once per frame.
func (shaderWatcher *ShaderWatcher) DrainChanges() []string {
	return shaderWatcher.drainChangesAt(time.Now())
}

func (shaderWatcher *ShaderWatcher) drainChangesAt(now time.Time) []string {
	shaderWatcher.mu.Lock()
	defer shaderWatcher.mu.Unlock()

	var changed []string
	for path, stamp := range shaderWatcher.pending {
		if now.Sub(stamp) < reloadDebounce {
			continue
		}
		changed = append(changed, path)
		delete(shaderWatcher.pending, path)
	}
	return changed
}
