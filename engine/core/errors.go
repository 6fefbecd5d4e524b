package core

import (
	"errors"
)

// ErrTargetRebuilding signals that the presentable target is being torn
// down and recreated; the current tick should skip rendering.
var ErrTargetRebuilding = errors.New("target resized or recreated, booting")
