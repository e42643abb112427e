package sdlrender

import (
	"github.com/veandco/go-sdl2/sdl"

	"github.com/Faultbox/marionette/internal/viewer"
)

// scancodeActions binds viewer actions to physical keys.
var scancodeActions = map[sdl.Scancode]viewer.Action{
	sdl.SCANCODE_SPACE:  viewer.ActionToggleMotion,
	sdl.SCANCODE_N:      viewer.ActionNextMotion,
	sdl.SCANCODE_R:      viewer.ActionResetPose,
	sdl.SCANCODE_P:      viewer.ActionTogglePhysics,
	sdl.SCANCODE_F:      viewer.ActionToggleFollow,
	sdl.SCANCODE_S:      viewer.ActionSavePose,
	sdl.SCANCODE_L:      viewer.ActionLoadPose,
	sdl.SCANCODE_ESCAPE: viewer.ActionQuit,
}

// ScancodeAction returns the action bound to a key.
func ScancodeAction(code sdl.Scancode) viewer.Action {
	return scancodeActions[code]
}

// input collects one frame of SDL events.
type input struct {
	actions []viewer.Action
	mouseX  int
	mouseY  int
	moved   bool
	resized bool
}

// poll drains the SDL event queue. It returns true when the window was
// closed.
func (in *input) poll() bool {
	in.actions = in.actions[:0]
	in.moved, in.resized = false, false

	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		switch e := event.(type) {
		case *sdl.QuitEvent:
			return true

		case *sdl.WindowEvent:
			if e.Event == sdl.WINDOWEVENT_SIZE_CHANGED {
				in.resized = true
			}

		case *sdl.KeyboardEvent:
			if e.Type == sdl.KEYDOWN && e.Repeat == 0 {
				if a := ScancodeAction(e.Keysym.Scancode); a != viewer.ActionNone {
					in.actions = append(in.actions, a)
				}
			}

		case *sdl.MouseMotionEvent:
			in.mouseX, in.mouseY = int(e.X), int(e.Y)
			in.moved = true
		}
	}
	return false
}
