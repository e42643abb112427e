// Package sdlrender draws puppet frames with SDL2's geometry renderer.
package sdlrender

import (
	"fmt"
	"runtime"

	"github.com/veandco/go-sdl2/sdl"
	"go.uber.org/zap"

	"github.com/Faultbox/marionette/internal/config"
)

func init() {
	// SDL rendering calls must be made from the main thread
	runtime.LockOSThread()
}

// Window wraps an SDL2 window and its accelerated renderer.
type Window struct {
	config    config.WindowConfig
	sdlWindow *sdl.Window
	renderer  *sdl.Renderer
	log       *zap.Logger
}

// NewWindow creates a window with a renderer that supports render targets.
func NewWindow(cfg config.WindowConfig, log *zap.Logger) (*Window, error) {
	w := &Window{config: cfg, log: log}

	log.Info("initializing SDL2")
	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_EVENTS); err != nil {
		return nil, fmt.Errorf("SDL_Init failed: %w", err)
	}
	sdl.SetHint(sdl.HINT_RENDER_SCALE_QUALITY, "1")

	flags := uint32(sdl.WINDOW_SHOWN | sdl.WINDOW_RESIZABLE | sdl.WINDOW_ALLOW_HIGHDPI)
	if cfg.Fullscreen {
		flags |= sdl.WINDOW_FULLSCREEN_DESKTOP
	}

	var err error
	w.sdlWindow, err = sdl.CreateWindow(
		cfg.Title,
		sdl.WINDOWPOS_CENTERED,
		sdl.WINDOWPOS_CENTERED,
		int32(cfg.Width),
		int32(cfg.Height),
		flags,
	)
	if err != nil {
		sdl.Quit()
		return nil, fmt.Errorf("SDL_CreateWindow failed: %w", err)
	}

	rflags := uint32(sdl.RENDERER_ACCELERATED | sdl.RENDERER_TARGETTEXTURE)
	if cfg.VSync {
		rflags |= sdl.RENDERER_PRESENTVSYNC
	}
	w.renderer, err = sdl.CreateRenderer(w.sdlWindow, -1, rflags)
	if err != nil {
		w.sdlWindow.Destroy()
		sdl.Quit()
		return nil, fmt.Errorf("SDL_CreateRenderer failed: %w", err)
	}

	log.Info("window created",
		zap.String("title", cfg.Title),
		zap.Int("width", cfg.Width),
		zap.Int("height", cfg.Height),
		zap.Bool("fullscreen", cfg.Fullscreen),
		zap.Bool("vsync", cfg.VSync),
	)
	return w, nil
}

// Renderer returns the window's renderer.
func (w *Window) Renderer() *sdl.Renderer {
	return w.renderer
}

// OutputSize returns the drawable size in pixels, which differs from the
// window size on HiDPI displays.
func (w *Window) OutputSize() (int, int) {
	width, height, err := w.renderer.GetOutputSize()
	if err != nil {
		ww, wh := w.sdlWindow.GetSize()
		return int(ww), int(wh)
	}
	return int(width), int(height)
}

// Size returns the window size in screen coordinates.
func (w *Window) Size() (int, int) {
	width, height := w.sdlWindow.GetSize()
	return int(width), int(height)
}

// SetTitle sets the window title.
func (w *Window) SetTitle(title string) {
	w.sdlWindow.SetTitle(title)
}

// Close destroys the renderer and window and shuts SDL down.
func (w *Window) Close() {
	w.log.Info("closing window")

	if w.renderer != nil {
		w.renderer.Destroy()
	}
	if w.sdlWindow != nil {
		w.sdlWindow.Destroy()
	}

	sdl.Quit()
}
