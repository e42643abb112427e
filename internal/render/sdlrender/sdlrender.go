package sdlrender

import (
	"fmt"
	"image"
	"image/color"
	"time"
	"unsafe"

	"github.com/veandco/go-sdl2/sdl"
	"go.uber.org/zap"

	"github.com/Faultbox/marionette/internal/config"
	"github.com/Faultbox/marionette/internal/render"
	"github.com/Faultbox/marionette/internal/viewer"
	"github.com/Faultbox/marionette/pkg/compositing"
)

// Backend runs the viewer in an SDL window.
type Backend struct {
	window *Window
	bg     color.RGBA
	zoom   float32
	log    *zap.Logger

	textures []*sdl.Texture
	mask     *sdl.Texture
	content  *sdl.Texture
	layerW   int
	layerH   int

	blends map[compositing.Preset]sdl.BlendMode
}

// New opens the window.
func New(cfg *config.Config, log *zap.Logger) (*Backend, error) {
	if log == nil {
		log = zap.NewNop()
	}
	w, err := NewWindow(cfg.Window, log)
	if err != nil {
		return nil, err
	}
	return &Backend{
		window: w,
		bg:     render.Background(cfg.Render.Background),
		zoom:   cfg.Render.Scale,
		log:    log,
		blends: make(map[compositing.Preset]sdl.BlendMode),
	}, nil
}

// Run drives the session at the configured tick rate until it quits or
// the window closes.
func (b *Backend) Run(s *viewer.Session) error {
	if err := b.uploadTextures(s.Puppet().Textures()); err != nil {
		return err
	}

	rate := s.Config().Playback.TickRate
	step := time.Second / time.Duration(rate)
	dt := 1 / float32(rate)

	var (
		in       input
		batches  []compositing.Batch
		lastTime = time.Now()
		acc      time.Duration
		frames   int
		fpsTimer = time.Now()
	)

	b.log.Info("starting render loop", zap.Int("tick_rate", rate))
	for {
		if in.poll() {
			return nil
		}
		for _, a := range in.actions {
			s.Handle(a)
		}
		if s.Quit() {
			return nil
		}
		if in.moved {
			ww, wh := b.window.Size()
			s.Pointer(in.mouseX, in.mouseY, ww, wh)
		}

		// Fixed-step simulation; rendering runs as fast as vsync allows.
		now := time.Now()
		acc += now.Sub(lastTime)
		lastTime = now
		for acc >= step {
			frame := s.Update(dt)
			if frame.Batches != nil {
				batches = frame.Batches
			}
			acc -= step
		}

		if err := b.draw(s, batches); err != nil {
			return fmt.Errorf("render error: %w", err)
		}

		frames++
		if time.Since(fpsTimer) >= time.Second {
			b.log.Debug("fps", zap.Int("count", frames), zap.Int("batches", len(batches)))
			frames = 0
			fpsTimer = time.Now()
		}
	}
}

func (b *Backend) draw(s *viewer.Session, batches []compositing.Batch) error {
	r := b.window.Renderer()
	w, h := b.window.OutputSize()
	if err := b.ensureLayers(w, h); err != nil {
		return err
	}
	tr := render.Fit(s.Puppet().Model().Canvas(), w, h, b.zoom)

	r.SetRenderTarget(nil)
	r.SetDrawColor(b.bg.R, b.bg.G, b.bg.B, b.bg.A)
	r.Clear()

	normal := b.blend(compositing.PresetNormal)
	for i := range batches {
		batch := &batches[i]
		tex := b.texture(batch.TextureIndex)
		verts, idx := Geometry(batch, tr)

		switch batch.Pass {
		case compositing.PassDirect:
			tex.SetBlendMode(b.blend(batch.Blend))
			if err := r.RenderGeometry(tex, verts, idx); err != nil {
				return err
			}

		case compositing.PassMask:
			r.SetRenderTarget(b.mask)
			if batch.MaskOrdinal == 0 {
				r.SetDrawColor(0, 0, 0, 0)
				r.Clear()
			}
			tex.SetBlendMode(normal)
			err := r.RenderGeometry(tex, verts, idx)
			r.SetRenderTarget(nil)
			if err != nil {
				return err
			}

		case compositing.PassMaskedContent:
			r.SetRenderTarget(b.content)
			r.SetDrawColor(0, 0, 0, 0)
			r.Clear()
			tex.SetBlendMode(normal)
			if err := r.RenderGeometry(tex, verts, idx); err != nil {
				r.SetRenderTarget(nil)
				return err
			}
			b.mask.SetBlendMode(b.blend(compositing.MaskPreset(batch.InvertedMask)))
			r.Copy(b.mask, nil, nil)

			r.SetRenderTarget(nil)
			b.content.SetBlendMode(b.blend(batch.Blend))
			r.Copy(b.content, nil, nil)
		}
	}

	r.Present()
	return nil
}

// blend returns the SDL blend mode for p, composing it on first use.
func (b *Backend) blend(p compositing.Preset) sdl.BlendMode {
	if m, ok := b.blends[p]; ok {
		return m
	}
	f := Factors(p)
	m := sdl.ComposeCustomBlendMode(f[0], f[2], sdl.BLENDOPERATION_ADD, f[1], f[3], sdl.BLENDOPERATION_ADD)
	b.blends[p] = m
	return m
}

func (b *Backend) uploadTextures(paths []string) error {
	images := render.LoadTextures(paths, b.log)
	if len(images) == 0 {
		images = append(images, render.Placeholder())
	}
	for _, img := range images {
		tex, err := b.upload(img)
		if err != nil {
			return err
		}
		b.textures = append(b.textures, tex)
	}
	return nil
}

func (b *Backend) upload(img *image.RGBA) (*sdl.Texture, error) {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	tex, err := b.window.Renderer().CreateTexture(sdl.PIXELFORMAT_ABGR8888, sdl.TEXTUREACCESS_STATIC, int32(w), int32(h))
	if err != nil {
		return nil, fmt.Errorf("creating %dx%d texture: %w", w, h, err)
	}
	if err := tex.Update(nil, unsafe.Pointer(&img.Pix[0]), img.Stride); err != nil {
		tex.Destroy()
		return nil, fmt.Errorf("uploading texture: %w", err)
	}
	return tex, nil
}

func (b *Backend) ensureLayers(w, h int) error {
	if b.mask != nil && b.layerW == w && b.layerH == h {
		return nil
	}
	b.destroyLayers()

	r := b.window.Renderer()
	var err error
	if b.mask, err = r.CreateTexture(sdl.PIXELFORMAT_ABGR8888, sdl.TEXTUREACCESS_TARGET, int32(w), int32(h)); err != nil {
		return fmt.Errorf("creating mask layer: %w", err)
	}
	if b.content, err = r.CreateTexture(sdl.PIXELFORMAT_ABGR8888, sdl.TEXTUREACCESS_TARGET, int32(w), int32(h)); err != nil {
		return fmt.Errorf("creating content layer: %w", err)
	}
	b.layerW, b.layerH = w, h
	b.log.Debug("offscreen layers resized", zap.Int("width", w), zap.Int("height", h))
	return nil
}

func (b *Backend) destroyLayers() {
	if b.mask != nil {
		b.mask.Destroy()
		b.mask = nil
	}
	if b.content != nil {
		b.content.Destroy()
		b.content = nil
	}
}

func (b *Backend) texture(i int) *sdl.Texture {
	if i >= 0 && i < len(b.textures) {
		return b.textures[i]
	}
	return b.textures[0]
}

// Close frees textures and the window.
func (b *Backend) Close() {
	b.destroyLayers()
	for _, tex := range b.textures {
		tex.Destroy()
	}
	b.textures = nil
	b.window.Close()
}

// Factors returns the SDL factors for p in the order source RGB, source
// alpha, destination RGB, destination alpha.
func Factors(p compositing.Preset) [4]sdl.BlendFactor {
	return [4]sdl.BlendFactor{
		factor(p.SourceRGB),
		factor(p.SourceAlpha),
		factor(p.DestinationRGB),
		factor(p.DestinationAlpha),
	}
}

func factor(f compositing.Factor) sdl.BlendFactor {
	switch f {
	case compositing.FactorZero:
		return sdl.BLENDFACTOR_ZERO
	case compositing.FactorSourceAlpha:
		return sdl.BLENDFACTOR_SRC_ALPHA
	case compositing.FactorOneMinusSourceAlpha:
		return sdl.BLENDFACTOR_ONE_MINUS_SRC_ALPHA
	case compositing.FactorDestinationColor:
		return sdl.BLENDFACTOR_DST_COLOR
	case compositing.FactorDestinationAlpha:
		return sdl.BLENDFACTOR_DST_ALPHA
	case compositing.FactorOneMinusDestinationAlpha:
		return sdl.BLENDFACTOR_ONE_MINUS_DST_ALPHA
	default:
		return sdl.BLENDFACTOR_ONE
	}
}

// Geometry converts a batch into SDL vertices in output pixels and the
// matching index list. Texture coordinates stay normalized; the vertex
// colour is white premultiplied by the batch opacity.
func Geometry(b *compositing.Batch, tr render.Transform) ([]sdl.Vertex, []int32) {
	a := uint8(min(max(b.Opacity, 0), 1)*255 + 0.5)
	tint := sdl.Color{R: a, G: a, B: a, A: a}

	verts := make([]sdl.Vertex, len(b.Vertices))
	idx := make([]int32, len(b.Vertices))
	for i, v := range b.Vertices {
		x, y := tr.Apply(v.X, v.Y)
		verts[i] = sdl.Vertex{
			Position: sdl.FPoint{X: x, Y: y},
			Color:    tint,
			TexCoord: sdl.FPoint{X: v.U, Y: v.V},
		}
		idx[i] = int32(i)
	}
	return verts, idx
}
