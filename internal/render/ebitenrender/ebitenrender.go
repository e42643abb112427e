// Package ebitenrender draws puppet frames with ebiten.
package ebitenrender

import (
	"errors"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"go.uber.org/zap"

	"github.com/Faultbox/marionette/internal/config"
	"github.com/Faultbox/marionette/internal/render"
	"github.com/Faultbox/marionette/internal/viewer"
	"github.com/Faultbox/marionette/pkg/compositing"
)

// keyActions binds viewer actions to keys.
var keyActions = map[ebiten.Key]viewer.Action{
	ebiten.KeySpace:  viewer.ActionToggleMotion,
	ebiten.KeyN:      viewer.ActionNextMotion,
	ebiten.KeyR:      viewer.ActionResetPose,
	ebiten.KeyP:      viewer.ActionTogglePhysics,
	ebiten.KeyF:      viewer.ActionToggleFollow,
	ebiten.KeyS:      viewer.ActionSavePose,
	ebiten.KeyL:      viewer.ActionLoadPose,
	ebiten.KeyEscape: viewer.ActionQuit,
}

// KeyAction returns the action bound to key.
func KeyAction(key ebiten.Key) viewer.Action {
	return keyActions[key]
}

// Backend runs the viewer inside ebiten's game loop.
type Backend struct {
	cfg config.WindowConfig
	bg  color.RGBA
	log *zap.Logger
}

// New configures the ebiten window. The window opens in Run.
func New(cfg *config.Config, log *zap.Logger) *Backend {
	if log == nil {
		log = zap.NewNop()
	}
	ebiten.SetWindowTitle(cfg.Window.Title)
	ebiten.SetWindowSize(cfg.Window.Width, cfg.Window.Height)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetFullscreen(cfg.Window.Fullscreen)
	ebiten.SetVsyncEnabled(cfg.Window.VSync)
	ebiten.SetTPS(cfg.Playback.TickRate)
	return &Backend{cfg: cfg.Window, bg: render.Background(cfg.Render.Background), log: log}
}

// Run blocks until the session quits or the window closes.
func (b *Backend) Run(s *viewer.Session) error {
	g := &game{
		session:  s,
		bg:       b.bg,
		zoom:     s.Config().Render.Scale,
		dt:       1 / float32(s.Config().Playback.TickRate),
		log:      b.log,
		width:    b.cfg.Width,
		height:   b.cfg.Height,
		textures: make([]*ebiten.Image, 0, len(s.Puppet().Textures())),
	}
	for _, img := range render.LoadTextures(s.Puppet().Textures(), b.log) {
		g.textures = append(g.textures, ebiten.NewImageFromImage(img))
	}
	if len(g.textures) == 0 {
		g.textures = append(g.textures, ebiten.NewImageFromImage(render.Placeholder()))
	}

	b.log.Info("ebiten backend running", zap.Int("textures", len(g.textures)))
	err := ebiten.RunGame(g)
	if errors.Is(err, ebiten.Termination) {
		return nil
	}
	return err
}

// Close is a no-op; ebiten tears the window down when RunGame returns.
func (b *Backend) Close() {}

type game struct {
	session *viewer.Session
	frame   compositing.Stats
	batches []compositing.Batch

	textures []*ebiten.Image
	mask     *ebiten.Image
	content  *ebiten.Image

	bg     color.RGBA
	zoom   float32
	dt     float32
	width  int
	height int
	log    *zap.Logger
}

func (g *game) Update() error {
	for key, action := range keyActions {
		if inpututil.IsKeyJustPressed(key) {
			g.session.Handle(action)
		}
	}
	if g.session.Quit() {
		return ebiten.Termination
	}

	x, y := ebiten.CursorPosition()
	g.session.Pointer(x, y, g.width, g.height)

	frame := g.session.Update(g.dt)
	if frame.Batches != nil {
		g.batches = frame.Batches
		g.frame = frame.Stats
	}
	return nil
}

func (g *game) Draw(screen *ebiten.Image) {
	screen.Fill(g.bg)
	tr := render.Fit(g.session.Puppet().Model().Canvas(), g.width, g.height, g.zoom)
	g.ensureLayers(g.width, g.height)

	for i := range g.batches {
		b := &g.batches[i]
		tex := g.texture(b.TextureIndex)
		verts := Vertices(b, tr, tex.Bounds().Dx(), tex.Bounds().Dy())
		idx := b.Indices()

		switch b.Pass {
		case compositing.PassDirect:
			screen.DrawTriangles32(verts, idx, tex, trianglesOptions(b.Blend))
		case compositing.PassMask:
			if b.MaskOrdinal == 0 {
				g.mask.Clear()
			}
			g.mask.DrawTriangles32(verts, idx, tex, trianglesOptions(compositing.PresetNormal))
		case compositing.PassMaskedContent:
			g.content.Clear()
			g.content.DrawTriangles32(verts, idx, tex, trianglesOptions(compositing.PresetNormal))

			var op ebiten.DrawImageOptions
			op.Blend = BlendFor(compositing.MaskPreset(b.InvertedMask))
			g.content.DrawImage(g.mask, &op)

			op = ebiten.DrawImageOptions{}
			op.Blend = BlendFor(b.Blend)
			screen.DrawImage(g.content, &op)
		}
	}
}

func (g *game) Layout(outsideWidth, outsideHeight int) (int, int) {
	g.width, g.height = outsideWidth, outsideHeight
	return outsideWidth, outsideHeight
}

func (g *game) ensureLayers(w, h int) {
	if g.mask != nil && g.mask.Bounds().Dx() == w && g.mask.Bounds().Dy() == h {
		return
	}
	if g.mask != nil {
		g.mask.Deallocate()
		g.content.Deallocate()
	}
	g.mask = ebiten.NewImage(w, h)
	g.content = ebiten.NewImage(w, h)
	g.log.Debug("offscreen layers resized", zap.Int("width", w), zap.Int("height", h))
}

func (g *game) texture(i int) *ebiten.Image {
	if i >= 0 && i < len(g.textures) {
		return g.textures[i]
	}
	return g.textures[0]
}

func trianglesOptions(p compositing.Preset) *ebiten.DrawTrianglesOptions {
	return &ebiten.DrawTrianglesOptions{
		Blend:          BlendFor(p),
		ColorScaleMode: ebiten.ColorScaleModePremultipliedAlpha,
		Filter:         ebiten.FilterLinear,
	}
}

// BlendFor converts a compositing preset to an ebiten blend.
func BlendFor(p compositing.Preset) ebiten.Blend {
	return ebiten.Blend{
		BlendFactorSourceRGB:        factor(p.SourceRGB),
		BlendFactorSourceAlpha:      factor(p.SourceAlpha),
		BlendFactorDestinationRGB:   factor(p.DestinationRGB),
		BlendFactorDestinationAlpha: factor(p.DestinationAlpha),
		BlendOperationRGB:           ebiten.BlendOperationAdd,
		BlendOperationAlpha:         ebiten.BlendOperationAdd,
	}
}

func factor(f compositing.Factor) ebiten.BlendFactor {
	switch f {
	case compositing.FactorZero:
		return ebiten.BlendFactorZero
	case compositing.FactorSourceAlpha:
		return ebiten.BlendFactorSourceAlpha
	case compositing.FactorOneMinusSourceAlpha:
		return ebiten.BlendFactorOneMinusSourceAlpha
	case compositing.FactorDestinationColor:
		return ebiten.BlendFactorDestinationColor
	case compositing.FactorDestinationAlpha:
		return ebiten.BlendFactorDestinationAlpha
	case compositing.FactorOneMinusDestinationAlpha:
		return ebiten.BlendFactorOneMinusDestinationAlpha
	default:
		return ebiten.BlendFactorOne
	}
}

// Vertices converts a batch to ebiten vertices in window pixels. Source
// coordinates are in texels of a texW x texH image; the colour is white
// premultiplied by the batch opacity.
func Vertices(b *compositing.Batch, tr render.Transform, texW, texH int) []ebiten.Vertex {
	out := make([]ebiten.Vertex, len(b.Vertices))
	a := b.Opacity
	for i, v := range b.Vertices {
		x, y := tr.Apply(v.X, v.Y)
		out[i] = ebiten.Vertex{
			DstX:   x,
			DstY:   y,
			SrcX:   v.U * float32(texW),
			SrcY:   v.V * float32(texH),
			ColorR: a,
			ColorG: a,
			ColorB: a,
			ColorA: a,
		}
	}
	return out
}
