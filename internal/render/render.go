// Package render holds what the viewer backends share: fitting the model
// canvas into the window and decoding textures.
package render

import (
	"image"
	"image/color"
	"image/draw"
	_ "image/png" // model textures are PNG
	"os"

	"go.uber.org/zap"

	"github.com/Faultbox/marionette/pkg/moc"
)

// Transform maps canvas pixels to window pixels.
type Transform struct {
	Scale   float32
	OffsetX float32
	OffsetY float32
}

// Fit scales the canvas to fit a width x height window, keeps its aspect
// ratio and centers it. zoom multiplies the fitted scale; values <= 0
// count as 1.
func Fit(canvas moc.Canvas, width, height int, zoom float32) Transform {
	if zoom <= 0 {
		zoom = 1
	}
	w, h := float32(width), float32(height)
	cw, ch := canvas.Size.X, canvas.Size.Y
	if cw <= 0 || ch <= 0 {
		return Transform{Scale: zoom, OffsetX: (w - w*zoom) / 2, OffsetY: (h - h*zoom) / 2}
	}
	s := min(w/cw, h/ch) * zoom
	return Transform{
		Scale:   s,
		OffsetX: (w - cw*s) / 2,
		OffsetY: (h - ch*s) / 2,
	}
}

// Apply transforms a canvas point.
func (t Transform) Apply(x, y float32) (float32, float32) {
	return x*t.Scale + t.OffsetX, y*t.Scale + t.OffsetY
}

// Background converts an RGBA 0..1 colour to 8-bit.
func Background(c [4]float32) color.RGBA {
	return color.RGBA{R: unit8(c[0]), G: unit8(c[1]), B: unit8(c[2]), A: unit8(c[3])}
}

func unit8(v float32) uint8 {
	return uint8(min(max(v, 0), 1)*255 + 0.5)
}

// LoadTextures decodes the texture files in order. A texture that can't be
// read is replaced by a 1x1 white image so its drawables still show.
func LoadTextures(paths []string, log *zap.Logger) []*image.RGBA {
	if log == nil {
		log = zap.NewNop()
	}
	out := make([]*image.RGBA, len(paths))
	for i, path := range paths {
		img, err := loadTexture(path)
		if err != nil {
			log.Warn("texture unavailable, using placeholder", zap.String("path", path), zap.Error(err))
			img = Placeholder()
		}
		out[i] = img
	}
	return out
}

func loadTexture(path string) (*image.RGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return nil, err
	}
	if rgba, ok := src.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) {
		return rgba, nil
	}
	// image.RGBA is alpha-premultiplied, which is what the blend presets expect.
	b := src.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), src, b.Min, draw.Src)
	return rgba, nil
}

// Placeholder returns a 1x1 opaque white image.
func Placeholder() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	img.Pix[0], img.Pix[1], img.Pix[2], img.Pix[3] = 255, 255, 255, 255
	return img
}
