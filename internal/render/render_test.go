package render

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	mathx "github.com/Faultbox/marionette/pkg/math"
	"github.com/Faultbox/marionette/pkg/moc"
)

func TestFit(t *testing.T) {
	canvas := moc.Canvas{Size: mathx.Vec2{X: 400, Y: 200}, PixelsPerUnit: 100}

	tests := []struct {
		name          string
		width, height int
		zoom          float32
		want          Transform
	}{
		{"exact", 400, 200, 1, Transform{Scale: 1}},
		{"letterbox", 800, 800, 1, Transform{Scale: 2, OffsetX: 0, OffsetY: 200}},
		{"pillarbox", 800, 200, 1, Transform{Scale: 1, OffsetX: 200, OffsetY: 0}},
		{"zoom", 400, 200, 0.5, Transform{Scale: 0.5, OffsetX: 100, OffsetY: 50}},
		{"zero zoom", 400, 200, 0, Transform{Scale: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Fit(canvas, tt.width, tt.height, tt.zoom); got != tt.want {
				t.Errorf("Fit = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestFitEmptyCanvas(t *testing.T) {
	got := Fit(moc.Canvas{}, 640, 480, 1)
	if got != (Transform{Scale: 1}) {
		t.Errorf("Fit = %+v, want identity", got)
	}
}

func TestTransformApply(t *testing.T) {
	tr := Transform{Scale: 2, OffsetX: 10, OffsetY: -5}
	if x, y := tr.Apply(3, 4); x != 16 || y != 3 {
		t.Errorf("Apply = (%v, %v), want (16, 3)", x, y)
	}
}

func TestBackground(t *testing.T) {
	got := Background([4]float32{0, 0.5, 1, 2})
	if got != (color.RGBA{R: 0, G: 128, B: 255, A: 255}) {
		t.Errorf("Background = %+v", got)
	}
}

func TestLoadTextures(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tex.png")

	src := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	src.Set(0, 0, color.NRGBA{R: 255, A: 128})
	src.Set(1, 0, color.NRGBA{G: 255, A: 255})
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, src); err != nil {
		t.Fatal(err)
	}
	f.Close()

	got := LoadTextures([]string{path, filepath.Join(dir, "missing.png")}, nil)
	if len(got) != 2 {
		t.Fatalf("got %d textures", len(got))
	}
	if b := got[0].Bounds(); b.Dx() != 2 || b.Dy() != 1 {
		t.Errorf("texture bounds = %v", b)
	}
	// Premultiplied: half-transparent red keeps roughly half its red.
	if r := got[0].Pix[0]; r < 126 || r > 130 {
		t.Errorf("premultiplied red = %d, want ~128", r)
	}
	if b := got[1].Bounds(); b.Dx() != 1 || b.Dy() != 1 || got[1].Pix[3] != 255 {
		t.Errorf("missing texture not replaced by placeholder: %v", b)
	}
}
