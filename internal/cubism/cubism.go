//go:build cubism

package cubism

/*
#cgo LDFLAGS: -lLive2DCubismCore -lm
#include <stdlib.h>
#include <string.h>
#include <Live2DCubismCore.h>
*/
import "C"
import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/Faultbox/marionette/pkg/formats"
	mathx "github.com/Faultbox/marionette/pkg/math"
	"github.com/Faultbox/marionette/pkg/moc"
)

var (
	// ErrReviveFailed is returned when the core rejects the moc data.
	ErrReviveFailed = errors.New("cubism: moc revive failed")
	// ErrInitFailed is returned when model instantiation fails.
	ErrInitFailed = errors.New("cubism: model init failed")
)

// Buffer alignment required by csmReviveMocInPlace and
// csmInitializeModelInPlace.
const (
	mocAlign   = 64
	modelAlign = 16
)

func init() {
	moc.Register(Name, Core{})
}

// Core is the moc.Core backed by the native Cubism library.
type Core struct{}

// LatestMocVersion implements moc.Core.
func (Core) LatestMocVersion() formats.MocVersion {
	return formats.MocVersion(C.csmGetLatestMocVersion())
}

// MocVersion implements moc.Core.
func (Core) MocVersion(data []byte) formats.MocVersion {
	if len(data) == 0 {
		return formats.MocVersionUnknown
	}
	buf, base := alignedCopy(data, mocAlign)
	defer C.free(base)
	return formats.MocVersion(C.csmGetMocVersion(buf, C.uint(len(data))))
}

// Load implements moc.Core.
func (Core) Load(data []byte) (moc.Handle, error) {
	if len(data) == 0 {
		return nil, ErrReviveFailed
	}

	mocBuf, mocBase := alignedCopy(data, mocAlign)
	cmoc := C.csmReviveMocInPlace(mocBuf, C.uint(len(data)))
	if cmoc == nil {
		C.free(mocBase)
		return nil, ErrReviveFailed
	}

	size := C.csmGetSizeofModel(cmoc)
	modelBuf, modelBase := alignedAlloc(uintptr(size), modelAlign)
	cmodel := C.csmInitializeModelInPlace(cmoc, modelBuf, size)
	if cmodel == nil {
		C.free(modelBase)
		C.free(mocBase)
		return nil, fmt.Errorf("%w: %d bytes", ErrInitFailed, size)
	}

	h := &handle{model: cmodel, mocBase: mocBase, modelBase: modelBase}
	h.bind()
	return h, nil
}

// alignedAlloc returns a C buffer of size bytes aligned to a, along
// with the base pointer to free.
func alignedAlloc(size, a uintptr) (unsafe.Pointer, unsafe.Pointer) {
	base := C.calloc(1, C.size_t(size+a))
	p := (uintptr(base) + a - 1) &^ (a - 1)
	return unsafe.Add(base, p-uintptr(base)), base
}

func alignedCopy(data []byte, align uintptr) (unsafe.Pointer, unsafe.Pointer) {
	p, base := alignedAlloc(uintptr(len(data)), align)
	C.memcpy(p, unsafe.Pointer(&data[0]), C.size_t(len(data)))
	return p, base
}

// handle views the model's native arrays. Value slices alias C memory;
// the per-drawable pointer tables are stable for the model's lifetime.
type handle struct {
	model     *C.csmModel
	mocBase   unsafe.Pointer
	modelBase unsafe.Pointer

	canvas moc.Canvas

	paramIDs []string
	values   []float32
	minimums []float32
	maximums []float32
	defaults []float32

	partIDs   []string
	opacities []float32

	drawableIDs []string
	textures    []int32
	constFlags  []moc.ConstantFlags
	dynFlags    []moc.DynamicFlags
	positions   [][]mathx.Vec2
	uvs         [][]mathx.Vec2
	indices     [][]uint16
	drawOpacity []float32
	drawOrders  []int32
	renderOrder []int32
	masks       [][]int32
}

func (h *handle) bind() {
	m := h.model

	var size, origin C.csmVector2
	var ppu C.float
	C.csmReadCanvasInfo(m, &size, &origin, &ppu)
	h.canvas = moc.Canvas{
		Size:          mathx.Vec2{X: float32(size.X), Y: float32(size.Y)},
		PivotOrigin:   mathx.Vec2{X: float32(origin.X), Y: float32(origin.Y)},
		PixelsPerUnit: float32(ppu),
	}

	np := int(C.csmGetParameterCount(m))
	h.paramIDs = goStrings(C.csmGetParameterIds(m), np)
	h.values = floats(unsafe.Pointer(C.csmGetParameterValues(m)), np)
	h.minimums = floats(unsafe.Pointer(C.csmGetParameterMinimumValues(m)), np)
	h.maximums = floats(unsafe.Pointer(C.csmGetParameterMaximumValues(m)), np)
	h.defaults = floats(unsafe.Pointer(C.csmGetParameterDefaultValues(m)), np)

	nparts := int(C.csmGetPartCount(m))
	h.partIDs = goStrings(C.csmGetPartIds(m), nparts)
	h.opacities = floats(unsafe.Pointer(C.csmGetPartOpacities(m)), nparts)

	nd := int(C.csmGetDrawableCount(m))
	h.drawableIDs = goStrings(C.csmGetDrawableIds(m), nd)
	h.textures = ints(unsafe.Pointer(C.csmGetDrawableTextureIndices(m)), nd)
	h.constFlags = unsafe.Slice((*moc.ConstantFlags)(unsafe.Pointer(C.csmGetDrawableConstantFlags(m))), nd)
	h.dynFlags = unsafe.Slice((*moc.DynamicFlags)(unsafe.Pointer(C.csmGetDrawableDynamicFlags(m))), nd)
	h.drawOpacity = floats(unsafe.Pointer(C.csmGetDrawableOpacities(m)), nd)
	h.drawOrders = ints(unsafe.Pointer(C.csmGetDrawableDrawOrders(m)), nd)
	h.renderOrder = ints(unsafe.Pointer(C.csmGetDrawableRenderOrders(m)), nd)

	vcounts := ints(unsafe.Pointer(C.csmGetDrawableVertexCounts(m)), nd)
	vpos := unsafe.Slice(C.csmGetDrawableVertexPositions(m), nd)
	vuvs := unsafe.Slice(C.csmGetDrawableVertexUvs(m), nd)
	icounts := ints(unsafe.Pointer(C.csmGetDrawableIndexCounts(m)), nd)
	idx := unsafe.Slice(C.csmGetDrawableIndices(m), nd)
	mcounts := ints(unsafe.Pointer(C.csmGetDrawableMaskCounts(m)), nd)
	masks := unsafe.Slice(C.csmGetDrawableMasks(m), nd)

	h.positions = make([][]mathx.Vec2, nd)
	h.uvs = make([][]mathx.Vec2, nd)
	h.indices = make([][]uint16, nd)
	h.masks = make([][]int32, nd)
	for i := 0; i < nd; i++ {
		h.positions[i] = vecs(unsafe.Pointer(vpos[i]), int(vcounts[i]))
		h.uvs[i] = vecs(unsafe.Pointer(vuvs[i]), int(vcounts[i]))
		if n := int(icounts[i]); n > 0 {
			h.indices[i] = unsafe.Slice((*uint16)(unsafe.Pointer(idx[i])), n)
		}
		if n := int(mcounts[i]); n > 0 {
			h.masks[i] = ints(unsafe.Pointer(masks[i]), n)
		}
	}
}

func goStrings(p **C.char, n int) []string {
	if n == 0 {
		return nil
	}
	out := make([]string, n)
	for i, s := range unsafe.Slice(p, n) {
		out[i] = C.GoString(s)
	}
	return out
}

func floats(p unsafe.Pointer, n int) []float32 {
	if n == 0 || p == nil {
		return nil
	}
	return unsafe.Slice((*float32)(p), n)
}

func ints(p unsafe.Pointer, n int) []int32 {
	if n == 0 || p == nil {
		return nil
	}
	return unsafe.Slice((*int32)(p), n)
}

// vecs reinterprets a csmVector2 array; both layouts are two packed floats.
func vecs(p unsafe.Pointer, n int) []mathx.Vec2 {
	if n == 0 || p == nil {
		return nil
	}
	return unsafe.Slice((*mathx.Vec2)(p), n)
}

func (h *handle) Canvas() moc.Canvas { return h.canvas }

func (h *handle) ParameterIDs() []string       { return h.paramIDs }
func (h *handle) ParameterValues() []float32   { return h.values }
func (h *handle) ParameterMinimums() []float32 { return h.minimums }
func (h *handle) ParameterMaximums() []float32 { return h.maximums }
func (h *handle) ParameterDefaults() []float32 { return h.defaults }

func (h *handle) PartIDs() []string        { return h.partIDs }
func (h *handle) PartOpacities() []float32 { return h.opacities }

func (h *handle) DrawableIDs() []string                      { return h.drawableIDs }
func (h *handle) DrawableTextureIndices() []int32            { return h.textures }
func (h *handle) DrawableConstantFlags() []moc.ConstantFlags { return h.constFlags }
func (h *handle) DrawableDynamicFlags() []moc.DynamicFlags   { return h.dynFlags }
func (h *handle) DrawableVertexPositions() [][]mathx.Vec2    { return h.positions }
func (h *handle) DrawableVertexUVs() [][]mathx.Vec2          { return h.uvs }
func (h *handle) DrawableIndices() [][]uint16                { return h.indices }
func (h *handle) DrawableOpacities() []float32               { return h.drawOpacity }
func (h *handle) DrawableDrawOrders() []int32                { return h.drawOrders }
func (h *handle) DrawableRenderOrders() []int32              { return h.renderOrder }
func (h *handle) DrawableMasks() [][]int32                   { return h.masks }

func (h *handle) Update() {
	C.csmUpdateModel(h.model)
}

func (h *handle) ResetDynamicFlags() {
	C.csmResetDrawableDynamicFlags(h.model)
}

func (h *handle) Release() {
	if h.model == nil {
		return
	}
	C.free(h.modelBase)
	C.free(h.mocBase)
	*h = handle{}
}
