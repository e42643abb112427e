// Package moc defines the capability the puppet runtime consumes from a
// native model library: load a compiled model and answer per-parameter,
// per-part and per-drawable array queries about it.
//
// Implementations register themselves by name so that callers can pick
// one from configuration:
//
//	core, err := moc.Lookup("fixture")
//	handle, err := core.Load(data)
package moc

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/Faultbox/marionette/pkg/formats"
	mathx "github.com/Faultbox/marionette/pkg/math"
)

// ErrUnknownCore is returned by Lookup for unregistered names.
var ErrUnknownCore = errors.New("moc: unknown runtime core")

// Canvas describes the model's drawing area. Size and PivotOrigin are in
// pixels; model-space positions are in units.
type Canvas struct {
	Size          mathx.Vec2
	PivotOrigin   mathx.Vec2
	PixelsPerUnit float32
}

// Core loads compiled models.
type Core interface {
	// LatestMocVersion is the newest model version the core can load.
	LatestMocVersion() formats.MocVersion
	// MocVersion reports the version tag of data, or MocVersionUnknown.
	MocVersion(data []byte) formats.MocVersion
	// Load decodes data into a live model handle.
	Load(data []byte) (Handle, error)
}

// Handle is a loaded model instance. Slices returned by the value
// accessors alias the core's memory: writes to ParameterValues and
// PartOpacities are seen by the next Update, and the drawable slices are
// refreshed in place by Update.
type Handle interface {
	Canvas() Canvas

	ParameterIDs() []string
	ParameterValues() []float32
	ParameterMinimums() []float32
	ParameterMaximums() []float32
	ParameterDefaults() []float32

	PartIDs() []string
	PartOpacities() []float32

	DrawableIDs() []string
	DrawableTextureIndices() []int32
	DrawableConstantFlags() []ConstantFlags
	DrawableDynamicFlags() []DynamicFlags
	DrawableVertexPositions() [][]mathx.Vec2
	DrawableVertexUVs() [][]mathx.Vec2
	DrawableIndices() [][]uint16
	DrawableOpacities() []float32
	DrawableDrawOrders() []int32
	DrawableRenderOrders() []int32
	DrawableMasks() [][]int32

	// Update re-runs deformation for the current parameter and part values.
	Update()
	// ResetDynamicFlags clears the per-update change bits.
	ResetDynamicFlags()
	// Release frees native memory. The handle must not be used afterwards.
	Release()
}

var (
	registryMu sync.RWMutex
	registry   = map[string]Core{}
)

// Register makes a core available under name. Registering the same name
// twice replaces the earlier core.
func Register(name string, core Core) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = core
}

// Lookup returns the core registered under name.
func Lookup(name string) (Core, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	core, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %v)", ErrUnknownCore, name, registeredLocked())
	}
	return core, nil
}

// Registered lists registered core names in sorted order.
func Registered() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return registeredLocked()
}

func registeredLocked() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
