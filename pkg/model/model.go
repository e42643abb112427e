// Package model holds the live state of a loaded puppet: parameters, part
// opacities and the drawable set derived from them by the native runtime.
//
// Parameter, part and drawable ids are interned into stable indices at
// load. Hot paths (motion curves, physics) resolve their ids once and use
// the ...At accessors; the string-keyed methods are a thin layer on top
// that also understands model3 groups.
package model

import (
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/Faultbox/marionette/pkg/formats"
	"github.com/Faultbox/marionette/pkg/moc"
)

// Load errors.
var (
	ErrMocNotFound   = errors.New("moc3 file not found")
	ErrMocUnreadable = errors.New("moc3 file unreadable")
	ErrInvalidMoc    = errors.New("moc3 data rejected by runtime")
)

// Model is a loaded puppet. It is not safe for concurrent use; callers
// mutate it only between ticks.
type Model struct {
	handle moc.Handle
	log    *zap.Logger

	paramIndex    map[string]int
	partIndex     map[string]int
	drawableIndex map[string]int
	paramGroups   map[string][]int
	partGroups    map[string][]int
	groups        []formats.Model3Group

	partDefaults []float32

	drawables []Drawable
	order     []int

	honorInvertedMask bool
	revision          uint64
	listeners         map[int]func(*Model)
	nextListener      int
	warned            map[string]struct{}
}

// Option configures a Model.
type Option func(*Model)

// WithLogger sets the logger used for lookup and load diagnostics.
func WithLogger(log *zap.Logger) Option {
	return func(m *Model) {
		if log != nil {
			m.log = log
		}
	}
}

// WithGroups installs the model3 group table used for name fan-out.
func WithGroups(groups []formats.Model3Group) Option {
	return func(m *Model) {
		m.groups = groups
	}
}

// WithInvertedMaskFlag makes drawables report the runtime's inverted-mask
// bit. By default the bit is tested against the double-sided flag and
// never matches, so every masked drawable uses the normal mask convention.
func WithInvertedMaskFlag(honor bool) Option {
	return func(m *Model) {
		m.honorInvertedMask = honor
	}
}

// Load reads a compiled model from path and instantiates it with core.
func Load(core moc.Core, path string, opts ...Option) (*Model, error) {
	log := zap.NewNop()
	probe := &Model{log: log}
	for _, opt := range opts {
		opt(probe)
	}
	log = probe.log

	if _, err := os.Stat(path); err != nil {
		log.Error("moc3 file doesn't exist", zap.String("path", path), zap.Error(err))
		return nil, fmt.Errorf("%w: %s", ErrMocNotFound, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Error("couldn't read moc3 file", zap.String("path", path), zap.Error(err))
		return nil, fmt.Errorf("%w: %s: %v", ErrMocUnreadable, path, err)
	}

	version := core.MocVersion(data)
	if err := formats.CheckMocVersion(version, core.LatestMocVersion()); err != nil {
		log.Error("moc3 version not supported",
			zap.String("path", path),
			zap.Stringer("version", version),
			zap.Stringer("latest", core.LatestMocVersion()))
		return nil, err
	}

	handle, err := core.Load(data)
	if err != nil {
		log.Error("runtime rejected moc3", zap.String("path", path), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrInvalidMoc, err)
	}

	m := New(handle, opts...)
	m.log.Debug("model loaded",
		zap.String("path", path),
		zap.Stringer("version", version),
		zap.Int("parameters", len(m.paramIndex)),
		zap.Int("parts", len(m.partIndex)),
		zap.Int("drawables", len(m.drawables)))
	return m, nil
}

// New wraps an already-loaded runtime handle and performs the initial
// drawable update.
func New(handle moc.Handle, opts ...Option) *Model {
	m := &Model{
		handle:        handle,
		log:           zap.NewNop(),
		paramIndex:    make(map[string]int),
		partIndex:     make(map[string]int),
		drawableIndex: make(map[string]int),
		paramGroups:   make(map[string][]int),
		partGroups:    make(map[string][]int),
		listeners:     make(map[int]func(*Model)),
		warned:        make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}

	for i, id := range handle.ParameterIDs() {
		m.paramIndex[id] = i
	}
	for i, id := range handle.PartIDs() {
		m.partIndex[id] = i
	}
	m.partDefaults = append([]float32(nil), handle.PartOpacities()...)

	m.buildGroups()
	m.buildDrawables()
	m.UpdateDrawables()
	return m
}

func (m *Model) buildGroups() {
	for _, g := range m.groups {
		var table map[string][]int
		var index map[string]int
		switch g.Target {
		case formats.GroupTargetParameter:
			table, index = m.paramGroups, m.paramIndex
		case formats.GroupTargetPartOpacity:
			table, index = m.partGroups, m.partIndex
		default:
			m.log.Warn("ignoring group with unknown target",
				zap.String("group", g.Name), zap.String("target", g.Target))
			continue
		}

		ids := make([]int, 0, len(g.Ids))
		for _, id := range g.Ids {
			idx, ok := index[id]
			if !ok {
				m.log.Warn("group references unknown id",
					zap.String("group", g.Name), zap.String("id", id))
				continue
			}
			ids = append(ids, idx)
		}
		table[g.Name] = ids
	}
}

// Handle returns the underlying runtime handle.
func (m *Model) Handle() moc.Handle {
	return m.handle
}

// Canvas returns the model's canvas info.
func (m *Model) Canvas() moc.Canvas {
	return m.handle.Canvas()
}

// Release frees the runtime handle.
func (m *Model) Release() {
	m.handle.Release()
}

// lookupFailed logs an unknown id once per model.
func (m *Model) lookupFailed(kind, name string) {
	key := kind + "\x00" + name
	if _, seen := m.warned[key]; seen {
		return
	}
	m.warned[key] = struct{}{}
	m.log.Warn("unknown "+kind, zap.String("id", name))
}
