package viewer

import (
	"errors"
	"fmt"
	"sort"

	"github.com/quasilyte/gdata/v2"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/Faultbox/marionette/pkg/model"
)

// posesObject is the gdata object that holds one property per pose.
const posesObject = "poses"

// ErrPoseNotFound is returned by PoseStore.Load for unknown names.
var ErrPoseNotFound = errors.New("viewer: pose not found")

// Pose is a snapshot of parameter values and part opacities by id.
type Pose struct {
	Parameters map[string]float32 `yaml:"parameters"`
	Parts      map[string]float32 `yaml:"parts,omitempty"`
}

// CapturePose records every parameter and part of m.
func CapturePose(m *model.Model) Pose {
	p := Pose{
		Parameters: make(map[string]float32, m.ParameterCount()),
		Parts:      make(map[string]float32, m.PartCount()),
	}
	for i, id := range m.ParameterIDs() {
		p.Parameters[id] = m.ParameterValueAt(i)
	}
	for i, id := range m.PartIDs() {
		p.Parts[id] = m.PartOpacityAt(i)
	}
	return p
}

// Apply writes the pose into m and returns the ids m doesn't have,
// sorted. Parameter values are clamped as usual.
func (p Pose) Apply(m *model.Model) (unknown []string) {
	for id, v := range p.Parameters {
		i, ok := m.ParameterIndex(id)
		if !ok {
			unknown = append(unknown, id)
			continue
		}
		m.SetParameterValueAt(i, v)
	}
	for id, v := range p.Parts {
		i, ok := m.PartIndex(id)
		if !ok {
			unknown = append(unknown, id)
			continue
		}
		m.SetPartOpacityAt(i, v)
	}
	sort.Strings(unknown)
	return unknown
}

// PoseStore persists poses in the user's data directory. A store without
// a backing manager keeps poses in memory only.
type PoseStore struct {
	data   *gdata.Manager
	memory map[string][]byte
	log    *zap.Logger
}

// OpenPoseStore opens the gdata storage for appName. If the platform
// storage is unavailable the store falls back to memory and logs why.
func OpenPoseStore(appName string, log *zap.Logger) *PoseStore {
	if log == nil {
		log = zap.NewNop()
	}
	s := &PoseStore{memory: map[string][]byte{}, log: log}
	if appName == "" {
		return s
	}
	m, err := gdata.Open(gdata.Config{AppName: appName})
	if err != nil {
		log.Warn("pose storage unavailable, keeping poses in memory", zap.String("app", appName), zap.Error(err))
		return s
	}
	s.data = m
	return s
}

// Persistent reports whether poses survive a restart.
func (s *PoseStore) Persistent() bool { return s.data != nil }

// Save stores pose under name, replacing any earlier pose.
func (s *PoseStore) Save(name string, pose Pose) error {
	data, err := yaml.Marshal(pose)
	if err != nil {
		return fmt.Errorf("encoding pose %q: %w", name, err)
	}
	if s.data == nil {
		s.memory[name] = data
		return nil
	}
	if err := s.data.SaveObjectProp(posesObject, name, data); err != nil {
		return fmt.Errorf("saving pose %q: %w", name, err)
	}
	s.log.Debug("pose saved", zap.String("name", name), zap.Int("parameters", len(pose.Parameters)))
	return nil
}

// Load returns the pose stored under name.
func (s *PoseStore) Load(name string) (Pose, error) {
	var data []byte
	if s.data == nil {
		var ok bool
		if data, ok = s.memory[name]; !ok {
			return Pose{}, fmt.Errorf("%w: %q", ErrPoseNotFound, name)
		}
	} else {
		if !s.data.ObjectPropExists(posesObject, name) {
			return Pose{}, fmt.Errorf("%w: %q", ErrPoseNotFound, name)
		}
		var err error
		if data, err = s.data.LoadObjectProp(posesObject, name); err != nil {
			return Pose{}, fmt.Errorf("loading pose %q: %w", name, err)
		}
	}

	var pose Pose
	if err := yaml.Unmarshal(data, &pose); err != nil {
		return Pose{}, fmt.Errorf("decoding pose %q: %w", name, err)
	}
	return pose, nil
}
