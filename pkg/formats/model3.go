package formats

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Model3 descriptor errors.
var (
	ErrMissingMocReference = errors.New("model3: FileReferences.Moc is empty")
)

// Group targets.
const (
	GroupTargetParameter   = "Parameter"
	GroupTargetPartOpacity = "PartOpacity"
)

// Model3 is a parsed .model3.json descriptor.
type Model3 struct {
	Version        int                `json:"Version"`
	FileReferences Model3FileRefs     `json:"FileReferences"`
	Groups         []Model3Group      `json:"Groups"`
	HitAreas       []Model3HitArea    `json:"HitAreas"`
	Layout         map[string]float32 `json:"Layout"`

	// Dir is the directory the descriptor was read from. Relative file
	// references resolve against it.
	Dir string `json:"-"`
}

// Model3FileRefs lists the files a model is assembled from.
type Model3FileRefs struct {
	Moc      string                    `json:"Moc"`
	Textures []string                  `json:"Textures"`
	Physics  string                    `json:"Physics"`
	Pose     string                    `json:"Pose"`
	Motions  map[string][]Model3Motion `json:"Motions"`
}

// Model3Motion references one motion file inside a motion group.
type Model3Motion struct {
	File        string   `json:"File"`
	Sound       string   `json:"Sound"`
	FadeInTime  *float32 `json:"FadeInTime"`
	FadeOutTime *float32 `json:"FadeOutTime"`
}

// Model3Group fans one logical name out to several parameter or part ids.
type Model3Group struct {
	Target string   `json:"Target"`
	Name   string   `json:"Name"`
	Ids    []string `json:"Ids"`
}

// Model3HitArea names a drawable used for hit testing.
type Model3HitArea struct {
	ID   string `json:"Id"`
	Name string `json:"Name"`
}

// ParseModel3 parses a model3 descriptor from raw bytes.
func ParseModel3(data []byte) (*Model3, error) {
	var m Model3
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decoding model3: %w", err)
	}
	if m.FileReferences.Moc == "" {
		return nil, ErrMissingMocReference
	}
	return &m, nil
}

// ParseModel3File reads and parses a model3 descriptor from disk.
func ParseModel3File(path string) (*Model3, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading model3 file: %w", err)
	}
	m, err := ParseModel3(data)
	if err != nil {
		return nil, err
	}
	m.Dir = filepath.Dir(path)
	return m, nil
}

// Resolve joins a descriptor-relative reference with the descriptor directory.
func (m *Model3) Resolve(ref string) string {
	if ref == "" || filepath.IsAbs(ref) {
		return ref
	}
	return filepath.Join(m.Dir, filepath.FromSlash(ref))
}

// MotionGroups returns the motion group names in sorted order.
func (m *Model3) MotionGroups() []string {
	names := make([]string, 0, len(m.FileReferences.Motions))
	for name := range m.FileReferences.Motions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GroupsFor returns the groups with the given target.
func (m *Model3) GroupsFor(target string) []Model3Group {
	var out []Model3Group
	for _, g := range m.Groups {
		if g.Target == target {
			out = append(out, g)
		}
	}
	return out
}
