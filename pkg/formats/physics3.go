package formats

import (
	"encoding/json"
	"fmt"
	"os"
)

// Physics source and output types.
const (
	PhysicsTypeX     = "X"
	PhysicsTypeY     = "Y"
	PhysicsTypeAngle = "Angle"
)

// Physics3 is a parsed .physics3.json descriptor.
type Physics3 struct {
	Version         int              `json:"Version"`
	Meta            Physics3Meta     `json:"Meta"`
	PhysicsSettings []PhysicsSetting `json:"PhysicsSettings"`
}

// Physics3Meta holds global forces and size hints.
type Physics3Meta struct {
	PhysicsSettingCount int                 `json:"PhysicsSettingCount"`
	TotalInputCount     int                 `json:"TotalInputCount"`
	TotalOutputCount    int                 `json:"TotalOutputCount"`
	VertexCount         int                 `json:"VertexCount"`
	EffectiveForces     EffectiveForces     `json:"EffectiveForces"`
	PhysicsDictionary   []PhysicsDictionary `json:"PhysicsDictionary"`
}

// EffectiveForces are applied to every rig.
type EffectiveForces struct {
	Gravity Vector `json:"Gravity"`
	Wind    Vector `json:"Wind"`
}

// Vector is a descriptor 2D vector.
type Vector struct {
	X float32 `json:"X"`
	Y float32 `json:"Y"`
}

// PhysicsDictionary maps a setting id to a display name.
type PhysicsDictionary struct {
	ID   string `json:"Id"`
	Name string `json:"Name"`
}

// PhysicsSetting describes one simulated chain.
type PhysicsSetting struct {
	ID            string               `json:"Id"`
	Input         []PhysicsInput       `json:"Input"`
	Output        []PhysicsOutput      `json:"Output"`
	Vertices      []PhysicsVertex      `json:"Vertices"`
	Normalization PhysicsNormalization `json:"Normalization"`
}

// PhysicsTarget names a parameter.
type PhysicsTarget struct {
	Target string `json:"Target"`
	ID     string `json:"Id"`
}

// PhysicsInput binds a parameter to the chain root.
type PhysicsInput struct {
	Source  PhysicsTarget `json:"Source"`
	Weight  float32       `json:"Weight"`
	Type    string        `json:"Type"`
	Reflect bool          `json:"Reflect"`
}

// PhysicsOutput writes a particle displacement into a parameter.
type PhysicsOutput struct {
	Destination PhysicsTarget `json:"Destination"`
	VertexIndex int           `json:"VertexIndex"`
	Scale       float32       `json:"Scale"`
	Weight      float32       `json:"Weight"`
	Type        string        `json:"Type"`
	Reflect     bool          `json:"Reflect"`
}

// PhysicsVertex is the static description of one particle.
type PhysicsVertex struct {
	Position     Vector  `json:"Position"`
	Mobility     float32 `json:"Mobility"`
	Delay        float32 `json:"Delay"`
	Acceleration float32 `json:"Acceleration"`
	Radius       float32 `json:"Radius"`
}

// PhysicsRange is a {minimum, default, maximum} triple.
type PhysicsRange struct {
	Minimum float32 `json:"Minimum"`
	Default float32 `json:"Default"`
	Maximum float32 `json:"Maximum"`
}

// PhysicsNormalization holds the ranges inputs are normalized into.
type PhysicsNormalization struct {
	Position PhysicsRange `json:"Position"`
	Angle    PhysicsRange `json:"Angle"`
}

// ParsePhysics3 parses a physics3 descriptor from raw bytes.
func ParsePhysics3(data []byte) (*Physics3, error) {
	var p Physics3
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decoding physics3: %w", err)
	}
	return &p, nil
}

// ParsePhysics3File reads and parses a physics3 descriptor from disk.
func ParsePhysics3File(path string) (*Physics3, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading physics3 file: %w", err)
	}
	return ParsePhysics3(data)
}
