package formats

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// Motion3 descriptor errors.
var (
	ErrInvalidMotionDuration = errors.New("motion3: duration must not be negative")
)

// Curve targets.
const (
	CurveTargetModel       = "Model"
	CurveTargetParameter   = "Parameter"
	CurveTargetPartOpacity = "PartOpacity"
)

// Motion3 is a parsed .motion3.json descriptor.
type Motion3 struct {
	Version  int               `json:"Version"`
	Meta     Motion3Meta       `json:"Meta"`
	Curves   []Motion3Curve    `json:"Curves"`
	UserData []Motion3UserData `json:"UserData"`
}

// Motion3Meta holds the playback settings and size hints of a motion.
type Motion3Meta struct {
	Duration             float32  `json:"Duration"`
	Fps                  float32  `json:"Fps"`
	Loop                 bool     `json:"Loop"`
	AreBeziersRestricted bool     `json:"AreBeziersRestricted"`
	CurveCount           int      `json:"CurveCount"`
	TotalSegmentCount    int      `json:"TotalSegmentCount"`
	TotalPointCount      int      `json:"TotalPointCount"`
	UserDataCount        int      `json:"UserDataCount"`
	TotalUserDataSize    int      `json:"TotalUserDataSize"`
	FadeInTime           *float32 `json:"FadeInTime"`
	FadeOutTime          *float32 `json:"FadeOutTime"`
}

// Motion3Curve is one animated channel. Segments is the flat encoded
// segment array: the first point (time, value) followed by repeated
// (kind, points...) records.
type Motion3Curve struct {
	Target      string    `json:"Target"`
	ID          string    `json:"Id"`
	FadeInTime  *float32  `json:"FadeInTime"`
	FadeOutTime *float32  `json:"FadeOutTime"`
	Segments    []float32 `json:"Segments"`
}

// Motion3UserData is a timed string event.
type Motion3UserData struct {
	Time  float32 `json:"Time"`
	Value string  `json:"Value"`
}

// ParseMotion3 parses a motion3 descriptor from raw bytes.
func ParseMotion3(data []byte) (*Motion3, error) {
	var m Motion3
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decoding motion3: %w", err)
	}
	if m.Meta.Duration < 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMotionDuration, m.Meta.Duration)
	}
	return &m, nil
}

// ParseMotion3File reads and parses a motion3 descriptor from disk.
func ParseMotion3File(path string) (*Motion3, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading motion3 file: %w", err)
	}
	return ParseMotion3(data)
}
