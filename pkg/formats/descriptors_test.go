package formats

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const sampleModel3 = `{
  "Version": 3,
  "FileReferences": {
    "Moc": "hiyori.moc3",
    "Textures": ["hiyori.2048/texture_00.png"],
    "Physics": "hiyori.physics3.json",
    "Motions": {
      "TapBody": [{"File": "motions/tap.motion3.json", "FadeInTime": 0.5}],
      "Idle": [{"File": "motions/idle_01.motion3.json"}, {"File": "motions/idle_02.motion3.json"}]
    }
  },
  "Groups": [
    {"Target": "Parameter", "Name": "EyeBlink", "Ids": ["ParamEyeLOpen", "ParamEyeROpen"]},
    {"Target": "PartOpacity", "Name": "Arms", "Ids": ["PartArmL", "PartArmR"]}
  ],
  "HitAreas": [{"Id": "HitArea", "Name": "Body"}]
}`

const sampleMotion3 = `{
  "Version": 3,
  "Meta": {
    "Duration": 2.5,
    "Fps": 30.0,
    "Loop": true,
    "AreBeziersRestricted": true,
    "CurveCount": 2,
    "TotalSegmentCount": 3,
    "TotalPointCount": 6,
    "UserDataCount": 1,
    "TotalUserDataSize": 5
  },
  "Curves": [
    {"Target": "Parameter", "Id": "ParamAngleX", "Segments": [0, 0, 0, 1, 10, 1, 1.5, 10, 2, -10, 2.5, -10]},
    {"Target": "PartOpacity", "Id": "PartArmL", "FadeInTime": 0.2, "Segments": [0, 1, 2, 2.5, 0]}
  ],
  "UserData": [{"Time": 1.0, "Value": "blink"}]
}`

const samplePhysics3 = `{
  "Version": 3,
  "Meta": {
    "PhysicsSettingCount": 1,
    "EffectiveForces": {"Gravity": {"X": 0, "Y": -1}, "Wind": {"X": 0, "Y": 0}},
    "PhysicsDictionary": [{"Id": "PhysicsSetting1", "Name": "Hair"}]
  },
  "PhysicsSettings": [{
    "Id": "PhysicsSetting1",
    "Input": [{"Source": {"Target": "Parameter", "Id": "ParamAngleX"}, "Weight": 60, "Type": "X", "Reflect": false}],
    "Output": [{"Destination": {"Target": "Parameter", "Id": "ParamHairFront"}, "VertexIndex": 1, "Scale": 1.5, "Weight": 100, "Type": "Angle", "Reflect": false}],
    "Vertices": [
      {"Position": {"X": 0, "Y": 0}, "Mobility": 1, "Delay": 1, "Acceleration": 1, "Radius": 0},
      {"Position": {"X": 0, "Y": 3}, "Mobility": 0.95, "Delay": 0.9, "Acceleration": 1.5, "Radius": 3}
    ],
    "Normalization": {
      "Position": {"Minimum": -10, "Default": 0, "Maximum": 10},
      "Angle": {"Minimum": -10, "Default": 0, "Maximum": 10}
    }
  }]
}`

func TestParseModel3(t *testing.T) {
	m, err := ParseModel3([]byte(sampleModel3))
	if err != nil {
		t.Fatalf("ParseModel3: %v", err)
	}

	if m.FileReferences.Moc != "hiyori.moc3" {
		t.Errorf("unexpected moc reference %q", m.FileReferences.Moc)
	}
	if len(m.FileReferences.Textures) != 1 {
		t.Errorf("expected 1 texture, got %d", len(m.FileReferences.Textures))
	}

	groups := m.MotionGroups()
	if len(groups) != 2 || groups[0] != "Idle" || groups[1] != "TapBody" {
		t.Errorf("MotionGroups() = %v, want [Idle TapBody]", groups)
	}
	if fade := m.FileReferences.Motions["TapBody"][0].FadeInTime; fade == nil || *fade != 0.5 {
		t.Errorf("expected TapBody fade-in 0.5, got %v", fade)
	}
	if m.FileReferences.Motions["Idle"][0].FadeInTime != nil {
		t.Error("expected absent fade-in to stay nil")
	}

	params := m.GroupsFor(GroupTargetParameter)
	if len(params) != 1 || params[0].Name != "EyeBlink" || len(params[0].Ids) != 2 {
		t.Errorf("unexpected parameter groups %+v", params)
	}
	parts := m.GroupsFor(GroupTargetPartOpacity)
	if len(parts) != 1 || parts[0].Name != "Arms" {
		t.Errorf("unexpected part groups %+v", parts)
	}
}

func TestParseModel3_MissingMoc(t *testing.T) {
	_, err := ParseModel3([]byte(`{"Version": 3, "FileReferences": {}}`))
	if !errors.Is(err, ErrMissingMocReference) {
		t.Errorf("expected ErrMissingMocReference, got %v", err)
	}
}

func TestParseModel3_InvalidJSON(t *testing.T) {
	if _, err := ParseModel3([]byte(`{"Version":`)); err == nil {
		t.Error("expected error for truncated JSON")
	}
}

func TestParseModel3File_Resolve(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hiyori.model3.json")
	if err := os.WriteFile(path, []byte(sampleModel3), 0644); err != nil {
		t.Fatal(err)
	}

	m, err := ParseModel3File(path)
	if err != nil {
		t.Fatalf("ParseModel3File: %v", err)
	}
	if got, want := m.Resolve(m.FileReferences.Moc), filepath.Join(dir, "hiyori.moc3"); got != want {
		t.Errorf("Resolve(moc) = %q, want %q", got, want)
	}
	if got, want := m.Resolve(m.FileReferences.Textures[0]), filepath.Join(dir, "hiyori.2048", "texture_00.png"); got != want {
		t.Errorf("Resolve(texture) = %q, want %q", got, want)
	}
	if got := m.Resolve(""); got != "" {
		t.Errorf("Resolve(\"\") = %q, want empty", got)
	}
}

func TestParseMotion3(t *testing.T) {
	m, err := ParseMotion3([]byte(sampleMotion3))
	if err != nil {
		t.Fatalf("ParseMotion3: %v", err)
	}

	if m.Meta.Duration != 2.5 || m.Meta.Fps != 30 || !m.Meta.Loop || !m.Meta.AreBeziersRestricted {
		t.Errorf("unexpected meta %+v", m.Meta)
	}
	if len(m.Curves) != 2 {
		t.Fatalf("expected 2 curves, got %d", len(m.Curves))
	}
	if m.Curves[0].ID != "ParamAngleX" || m.Curves[0].Target != CurveTargetParameter {
		t.Errorf("unexpected first curve %+v", m.Curves[0])
	}
	if len(m.Curves[0].Segments) != 12 {
		t.Errorf("expected 12 segment numbers, got %d", len(m.Curves[0].Segments))
	}
	if fade := m.Curves[1].FadeInTime; fade == nil || *fade != 0.2 {
		t.Errorf("expected curve fade-in 0.2, got %v", fade)
	}
	if len(m.UserData) != 1 || m.UserData[0].Value != "blink" || m.UserData[0].Time != 1 {
		t.Errorf("unexpected user data %+v", m.UserData)
	}
}

func TestParseMotion3_NegativeDuration(t *testing.T) {
	_, err := ParseMotion3([]byte(`{"Meta": {"Duration": -1}}`))
	if !errors.Is(err, ErrInvalidMotionDuration) {
		t.Errorf("expected ErrInvalidMotionDuration, got %v", err)
	}
}

func TestParsePhysics3(t *testing.T) {
	p, err := ParsePhysics3([]byte(samplePhysics3))
	if err != nil {
		t.Fatalf("ParsePhysics3: %v", err)
	}

	if p.Meta.EffectiveForces.Gravity != (Vector{X: 0, Y: -1}) {
		t.Errorf("unexpected gravity %+v", p.Meta.EffectiveForces.Gravity)
	}
	if len(p.PhysicsSettings) != 1 {
		t.Fatalf("expected 1 setting, got %d", len(p.PhysicsSettings))
	}

	s := p.PhysicsSettings[0]
	if len(s.Input) != 1 || s.Input[0].Type != PhysicsTypeX || s.Input[0].Source.ID != "ParamAngleX" {
		t.Errorf("unexpected input %+v", s.Input)
	}
	if len(s.Output) != 1 || s.Output[0].Type != PhysicsTypeAngle || s.Output[0].VertexIndex != 1 {
		t.Errorf("unexpected output %+v", s.Output)
	}
	if len(s.Vertices) != 2 || s.Vertices[1].Radius != 3 {
		t.Errorf("unexpected vertices %+v", s.Vertices)
	}
	if s.Normalization.Position.Maximum != 10 {
		t.Errorf("unexpected normalization %+v", s.Normalization)
	}
}

func TestParseDescriptorFiles_Missing(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.json")
	if _, err := ParseModel3File(missing); err == nil {
		t.Error("ParseModel3File: expected error for missing file")
	}
	if _, err := ParseMotion3File(missing); err == nil {
		t.Error("ParseMotion3File: expected error for missing file")
	}
	if _, err := ParsePhysics3File(missing); err == nil {
		t.Error("ParsePhysics3File: expected error for missing file")
	}
}
