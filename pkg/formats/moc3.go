package formats

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
)

// MOC3 format errors.
var (
	ErrInvalidMocMagic       = errors.New("invalid MOC3 magic: expected 'MOC3'")
	ErrUnsupportedMocVersion = errors.New("unsupported MOC3 version")
	ErrTruncatedMocData      = errors.New("truncated MOC3 data")
)

// MocHeaderSize is the size of the fixed moc3 file header.
const MocHeaderSize = 64

// MocVersion is the format version tag stored in the moc3 header.
type MocVersion uint8

// Known moc3 versions.
const (
	MocVersionUnknown MocVersion = 0
	MocVersion30      MocVersion = 1
	MocVersion33      MocVersion = 2
	MocVersion40      MocVersion = 3
	MocVersion42      MocVersion = 4
	MocVersion50      MocVersion = 5

	// LatestMocVersion is the newest version this runtime understands.
	LatestMocVersion = MocVersion50
)

// String returns the version as "Major.Minor.Patch".
func (v MocVersion) String() string {
	switch v {
	case MocVersion30:
		return "3.0.00"
	case MocVersion33:
		return "3.3.00"
	case MocVersion40:
		return "4.0.00"
	case MocVersion42:
		return "4.2.00"
	case MocVersion50:
		return "5.0.00"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(v))
	}
}

// MocHeader is the decoded fixed header of a moc3 file.
type MocHeader struct {
	Version   MocVersion
	BigEndian bool
}

// ByteOrder returns the byte order the rest of the file is encoded with.
func (h *MocHeader) ByteOrder() binary.ByteOrder {
	if h.BigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// ParseMocHeader decodes the moc3 header from raw bytes. It does not
// validate the version against LatestMocVersion; see CheckMocVersion.
func ParseMocHeader(data []byte) (*MocHeader, error) {
	if len(data) < MocHeaderSize {
		return nil, ErrTruncatedMocData
	}

	if string(data[0:4]) != "MOC3" {
		return nil, ErrInvalidMocMagic
	}

	h := &MocHeader{
		Version:   MocVersion(data[4]),
		BigEndian: data[5] != 0,
	}
	return h, nil
}

// CheckMocVersion fails when version is newer than latest.
func CheckMocVersion(version, latest MocVersion) error {
	if version > latest {
		return fmt.Errorf("%w: %s (latest supported %s)", ErrUnsupportedMocVersion, version, latest)
	}
	return nil
}

// ParseMocHeaderFile reads and decodes the header of a moc3 file.
func ParseMocHeaderFile(path string) (*MocHeader, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading moc3 file: %w", err)
	}
	return ParseMocHeader(data)
}
