// Package protocol implements the 8-byte framed wire protocol spoken by the
// rangefinder over its serial link: decoding inbound frames into typed
// messages and encoding outbound command frames.
//
// FRAME STRUCTURE (8 bytes total):
// ├── Header (1 byte)
// │     bit 7      sequence bit (alternates per new physical reading)
// │     bit 6      distance extension bit (measurement frames only)
// │     bits 0..5  type discriminator
// └── Payload (7 bytes) - packed little-endian fixed-point fields; layout
//       depends on the discriminator (see the Type* constants below).
//
// All fixed-point scale factors are exact device constants: distance is
// reported in millimetres, azimuth in 1/65536ths of a full turn, and
// inclination in 1/16384ths of a right angle.
package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"
)

// Frame layout constants. These define the fixed format of frames sent by the
// rangefinder; they are a device contract and must not change.
const (
	FrameSize = 8 // every inbound and outbound frame is exactly 8 bytes

	// Header byte bit assignments
	SequenceBitMask = 0x80 // bit 7: alternating sequence bit
	DistanceExtMask = 0x40 // bit 6: bit 16 of the distance field
	TypeMask        = 0x3F // bits 0..5: type discriminator

	// Inbound type discriminators
	TypeMeasurement uint8 = 0x01 // distance/azimuth/inclination reading
	TypeCalibAccel  uint8 = 0x02 // raw accelerometer calibration sample
	TypeCalibMag    uint8 = 0x03 // raw magnetometer calibration sample
	TypeDeviceInfo  uint8 = 0x05 // firmware version and battery level
	TypeAck         uint8 = 0x06 // device acknowledgement of a command

	// Physical measurement conversion constants
	DistanceResolution    = 0.001              // distance unit: 1mm per LSB (converts raw values to meters)
	AzimuthResolution     = 360.0 / 65536.0    // azimuth unit: full turn divided into 65536 steps
	InclinationResolution = 90.0 / 16384.0     // inclination unit: right angle divided into 16384 steps
	RollResolution        = 360.0 / 256.0      // roll unit: full turn in a single byte
)

// ErrMalformedPacket is returned when a frame cannot be decoded at all: the
// length is wrong, so field offsets cannot be trusted and the stream may have
// lost sync. Unrecognised-but-well-formed discriminators are NOT malformed;
// they decode to an Unknown message so firmware variants stay tolerable.
var ErrMalformedPacket = errors.New("malformed packet")

// MessageType identifies the decoded variant of a protocol message.
type MessageType int

const (
	MessageUnknown MessageType = iota
	MessageMeasurement
	MessageCalibrationSample
	MessageDeviceInfo
	MessageAck
)

// String returns a short token for the message type, used in logs.
func (t MessageType) String() string {
	switch t {
	case MessageMeasurement:
		return "measurement"
	case MessageCalibrationSample:
		return "calibration_sample"
	case MessageDeviceInfo:
		return "device_info"
	case MessageAck:
		return "ack"
	default:
		return "unknown"
	}
}

// Measurement is one decoded distance/direction reading, pre-deduplication.
// Distance is in meters, azimuth in degrees [0,360), inclination in degrees
// [-90,90]. Roll is a coarse device-frame rotation; the classifier ignores it.
type Measurement struct {
	Distance    float64
	Azimuth     float64
	Inclination float64
	Roll        float64
	Timestamp   time.Time
}

// CalibrationKind distinguishes the two raw sensor streams emitted while the
// device is in calibration mode.
type CalibrationKind int

const (
	CalibrationAccel CalibrationKind = iota
	CalibrationMag
)

// CalibrationSample carries one raw 3-axis sensor sample. The fitting
// algorithm that consumes these lives outside this module; the decoder only
// recognises and routes them.
type CalibrationSample struct {
	Kind    CalibrationKind
	X, Y, Z int16
}

// DeviceInfo reports firmware version and battery level.
type DeviceInfo struct {
	FirmwareMajor    uint8
	FirmwareMinor    uint8
	BatteryMillivolt uint16
}

// Message is the tagged result of decoding one frame. Exactly one of the
// payload pointers is non-nil, matching Type; Unknown frames carry the raw
// header byte and payload for diagnostic logging.
type Message struct {
	Type        MessageType
	SequenceBit bool

	Measurement *Measurement
	Calibration *CalibrationSample
	DeviceInfo  *DeviceInfo
	AckOpcode   uint8

	// Raw discriminator and payload, populated for Unknown frames.
	RawType    uint8
	RawPayload []byte
}

// wrapAzimuth maps an angle in degrees into [0,360). Negative modulo results
// are lifted by a full turn.
func wrapAzimuth(deg float64) float64 {
	wrapped := math.Mod(deg, 360)
	if wrapped < 0 {
		wrapped += 360
	}
	return wrapped
}

// clampInclination bounds an angle in degrees to [-90,90].
func clampInclination(deg float64) float64 {
	if deg > 90 {
		return 90
	}
	if deg < -90 {
		return -90
	}
	return deg
}

// Decode parses one complete 8-byte frame into a typed Message.
//
// The frame must be exactly FrameSize bytes; any other length returns
// ErrMalformedPacket because a silent skip would hide a resync problem.
// The timestamp recorded on measurement frames is the host receive instant,
// taken here (the device clock is not part of the wire format).
func Decode(frame []byte) (Message, error) {
	if len(frame) != FrameSize {
		return Message{}, fmt.Errorf("%w: expected %d bytes, got %d", ErrMalformedPacket, FrameSize, len(frame))
	}

	header := frame[0]
	seq := header&SequenceBitMask != 0

	switch header & TypeMask {
	case TypeMeasurement:
		rawDistance := uint32(binary.LittleEndian.Uint16(frame[1:3]))
		if header&DistanceExtMask != 0 {
			rawDistance |= 1 << 16 // ranges beyond 65.535m set the extension bit
		}
		rawAzimuth := binary.LittleEndian.Uint16(frame[3:5])
		rawInclination := int16(binary.LittleEndian.Uint16(frame[5:7]))

		return Message{
			Type:        MessageMeasurement,
			SequenceBit: seq,
			Measurement: &Measurement{
				Distance:    float64(rawDistance) * DistanceResolution,
				Azimuth:     wrapAzimuth(float64(rawAzimuth) * AzimuthResolution),
				Inclination: clampInclination(float64(rawInclination) * InclinationResolution),
				Roll:        wrapAzimuth(float64(frame[7]) * RollResolution),
				Timestamp:   time.Now(),
			},
		}, nil

	case TypeCalibAccel, TypeCalibMag:
		kind := CalibrationAccel
		if header&TypeMask == TypeCalibMag {
			kind = CalibrationMag
		}
		return Message{
			Type:        MessageCalibrationSample,
			SequenceBit: seq,
			Calibration: &CalibrationSample{
				Kind: kind,
				X:    int16(binary.LittleEndian.Uint16(frame[1:3])),
				Y:    int16(binary.LittleEndian.Uint16(frame[3:5])),
				Z:    int16(binary.LittleEndian.Uint16(frame[5:7])),
			},
		}, nil

	case TypeDeviceInfo:
		return Message{
			Type:        MessageDeviceInfo,
			SequenceBit: seq,
			DeviceInfo: &DeviceInfo{
				FirmwareMajor:    frame[1],
				FirmwareMinor:    frame[2],
				BatteryMillivolt: binary.LittleEndian.Uint16(frame[3:5]),
			},
		}, nil

	case TypeAck:
		return Message{
			Type:        MessageAck,
			SequenceBit: seq,
			AckOpcode:   frame[1],
		}, nil

	default:
		// Well-formed frame with a discriminator this firmware revision does
		// not emit. Route it onward for logging rather than failing the stream.
		payload := make([]byte, FrameSize-1)
		copy(payload, frame[1:])
		return Message{
			Type:        MessageUnknown,
			SequenceBit: seq,
			RawType:     header & TypeMask,
			RawPayload:  payload,
		}, nil
	}
}
