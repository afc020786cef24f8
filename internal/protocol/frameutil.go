package protocol

import (
	"encoding/binary"
	"math"
)

// EncodeMeasurementFrame builds the 8-byte measurement frame a device would
// emit for the given reading. The host never sends these; the encoder exists
// for the scripted dev-mode device and for tests, and mirrors Decode exactly.
func EncodeMeasurementFrame(sequenceBit bool, distanceM, azimuthDeg, inclinationDeg float64) []byte {
	frame := make([]byte, FrameSize)

	rawDistance := uint32(distanceM/DistanceResolution + 0.5)
	frame[0] = TypeMeasurement
	if sequenceBit {
		frame[0] |= SequenceBitMask
	}
	if rawDistance > 0xFFFF {
		frame[0] |= DistanceExtMask
	}
	binary.LittleEndian.PutUint16(frame[1:3], uint16(rawDistance))

	rawAzimuth := uint16(azimuthDeg/AzimuthResolution + 0.5)
	binary.LittleEndian.PutUint16(frame[3:5], rawAzimuth)

	rawInclination := int16(math.Round(inclinationDeg / InclinationResolution))
	binary.LittleEndian.PutUint16(frame[5:7], uint16(rawInclination))

	return frame
}

// EncodeDeviceInfoFrame builds a device info frame, for simulators and tests.
func EncodeDeviceInfoFrame(fwMajor, fwMinor uint8, batteryMillivolt uint16) []byte {
	frame := make([]byte, FrameSize)
	frame[0] = TypeDeviceInfo
	frame[1] = fwMajor
	frame[2] = fwMinor
	binary.LittleEndian.PutUint16(frame[3:5], batteryMillivolt)
	return frame
}
